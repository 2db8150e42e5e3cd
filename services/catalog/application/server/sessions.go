package server

import (
	"sync"

	"github.com/google/uuid"

	"github.com/ghuser/prodvault/pkg/metrics"
)

// sessionRegistry enforces at most one active session per username. claim is
// atomic under the mutex, so two concurrent logins for the same name can
// never both succeed.
type sessionRegistry struct {
	mu      sync.Mutex
	byUser  map[string]uuid.UUID
	metrics *metrics.Metrics
}

func newSessionRegistry(m *metrics.Metrics) *sessionRegistry {
	return &sessionRegistry{byUser: make(map[string]uuid.UUID), metrics: m}
}

// claim registers sessionID as the active session for username. Returns false
// when another session already holds the name.
func (r *sessionRegistry) claim(username string, sessionID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byUser[username]; taken {
		return false
	}
	r.byUser[username] = sessionID
	if r.metrics != nil {
		r.metrics.ActiveSessions.Inc()
	}
	return true
}

// release frees username if sessionID still holds it. Safe to call for
// sessions that never claimed anything.
func (r *sessionRegistry) release(username string, sessionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if holder, ok := r.byUser[username]; ok && holder == sessionID {
		delete(r.byUser, username)
		if r.metrics != nil {
			r.metrics.ActiveSessions.Dec()
		}
	}
}
