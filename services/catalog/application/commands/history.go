package commands

import "sync"

// historyCapacity bounds the shared command history.
const historyCapacity = 15

// historyRing keeps the last N command names in execution order, evicting the
// oldest first. Shared across all sessions.
type historyRing struct {
	mu    sync.Mutex
	items []string
	cap   int
}

func newHistoryRing(capacity int) *historyRing {
	return &historyRing{cap: capacity}
}

// Add appends name, dropping the oldest entry once full.
func (h *historyRing) Add(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.items = append(h.items, name)
	if len(h.items) > h.cap {
		h.items = h.items[len(h.items)-h.cap:]
	}
}

// Items returns a copy of the history, oldest first.
func (h *historyRing) Items() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.items))
	copy(out, h.items)
	return out
}
