// Package server accepts client TCP connections and runs one session per
// connection over the shared collection store, command registry and
// persistence gateway.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/ghuser/prodvault/pkg/logger"
	"github.com/ghuser/prodvault/pkg/metrics"
	"github.com/ghuser/prodvault/pkg/workpool"
	"github.com/ghuser/prodvault/services/catalog/application/collection"
	"github.com/ghuser/prodvault/services/catalog/application/commands"
	"github.com/ghuser/prodvault/services/catalog/domain/repositories"
)

// Server is the TCP acceptor. All sessions share the store, the registry,
// the user repository, the session registry and the worker pool.
type Server struct {
	port     int
	log      logger.Logger
	metrics  *metrics.Metrics
	store    *collection.Store
	registry *commands.Registry
	users    repositories.UserRepository
	pool     *workpool.Pool
	sessions *sessionRegistry
}

// New wires a Server. metrics may be nil in tests.
func New(
	port int,
	log logger.Logger,
	m *metrics.Metrics,
	store *collection.Store,
	registry *commands.Registry,
	users repositories.UserRepository,
	pool *workpool.Pool,
) *Server {
	return &Server{
		port:     port,
		log:      log.With("component", "server"),
		metrics:  m,
		store:    store,
		registry: registry,
		users:    users,
		pool:     pool,
		sessions: newSessionRegistry(m),
	}
}

// Run binds the listen port and accepts connections until ctx is cancelled.
// A bind failure is fatal and returned; accept errors are logged and the loop
// continues. Sessions run in their own goroutines and finish independently of
// the accept loop.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("bind port %d: %w", s.port, err)
	}
	s.log.InfoContext(ctx, "listening", "addr", ln.Addr().String())

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.log.InfoContext(ctx, "accept loop stopped")
				return nil
			}
			s.log.WarnContext(ctx, "accept failed", "error", err)
			continue
		}
		if s.metrics != nil {
			s.metrics.ActiveConnections.Inc()
		}
		go newSession(conn, s).serve(ctx)
	}
}
