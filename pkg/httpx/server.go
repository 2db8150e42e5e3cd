// Package httpx hosts the operational HTTP surface of the server process.
// The catalog protocol itself runs over raw TCP; this package only serves
// /health and /metrics for probes and scrapes.
package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewOpsRouter returns a chi.Mux with the health and metrics endpoints mounted.
// The ops listener is expected to be reachable only from inside the deployment,
// so the router carries no CORS or rate limiting.
func NewOpsRouter(checks HealthChecks, metricsHandler http.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer,
		middleware.Timeout(10*time.Second),
	)
	r.Get("/health", HealthHandler(checks))
	r.Method(http.MethodGet, "/metrics", metricsHandler)
	return r
}

// NewServer returns an *http.Server with production-ready timeouts.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:           addr,
		Handler:        handler,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}
}
