// Package metrics registers the Prometheus collectors the server exposes on
// the ops /metrics endpoint.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles all collectors so components can record without touching
// the registry directly.
type Metrics struct {
	registry *prometheus.Registry

	ActiveConnections prometheus.Gauge
	ActiveSessions    prometheus.Gauge
	CommandsTotal     *prometheus.CounterVec
	CommandDuration   *prometheus.HistogramVec
	AuthTotal         *prometheus.CounterVec
}

// New creates a Metrics with its own registry (plus the default Go and
// process collectors).
func New(serviceName string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	labels := prometheus.Labels{"service": serviceName}

	m := &Metrics{
		registry: reg,
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "prodvault_active_connections",
			Help:        "Open client TCP connections.",
			ConstLabels: labels,
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "prodvault_active_sessions",
			Help:        "Authenticated sessions currently registered.",
			ConstLabels: labels,
		}),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "prodvault_commands_total",
			Help:        "Dispatched commands by name and outcome.",
			ConstLabels: labels,
		}, []string{"command", "status"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "prodvault_command_duration_seconds",
			Help:        "Command execution latency.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: labels,
		}, []string{"command"}),
		AuthTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "prodvault_auth_total",
			Help:        "Authentication attempts by kind and outcome.",
			ConstLabels: labels,
		}, []string{"kind", "status"}),
	}

	reg.MustRegister(
		m.ActiveConnections,
		m.ActiveSessions,
		m.CommandsTotal,
		m.CommandDuration,
		m.AuthTotal,
	)
	return m
}

// ObserveCommand records one dispatched command.
func (m *Metrics) ObserveCommand(name string, err error, elapsed time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.CommandsTotal.WithLabelValues(name, status).Inc()
	m.CommandDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

// Handler returns the HTTP handler serving this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
