// Package metrics holds the Prometheus collectors of the chat service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xiaot623/gogo/fraudgpt/internal/domain"
)

// Metrics is a set of collectors registered on a private registry.
type Metrics struct {
	registry        *prometheus.Registry
	turns           *prometheus.CounterVec
	engineDuration  *prometheus.HistogramVec
	sessionsCreated prometheus.Counter
	sessionsDeleted prometheus.Counter
}

// New creates the collectors and registers them with Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fraudgpt_turns_total",
			Help: "Chat turns processed, by outcome.",
		}, []string{"outcome"}),
		engineDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fraudgpt_engine_request_duration_seconds",
			Help:    "Latency of reasoning engine calls.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80, 120},
		}, []string{"provider"}),
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fraudgpt_sessions_created_total",
			Help: "Chat sessions created.",
		}),
		sessionsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fraudgpt_sessions_deleted_total",
			Help: "Chat sessions deleted.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.turns,
		m.engineDuration,
		m.sessionsCreated,
		m.sessionsDeleted,
	)
	return m
}

// ObserveTurn counts a finished turn.
func (m *Metrics) ObserveTurn(outcome domain.TurnOutcome) {
	m.turns.WithLabelValues(string(outcome)).Inc()
}

// ObserveEngine records the duration of one engine call.
func (m *Metrics) ObserveEngine(provider string, d time.Duration) {
	m.engineDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// SessionCreated counts a new session.
func (m *Metrics) SessionCreated() {
	m.sessionsCreated.Inc()
}

// SessionDeleted counts a deleted session.
func (m *Metrics) SessionDeleted() {
	m.sessionsDeleted.Inc()
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
