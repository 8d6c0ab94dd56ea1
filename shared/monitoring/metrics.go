package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes pipeline counters on its own registry
type Metrics struct {
	registry *prometheus.Registry

	analyses   *prometheus.CounterVec
	coachings  *prometheus.CounterVec
	dispatches *prometheus.CounterVec
	sessions   *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kick_analyzer",
			Name:      "analyses_total",
			Help:      "Analysis results by source (cache, remote, fallback)",
		}, []string{"source"}),
		coachings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kick_analyzer",
			Name:      "coaching_total",
			Help:      "Coaching feedback sets by source (cache, remote, fallback)",
		}, []string{"source"}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kick_analyzer",
			Name:      "remote_dispatches_total",
			Help:      "Remote inference attempts by kind and outcome",
		}, []string{"kind", "outcome"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kick_analyzer",
			Name:      "sessions_processed_total",
			Help:      "Landmark sessions processed by status",
		}, []string{"status"}),
	}

	m.registry.MustRegister(m.analyses, m.coachings, m.dispatches, m.sessions)
	return m
}

// Registry returns the registry backing the /metrics endpoint
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordAnalysis(source string) {
	m.analyses.WithLabelValues(source).Inc()
}

func (m *Metrics) RecordCoaching(source string) {
	m.coachings.WithLabelValues(source).Inc()
}

func (m *Metrics) RecordDispatch(kind, outcome string) {
	m.dispatches.WithLabelValues(kind, outcome).Inc()
}

// RecordSession counts processed inbox sessions (processed, failed)
func (m *Metrics) RecordSession(status string) {
	m.sessions.WithLabelValues(status).Inc()
}
