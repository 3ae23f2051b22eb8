// Package metrics provides Prometheus metrics for SDK operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for session, guard and workflow
// operations.
type Metrics struct {
	enabled bool

	loginsTotal         *prometheus.CounterVec
	guardDecisionsTotal *prometheus.CounterVec
	submitsTotal        *prometheus.CounterVec
	reviewActionsTotal  *prometheus.CounterVec
	bootstrapSeconds    prometheus.Histogram
}

// New creates and registers Prometheus metrics.
// If enabled is false, returns a no-op Metrics instance.
func New(enabled bool) *Metrics {
	m := &Metrics{enabled: enabled}

	if !enabled {
		return m
	}

	m.loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campus_logins_total",
		Help: "Total login attempts by outcome",
	}, []string{"outcome"})

	m.guardDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campus_guard_decisions_total",
		Help: "Total access guard decisions by action",
	}, []string{"action"})

	m.submitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campus_verification_submits_total",
		Help: "Total verification submit attempts by outcome",
	}, []string{"outcome"})

	m.reviewActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campus_review_actions_total",
		Help: "Total admin review actions by action and outcome",
	}, []string{"action", "outcome"})

	m.bootstrapSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "campus_bootstrap_duration_seconds",
		Help:    "Session bootstrap duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	return m
}

// Enabled reports whether this instance records anything.
func (m *Metrics) Enabled() bool { return m.enabled }

// RecordLogin records a login attempt outcome ("success" or "failure").
func (m *Metrics) RecordLogin(outcome string) {
	if !m.enabled {
		return
	}
	m.loginsTotal.WithLabelValues(outcome).Inc()
}

// RecordGuardDecision records an access guard decision
// ("suspend", "render" or "redirect").
func (m *Metrics) RecordGuardDecision(action string) {
	if !m.enabled {
		return
	}
	m.guardDecisionsTotal.WithLabelValues(action).Inc()
}

// RecordSubmit records a verification submit outcome
// ("success", "conflict", "validation" or "error").
func (m *Metrics) RecordSubmit(outcome string) {
	if !m.enabled {
		return
	}
	m.submitsTotal.WithLabelValues(outcome).Inc()
}

// RecordReviewAction records an admin review action outcome.
func (m *Metrics) RecordReviewAction(action, outcome string) {
	if !m.enabled {
		return
	}
	m.reviewActionsTotal.WithLabelValues(action, outcome).Inc()
}

// ObserveBootstrap records the bootstrap duration.
func (m *Metrics) ObserveBootstrap(seconds float64) {
	if !m.enabled {
		return
	}
	m.bootstrapSeconds.Observe(seconds)
}
