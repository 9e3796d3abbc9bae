// Package metrics holds the Prometheus collectors for the board's core
// operations. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "featureboard"

type Metrics struct {
	VoteToggles      *prometheus.CounterVec
	GuardDecisions   *prometheus.CounterVec
	AccountDeletions *prometheus.CounterVec
	LoginAttempts    *prometheus.CounterVec
	TxDuration       *prometheus.HistogramVec
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in
// tests to keep them isolated.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		VoteToggles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "vote_toggles_total",
				Help:      "Vote toggles by resulting action",
			},
			[]string{"action"},
		),
		GuardDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "request_guard_decisions_total",
				Help:      "Edit and delete authorization decisions by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		AccountDeletions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "account_deletions_total",
				Help:      "Account deletion attempts by result",
			},
			[]string{"result"},
		),
		LoginAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "login_rate_limit_decisions_total",
				Help:      "Login rate limiter decisions",
			},
			[]string{"decision"},
		),
		TxDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transaction_duration_seconds",
				Help:      "Duration of core write transactions",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation"},
		),
	}
}

func (m *Metrics) VoteToggled(action string) {
	if m == nil {
		return
	}
	m.VoteToggles.WithLabelValues(action).Inc()
}

func (m *Metrics) GuardDecision(operation, outcome string) {
	if m == nil {
		return
	}
	m.GuardDecisions.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) AccountDeleted(result string) {
	if m == nil {
		return
	}
	m.AccountDeletions.WithLabelValues(result).Inc()
}

func (m *Metrics) LoginAttempt(allowed bool) {
	if m == nil {
		return
	}
	decision := "allowed"
	if !allowed {
		decision = "denied"
	}
	m.LoginAttempts.WithLabelValues(decision).Inc()
}

// ObserveTx records the time elapsed since start for operation.
func (m *Metrics) ObserveTx(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.TxDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
