// Package metrics exposes check-in and ledger counters for Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Check-in outcomes
const (
	OutcomeCharged   = "charged"
	OutcomeFree      = "free"
	OutcomeDuplicate = "duplicate"
	OutcomeError     = "error"
)

// Metrics holds the service counters. A nil *Metrics records nothing.
type Metrics struct {
	checkins            *prometheus.CounterVec
	chargedCents        prometheus.Counter
	credits             *prometheus.CounterVec
	invariantViolations prometheus.Counter
}

// New creates the counters and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		checkins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "summerfest_checkins_total",
			Help: "Check-in attempts by pricing policy and outcome.",
		}, []string{"policy", "outcome"}),
		chargedCents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "summerfest_charges_total_cents",
			Help: "Total amount debited by check-ins, in cents.",
		}),
		credits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "summerfest_ledger_credits_total",
			Help: "Ledger credits recorded by payment method.",
		}, []string{"method"}),
		invariantViolations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "summerfest_ledger_invariant_violations_total",
			Help: "Accounts found with a balance that disagrees with their transactions.",
		}),
	}
	reg.MustRegister(m.checkins, m.chargedCents, m.credits, m.invariantViolations)
	return m
}

// CheckIn counts one check-in attempt and the amount it charged
func (m *Metrics) CheckIn(policy, outcome string, amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.checkins.WithLabelValues(policy, outcome).Inc()
	if amount.IsPositive() {
		m.chargedCents.Add(amount.Shift(2).InexactFloat64())
	}
}

// Credit counts one recorded credit
func (m *Metrics) Credit(method string) {
	if m == nil {
		return
	}
	m.credits.WithLabelValues(method).Inc()
}

// InvariantViolation counts one account found inconsistent
func (m *Metrics) InvariantViolation() {
	if m == nil {
		return
	}
	m.invariantViolations.Inc()
}
