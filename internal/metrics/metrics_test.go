package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
)

func TestCheckIn(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.CheckIn("graduated", OutcomeCharged, decimal.RequireFromString("6.00"))
	m.CheckIn("graduated", OutcomeCharged, decimal.RequireFromString("2.00"))
	m.CheckIn("graduated", OutcomeFree, decimal.Zero)

	if got := testutil.ToFloat64(m.checkins.WithLabelValues("graduated", OutcomeCharged)); got != 2 {
		t.Errorf("charged check-ins = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.checkins.WithLabelValues("graduated", OutcomeFree)); got != 1 {
		t.Errorf("free check-ins = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.chargedCents); got != 800 {
		t.Errorf("charged cents = %v, want 800", got)
	}
}

func TestLedgerCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Credit("cash")
	m.Credit("cash")
	m.Credit("stripe")
	m.InvariantViolation()

	if got := testutil.ToFloat64(m.credits.WithLabelValues("cash")); got != 2 {
		t.Errorf("cash credits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.invariantViolations); got != 1 {
		t.Errorf("invariant violations = %v, want 1", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.CheckIn("flat", OutcomeCharged, decimal.RequireFromString("6"))
	m.Credit("cash")
	m.InvariantViolation()
}
