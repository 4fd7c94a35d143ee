package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"summerfest/internal/models"
)

// Tier is the sign-in ladder for one family size: StandardSignIns at the
// standard rate, then one sign-in at ReducedRate, then free.
type Tier struct {
	StandardSignIns int
	ReducedRate     decimal.Decimal
}

// Graduated charges per sign-in on a Tuesday to Monday week, cheaper as the
// family's weekly sign-ins accumulate, capped per day and per week.
type Graduated struct {
	StandardRate    decimal.Decimal
	SingleChild     Tier
	MultiChild      Tier
	DailyCap        decimal.Decimal
	SingleWeeklyCap decimal.Decimal
	FamilyWeeklyCap decimal.Decimal
}

var (
	_ Policy        = (*Graduated)(nil)
	_ WeeklyLimiter = (*Graduated)(nil)
)

// NewGraduated returns the graduated policy with the event's published rates
func NewGraduated() *Graduated {
	return &Graduated{
		StandardRate:    decimal.RequireFromString("6.00"),
		SingleChild:     Tier{StandardSignIns: 3, ReducedRate: decimal.RequireFromString("2.00")},
		MultiChild:      Tier{StandardSignIns: 6, ReducedRate: decimal.RequireFromString("4.00")},
		DailyCap:        decimal.RequireFromString("12.00"),
		SingleWeeklyCap: decimal.RequireFromString("20.00"),
		FamilyWeeklyCap: decimal.RequireFromString("40.00"),
	}
}

func (g *Graduated) Name() string { return NameGraduated }

func (g *Graduated) Window(day time.Time) (time.Time, time.Time) {
	return TuesdayWeek(day)
}

func (g *Graduated) tier(familySize int) Tier {
	if familySize <= 1 {
		return g.SingleChild
	}
	return g.MultiChild
}

// Threshold is the number of full-price sign-ins a family gets each week
func (g *Graduated) Threshold(familySize int) int {
	return g.tier(familySize).StandardSignIns
}

// WeeklyCap is the single-child cap only while one child is registered and
// no more than one child has attended this week.
func (g *Graduated) WeeklyCap(familySize int, week []models.Attendance) decimal.Decimal {
	children := make(map[int64]struct{})
	for _, rec := range week {
		children[rec.ChildID] = struct{}{}
	}
	if familySize > 1 || len(children) > 1 {
		return g.FamilyWeeklyCap
	}
	return g.SingleWeeklyCap
}

func (g *Graduated) Calculate(h History) Charge {
	if alreadyCheckedIn(h) {
		return Free(ReasonAlreadyCheckedIn)
	}

	weekStart, weekEnd := g.Window(h.Date)
	inWeek := func(rec models.Attendance) bool {
		return !rec.Date.Before(weekStart) && !rec.Date.After(weekEnd)
	}

	// Today's sign-ins are covered by the daily total, not the weekly counter
	signIn := countSignIns(h.Window, func(rec models.Attendance) bool {
		return inWeek(rec) && rec.Date.Before(h.Date)
	}) + 1

	tier := g.tier(h.FamilySize)
	label := childrenLabel(h.FamilySize)

	var charge Charge
	switch {
	case signIn <= tier.StandardSignIns:
		charge = Charge{
			Amount: g.StandardRate,
			Reason: fmt.Sprintf("Standard daily rate (sign-in %d this week, %s)", signIn, label),
		}
	case signIn == tier.StandardSignIns+1:
		charge = Charge{
			Amount: tier.ReducedRate,
			Reason: fmt.Sprintf("Reduced rate (sign-in %d this week, %s)", signIn, label),
		}
	default:
		return Free(fmt.Sprintf("Free (sign-in %d this week, %s)", signIn, label))
	}

	daily := sumCharges(h.Today, nil)
	if daily.GreaterThanOrEqual(g.DailyCap) {
		return Free(ReasonDailyCapReached)
	}
	if daily.Add(charge.Amount).GreaterThan(g.DailyCap) {
		charge.Amount = g.DailyCap.Sub(daily)
		charge.Reason += " (capped at daily family limit)"
	}

	weekSoFar := func(rec models.Attendance) bool {
		return inWeek(rec) && !rec.Date.After(h.Date)
	}
	weekly := sumCharges(h.Window, weekSoFar)
	weeklyCap := g.WeeklyCap(h.FamilySize, filter(h.Window, weekSoFar))
	if weekly.GreaterThanOrEqual(weeklyCap) {
		return Free(ReasonWeeklyCapReached)
	}
	if weekly.Add(charge.Amount).GreaterThan(weeklyCap) {
		charge.Amount = weeklyCap.Sub(weekly)
		charge.Reason += " (capped at weekly family limit)"
	}

	return charge
}

// countSignIns counts distinct (child, day) pairs among the matching records
func countSignIns(records []models.Attendance, include func(models.Attendance) bool) int {
	type signIn struct {
		child int64
		day   string
	}
	seen := make(map[signIn]struct{})
	for _, rec := range records {
		if include(rec) {
			seen[signIn{rec.ChildID, models.DateKey(rec.Date)}] = struct{}{}
		}
	}
	return len(seen)
}

func filter(records []models.Attendance, include func(models.Attendance) bool) []models.Attendance {
	var out []models.Attendance
	for _, rec := range records {
		if include(rec) {
			out = append(out, rec)
		}
	}
	return out
}
