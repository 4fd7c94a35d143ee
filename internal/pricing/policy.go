// Package pricing computes the charge for a prospective check-in from the
// family's attendance history. Policies are pure: they never touch storage.
package pricing

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"summerfest/internal/models"
)

// Reasons shared by every policy
const (
	ReasonAlreadyCheckedIn = "Already checked in today"
	ReasonDailyCapReached  = "Daily family cap reached"
	ReasonWeeklyCapReached = "Weekly family cap reached"
)

// Policy names
const (
	NameGraduated = "graduated"
	NameFlat      = "flat"
)

// Charge is the amount a check-in costs and the rule that produced it
type Charge struct {
	Amount decimal.Decimal
	Reason string
}

// Free returns a zero charge with the given reason
func Free(reason string) Charge {
	return Charge{Amount: decimal.Zero, Reason: reason}
}

// History is everything a policy may consult about a prospective check-in.
type History struct {
	ChildID int64
	Date    time.Time
	// FamilySize counts the children registered to the family, attended or not
	FamilySize int
	// Today holds the family's records dated Date
	Today []models.Attendance
	// Window holds the family's records inside the policy's Window for Date
	Window []models.Attendance
}

// Policy prices a check-in
type Policy interface {
	// Name identifies the policy in configuration and logs
	Name() string
	// Window returns the inclusive range of days whose records Calculate needs
	Window(day time.Time) (start, end time.Time)
	// Calculate returns the charge for h.ChildID checking in on h.Date
	Calculate(h History) Charge
}

// WeeklyLimiter is implemented by policies that cap a family's weekly spend
type WeeklyLimiter interface {
	WeeklyCap(familySize int, week []models.Attendance) decimal.Decimal
	Threshold(familySize int) int
}

// New returns the policy registered under name
func New(name string) (Policy, error) {
	switch strings.ToLower(name) {
	case NameGraduated, "":
		return NewGraduated(), nil
	case NameFlat:
		return NewFlat(), nil
	default:
		return nil, fmt.Errorf("unknown pricing policy %q", name)
	}
}

func alreadyCheckedIn(h History) bool {
	for _, rec := range h.Today {
		if rec.ChildID == h.ChildID {
			return true
		}
	}
	return false
}

func sumCharges(records []models.Attendance, include func(models.Attendance) bool) decimal.Decimal {
	total := decimal.Zero
	for _, rec := range records {
		if include == nil || include(rec) {
			total = total.Add(rec.ChargeAmount)
		}
	}
	return total
}

func childrenLabel(n int) string {
	if n == 1 {
		return "1 child"
	}
	return fmt.Sprintf("%d children", n)
}
