package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReasonNoChargeToday is returned on days the flat policy does not charge
const ReasonNoChargeToday = "No charge today"

// Flat charges a fixed rate per child per day on charge days only, for at
// most MaxChargedChildren children per family per day. It has no weekly cap.
type Flat struct {
	Rate               decimal.Decimal
	MaxChargedChildren int
	ChargeDays         map[time.Weekday]bool
}

var _ Policy = (*Flat)(nil)

// NewFlat charges 6.00 per child, two children per day, Wednesday to Saturday
func NewFlat() *Flat {
	return &Flat{
		Rate:               decimal.RequireFromString("6.00"),
		MaxChargedChildren: 2,
		ChargeDays: map[time.Weekday]bool{
			time.Wednesday: true,
			time.Thursday:  true,
			time.Friday:    true,
			time.Saturday:  true,
		},
	}
}

func (f *Flat) Name() string { return NameFlat }

// Window is the day itself; the flat policy never looks back
func (f *Flat) Window(day time.Time) (time.Time, time.Time) {
	return day, day
}

func (f *Flat) Calculate(h History) Charge {
	if alreadyCheckedIn(h) {
		return Free(ReasonAlreadyCheckedIn)
	}
	if !f.ChargeDays[h.Date.Weekday()] {
		return Free(ReasonNoChargeToday)
	}

	charged := 0
	for _, rec := range h.Today {
		if !rec.ChargeAmount.IsZero() {
			charged++
		}
	}
	if charged >= f.MaxChargedChildren {
		return Free(ReasonDailyCapReached + " (" + childrenLabel(f.MaxChargedChildren) + ")")
	}

	return Charge{Amount: f.Rate, Reason: "Standard daily rate (per child)"}
}
