package pricing

import (
	"fmt"
	"time"

	// Embedded zone database so the operational timezone loads on hosts without tzdata
	_ "time/tzdata"
)

// DefaultTimezone is the operational timezone of the event
const DefaultTimezone = "Australia/Sydney"

// Clock supplies the current instant
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock
var SystemClock Clock = ClockFunc(time.Now)

// LoadLocation resolves the operational timezone, defaulting to DefaultTimezone
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}

// Day returns the calendar day of t as observed in loc, represented as
// midnight UTC so days compare and format without zone surprises.
func Day(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TuesdayWeek returns the Tuesday to Monday week containing day.
// Monday is the last day of the week that began the previous Tuesday.
func TuesdayWeek(day time.Time) (start, end time.Time) {
	sinceTuesday := (int(day.Weekday()) + 5) % 7
	start = day.AddDate(0, 0, -sinceTuesday)
	return start, start.AddDate(0, 0, 6)
}
