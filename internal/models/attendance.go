package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AttendanceStatus is the ordered progression of a child through the day
type AttendanceStatus int

const (
	StatusNotArrived AttendanceStatus = iota
	StatusCheckedIn
	StatusInClass
	StatusPickedUp
)

var statusNames = [...]string{"not_arrived", "checked_in", "in_class", "picked_up"}

func (s AttendanceStatus) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("AttendanceStatus(%d)", int(s))
	}
	return statusNames[s]
}

// ParseAttendanceStatus converts a stored status name back to its value
func ParseAttendanceStatus(s string) (AttendanceStatus, error) {
	for i, name := range statusNames {
		if name == s {
			return AttendanceStatus(i), nil
		}
	}
	return 0, fmt.Errorf("unknown attendance status %q", s)
}

// CanAdvanceTo reports whether a record may move to next. Status never goes backwards.
func (s AttendanceStatus) CanAdvanceTo(next AttendanceStatus) bool {
	return next >= s && int(next) < len(statusNames)
}

// Attendance is the single check-in fact for a child on a calendar day.
// ChargeAmount and ChargeReason are frozen when the record is created.
type Attendance struct {
	ID           int64
	ChildID      int64
	FamilyID     int64
	Date         time.Time // calendar day, see pricing.Day
	CheckInTime  time.Time
	CheckOutTime *time.Time
	Status       AttendanceStatus
	ChargeAmount decimal.Decimal
	ChargeReason string
	CheckedInBy  string
	CheckedOutBy string
	Notes        string
}

// IsCheckedOut reports whether the child has been picked up
func (a Attendance) IsCheckedOut() bool {
	return a.CheckOutTime != nil
}

// DateKey formats a calendar day the way it is stored
func DateKey(day time.Time) string {
	return day.Format(time.DateOnly)
}

// ParseDateKey parses a stored calendar day
func ParseDateKey(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, s)
}
