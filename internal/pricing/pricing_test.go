package pricing

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"summerfest/internal/models"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := models.ParseDateKey(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

func rec(t *testing.T, childID int64, date, amount string) models.Attendance {
	t.Helper()
	return models.Attendance{
		ChildID:      childID,
		FamilyID:     1,
		Date:         day(t, date),
		Status:       models.StatusCheckedIn,
		ChargeAmount: decimal.RequireFromString(amount),
	}
}

// history splits records into Today and Window the way the check-in service loads them
func history(t *testing.T, p Policy, childID int64, date string, familySize int, records ...models.Attendance) History {
	t.Helper()
	d := day(t, date)
	start, end := p.Window(d)
	h := History{ChildID: childID, Date: d, FamilySize: familySize}
	for _, r := range records {
		if r.Date.Equal(d) {
			h.Today = append(h.Today, r)
		}
		if !r.Date.Before(start) && !r.Date.After(end) {
			h.Window = append(h.Window, r)
		}
	}
	return h
}

func assertCharge(t *testing.T, got Charge, amount, reasonContains string) {
	t.Helper()
	if !got.Amount.Equal(decimal.RequireFromString(amount)) {
		t.Errorf("amount = %s, want %s (reason %q)", got.Amount.StringFixed(2), amount, got.Reason)
	}
	if !strings.Contains(got.Reason, reasonContains) {
		t.Errorf("reason = %q, want it to contain %q", got.Reason, reasonContains)
	}
}

func TestTuesdayWeek(t *testing.T) {
	tests := []struct {
		date      string
		wantStart string
		wantEnd   string
	}{
		{"2025-01-07", "2025-01-07", "2025-01-13"}, // Tuesday starts the week
		{"2025-01-08", "2025-01-07", "2025-01-13"},
		{"2025-01-11", "2025-01-07", "2025-01-13"},
		{"2025-01-12", "2025-01-07", "2025-01-13"},
		{"2025-01-13", "2025-01-07", "2025-01-13"}, // Monday ends it
		{"2025-01-14", "2025-01-14", "2025-01-20"},
		{"2024-12-31", "2024-12-31", "2025-01-06"}, // crosses the year
		{"2025-01-01", "2024-12-31", "2025-01-06"},
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			start, end := TuesdayWeek(day(t, tt.date))
			if got := models.DateKey(start); got != tt.wantStart {
				t.Errorf("start = %s, want %s", got, tt.wantStart)
			}
			if got := models.DateKey(end); got != tt.wantEnd {
				t.Errorf("end = %s, want %s", got, tt.wantEnd)
			}
		})
	}
}

func TestDay(t *testing.T) {
	loc, err := LoadLocation("Australia/Sydney")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}

	// 2025-01-07 23:30 UTC is already Wednesday morning in Sydney
	instant := time.Date(2025, 1, 7, 23, 30, 0, 0, time.UTC)
	if got := models.DateKey(Day(instant, loc)); got != "2025-01-08" {
		t.Errorf("Day() = %s, want 2025-01-08", got)
	}
	if got := models.DateKey(Day(instant, time.UTC)); got != "2025-01-07" {
		t.Errorf("Day() in UTC = %s, want 2025-01-07", got)
	}

	if _, err := LoadLocation("Not/AZone"); err == nil {
		t.Error("LoadLocation() expected error for unknown zone")
	}
	if loc, err := LoadLocation(""); err != nil || loc.String() != DefaultTimezone {
		t.Errorf("LoadLocation(\"\") = %v, %v; want %s", loc, err, DefaultTimezone)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"graduated", NameGraduated, false},
		{"", NameGraduated, false},
		{"FLAT", NameFlat, false},
		{"sliding", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && p.Name() != tt.want {
				t.Errorf("Name() = %s, want %s", p.Name(), tt.want)
			}
		})
	}
}

func TestGraduatedSingleChildLadder(t *testing.T) {
	g := NewGraduated()

	// One child, Tuesday to Saturday of one week
	var records []models.Attendance
	steps := []struct {
		date   string
		amount string
		reason string
	}{
		{"2025-01-07", "6.00", "Standard"},
		{"2025-01-08", "6.00", "Standard"},
		{"2025-01-09", "6.00", "Standard"},
		{"2025-01-10", "2.00", "Reduced rate"},
		{"2025-01-11", "0.00", "Free"},
	}

	for _, s := range steps {
		got := g.Calculate(history(t, g, 1, s.date, 1, records...))
		assertCharge(t, got, s.amount, s.reason)
		records = append(records, rec(t, 1, s.date, got.Amount.String()))
	}

	total := sumCharges(records, nil)
	if !total.Equal(decimal.RequireFromString("20.00")) {
		t.Errorf("weekly total = %s, want 20.00", total)
	}
}

func TestGraduatedMultiChildThreshold(t *testing.T) {
	g := NewGraduated()

	var records []models.Attendance
	// Both children on Tuesday, Wednesday and Thursday: six standard sign-ins
	for _, date := range []string{"2025-01-07", "2025-01-08", "2025-01-09"} {
		for _, child := range []int64{1, 2} {
			got := g.Calculate(history(t, g, child, date, 2, records...))
			assertCharge(t, got, "6.00", "2 children")
			records = append(records, rec(t, child, date, got.Amount.String()))
		}
	}

	got := g.Calculate(history(t, g, 1, "2025-01-10", 2, records...))
	assertCharge(t, got, "4.00", "Reduced rate")
	records = append(records, rec(t, 1, "2025-01-10", got.Amount.String()))

	// Same-day sibling is still priced at the reduced rate, which would cross the cap
	got = g.Calculate(history(t, g, 2, "2025-01-10", 2, records...))
	assertCharge(t, got, "0.00", "Weekly family cap reached")
	records = append(records, rec(t, 2, "2025-01-10", got.Amount.String()))

	// Past the ladder on a later day
	got = g.Calculate(history(t, g, 1, "2025-01-11", 2, records...))
	assertCharge(t, got, "0.00", "Free")
}

func TestGraduatedSameDaySignInsDoNotAdvanceLadder(t *testing.T) {
	g := NewGraduated()
	records := []models.Attendance{rec(t, 1, "2025-01-07", "6.00")}

	// A sibling on the same day still pays the first-sign-in rate
	got := g.Calculate(history(t, g, 2, "2025-01-07", 2, records...))
	assertCharge(t, got, "6.00", "sign-in 1 this week")
}

func TestGraduatedAlreadyCheckedIn(t *testing.T) {
	g := NewGraduated()
	records := []models.Attendance{rec(t, 1, "2025-01-08", "6.00")}

	got := g.Calculate(history(t, g, 1, "2025-01-08", 1, records...))
	assertCharge(t, got, "0.00", ReasonAlreadyCheckedIn)
}

func TestGraduatedDailyCap(t *testing.T) {
	g := NewGraduated()
	records := []models.Attendance{
		rec(t, 1, "2025-01-08", "6.00"),
		rec(t, 2, "2025-01-08", "4.00"),
	}

	got := g.Calculate(history(t, g, 3, "2025-01-08", 3, records...))
	assertCharge(t, got, "2.00", "(capped at daily family limit)")

	records = append(records, rec(t, 3, "2025-01-08", "2.00"))
	got = g.Calculate(history(t, g, 4, "2025-01-08", 4, records...))
	assertCharge(t, got, "0.00", ReasonDailyCapReached)
}

func TestGraduatedWeeklyCap(t *testing.T) {
	g := NewGraduated()

	tests := []struct {
		name    string
		records []models.Attendance
		size    int
		amount  string
		reason  string
	}{
		{
			name: "clipped to single child cap",
			records: []models.Attendance{
				rec(t, 1, "2025-01-07", "8.00"),
				rec(t, 1, "2025-01-08", "8.00"),
			},
			size:   1,
			amount: "4.00",
			reason: "(capped at weekly family limit)",
		},
		{
			name: "single child cap reached",
			records: []models.Attendance{
				rec(t, 1, "2025-01-07", "10.00"),
				rec(t, 1, "2025-01-08", "10.00"),
			},
			size:   1,
			amount: "0.00",
			reason: ReasonWeeklyCapReached,
		},
		{
			name: "two attending children lift the cap",
			records: []models.Attendance{
				rec(t, 1, "2025-01-07", "10.00"),
				rec(t, 2, "2025-01-08", "10.00"),
			},
			size:   1,
			amount: "6.00",
			reason: "Standard",
		},
		{
			name: "family cap reached",
			records: []models.Attendance{
				rec(t, 1, "2025-01-07", "12.00"),
				rec(t, 2, "2025-01-07", "12.00"),
				rec(t, 1, "2025-01-08", "8.00"),
				rec(t, 2, "2025-01-08", "8.00"),
			},
			size:   2,
			amount: "0.00",
			reason: ReasonWeeklyCapReached,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.Calculate(history(t, g, 1, "2025-01-09", tt.size, tt.records...))
			assertCharge(t, got, tt.amount, tt.reason)
		})
	}
}

func TestGraduatedWeeklyReset(t *testing.T) {
	g := NewGraduated()

	var records []models.Attendance
	for _, date := range []string{"2025-01-07", "2025-01-08", "2025-01-09", "2025-01-10", "2025-01-11", "2025-01-13"} {
		got := g.Calculate(history(t, g, 1, date, 1, records...))
		records = append(records, rec(t, 1, date, got.Amount.String()))
	}

	// Monday closes the old week for free; Tuesday starts over at the standard rate
	got := g.Calculate(history(t, g, 1, "2025-01-14", 1, records...))
	assertCharge(t, got, "6.00", "sign-in 1 this week")
}

func TestGraduatedIgnoresRecordsOutsideWeek(t *testing.T) {
	g := NewGraduated()
	d := day(t, "2025-01-08")

	// Records from last week passed in by mistake must not count
	h := History{
		ChildID:    1,
		Date:       d,
		FamilySize: 1,
		Window: []models.Attendance{
			rec(t, 1, "2025-01-02", "6.00"),
			rec(t, 1, "2025-01-03", "6.00"),
			rec(t, 1, "2025-01-04", "6.00"),
		},
	}
	assertCharge(t, g.Calculate(h), "6.00", "sign-in 1 this week")
}

func TestGraduatedWeeklyCapValue(t *testing.T) {
	g := NewGraduated()
	tests := []struct {
		name string
		size int
		week []models.Attendance
		want string
	}{
		{"single child", 1, []models.Attendance{rec(t, 1, "2025-01-07", "6.00")}, "20"},
		{"registered siblings", 2, nil, "40"},
		{"two attended", 1, []models.Attendance{rec(t, 1, "2025-01-07", "6.00"), rec(t, 2, "2025-01-07", "6.00")}, "40"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.WeeklyCap(tt.size, tt.week); !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("WeeklyCap() = %s, want %s", got, tt.want)
			}
		})
	}
	if g.Threshold(1) != 3 || g.Threshold(3) != 6 {
		t.Errorf("Threshold() = %d/%d, want 3/6", g.Threshold(1), g.Threshold(3))
	}
}

func TestFlatChargeDays(t *testing.T) {
	f := NewFlat()

	// Three consecutive weeks, every day, for several family sizes
	start := day(t, "2025-01-05") // Sunday
	for i := 0; i < 21; i++ {
		d := start.AddDate(0, 0, i)
		for _, size := range []int{1, 2, 5} {
			h := History{ChildID: 1, Date: d, FamilySize: size}
			got := f.Calculate(h)

			switch d.Weekday() {
			case time.Sunday, time.Monday, time.Tuesday:
				if !got.Amount.IsZero() || got.Reason != ReasonNoChargeToday {
					t.Errorf("%s (%s) size %d = %s %q, want free", models.DateKey(d), d.Weekday(), size, got.Amount, got.Reason)
				}
			default:
				if !got.Amount.Equal(decimal.RequireFromString("6.00")) {
					t.Errorf("%s (%s) size %d = %s, want 6.00", models.DateKey(d), d.Weekday(), size, got.Amount)
				}
			}
		}
	}
}

func TestFlatDailyChildCap(t *testing.T) {
	f := NewFlat()

	var records []models.Attendance
	want := []string{"6.00", "6.00", "0.00", "0.00"}
	for i, amount := range want {
		child := int64(i + 1)
		got := f.Calculate(history(t, f, child, "2025-01-08", 4, records...))
		assertCharge(t, got, amount, "")
		records = append(records, rec(t, child, "2025-01-08", got.Amount.String()))
	}

	got := f.Calculate(history(t, f, 5, "2025-01-08", 5, records...))
	assertCharge(t, got, "0.00", "Daily family cap reached (2 children)")
}

func TestFlatAlreadyCheckedIn(t *testing.T) {
	f := NewFlat()
	records := []models.Attendance{rec(t, 1, "2025-01-09", "6.00")}

	got := f.Calculate(history(t, f, 1, "2025-01-09", 1, records...))
	assertCharge(t, got, "0.00", ReasonAlreadyCheckedIn)
}

// Single child family checking in Tuesday to Monday with a 50.00 opening balance
func TestGraduatedWeekBalance(t *testing.T) {
	g := NewGraduated()
	balance := decimal.RequireFromString("50.00")

	dates := []string{"2025-01-07", "2025-01-08", "2025-01-09", "2025-01-10", "2025-01-11"}
	wantBalance := []string{"44", "38", "32", "30", "30"}

	var records []models.Attendance
	for i, date := range dates {
		got := g.Calculate(history(t, g, 1, date, 1, records...))
		records = append(records, rec(t, 1, date, got.Amount.String()))
		balance = balance.Sub(got.Amount)
		if !balance.Equal(decimal.RequireFromString(wantBalance[i])) {
			t.Errorf("%s: balance = %s, want %s", date, balance, wantBalance[i])
		}
	}
}
