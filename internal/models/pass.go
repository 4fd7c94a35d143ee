package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PassType is a prepaid, date-ranged entitlement
type PassType string

const (
	PassDailyChild   PassType = "daily_child"
	PassDailyFamily  PassType = "daily_family"
	PassWeeklyChild  PassType = "weekly_child"
	PassWeeklyFamily PassType = "weekly_family"
)

var passPrices = map[PassType]decimal.Decimal{
	PassDailyChild:   decimal.RequireFromString("6.00"),
	PassDailyFamily:  decimal.RequireFromString("12.00"),
	PassWeeklyChild:  decimal.RequireFromString("20.00"),
	PassWeeklyFamily: decimal.RequireFromString("40.00"),
}

// Price returns the pass price and whether the type is known
func (t PassType) Price() (decimal.Decimal, bool) {
	p, ok := passPrices[t]
	return p, ok
}

// IsFamily reports whether the pass covers every child in the family
func (t PassType) IsFamily() bool {
	return t == PassDailyFamily || t == PassWeeklyFamily
}

// IsWeekly reports whether the pass spans a week rather than a day
func (t PassType) IsWeekly() bool {
	return t == PassWeeklyChild || t == PassWeeklyFamily
}

// Pass is a purchased pass valid from ValidFrom through ValidTo inclusive
type Pass struct {
	ID          int64
	FamilyID    int64
	Type        PassType
	ValidFrom   time.Time
	ValidTo     time.Time
	AmountPaid  decimal.Decimal
	ExternalRef *string
	CreatedAt   time.Time
}

// ValidOn reports whether the pass covers the given calendar day
func (p Pass) ValidOn(day time.Time) bool {
	return !day.Before(p.ValidFrom) && !day.After(p.ValidTo)
}
