package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// WeeklySummary is the read-only dashboard view of a family's week
type WeeklySummary struct {
	FamilyID           int64
	Policy             string
	WeekStart          time.Time
	WeekEnd            time.Time
	FamilySize         int
	UniqueSignIns      int
	WeeklyCharges      decimal.Decimal
	WeeklyCap          decimal.Decimal
	RemainingAllowance decimal.Decimal
	Threshold          int
	NextChargeAmount   decimal.Decimal
	NextChargeReason   string
	CurrentBalance     decimal.Decimal
	ActivePasses       []Pass
}
