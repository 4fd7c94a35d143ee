package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"summerfest/internal/models"
	"summerfest/internal/pricing"
	"summerfest/internal/repository"
)

// ReasonNoChildren is the next-charge reason for a family with no active children
const ReasonNoChildren = "No children"

// SummaryService builds read-only dashboard views of a family's week
type SummaryService struct {
	families   *repository.FamilyRepository
	children   *repository.ChildRepository
	attendance *repository.AttendanceRepository
	checkins   *CheckInService
	ledger     *LedgerService
	passes     *PassService
}

// NewSummaryService creates a new summary service
func NewSummaryService(families *repository.FamilyRepository, children *repository.ChildRepository,
	attendance *repository.AttendanceRepository, checkins *CheckInService, ledger *LedgerService, passes *PassService) *SummaryService {
	return &SummaryService{
		families:   families,
		children:   children,
		attendance: attendance,
		checkins:   checkins,
		ledger:     ledger,
		passes:     passes,
	}
}

// GetFamilyWeeklySummary summarizes the Tuesday to Monday week containing date
// (zero means today). Weekly cap, remaining allowance and threshold are zero
// under a policy without a weekly cap.
func (s *SummaryService) GetFamilyWeeklySummary(ctx context.Context, familyID int64, date time.Time) (*models.WeeklySummary, error) {
	family, err := s.families.GetFamilyByID(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, ErrUnknownFamily
	}

	day := s.checkins.dayOf(date, s.checkins.clock.Now())
	weekStart, weekEnd := pricing.TuesdayWeek(day)

	children, err := s.children.GetFamilyChildren(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get children: %w", err)
	}
	week, err := s.attendance.GetFamilyAttendance(ctx, familyID, weekStart, weekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance: %w", err)
	}

	policy := s.checkins.Policy()
	summary := &models.WeeklySummary{
		FamilyID:           familyID,
		Policy:             policy.Name(),
		WeekStart:          weekStart,
		WeekEnd:            weekEnd,
		FamilySize:         len(children),
		UniqueSignIns:      uniqueSignIns(week),
		WeeklyCharges:      decimal.Zero,
		WeeklyCap:          decimal.Zero,
		RemainingAllowance: decimal.Zero,
		NextChargeAmount:   decimal.Zero,
		NextChargeReason:   ReasonNoChildren,
	}
	for _, rec := range week {
		summary.WeeklyCharges = summary.WeeklyCharges.Add(rec.ChargeAmount)
	}

	if limiter, ok := policy.(pricing.WeeklyLimiter); ok {
		summary.WeeklyCap = limiter.WeeklyCap(summary.FamilySize, week)
		summary.RemainingAllowance = decimal.Max(decimal.Zero, summary.WeeklyCap.Sub(summary.WeeklyCharges))
		summary.Threshold = limiter.Threshold(summary.FamilySize)
	}

	if len(children) > 0 {
		next, err := s.checkins.CalculateCharge(ctx, children[0].ID, day)
		if err != nil {
			return nil, err
		}
		summary.NextChargeAmount = next.Amount
		summary.NextChargeReason = next.Reason
	}

	if summary.CurrentBalance, err = s.ledger.Balance(ctx, familyID); err != nil {
		return nil, err
	}
	if summary.ActivePasses, err = s.passes.ValidPasses(ctx, familyID, day); err != nil {
		return nil, err
	}

	return summary, nil
}

func uniqueSignIns(records []models.Attendance) int {
	type signIn struct {
		child int64
		day   string
	}
	seen := make(map[signIn]struct{}, len(records))
	for _, rec := range records {
		seen[signIn{rec.ChildID, models.DateKey(rec.Date)}] = struct{}{}
	}
	return len(seen)
}
