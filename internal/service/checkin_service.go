package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"summerfest/internal/database"
	"summerfest/internal/metrics"
	"summerfest/internal/models"
	"summerfest/internal/pricing"
	"summerfest/internal/repository"
)

// CheckInRequest identifies the child arriving. Zero Date and At mean now in
// the operational timezone.
type CheckInRequest struct {
	ChildID     int64
	Date        time.Time
	At          time.Time
	CheckedInBy string
	Notes       string
}

// CheckInResult is what the front desk displays after a check-in
type CheckInResult struct {
	Record  models.Attendance
	Amount  decimal.Decimal
	Reason  string
	Debit   *models.LedgerTransaction
	Balance decimal.Decimal
}

// CheckInOptions configures the orchestrator
type CheckInOptions struct {
	Location *time.Location
	Clock    pricing.Clock
	// StrictFamilyCaps serializes check-ins per family so concurrent siblings
	// cannot both be charged under a cap neither alone would exceed
	StrictFamilyCaps bool
	Metrics          *metrics.Metrics
}

// CheckInService records arrivals, prices them and charges the family ledger
// in a single transaction.
type CheckInService struct {
	db         *database.DB
	children   *repository.ChildRepository
	families   *repository.FamilyRepository
	attendance *repository.AttendanceRepository
	ledger     *LedgerService
	policy     pricing.Policy
	loc        *time.Location
	clock      pricing.Clock
	locks      *familyLocks
	metrics    *metrics.Metrics
}

// NewCheckInService creates a new check-in service
func NewCheckInService(db *database.DB, children *repository.ChildRepository, families *repository.FamilyRepository,
	attendance *repository.AttendanceRepository, ledger *LedgerService, policy pricing.Policy, opts CheckInOptions) *CheckInService {
	s := &CheckInService{
		db:         db,
		children:   children,
		families:   families,
		attendance: attendance,
		ledger:     ledger,
		policy:     policy,
		loc:        opts.Location,
		clock:      opts.Clock,
		metrics:    opts.Metrics,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.clock == nil {
		s.clock = pricing.SystemClock
	}
	if opts.StrictFamilyCaps {
		s.locks = newFamilyLocks()
	}
	return s
}

// Policy returns the active pricing policy
func (s *CheckInService) Policy() pricing.Policy {
	return s.policy
}

// Today returns the current calendar day in the operational timezone
func (s *CheckInService) Today() time.Time {
	return pricing.Day(s.clock.Now(), s.loc)
}

// ProcessCheckIn prices and records a child's arrival and debits the family.
// A second check-in for the same child and day fails with a
// *DuplicateCheckInError holding the existing record; nothing is charged.
func (s *CheckInService) ProcessCheckIn(ctx context.Context, req CheckInRequest) (*CheckInResult, error) {
	at := req.At
	if at.IsZero() {
		at = s.clock.Now()
	}
	day := s.dayOf(req.Date, at)

	child, err := s.activeChild(ctx, req.ChildID)
	if err != nil {
		s.metrics.CheckIn(s.policy.Name(), metrics.OutcomeError, decimal.Zero)
		return nil, err
	}

	if s.locks != nil {
		unlock := s.locks.lock(child.FamilyID)
		defer unlock()
	}

	result := &CheckInResult{}
	var before, after decimal.Decimal
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		attendance := s.attendance.WithTx(tx)

		existing, err := attendance.GetAttendance(ctx, child.ID, day)
		if err != nil {
			return err
		}
		if existing != nil {
			return &DuplicateCheckInError{Existing: existing}
		}

		charge, err := s.charge(ctx, s.children.WithTx(tx), attendance, child, day)
		if err != nil {
			return err
		}

		result.Record = models.Attendance{
			ChildID:      child.ID,
			FamilyID:     child.FamilyID,
			Date:         day,
			CheckInTime:  at,
			Status:       models.StatusCheckedIn,
			ChargeAmount: charge.Amount,
			ChargeReason: charge.Reason,
			CheckedInBy:  req.CheckedInBy,
			Notes:        req.Notes,
		}
		if err := attendance.CreateAttendance(ctx, &result.Record); err != nil {
			if errors.Is(err, database.ErrUniqueViolation) {
				return &DuplicateCheckInError{}
			}
			return err
		}
		result.Amount = charge.Amount
		result.Reason = charge.Reason

		if !charge.Amount.IsPositive() {
			return nil
		}
		description := fmt.Sprintf("Check-in: %s on %s (%s)", child.FullName(), models.DateKey(day), charge.Reason)
		result.Debit, before, after, err = s.ledger.debit(ctx, s.ledger.ledger.WithTx(tx), child.FamilyID, charge.Amount, description)
		return err
	})

	var dup *DuplicateCheckInError
	if errors.As(err, &dup) {
		if dup.Existing == nil {
			// Lost the insert race; the winner has committed by now
			existing, lookupErr := s.attendance.GetAttendance(ctx, child.ID, day)
			if lookupErr != nil {
				slog.Warn("existing attendance lookup after duplicate check-in failed",
					"child_id", child.ID, "date", models.DateKey(day), "error", lookupErr)
			}
			dup.Existing = existing
		}
		s.metrics.CheckIn(s.policy.Name(), metrics.OutcomeDuplicate, decimal.Zero)
		slog.Info("duplicate check-in", "child_id", child.ID, "family_id", child.FamilyID, "date", models.DateKey(day))
		return nil, dup
	}
	if err != nil {
		s.metrics.CheckIn(s.policy.Name(), metrics.OutcomeError, decimal.Zero)
		return nil, fmt.Errorf("check-in failed: %w", err)
	}

	if result.Debit != nil {
		result.Balance = after
		s.metrics.CheckIn(s.policy.Name(), metrics.OutcomeCharged, result.Amount)
		s.ledger.afterDebit(ctx, child.FamilyID, before, after)
	} else {
		if result.Balance, err = s.ledger.Balance(ctx, child.FamilyID); err != nil {
			slog.Warn("balance lookup after check-in failed", "family_id", child.FamilyID, "error", err)
		}
		s.metrics.CheckIn(s.policy.Name(), metrics.OutcomeFree, decimal.Zero)
	}

	slog.Info("child checked in",
		"child_id", child.ID,
		"family_id", child.FamilyID,
		"date", models.DateKey(day),
		"amount", result.Amount.StringFixed(2),
		"reason", result.Reason,
		"policy", s.policy.Name(),
	)
	return result, nil
}

// CalculateCharge previews what checking in the child on date would cost.
// A zero date means today. Nothing is written.
func (s *CheckInService) CalculateCharge(ctx context.Context, childID int64, date time.Time) (pricing.Charge, error) {
	child, err := s.activeChild(ctx, childID)
	if err != nil {
		return pricing.Charge{}, err
	}
	return s.charge(ctx, s.children, s.attendance, child, s.dayOf(date, s.clock.Now()))
}

// charge loads the family's history for day and asks the policy
func (s *CheckInService) charge(ctx context.Context, children *repository.ChildRepository,
	attendance *repository.AttendanceRepository, child *models.Child, day time.Time) (pricing.Charge, error) {
	familySize, err := children.CountFamilyChildren(ctx, child.FamilyID)
	if err != nil {
		return pricing.Charge{}, err
	}

	start, end := s.policy.Window(day)
	window, err := attendance.GetFamilyAttendance(ctx, child.FamilyID, start, end)
	if err != nil {
		return pricing.Charge{}, err
	}

	history := pricing.History{
		ChildID:    child.ID,
		Date:       day,
		FamilySize: familySize,
		Window:     window,
	}
	for _, rec := range window {
		if rec.Date.Equal(day) {
			history.Today = append(history.Today, rec)
		}
	}
	return s.policy.Calculate(history), nil
}

// CheckOut records the child's pick-up for date (zero means today)
func (s *CheckInService) CheckOut(ctx context.Context, childID int64, date time.Time, by, notes string) (*models.Attendance, error) {
	now := s.clock.Now()
	day := s.dayOf(date, now)

	rec, err := s.attendance.GetAttendance(ctx, childID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance: %w", err)
	}
	if rec == nil {
		return nil, ErrNotCheckedIn
	}
	if rec.IsCheckedOut() {
		return nil, ErrAlreadyCheckedOut
	}

	if notes == "" {
		notes = rec.Notes
	}
	err = s.attendance.CheckOut(ctx, rec.ID, now, by, notes)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAlreadyCheckedOut
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check out: %w", err)
	}

	rec.CheckOutTime = &now
	rec.CheckedOutBy = by
	rec.Status = models.StatusPickedUp
	rec.Notes = notes

	slog.Info("child checked out", "child_id", childID, "family_id", rec.FamilyID, "date", models.DateKey(day))
	return rec, nil
}

// ChangeStatus moves a record forward through the day's progression.
// Moving to picked_up is a check-out.
func (s *CheckInService) ChangeStatus(ctx context.Context, childID int64, date time.Time, status models.AttendanceStatus, by string) (*models.Attendance, error) {
	day := s.dayOf(date, s.clock.Now())

	rec, err := s.attendance.GetAttendance(ctx, childID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance: %w", err)
	}
	if rec == nil {
		return nil, ErrNotCheckedIn
	}
	if !rec.Status.CanAdvanceTo(status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidStatus, rec.Status, status)
	}
	if rec.Status == status {
		return rec, nil
	}
	if status == models.StatusPickedUp {
		return s.CheckOut(ctx, childID, day, by, "")
	}

	if err := s.attendance.UpdateStatus(ctx, rec.ID, status); err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}
	rec.Status = status
	return rec, nil
}

func (s *CheckInService) activeChild(ctx context.Context, childID int64) (*models.Child, error) {
	child, err := s.children.GetChildByID(ctx, childID)
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	if child == nil || child.IsDeleted() {
		return nil, ErrUnknownChild
	}

	family, err := s.families.GetFamilyByID(ctx, child.FamilyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, ErrUnknownFamily
	}
	return child, nil
}

// dayOf normalizes an explicit date, or derives the operational day of at
func (s *CheckInService) dayOf(date, at time.Time) time.Time {
	if date.IsZero() {
		return pricing.Day(at, s.loc)
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// familyLocks hands out one mutex per family, dropping it when unused
type familyLocks struct {
	mu    sync.Mutex
	locks map[int64]*familyLock
}

type familyLock struct {
	sync.Mutex
	refs int
}

func newFamilyLocks() *familyLocks {
	return &familyLocks{locks: make(map[int64]*familyLock)}
}

func (l *familyLocks) lock(familyID int64) (unlock func()) {
	l.mu.Lock()
	fl, ok := l.locks[familyID]
	if !ok {
		fl = &familyLock{}
		l.locks[familyID] = fl
	}
	fl.refs++
	l.mu.Unlock()

	fl.Lock()
	return func() {
		fl.Unlock()
		l.mu.Lock()
		fl.refs--
		if fl.refs == 0 {
			delete(l.locks, familyID)
		}
		l.mu.Unlock()
	}
}
