package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"summerfest/internal/database"
	"summerfest/internal/models"
	"summerfest/internal/repository"
)

// PassService sells date-ranged passes. Passes are paid through the gateway
// and never touch the check-in ledger.
type PassService struct {
	passes   *repository.PassRepository
	families *repository.FamilyRepository
}

// NewPassService creates a new pass service
func NewPassService(passes *repository.PassRepository, families *repository.FamilyRepository) *PassService {
	return &PassService{passes: passes, families: families}
}

// PassWindow returns the days a pass bought for start covers. Weekly passes
// run Monday to Friday: from start when it is a weekday, otherwise the
// following week.
func PassWindow(passType models.PassType, start time.Time) (from, to time.Time) {
	if !passType.IsWeekly() {
		return start, start
	}
	switch start.Weekday() {
	case time.Saturday:
		start = start.AddDate(0, 0, 2)
	case time.Sunday:
		start = start.AddDate(0, 0, 1)
	}
	return start, start.AddDate(0, 0, int(time.Friday-start.Weekday()))
}

// Purchase records a pass. A gateway reference already used returns the
// original pass with ErrPaymentAlreadyRecorded.
func (s *PassService) Purchase(ctx context.Context, familyID int64, passType models.PassType, start time.Time, reference string) (*models.Pass, error) {
	price, ok := passType.Price()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPassType, passType)
	}

	family, err := s.families.GetFamilyByID(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, ErrUnknownFamily
	}

	if reference != "" {
		existing, err := s.passes.GetPassByExternalRef(ctx, reference)
		if err != nil {
			return nil, fmt.Errorf("failed to check pass reference: %w", err)
		}
		if existing != nil {
			return existing, ErrPaymentAlreadyRecorded
		}
	}

	from, to := PassWindow(passType, start)
	pass := &models.Pass{
		FamilyID:   familyID,
		Type:       passType,
		ValidFrom:  from,
		ValidTo:    to,
		AmountPaid: price,
	}
	if reference != "" {
		pass.ExternalRef = &reference
	}

	if err := s.passes.CreatePass(ctx, pass); err != nil {
		if errors.Is(err, database.ErrUniqueViolation) && reference != "" {
			if existing, _ := s.passes.GetPassByExternalRef(ctx, reference); existing != nil {
				return existing, ErrPaymentAlreadyRecorded
			}
		}
		return nil, fmt.Errorf("failed to purchase pass: %w", err)
	}

	slog.Info("pass purchased",
		"family_id", familyID,
		"pass_type", passType,
		"valid_from", models.DateKey(from),
		"valid_to", models.DateKey(to),
	)
	return pass, nil
}

// ValidPasses lists a family's passes covering day
func (s *PassService) ValidPasses(ctx context.Context, familyID int64, day time.Time) ([]models.Pass, error) {
	passes, err := s.passes.GetValidPasses(ctx, familyID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to get passes: %w", err)
	}
	return passes, nil
}
