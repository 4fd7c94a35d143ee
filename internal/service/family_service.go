package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"summerfest/internal/badge"
	"summerfest/internal/database"
	"summerfest/internal/models"
	"summerfest/internal/repository"
	"summerfest/internal/validation"
)

// FamilyService handles family and child registration
type FamilyService struct {
	db       *database.DB
	families *repository.FamilyRepository
	children *repository.ChildRepository
	ledger   *repository.LedgerRepository
}

// NewFamilyService creates a new family service
func NewFamilyService(db *database.DB, families *repository.FamilyRepository, children *repository.ChildRepository,
	ledger *repository.LedgerRepository) *FamilyService {
	return &FamilyService{
		db:       db,
		families: families,
		children: children,
		ledger:   ledger,
	}
}

// RegisterFamily creates a family together with its empty ledger account
func (s *FamilyService) RegisterFamily(ctx context.Context, family models.Family) (*models.Family, error) {
	family.Name = strings.TrimSpace(family.Name)
	family.Email = strings.TrimSpace(family.Email)
	if err := validation.ValidateFamily(family); err != nil {
		return nil, err
	}

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		if err := s.families.WithTx(tx).CreateFamily(ctx, &family); err != nil {
			return err
		}
		_, err := s.ledger.WithTx(tx).GetOrCreateAccount(ctx, family.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register family: %w", err)
	}

	slog.Info("family registered", "family_id", family.ID)
	return &family, nil
}

// GetFamily retrieves a family by ID
func (s *FamilyService) GetFamily(ctx context.Context, familyID int64) (*models.Family, error) {
	family, err := s.families.GetFamilyByID(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, ErrUnknownFamily
	}
	return family, nil
}

// GetFamilyWithChildren retrieves a family and its active children
func (s *FamilyService) GetFamilyWithChildren(ctx context.Context, familyID int64) (*models.FamilyWithChildren, error) {
	family, err := s.GetFamily(ctx, familyID)
	if err != nil {
		return nil, err
	}
	children, err := s.children.GetFamilyChildren(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family children: %w", err)
	}
	return &models.FamilyWithChildren{Family: *family, Children: children}, nil
}

// ListFamilies retrieves every family
func (s *FamilyService) ListFamilies(ctx context.Context) ([]models.Family, error) {
	families, err := s.families.ListFamilies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list families: %w", err)
	}
	return families, nil
}

// UpdateFamily changes a family's contact details
func (s *FamilyService) UpdateFamily(ctx context.Context, family models.Family) (*models.Family, error) {
	existing, err := s.GetFamily(ctx, family.ID)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateFamily(family); err != nil {
		return nil, err
	}

	existing.Name = strings.TrimSpace(family.Name)
	existing.Email = strings.TrimSpace(family.Email)
	existing.Phone = family.Phone
	if err := s.families.UpdateFamily(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to update family: %w", err)
	}
	return existing, nil
}

// AddChild registers a child to a family and assigns its badge code
func (s *FamilyService) AddChild(ctx context.Context, familyID int64, child models.Child) (*models.Child, error) {
	if _, err := s.GetFamily(ctx, familyID); err != nil {
		return nil, err
	}

	child.FirstName = strings.TrimSpace(child.FirstName)
	child.LastName = strings.TrimSpace(child.LastName)
	if err := validation.ValidateChild(child, time.Now()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidChild, err)
	}

	child.FamilyID = familyID
	child.QRCode = badge.NewCode()
	if err := s.children.CreateChild(ctx, &child); err != nil {
		return nil, fmt.Errorf("failed to add child: %w", err)
	}

	slog.Info("child registered", "family_id", familyID, "child_id", child.ID)
	return &child, nil
}

// GetChild retrieves an active child
func (s *FamilyService) GetChild(ctx context.Context, childID int64) (*models.Child, error) {
	child, err := s.children.GetChildByID(ctx, childID)
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	if child == nil || child.IsDeleted() {
		return nil, ErrUnknownChild
	}
	return child, nil
}

// GetChildByBadge retrieves an active child by its badge code
func (s *FamilyService) GetChildByBadge(ctx context.Context, code string) (*models.Child, error) {
	child, err := s.children.GetChildByQRCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	if child == nil {
		return nil, ErrUnknownChild
	}
	return child, nil
}

// RemoveChild takes a child out of future charging. Its attendance and
// ledger history are kept.
func (s *FamilyService) RemoveChild(ctx context.Context, childID int64) error {
	err := s.children.SoftDeleteChild(ctx, childID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUnknownChild
	}
	if err != nil {
		return fmt.Errorf("failed to remove child: %w", err)
	}

	slog.Info("child removed", "child_id", childID)
	return nil
}
