package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"summerfest/internal/database"
	"summerfest/internal/models"
)

const childColumns = `id, family_id, first_name, last_name, date_of_birth, class_group,
	photo_consent, has_dietary_needs, has_medical_needs, qr_code, deleted_at, created_at, updated_at`

// ChildRepository handles database operations for children
type ChildRepository struct {
	db database.DBTX
}

// NewChildRepository creates a new child repository
func NewChildRepository(db database.DBTX) *ChildRepository {
	return &ChildRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *ChildRepository) WithTx(tx database.DBTX) *ChildRepository {
	return &ChildRepository{db: tx}
}

// CreateChild inserts a child and fills in its ID and timestamps
func (r *ChildRepository) CreateChild(ctx context.Context, child *models.Child) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO children (family_id, first_name, last_name, date_of_birth, class_group,
			photo_consent, has_dietary_needs, has_medical_needs, qr_code, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		child.FamilyID,
		child.FirstName,
		child.LastName,
		formatOptionalDay(child.DateOfBirth),
		child.ClassGroup,
		child.PhotoConsent,
		child.HasDietaryNeeds,
		child.HasMedicalNeeds,
		child.QRCode,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create child: %w", err)
	}

	child.ID = id
	child.CreatedAt = now
	child.UpdatedAt = now
	return nil
}

// GetChildByID retrieves a child by ID, including removed children
func (r *ChildRepository) GetChildByID(ctx context.Context, childID int64) (*models.Child, error) {
	query := "SELECT " + childColumns + " FROM children WHERE id = ?"
	child, err := scanChild(r.db.QueryRowContext(ctx, query, childID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	return child, nil
}

// GetChildByQRCode retrieves an active child by badge code
func (r *ChildRepository) GetChildByQRCode(ctx context.Context, code string) (*models.Child, error) {
	query := "SELECT " + childColumns + " FROM children WHERE qr_code = ? AND deleted_at IS NULL"
	child, err := scanChild(r.db.QueryRowContext(ctx, query, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get child by code: %w", err)
	}
	return child, nil
}

// GetFamilyChildren retrieves the active children of a family
func (r *ChildRepository) GetFamilyChildren(ctx context.Context, familyID int64) ([]models.Child, error) {
	query := `
		SELECT ` + childColumns + `
		FROM children
		WHERE family_id = ? AND deleted_at IS NULL
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query children: %w", err)
	}
	defer rows.Close()

	var children []models.Child
	for rows.Next() {
		child, err := scanChild(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		children = append(children, *child)
	}

	return children, rows.Err()
}

// CountFamilyChildren counts the active children registered to a family
func (r *ChildRepository) CountFamilyChildren(ctx context.Context, familyID int64) (int, error) {
	query := "SELECT COUNT(*) FROM children WHERE family_id = ? AND deleted_at IS NULL"
	var count int
	if err := r.db.QueryRowContext(ctx, query, familyID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count children: %w", err)
	}
	return count, nil
}

// SoftDeleteChild marks a child removed. Attendance history keeps referencing the row.
func (r *ChildRepository) SoftDeleteChild(ctx context.Context, childID int64) error {
	now := time.Now().UTC()
	query := "UPDATE children SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL"
	result, err := r.db.ExecContext(ctx, query, now, now, childID)
	if err != nil {
		return fmt.Errorf("failed to delete child: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChild(row rowScanner) (*models.Child, error) {
	var (
		child     models.Child
		dob       string
		deletedAt sql.NullTime
	)
	err := row.Scan(
		&child.ID,
		&child.FamilyID,
		&child.FirstName,
		&child.LastName,
		&dob,
		&child.ClassGroup,
		&child.PhotoConsent,
		&child.HasDietaryNeeds,
		&child.HasMedicalNeeds,
		&child.QRCode,
		&deletedAt,
		&child.CreatedAt,
		&child.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if dob != "" {
		if child.DateOfBirth, err = models.ParseDateKey(dob); err != nil {
			return nil, fmt.Errorf("invalid date of birth %q: %w", dob, err)
		}
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		child.DeletedAt = &t
	}
	return &child, nil
}

func formatOptionalDay(day time.Time) string {
	if day.IsZero() {
		return ""
	}
	return models.DateKey(day)
}
