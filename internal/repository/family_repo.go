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

// FamilyRepository handles database operations for families
type FamilyRepository struct {
	db database.DBTX
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db database.DBTX) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *FamilyRepository) WithTx(tx database.DBTX) *FamilyRepository {
	return &FamilyRepository{db: tx}
}

// CreateFamily inserts a family and fills in its ID and timestamps
func (r *FamilyRepository) CreateFamily(ctx context.Context, family *models.Family) error {
	now := time.Now().UTC()
	query := "INSERT INTO families (name, email, phone, created_at, updated_at) VALUES (?, ?, ?, ?, ?)"
	id, err := r.db.ExecReturningID(ctx, query, family.Name, family.Email, family.Phone, now, now)
	if err != nil {
		return fmt.Errorf("failed to create family: %w", err)
	}

	family.ID = id
	family.CreatedAt = now
	family.UpdatedAt = now
	return nil
}

// GetFamilyByID retrieves a family by ID
func (r *FamilyRepository) GetFamilyByID(ctx context.Context, familyID int64) (*models.Family, error) {
	query := "SELECT id, name, email, phone, created_at, updated_at FROM families WHERE id = ?"
	family := &models.Family{}
	err := r.db.QueryRowContext(ctx, query, familyID).Scan(
		&family.ID,
		&family.Name,
		&family.Email,
		&family.Phone,
		&family.CreatedAt,
		&family.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}

	return family, nil
}

// ListFamilies retrieves all families ordered by name
func (r *FamilyRepository) ListFamilies(ctx context.Context) ([]models.Family, error) {
	query := "SELECT id, name, email, phone, created_at, updated_at FROM families ORDER BY name ASC"
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query families: %w", err)
	}
	defer rows.Close()

	var families []models.Family
	for rows.Next() {
		var family models.Family
		if err := rows.Scan(&family.ID, &family.Name, &family.Email, &family.Phone, &family.CreatedAt, &family.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan family: %w", err)
		}
		families = append(families, family)
	}

	return families, rows.Err()
}

// UpdateFamily updates a family's contact details
func (r *FamilyRepository) UpdateFamily(ctx context.Context, family *models.Family) error {
	family.UpdatedAt = time.Now().UTC()
	query := "UPDATE families SET name = ?, email = ?, phone = ?, updated_at = ? WHERE id = ?"
	_, err := r.db.ExecContext(ctx, query, family.Name, family.Email, family.Phone, family.UpdatedAt, family.ID)
	if err != nil {
		return fmt.Errorf("failed to update family: %w", err)
	}
	return nil
}
