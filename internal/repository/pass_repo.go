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

const passColumns = "id, family_id, pass_type, valid_from, valid_to, amount_paid, external_ref, created_at"

// PassRepository stores purchased passes
type PassRepository struct {
	db database.DBTX
}

// NewPassRepository creates a new pass repository
func NewPassRepository(db database.DBTX) *PassRepository {
	return &PassRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *PassRepository) WithTx(tx database.DBTX) *PassRepository {
	return &PassRepository{db: tx}
}

// CreatePass inserts a pass and fills in its ID and timestamp
func (r *PassRepository) CreatePass(ctx context.Context, pass *models.Pass) error {
	pass.CreatedAt = time.Now().UTC()
	query := `
		INSERT INTO passes (family_id, pass_type, valid_from, valid_to, amount_paid, external_ref, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		pass.FamilyID,
		string(pass.Type),
		models.DateKey(pass.ValidFrom),
		models.DateKey(pass.ValidTo),
		money(pass.AmountPaid),
		pass.ExternalRef,
		pass.CreatedAt,
	)
	if err != nil {
		return insertError("pass", err)
	}

	pass.ID = id
	return nil
}

// GetPassByExternalRef finds the pass bought with a gateway reference
func (r *PassRepository) GetPassByExternalRef(ctx context.Context, ref string) (*models.Pass, error) {
	query := "SELECT " + passColumns + " FROM passes WHERE external_ref = ?"
	pass, err := scanPass(r.db.QueryRowContext(ctx, query, ref))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pass: %w", err)
	}
	return pass, nil
}

// GetValidPasses retrieves a family's passes covering day
func (r *PassRepository) GetValidPasses(ctx context.Context, familyID int64, day time.Time) ([]models.Pass, error) {
	query := `
		SELECT ` + passColumns + `
		FROM passes
		WHERE family_id = ? AND valid_from <= ? AND valid_to >= ?
		ORDER BY valid_from ASC, id ASC
	`
	key := models.DateKey(day)
	rows, err := r.db.QueryContext(ctx, query, familyID, key, key)
	if err != nil {
		return nil, fmt.Errorf("failed to query passes: %w", err)
	}
	defer rows.Close()

	var passes []models.Pass
	for rows.Next() {
		pass, err := scanPass(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pass: %w", err)
		}
		passes = append(passes, *pass)
	}

	return passes, rows.Err()
}

func scanPass(row rowScanner) (*models.Pass, error) {
	var (
		pass        models.Pass
		passType    string
		from, to    string
		externalRef sql.NullString
	)
	err := row.Scan(&pass.ID, &pass.FamilyID, &passType, &from, &to, &pass.AmountPaid, &externalRef, &pass.CreatedAt)
	if err != nil {
		return nil, err
	}

	pass.Type = models.PassType(passType)
	if pass.ValidFrom, err = models.ParseDateKey(from); err != nil {
		return nil, fmt.Errorf("invalid pass start %q: %w", from, err)
	}
	if pass.ValidTo, err = models.ParseDateKey(to); err != nil {
		return nil, fmt.Errorf("invalid pass end %q: %w", to, err)
	}
	if externalRef.Valid {
		ref := externalRef.String
		pass.ExternalRef = &ref
	}
	return &pass, nil
}
