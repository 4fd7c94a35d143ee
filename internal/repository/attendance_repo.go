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

const attendanceColumns = `id, child_id, family_id, attendance_date, check_in_time, check_out_time,
	status, charge_amount, charge_reason, checked_in_by, checked_out_by, notes`

// AttendanceRepository stores one check-in record per child per day
type AttendanceRepository struct {
	db database.DBTX
}

// NewAttendanceRepository creates a new attendance repository
func NewAttendanceRepository(db database.DBTX) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *AttendanceRepository) WithTx(tx database.DBTX) *AttendanceRepository {
	return &AttendanceRepository{db: tx}
}

// CreateAttendance inserts a record. A second record for the same child and
// day fails with an error matching database.ErrUniqueViolation.
func (r *AttendanceRepository) CreateAttendance(ctx context.Context, rec *models.Attendance) error {
	query := `
		INSERT INTO attendance (child_id, family_id, attendance_date, check_in_time, status,
			charge_amount, charge_reason, checked_in_by, checked_out_by, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		rec.ChildID,
		rec.FamilyID,
		models.DateKey(rec.Date),
		rec.CheckInTime.UTC(),
		rec.Status.String(),
		money(rec.ChargeAmount),
		rec.ChargeReason,
		rec.CheckedInBy,
		rec.CheckedOutBy,
		rec.Notes,
	)
	if err != nil {
		return insertError("attendance", err)
	}

	rec.ID = id
	return nil
}

// GetAttendance retrieves the record for a child on a day
func (r *AttendanceRepository) GetAttendance(ctx context.Context, childID int64, day time.Time) (*models.Attendance, error) {
	query := "SELECT " + attendanceColumns + " FROM attendance WHERE child_id = ? AND attendance_date = ?"
	rec, err := scanAttendance(r.db.QueryRowContext(ctx, query, childID, models.DateKey(day)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance: %w", err)
	}
	return rec, nil
}

// HasCheckedIn reports whether a record exists for the child on the day
func (r *AttendanceRepository) HasCheckedIn(ctx context.Context, childID int64, day time.Time) (bool, error) {
	query := "SELECT COUNT(*) FROM attendance WHERE child_id = ? AND attendance_date = ?"
	var count int
	if err := r.db.QueryRowContext(ctx, query, childID, models.DateKey(day)).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check attendance: %w", err)
	}
	return count > 0, nil
}

// GetFamilyAttendance retrieves a family's records from one day to another inclusive
func (r *AttendanceRepository) GetFamilyAttendance(ctx context.Context, familyID int64, from, to time.Time) ([]models.Attendance, error) {
	query := `
		SELECT ` + attendanceColumns + `
		FROM attendance
		WHERE family_id = ? AND attendance_date >= ? AND attendance_date <= ?
		ORDER BY attendance_date ASC, id ASC
	`
	return r.query(ctx, query, familyID, models.DateKey(from), models.DateKey(to))
}

// GetAttendanceRange retrieves every record from one day to another inclusive
func (r *AttendanceRepository) GetAttendanceRange(ctx context.Context, from, to time.Time) ([]models.Attendance, error) {
	query := `
		SELECT ` + attendanceColumns + `
		FROM attendance
		WHERE attendance_date >= ? AND attendance_date <= ?
		ORDER BY attendance_date ASC, family_id ASC, id ASC
	`
	return r.query(ctx, query, models.DateKey(from), models.DateKey(to))
}

// CheckOut stamps the pick-up time and moves the record to picked_up
func (r *AttendanceRepository) CheckOut(ctx context.Context, id int64, at time.Time, by, notes string) error {
	query := `
		UPDATE attendance SET check_out_time = ?, checked_out_by = ?, status = ?, notes = ?
		WHERE id = ? AND check_out_time IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, at.UTC(), by, models.StatusPickedUp.String(), notes, id)
	if err != nil {
		return fmt.Errorf("failed to check out: %w", err)
	}
	return requireRow(result)
}

// UpdateStatus sets a record's status. Callers validate the progression.
func (r *AttendanceRepository) UpdateStatus(ctx context.Context, id int64, status models.AttendanceStatus) error {
	query := "UPDATE attendance SET status = ? WHERE id = ?"
	result, err := r.db.ExecContext(ctx, query, status.String(), id)
	if err != nil {
		return fmt.Errorf("failed to update attendance status: %w", err)
	}
	return requireRow(result)
}

func (r *AttendanceRepository) query(ctx context.Context, query string, args ...any) ([]models.Attendance, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance: %w", err)
	}
	defer rows.Close()

	var records []models.Attendance
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		records = append(records, *rec)
	}

	return records, rows.Err()
}

func scanAttendance(row rowScanner) (*models.Attendance, error) {
	var (
		rec      models.Attendance
		date     string
		checkOut sql.NullTime
		status   string
	)
	err := row.Scan(
		&rec.ID,
		&rec.ChildID,
		&rec.FamilyID,
		&date,
		&rec.CheckInTime,
		&checkOut,
		&status,
		&rec.ChargeAmount,
		&rec.ChargeReason,
		&rec.CheckedInBy,
		&rec.CheckedOutBy,
		&rec.Notes,
	)
	if err != nil {
		return nil, err
	}

	if rec.Date, err = models.ParseDateKey(date); err != nil {
		return nil, fmt.Errorf("invalid attendance date %q: %w", date, err)
	}
	if rec.Status, err = models.ParseAttendanceStatus(status); err != nil {
		return nil, err
	}
	if checkOut.Valid {
		t := checkOut.Time
		rec.CheckOutTime = &t
	}
	return &rec, nil
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
