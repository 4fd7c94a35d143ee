// Package export writes attendance and ledger activity as CSV for the
// treasurer and the event office.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"summerfest/internal/models"
	"summerfest/internal/repository"
)

// Column is one CSV column: a header and how to read it from a row
type Column[T any] struct {
	Name  string
	Value func(T) string
}

// Write emits a header line followed by one line per row
func Write[T any](w io.Writer, columns []Column[T], rows []T) error {
	cw := csv.NewWriter(w)

	record := make([]string, len(columns))
	for i, col := range columns {
		record[i] = col.Name
	}
	if err := cw.Write(record); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, row := range rows {
		for i, col := range columns {
			record[i] = col.Value(row)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// AttendanceRow is an attendance record joined with its child and family
type AttendanceRow struct {
	Record models.Attendance
	Child  models.Child
	Family models.Family
}

// TransactionRow is a ledger entry joined with the family that owns the account
type TransactionRow struct {
	Txn    models.LedgerTransaction
	Family models.Family
}

// AttendanceColumns is the attendance sheet layout
var AttendanceColumns = []Column[AttendanceRow]{
	{"Date", func(r AttendanceRow) string { return models.DateKey(r.Record.Date) }},
	{"Family", func(r AttendanceRow) string { return r.Family.Name }},
	{"Child", func(r AttendanceRow) string { return r.Child.FullName() }},
	{"Class", func(r AttendanceRow) string { return r.Child.ClassName() }},
	{"Checked In", func(r AttendanceRow) string { return formatTime(r.Record.CheckInTime) }},
	{"Checked Out", func(r AttendanceRow) string {
		if r.Record.CheckOutTime == nil {
			return ""
		}
		return formatTime(*r.Record.CheckOutTime)
	}},
	{"Status", func(r AttendanceRow) string { return r.Record.Status.String() }},
	{"Charge", func(r AttendanceRow) string { return r.Record.ChargeAmount.StringFixed(2) }},
	{"Reason", func(r AttendanceRow) string { return r.Record.ChargeReason }},
	{"Dietary Needs", func(r AttendanceRow) string { return yesNo(r.Child.HasDietaryNeeds) }},
	{"Medical Needs", func(r AttendanceRow) string { return yesNo(r.Child.HasMedicalNeeds) }},
	{"Photo Consent", func(r AttendanceRow) string { return yesNo(r.Child.PhotoConsent) }},
	{"Notes", func(r AttendanceRow) string { return r.Record.Notes }},
}

// TransactionColumns is the ledger sheet layout
var TransactionColumns = []Column[TransactionRow]{
	{"ID", func(r TransactionRow) string { return strconv.FormatInt(r.Txn.ID, 10) }},
	{"Created", func(r TransactionRow) string { return formatTime(r.Txn.CreatedAt) }},
	{"Family ID", func(r TransactionRow) string { return strconv.FormatInt(r.Family.ID, 10) }},
	{"Family", func(r TransactionRow) string { return r.Family.Name }},
	{"Type", func(r TransactionRow) string { return string(r.Txn.Type) }},
	{"Method", func(r TransactionRow) string { return string(r.Txn.Method) }},
	{"Amount", func(r TransactionRow) string { return r.Txn.Amount.StringFixed(2) }},
	{"Description", func(r TransactionRow) string { return r.Txn.Description }},
	{"Reference", func(r TransactionRow) string {
		if r.Txn.ExternalRef == nil {
			return ""
		}
		return *r.Txn.ExternalRef
	}},
	{"Recorded By", func(r TransactionRow) string { return r.Txn.RecordedBy }},
}

// Exporter reads the stores and writes CSV sheets
type Exporter struct {
	families   *repository.FamilyRepository
	children   *repository.ChildRepository
	attendance *repository.AttendanceRepository
	ledger     *repository.LedgerRepository
	loc        *time.Location
}

// NewExporter creates a new exporter. Timestamps are written in loc.
func NewExporter(families *repository.FamilyRepository, children *repository.ChildRepository,
	attendance *repository.AttendanceRepository, ledger *repository.LedgerRepository, loc *time.Location) *Exporter {
	if loc == nil {
		loc = time.UTC
	}
	return &Exporter{
		families:   families,
		children:   children,
		attendance: attendance,
		ledger:     ledger,
		loc:        loc,
	}
}

// Attendance writes every check-in between the two calendar days inclusive
func (e *Exporter) Attendance(ctx context.Context, w io.Writer, from, to time.Time) error {
	records, err := e.attendance.GetAttendanceRange(ctx, from, to)
	if err != nil {
		return fmt.Errorf("failed to get attendance: %w", err)
	}

	families := e.familyCache()
	childCache := make(map[int64]models.Child)
	rows := make([]AttendanceRow, 0, len(records))
	for _, rec := range records {
		child, ok := childCache[rec.ChildID]
		if !ok {
			// Removed children are still exported
			c, err := e.children.GetChildByID(ctx, rec.ChildID)
			if err != nil {
				return fmt.Errorf("failed to get child: %w", err)
			}
			if c != nil {
				child = *c
			}
			childCache[rec.ChildID] = child
		}
		family, err := families(ctx, rec.FamilyID)
		if err != nil {
			return err
		}
		rec.CheckInTime = rec.CheckInTime.In(e.loc)
		rows = append(rows, AttendanceRow{Record: rec, Child: child, Family: family})
	}

	slog.Info("exporting attendance", "from", models.DateKey(from), "to", models.DateKey(to), "rows", len(rows))
	return Write(w, AttendanceColumns, rows)
}

// Transactions writes every ledger entry created in [from, to)
func (e *Exporter) Transactions(ctx context.Context, w io.Writer, from, to time.Time) error {
	txns, err := e.ledger.GetTransactionsBetween(ctx, from, to)
	if err != nil {
		return fmt.Errorf("failed to get transactions: %w", err)
	}
	accounts, err := e.ledger.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	owners := make(map[int64]int64, len(accounts))
	for _, account := range accounts {
		owners[account.ID] = account.FamilyID
	}

	families := e.familyCache()
	rows := make([]TransactionRow, 0, len(txns))
	for _, txn := range txns {
		family, err := families(ctx, owners[txn.AccountID])
		if err != nil {
			return err
		}
		txn.CreatedAt = txn.CreatedAt.In(e.loc)
		rows = append(rows, TransactionRow{Txn: txn, Family: family})
	}

	slog.Info("exporting transactions", "rows", len(rows))
	return Write(w, TransactionColumns, rows)
}

func (e *Exporter) familyCache() func(context.Context, int64) (models.Family, error) {
	cache := make(map[int64]models.Family)
	return func(ctx context.Context, id int64) (models.Family, error) {
		if family, ok := cache[id]; ok {
			return family, nil
		}
		f, err := e.families.GetFamilyByID(ctx, id)
		if err != nil {
			return models.Family{}, fmt.Errorf("failed to get family: %w", err)
		}
		family := models.Family{ID: id}
		if f != nil {
			family = *f
		}
		cache[id] = family
		return family, nil
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
