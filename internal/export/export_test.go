package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"summerfest/internal/database"
	"summerfest/internal/models"
	"summerfest/internal/repository"
)

func TestWrite(t *testing.T) {
	type row struct {
		name  string
		count int
	}
	columns := []Column[row]{
		{"Name", func(r row) string { return r.name }},
		{"Count", func(r row) string { return strings.Repeat("|", r.count) }},
	}

	var buf bytes.Buffer
	if err := Write(&buf, columns, []row{{"plain", 1}, {"needs, quoting", 2}}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	want := "Name,Count\nplain,|\n\"needs, quoting\",||\n"
	if got := buf.String(); got != want {
		t.Errorf("Write() = %q, want %q", got, want)
	}
}

func TestWriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, TransactionColumns, nil); err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(buf.String(), "\n"); lines != 1 {
		t.Errorf("expected header only, got %q", buf.String())
	}
}

func TestExporter(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()
	ctx := context.Background()
	if err := db.RunMigrations(ctx); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	families := repository.NewFamilyRepository(db)
	children := repository.NewChildRepository(db)
	attendance := repository.NewAttendanceRepository(db)
	ledger := repository.NewLedgerRepository(db)

	family := &models.Family{Name: "Nguyen"}
	if err := families.CreateFamily(ctx, family); err != nil {
		t.Fatal(err)
	}
	child := &models.Child{FamilyID: family.ID, FirstName: "Linh", LastName: "Nguyen", ClassGroup: models.ClassMinis, QRCode: "qr-linh", HasMedicalNeeds: true}
	if err := children.CreateChild(ctx, child); err != nil {
		t.Fatal(err)
	}

	checkIn := time.Date(2025, 1, 7, 22, 30, 0, 0, time.UTC)
	day := time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)
	if err := attendance.CreateAttendance(ctx, &models.Attendance{
		ChildID:      child.ID,
		FamilyID:     family.ID,
		Date:         day,
		CheckInTime:  checkIn,
		Status:       models.StatusCheckedIn,
		ChargeAmount: decimal.RequireFromString("6"),
		ChargeReason: "Standard daily rate (sign-in 1 this week, 1 child)",
	}); err != nil {
		t.Fatal(err)
	}

	account, err := ledger.GetOrCreateAccount(ctx, family.ID)
	if err != nil {
		t.Fatal(err)
	}
	ref := "pi_123"
	if err := ledger.InsertTransaction(ctx, &models.LedgerTransaction{
		AccountID:   account.ID,
		Amount:      decimal.RequireFromString("20"),
		Type:        models.TransactionCredit,
		Method:      models.MethodStripe,
		Description: "Online top-up",
		ExternalRef: &ref,
	}); err != nil {
		t.Fatal(err)
	}

	sydney, err := time.LoadLocation("Australia/Sydney")
	if err != nil {
		t.Fatal(err)
	}
	exporter := NewExporter(families, children, attendance, ledger, sydney)

	t.Run("Attendance", func(t *testing.T) {
		var buf bytes.Buffer
		if err := exporter.Attendance(ctx, &buf, day, day); err != nil {
			t.Fatalf("Attendance() error = %v", err)
		}
		rows := readCSV(t, &buf)
		if len(rows) != 2 {
			t.Fatalf("expected header and 1 row, got %d lines", len(rows))
		}
		got := rows[1]
		want := []string{"2025-01-08", "Nguyen", "Linh Nguyen", "Minis", "2025-01-08 09:30:00", "", "checked_in", "6.00"}
		for i, w := range want {
			if got[i] != w {
				t.Errorf("column %s = %q, want %q", rows[0][i], got[i], w)
			}
		}
		if got[10] != "Yes" || got[9] != "No" {
			t.Errorf("needs columns = %q, %q", got[9], got[10])
		}
	})

	t.Run("Transactions", func(t *testing.T) {
		var buf bytes.Buffer
		now := time.Now()
		if err := exporter.Transactions(ctx, &buf, now.Add(-time.Hour), now.Add(time.Hour)); err != nil {
			t.Fatalf("Transactions() error = %v", err)
		}
		rows := readCSV(t, &buf)
		if len(rows) != 2 {
			t.Fatalf("expected header and 1 row, got %d lines", len(rows))
		}
		if got := rows[1]; got[3] != "Nguyen" || got[6] != "20.00" || got[8] != "pi_123" {
			t.Errorf("transaction row = %q", got)
		}
	})
}

func readCSV(t *testing.T, buf *bytes.Buffer) [][]string {
	t.Helper()
	rows, err := csv.NewReader(buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	return rows
}
