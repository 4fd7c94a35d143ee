package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"summerfest/internal/config"
	"summerfest/internal/database"
	"summerfest/internal/export"
	"summerfest/internal/logging"
	"summerfest/internal/models"
	"summerfest/internal/pricing"
	"summerfest/internal/repository"
	"summerfest/internal/service"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel)

	if err := run(context.Background(), cfg, os.Args[1], os.Args[2:]); err != nil {
		slog.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, cmd string, args []string) error {
	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	loc, err := pricing.LoadLocation(cfg.Timezone)
	if err != nil {
		return err
	}

	familyRepo := repository.NewFamilyRepository(db)
	childRepo := repository.NewChildRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)

	ledger := service.NewLedgerService(db, ledgerRepo, familyRepo, nil, nil, cfg.LowBalanceThreshold)
	exporter := export.NewExporter(familyRepo, childRepo, attendanceRepo, ledgerRepo, loc)

	switch cmd {
	case "verify":
		return verify(ctx, ledger)

	case "reconcile":
		fs := flag.NewFlagSet("reconcile", flag.ExitOnError)
		familyID := fs.Int64("family", 0, "Family ID (required)")
		by := fs.String("by", "", "Name of the staff member signing off (required)")
		fs.Parse(args)
		if *familyID == 0 || *by == "" {
			fs.PrintDefaults()
			return fmt.Errorf("-family and -by are required")
		}
		account, err := ledger.Reconciled(ctx, *familyID, *by)
		if err != nil {
			return err
		}
		fmt.Printf("Family %d reconciled, balance %s\n", account.FamilyID, account.Balance.StringFixed(2))
		return nil

	case "export-attendance":
		fs := flag.NewFlagSet("export-attendance", flag.ExitOnError)
		opts := bindExportFlags(fs, "attendance")
		fs.Parse(args)
		from, to, err := opts.window(loc)
		if err != nil {
			return err
		}
		return opts.write(func(w io.Writer) error {
			return exporter.Attendance(ctx, w, from, to)
		})

	case "export-transactions":
		fs := flag.NewFlagSet("export-transactions", flag.ExitOnError)
		opts := bindExportFlags(fs, "transactions")
		fs.Parse(args)
		from, to, err := opts.window(loc)
		if err != nil {
			return err
		}
		// Transactions are bucketed by creation instant; cover the whole last day
		start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
		end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
		return opts.write(func(w io.Writer) error {
			return exporter.Transactions(ctx, w, start, end)
		})

	default:
		printUsage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func verify(ctx context.Context, ledger *service.LedgerService) error {
	violations, err := ledger.VerifyAll(ctx)
	if err != nil {
		return err
	}
	if len(violations) == 0 {
		fmt.Println("All ledger accounts consistent")
		return nil
	}

	for _, v := range violations {
		fmt.Printf("Family %d: balance %s, transactions sum to %s (account frozen)\n",
			v.FamilyID, v.Balance.StringFixed(2), v.Expected.StringFixed(2))
	}
	return fmt.Errorf("%d account(s) failed verification", len(violations))
}

type exportFlags struct {
	name   string
	from   *string
	to     *string
	output *string
}

func bindExportFlags(fs *flag.FlagSet, name string) *exportFlags {
	return &exportFlags{
		name:   name,
		from:   fs.String("from", "", "First day YYYY-MM-DD (default: today)"),
		to:     fs.String("to", "", "Last day YYYY-MM-DD (default: from)"),
		output: fs.String("output", "", "Output file path (default: <name>_YYYYMMDD_HHMMSS.csv, - for stdout)"),
	}
}

func (f *exportFlags) window(loc *time.Location) (from, to time.Time, err error) {
	from = pricing.Day(time.Now(), loc)
	if *f.from != "" {
		if from, err = models.ParseDateKey(*f.from); err != nil {
			return from, to, fmt.Errorf("invalid -from: %w", err)
		}
	}
	to = from
	if *f.to != "" {
		if to, err = models.ParseDateKey(*f.to); err != nil {
			return from, to, fmt.Errorf("invalid -to: %w", err)
		}
	}
	if to.Before(from) {
		return from, to, fmt.Errorf("-to is before -from")
	}
	return from, to, nil
}

func (f *exportFlags) write(fn func(io.Writer) error) error {
	outputPath := *f.output
	if outputPath == "-" {
		return fn(os.Stdout)
	}
	if outputPath == "" {
		outputPath = fmt.Sprintf("%s_%s.csv", f.name, time.Now().Format("20060102_150405"))
	}

	// Ensure directory exists
	if dir := filepath.Dir(outputPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := fn(file); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}

	slog.Info("export complete", "file", outputPath)
	return nil
}

func printUsage() {
	fmt.Println("Summerfest Ledger Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  ledger verify                       Check every balance against its transactions")
	fmt.Println("  ledger reconcile [options]          Re-project a frozen account's balance and release it")
	fmt.Println("  ledger export-attendance [options]  Export check-ins to CSV")
	fmt.Println("  ledger export-transactions [options] Export ledger entries to CSV")
	fmt.Println()
	fmt.Println("Reconcile Options:")
	fmt.Println("  -family <id>     Family ID")
	fmt.Println("  -by <name>       Staff member signing off")
	fmt.Println()
	fmt.Println("Export Options:")
	fmt.Println("  -from YYYY-MM-DD  First day (default: today)")
	fmt.Println("  -to YYYY-MM-DD    Last day (default: -from)")
	fmt.Println("  -output <file>    Output file path, - for stdout")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DATABASE_TYPE    Database type: sqlite, postgres, or mysql (default: sqlite)")
	fmt.Println("  DB_PATH          SQLite database path (default: ./summerfest.db)")
	fmt.Println("  DATABASE_URL     PostgreSQL or MySQL connection URL")
	fmt.Println("  TIMEZONE         Operational timezone (default: Australia/Sydney)")
}
