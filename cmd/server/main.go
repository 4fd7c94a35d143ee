package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"summerfest/internal/badge"
	"summerfest/internal/config"
	"summerfest/internal/database"
	"summerfest/internal/handlers"
	"summerfest/internal/logging"
	"summerfest/internal/metrics"
	"summerfest/internal/notify"
	"summerfest/internal/pricing"
	"summerfest/internal/repository"
	"summerfest/internal/security"
	"summerfest/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := cfg.LogLevel
	if cfg.Debug {
		level = "debug"
	}
	logging.Setup(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer db.Close()
	slog.Info("database connection established", "type", cfg.DatabaseType)

	if err := db.RunMigrations(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	policy, err := pricing.New(cfg.PricingPolicy)
	if err != nil {
		return err
	}
	loc, err := pricing.LoadLocation(cfg.Timezone)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	notifier, err := notify.NewEmailNotifier(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL)
	if err != nil {
		return fmt.Errorf("initialize email notifier: %w", err)
	}
	if cfg.BadgeSecret == "" {
		slog.Warn("BADGE_SECRET not set, only legacy badges will scan")
	}

	// Initialize repositories
	familyRepo := repository.NewFamilyRepository(db)
	childRepo := repository.NewChildRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	passRepo := repository.NewPassRepository(db)

	// Initialize services
	familyService := service.NewFamilyService(db, familyRepo, childRepo, ledgerRepo)
	ledgerService := service.NewLedgerService(db, ledgerRepo, familyRepo, notifier, m, cfg.LowBalanceThreshold)
	checkInService := service.NewCheckInService(db, childRepo, familyRepo, attendanceRepo, ledgerService, policy, service.CheckInOptions{
		Location:         loc,
		StrictFamilyCaps: cfg.StrictFamilyCaps,
		Metrics:          m,
	})
	passService := service.NewPassService(passRepo, familyRepo)
	summaryService := service.NewSummaryService(familyRepo, childRepo, attendanceRepo, checkInService, ledgerService, passService)

	limiter := security.NewRateLimiter(cfg.ScanRateLimit, time.Minute)
	go limiter.Run(ctx, 10*time.Minute)

	router := handlers.NewRouter(
		handlers.NewCheckInHandler(checkInService, familyService, badge.NewCodec(cfg.BadgeSecret)),
		handlers.NewFamilyHandler(summaryService, ledgerService),
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		limiter,
	)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting",
			"addr", server.Addr,
			"policy", policy.Name(),
			"timezone", loc.String(),
			"strict_family_caps", cfg.StrictFamilyCaps,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
