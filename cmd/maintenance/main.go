package main

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/ethiobus/booking-backend/internal/config"
	"github.com/ethiobus/booking-backend/internal/database"
	"github.com/ethiobus/booking-backend/internal/services"
)

// Runs a scheduled job once, outside the server process.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	job := flag.String("job", "", "job to run: cleanup-audit or complete-departed")
	retentionDays := flag.Int("retention-days", 0, "override AUDIT_RETENTION_DAYS")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	loc, err := cfg.Booking.Location()
	if err != nil {
		logger.Fatalf("Failed to load booking timezone: %v", err)
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	days := cfg.Cron.AuditRetentionDays
	if *retentionDays > 0 {
		days = *retentionDays
	}

	auditService := services.NewAuditService(db.DB, logger)
	lifecycleService := services.NewLifecycleService(
		database.NewBusRepository(db.DB),
		database.NewBookingRepository(db.DB),
		services.NewCancellationPolicy(cfg.Booking.CancellationWindow, loc),
		nil,
		auditService,
		logger,
		nil,
	)
	cronService := services.NewCronService(auditService, lifecycleService, services.CronConfig{
		AuditRetention:      time.Duration(days) * 24 * time.Hour,
		AutoCompleteEnabled: cfg.Cron.AutoCompleteEnabled,
		AutoCompleteAfter:   cfg.Cron.AutoCompleteAfter,
	}, logger)

	switch *job {
	case "cleanup-audit":
		cronService.RunCleanupAuditLogsNow()
	case "complete-departed":
		cronService.RunCompleteDepartedNow()
	default:
		logger.Fatalf("Unknown job %q, expected cleanup-audit or complete-departed", *job)
	}
}
