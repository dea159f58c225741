package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// AuditCleaner deletes old audit rows
type AuditCleaner interface {
	CleanupOldAuditLogs(ctx context.Context, olderThan time.Duration) (int64, error)
}

// BookingCompleter completes departed booking groups
type BookingCompleter interface {
	CompleteDeparted(ctx context.Context, after time.Duration) (int64, error)
}

// CronConfig selects the scheduled jobs
type CronConfig struct {
	AuditRetention      time.Duration
	AutoCompleteEnabled bool
	AutoCompleteAfter   time.Duration
}

// CronService manages scheduled background jobs
type CronService struct {
	cron      *cron.Cron
	audit     AuditCleaner
	completer BookingCompleter
	cfg       CronConfig
	logger    *logrus.Logger
}

// NewCronService creates a new CronService
func NewCronService(audit AuditCleaner, completer BookingCompleter, cfg CronConfig, logger *logrus.Logger) *CronService {
	return &CronService{
		cron:      cron.New(cron.WithSeconds()),
		audit:     audit,
		completer: completer,
		cfg:       cfg,
		logger:    logger,
	}
}

// Start schedules the jobs and starts the scheduler
func (s *CronService) Start() error {
	s.logger.Info("Starting cron service...")

	// Sundays at 4:00 AM
	if _, err := s.cron.AddFunc("0 0 4 * * 0", s.cleanupAuditLogsJob); err != nil {
		return fmt.Errorf("failed to schedule audit cleanup job: %w", err)
	}
	s.logger.Info("Scheduled: Cleanup booking audit logs (Sundays at 4:00 AM)")

	if s.cfg.AutoCompleteEnabled {
		// every hour on the hour
		if _, err := s.cron.AddFunc("0 0 * * * *", s.completeDepartedJob); err != nil {
			return fmt.Errorf("failed to schedule auto-complete job: %w", err)
		}
		s.logger.Info("Scheduled: Complete departed bookings (hourly)")
	}

	s.cron.Start()
	s.logger.Info("Cron service started")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

func (s *CronService) cleanupAuditLogsJob() {
	start := time.Now()
	n, err := s.audit.CleanupOldAuditLogs(context.Background(), s.cfg.AuditRetention)
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Failed to cleanup booking audit logs")
		return
	}
	s.logger.WithFields(logrus.Fields{"deleted": n, "duration": time.Since(start).String()}).
		Info("[CRON] Cleaned up booking audit logs")
}

func (s *CronService) completeDepartedJob() {
	start := time.Now()
	n, err := s.completer.CompleteDeparted(context.Background(), s.cfg.AutoCompleteAfter)
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Failed to complete departed bookings")
		return
	}
	s.logger.WithFields(logrus.Fields{"completed_rows": n, "duration": time.Since(start).String()}).
		Info("[CRON] Completed departed bookings")
}

// RunCleanupAuditLogsNow runs the audit cleanup job immediately
func (s *CronService) RunCleanupAuditLogsNow() {
	s.logger.Info("[MANUAL] Running booking audit cleanup now...")
	s.cleanupAuditLogsJob()
}

// RunCompleteDepartedNow runs the auto-complete job immediately, even when it is not scheduled
func (s *CronService) RunCompleteDepartedNow() {
	s.logger.Info("[MANUAL] Running departed booking completion now...")
	s.completeDepartedJob()
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":       len(entries) > 0,
		"job_count":     len(entries),
		"auto_complete": s.cfg.AutoCompleteEnabled,
		"jobs":          jobs,
	}
}
