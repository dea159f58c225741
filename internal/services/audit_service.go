package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/ethiobus/booking-backend/internal/utils"
)

// Audit actions
const (
	AuditActionReserve      = "booking_reserve"
	AuditActionPay          = "booking_pay"
	AuditActionCancel       = "booking_cancel"
	AuditActionAdminStatus  = "booking_admin_status"
	AuditActionAutoComplete = "booking_auto_complete"
)

// Audit outcomes
const (
	AuditOutcomeSuccess = "success"
	AuditOutcomeFailure = "failure"
)

// BookingAuditEvent is one row of booking_audit_logs
type BookingAuditEvent struct {
	Reference string
	UserID    string
	Action    string
	Outcome   string
	IPAddress string
	UserAgent string
	Details   map[string]interface{}
}

// AuditService writes booking events to booking_audit_logs
type AuditService struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewAuditService creates a new audit service
func NewAuditService(db *sqlx.DB, logger *logrus.Logger) *AuditService {
	return &AuditService{db: db, logger: logger}
}

// Record stores the event. A failed insert is logged and swallowed so the
// booking operation it describes is never affected.
func (s *AuditService) Record(ctx context.Context, event BookingAuditEvent) {
	if err := s.insert(ctx, event); err != nil {
		s.logger.WithFields(logrus.Fields{
			"reference": event.Reference,
			"action":    event.Action,
		}).WithError(err).Error("Failed to write booking audit log")
	}
}

func (s *AuditService) insert(ctx context.Context, event BookingAuditEvent) error {
	deviceInfo, err := json.Marshal(utils.ParseUserAgent(event.UserAgent))
	if err != nil {
		return fmt.Errorf("failed to encode device info: %w", err)
	}

	details := event.Details
	if details == nil {
		details = map[string]interface{}{}
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}

	query := `
		INSERT INTO booking_audit_logs (
			id, booking_reference, user_id, action, outcome,
			ip_address, user_agent, device_info, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())`

	_, err = s.db.ExecContext(ctx, query,
		uuid.New(),
		nullIfEmpty(event.Reference),
		nullIfEmpty(event.UserID),
		event.Action,
		event.Outcome,
		nullIfEmpty(event.IPAddress),
		nullIfEmpty(event.UserAgent),
		string(deviceInfo),
		string(detailsJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to log audit event: %w", err)
	}
	return nil
}

// CleanupOldAuditLogs removes audit rows older than the given age
func (s *AuditService) CleanupOldAuditLogs(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)

	result, err := s.db.ExecContext(ctx, `DELETE FROM booking_audit_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old audit logs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
