package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ethiobus/booking-backend/internal/domain"
	"github.com/ethiobus/booking-backend/internal/models"
	"github.com/ethiobus/booking-backend/pkg/validator"
)

const (
	msgPaid              = "Payment successful! Your booking is now confirmed."
	msgCancelled         = "Booking cancelled successfully. Refund will be processed within 3-5 business days."
	msgStatusUpdated     = "Booking status updated successfully!"
	msgNotFoundOrPaid    = "Booking not found or already paid"
	msgNotFoundOrCancel  = "Booking not found or already cancelled"
	msgBookingNotFound   = "Booking not found"
	msgPayCancelled      = "Cannot pay for a cancelled booking"
	msgCompletedNoCancel = "Completed bookings cannot be cancelled"
)

// LifecycleService owns every transition of an existing booking group.
// Changes go through the BookingGroup aggregate so all rows move together.
type LifecycleService struct {
	catalog   BusCatalog
	store     BookingStore
	policy    CancellationPolicy
	cache     AvailabilityCache
	auditor   Auditor
	validator *validator.RequestValidator
	logger    *logrus.Logger
	now       Clock
}

// NewLifecycleService creates the service. cache and auditor may be nil.
func NewLifecycleService(
	catalog BusCatalog,
	store BookingStore,
	policy CancellationPolicy,
	cache AvailabilityCache,
	auditor Auditor,
	logger *logrus.Logger,
	now Clock,
) *LifecycleService {
	if now == nil {
		now = time.Now
	}
	return &LifecycleService{
		catalog:   catalog,
		store:     store,
		policy:    policy,
		cache:     cache,
		auditor:   auditor,
		validator: validator.NewRequestValidator(),
		logger:    logger,
		now:       now,
	}
}

// MarkPaid records a self-reported payment on every row of the caller's group.
// The transaction id is taken at face value; booking status does not change.
func (s *LifecycleService) MarkPaid(ctx context.Context, rc *models.RequestContext, reference string, req models.PaymentRequest) (*models.BookingGroup, error) {
	reference = strings.TrimSpace(reference)
	g, err := s.markPaid(ctx, rc, reference, req)

	event := s.event(rc, reference, AuditActionPay, map[string]interface{}{
		"payment_method": req.PaymentMethod,
		"transaction_id": req.TransactionID,
	})
	if err != nil {
		rc.Fail(NoticeMessage(err, msgPayFailed), models.ReturnTo{View: models.ViewPayment, Reference: reference})
		s.fail(ctx, event, err, "Payment")
		return nil, err
	}

	rc.Succeed(msgPaid, models.ReturnTo{
		View:       models.ViewMyBookings,
		BusID:      g.BusID,
		TravelDate: g.TravelDateString(),
		Reference:  g.Reference,
	})
	s.succeed(ctx, event, "Booking group paid")
	return g, nil
}

func (s *LifecycleService) markPaid(ctx context.Context, rc *models.RequestContext, reference string, req models.PaymentRequest) (*models.BookingGroup, error) {
	if !rc.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}

	req.PaymentMethod = strings.TrimSpace(req.PaymentMethod)
	req.TransactionID = strings.TrimSpace(req.TransactionID)
	violations := s.validator.Violations(req)
	if reference == "" {
		violations = append([]string{"Booking reference is required"}, violations...)
	}
	if len(violations) > 0 {
		return nil, domain.ValidationError{Violations: violations}
	}

	g, err := s.store.GetGroup(ctx, reference, rc.PrincipalID)
	if err != nil {
		return nil, domain.PersistenceError{Op: "load booking", Err: err}
	}
	if g == nil {
		return nil, domain.NotFoundError{Resource: "booking", Msg: msgNotFoundOrPaid}
	}

	if err := g.MarkPaid(req.PaymentMethod, req.TransactionID, s.now()); err != nil {
		switch {
		case errors.Is(err, models.ErrAlreadyPaid):
			return nil, domain.NotFoundError{Resource: "booking", Msg: msgNotFoundOrPaid}
		case errors.Is(err, models.ErrGroupCancelled):
			return nil, domain.PolicyError{Reason: msgPayCancelled}
		default:
			return nil, err
		}
	}

	if err := s.store.SaveGroupPayment(ctx, g); err != nil {
		if domain.IsConflict(err) {
			return nil, err
		}
		return nil, domain.PersistenceError{Op: "mark paid", Err: err}
	}
	return g, nil
}

// Cancel cancels the caller's confirmed group when the cancellation window allows it
func (s *LifecycleService) Cancel(ctx context.Context, rc *models.RequestContext, reference string) (*models.BookingGroup, error) {
	reference = strings.TrimSpace(reference)
	g, err := s.cancel(ctx, rc, reference)

	event := s.event(rc, reference, AuditActionCancel, map[string]interface{}{})
	if err != nil {
		rc.Fail(NoticeMessage(err, msgCancelFailed), models.ReturnTo{View: models.ViewMyBookings, Reference: reference})
		s.fail(ctx, event, err, "Cancellation")
		return nil, err
	}

	event.Details["seats"] = g.SeatNumbers()
	rc.Succeed(msgCancelled, models.ReturnTo{
		View:       models.ViewMyBookings,
		BusID:      g.BusID,
		TravelDate: g.TravelDateString(),
		Reference:  g.Reference,
	})
	s.succeed(ctx, event, "Booking group cancelled")
	return g, nil
}

func (s *LifecycleService) cancel(ctx context.Context, rc *models.RequestContext, reference string) (*models.BookingGroup, error) {
	if !rc.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	if reference == "" {
		return nil, domain.ValidationError{Violations: []string{"Booking reference is required"}}
	}

	g, err := s.store.GetGroup(ctx, reference, rc.PrincipalID)
	if err != nil {
		return nil, domain.PersistenceError{Op: "load booking", Err: err}
	}
	if g == nil || g.BookingStatus == models.BookingStatusCancelled {
		return nil, domain.NotFoundError{Resource: "booking", Msg: msgNotFoundOrCancel}
	}
	if g.BookingStatus == models.BookingStatusCompleted {
		return nil, domain.PolicyError{Reason: msgCompletedNoCancel}
	}

	bus, err := s.catalog.GetByID(ctx, g.BusID)
	if err != nil {
		return nil, domain.PersistenceError{Op: "load bus", Err: err}
	}
	if bus == nil {
		return nil, domain.NotFoundError{Resource: "bus", Msg: "Bus not found"}
	}
	g.Bus = bus

	now := s.now()
	if err := s.policy.Check(g.TravelDate, bus, now); err != nil {
		if domain.IsPolicy(err) {
			return nil, err
		}
		return nil, domain.PersistenceError{Op: "check cancellation window", Err: err}
	}

	if err := g.Cancel(now); err != nil {
		return nil, domain.NotFoundError{Resource: "booking", Msg: msgNotFoundOrCancel}
	}
	if err := s.store.SaveGroupStatus(ctx, g, models.BookingStatusConfirmed); err != nil {
		if domain.IsConflict(err) {
			return nil, err
		}
		return nil, domain.PersistenceError{Op: "cancel booking", Err: err}
	}

	invalidate(ctx, s.cache, s.logger, g.BusID, g.TravelDateString())
	return g, nil
}

// AdminSetStatus moves any group to any booking status without the time window check.
// Only reachable behind the administrative boundary.
func (s *LifecycleService) AdminSetStatus(ctx context.Context, rc *models.RequestContext, reference string, req models.UpdateBookingStatusRequest) (*models.BookingGroup, error) {
	reference = strings.TrimSpace(reference)
	g, from, err := s.adminSetStatus(ctx, reference, req)

	event := s.event(rc, reference, AuditActionAdminStatus, map[string]interface{}{
		"status": req.Status,
		"from":   from,
	})
	if err != nil {
		rc.Fail(NoticeMessage(err, msgUpdateFailed), models.ReturnTo{View: models.ViewAdminBookings, Reference: reference})
		s.fail(ctx, event, err, "Status change")
		return nil, err
	}

	rc.Succeed(msgStatusUpdated, models.ReturnTo{View: models.ViewAdminBookings, Reference: g.Reference})
	s.succeed(ctx, event, "Booking group status changed")
	return g, nil
}

func (s *LifecycleService) adminSetStatus(ctx context.Context, reference string, req models.UpdateBookingStatusRequest) (*models.BookingGroup, models.BookingStatus, error) {
	violations := s.validator.Violations(req)
	if reference == "" {
		violations = append([]string{"Booking reference is required"}, violations...)
	}
	if len(violations) > 0 {
		return nil, "", domain.ValidationError{Violations: violations}
	}

	g, err := s.store.GetGroup(ctx, reference, "")
	if err != nil {
		return nil, "", domain.PersistenceError{Op: "load booking", Err: err}
	}
	if g == nil {
		return nil, "", domain.NotFoundError{Resource: "booking", Msg: msgBookingNotFound}
	}

	from := g.BookingStatus
	if from == req.Status {
		return g, from, nil
	}
	if err := g.SetStatus(req.Status, s.now()); err != nil {
		return nil, from, domain.ValidationError{Violations: []string{"Status must be one of: confirmed cancelled completed"}}
	}
	if err := s.store.SaveGroupStatus(ctx, g, from); err != nil {
		if domain.IsConflict(err) {
			return nil, from, err
		}
		return nil, from, domain.PersistenceError{Op: "update booking status", Err: err}
	}

	if from == models.BookingStatusCancelled || req.Status == models.BookingStatusCancelled {
		invalidate(ctx, s.cache, s.logger, g.BusID, g.TravelDateString())
	}
	return g, from, nil
}

// ListMine returns the caller's groups, newest travel date first
func (s *LifecycleService) ListMine(ctx context.Context, rc *models.RequestContext) ([]models.BookingSummary, error) {
	if !rc.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	groups, err := s.store.ListGroupsByUser(ctx, rc.PrincipalID)
	if err != nil {
		return nil, s.loadFailed(err)
	}
	return s.summarize(ctx, groups)
}

// GetMine returns one group owned by the caller with its bus attached
func (s *LifecycleService) GetMine(ctx context.Context, rc *models.RequestContext, reference string) (*models.BookingGroup, *models.BookingSummary, error) {
	if !rc.Authenticated() {
		return nil, nil, domain.ErrUnauthenticated
	}
	g, err := s.store.GetGroup(ctx, strings.TrimSpace(reference), rc.PrincipalID)
	if err != nil {
		return nil, nil, s.loadFailed(err)
	}
	if g == nil {
		return nil, nil, domain.NotFoundError{Resource: "booking", Msg: msgBookingNotFound}
	}
	summaries, err := s.summarize(ctx, []*models.BookingGroup{g})
	if err != nil {
		return nil, nil, err
	}
	return g, &summaries[0], nil
}

// AdminList lists groups matching the filter
func (s *LifecycleService) AdminList(ctx context.Context, filter models.BookingFilter) ([]models.BookingSummary, error) {
	groups, err := s.store.ListGroups(ctx, filter)
	if err != nil {
		return nil, s.loadFailed(err)
	}
	return s.summarize(ctx, groups)
}

// CompleteDeparted marks confirmed groups completed once departure is older than after
func (s *LifecycleService) CompleteDeparted(ctx context.Context, after time.Duration) (int64, error) {
	cutoff := s.now().Add(-after)
	n, err := s.store.CompleteDeparted(ctx, cutoff, s.policy.Location.String())
	if err != nil {
		return 0, domain.PersistenceError{Op: "complete departed bookings", Err: err}
	}
	if n > 0 && s.auditor != nil {
		s.auditor.Record(ctx, BookingAuditEvent{
			Action:  AuditActionAutoComplete,
			Outcome: AuditOutcomeSuccess,
			Details: map[string]interface{}{"rows": n, "cutoff": cutoff},
		})
	}
	return n, nil
}

func (s *LifecycleService) summarize(ctx context.Context, groups []*models.BookingGroup) ([]models.BookingSummary, error) {
	buses := make(map[int64]*models.Bus)
	now := s.now()
	out := make([]models.BookingSummary, 0, len(groups))

	for _, g := range groups {
		bus, ok := buses[g.BusID]
		if !ok {
			var err error
			bus, err = s.catalog.GetByID(ctx, g.BusID)
			if err != nil {
				return nil, s.loadFailed(err)
			}
			buses[g.BusID] = bus
		}
		g.Bus = bus

		summary := models.Summarize(g, bus)
		if bus != nil && g.BookingStatus == models.BookingStatusConfirmed {
			summary.CanCancel = s.policy.Allows(g.TravelDate, bus, now)
		}
		out = append(out, summary)
	}
	return out, nil
}

func (s *LifecycleService) loadFailed(err error) error {
	s.logger.WithError(err).Error("Failed to load bookings")
	return domain.PersistenceError{Op: "load bookings", Err: err}
}

func (s *LifecycleService) event(rc *models.RequestContext, reference, action string, details map[string]interface{}) BookingAuditEvent {
	return BookingAuditEvent{
		Reference: reference,
		UserID:    rc.PrincipalID,
		Action:    action,
		Outcome:   AuditOutcomeSuccess,
		IPAddress: rc.IPAddress,
		UserAgent: rc.UserAgent,
		Details:   details,
	}
}

func (s *LifecycleService) succeed(ctx context.Context, event BookingAuditEvent, msg string) {
	s.logger.WithFields(logrus.Fields{
		"reference": event.Reference,
		"user_id":   event.UserID,
		"action":    event.Action,
	}).Info(msg)
	if s.auditor != nil {
		s.auditor.Record(ctx, event)
	}
}

func (s *LifecycleService) fail(ctx context.Context, event BookingAuditEvent, err error, what string) {
	entry := s.logger.WithFields(logrus.Fields{
		"reference": event.Reference,
		"user_id":   event.UserID,
		"action":    event.Action,
	}).WithError(err)
	if domain.IsPersistence(err) {
		entry.Error(what + " failed")
	} else {
		entry.Warn(what + " rejected")
	}

	if s.auditor != nil {
		event.Outcome = AuditOutcomeFailure
		event.Details["error"] = err.Error()
		s.auditor.Record(ctx, event)
	}
}
