package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ethiobus/booking-backend/internal/domain"
	"github.com/ethiobus/booking-backend/internal/models"
	"github.com/ethiobus/booking-backend/pkg/validator"
)

// DefaultMaxSeats is the seat-count ceiling of one reservation
const DefaultMaxSeats = 5

// ReservationConfig holds the rules of the reservation transaction
type ReservationConfig struct {
	MaxSeats int
	Currency string
	Location *time.Location
}

// ReservationService validates a multi-seat request and claims the seats under one reference
type ReservationService struct {
	catalog   BusCatalog
	store     BookingStore
	refs      *ReferenceGenerator
	cache     AvailabilityCache
	auditor   Auditor
	validator *validator.RequestValidator
	logger    *logrus.Logger
	cfg       ReservationConfig
	now       Clock
}

// NewReservationService creates the service. cache and auditor may be nil.
func NewReservationService(
	catalog BusCatalog,
	store BookingStore,
	refs *ReferenceGenerator,
	cache AvailabilityCache,
	auditor Auditor,
	logger *logrus.Logger,
	cfg ReservationConfig,
	now Clock,
) *ReservationService {
	if cfg.MaxSeats <= 0 {
		cfg.MaxSeats = DefaultMaxSeats
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Currency == "" {
		cfg.Currency = "ETB"
	}
	if now == nil {
		now = time.Now
	}
	return &ReservationService{
		catalog:   catalog,
		store:     store,
		refs:      refs,
		cache:     cache,
		auditor:   auditor,
		validator: validator.NewRequestValidator(),
		logger:    logger,
		cfg:       cfg,
		now:       now,
	}
}

// Reserve claims every requested seat for the caller or none of them.
// The outcome notice is recorded on rc in both cases.
func (s *ReservationService) Reserve(ctx context.Context, rc *models.RequestContext, req models.CreateReservationRequest) (*models.BookingGroup, error) {
	returnTo := models.ReturnTo{
		View:       models.ViewSeatSelection,
		BusID:      req.BusID,
		TravelDate: strings.TrimSpace(req.TravelDate),
	}

	group, err := s.reserve(ctx, rc, req)
	if err != nil {
		rc.Fail(NoticeMessage(err, msgReserveFailed), returnTo)
		s.logFailure(rc, req, err)
		s.audit(ctx, rc, req, nil, err)
		return nil, err
	}

	rc.Succeed(s.successMessage(group), models.ReturnTo{
		View:       models.ViewPayment,
		BusID:      group.BusID,
		TravelDate: group.TravelDateString(),
		Reference:  group.Reference,
	})
	s.logger.WithFields(logrus.Fields{
		"reference": group.Reference,
		"user_id":   group.UserID,
		"bus_id":    group.BusID,
		"seats":     group.SeatNumbers(),
		"total":     group.TotalAmount(),
	}).Info("Booking group reserved")
	s.audit(ctx, rc, req, group, nil)
	return group, nil
}

func (s *ReservationService) reserve(ctx context.Context, rc *models.RequestContext, req models.CreateReservationRequest) (*models.BookingGroup, error) {
	if !rc.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}

	req.PassengerName = strings.TrimSpace(req.PassengerName)
	req.PassengerPhone = strings.TrimSpace(req.PassengerPhone)
	req.Seats = strings.TrimSpace(req.Seats)
	req.TravelDate = strings.TrimSpace(req.TravelDate)

	now := s.now()
	violations := s.validator.Violations(req)

	travelDate, violation := parseTravelDate(req.TravelDate, now, s.cfg.Location)
	if violation != "" && !containsPrefix(violations, "Travel date") {
		violations = append(violations, violation)
	}

	seatNumbers, seatViolations := parseSeatList(req.Seats, s.cfg.MaxSeats)
	if req.Seats != "" {
		violations = append(violations, seatViolations...)
	}

	if len(violations) > 0 {
		return nil, domain.ValidationError{Violations: violations}
	}

	bus, err := s.catalog.GetByID(ctx, req.BusID)
	if err != nil {
		return nil, domain.PersistenceError{Op: "load bus", Err: err}
	}
	if bus == nil || !bus.IsActive() {
		return nil, domain.NotFoundError{Resource: "bus", Msg: "Bus not found or inactive"}
	}

	seats, err := s.resolveSeats(ctx, bus.ID, seatNumbers)
	if err != nil {
		return nil, err
	}

	reference, err := s.refs.GenerateUnique(ctx, s.store)
	if err != nil {
		return nil, domain.PersistenceError{Op: "generate reference", Err: err}
	}

	group, err := models.NewBookingGroup(
		reference,
		rc.PrincipalID,
		bus,
		seats,
		travelDate,
		req.PassengerName,
		validator.NewPhoneValidator().Sanitize(req.PassengerPhone),
		now,
	)
	if err != nil {
		return nil, domain.ValidationError{Violations: []string{"Please select at least one seat"}}
	}

	if err := s.store.CreateGroup(ctx, group); err != nil {
		if domain.IsConflict(err) {
			return nil, err
		}
		return nil, domain.PersistenceError{Op: "reserve seats", Err: err}
	}

	invalidate(ctx, s.cache, s.logger, bus.ID, group.TravelDateString())
	return group, nil
}

// resolveSeats maps requested numbers to seats of the bus; unknown numbers are a NotFoundError
func (s *ReservationService) resolveSeats(ctx context.Context, busID int64, numbers []string) ([]models.Seat, error) {
	seats, err := s.catalog.GetSeatsByNumbers(ctx, busID, numbers)
	if err != nil {
		return nil, domain.PersistenceError{Op: "load seats", Err: err}
	}

	found := make(map[string]bool, len(seats))
	for _, seat := range seats {
		found[seat.SeatNumber] = true
	}
	var missing []string
	for _, n := range numbers {
		if !found[n] {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		models.SortSeatNumbers(missing)
		return nil, domain.NotFoundError{
			Resource: "seat",
			Msg:      fmt.Sprintf("Seat %s does not exist on this bus", strings.Join(missing, ", ")),
		}
	}
	return seats, nil
}

func (s *ReservationService) successMessage(g *models.BookingGroup) string {
	route := ""
	if g.Bus != nil {
		route = " " + g.Bus.RouteLabel()
	}
	return message.NewPrinter(language.English).Sprintf(
		"You booked successfully! Your booking reference is: %s.%s on %s. Seats: %s. Total: %.2f %s.",
		g.Reference,
		route,
		g.TravelDate.Format("Jan 2, 2006"),
		strings.Join(g.SeatNumbers(), ", "),
		g.TotalAmount(),
		s.cfg.Currency,
	)
}

// FormatAmount renders an amount with thousands separators, e.g. 1,000.00
func FormatAmount(amount float64) string {
	return message.NewPrinter(language.English).Sprintf("%.2f", amount)
}

func (s *ReservationService) logFailure(rc *models.RequestContext, req models.CreateReservationRequest, err error) {
	entry := s.logger.WithFields(logrus.Fields{
		"user_id": rc.PrincipalID,
		"bus_id":  req.BusID,
		"seats":   req.Seats,
	}).WithError(err)

	var persistence domain.PersistenceError
	if errors.As(err, &persistence) {
		entry.Error("Reservation failed")
		return
	}
	entry.Warn("Reservation rejected")
}

func (s *ReservationService) audit(ctx context.Context, rc *models.RequestContext, req models.CreateReservationRequest, g *models.BookingGroup, err error) {
	if s.auditor == nil {
		return
	}
	event := BookingAuditEvent{
		UserID:    rc.PrincipalID,
		Action:    AuditActionReserve,
		Outcome:   AuditOutcomeSuccess,
		IPAddress: rc.IPAddress,
		UserAgent: rc.UserAgent,
		Details: map[string]interface{}{
			"bus_id":      req.BusID,
			"travel_date": req.TravelDate,
			"seats":       req.Seats,
		},
	}
	if g != nil {
		event.Reference = g.Reference
		event.Details["total"] = g.TotalAmount()
	}
	if err != nil {
		event.Outcome = AuditOutcomeFailure
		event.Details["error"] = err.Error()
	}
	s.auditor.Record(ctx, event)
}

func containsPrefix(values []string, prefix string) bool {
	for _, v := range values {
		if strings.HasPrefix(v, prefix) {
			return true
		}
	}
	return false
}
