package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ethiobus/booking-backend/internal/domain"
	"github.com/ethiobus/booking-backend/internal/models"
)

// AvailabilityService computes free and occupied seats. Results are advisory:
// nothing here locks, and the reservation transaction re-checks every seat.
type AvailabilityService struct {
	catalog BusCatalog
	store   BookingStore
	cache   AvailabilityCache
	logger  *logrus.Logger
	now     Clock
	loc     *time.Location
}

// NewAvailabilityService creates the service. cache may be nil.
func NewAvailabilityService(catalog BusCatalog, store BookingStore, cache AvailabilityCache, logger *logrus.Logger, loc *time.Location, now Clock) *AvailabilityService {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AvailabilityService{
		catalog: catalog,
		store:   store,
		cache:   cache,
		logger:  logger,
		now:     now,
		loc:     loc,
	}
}

// Availability returns the free count and occupied seat numbers of a bus on a date
func (s *AvailabilityService) Availability(ctx context.Context, busID int64, travelDate time.Time) (*models.SeatAvailability, error) {
	bus, err := s.activeBus(ctx, busID)
	if err != nil {
		return nil, err
	}
	return s.availabilityFor(ctx, bus, travelDate)
}

// SeatMap returns every seat of an active bus with its occupied flag for the date
func (s *AvailabilityService) SeatMap(ctx context.Context, busID int64, travelDate string) (*models.Bus, *models.SeatAvailability, error) {
	date, violation := parseTravelDate(travelDate, s.now(), s.loc)
	if violation != "" {
		return nil, nil, domain.ValidationError{Violations: []string{violation}}
	}

	bus, err := s.activeBus(ctx, busID)
	if err != nil {
		return nil, nil, err
	}

	seats, err := s.catalog.GetSeats(ctx, bus.ID)
	if err != nil {
		return nil, nil, domain.PersistenceError{Op: "load seats", Err: err}
	}

	availability, err := s.availabilityFor(ctx, bus, date)
	if err != nil {
		return nil, nil, err
	}

	occupied := make(map[string]bool, len(availability.OccupiedSeats))
	for _, n := range availability.OccupiedSeats {
		occupied[n] = true
	}
	availability.Seats = make([]models.SeatStatus, 0, len(seats))
	for _, seat := range seats {
		availability.Seats = append(availability.Seats, models.SeatStatus{
			SeatID:     seat.ID,
			SeatNumber: seat.SeatNumber,
			SeatType:   seat.SeatType,
			Occupied:   occupied[seat.SeatNumber],
		})
	}
	return bus, availability, nil
}

// Search lists active buses between two cities with their free seat count for the date
func (s *AvailabilityService) Search(ctx context.Context, origin, destination, travelDate string) ([]models.BusSearchResult, error) {
	var violations []string
	if strings.TrimSpace(origin) == "" {
		violations = append(violations, "Origin is required")
	}
	if strings.TrimSpace(destination) == "" {
		violations = append(violations, "Destination is required")
	}
	date, violation := parseTravelDate(travelDate, s.now(), s.loc)
	if violation != "" {
		violations = append(violations, violation)
	}
	if len(violations) > 0 {
		return nil, domain.ValidationError{Violations: violations}
	}

	results, err := s.catalog.Search(ctx, origin, destination, date.Format(models.DateLayout))
	if err != nil {
		return nil, domain.PersistenceError{Op: "search buses", Err: err}
	}
	for i := range results {
		if results[i].AvailableSeats < 0 {
			results[i].AvailableSeats = 0
		}
	}
	return results, nil
}

func (s *AvailabilityService) activeBus(ctx context.Context, busID int64) (*models.Bus, error) {
	bus, err := s.catalog.GetByID(ctx, busID)
	if err != nil {
		return nil, domain.PersistenceError{Op: "load bus", Err: err}
	}
	if bus == nil || !bus.IsActive() {
		return nil, domain.NotFoundError{Resource: "bus", Msg: "Bus not found or inactive"}
	}
	return bus, nil
}

func (s *AvailabilityService) availabilityFor(ctx context.Context, bus *models.Bus, travelDate time.Time) (*models.SeatAvailability, error) {
	date := travelDate.Format(models.DateLayout)

	occupied, err := s.occupiedSeats(ctx, bus.ID, date)
	if err != nil {
		return nil, err
	}

	available := bus.TotalSeats - len(occupied)
	if available < 0 {
		available = 0
	}
	return &models.SeatAvailability{
		BusID:          bus.ID,
		TravelDate:     date,
		TotalSeats:     bus.TotalSeats,
		AvailableCount: available,
		OccupiedSeats:  occupied,
	}, nil
}

func (s *AvailabilityService) occupiedSeats(ctx context.Context, busID int64, date string) ([]string, error) {
	cacheable := false
	var generation int64
	if s.cache != nil {
		seats, gen, ok, err := s.cache.GetOccupied(ctx, busID, date)
		if err != nil {
			s.logger.WithError(err).WithField("bus_id", busID).Warn("Seat map cache read failed")
		} else if ok {
			return seats, nil
		} else {
			cacheable, generation = true, gen
		}
	}

	seats, err := s.store.ActiveSeatNumbers(ctx, busID, date)
	if err != nil {
		return nil, domain.PersistenceError{Op: "load occupied seats", Err: fmt.Errorf("bus %d on %s: %w", busID, date, err)}
	}
	if seats == nil {
		seats = []string{}
	}

	if cacheable {
		if err := s.cache.SetOccupied(ctx, busID, date, generation, seats); err != nil {
			s.logger.WithError(err).WithField("bus_id", busID).Warn("Seat map cache write failed")
		}
	}
	return seats, nil
}

// invalidate drops the cached seat map after a change. Errors are only logged.
func invalidate(ctx context.Context, cache AvailabilityCache, logger *logrus.Logger, busID int64, date string) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(ctx, busID, date); err != nil {
		logger.WithError(err).WithFields(logrus.Fields{"bus_id": busID, "travel_date": date}).
			Warn("Seat map cache invalidation failed")
	}
}
