package services

import (
	"fmt"
	"time"

	"github.com/ethiobus/booking-backend/internal/domain"
	"github.com/ethiobus/booking-backend/internal/models"
)

// DefaultCancellationWindow is the minimum lead time before departure for self-service cancellation
const DefaultCancellationWindow = 24 * time.Hour

// CancellationPolicy decides whether a group may still be cancelled by its owner.
// Departure is the travel date at the bus's scheduled departure time in Location.
type CancellationPolicy struct {
	Window   time.Duration
	Location *time.Location
}

// NewCancellationPolicy creates a policy. Zero window and nil location fall back to 24h and UTC.
func NewCancellationPolicy(window time.Duration, loc *time.Location) CancellationPolicy {
	if window <= 0 {
		window = DefaultCancellationWindow
	}
	if loc == nil {
		loc = time.UTC
	}
	return CancellationPolicy{Window: window, Location: loc}
}

// Remaining returns the time left until departure; negative once departed
func (p CancellationPolicy) Remaining(travelDate time.Time, bus *models.Bus, now time.Time) (time.Duration, error) {
	departure, err := bus.DepartureOn(travelDate, p.Location)
	if err != nil {
		return 0, fmt.Errorf("bus %d departure time: %w", bus.ID, err)
	}
	return departure.Sub(now), nil
}

// Check returns a PolicyError when fewer than Window remain before departure
func (p CancellationPolicy) Check(travelDate time.Time, bus *models.Bus, now time.Time) error {
	remaining, err := p.Remaining(travelDate, bus, now)
	if err != nil {
		return err
	}
	if remaining < 0 {
		return domain.PolicyError{Reason: "Cannot cancel a booking after the bus has departed"}
	}
	if remaining < p.Window {
		return domain.PolicyError{Reason: fmt.Sprintf(
			"Cannot cancel bookings less than %d hours before departure", int(p.Window.Hours()))}
	}
	return nil
}

// Allows is Check as a boolean, for listing screens
func (p CancellationPolicy) Allows(travelDate time.Time, bus *models.Bus, now time.Time) bool {
	return p.Check(travelDate, bus, now) == nil
}
