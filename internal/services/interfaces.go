package services

import (
	"context"
	"time"

	"github.com/ethiobus/booking-backend/internal/models"
)

// BusCatalog is the read-only bus and seat catalog
type BusCatalog interface {
	GetByID(ctx context.Context, busID int64) (*models.Bus, error)
	GetSeats(ctx context.Context, busID int64) ([]models.Seat, error)
	GetSeatsByNumbers(ctx context.Context, busID int64, numbers []string) ([]models.Seat, error)
	Search(ctx context.Context, origin, destination, travelDate string) ([]models.BusSearchResult, error)
}

// BookingStore persists booking groups. Implementations must serialize the
// availability check and the insert for each (bus, seat, date).
type BookingStore interface {
	ActiveSeatNumbers(ctx context.Context, busID int64, travelDate string) ([]string, error)
	ReferenceExists(ctx context.Context, reference string) (bool, error)
	CreateGroup(ctx context.Context, g *models.BookingGroup) error
	GetGroup(ctx context.Context, reference, userID string) (*models.BookingGroup, error)
	ListGroupsByUser(ctx context.Context, userID string) ([]*models.BookingGroup, error)
	ListGroups(ctx context.Context, filter models.BookingFilter) ([]*models.BookingGroup, error)
	SaveGroupPayment(ctx context.Context, g *models.BookingGroup) error
	SaveGroupStatus(ctx context.Context, g *models.BookingGroup, expected models.BookingStatus) error
	CompleteDeparted(ctx context.Context, cutoff time.Time, tz string) (int64, error)
}

// AvailabilityCache is the optional advisory seat map cache.
// SetOccupied takes the generation GetOccupied returned; a write under a
// generation that Invalidate has since moved past must never be served.
type AvailabilityCache interface {
	GetOccupied(ctx context.Context, busID int64, travelDate string) (seats []string, generation int64, ok bool, err error)
	SetOccupied(ctx context.Context, busID int64, travelDate string, generation int64, seats []string) error
	Invalidate(ctx context.Context, busID int64, travelDate string) error
}

// Auditor records booking events. Failures are logged by the implementation, never returned.
type Auditor interface {
	Record(ctx context.Context, event BookingAuditEvent)
}

// Clock returns the current time
type Clock func() time.Time
