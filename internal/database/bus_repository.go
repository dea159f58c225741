package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ethiobus/booking-backend/internal/models"
)

// BusRepository reads the bus catalog. The core never writes to it.
type BusRepository struct {
	db *sqlx.DB
}

// NewBusRepository creates a new BusRepository
func NewBusRepository(db *sqlx.DB) *BusRepository {
	return &BusRepository{db: db}
}

const busColumns = `
	b.id, b.bus_name, b.bus_number, b.bus_type, b.total_seats, b.route_id,
	r.origin, r.destination,
	to_char(b.departure_time, 'HH24:MI:SS') AS departure_time,
	to_char(b.arrival_time, 'HH24:MI:SS') AS arrival_time,
	b.price_birr, b.status`

// GetByID retrieves a bus with its route. Returns nil, nil when the bus does not exist.
func (r *BusRepository) GetByID(ctx context.Context, busID int64) (*models.Bus, error) {
	query := `SELECT ` + busColumns + `
		FROM buses b
		JOIN routes r ON r.id = b.route_id
		WHERE b.id = $1`

	bus := &models.Bus{}
	err := r.db.GetContext(ctx, bus, query, busID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bus: %w", err)
	}
	return bus, nil
}

// GetSeats lists every seat of a bus in numeric seat order
func (r *BusRepository) GetSeats(ctx context.Context, busID int64) ([]models.Seat, error) {
	query := `
		SELECT id, bus_id, seat_number, seat_type
		FROM seats
		WHERE bus_id = $1
		ORDER BY NULLIF(regexp_replace(seat_number, '\D', '', 'g'), '')::INT NULLS LAST, seat_number`

	var seats []models.Seat
	if err := r.db.SelectContext(ctx, &seats, query, busID); err != nil {
		return nil, fmt.Errorf("failed to get seats: %w", err)
	}
	return seats, nil
}

// GetSeatsByNumbers returns the seats of a bus matching the given numbers.
// Numbers that do not exist are simply absent from the result.
func (r *BusRepository) GetSeatsByNumbers(ctx context.Context, busID int64, numbers []string) ([]models.Seat, error) {
	if len(numbers) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, bus_id, seat_number, seat_type
		FROM seats
		WHERE bus_id = $1 AND seat_number = ANY($2)`

	var seats []models.Seat
	if err := r.db.SelectContext(ctx, &seats, query, busID, pq.Array(numbers)); err != nil {
		return nil, fmt.Errorf("failed to get seats by number: %w", err)
	}
	return seats, nil
}

// Search lists active buses on a route with their free seat count for the date,
// ordered by departure time
func (r *BusRepository) Search(ctx context.Context, origin, destination, travelDate string) ([]models.BusSearchResult, error) {
	query := `SELECT ` + busColumns + `,
			b.total_seats - (
				SELECT COUNT(*) FROM bookings bk
				WHERE bk.bus_id = b.id
				  AND bk.travel_date = $3
				  AND bk.booking_status <> 'cancelled'
			) AS available_seats
		FROM buses b
		JOIN routes r ON r.id = b.route_id
		WHERE LOWER(r.origin) = $1
		  AND LOWER(r.destination) = $2
		  AND b.status = 'active'
		ORDER BY b.departure_time, b.id`

	var results []models.BusSearchResult
	err := r.db.SelectContext(ctx, &results, query,
		strings.ToLower(strings.TrimSpace(origin)),
		strings.ToLower(strings.TrimSpace(destination)),
		travelDate,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search buses: %w", err)
	}
	return results, nil
}
