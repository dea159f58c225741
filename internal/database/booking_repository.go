package database

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ethiobus/booking-backend/internal/domain"
	"github.com/ethiobus/booking-backend/internal/models"
)

// uniqueViolation is the Postgres SQLSTATE raised by uq_bookings_active_seat
const uniqueViolation = "23505"

// BookingRepository persists booking rows. Every write of a group happens in one transaction.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `
	bk.id, bk.booking_reference, bk.user_id, bk.bus_id, bk.seat_id, s.seat_number,
	bk.travel_date, bk.passenger_name, bk.passenger_phone, bk.amount,
	bk.payment_status, bk.booking_status, bk.payment_method, bk.transaction_id,
	bk.paid_at, bk.cancelled_at, bk.created_at, bk.updated_at`

// ActiveSeatNumbers lists the seat numbers held by active bookings for a bus on a date
func (r *BookingRepository) ActiveSeatNumbers(ctx context.Context, busID int64, travelDate string) ([]string, error) {
	query := `
		SELECT s.seat_number
		FROM bookings bk
		JOIN seats s ON s.id = bk.seat_id
		WHERE bk.bus_id = $1
		  AND bk.travel_date = $2
		  AND bk.booking_status <> 'cancelled'`

	var numbers []string
	if err := r.db.SelectContext(ctx, &numbers, query, busID, travelDate); err != nil {
		return nil, fmt.Errorf("failed to get occupied seats: %w", err)
	}
	models.SortSeatNumbers(numbers)
	return numbers, nil
}

// ReferenceExists checks whether any row already carries the reference
func (r *BookingRepository) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM bookings WHERE booking_reference = $1)`, reference)
	if err != nil {
		return false, fmt.Errorf("failed to check reference uniqueness: %w", err)
	}
	return exists, nil
}

// CreateGroup claims every seat of the group atomically.
// Per-key advisory locks serialize concurrent claimants; the partial unique index is the backstop.
func (r *BookingRepository) CreateGroup(ctx context.Context, g *models.BookingGroup) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	travelDate := g.TravelDateString()
	if err := lockSeats(ctx, tx, g.BusID, g.SeatIDs(), travelDate); err != nil {
		return err
	}

	taken, err := takenSeats(ctx, tx, g.BusID, g.SeatIDs(), travelDate, "")
	if err != nil {
		return err
	}
	if len(taken) > 0 {
		return domain.ConflictError{Seats: taken}
	}

	insert := `
		INSERT INTO bookings (
			booking_reference, user_id, bus_id, seat_id, travel_date,
			passenger_name, passenger_phone, amount, payment_status, booking_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	for i := range g.Bookings {
		b := &g.Bookings[i]
		err := tx.QueryRowxContext(ctx, insert,
			b.Reference, b.UserID, b.BusID, b.SeatID, travelDate,
			b.PassengerName, b.PassengerPhone, b.Amount, b.PaymentStatus, b.BookingStatus,
		).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ConflictError{Seats: []string{b.SeatNumber}, Err: err}
			}
			return fmt.Errorf("failed to insert booking for seat %s: %w", b.SeatNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}
	g.CreatedAt = g.Bookings[0].CreatedAt
	return nil
}

// GetGroup loads every row of a reference. An empty userID skips the ownership filter.
// Returns nil, nil when nothing matches.
func (r *BookingRepository) GetGroup(ctx context.Context, reference, userID string) (*models.BookingGroup, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings bk
		JOIN seats s ON s.id = bk.seat_id
		WHERE bk.booking_reference = $1
		  AND ($2 = '' OR bk.user_id = $2)
		ORDER BY bk.id`

	var rows []models.Booking
	if err := r.db.SelectContext(ctx, &rows, query, reference, userID); err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return models.GroupFromRows(rows)
}

// ListGroupsByUser lists the caller's groups, newest travel date first
func (r *BookingRepository) ListGroupsByUser(ctx context.Context, userID string) ([]*models.BookingGroup, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings bk
		JOIN seats s ON s.id = bk.seat_id
		WHERE bk.user_id = $1
		ORDER BY bk.travel_date DESC, bk.created_at DESC, bk.booking_reference, bk.id`

	var rows []models.Booking
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list user bookings: %w", err)
	}
	return models.GroupRows(rows)
}

// ListGroups lists groups for the administrative view. The limit applies to references, not rows.
func (r *BookingRepository) ListGroups(ctx context.Context, filter models.BookingFilter) ([]*models.BookingGroup, error) {
	conditions := []string{"1 = 1"}
	args := []interface{}{}
	next := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != "" {
		conditions = append(conditions, "booking_status = "+next(string(filter.Status)))
	}
	if filter.TravelDate != nil {
		conditions = append(conditions, "travel_date = "+next(filter.TravelDate.Format(models.DateLayout)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		p := next("%" + search + "%")
		conditions = append(conditions, fmt.Sprintf(
			"(booking_reference ILIKE %s OR passenger_name ILIKE %s OR passenger_phone ILIKE %s)", p, p, p))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + bookingColumns + `
		FROM bookings bk
		JOIN seats s ON s.id = bk.seat_id
		WHERE bk.booking_reference IN (
			SELECT booking_reference FROM bookings
			WHERE ` + strings.Join(conditions, " AND ") + `
			GROUP BY booking_reference
			ORDER BY MIN(created_at) DESC
			LIMIT ` + next(limit) + `
		)
		ORDER BY bk.created_at DESC, bk.booking_reference, bk.id`

	var rows []models.Booking
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return models.GroupRows(rows)
}

// SaveGroupPayment writes the paid state to every row of the group.
// Fails with a conflict when any row is no longer payable.
func (r *BookingRepository) SaveGroupPayment(ctx context.Context, g *models.BookingGroup) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var paidAt time.Time
	if g.Size() > 0 && g.Bookings[0].PaidAt != nil {
		paidAt = *g.Bookings[0].PaidAt
	} else {
		paidAt = time.Now()
	}

	query := `
		UPDATE bookings
		SET payment_status = 'paid',
		    payment_method = $1,
		    transaction_id = $2,
		    paid_at = $3,
		    updated_at = $3
		WHERE booking_reference = $4
		  AND user_id = $5
		  AND payment_status = 'pending'
		  AND booking_status <> 'cancelled'`

	result, err := tx.ExecContext(ctx, query, g.PaymentMethod, g.TransactionID, paidAt, g.Reference, g.UserID)
	if err != nil {
		return fmt.Errorf("failed to mark booking paid: %w", err)
	}
	if err := expectRows(result, g.Size()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit payment: %w", err)
	}
	return nil
}

// SaveGroupStatus moves every row of the group from expected to the group's current status.
// Re-activating a cancelled group re-checks its seats under the same locks as a reservation.
func (r *BookingRepository) SaveGroupStatus(ctx context.Context, g *models.BookingGroup, expected models.BookingStatus) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	travelDate := g.TravelDateString()
	if expected == models.BookingStatusCancelled && g.BookingStatus != models.BookingStatusCancelled {
		if err := lockSeats(ctx, tx, g.BusID, g.SeatIDs(), travelDate); err != nil {
			return err
		}
		taken, err := takenSeats(ctx, tx, g.BusID, g.SeatIDs(), travelDate, g.Reference)
		if err != nil {
			return err
		}
		if len(taken) > 0 {
			return domain.ConflictError{Seats: taken}
		}
	}

	var cancelledAt *time.Time
	updatedAt := time.Now()
	if g.Size() > 0 {
		cancelledAt = g.Bookings[0].CancelledAt
		updatedAt = g.Bookings[0].UpdatedAt
	}

	query := `
		UPDATE bookings
		SET booking_status = $1,
		    cancelled_at = $2,
		    updated_at = $3
		WHERE booking_reference = $4
		  AND booking_status = $5`

	result, err := tx.ExecContext(ctx, query, g.BookingStatus, cancelledAt, updatedAt, g.Reference, expected)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ConflictError{Seats: g.SeatNumbers(), Err: err}
		}
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	if err := expectRows(result, g.Size()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit status change: %w", err)
	}
	return nil
}

// CompleteDeparted marks confirmed bookings completed once departure (in tz) is before cutoff.
// All rows of a group share bus, date and status, so groups move together.
func (r *BookingRepository) CompleteDeparted(ctx context.Context, cutoff time.Time, tz string) (int64, error) {
	query := `
		UPDATE bookings bk
		SET booking_status = 'completed', updated_at = NOW()
		FROM buses b
		WHERE b.id = bk.bus_id
		  AND bk.booking_status = 'confirmed'
		  AND ((bk.travel_date + b.departure_time) AT TIME ZONE $2) < $1`

	result, err := r.db.ExecContext(ctx, query, cutoff, tz)
	if err != nil {
		return 0, fmt.Errorf("failed to complete departed bookings: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// lockSeats takes a transaction-scoped advisory lock per (bus, seat, date) in a fixed order
func lockSeats(ctx context.Context, tx *sqlx.Tx, busID int64, seatIDs []int64, travelDate string) error {
	keys := make([]int64, 0, len(seatIDs))
	for _, id := range seatIDs {
		keys = append(keys, seatLockKey(busID, id, travelDate))
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, key); err != nil {
			return fmt.Errorf("failed to lock seat: %w", err)
		}
	}
	return nil
}

// takenSeats returns the requested seats held by active bookings of another reference
func takenSeats(ctx context.Context, tx *sqlx.Tx, busID int64, seatIDs []int64, travelDate, ownReference string) ([]string, error) {
	query := `
		SELECT s.seat_number
		FROM bookings bk
		JOIN seats s ON s.id = bk.seat_id
		WHERE bk.bus_id = $1
		  AND bk.travel_date = $2
		  AND bk.seat_id = ANY($3)
		  AND bk.booking_status <> 'cancelled'
		  AND bk.booking_reference <> $4`

	var taken []string
	if err := tx.SelectContext(ctx, &taken, query, busID, travelDate, pq.Array(seatIDs), ownReference); err != nil {
		return nil, fmt.Errorf("failed to check seat availability: %w", err)
	}
	models.SortSeatNumbers(taken)
	return taken, nil
}

func seatLockKey(busID, seatID int64, travelDate string) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "booking:%d:%d:%s", busID, seatID, travelDate)
	return int64(h.Sum64())
}

type rowsAffected interface {
	RowsAffected() (int64, error)
}

func expectRows(result rowsAffected, want int) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if int(n) != want {
		return domain.ConflictError{Msg: "booking was changed by another request"}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}
