package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrEmptyGroup           = errors.New("booking group has no seats")
	ErrGroupInconsistent    = errors.New("booking rows of one reference disagree")
	ErrAlreadyPaid          = errors.New("booking is already paid")
	ErrGroupCancelled       = errors.New("booking is cancelled")
	ErrNotConfirmed         = errors.New("booking is not confirmed")
	ErrInvalidBookingStatus = errors.New("invalid booking status")
)

// BookingGroup is the aggregate of all rows sharing one reference.
// Every lifecycle change goes through it so the rows always move together.
type BookingGroup struct {
	Reference      string        `json:"booking_reference"`
	UserID         string        `json:"user_id"`
	BusID          int64         `json:"bus_id"`
	TravelDate     time.Time     `json:"travel_date"`
	PassengerName  string        `json:"passenger_name"`
	PassengerPhone string        `json:"passenger_phone"`
	PaymentStatus  PaymentStatus `json:"payment_status"`
	BookingStatus  BookingStatus `json:"booking_status"`
	PaymentMethod  *string       `json:"payment_method,omitempty"`
	TransactionID  *string       `json:"transaction_id,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	Bookings       []Booking     `json:"bookings"`
	Bus            *Bus          `json:"bus,omitempty"`
}

// NewBookingGroup builds a fresh group: one row per seat, confirmed and pending,
// each charged the bus price
func NewBookingGroup(reference, userID string, bus *Bus, seats []Seat, travelDate time.Time, passengerName, passengerPhone string, now time.Time) (*BookingGroup, error) {
	if len(seats) == 0 {
		return nil, ErrEmptyGroup
	}

	g := &BookingGroup{
		Reference:      reference,
		UserID:         userID,
		BusID:          bus.ID,
		TravelDate:     travelDate,
		PassengerName:  passengerName,
		PassengerPhone: passengerPhone,
		PaymentStatus:  PaymentStatusPending,
		BookingStatus:  BookingStatusConfirmed,
		CreatedAt:      now,
		Bus:            bus,
		Bookings:       make([]Booking, 0, len(seats)),
	}
	for _, seat := range seats {
		g.Bookings = append(g.Bookings, Booking{
			Reference:      reference,
			UserID:         userID,
			BusID:          bus.ID,
			SeatID:         seat.ID,
			SeatNumber:     seat.SeatNumber,
			TravelDate:     travelDate,
			PassengerName:  passengerName,
			PassengerPhone: passengerPhone,
			Amount:         bus.PriceBirr,
			PaymentStatus:  PaymentStatusPending,
			BookingStatus:  BookingStatusConfirmed,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	g.sortBookings()
	return g, nil
}

// GroupFromRows rebuilds the aggregate from stored rows and checks they agree
func GroupFromRows(rows []Booking) (*BookingGroup, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyGroup
	}

	first := rows[0]
	g := &BookingGroup{
		Reference:      first.Reference,
		UserID:         first.UserID,
		BusID:          first.BusID,
		TravelDate:     first.TravelDate,
		PassengerName:  first.PassengerName,
		PassengerPhone: first.PassengerPhone,
		PaymentStatus:  first.PaymentStatus,
		BookingStatus:  first.BookingStatus,
		PaymentMethod:  first.PaymentMethod,
		TransactionID:  first.TransactionID,
		CreatedAt:      first.CreatedAt,
		Bookings:       append([]Booking(nil), rows...),
	}

	for _, row := range rows[1:] {
		if row.Reference != g.Reference ||
			row.UserID != g.UserID ||
			row.BusID != g.BusID ||
			!sameDate(row.TravelDate, g.TravelDate) ||
			row.PassengerName != g.PassengerName ||
			row.PassengerPhone != g.PassengerPhone ||
			row.PaymentStatus != g.PaymentStatus ||
			row.BookingStatus != g.BookingStatus {
			return nil, fmt.Errorf("%w: reference %s", ErrGroupInconsistent, g.Reference)
		}
		if row.CreatedAt.Before(g.CreatedAt) {
			g.CreatedAt = row.CreatedAt
		}
	}

	g.sortBookings()
	return g, nil
}

// GroupRows splits rows into groups keyed by reference, keeping the order in which
// references first appear
func GroupRows(rows []Booking) ([]*BookingGroup, error) {
	order := make([]string, 0)
	byRef := make(map[string][]Booking)
	for _, row := range rows {
		if _, seen := byRef[row.Reference]; !seen {
			order = append(order, row.Reference)
		}
		byRef[row.Reference] = append(byRef[row.Reference], row)
	}

	groups := make([]*BookingGroup, 0, len(order))
	for _, ref := range order {
		g, err := GroupFromRows(byRef[ref])
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// Size is the number of seats in the group
func (g *BookingGroup) Size() int {
	return len(g.Bookings)
}

// TotalAmount is the sum of the per-seat amounts
func (g *BookingGroup) TotalAmount() float64 {
	var total float64
	for _, b := range g.Bookings {
		total += b.Amount
	}
	return total
}

// SeatNumbers returns the seat numbers in display order
func (g *BookingGroup) SeatNumbers() []string {
	out := make([]string, 0, len(g.Bookings))
	for _, b := range g.Bookings {
		out = append(out, b.SeatNumber)
	}
	return out
}

// SeatIDs returns the seat ids in display order
func (g *BookingGroup) SeatIDs() []int64 {
	out := make([]int64, 0, len(g.Bookings))
	for _, b := range g.Bookings {
		out = append(out, b.SeatID)
	}
	return out
}

// TravelDateString formats the travel date for storage and display
func (g *BookingGroup) TravelDateString() string {
	return g.TravelDate.Format(DateLayout)
}

// IsActive reports whether the group's seats are held
func (g *BookingGroup) IsActive() bool {
	return g.BookingStatus != BookingStatusCancelled
}

// CanPay reports whether mark-paid is allowed
func (g *BookingGroup) CanPay() bool {
	return g.PaymentStatus == PaymentStatusPending && g.BookingStatus != BookingStatusCancelled
}

// MarkPaid records a self-reported payment on every row. Booking status is untouched.
func (g *BookingGroup) MarkPaid(method, transactionID string, at time.Time) error {
	if g.PaymentStatus == PaymentStatusPaid {
		return ErrAlreadyPaid
	}
	if g.BookingStatus == BookingStatusCancelled {
		return ErrGroupCancelled
	}

	g.PaymentStatus = PaymentStatusPaid
	g.PaymentMethod = &method
	g.TransactionID = &transactionID
	for i := range g.Bookings {
		g.Bookings[i].PaymentStatus = PaymentStatusPaid
		g.Bookings[i].PaymentMethod = &method
		g.Bookings[i].TransactionID = &transactionID
		g.Bookings[i].PaidAt = &at
		g.Bookings[i].UpdatedAt = at
	}
	return nil
}

// Cancel moves a confirmed group to cancelled
func (g *BookingGroup) Cancel(at time.Time) error {
	if g.BookingStatus != BookingStatusConfirmed {
		return ErrNotConfirmed
	}
	g.applyStatus(BookingStatusCancelled, at)
	return nil
}

// SetStatus is the administrative transition; any known status is reachable
func (g *BookingGroup) SetStatus(status BookingStatus, at time.Time) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidBookingStatus, status)
	}
	g.applyStatus(status, at)
	return nil
}

func (g *BookingGroup) applyStatus(status BookingStatus, at time.Time) {
	g.BookingStatus = status
	for i := range g.Bookings {
		g.Bookings[i].BookingStatus = status
		g.Bookings[i].UpdatedAt = at
		if status == BookingStatusCancelled {
			g.Bookings[i].CancelledAt = &at
		} else {
			g.Bookings[i].CancelledAt = nil
		}
	}
}

func (g *BookingGroup) sortBookings() {
	numbers := g.SeatNumbers()
	SortSeatNumbers(numbers)
	rank := make(map[string]int, len(numbers))
	for i, n := range numbers {
		rank[n] = i
	}
	sorted := make([]Booking, len(g.Bookings))
	for _, b := range g.Bookings {
		sorted[rank[b.SeatNumber]] = b
	}
	g.Bookings = sorted
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
