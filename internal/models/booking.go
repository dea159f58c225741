package models

import (
	"time"
)

// PaymentStatus represents the payment status of a booking
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

// IsValid checks the status against the known set
func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusConfirmed, BookingStatusCancelled, BookingStatusCompleted:
		return true
	}
	return false
}

// DateLayout is the wire and storage layout of travel dates
const DateLayout = "2006-01-02"

// Booking is one seat's reservation row
type Booking struct {
	ID             int64         `json:"id" db:"id"`
	Reference      string        `json:"booking_reference" db:"booking_reference"`
	UserID         string        `json:"user_id" db:"user_id"`
	BusID          int64         `json:"bus_id" db:"bus_id"`
	SeatID         int64         `json:"seat_id" db:"seat_id"`
	SeatNumber     string        `json:"seat_number" db:"seat_number"`
	TravelDate     time.Time     `json:"travel_date" db:"travel_date"`
	PassengerName  string        `json:"passenger_name" db:"passenger_name"`
	PassengerPhone string        `json:"passenger_phone" db:"passenger_phone"`
	Amount         float64       `json:"amount" db:"amount"`
	PaymentStatus  PaymentStatus `json:"payment_status" db:"payment_status"`
	BookingStatus  BookingStatus `json:"booking_status" db:"booking_status"`
	PaymentMethod  *string       `json:"payment_method,omitempty" db:"payment_method"`
	TransactionID  *string       `json:"transaction_id,omitempty" db:"transaction_id"`
	PaidAt         *time.Time    `json:"paid_at,omitempty" db:"paid_at"`
	CancelledAt    *time.Time    `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether the row still holds its seat
func (b *Booking) IsActive() bool {
	return b.BookingStatus != BookingStatusCancelled
}

// CreateReservationRequest is the create-reservation form
type CreateReservationRequest struct {
	BusID          int64  `json:"bus_id" form:"bus_id" validate:"gt=0"`
	TravelDate     string `json:"travel_date" form:"travel_date" validate:"required"`
	PassengerName  string `json:"passenger_name" form:"passenger_name" validate:"required,min=2,max=100"`
	PassengerPhone string `json:"passenger_phone" form:"passenger_phone" validate:"required,ethphone"`
	Seats          string `json:"seats" form:"seats" validate:"required"` // comma separated seat numbers
}

// PaymentRequest is the mark-paid form
type PaymentRequest struct {
	PaymentMethod string `json:"payment_method" form:"payment_method" validate:"required,max=50"`
	TransactionID string `json:"transaction_id" form:"transaction_id" validate:"required,max=100"`
}

// UpdateBookingStatusRequest is the administrative transition form
type UpdateBookingStatusRequest struct {
	Status BookingStatus `json:"status" form:"status" validate:"required,oneof=confirmed cancelled completed"`
}

// BookingFilter narrows the administrative booking list
type BookingFilter struct {
	Status     BookingStatus
	TravelDate *time.Time
	Search     string
	Limit      int
}

// PaymentMethods lists the labels offered to passengers. Any non-empty label is accepted.
var PaymentMethods = []string{
	"CBE",
	"Awash Bank",
	"Dashen Bank",
	"Bank of Abyssinia",
	"M-Pesa",
	"Cash at Station",
}
