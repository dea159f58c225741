package models

import "time"

// BookingSummary is one booking group as shown on the my-bookings and admin screens
type BookingSummary struct {
	Reference      string        `json:"booking_reference"`
	UserID         string        `json:"user_id,omitempty"`
	BusID          int64         `json:"bus_id"`
	BusName        string        `json:"bus_name"`
	BusNumber      string        `json:"bus_number"`
	Origin         string        `json:"origin"`
	Destination    string        `json:"destination"`
	TravelDate     string        `json:"travel_date"`
	DepartureTime  string        `json:"departure_time"`
	PassengerName  string        `json:"passenger_name"`
	PassengerPhone string        `json:"passenger_phone"`
	Seats          []string      `json:"seats"`
	SeatCount      int           `json:"seat_count"`
	TotalAmount    float64       `json:"total_amount"`
	PaymentStatus  PaymentStatus `json:"payment_status"`
	BookingStatus  BookingStatus `json:"booking_status"`
	PaymentMethod  *string       `json:"payment_method,omitempty"`
	TransactionID  *string       `json:"transaction_id,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	CanCancel      bool          `json:"can_cancel"`
	CanPay         bool          `json:"can_pay"`
}

// Summarize flattens a group. bus may be nil when the catalog no longer has it.
func Summarize(g *BookingGroup, bus *Bus) BookingSummary {
	s := BookingSummary{
		Reference:      g.Reference,
		UserID:         g.UserID,
		BusID:          g.BusID,
		TravelDate:     g.TravelDateString(),
		PassengerName:  g.PassengerName,
		PassengerPhone: g.PassengerPhone,
		Seats:          g.SeatNumbers(),
		SeatCount:      g.Size(),
		TotalAmount:    g.TotalAmount(),
		PaymentStatus:  g.PaymentStatus,
		BookingStatus:  g.BookingStatus,
		PaymentMethod:  g.PaymentMethod,
		TransactionID:  g.TransactionID,
		CreatedAt:      g.CreatedAt,
		CanPay:         g.CanPay(),
	}
	if bus != nil {
		s.BusName = bus.BusName
		s.BusNumber = bus.BusNumber
		s.Origin = bus.Origin
		s.Destination = bus.Destination
		s.DepartureTime = bus.DepartureTime
	}
	return s
}
