package models

// SeatStatus is one seat of the seat map
type SeatStatus struct {
	SeatID     int64  `json:"seat_id"`
	SeatNumber string `json:"seat_number"`
	SeatType   string `json:"seat_type"`
	Occupied   bool   `json:"occupied"`
}

// SeatAvailability is the advisory availability of a bus on a date.
// AvailableCount is always TotalSeats minus the number of occupied seats.
type SeatAvailability struct {
	BusID          int64        `json:"bus_id"`
	TravelDate     string       `json:"travel_date"`
	TotalSeats     int          `json:"total_seats"`
	AvailableCount int          `json:"available_count"`
	OccupiedSeats  []string     `json:"occupied_seats"`
	Seats          []SeatStatus `json:"seats,omitempty"`
}

// IsFull reports whether no seat is left
func (a *SeatAvailability) IsFull() bool {
	return a.AvailableCount <= 0
}

// IsOccupied reports whether a seat number is taken
func (a *SeatAvailability) IsOccupied(seatNumber string) bool {
	for _, s := range a.OccupiedSeats {
		if s == seatNumber {
			return true
		}
	}
	return false
}
