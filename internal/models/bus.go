package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// BusType represents the service class of a bus
type BusType string

const (
	BusTypeStandard BusType = "standard"
	BusTypeLuxury   BusType = "luxury"
	BusTypeVIP      BusType = "vip"
)

// BusStatus represents the current operational status of a bus
type BusStatus string

const (
	BusStatusActive   BusStatus = "active"
	BusStatusInactive BusStatus = "inactive"
)

// Bus is read-only catalog data joined with its route
type Bus struct {
	ID            int64     `json:"id" db:"id"`
	BusName       string    `json:"bus_name" db:"bus_name"`
	BusNumber     string    `json:"bus_number" db:"bus_number"`
	BusType       BusType   `json:"bus_type" db:"bus_type"`
	TotalSeats    int       `json:"total_seats" db:"total_seats"`
	RouteID       int64     `json:"route_id" db:"route_id"`
	Origin        string    `json:"origin" db:"origin"`
	Destination   string    `json:"destination" db:"destination"`
	DepartureTime string    `json:"departure_time" db:"departure_time"` // HH:MM:SS
	ArrivalTime   string    `json:"arrival_time" db:"arrival_time"`
	PriceBirr     float64   `json:"price_birr" db:"price_birr"`
	Status        BusStatus `json:"status" db:"status"`
}

// IsActive checks if the bus accepts reservations
func (b *Bus) IsActive() bool {
	return b.Status == BusStatusActive
}

// RouteLabel returns "Origin → Destination"
func (b *Bus) RouteLabel() string {
	return fmt.Sprintf("%s → %s", b.Origin, b.Destination)
}

// DepartureOn combines a travel date with the bus's scheduled departure time in loc.
// Only the calendar fields of travelDate are used.
func (b *Bus) DepartureOn(travelDate time.Time, loc *time.Location) (time.Time, error) {
	h, m, s, err := ParseClock(b.DepartureTime)
	if err != nil {
		return time.Time{}, err
	}
	y, mo, d := travelDate.Date()
	return time.Date(y, mo, d, h, m, s, 0, loc), nil
}

// ParseClock parses "15:04:05" or "15:04"
func ParseClock(value string) (hour, minute, second int, err error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, perr := time.Parse(layout, value); perr == nil {
			return t.Hour(), t.Minute(), t.Second(), nil
		}
	}
	return 0, 0, 0, fmt.Errorf("invalid clock value %q", value)
}

// Seat is a physical seat of a bus
type Seat struct {
	ID         int64  `json:"id" db:"id"`
	BusID      int64  `json:"bus_id" db:"bus_id"`
	SeatNumber string `json:"seat_number" db:"seat_number"`
	SeatType   string `json:"seat_type" db:"seat_type"` // window, aisle
}

// SortSeatNumbers orders seat numbers numerically where possible ("2" before "10")
func SortSeatNumbers(numbers []string) {
	sort.SliceStable(numbers, func(i, j int) bool {
		return seatLess(numbers[i], numbers[j])
	})
}

func seatLess(a, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	switch {
	case aerr == nil && berr == nil:
		return ai < bi
	case aerr == nil:
		return true
	case berr == nil:
		return false
	default:
		return a < b
	}
}

// BusSearchResult is one row of the route search
type BusSearchResult struct {
	Bus
	AvailableSeats int `json:"available_seats" db:"available_seats"`
}
