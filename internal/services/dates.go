package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethiobus/booking-backend/internal/models"
)

// parseTravelDate parses YYYY-MM-DD and rejects dates before today in loc.
// The result is midnight UTC of that calendar day.
func parseTravelDate(value string, now time.Time, loc *time.Location) (time.Time, string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, "Travel date is required"
	}

	date, err := time.Parse(models.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Sprintf("Travel date %q is not a valid date (YYYY-MM-DD)", value)
	}

	y, m, d := now.In(loc).Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if date.Before(today) {
		return time.Time{}, "Travel date cannot be in the past"
	}
	return date, ""
}

// parseSeatList splits "3, 4,5" into seat numbers, reporting empty, oversized and duplicate lists
func parseSeatList(value string, maxSeats int) ([]string, []string) {
	var (
		seats      []string
		violations []string
		seen       = make(map[string]bool)
	)

	for _, part := range strings.Split(value, ",") {
		seat := strings.TrimSpace(part)
		if seat == "" {
			continue
		}
		if seen[seat] {
			violations = append(violations, fmt.Sprintf("Seat %s was selected more than once", seat))
			continue
		}
		seen[seat] = true
		seats = append(seats, seat)
	}

	switch {
	case len(seats) == 0:
		violations = append(violations, "Please select at least one seat")
	case len(seats) > maxSeats:
		violations = append(violations, fmt.Sprintf("You can book at most %d seats at a time", maxSeats))
	}
	return seats, violations
}
