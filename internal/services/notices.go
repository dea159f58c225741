package services

import (
	"errors"
	"strings"

	"github.com/ethiobus/booking-backend/internal/domain"
)

// Fallback messages for failures whose detail must not reach the user
const (
	msgReserveFailed = "Booking failed. Please try again."
	msgPayFailed     = "Payment could not be recorded. Please try again."
	msgCancelFailed  = "Cancellation failed. Please try again."
	msgUpdateFailed  = "Booking status could not be updated. Please try again."
	msgLoadFailed    = "Bookings could not be loaded. Please try again."
	msgLoginRequired = "Please log in to continue"
)

// NoticeMessage turns an error into the single message shown to the user.
// Persistence and unexpected errors collapse to fallback.
func NoticeMessage(err error, fallback string) string {
	var (
		validation domain.ValidationError
		conflict   domain.ConflictError
		notFound   domain.NotFoundError
		policy     domain.PolicyError
	)

	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return msgLoginRequired
	case errors.As(err, &validation):
		return strings.Join(validation.Violations, "; ")
	case errors.As(err, &conflict):
		if len(conflict.Seats) > 0 {
			return strings.Join(conflict.SeatMessages(), "; ") + ". Please choose different seats."
		}
		if conflict.Msg != "" {
			return conflict.Msg + ". Please try again."
		}
		return fallback
	case errors.As(err, &notFound):
		return notFound.Error()
	case errors.As(err, &policy):
		return policy.Error()
	default:
		return fallback
	}
}
