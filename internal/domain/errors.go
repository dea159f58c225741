package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnauthenticated is returned when an operation needs a principal and none is present
var ErrUnauthenticated = errors.New("authentication required")

// ValidationError carries every input violation found, not just the first one
type ValidationError struct {
	Violations []string
}

func (e ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "validation error"
	}
	return strings.Join(e.Violations, "; ")
}

// ConflictError reports seats that are no longer free, or a group that changed underneath the caller
type ConflictError struct {
	Seats []string
	Msg   string
	Err   error
}

func (e ConflictError) Error() string {
	switch {
	case len(e.Seats) > 0:
		return fmt.Sprintf("seats no longer available: %s", strings.Join(e.Seats, ", "))
	case e.Msg != "":
		return e.Msg
	default:
		return "conflict"
	}
}

func (e ConflictError) Unwrap() error { return e.Err }

// SeatMessages returns one line per unavailable seat
func (e ConflictError) SeatMessages() []string {
	out := make([]string, 0, len(e.Seats))
	for _, s := range e.Seats {
		out = append(out, fmt.Sprintf("Seat %s is already booked", s))
	}
	return out
}

type NotFoundError struct {
	Resource string
	Msg      string
}

func (e NotFoundError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// PolicyError is a request that is well formed but not allowed right now
type PolicyError struct {
	Reason string
}

func (e PolicyError) Error() string {
	if e.Reason == "" {
		return "operation not permitted"
	}
	return e.Reason
}

// PersistenceError wraps a store failure. The transaction it happened in was rolled back.
type PersistenceError struct {
	Op  string
	Err error
}

func (e PersistenceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("persistence failure during %s", e.Op)
	}
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e PersistenceError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsPolicy(err error) bool {
	var target PolicyError
	return errors.As(err, &target)
}

func IsPersistence(err error) bool {
	var target PersistenceError
	return errors.As(err, &target)
}
