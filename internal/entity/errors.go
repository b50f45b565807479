package entity

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Transport maps each kind to one HTTP status.
var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden operation")
	ErrInvalidState     = errors.New("invalid state")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrConflict         = errors.New("conflict")
)

// Error is a kind plus the message shown to API clients.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

var (
	// Event errors
	ErrEventNotFound       = &Error{ErrNotFound, "Event not found"}
	ErrEventInPast         = &Error{ErrInvalidState, "Cannot book past events"}
	ErrEventUpdateDenied   = &Error{ErrForbidden, "Not authorized to update this event"}
	ErrEventDeleteDenied   = &Error{ErrForbidden, "Not authorized to delete this event"}
	ErrCapacityNotEditable = &Error{ErrValidation, "Event capacity cannot be changed after creation"}

	// Booking errors
	ErrBookingNotFound     = &Error{ErrNotFound, "Booking not found"}
	ErrBookingCancelDenied = &Error{ErrForbidden, "Not authorized to cancel this booking"}
	ErrCancelPastEvent     = &Error{ErrInvalidState, "Cannot cancel booking for past events"}
	ErrInvalidTickets      = &Error{ErrValidation, "You must book at least 1 ticket"}

	// User errors
	ErrUserNotFound       = &Error{ErrNotFound, "User not found"}
	ErrUserAlreadyExists  = &Error{ErrConflict, "User already exists"}
	ErrInvalidCredentials = &Error{ErrUnauthorized, "Invalid credentials"}
	ErrInvalidToken       = &Error{ErrUnauthorized, "Not authorized, token failed"}
	ErrMissingToken       = &Error{ErrUnauthorized, "Not authorized, no token"}
)

// CapacityError reports how many spots were left when a booking was refused.
type CapacityError struct {
	Remaining int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("Not enough spots available. Only %d spots left.", e.Remaining)
}

func (e *CapacityError) Unwrap() error { return ErrCapacityExceeded }

// ValidationError collects every rule a payload broke.
type ValidationError struct {
	Problems []string
}

func NewValidationError(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
