package bookings

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks request validation failures.
	ErrValidation = errors.New("bookings: validation failed")
	// ErrBookingNotFound is returned when the booking does not exist for the business.
	ErrBookingNotFound = errors.New("bookings: booking not found")
	// ErrServiceInactive is returned when a deactivated service is booked.
	ErrServiceInactive = errors.New("bookings: service is not active")
	// ErrSlotNotOffered is returned when the slot is not in the day's schedule.
	ErrSlotNotOffered = errors.New("bookings: slot not offered")
	// ErrSlotFull is returned when the slot has no remaining capacity.
	ErrSlotFull = errors.New("bookings: slot is full")
	// ErrNotReschedulable is returned for cancelled or completed bookings.
	ErrNotReschedulable = errors.New("bookings: booking cannot be rescheduled")
)

// ValidationError describes a rejected field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
