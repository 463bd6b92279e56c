package schedule

import "errors"

var (
	// ErrServiceNotFound is returned when a service does not exist for the business.
	ErrServiceNotFound = errors.New("service not found")

	// ErrInvalidSlotLabel is returned when a slot label is not HH:MM.
	ErrInvalidSlotLabel = errors.New("slot label must be HH:MM")

	// ErrDuplicateSlotLabel is returned when a day lists the same label twice.
	ErrDuplicateSlotLabel = errors.New("slot label repeated within a day")

	// ErrInvalidDate is returned when a date is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("date must be YYYY-MM-DD")

	// ErrUnknownWeekday is returned for weekday keys outside monday..sunday.
	ErrUnknownWeekday = errors.New("unknown weekday")
)
