package availability

import "errors"

var (
	// ErrBusinessRequired is returned when no business configuration was supplied.
	ErrBusinessRequired = errors.New("availability: business required")
	// ErrServiceRequired is returned when no service was supplied.
	ErrServiceRequired = errors.New("availability: service required")
)
