package reminders

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when an id does not resolve to a reminder.
	ErrNotFound = errors.New("reminder not found")
	// ErrValidation is wrapped by every ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidTimeFormat is returned for a time of day that is not HH:MM.
	ErrInvalidTimeFormat = errors.New("invalid time format, expected HH:MM")
)

// ValidationError describes rejected input.
// It matches ErrValidation, and ErrInvalidTimeFormat when the time of day was at fault.
type ValidationError struct {
	Problems []string
	badTime  bool
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() []error {
	if e.badTime {
		return []error{ErrValidation, ErrInvalidTimeFormat}
	}
	return []error{ErrValidation}
}
