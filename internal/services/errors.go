// Package services defines the business logic of the pantry bot: the
// inventory, the command parser, the conversation state machine and the
// reminder scheduler. This file centralizes the service-level error values so
// that they can be consistently returned by service methods and checked by
// callers with errors.Is / errors.As.
//
// Translation into user-facing replies or HTTP status codes is performed by
// the conversation service and the handler layer respectively.
package services

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed user input (dates, id lists, fields).
	// Concrete failures are reported as *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates that the referenced ingredient does not exist.
	ErrNotFound = errors.New("ingredient not found")

	// ErrStorage wraps any failure of the durable store. It is terminal for
	// the current turn.
	ErrStorage = errors.New("storage unavailable")

	// ErrCollaborator wraps failures of external calls (AI generator, push).
	ErrCollaborator = errors.New("collaborator failed")
)

// Validation reasons carried by ValidationError.
const (
	ReasonEmpty     = "empty"
	ReasonFormat    = "format"
	ReasonDate      = "date_format"
	ReasonPastDate  = "past_date"
	ReasonNotNumber = "not_positive_integer"
	ReasonField     = "unknown_field"
)

// ValidationError describes a single rejected input value.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

func collaboratorErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrCollaborator, err)
}
