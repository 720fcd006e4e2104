package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks a precondition the caller has to fix before retrying.
	ErrValidation = errors.New("validation failed")
	// ErrProtectedEntity is returned when removing an entity that must always exist.
	ErrProtectedEntity = errors.New("protected entity")
	// ErrStaleTransition is returned when an order cannot move to the requested status.
	ErrStaleTransition = errors.New("stale transition")
	// ErrPersistence wraps durable storage failures. It never escapes a mutation.
	ErrPersistence = errors.New("persistence failure")
)

// ValidationError names the field that failed a precondition.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// TransitionError describes a rejected order status change.
type TransitionError struct {
	OrderID string
	From    OrderStatus
	To      OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("order %s: cannot move from %s to %s", e.OrderID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrStaleTransition }
