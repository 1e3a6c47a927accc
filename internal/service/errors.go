package service

import (
	"fmt"

	"github.com/pkg/errors"

	"example.com/backstage/services/events/internal/eligibility"
)

// Service-level errors
var (
	// ErrValidation marks caller-fixable input problems, rejected before
	// any state change
	ErrValidation = errors.New("validation error")
	// ErrAlreadyRegistered is returned when an active registration exists
	ErrAlreadyRegistered = errors.New("user already has an active registration for this event")
	// ErrNotRegistered is returned when no active registration exists
	ErrNotRegistered = errors.New("user has no active registration for this event")
	// ErrEditNotAllowed is returned when the caller holds no edit role
	ErrEditNotAllowed = errors.New("caller is not allowed to edit this event")
)

// IneligibleError carries an eligibility reason across the join boundary.
// Inside the engine ineligibility is a plain decision value; it only
// becomes an error when a join is actually attempted.
type IneligibleError struct {
	Reason eligibility.Reason
}

// Error implements the error interface
func (e *IneligibleError) Error() string {
	return fmt.Sprintf("participant is not eligible to join: %s", e.Reason)
}

// validationErr wraps ErrValidation with a caller-facing message
func validationErr(msg string) error {
	return errors.Wrap(ErrValidation, msg)
}
