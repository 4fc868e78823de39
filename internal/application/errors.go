package application

import (
	"errors"
	"fmt"

	"github.com/example/office-planner/internal/placement"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a unique attribute is already taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidCredentials is returned when a username and password do not match.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrInvalidToken is returned for malformed, expired or misused tokens.
	ErrInvalidToken = errors.New("application: invalid token")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil || len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %d field(s)", len(v.FieldErrors))
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error. The first message per field wins.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

func fieldError(field, message string) *ValidationError {
	vErr := &ValidationError{}
	vErr.add(field, message)
	return vErr
}

// PlacementErrorKind distinguishes rule rejections from uniqueness clashes.
type PlacementErrorKind string

const (
	// PlacementRejected means the seating rule refused the change.
	PlacementRejected PlacementErrorKind = "rejected"
	// PlacementDuplicate means the desk is already taken for the date.
	PlacementDuplicate PlacementErrorKind = "duplicate"
)

// PlacementError reports a change refused by the placement validator.
type PlacementError struct {
	Kind      PlacementErrorKind
	Date      string
	Rejection *placement.Rejection
}

func newPlacementError(rejection *placement.Rejection) *PlacementError {
	kind := PlacementRejected
	if rejection.Kind == placement.RejectDuplicateBooking {
		kind = PlacementDuplicate
	}
	return &PlacementError{Kind: kind, Rejection: rejection}
}

// Error implements the error interface.
func (e *PlacementError) Error() string {
	if e == nil || e.Rejection == nil {
		return "placement rejected"
	}
	if e.Date != "" {
		return e.Date + ": " + e.Rejection.Message
	}
	return e.Rejection.Message
}

// Unwrap exposes the underlying rejection.
func (e *PlacementError) Unwrap() error {
	if e == nil || e.Rejection == nil {
		return nil
	}
	return e.Rejection
}
