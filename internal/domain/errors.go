package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means no portfolio (or position) exists for the key
	ErrNotFound = errors.New("not found")
	// ErrUpstreamUnavailable wraps broker and store outages on the read path
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrSessionExpired is returned by the broker when the token is rejected
	ErrSessionExpired = errors.New("broker session expired")
	// ErrCredentialsMissing means no app key / secret key is configured
	ErrCredentialsMissing = errors.New("broker credentials not configured")
)

// ValidationError rejects a request field
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// PersistenceError is a failed write. Always surfaced to the caller.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is (or wraps) a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsPersistence reports whether err is (or wraps) a PersistenceError
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
