package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the referenced entity does not exist or is soft-removed.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a concurrent write was detected; the caller may retry.
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized indicates a missing or invalid auth token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError is a business-rule violation detected before any write.
// Fields names the offending request fields and Details carries structured
// context such as the list of insufficient materials.
type ValidationError struct {
	Message string
	Fields  []string
	Details any
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validation builds a ValidationError with a plain message.
func Validation(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

// Validationf builds a ValidationError with a formatted message.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// WithFields attaches offending field names.
func (e *ValidationError) WithFields(fields ...string) *ValidationError {
	e.Fields = append(e.Fields, fields...)
	return e
}

// WithDetails attaches structured context for the caller.
func (e *ValidationError) WithDetails(details any) *ValidationError {
	e.Details = details
	return e
}

// AsValidation unwraps err into a ValidationError if it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
