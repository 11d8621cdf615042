package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a lab is not found
	ErrNotFound = errors.New("lab not found")

	// ErrInvalidState is returned when a lab cannot accept the operation in
	// its current state
	ErrInvalidState = errors.New("lab is in an invalid state for this operation")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
)

// ValidationError wraps field-specific validation errors
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
