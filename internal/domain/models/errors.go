package models

import "fmt"

// ValidationError reports a single field that failed the entry invariants.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// NewValidationError builds a ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s", e.Field, e.Value, e.Message)
}
