package utils

import (
	"fmt"
	"strings"
)

// ValidationError represents an error occurring during data validation.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error returns the error message string.
func (e *ValidationError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Field == "" {
		return msg
	}
	return e.Field + ": " + msg
}

// Unwrap returns the sentinel error behind the violation, if any.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new ValidationError with a specific message.
//
// Parameters:
//   - message: The validation error message.
//
// Returns:
//   - An error interface wrapping the ValidationError.
func NewValidationError(message string) error {
	return &ValidationError{
		Message: message,
	}
}

// NewValidationErrorf creates a new ValidationError with a formatted message.
//
// Parameters:
//   - format: The format string.
//   - args: Arguments for the format string.
//
// Returns:
//   - An error interface wrapping the ValidationError.
func NewValidationErrorf(format string, args ...interface{}) error {
	return &ValidationError{
		Message: fmt.Sprintf(format, args...),
	}
}

// ValidationErrors collects every violation found in a document so callers
// can present them together instead of one at a time.
type ValidationErrors struct {
	Errors []*ValidationError
}

// Add records a violation for the given field.
func (v *ValidationErrors) Add(field, format string, args ...interface{}) {
	v.Errors = append(v.Errors, &ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	})
}

// AddError records a violation that wraps err so callers can match it with errors.Is.
func (v *ValidationErrors) AddError(field string, err error) {
	v.Errors = append(v.Errors, &ValidationError{Field: field, Err: err})
}

// HasErrors reports whether any violation was recorded.
func (v *ValidationErrors) HasErrors() bool {
	return v != nil && len(v.Errors) > 0
}

// Err returns v as an error, or nil when nothing was recorded.
func (v *ValidationErrors) Err() error {
	if !v.HasErrors() {
		return nil
	}
	return v
}

// Fields returns the field names of all violations in recording order.
func (v *ValidationErrors) Fields() []string {
	fields := make([]string, 0, len(v.Errors))
	for _, e := range v.Errors {
		fields = append(fields, e.Field)
	}
	return fields
}

// Unwrap exposes each violation to errors.Is and errors.As.
func (v *ValidationErrors) Unwrap() []error {
	errs := make([]error, len(v.Errors))
	for i, e := range v.Errors {
		errs[i] = e
	}
	return errs
}

// Error joins all violations into a single message.
func (v *ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v.Errors))
	for _, e := range v.Errors {
		msgs = append(msgs, e.Error())
	}
	return fmt.Sprintf("validation failed (%d): %s", len(v.Errors), strings.Join(msgs, "; "))
}
