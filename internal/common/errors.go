package common

import (
	"errors"
	"fmt"
)

// Common error values used across the application
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")
	// ErrTimeout indicates an operation timed out
	ErrTimeout = errors.New("operation timed out")
	// ErrNetworkUnavailable indicates there is no usable network connectivity
	ErrNetworkUnavailable = errors.New("network unavailable")
	// ErrInvalidConfiguration indicates configuration issues
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// WrapError wraps an error with additional context information
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// WrapErrorf wraps an error with formatted context information
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// NewError creates a new error with a formatted message
func NewError(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

// ValidationError represents validation errors with field-specific information
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new validation error
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ExtractionError means a page failed to yield non-blank content after all
// retry attempts. It is recorded as a FAILURE check log; the monitor's
// stored state stays untouched.
type ExtractionError struct {
	URL      string
	Attempts int
	Wrapped  error
}

func (e *ExtractionError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("extraction failed for '%s' after %d attempts: %v", e.URL, e.Attempts, e.Wrapped)
	}
	return fmt.Sprintf("extraction failed for '%s' after %d attempts: content was blank", e.URL, e.Attempts)
}

func (e *ExtractionError) Unwrap() error {
	return e.Wrapped
}

// NewExtractionError creates a new extraction error
func NewExtractionError(url string, attempts int, wrapped error) *ExtractionError {
	return &ExtractionError{URL: url, Attempts: attempts, Wrapped: wrapped}
}

// AIError means an interpretation or condition call against the language
// model capability failed. Interpretation falls back to raw content;
// condition checks fail closed.
type AIError struct {
	Operation string
	Wrapped   error
}

func (e *AIError) Error() string {
	return fmt.Sprintf("ai %s failed: %v", e.Operation, e.Wrapped)
}

func (e *AIError) Unwrap() error {
	return e.Wrapped
}

// NewAIError creates a new AI capability error
func NewAIError(operation string, wrapped error) *AIError {
	return &AIError{Operation: operation, Wrapped: wrapped}
}

// PersistenceError means a repository write failed. It aborts the current
// monitor's check but never the outer pass over other monitors.
type PersistenceError struct {
	Operation string
	Wrapped   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s failed: %v", e.Operation, e.Wrapped)
}

func (e *PersistenceError) Unwrap() error {
	return e.Wrapped
}

// NewPersistenceError creates a new persistence error
func NewPersistenceError(operation string, wrapped error) *PersistenceError {
	return &PersistenceError{Operation: operation, Wrapped: wrapped}
}
