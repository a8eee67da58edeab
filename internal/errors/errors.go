// Package errors provides a structured error type (AssembleError) used by the
// ambient layers (configuration, CLI, task registry) for category-based
// classification and exit-code mapping. Errors raised inside task bodies and
// stream collaborators are never rewrapped with it.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCategory classifies an AssembleError.
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Build errors
	CategoryTask       ErrorCategory = "task"
	CategoryTemplate   ErrorCategory = "template"
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryWatch      ErrorCategory = "watch"

	// Runtime and infrastructure errors
	CategoryStorage  ErrorCategory = "storage"
	CategoryRuntime  ErrorCategory = "runtime"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
)

// AssembleError is a structured error with category, retryability and context.
type AssembleError struct {
	Category  ErrorCategory `json:"category"`
	Severity  ErrorSeverity `json:"severity"`
	Message   string        `json:"message"`
	Cause     error         `json:"cause,omitempty"`
	Retryable bool          `json:"retryable"`
	Context   ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for AssembleError.
type ContextFields map[string]any

func (e *AssembleError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

func (e *AssembleError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error.
func (e *AssembleError) WithContext(key string, value any) *AssembleError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new AssembleError.
func New(category ErrorCategory, severity ErrorSeverity, message string) *AssembleError {
	return &AssembleError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new AssembleError that wraps an existing error.
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *AssembleError {
	return &AssembleError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// WrapRetryable creates a retryable AssembleError that wraps an existing error.
func WrapRetryable(err error, category ErrorCategory, severity ErrorSeverity, message string) *AssembleError {
	e := Wrap(err, category, severity, message)
	e.Retryable = true
	return e
}

// As finds the first AssembleError in err's chain.
func As(err error) (*AssembleError, bool) {
	var ae *AssembleError
	if stderrors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsCategory reports whether any AssembleError in err's chain has the category.
func IsCategory(err error, category ErrorCategory) bool {
	if ae, ok := As(err); ok {
		return ae.Category == category
	}
	return false
}

// IsRetryable reports whether err is a retryable AssembleError.
func IsRetryable(err error) bool {
	if ae, ok := As(err); ok {
		return ae.Retryable
	}
	return false
}

// GetCategory extracts the category from an error, or CategoryInternal when
// err carries no AssembleError.
func GetCategory(err error) ErrorCategory {
	if ae, ok := As(err); ok {
		return ae.Category
	}
	return CategoryInternal
}
