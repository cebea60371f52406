package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Error codes for categorization
const (
	// Environment errors: the run cannot continue
	ErrCodeDriverUnavailable = "DRIVER_UNAVAILABLE"
	ErrCodeConfig            = "CONFIG_ERROR"

	// Synchronization and lookup errors
	ErrCodeWaitTimeout     = "WAIT_TIMEOUT"
	ErrCodeElementNotFound = "ELEMENT_NOT_FOUND"
	ErrCodeNoSession       = "NO_SESSION"

	// Scenario errors
	ErrCodeAssertion = "ASSERTION_FAILED"

	// Degraded collaborators: logged, never fatal
	ErrCodeScreenshot       = "SCREENSHOT_FAILED"
	ErrCodeStoreUnavailable = "STORE_UNAVAILABLE"

	ErrCodeInternal = "INTERNAL_ERROR"
)

// AppError is the base error type for all suite errors
type AppError struct {
	// Error code for programmatic handling
	Code string `json:"code"`

	// Human-readable message
	Message string `json:"message"`

	// Detailed description (optional)
	Details string `json:"details,omitempty"`

	// Original error (for error wrapping)
	Cause error `json:"-"`

	// Metadata for additional context
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// Timestamp when error occurred
	Timestamp time.Time `json:"timestamp"`

	// Fatal marks environment failures that abort the run
	Fatal bool `json:"fatal"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for error comparison
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithCause adds the underlying cause
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// WithMetadata adds metadata to the error
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ToJSON serializes the error to JSON
func (e *AppError) ToJSON() []byte {
	data, _ := json.Marshal(e)
	return data
}

// NewError creates a new AppError
func NewError(code, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// Environment errors

func ErrDriverUnavailable(browser string, err error) *AppError {
	e := NewError(ErrCodeDriverUnavailable, fmt.Sprintf("Browser session unavailable: %s", browser)).
		WithCause(err).
		WithMetadata("browser", browser)
	e.Fatal = true
	return e
}

func ErrConfig(message string, err error) *AppError {
	return NewError(ErrCodeConfig, message).WithCause(err)
}

// Synchronization errors

func ErrWaitTimeout(condition string, timeout time.Duration, last error) *AppError {
	return NewError(ErrCodeWaitTimeout, fmt.Sprintf("Timed out after %s waiting for %s", timeout, condition)).
		WithCause(last).
		WithMetadata("condition", condition).
		WithMetadata("timeout", timeout.String())
}

func ErrElementNotFound(locator string) *AppError {
	return NewError(ErrCodeElementNotFound, fmt.Sprintf("No element matches %s", locator)).
		WithMetadata("locator", locator)
}

func ErrNoSession() *AppError {
	return NewError(ErrCodeNoSession, "No active browser session")
}

// Scenario errors

func ErrAssertion(format string, args ...interface{}) *AppError {
	return NewError(ErrCodeAssertion, fmt.Sprintf(format, args...))
}

// Degraded collaborators

func ErrScreenshot(path string, err error) *AppError {
	return NewError(ErrCodeScreenshot, fmt.Sprintf("Failed to save screenshot: %s", path)).
		WithCause(err).
		WithMetadata("path", path)
}

func ErrStoreUnavailable(store string, err error) *AppError {
	return NewError(ErrCodeStoreUnavailable, fmt.Sprintf("Locator store unavailable: %s", store)).
		WithCause(err).
		WithMetadata("store", store)
}

// Helper functions

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetErrorCode returns the error code for an error
func GetErrorCode(err error) string {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

// IsFatal reports whether err should abort the whole run
func IsFatal(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Fatal
	}
	return false
}

// Sentinel errors for comparison (used with errors.Is)
var (
	ErrWaitTimeoutSentinel       = NewError(ErrCodeWaitTimeout, "wait timed out")
	ErrElementNotFoundSentinel   = NewError(ErrCodeElementNotFound, "element not found")
	ErrDriverUnavailableSentinel = NewError(ErrCodeDriverUnavailable, "driver unavailable")
	ErrAssertionSentinel         = NewError(ErrCodeAssertion, "assertion failed")
	ErrNoSessionSentinel         = NewError(ErrCodeNoSession, "no session")
	ErrStoreUnavailableSentinel  = NewError(ErrCodeStoreUnavailable, "store unavailable")
)
