// Package errs defines the error taxonomy shared by the stores, the video client and the services.
package errs

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Sentinel errors. Callers should match them with errors.Is.
var (
	// ErrValidation is returned for bad input (empty template, empty prompt, invalid option).
	ErrValidation = errors.New("validation error")
	// ErrNotFound is returned when a project, data file, template or job does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPrecondition is returned when an operation is attempted before its inputs exist.
	ErrPrecondition = errors.New("precondition failed")
	// ErrTimeout is returned by the synchronous wait helpers only.
	ErrTimeout = errors.New("timed out")
	// ErrInvalidTransition is returned when a job status change is not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Validation returns an ErrValidation wrapping the formatted message.
func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFound returns an ErrNotFound wrapping the formatted message.
func NotFound(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Precondition returns an ErrPrecondition wrapping the formatted message.
func Precondition(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrPrecondition, fmt.Sprintf(format, args...))
}

// InvalidTransition returns an ErrInvalidTransition naming the rejected move.
func InvalidTransition(id uint, from, to fmt.Stringer) error {
	return fmt.Errorf("%w: job %d cannot move from %s to %s", ErrInvalidTransition, id, from, to)
}

// ExternalAPIError describes a failed call to a third-party API.
type ExternalAPIError struct {
	// StatusCode is the HTTP status returned by the API, 0 for transport failures.
	StatusCode int
	// Message is the provider's error message.
	Message string
	// Transient reports whether retrying the call may succeed.
	Transient bool
	// Err is the underlying transport error, if any.
	Err error
}

func (e *ExternalAPIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("external api error (status %d): %s", e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("external api error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("external api error: %s", e.Message)
}

func (e *ExternalAPIError) Unwrap() error {
	return e.Err
}

// NewStatusError builds an ExternalAPIError from an HTTP status code.
// 429 and 5xx responses are transient, every other status is permanent.
func NewStatusError(statusCode int, message string) *ExternalAPIError {
	return &ExternalAPIError{
		StatusCode: statusCode,
		Message:    message,
		Transient:  statusCode == http.StatusTooManyRequests || statusCode >= http.StatusInternalServerError,
	}
}

// NewTransportError builds a transient ExternalAPIError from a transport failure.
func NewTransportError(message string, err error) *ExternalAPIError {
	return &ExternalAPIError{Message: message, Transient: true, Err: err}
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, ErrValidation) {
		return false
	}
	var apiErr *ExternalAPIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
