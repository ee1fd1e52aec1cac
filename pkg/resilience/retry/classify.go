package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// StatusError represents a downstream failure carrying an HTTP-equivalent
// status code, so callers can classify provider responses without this
// package knowing any specific API's shape.
type StatusError struct {
	// StatusCode is the HTTP-equivalent status.
	StatusCode int

	// Message is the downstream error message.
	Message string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("downstream error (status %d): %s", e.StatusCode, e.Message)
}

// ValidationError represents a caller mistake that no amount of retrying
// will fix.
type ValidationError struct {
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Retryable is the default retryability predicate: transient network
// failures (timeouts, connection resets) and 5xx-equivalent statuses are
// retryable; context cancellation, validation errors, and everything
// unrecognized are not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	return false
}
