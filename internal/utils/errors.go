package utils

import (
	"errors"
	"fmt"
)

// ValidationError represents an error occurring during input validation.
type ValidationError struct {
	Message string
}

// Error returns the error message string.
func (e *ValidationError) Error() string {
	return e.Message
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

// ErrQuotaExceeded is returned by cache stores when a write would exceed
// the configured capacity.
var ErrQuotaExceeded = errors.New("cache: storage quota exceeded")

// OfflineError indicates a request could not be attempted because the
// network is known to be offline.
type OfflineError struct {
	URL string
}

// Error returns the error message string.
func (e *OfflineError) Error() string {
	return fmt.Sprintf("network offline, request not attempted: %s", e.URL)
}

// IsOffline reports whether err is (or wraps) an OfflineError.
func IsOffline(err error) bool {
	var offline *OfflineError
	return errors.As(err, &offline)
}

// QueueRejectedError indicates an offline-queued request was dropped before
// it could be replayed, either because the queue overflowed or the entry
// exceeded its maximum age.
type QueueRejectedError struct {
	URL    string
	Reason string
}

// Error returns the error message string.
func (e *QueueRejectedError) Error() string {
	return fmt.Sprintf("offline request for %s rejected: %s", e.URL, e.Reason)
}
