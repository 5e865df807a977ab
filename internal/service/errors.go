package service

import (
	"errors"
	"fmt"

	"github.com/entropic-labs/recall-api/internal/store"
)

// Common sentinel errors for the video service
var (
	// ErrVideoNotFound indicates that the video does not exist
	ErrVideoNotFound = errors.New("video not found")

	// ErrVideoNotIndexable indicates the video is in a state from which
	// indexing cannot start
	ErrVideoNotIndexable = errors.New("video cannot be indexed in its current state")
)

// VideoServiceError wraps errors from the video service with context.
type VideoServiceError struct {
	// Operation is the operation that failed (e.g., "create_video", "index_video")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for VideoServiceError.
func (e *VideoServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("video service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("video service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *VideoServiceError) Unwrap() error {
	return e.Err
}

// NewVideoServiceError creates a new VideoServiceError.
// It returns known sentinel errors directly without wrapping.
func NewVideoServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrVideoNotFound) {
		return ErrVideoNotFound
	}

	// Map store-level sentinels to service-level ones
	if errors.Is(err, store.ErrVideoNotFound) {
		return ErrVideoNotFound
	}

	return &VideoServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
