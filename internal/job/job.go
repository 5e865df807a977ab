package job

import (
	"context"
	"errors"
	"time"
)

// Common errors returned by the Runner
var (
	// ErrNoWorkers is returned when a Runner is constructed with a
	// non-positive worker count.
	ErrNoWorkers = errors.New("worker count must be positive")

	// ErrRunnerClosed is returned when submitting to a Runner that has
	// been shut down.
	ErrRunnerClosed = errors.New("job runner is closed")

	// ErrQueueFull is returned when the intake queue has no capacity left.
	ErrQueueFull = errors.New("job queue is full")
)

// Job is a unit of opaque work submitted to the Runner. The ID must be
// unique among live jobs in a single Runner instance; the Runner never
// inspects the payload. MaxRetries is the number of additional attempts
// allowed after the first, so a job is executed at most MaxRetries+1 times.
type Job[P any] struct {
	ID         string
	Payload    P
	Attempts   int
	MaxRetries int
	CreatedAt  time.Time
}

// NewJob creates a Job with a zeroed attempt counter and the creation
// timestamp set to now.
func NewJob[P any](id string, payload P, maxRetries int) Job[P] {
	return Job[P]{
		ID:         id,
		Payload:    payload,
		MaxRetries: maxRetries,
		CreatedAt:  time.Now(),
	}
}

// Result is the terminal outcome of a Job. Exactly one of Value and Err is
// meaningful, matching the Success flag. A Result is created once, by the
// worker that reached the terminal attempt, and is immutable thereafter.
type Result[R any] struct {
	ID       string
	Success  bool
	Attempts int
	Value    R
	Err      string
}

// Handler executes the opaque payload of a job. Implementations must be
// safe to call concurrently from multiple workers with different payloads.
// Any returned error is treated as a retryable failure until the job's
// retry ceiling is exhausted.
type Handler[P, R any] interface {
	Execute(ctx context.Context, payload P) (R, error)
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc[P, R any] func(ctx context.Context, payload P) (R, error)

// Execute implements Handler.
func (f HandlerFunc[P, R]) Execute(ctx context.Context, payload P) (R, error) {
	return f(ctx, payload)
}
