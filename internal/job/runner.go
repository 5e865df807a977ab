package job

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/entropic-labs/recall-api/internal/metrics"
)

// joinPollInterval is how often Join re-checks the unfinished-work count.
const joinPollInterval = 10 * time.Millisecond

// RunnerConfig holds configuration for the job runner
type RunnerConfig struct {
	// WorkerCount determines how many concurrent workers process jobs
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory intake queue
	QueueSize int
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount: 2,
		QueueSize:   256,
	}
}

// Runner manages a fixed pool of workers draining a single intake queue.
// Each job is executed by the configured Handler with inline retries up to
// the job's retry ceiling; terminal outcomes land in exactly one of the
// completed or failed stores. Terminally failed jobs are quarantined with
// enough state to be resubmitted via RetryFailed.
//
// Retries happen inline inside the worker that picked the job up, not by
// re-queueing, so one flaky job cannot starve queued work behind it on the
// same worker while the other workers keep draining the backlog.
type Runner[P, R any] struct {
	handler Handler[P, R]
	config  RunnerConfig
	queue   chan Job[P]
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	started atomic.Bool
	closed  atomic.Bool

	// pending counts submitted jobs that have not reached a terminal
	// outcome; Join waits for it to hit zero.
	pending atomic.Int64

	// mu guards completed, failed and failedJobs together: RetryFailed
	// must observe and mutate them atomically relative to concurrent
	// worker deposits.
	mu         sync.Mutex
	completed  map[string]Result[R]
	failed     map[string]Result[R]
	failedJobs map[string]Job[P]
}

// NewRunner creates a Runner executing jobs with the given handler.
// Returns ErrNoWorkers if the configured worker count is not positive.
func NewRunner[P, R any](handler Handler[P, R], config RunnerConfig, logger *slog.Logger) (*Runner[P, R], error) {
	if config.WorkerCount <= 0 {
		return nil, ErrNoWorkers
	}

	if config.QueueSize <= 0 {
		config.QueueSize = DefaultRunnerConfig().QueueSize
	}

	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Runner[P, R]{
		handler:    handler,
		config:     config,
		queue:      make(chan Job[P], config.QueueSize),
		logger:     logger.With("component", "job_runner"),
		ctx:        ctx,
		cancel:     cancel,
		completed:  make(map[string]Result[R]),
		failed:     make(map[string]Result[R]),
		failedJobs: make(map[string]Job[P]),
	}, nil
}

// Start launches the worker goroutines. Calling Start on a runner that is
// already started is a no-op.
func (r *Runner[P, R]) Start() {
	if !r.started.CompareAndSwap(false, true) {
		return
	}

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.logger.Info("job runner started", "worker_count", r.config.WorkerCount)
}

// Submit enqueues a job for execution. It never blocks: if the intake
// queue is at capacity it returns ErrQueueFull, and after Shutdown it
// returns ErrRunnerClosed.
func (r *Runner[P, R]) Submit(job Job[P]) error {
	if r.closed.Load() {
		return ErrRunnerClosed
	}

	// Count the job before it becomes visible to workers, so a Join
	// racing this call cannot observe a drained runner mid-submit.
	r.pending.Add(1)
	select {
	case r.queue <- job:
		r.logger.Debug("job enqueued",
			"job_id", job.ID,
			"max_retries", job.MaxRetries,
			"queue_len", len(r.queue))
		return nil
	default:
		r.pending.Add(-1)
		return ErrQueueFull
	}
}

// Join blocks until every submitted job has reached a terminal outcome or
// the timeout elapses, and reports whether the drain completed. A timeout
// of zero or less means wait indefinitely.
func (r *Runner[P, R]) Join(timeout time.Duration) bool {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		if r.pending.Load() == 0 {
			return true
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return false
		}
		time.Sleep(joinPollInterval)
	}
}

// Shutdown signals all workers to stop after their current job and waits
// for them to exit. Queued-but-unprocessed jobs are abandoned; callers that
// care should Join before shutting down. Shutdown is cooperative: a job
// mid-execution finishes its attempt loop before the worker observes the
// stop signal.
func (r *Runner[P, R]) Shutdown() {
	if !r.closed.CompareAndSwap(false, true) {
		return
	}

	r.cancel()
	r.wg.Wait()
	r.logger.Info("job runner stopped")
}

// RetryFailed resubmits quarantined failed jobs to the intake queue with a
// reset attempt counter and removes them from the failed store. With no
// arguments every failed job is retried; otherwise only the named IDs are.
// Returns the number of jobs resubmitted. Removal and resubmission happen
// under the same lock workers use to deposit failures, so a replay can
// never race a concurrent failure of the same job.
func (r *Runner[P, R]) RetryFailed(ids ...string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	candidates := ids
	if len(candidates) == 0 {
		candidates = make([]string, 0, len(r.failedJobs))
		for id := range r.failedJobs {
			candidates = append(candidates, id)
		}
	}

	retried := 0
	for _, id := range candidates {
		prior, ok := r.failedJobs[id]
		if !ok {
			continue
		}

		fresh := Job[P]{
			ID:         prior.ID,
			Payload:    prior.Payload,
			MaxRetries: prior.MaxRetries,
			CreatedAt:  time.Now(),
		}

		r.pending.Add(1)
		select {
		case r.queue <- fresh:
		default:
			// Queue full: leave the record quarantined for a later replay.
			r.pending.Add(-1)
			r.logger.Warn("replay skipped, queue is full", "job_id", id)
			continue
		}

		delete(r.failed, id)
		delete(r.failedJobs, id)
		retried++
		metrics.JobReplaysTotal.Inc()
		r.logger.Info("failed job resubmitted", "job_id", id)
	}

	return retried
}

// Completed returns a snapshot copy of the completed-outcome store.
func (r *Runner[P, R]) Completed() map[string]Result[R] {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]Result[R], len(r.completed))
	for id, res := range r.completed {
		out[id] = res
	}
	return out
}

// Failed returns a snapshot copy of the failed-outcome store.
func (r *Runner[P, R]) Failed() map[string]Result[R] {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]Result[R], len(r.failed))
	for id, res := range r.failed {
		out[id] = res
	}
	return out
}

// FailedIDs returns the IDs of every quarantined job in sorted order.
func (r *Runner[P, R]) FailedIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.failed))
	for id := range r.failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// worker repeatedly takes the next job off the intake queue and runs it to
// a terminal outcome. It exits when the runner context is cancelled.
func (r *Runner[P, R]) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", "worker_id", id)

	for {
		// Check the stop signal before each dequeue; a plain select would
		// give queued jobs even odds against cancellation and let a
		// shutting-down worker keep draining work it should abandon.
		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", "worker_id", id)
			return
		default:
		}

		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", "worker_id", id)
			return

		case job := <-r.queue:
			r.process(job, id)
		}
	}
}

// process runs one job to a terminal outcome, retrying inline on failure
// until the retry ceiling is exhausted. The attempt counter is incremented
// before each execution, so attempts never exceeds MaxRetries+1.
func (r *Runner[P, R]) process(job Job[P], workerID int) {
	defer r.pending.Add(-1)

	logger := r.logger.With("job_id", job.ID, "worker_id", workerID)

	for {
		job.Attempts++
		if job.Attempts > 1 {
			metrics.JobRetriesTotal.Inc()
		}

		value, err := r.handler.Execute(context.Background(), job.Payload)
		if err == nil {
			result := Result[R]{
				ID:       job.ID,
				Success:  true,
				Attempts: job.Attempts,
				Value:    value,
			}

			r.mu.Lock()
			r.completed[job.ID] = result
			r.mu.Unlock()

			metrics.JobsProcessedTotal.WithLabelValues("completed").Inc()
			logger.Debug("job completed", "attempts", job.Attempts)
			return
		}

		if job.Attempts <= job.MaxRetries {
			logger.Debug("job attempt failed, retrying inline",
				"attempts", job.Attempts,
				"max_retries", job.MaxRetries,
				"error", err)
			continue
		}

		result := Result[R]{
			ID:       job.ID,
			Success:  false,
			Attempts: job.Attempts,
			Err:      err.Error(),
		}

		r.mu.Lock()
		r.failed[job.ID] = result
		r.failedJobs[job.ID] = Job[P]{
			ID:         job.ID,
			Payload:    job.Payload,
			MaxRetries: job.MaxRetries,
			CreatedAt:  job.CreatedAt,
		}
		r.mu.Unlock()

		metrics.JobsProcessedTotal.WithLabelValues("failed").Inc()
		logger.Error("job failed after exhausting retries",
			"attempts", job.Attempts,
			"error", err)
		return
	}
}
