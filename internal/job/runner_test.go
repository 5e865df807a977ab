package job

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func TestNewRunner_InvalidWorkerCount(t *testing.T) {
	t.Parallel()

	handler := HandlerFunc[string, string](func(ctx context.Context, payload string) (string, error) {
		return payload, nil
	})

	for _, count := range []int{0, -1} {
		_, err := NewRunner(handler, RunnerConfig{WorkerCount: count}, testLogger())
		assert.ErrorIs(t, err, ErrNoWorkers, "worker count %d", count)
	}
}

func TestRunner_EveryJobReachesExactlyOneStore(t *testing.T) {
	t.Parallel()

	// Payloads ending in "fail" always error; everything else succeeds.
	handler := HandlerFunc[string, string](func(ctx context.Context, payload string) (string, error) {
		if payload == "fail" {
			return "", errors.New("boom")
		}
		return "ok:" + payload, nil
	})

	runner, err := NewRunner(handler, RunnerConfig{WorkerCount: 4, QueueSize: 64}, testLogger())
	require.NoError(t, err)
	runner.Start()
	defer runner.Shutdown()

	const n = 20
	const maxRetries = 2

	for i := 0; i < n; i++ {
		payload := fmt.Sprintf("item-%d", i)
		if i%4 == 0 {
			payload = "fail"
		}
		require.NoError(t, runner.Submit(NewJob(fmt.Sprintf("job-%d", i), payload, maxRetries)))
	}

	require.True(t, runner.Join(5*time.Second), "runner did not drain")

	completed := runner.Completed()
	failed := runner.Failed()
	assert.Equal(t, n, len(completed)+len(failed))

	for i := 0; i < n; i++ {
		id := fmt.Sprintf("job-%d", i)
		_, inCompleted := completed[id]
		_, inFailed := failed[id]
		assert.True(t, inCompleted != inFailed, "job %s must be in exactly one store", id)
	}

	for _, res := range completed {
		assert.True(t, res.Success)
		assert.LessOrEqual(t, res.Attempts, maxRetries+1)
		assert.Empty(t, res.Err)
	}
	for _, res := range failed {
		assert.False(t, res.Success)
		assert.Equal(t, maxRetries+1, res.Attempts)
		assert.NotEmpty(t, res.Err)
	}
}

func TestRunner_AlwaysFailingJobConsumesCeilingPlusOneAttempts(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int64
	handler := HandlerFunc[struct{}, struct{}](func(ctx context.Context, _ struct{}) (struct{}, error) {
		attempts.Add(1)
		return struct{}{}, errors.New("always fails")
	})

	runner, err := NewRunner(handler, RunnerConfig{WorkerCount: 1}, testLogger())
	require.NoError(t, err)
	runner.Start()
	defer runner.Shutdown()

	const ceiling = 3
	require.NoError(t, runner.Submit(NewJob("doomed", struct{}{}, ceiling)))
	require.True(t, runner.Join(5*time.Second))

	assert.Equal(t, int64(ceiling+1), attempts.Load())

	failed := runner.Failed()
	require.Contains(t, failed, "doomed")
	assert.Equal(t, ceiling+1, failed["doomed"].Attempts)
	assert.Empty(t, runner.Completed())
}

func TestRunner_RetryFailedReplaysQuarantinedJob(t *testing.T) {
	t.Parallel()

	// Fails until the third overall execution, so the first submission
	// (ceiling 0) quarantines it and the replay succeeds or fails again
	// depending on the counter.
	var executions atomic.Int64
	handler := HandlerFunc[string, string](func(ctx context.Context, payload string) (string, error) {
		if executions.Add(1) < 2 {
			return "", errors.New("transient")
		}
		return "done", nil
	})

	runner, err := NewRunner(handler, RunnerConfig{WorkerCount: 1}, testLogger())
	require.NoError(t, err)
	runner.Start()
	defer runner.Shutdown()

	require.NoError(t, runner.Submit(NewJob("flaky", "payload", 0)))
	require.True(t, runner.Join(5*time.Second))

	failed := runner.Failed()
	require.Contains(t, failed, "flaky")
	assert.Equal(t, 1, failed["flaky"].Attempts)

	retried := runner.RetryFailed("flaky")
	assert.Equal(t, 1, retried)

	// Removed from the failed store immediately upon resubmission.
	assert.NotContains(t, runner.Failed(), "flaky")

	require.True(t, runner.Join(5*time.Second))

	completed := runner.Completed()
	require.Contains(t, completed, "flaky")
	// Attempt counter was reset to 0 for the replay.
	assert.Equal(t, 1, completed["flaky"].Attempts)
}

func TestRunner_RetryFailedAllAndUnknownID(t *testing.T) {
	t.Parallel()

	handler := HandlerFunc[string, string](func(ctx context.Context, payload string) (string, error) {
		return "", errors.New("nope")
	})

	runner, err := NewRunner(handler, RunnerConfig{WorkerCount: 2}, testLogger())
	require.NoError(t, err)
	runner.Start()
	defer runner.Shutdown()

	for i := 0; i < 3; i++ {
		require.NoError(t, runner.Submit(NewJob(fmt.Sprintf("j%d", i), "p", 0)))
	}
	require.True(t, runner.Join(5*time.Second))
	require.Len(t, runner.Failed(), 3)
	assert.Equal(t, []string{"j0", "j1", "j2"}, runner.FailedIDs())

	assert.Equal(t, 0, runner.RetryFailed("no-such-job"))

	retried := runner.RetryFailed()
	assert.Equal(t, 3, retried)

	require.True(t, runner.Join(5*time.Second))
	assert.Len(t, runner.Failed(), 3)
}

func TestRunner_ConcurrentRetryFailedAndWorkerDeposits(t *testing.T) {
	t.Parallel()

	handler := HandlerFunc[int, int](func(ctx context.Context, payload int) (int, error) {
		return 0, errors.New("always")
	})

	runner, err := NewRunner(handler, RunnerConfig{WorkerCount: 4, QueueSize: 512}, testLogger())
	require.NoError(t, err)
	runner.Start()
	defer runner.Shutdown()

	for i := 0; i < 50; i++ {
		require.NoError(t, runner.Submit(NewJob(fmt.Sprintf("c%d", i), i, 0)))
	}

	// Hammer RetryFailed while workers are still depositing failures.
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				runner.RetryFailed()
			}
		}()
	}
	wg.Wait()

	require.True(t, runner.Join(10*time.Second))

	// Every job must end up failed exactly once, never lost and never
	// duplicated across stores.
	assert.Len(t, runner.Failed(), 50)
	assert.Empty(t, runner.Completed())
}

func TestRunner_StartIsIdempotent(t *testing.T) {
	t.Parallel()

	var executions atomic.Int64
	handler := HandlerFunc[string, string](func(ctx context.Context, payload string) (string, error) {
		executions.Add(1)
		return payload, nil
	})

	runner, err := NewRunner(handler, RunnerConfig{WorkerCount: 2}, testLogger())
	require.NoError(t, err)

	runner.Start()
	runner.Start()
	defer runner.Shutdown()

	require.NoError(t, runner.Submit(NewJob("once", "p", 0)))
	require.True(t, runner.Join(5*time.Second))

	assert.Equal(t, int64(1), executions.Load())
}

func TestRunner_ShutdownWithQueuedJobs(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	handler := HandlerFunc[string, string](func(ctx context.Context, payload string) (string, error) {
		<-block
		return payload, nil
	})

	runner, err := NewRunner(handler, RunnerConfig{WorkerCount: 1, QueueSize: 16}, testLogger())
	require.NoError(t, err)
	runner.Start()

	for i := 0; i < 5; i++ {
		require.NoError(t, runner.Submit(NewJob(fmt.Sprintf("q%d", i), "p", 0)))
	}

	// Unblock the in-flight job, then stop while the rest are still queued.
	close(block)
	go runner.Shutdown()

	assert.Eventually(t, func() bool {
		return runner.Submit(NewJob("late", "p", 0)) != nil
	}, 5*time.Second, 10*time.Millisecond)

	// Abandoned jobs are neither completed nor failed.
	total := len(runner.Completed()) + len(runner.Failed())
	assert.Less(t, total, 6)

	err = runner.Submit(NewJob("after", "p", 0))
	assert.ErrorIs(t, err, ErrRunnerClosed)
}

func TestRunner_JoinTimesOutWhileJobInFlight(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	handler := HandlerFunc[string, string](func(ctx context.Context, payload string) (string, error) {
		<-release
		return payload, nil
	})

	runner, err := NewRunner(handler, RunnerConfig{WorkerCount: 1}, testLogger())
	require.NoError(t, err)
	runner.Start()
	defer runner.Shutdown()

	require.NoError(t, runner.Submit(NewJob("parked", "p", 0)))

	// The job is parked in its handler, so a short Join must report an
	// incomplete drain instead of returning true.
	assert.False(t, runner.Join(50*time.Millisecond))

	close(release)
	require.True(t, runner.Join(5*time.Second))
	assert.Contains(t, runner.Completed(), "parked")
}

func TestRunner_RejectedSubmitDoesNotCountTowardDrain(t *testing.T) {
	t.Parallel()

	handler := HandlerFunc[string, string](func(ctx context.Context, payload string) (string, error) {
		return payload, nil
	})

	// Workers are not started yet, so the queue fills deterministically.
	runner, err := NewRunner(handler, RunnerConfig{WorkerCount: 1, QueueSize: 1}, testLogger())
	require.NoError(t, err)

	require.NoError(t, runner.Submit(NewJob("kept", "p", 0)))
	require.ErrorIs(t, runner.Submit(NewJob("rejected", "p", 0)), ErrQueueFull)

	runner.Start()
	defer runner.Shutdown()

	// A rejected submission must leave the drain count unchanged, or
	// this Join would never complete.
	require.True(t, runner.Join(5*time.Second))
	assert.Contains(t, runner.Completed(), "kept")
	assert.NotContains(t, runner.Completed(), "rejected")
}

func TestRunner_ShutdownStopsDequeueBeforeNextJob(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	handler := HandlerFunc[string, string](func(ctx context.Context, payload string) (string, error) {
		<-release
		return payload, nil
	})

	runner, err := NewRunner(handler, RunnerConfig{WorkerCount: 1, QueueSize: 16}, testLogger())
	require.NoError(t, err)
	runner.Start()

	require.NoError(t, runner.Submit(NewJob("inflight", "p", 0)))
	require.Eventually(t, func() bool { return len(runner.queue) == 0 },
		5*time.Second, time.Millisecond, "worker never picked up the job")

	require.NoError(t, runner.Submit(NewJob("queued-a", "p", 0)))
	require.NoError(t, runner.Submit(NewJob("queued-b", "p", 0)))

	done := make(chan struct{})
	go func() {
		runner.Shutdown()
		close(done)
	}()
	require.Eventually(t, func() bool { return runner.ctx.Err() != nil },
		5*time.Second, time.Millisecond, "stop signal never issued")

	close(release)
	<-done

	// The worker finishes its in-flight job but must observe the stop
	// signal before dequeuing another.
	assert.Contains(t, runner.Completed(), "inflight")
	assert.NotContains(t, runner.Completed(), "queued-a")
	assert.NotContains(t, runner.Completed(), "queued-b")
	assert.Empty(t, runner.Failed())
}

func TestRunner_SubmitQueueFull(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	defer close(block)

	handler := HandlerFunc[string, string](func(ctx context.Context, payload string) (string, error) {
		<-block
		return payload, nil
	})

	// QueueSize below the default so the queue fills up fast; the single
	// worker is parked on the first job.
	runner, err := NewRunner(handler, RunnerConfig{WorkerCount: 1, QueueSize: 1}, testLogger())
	require.NoError(t, err)
	runner.Start()
	defer runner.Shutdown()

	require.NoError(t, runner.Submit(NewJob("first", "p", 0)))

	var sawFull bool
	for i := 0; i < 10; i++ {
		if errors.Is(runner.Submit(NewJob(fmt.Sprintf("extra%d", i), "p", 0)), ErrQueueFull) {
			sawFull = true
			break
		}
	}
	assert.True(t, sawFull, "expected ErrQueueFull once the queue was at capacity")
}
