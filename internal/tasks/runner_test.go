package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedRunner(t *testing.T, cfg Config) (*Runner, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	r := NewRunner(cfg, WithLogger(zap.New(core)))
	t.Cleanup(func() { _ = r.Stop(context.Background()) })
	return r, logs
}

func stopWithin(t *testing.T, r *Runner, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, r.Stop(ctx))
}

func TestRunnerExecutesSubmittedTasks(t *testing.T) {
	r, _ := newObservedRunner(t, Config{Workers: 3, QueueSize: 32})
	r.Start()

	var count atomic.Int32
	for i := 0; i < 20; i++ {
		require.True(t, r.Submit("count", func(context.Context) error {
			count.Add(1)
			return nil
		}))
	}

	stopWithin(t, r, 5*time.Second)
	require.Equal(t, int32(20), count.Load())
}

func TestRunnerDropsWhenQueueFull(t *testing.T) {
	r, logs := newObservedRunner(t, Config{Workers: 1, QueueSize: 1})

	noop := func(context.Context) error { return nil }
	require.True(t, r.Submit("first", noop))

	start := time.Now()
	require.False(t, r.Submit("second", noop))
	require.Less(t, time.Since(start), time.Second, "submit must not block")

	require.Equal(t, 1, logs.FilterMessage("background task dropped").Len())
	require.Equal(t, 1, r.Pending())
	require.Equal(t, 1, r.Capacity())
}

func TestRunnerRejectsAfterStop(t *testing.T) {
	r, _ := newObservedRunner(t, Config{})
	r.Start()
	stopWithin(t, r, time.Second)

	require.False(t, r.Submit("late", func(context.Context) error { return nil }))
	require.NoError(t, r.Stop(context.Background()), "stop is idempotent")
}

func TestRunnerRejectsNilTask(t *testing.T) {
	r, _ := newObservedRunner(t, Config{})
	require.False(t, r.Submit("nil", nil))
}

func TestRunnerRecoversPanics(t *testing.T) {
	r, logs := newObservedRunner(t, Config{Workers: 1, QueueSize: 4})
	r.Start()

	var ran atomic.Bool
	require.True(t, r.Submit("explode", func(context.Context) error { panic("boom") }))
	require.True(t, r.Submit("after", func(context.Context) error {
		ran.Store(true)
		return nil
	}))

	stopWithin(t, r, 5*time.Second)

	require.True(t, ran.Load(), "worker must survive a panicking task")
	entries := logs.FilterMessage("background task panicked").All()
	require.Len(t, entries, 1)
	require.Equal(t, "explode", entries[0].ContextMap()["task"])
}

func TestRunnerLogsFailures(t *testing.T) {
	r, logs := newObservedRunner(t, Config{Workers: 1})
	r.Start()

	require.True(t, r.Submit("fail", func(context.Context) error { return errors.New("generator down") }))
	stopWithin(t, r, 5*time.Second)

	entries := logs.FilterMessage("background task failed").All()
	require.Len(t, entries, 1)
	require.Equal(t, "generator down", entries[0].ContextMap()["error"])
}

func TestRunnerTaskContextIsDetached(t *testing.T) {
	r, _ := newObservedRunner(t, Config{Workers: 1})
	r.Start()

	requestCtx, cancelRequest := context.WithCancel(context.Background())
	cancelRequest()
	require.Error(t, requestCtx.Err())

	var taskErr atomic.Value
	require.True(t, r.Submit("detached", func(ctx context.Context) error {
		taskErr.Store(ctx.Err() == nil)
		return nil
	}))
	stopWithin(t, r, 5*time.Second)

	require.Equal(t, true, taskErr.Load())
}

func TestRunnerStopTimesOutAndCancelsRunningTasks(t *testing.T) {
	r, _ := newObservedRunner(t, Config{Workers: 1})
	r.Start()

	started := make(chan struct{})
	cancelled := make(chan struct{})
	require.True(t, r.Submit("slow", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := r.Stop(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	select {
	case <-cancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("running task was not cancelled")
	}
}

func TestRunnerStopBeforeStart(t *testing.T) {
	r, logs := newObservedRunner(t, Config{QueueSize: 2})
	require.True(t, r.Submit("queued", func(context.Context) error { return nil }))

	require.NoError(t, r.Stop(context.Background()))
	require.Equal(t, 1, logs.FilterMessage("task runner stopped before start, discarding queued tasks").Len())

	r.Start()
	require.False(t, r.Submit("late", func(context.Context) error { return nil }))
}
