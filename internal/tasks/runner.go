package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/socialink/pkg/logger"
	"github.com/charlesng35/socialink/pkg/metrics"
)

const (
	// DefaultWorkers is the number of goroutines draining the queue.
	DefaultWorkers = 4
	// DefaultQueueSize bounds the number of tasks waiting for a worker.
	DefaultQueueSize = 64
)

// Task is a unit of background work. The context is not tied to any request
// and is only cancelled when the runner gives up waiting during Stop.
type Task func(ctx context.Context) error

// Config sizes the runner.
type Config struct {
	Workers   int
	QueueSize int
}

// Option customises a Runner.
type Option func(*Runner)

// WithLogger overrides the runner's logger.
func WithLogger(log *zap.Logger) Option {
	return func(r *Runner) {
		if log != nil {
			r.log = log
		}
	}
}

type job struct {
	name     string
	fn       Task
	enqueued time.Time
}

// Runner executes fire-and-forget tasks on a fixed pool of workers. Tasks are
// at-most-once: nothing is persisted and there are no retries.
type Runner struct {
	workers int
	queue   chan job
	log     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	started bool
	stopped bool
}

// NewRunner constructs a runner. Call Start to begin processing.
func NewRunner(cfg Config, opts ...Option) *Runner {
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		workers: workers,
		queue:   make(chan job, size),
		log:     logger.WithModule("tasks"),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Start launches the workers. Calling it more than once has no effect.
func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started || r.stopped {
		return
	}
	r.started = true

	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.work()
	}
	r.log.Info("task runner started", zap.Int("workers", r.workers), zap.Int("queue_size", cap(r.queue)))
}

// Submit enqueues task without blocking. It reports false, and the task is
// discarded, when the queue is full or the runner has been stopped.
func (r *Runner) Submit(name string, task Task) bool {
	if task == nil {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.stopped {
		r.drop(name, "runner stopped")
		return false
	}

	select {
	case r.queue <- job{name: name, fn: task, enqueued: time.Now()}:
		metrics.BackgroundTasks.WithLabelValues(name, "submitted").Inc()
		return true
	default:
		r.drop(name, "queue full")
		return false
	}
}

// Pending reports how many tasks are waiting for a worker.
func (r *Runner) Pending() int {
	return len(r.queue)
}

// Capacity reports the queue size.
func (r *Runner) Capacity() int {
	return cap(r.queue)
}

// Stop refuses new tasks, lets the workers finish everything already queued
// and waits for them until ctx is done. Tasks still running at that point
// see their context cancelled.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	started := r.started
	close(r.queue)
	r.mu.Unlock()

	if !started {
		r.cancel()
		if pending := len(r.queue); pending > 0 {
			r.log.Warn("task runner stopped before start, discarding queued tasks", zap.Int("pending", pending))
		}
		return nil
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		r.log.Info("task runner stopped")
		return nil
	case <-ctx.Done():
		r.cancel()
		return fmt.Errorf("tasks: stop: %w", ctx.Err())
	}
}

func (r *Runner) work() {
	defer r.wg.Done()
	for j := range r.queue {
		r.run(j)
	}
}

func (r *Runner) run(j job) {
	start := time.Now()
	fields := []zap.Field{
		zap.String("task", j.name),
		zap.Duration("queued", start.Sub(j.enqueued)),
	}

	defer func() {
		if rec := recover(); rec != nil {
			metrics.BackgroundTasks.WithLabelValues(j.name, "panicked").Inc()
			r.log.Error("background task panicked",
				append(fields, zap.Any("panic", rec), zap.Stack("stack"))...,
			)
		}
	}()

	if err := j.fn(r.ctx); err != nil {
		metrics.BackgroundTasks.WithLabelValues(j.name, "failed").Inc()
		r.log.Warn("background task failed",
			append(fields, zap.Duration("duration", time.Since(start)), zap.Error(err))...,
		)
		return
	}

	metrics.BackgroundTasks.WithLabelValues(j.name, "succeeded").Inc()
	r.log.Debug("background task completed", append(fields, zap.Duration("duration", time.Since(start)))...)
}

func (r *Runner) drop(name, reason string) {
	metrics.BackgroundTasks.WithLabelValues(name, "dropped").Inc()
	r.log.Warn("background task dropped", zap.String("task", name), zap.String("reason", reason))
}
