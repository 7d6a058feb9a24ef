// Package backfill runs best-effort side tasks off the request path.
package backfill

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"rift-stats-lab/internal/logger"
	"rift-stats-lab/internal/observability"
)

// Default configuration values.
const (
	DefaultWorkers     = 4
	DefaultQueueSize   = 256
	DefaultTaskTimeout = 10 * time.Second
)

var (
	// ErrQueueFull is reported to the observer when a task is dropped.
	ErrQueueFull = errors.New("backfill queue full")
	// ErrClosed is reported when a task is submitted after Close.
	ErrClosed = errors.New("backfill runner closed")
)

// Task is a best-effort unit of work.
type Task func(ctx context.Context) error

// Observer receives every task failure, including dropped tasks.
type Observer func(name string, err error)

// Submitter accepts side tasks. Submit must never block the caller.
type Submitter interface {
	Submit(name string, task Task)
}

// Options configures a Runner.
type Options struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
	Observer    Observer
	Logger      *logger.Logger
}

type job struct {
	name string
	task Task
}

// Runner is a bounded worker pool for side tasks.
type Runner struct {
	jobs     chan job
	timeout  time.Duration
	observer Observer
	log      *logger.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewRunner starts a runner with opts.Workers goroutines.
func NewRunner(opts Options) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = DefaultTaskTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		jobs:     make(chan job, opts.QueueSize),
		timeout:  opts.TaskTimeout,
		observer: opts.Observer,
		log:      logger.OrNop(opts.Logger),
		baseCtx:  ctx,
		cancel:   cancel,
	}

	for i := 0; i < opts.Workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	return r
}

// Submit enqueues a task. A full queue drops the task and reports ErrQueueFull.
func (r *Runner) Submit(name string, task Task) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.report(name, ErrClosed)
		return
	}

	select {
	case r.jobs <- job{name: name, task: task}:
		observability.SetBackfillQueueDepth(len(r.jobs))
	default:
		observability.RecordBackfill("dropped")
		r.report(name, ErrQueueFull)
	}
}

// Close stops accepting tasks, drains the queue and waits for workers.
// If ctx expires first, in-flight tasks are cancelled.
func (r *Runner) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.jobs)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		<-done
		return fmt.Errorf("drain backfill queue: %w", ctx.Err())
	}
}

func (r *Runner) worker() {
	defer r.wg.Done()
	for j := range r.jobs {
		observability.SetBackfillQueueDepth(len(r.jobs))
		r.run(j)
	}
}

func (r *Runner) run(j job) {
	ctx, cancel := context.WithTimeout(r.baseCtx, r.timeout)
	defer cancel()

	err := safeRun(ctx, j.task)
	if err != nil {
		observability.RecordBackfill("failed")
		r.report(j.name, err)
		return
	}
	observability.RecordBackfill("ok")
}

func (r *Runner) report(name string, err error) {
	r.log.Warn("backfill task failed", "task", name, "error", err)
	if r.observer != nil {
		r.observer(name, err)
	}
}

func safeRun(ctx context.Context, task Task) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("task panicked: %v", rec)
		}
	}()
	return task(ctx)
}

// Inline runs tasks synchronously on Submit. Intended for tests.
type Inline struct {
	Observer Observer
	Timeout  time.Duration
}

// NewInline returns a synchronous Submitter.
func NewInline(observer Observer) *Inline {
	return &Inline{Observer: observer}
}

// Submit runs the task immediately and reports failures to the observer.
func (i *Inline) Submit(name string, task Task) {
	ctx := context.Background()
	if i.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.Timeout)
		defer cancel()
	}
	if err := safeRun(ctx, task); err != nil && i.Observer != nil {
		i.Observer(name, err)
	}
}

var (
	_ Submitter = (*Runner)(nil)
	_ Submitter = (*Inline)(nil)
)
