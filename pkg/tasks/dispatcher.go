// Package tasks runs best-effort background work, such as outbound email and
// push delivery, on a bounded in-process worker pool.
package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/koumale-backend/pkg/logger"
	"github.com/angelmondragon/koumale-backend/pkg/metrics"
)

// Func is one unit of background work.
type Func func(ctx context.Context) error

// Submitter accepts background work without blocking the caller.
type Submitter interface {
	Submit(ctx context.Context, kind string, fn Func) bool
}

// Config sizes the worker pool.
type Config struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
}

const (
	defaultWorkers     = 4
	defaultQueueSize   = 256
	defaultTaskTimeout = 30 * time.Second
)

type task struct {
	kind string
	ctx  context.Context
	fn   Func
}

// Dispatcher executes each submitted task at most once. Tasks submitted while
// the queue is full or after Close are dropped and logged.
type Dispatcher struct {
	cfg     Config
	logg    *logger.Logger
	metrics *metrics.TaskMetrics
	queue   chan task
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts the worker pool.
func NewDispatcher(cfg Config, logg *logger.Logger, m *metrics.TaskMetrics) (*Dispatcher, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = defaultTaskTimeout
	}

	d := &Dispatcher{
		cfg:     cfg,
		logg:    logg,
		metrics: m,
		queue:   make(chan task, cfg.QueueSize),
	}
	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d, nil
}

// Submit enqueues fn. The task runs detached from the request's cancellation
// but keeps its logging fields. It returns false when the task was dropped.
func (d *Dispatcher) Submit(ctx context.Context, kind string, fn Func) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(ctx, kind, "dispatcher closed")
		return false
	}

	select {
	case d.queue <- task{kind: kind, ctx: context.WithoutCancel(ctx), fn: fn}:
		d.metrics.IncSubmitted(kind)
		return true
	default:
		d.drop(ctx, kind, "queue full")
		return false
	}
}

// Close stops accepting tasks and waits for queued work to finish or ctx to
// expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for t := range d.queue {
		d.run(t)
	}
}

func (d *Dispatcher) run(t task) {
	ctx, cancel := context.WithTimeout(t.ctx, d.cfg.TaskTimeout)
	defer cancel()
	ctx = d.logg.WithField(ctx, "task_kind", t.kind)

	defer func() {
		if r := recover(); r != nil {
			d.metrics.IncFailed(t.kind)
			d.logg.Error(ctx, "task.panic", fmt.Errorf("panic: %v", r))
		}
	}()

	if err := t.fn(ctx); err != nil {
		d.metrics.IncFailed(t.kind)
		d.logg.Error(ctx, "task.failed", err)
		return
	}
	d.metrics.IncCompleted(t.kind)
}

func (d *Dispatcher) drop(ctx context.Context, kind, reason string) {
	d.metrics.IncDropped(kind)
	ctx = d.logg.WithFields(ctx, map[string]any{"task_kind": kind, "reason": reason})
	d.logg.Warn(ctx, "task.dropped")
}

// Inline runs tasks synchronously on the caller's goroutine. Tests and
// one-shot commands use it where ordering matters.
type Inline struct {
	Logg *logger.Logger
}

func (i Inline) Submit(ctx context.Context, kind string, fn Func) bool {
	if err := fn(ctx); err != nil && i.Logg != nil {
		i.Logg.Error(i.Logg.WithField(ctx, "task_kind", kind), "task.failed", err)
	}
	return true
}
