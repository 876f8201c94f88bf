// Package dispatch provides the serialized dispatch context a rendering
// backend owns. Every observable mutation of a binding session runs on it.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// ErrStopped is returned by Drain when the loop is not running anymore.
var ErrStopped = errors.New("dispatch loop stopped")

// Task is a unit of work run on the loop.
type Task = func(ctx context.Context)

type loopKey struct{}

// Config holds the loop settings.
type Config struct {
	// Name identifies the loop in logs.
	Name string
	// QueueWarn logs a warning whenever the backlog reaches a multiple of it.
	// Zero disables the warning.
	QueueWarn int
	Logger    *slog.Logger
}

// Loop runs tasks one at a time in FIFO order on the goroutine that called
// Run. It implements spi.Executor.
type Loop struct {
	name      string
	queueWarn int
	logger    *slog.Logger
	queue     *Queue[Task]
	running   atomic.Bool
	done      chan struct{}
}

// New creates a loop. Tasks queued before Run are kept.
func New(cfg Config) *Loop {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	name := cfg.Name
	if name == "" {
		name = "dispatch"
	}
	return &Loop{
		name:      name,
		queueWarn: cfg.QueueWarn,
		logger:    logger.With("loop", name),
		queue:     NewQueue[Task](),
		done:      make(chan struct{}),
	}
}

// On reports whether ctx belongs to a task running on l.
func (l *Loop) On(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	owner, _ := ctx.Value(loopKey{}).(*Loop)
	return owner == l
}

// Execute runs task in place when ctx is already on the loop and queues it
// otherwise.
func (l *Loop) Execute(ctx context.Context, task Task) {
	if l.On(ctx) {
		task(ctx)
		return
	}
	n := l.queue.Push(task)
	if l.queueWarn > 0 && n%l.queueWarn == 0 {
		l.logger.Warn("dispatch backlog growing", "queued", n)
	}
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	return l.queue.Len()
}

// Run executes queued tasks until ctx is cancelled. It must be called at
// most once.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return fmt.Errorf("%s: already running", l.name)
	}
	defer close(l.done)

	lctx := context.WithValue(ctx, loopKey{}, l)
	l.logger.Debug("dispatch loop started")
	for {
		l.drain(lctx)
		select {
		case <-ctx.Done():
			l.logger.Debug("dispatch loop stopped", "dropped", l.queue.Len())
			return nil
		case <-l.queue.Ready():
		}
	}
}

func (l *Loop) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		task, ok := l.queue.Pop()
		if !ok {
			return
		}
		l.run(ctx, task)
	}
}

func (l *Loop) run(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("dispatch task panicked", "panic", r)
		}
	}()
	task(ctx)
}

// Drain waits until every task queued before the call has run.
func (l *Loop) Drain(ctx context.Context) error {
	if l.On(ctx) {
		return fmt.Errorf("%s: drain called from the loop itself", l.name)
	}
	flushed := make(chan struct{})
	l.queue.Push(func(context.Context) { close(flushed) })
	select {
	case <-flushed:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Call runs task on the loop and waits for it to finish.
func (l *Loop) Call(ctx context.Context, task Task) error {
	if l.On(ctx) {
		task(ctx)
		return nil
	}
	finished := make(chan struct{})
	l.queue.Push(func(ctx context.Context) {
		defer close(finished)
		task(ctx)
	})
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}
