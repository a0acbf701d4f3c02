package app

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/xterminal/internal/logging"
)

// DefaultQueueSize is the number of tasks a Loop buffers before Post blocks.
const DefaultQueueSize = 1024

// Loop runs posted tasks one at a time on the goroutine that calls Run.
// Workspace state is only touched from inside tasks, so it needs no locks.
type Loop struct {
	tasks   chan func()
	done    chan struct{}
	once    sync.Once
	running atomic.Bool
	logger  *logging.Logger
	metrics *Metrics
}

// NewLoop creates a loop. metrics may be nil.
func NewLoop(size int, logger *logging.Logger, metrics *Metrics) *Loop {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if logger == nil {
		logger = logging.Null
	}
	return &Loop{
		tasks:   make(chan func(), size),
		done:    make(chan struct{}),
		logger:  logger.WithComponent("loop"),
		metrics: metrics,
	}
}

// Post queues fn. Tasks run in the order they were posted. Post blocks while
// the queue is full and drops fn once the loop has stopped.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	select {
	case <-l.done:
		return
	default:
	}
	select {
	case l.tasks <- fn:
	case <-l.done:
	}
}

// Do runs fn on the loop and waits for it to finish. It must not be called
// from inside a task.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	select {
	case <-l.done:
		return ErrNotRunning
	case l.tasks <- func() {
		defer close(finished)
		fn()
	}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes tasks until Stop is called or ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer l.running.Store(false)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		case fn := <-l.tasks:
			l.exec(fn)
		}
	}
}

// Stop ends Run. Queued tasks are discarded.
func (l *Loop) Stop() {
	l.once.Do(func() { close(l.done) })
}

// Stopped reports whether Stop was called.
func (l *Loop) Stopped() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// exec runs one task. A panicking task is logged and the loop keeps going.
func (l *Loop) exec(fn func()) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err := NewRecoveredPanicError(r, string(debug.Stack()))
			l.logger.WithError(err).Error("task panicked: %v", r)
			if l.metrics != nil {
				l.metrics.RecordPanic()
			}
		}
		if l.metrics != nil {
			l.metrics.RecordTask(time.Since(start))
		}
	}()
	fn()
}
