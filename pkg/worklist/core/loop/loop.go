// Package loop provides the owning goroutine's execution context.
//
// Table and tracker state are only touched by the goroutine that drains a Loop.
// Other goroutines hand work to it with Post, which never blocks and preserves FIFO order.
package loop

import (
	"context"
	"errors"
	"sync"

	logger "github.com/tigerroll/worklist/pkg/worklist/support/util/logger"
)

// ErrClosed is returned by Run and RunOnce after Close.
var ErrClosed = errors.New("loop closed")

// Executor accepts tasks to be run on an owning goroutine.
type Executor interface {
	// Post enqueues fn. It returns false if the executor no longer accepts tasks.
	Post(fn func()) bool
}

// Loop is an unbounded FIFO task queue drained by a single owning goroutine.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	closed bool
}

// New creates an empty Loop.
func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post enqueues fn. Safe for concurrent use; never waits for fn to run.
func (l *Loop) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		logger.Debugf("Loop: task posted after close was dropped.")
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// RunPending runs the tasks queued at call time, plus any they post, until the queue is empty.
// It returns the number of tasks run. It must be called from the owning goroutine.
func (l *Loop) RunPending() int {
	n := 0
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		if len(batch) == 0 {
			return n
		}
		for _, fn := range batch {
			fn()
			n++
		}
	}
}

// RunOnce waits until at least one task is queued, then runs every pending task.
func (l *Loop) RunOnce(ctx context.Context) error {
	for {
		if l.RunPending() > 0 {
			return nil
		}
		l.mu.Lock()
		closed := l.closed
		l.mu.Unlock()
		if closed {
			return ErrClosed
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Run drains the loop until ctx is done or the loop is closed.
// Tasks already queued when Close is called still run.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if err := l.RunOnce(ctx); err != nil {
			if errors.Is(err, ErrClosed) {
				return nil
			}
			return err
		}
	}
}

// RunUntil drains the loop until done returns true (checked after each drain) or ctx ends.
func (l *Loop) RunUntil(ctx context.Context, done func() bool) error {
	for !done() {
		if err := l.RunOnce(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close stops accepting tasks and wakes a blocked Run.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

var _ Executor = (*Loop)(nil)

// Immediate runs tasks synchronously on the posting goroutine.
// It is only correct when everything already runs on one goroutine, e.g. in single-threaded tests.
type Immediate struct{}

// Post runs fn at once.
func (Immediate) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	fn()
	return true
}

var _ Executor = Immediate{}
