package runner

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// MaxWorkersCount caps the default worker count.
const MaxWorkersCount = 16

// DefaultWorkersCount returns min(2 x NumCPU, 16).
func DefaultWorkersCount() int {
	n := 2 * runtime.NumCPU()
	if n > MaxWorkersCount {
		n = MaxWorkersCount
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Pool bounds how many runs execute at the same time. Runners sharing a Pool share the bound;
// a run waiting for a slot has already been started and is simply queued.
type Pool struct {
	sem  *semaphore.Weighted
	size int
}

// NewPool creates a pool with size slots. A size <= 0 selects DefaultWorkersCount.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = DefaultWorkersCount()
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

// Size returns the number of slots.
func (p *Pool) Size() int {
	return p.size
}

// Acquire blocks until a slot is free or ctx ends.
func (p *Pool) Acquire(ctx context.Context) error {
	return p.sem.Acquire(ctx, 1)
}

// TryAcquire takes a slot without blocking.
func (p *Pool) TryAcquire() bool {
	return p.sem.TryAcquire(1)
}

// Release returns a slot.
func (p *Pool) Release() {
	p.sem.Release(1)
}
