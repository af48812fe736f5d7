// Package pool bounds how many tasks run at once.
//
// A Pool with limit 1 is a FIFO serialization queue: semaphore waiters are
// admitted in the order they called Acquire, so tasks run one at a time in
// submission order.
package pool

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// ErrPanic wraps a panic recovered from a task.
var ErrPanic = errors.New("task panicked")

// Pool limits concurrent tasks using a weighted semaphore.
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool creates a Pool that allows at most limit concurrent tasks.
func NewPool(limit int) *Pool {
	if limit < 1 {
		limit = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(limit))}
}

// Run acquires a slot, runs fn, and releases the slot.
// Blocks if all slots are busy. Returns ctx.Err() if the context
// is cancelled while waiting for a slot. A panic in fn is returned as an
// error wrapping ErrPanic and the slot is still released.
// If the pool is nil, fn is executed directly without concurrency control.
func (p *Pool) Run(ctx context.Context, fn func() error) error {
	if p == nil || p.sem == nil {
		return safeCall(fn)
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return safeCall(fn)
}

func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return fn()
}
