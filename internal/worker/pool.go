// Package worker bounds the concurrency of blocking pipeline stages.
package worker

import (
	"context"
	"fmt"
)

// Pool is a bounded slot pool. A job occupies a slot only while one of its
// blocking stages (acquisition, persistence) runs; between stages no slot
// is held, so pool sizing caps system-wide in-flight acquisitions without
// capping the number of jobs.
type Pool struct {
	slots chan struct{}
}

// NewPool creates a pool with the given number of slots.
func NewPool(size int) (*Pool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("pool size must be > 0, got %d", size)
	}
	return &Pool{slots: make(chan struct{}, size)}, nil
}

// Do acquires a slot, runs fn, and releases the slot. It fails without
// running fn when ctx expires while waiting, so a saturated pool surfaces
// as a stage timeout rather than an unbounded queue.
func (p *Pool) Do(ctx context.Context, fn func(context.Context) error) error {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("worker slot wait: %w", ctx.Err())
	}
	defer func() { <-p.slots }()
	return fn(ctx)
}

// InFlight returns the number of currently occupied slots.
func (p *Pool) InFlight() int {
	return len(p.slots)
}
