// Package pool bounds how many CPU-bound searches run at once. Callers over
// the limit wait for a slot instead of spawning more work.
package pool

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	apperrors "github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/errors"
)

// Pool is a counting semaphore with occupancy counters.
type Pool struct {
	sem      *semaphore.Weighted
	size     int
	inFlight atomic.Int64
	waiting  atomic.Int64
}

// New returns a pool of size slots; size <= 0 uses runtime.NumCPU().
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	return &Pool{
		sem:  semaphore.NewWeighted(int64(size)),
		size: size,
	}
}

// Run waits for a slot, then calls fn on the caller's goroutine. It returns
// an ErrTimeout-wrapped error if ctx ends while waiting; fn's own errors
// are passed through.
func (p *Pool) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	p.waiting.Add(1)
	err := p.sem.Acquire(ctx, 1)
	p.waiting.Add(-1)
	if err != nil {
		return fmt.Errorf("%w: waiting for a worker: %v", apperrors.ErrTimeout, err)
	}
	p.inFlight.Add(1)
	defer func() {
		p.inFlight.Add(-1)
		p.sem.Release(1)
	}()
	return fn(ctx)
}

// TryRun calls fn only if a slot is free right now.
func (p *Pool) TryRun(ctx context.Context, fn func(ctx context.Context) error) (bool, error) {
	if !p.sem.TryAcquire(1) {
		return false, nil
	}
	p.inFlight.Add(1)
	defer func() {
		p.inFlight.Add(-1)
		p.sem.Release(1)
	}()
	return true, fn(ctx)
}

func (p *Pool) Size() int { return p.size }

// InFlight is the number of callers currently holding a slot.
func (p *Pool) InFlight() int { return int(p.inFlight.Load()) }

// Waiting is the number of callers queued for a slot.
func (p *Pool) Waiting() int { return int(p.waiting.Load()) }
