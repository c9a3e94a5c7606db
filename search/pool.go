package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"disk-search/logger"
)

type poolState int

const (
	poolAccepting poolState = iota
	poolShuttingDown
	poolShutDown
)

// TaskFunc is one unit of pool work. The context carries the per-task deadline.
type TaskFunc func(ctx context.Context) error

// WorkerPool runs tasks with bounded concurrency and a per-task deadline.
type WorkerPool struct {
	sem     *semaphore.Weighted
	timeout time.Duration
	log     logger.Logger

	mu    sync.Mutex
	state poolState
	wg    sync.WaitGroup

	// stray counts timed-out tasks whose goroutine has not returned yet.
	// They no longer hold a slot, so parsers that ignore their context can
	// push real concurrency above the pool size.
	stray atomic.Int64
}

// Stray reports how many timed-out tasks are still running.
func (p *WorkerPool) Stray() int64 {
	return p.stray.Load()
}

// NewWorkerPool creates a pool with size concurrent slots.
func NewWorkerPool(size int, timeout time.Duration, log logger.Logger) *WorkerPool {
	if log == nil {
		log = logger.Nop{}
	}
	return &WorkerPool{
		sem:     semaphore.NewWeighted(int64(max(size, 1))),
		timeout: timeout,
		log:     log,
	}
}

// Submit waits for a free slot and starts fn asynchronously. It returns
// ErrPoolClosed once shutdown has begun, or the context error if ctx ends
// while waiting for a slot.
func (p *WorkerPool) Submit(ctx context.Context, label string, fn TaskFunc) error {
	p.mu.Lock()
	if p.state != poolAccepting {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.wg.Add(1)
	p.mu.Unlock()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		p.wg.Done()
		return err
	}

	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)

		if ctx.Err() != nil {
			return
		}
		if err := p.ExecuteWithTimeout(ctx, fn); err != nil {
			if errors.Is(err, ErrPerFileTimeout) {
				p.log.Debugf("Warning: %s: %v", label, err)
			} else if !errors.Is(err, context.Canceled) {
				p.log.Warnf("Warning: %s: %v", label, err)
			}
		}
	}()
	return nil
}

// ExecuteWithTimeout runs fn under the pool's per-task deadline. When the
// deadline fires first the call returns ErrPerFileTimeout and fn is left to
// observe its cancelled context; until it does it is counted by Stray.
// A panic in fn is returned as an error.
func (p *WorkerPool) ExecuteWithTimeout(ctx context.Context, fn TaskFunc) error {
	tctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	const (
		taskRunning int32 = iota
		taskFinished
		taskAbandoned
	)
	var state atomic.Int32

	done := make(chan error, 1)
	go func() {
		defer func() {
			if !state.CompareAndSwap(taskRunning, taskFinished) {
				p.stray.Add(-1)
			}
		}()
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("task panicked: %v", r)
			}
		}()
		done <- fn(tctx)
	}()

	select {
	case err := <-done:
		return err
	case <-tctx.Done():
		p.stray.Add(1)
		if !state.CompareAndSwap(taskRunning, taskAbandoned) {
			p.stray.Add(-1)
		}
		if errors.Is(tctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return ErrPerFileTimeout
		}
		return tctx.Err()
	}
}

// Shutdown stops accepting work and waits for every submitted task to return.
func (p *WorkerPool) Shutdown() {
	p.mu.Lock()
	if p.state != poolAccepting {
		p.mu.Unlock()
		return
	}
	p.state = poolShuttingDown
	p.mu.Unlock()

	p.wg.Wait()

	p.mu.Lock()
	p.state = poolShutDown
	p.mu.Unlock()
}
