// Package worker provides a bounded pool for detached background tasks.
package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// ErrPoolClosed is returned when submitting to a closed pool.
var ErrPoolClosed = errors.New("worker pool is closed")

// Task is a unit of background work. ctx is cancelled when the pool closes.
type Task func(ctx context.Context)

// Pool runs submitted tasks with at most size running at once.
// Submit never blocks; excess tasks wait for a free slot.
type Pool struct {
	ctx    context.Context
	cancel context.CancelFunc
	sem    chan struct{}

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	running atomic.Int64
	pending atomic.Int64
}

// NewPool creates a pool allowing size concurrent tasks.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		ctx:    ctx,
		cancel: cancel,
		sem:    make(chan struct{}, size),
	}
}

// Submit schedules task and returns immediately.
func (p *Pool) Submit(task Task) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.wg.Add(1)
	p.mu.Unlock()

	p.pending.Add(1)
	go func() {
		defer p.wg.Done()

		select {
		case p.sem <- struct{}{}:
		case <-p.ctx.Done():
			p.pending.Add(-1)
			return
		}
		defer func() { <-p.sem }()

		p.pending.Add(-1)
		p.running.Add(1)
		defer p.running.Add(-1)

		defer func() {
			if r := recover(); r != nil {
				zlog.Error().Msgf("worker task panicked: %v", r)
			}
		}()

		task(p.ctx)
	}()
	return nil
}

// Running returns the number of tasks currently executing.
func (p *Pool) Running() int {
	return int(p.running.Load())
}

// Pending returns the number of tasks waiting for a slot.
func (p *Pool) Pending() int {
	return int(p.pending.Load())
}

// Wait blocks until every submitted task has finished or ctx is done.
func (p *Pool) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.wg.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close rejects new tasks, cancels running ones and waits up to timeout
// for them to return. It reports whether the pool drained in time.
func (p *Pool) Close(timeout time.Duration) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return true
	}
	p.closed = true
	p.mu.Unlock()

	p.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := p.Wait(ctx); err != nil {
		zlog.Warn().Msgf("worker pool did not drain within %s: running=%d", timeout, p.Running())
		return false
	}
	return true
}
