// Package workpool provides the bounded worker pool that executes command
// handlers off the per-connection read loops. Bounding the pool keeps a burst
// of connections from spawning an unbounded number of in-flight commands.
package workpool

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

// ErrClosed is returned by Submit after Close has been called.
var ErrClosed = errors.New("workpool: closed")

// Pool runs submitted tasks on a fixed set of worker goroutines fed by a
// buffered queue. Submit blocks (with ctx cancellation) once the queue is
// full, which backpressures the callers.
type Pool struct {
	tasks chan func()
	wg    sync.WaitGroup

	// mu protects closed and, held as RLock across the queue send, keeps
	// Close from closing the channel under an in-flight Submit.
	mu     sync.RWMutex
	closed bool
}

// New starts a pool with the given number of workers. size <= 0 means
// GOMAXPROCS. The queue holds 4 tasks per worker.
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	p := &Pool{tasks: make(chan func(), size*4)}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		task()
	}
}

// Submit enqueues task for execution. It blocks while the queue is full and
// returns ctx.Err() if the context is cancelled first, or ErrClosed if the
// pool has been shut down.
func (p *Pool) Submit(ctx context.Context, task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting tasks and waits for queued and in-flight tasks to
// finish. Safe to call more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
}
