// Package worker runs bulk claim work on a bounded set of goroutines.
package worker

import (
	"context"
	"sync"
)

// Task is a unit of work producing one result
type Task[R any] func(ctx context.Context) R

// Pool executes submitted tasks on a fixed number of workers. Results are
// collected internally, so a slow caller never stalls the workers.
type Pool[R any] struct {
	workers int
	tasks   chan Task[R]

	mu      sync.Mutex
	results []R

	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewPool creates a pool bound to ctx. Fewer than one worker means one.
func NewPool[R any](ctx context.Context, workers int) *Pool[R] {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Pool[R]{
		workers: workers,
		tasks:   make(chan Task[R], workers*2),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers
func (p *Pool[R]) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool[R]) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			r := task(p.ctx)
			p.mu.Lock()
			p.results = append(p.results, r)
			p.mu.Unlock()
		}
	}
}

// Submit queues a task. It returns false once the pool is cancelled.
func (p *Pool[R]) Submit(task Task[R]) bool {
	// A ready queue would otherwise race the cancellation in the select
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.tasks <- task:
		return true
	}
}

// Wait stops intake, waits for queued tasks and returns every result in
// completion order. Submit must not be called after Wait.
func (p *Pool[R]) Wait() []R {
	p.closeOnce.Do(func() { close(p.tasks) })
	p.wg.Wait()
	p.cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.results
}

// Shutdown abandons queued tasks and waits for running ones to return
func (p *Pool[R]) Shutdown() {
	p.cancel()
	p.wg.Wait()
}
