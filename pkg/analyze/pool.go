package analyze

import (
	"context"
	"sync"
)

// pool runs tokenization jobs on a fixed number of goroutines.
type pool struct {
	jobs    chan func()
	wg      sync.WaitGroup
	workers int
}

func newPool(workers int) *pool {
	if workers <= 0 {
		workers = 4
	}
	return &pool{
		jobs:    make(chan func(), workers*2),
		workers: workers,
	}
}

// Start launches the workers. They drain the queue until Close or
// ctx cancellation.
func (p *pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-p.jobs:
					if !ok {
						return
					}
					job()
				}
			}
		}()
	}
}

// Submit enqueues a job, blocking when the queue is full. It reports
// false when ctx is cancelled before the job could be queued.
func (p *pool) Submit(ctx context.Context, job func()) bool {
	select {
	case p.jobs <- job:
		return true
	case <-ctx.Done():
		return false
	}
}

// Close stops accepting jobs and waits for the workers to finish.
func (p *pool) Close() {
	close(p.jobs)
	p.wg.Wait()
}
