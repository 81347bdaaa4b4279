package queue

import (
	"context"
	"errors"
	"log"
	"sync"
)

// Runner is the background execution unit the pool drives.
type Runner interface {
	Process(ctx context.Context, jobID string) error
}

// Pool executes jobs on in-process goroutines. It is the default dispatcher
// for single-binary deployments and for tests; multi-process deployments use
// the rabbitmq Publisher and worker binary instead.
type Pool struct {
	jobs        chan string
	concurrency int
	wg          sync.WaitGroup

	mu      sync.RWMutex
	started bool
	closed  bool
}

func NewPool(concurrency int) *Pool {
	if concurrency <= 0 {
		concurrency = 2
	}
	return &Pool{
		jobs:        make(chan string, concurrency*2),
		concurrency: concurrency,
	}
}

// Start launches the workers. ctx is the process lifetime, not a request
// context: background execution outlives the request that scheduled it.
func (p *Pool) Start(ctx context.Context, runner Runner) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	p.wg.Add(p.concurrency)
	for i := 0; i < p.concurrency; i++ {
		go func(workerID int) {
			defer p.wg.Done()
			for jobID := range p.jobs {
				if err := runner.Process(ctx, jobID); err != nil {
					log.Printf("worker=%d job=%s process failed err=%v", workerID, jobID, err)
				}
			}
		}(i)
	}
}

// Enqueue hands a job to the pool. It blocks only while the buffer is full.
// The read lock is held across the send so Stop cannot close the channel
// under an in-flight sender.
func (p *Pool) Enqueue(ctx context.Context, jobID string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return errors.New("queue: pool is stopped")
	}

	select {
	case p.jobs <- jobID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop drains the queue and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.jobs)
	p.wg.Wait()
}
