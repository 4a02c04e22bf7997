// Package taskqueue runs background jobs on a fixed pool of cooperative
// workers, either in FIFO order or ordered by an explicit priority.
package taskqueue

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Job is a unit of background work. A job that panics is recovered and
// logged; the worker that ran it continues draining the queue.
type Job func(ctx context.Context)

// Queue is a FIFO background task queue drained by a fixed pool of
// worker goroutines.
type Queue struct {
	jobs   chan Job
	logger *zap.Logger

	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	mu      sync.Mutex
}

// NewQueue creates a queue with the given channel buffer depth (backlog
// accepted by Enqueue before it blocks the caller). The workers argument
// is not stored; the pool size is the workers argument passed to Start.
func NewQueue(workers, backlog int, logger *zap.Logger) *Queue {
	if workers < 1 {
		workers = 1
	}
	if backlog < 0 {
		backlog = 0
	}
	return &Queue{
		jobs:   make(chan Job, backlog),
		logger: logger,
	}
}

// Start launches the worker pool. Calling Start twice has no effect.
func (q *Queue) Start(ctx context.Context, workers int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.started = true

	q.ctx, q.cancel = context.WithCancel(ctx)
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job, ok := <-q.jobs:
			if !ok {
				return
			}
			q.run(job)
		}
	}
}

func (q *Queue) run(job Job) {
	defer func() {
		if r := recover(); r != nil {
			if q.logger != nil {
				q.logger.Error("taskqueue: job panicked", zap.Any("panic", r))
			}
		}
	}()
	job(q.ctx)
}

// Enqueue submits a job for execution. Blocks if the queue's backlog is
// full.
func (q *Queue) Enqueue(job Job) {
	q.jobs <- job
}

// TryEnqueue submits a job without blocking, reporting false if the
// backlog is full.
func (q *Queue) TryEnqueue(job Job) bool {
	select {
	case q.jobs <- job:
		return true
	default:
		return false
	}
}

// Stop closes the queue, lets already-enqueued jobs drain, then waits
// for every worker to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	started := q.started
	q.mu.Unlock()
	if !started {
		return
	}
	close(q.jobs)
	q.wg.Wait()
	if q.cancel != nil {
		q.cancel()
	}
}
