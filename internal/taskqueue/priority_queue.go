package taskqueue

import (
	"container/heap"
	"context"
	"sync"

	"go.uber.org/zap"
)

// PriorityJob pairs a job with a priority; lower numeric values run
// first.
type PriorityJob struct {
	Priority int
	Job      Job
}

// priorityHeap is a container/heap.Interface over pending PriorityJobs,
// ordered by ascending Priority then FIFO within equal priorities (via
// a monotonically increasing sequence number).
type priorityHeap []priorityItem

type priorityItem struct {
	PriorityJob
	seq int
}

func (h priorityHeap) Len() int { return len(h) }
func (h priorityHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}
	return h[i].seq < h[j].seq
}
func (h priorityHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *priorityHeap) Push(x any)   { *h = append(*h, x.(priorityItem)) }
func (h *priorityHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// PriorityQueue is a background task queue drained by a fixed pool of
// worker goroutines, dispatching the lowest-numbered-priority pending
// job first.
type PriorityQueue struct {
	logger *zap.Logger

	mu      sync.Mutex
	heap    priorityHeap
	nextSeq int
	notify  chan struct{}

	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	startMu sync.Mutex
}

// NewPriorityQueue creates an empty priority queue.
func NewPriorityQueue(logger *zap.Logger) *PriorityQueue {
	return &PriorityQueue{
		logger: logger,
		notify: make(chan struct{}, 1),
	}
}

// Enqueue submits job to run once priority's turn comes up.
func (q *PriorityQueue) Enqueue(priority int, job Job) {
	q.mu.Lock()
	heap.Push(&q.heap, priorityItem{PriorityJob: PriorityJob{Priority: priority, Job: job}, seq: q.nextSeq})
	q.nextSeq++
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Start launches the worker pool. Calling Start twice has no effect.
func (q *PriorityQueue) Start(ctx context.Context, workers int) {
	q.startMu.Lock()
	defer q.startMu.Unlock()
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

func (q *PriorityQueue) worker() {
	defer q.wg.Done()
	for {
		job, ok := q.pop()
		if ok {
			q.run(job)
			continue
		}

		select {
		case <-q.ctx.Done():
			return
		case <-q.notify:
		}
	}
}

func (q *PriorityQueue) pop() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.heap.Len() == 0 {
		return nil, false
	}
	item := heap.Pop(&q.heap).(priorityItem)
	return item.Job, true
}

func (q *PriorityQueue) run(job Job) {
	defer func() {
		if r := recover(); r != nil {
			if q.logger != nil {
				q.logger.Error("taskqueue: priority job panicked", zap.Any("panic", r))
			}
		}
	}()
	job(q.ctx)
}

// Stop lets every already-enqueued job drain, then waits for every
// worker to exit.
func (q *PriorityQueue) Stop() {
	q.startMu.Lock()
	started := q.started
	q.startMu.Unlock()
	if !started {
		return
	}

	for {
		q.mu.Lock()
		empty := q.heap.Len() == 0
		q.mu.Unlock()
		if empty {
			break
		}
		select {
		case q.notify <- struct{}{}:
		default:
		}
	}

	if q.cancel != nil {
		q.cancel()
	}
	q.wg.Wait()
}
