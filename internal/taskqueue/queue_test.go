package taskqueue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestQueue_RunsEnqueuedJobs(t *testing.T) {
	q := NewQueue(2, 10, nil)
	q.Start(context.Background(), 2)

	var n int32
	var wg sync.WaitGroup
	wg.Add(5)
	for i := 0; i < 5; i++ {
		q.Enqueue(func(ctx context.Context) {
			atomic.AddInt32(&n, 1)
			wg.Done()
		})
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("jobs did not complete in time")
	}

	if got := atomic.LoadInt32(&n); got != 5 {
		t.Errorf("ran %d jobs, want 5", got)
	}
	q.Stop()
}

func TestQueue_PanicDoesNotKillWorker(t *testing.T) {
	q := NewQueue(1, 10, nil)
	q.Start(context.Background(), 1)

	q.Enqueue(func(ctx context.Context) { panic("boom") })

	var ran int32
	done := make(chan struct{})
	q.Enqueue(func(ctx context.Context) {
		atomic.StoreInt32(&ran, 1)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive panic")
	}
	if atomic.LoadInt32(&ran) != 1 {
		t.Error("job after panic did not run")
	}
	q.Stop()
}

func TestQueue_TryEnqueueFullBacklog(t *testing.T) {
	// Workers are not started yet, so the single buffered slot fills
	// without anything draining it.
	q := NewQueue(1, 1, nil)
	block := make(chan struct{})

	if !q.TryEnqueue(func(ctx context.Context) { <-block }) {
		t.Fatal("expected first backlog slot to accept")
	}
	if q.TryEnqueue(func(ctx context.Context) {}) {
		t.Error("expected full backlog to reject")
	}

	q.Start(context.Background(), 1)
	close(block)
	q.Stop()
}
