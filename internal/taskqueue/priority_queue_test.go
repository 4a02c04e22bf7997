package taskqueue

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestPriorityQueue_RunsLowestPriorityFirst(t *testing.T) {
	q := NewPriorityQueue(nil)

	var mu sync.Mutex
	var order []int

	record := func(p int) Job {
		return func(ctx context.Context) {
			mu.Lock()
			order = append(order, p)
			mu.Unlock()
		}
	}

	// Enqueue out of order before starting any worker, so all three are
	// pending when the single worker begins draining.
	q.Enqueue(5, record(5))
	q.Enqueue(1, record(1))
	q.Enqueue(3, record(3))

	q.Start(context.Background(), 1)

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(order)
		mu.Unlock()
		if n == 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("jobs did not complete in time")
		}
		time.Sleep(time.Millisecond)
	}
	q.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 || order[0] != 1 || order[1] != 3 || order[2] != 5 {
		t.Errorf("run order = %v, want [1 3 5]", order)
	}
}

func TestPriorityQueue_PanicDoesNotKillWorker(t *testing.T) {
	q := NewPriorityQueue(nil)
	q.Start(context.Background(), 1)

	q.Enqueue(0, func(ctx context.Context) { panic("boom") })

	done := make(chan struct{})
	q.Enqueue(1, func(ctx context.Context) { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive panic")
	}
	q.Stop()
}
