package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/trashytalk/piwardrive-go/internal/taskqueue"
)

func newScanTestServer(t *testing.T, tasks *taskqueue.Queue, triggers map[string]func(ctx context.Context)) *Server {
	t.Helper()
	return NewServer(Services{Tasks: tasks, ScanTriggers: triggers}, zap.NewNop())
}

func TestHandleTriggerScanUnknownType(t *testing.T) {
	srv := newScanTestServer(t, nil, map[string]func(ctx context.Context){})

	req := httptest.NewRequest("POST", "/scan/wifi", http.NoBody)
	req.SetPathValue("type", "wifi")
	w := httptest.NewRecorder()
	srv.handleTriggerScan(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestHandleTriggerScanNoQueue(t *testing.T) {
	ran := make(chan struct{}, 1)
	triggers := map[string]func(ctx context.Context){
		"wifi": func(ctx context.Context) { ran <- struct{}{} },
	}
	srv := newScanTestServer(t, nil, triggers)

	req := httptest.NewRequest("POST", "/scan/wifi", http.NoBody)
	req.SetPathValue("type", "wifi")
	w := httptest.NewRecorder()
	srv.handleTriggerScan(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	select {
	case <-ran:
		t.Fatal("trigger ran without a task queue")
	default:
	}
}

func TestHandleTriggerScanAccepted(t *testing.T) {
	ctx := context.Background()
	tasks := taskqueue.NewQueue(1, 4, zap.NewNop())
	tasks.Start(ctx, 1)
	defer tasks.Stop()

	var ran atomic.Bool
	done := make(chan struct{})
	triggers := map[string]func(ctx context.Context){
		"bluetooth": func(ctx context.Context) {
			ran.Store(true)
			close(done)
		},
	}
	srv := newScanTestServer(t, tasks, triggers)

	req := httptest.NewRequest("POST", "/scan/bluetooth", http.NoBody)
	req.SetPathValue("type", "bluetooth")
	w := httptest.NewRecorder()
	srv.handleTriggerScan(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusAccepted)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["scan_type"] != "bluetooth" || body["status"] != "queued" {
		t.Errorf("body = %+v, want scan_type=bluetooth status=queued", body)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("trigger never ran")
	}
	if !ran.Load() {
		t.Error("trigger did not execute")
	}
}

func TestHandleTriggerScanQueueFull(t *testing.T) {
	ctx := context.Background()
	tasks := taskqueue.NewQueue(1, 1, zap.NewNop())
	// Don't start workers: nothing drains the backlog, so it fills up
	// after the first accepted job and the second TryEnqueue fails.
	block := make(chan struct{})
	triggers := map[string]func(ctx context.Context){
		"wifi": func(ctx context.Context) { <-block },
	}
	srv := newScanTestServer(t, tasks, triggers)

	req := httptest.NewRequest("POST", "/scan/wifi", http.NoBody)
	req.SetPathValue("type", "wifi")
	w1 := httptest.NewRecorder()
	srv.handleTriggerScan(w1, req)
	if w1.Code != http.StatusAccepted {
		t.Fatalf("first request status = %d, want %d", w1.Code, http.StatusAccepted)
	}

	w2 := httptest.NewRecorder()
	srv.handleTriggerScan(w2, req)
	if w2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want %d", w2.Code, http.StatusTooManyRequests)
	}
	close(block)
}
