package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestJobScheduler_RunsOnInterval(t *testing.T) {
	s := NewJobScheduler(zap.NewNop())
	var runs atomic.Int64
	s.AddJob(Job{
		Name:     "tick",
		Interval: 20 * time.Millisecond,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	time.Sleep(110 * time.Millisecond)
	cancel()
	s.Stop()

	if got := runs.Load(); got < 2 {
		t.Fatalf("runs = %d, want at least 2 in ~110ms at a 20ms interval", got)
	}
	m := s.Metrics()["tick"]
	if m.SuccessCount < 2 {
		t.Errorf("SuccessCount = %d, want at least 2", m.SuccessCount)
	}
}

func TestJobScheduler_ErrorCountedNotFatal(t *testing.T) {
	s := NewJobScheduler(zap.NewNop())
	var runs atomic.Int64
	s.AddJob(Job{
		Name:     "failing",
		Interval: 15 * time.Millisecond,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return errors.New("boom")
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	time.Sleep(80 * time.Millisecond)
	cancel()
	s.Stop()

	m := s.Metrics()["failing"]
	if m.ErrorCount == 0 {
		t.Error("expected at least one error to be counted")
	}
	if m.SuccessCount != 0 {
		t.Errorf("SuccessCount = %d, want 0 for a job that always errors", m.SuccessCount)
	}
	if runs.Load() == 0 {
		t.Error("expected the job to have run at least once")
	}
}

func TestJobScheduler_PanicRecoveredAndCounted(t *testing.T) {
	s := NewJobScheduler(zap.NewNop())
	s.AddJob(Job{
		Name:     "panicky",
		Interval: 15 * time.Millisecond,
		Run: func(ctx context.Context) error {
			panic("kaboom")
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	cancel()
	s.Stop()

	m := s.Metrics()["panicky"]
	if m.ErrorCount == 0 {
		t.Error("expected the panic to be recovered and counted as an error")
	}
}

func TestJobScheduler_AntiDriftWhenRunExceedsInterval(t *testing.T) {
	// Each run sleeps longer than the job's own interval. The scheduler
	// calls each job's Run synchronously from a single per-job loop, so
	// runs can never overlap by construction; what anti-drift actually
	// buys here is that a slow run's next tick fires immediately
	// (sleep floored at zero) instead of compounding the overrun.
	s := NewJobScheduler(zap.NewNop())
	var runs atomic.Int64
	s.AddJob(Job{
		Name:     "slow",
		Interval: 10 * time.Millisecond,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			time.Sleep(40 * time.Millisecond)
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	s.Start(ctx)
	time.Sleep(170 * time.Millisecond)
	cancel()
	s.Stop()
	elapsed := time.Since(start)

	got := runs.Load()
	// With zero-floored sleep after each 40ms run, ~170ms fits at least
	// 3 runs. A loop that slept the full 10ms interval after every run
	// (~50ms per cycle) would also fit 3, so this bound checks that the
	// slow job keeps being rescheduled rather than the exact sleep.
	if got < 3 {
		t.Fatalf("runs = %d in %s, want at least 3 when each run's overrun doesn't compound", got, elapsed)
	}
}

func TestWidgetScheduler_RejectsNonPositiveInterval(t *testing.T) {
	s := NewWidgetScheduler()
	if err := s.AddWidget(WidgetRefresh{WidgetID: "w", Interval: 0}); err == nil {
		t.Fatal("expected an error for a zero interval")
	}
}

func TestWidgetScheduler_RunsAndCounts(t *testing.T) {
	s := NewWidgetScheduler()
	var runs atomic.Int64
	if err := s.AddWidget(WidgetRefresh{
		WidgetID: "status",
		Interval: 20 * time.Millisecond,
		Refresh: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	}); err != nil {
		t.Fatalf("AddWidget: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	time.Sleep(110 * time.Millisecond)
	cancel()
	s.Stop()

	if got := runs.Load(); got < 2 {
		t.Fatalf("runs = %d, want at least 2", got)
	}
	if s.Metrics()["status"] < 2 {
		t.Errorf("Metrics()[status] = %d, want at least 2", s.Metrics()["status"])
	}
}
