// Package schedule runs periodic jobs (scheduled scans, widget refreshes,
// rule evaluation) on independent intervals with anti-drift timing and
// per-job non-overlap, running each job in its own goroutine.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is a single named unit of scheduled work. Run reports an error for
// a failed tick; it is logged and counted but never stops the schedule.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// JobMetrics is one job's entry in JobScheduler.Metrics().
type JobMetrics struct {
	NextRun      time.Time     `json:"next_run"`
	LastDuration time.Duration `json:"last_duration"`
	SuccessCount int64         `json:"success_count"`
	ErrorCount   int64         `json:"error_count"`
}

// JobScheduler runs a fixed set of named jobs, each on its own interval,
// guaranteeing that a slow run of a job never overlaps with its own next
// tick (a job already in flight is skipped, not queued).
type JobScheduler struct {
	logger *zap.Logger

	mu       sync.Mutex
	jobs     map[string]Job
	inFlight map[string]bool
	metrics  map[string]JobMetrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewJobScheduler creates an empty scheduler. Add jobs with AddJob before
// calling Start.
func NewJobScheduler(logger *zap.Logger) *JobScheduler {
	return &JobScheduler{
		logger:   logger,
		jobs:     make(map[string]Job),
		inFlight: make(map[string]bool),
		metrics:  make(map[string]JobMetrics),
	}
}

// Metrics returns a snapshot of every registered job's run statistics.
func (s *JobScheduler) Metrics() map[string]JobMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]JobMetrics, len(s.metrics))
	for k, v := range s.metrics {
		out[k] = v
	}
	return out
}

// AddJob registers a job. Calling AddJob after Start has no effect on
// already-running timers for that name.
func (s *JobScheduler) AddJob(j Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.Name] = j
}

// Start launches one goroutine per registered job and returns at once;
// the jobs keep running until Stop or until ctx is cancelled.
func (s *JobScheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.mu.Lock()
	jobs := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	s.mu.Unlock()

	for _, j := range jobs {
		s.wg.Add(1)
		go s.runLoop(j)
	}
}

// runLoop drives a single job on its interval with anti-drift sleep: the
// next sleep duration is interval minus however long the last run took,
// floored at zero, so a slow run does not compound delay across ticks.
func (s *JobScheduler) runLoop(j Job) {
	defer s.wg.Done()

	for {
		start := time.Now()
		s.runOnce(j)
		elapsed := time.Since(start)

		sleep := j.Interval - elapsed
		if sleep < 0 {
			sleep = 0
		}

		s.mu.Lock()
		m := s.metrics[j.Name]
		m.NextRun = time.Now().Add(sleep)
		s.metrics[j.Name] = m
		s.mu.Unlock()

		timer := time.NewTimer(sleep)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (s *JobScheduler) runOnce(j Job) {
	s.mu.Lock()
	if s.inFlight[j.Name] {
		s.mu.Unlock()
		s.logger.Debug("schedule: skipping overlapping run", zap.String("job", j.Name))
		return
	}
	s.inFlight[j.Name] = true
	s.mu.Unlock()

	start := time.Now()
	var runErr error

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("schedule: job panicked", zap.String("job", j.Name), zap.Any("panic", r))
			runErr = fmt.Errorf("panic: %v", r)
		}

		s.mu.Lock()
		s.inFlight[j.Name] = false
		m := s.metrics[j.Name]
		m.LastDuration = time.Since(start)
		if runErr != nil {
			m.ErrorCount++
		} else {
			m.SuccessCount++
		}
		s.metrics[j.Name] = m
		s.mu.Unlock()
	}()

	runCtx, cancel := context.WithTimeout(s.ctx, j.Interval)
	defer cancel()

	runErr = j.Run(runCtx)
	if runErr != nil {
		s.logger.Warn("schedule: job returned error", zap.String("job", j.Name), zap.Error(runErr))
	}
}

// Stop signals all job loops to exit and waits for them.
func (s *JobScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}
