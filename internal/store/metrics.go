package store

import (
	"sync"
	"time"
)

// VerbStats is the running count and mean duration for one SQL verb.
type VerbStats struct {
	Count       int64
	MeanLatency time.Duration
}

// QueryMetrics is a process-local aggregator of query timings, keyed by
// SQL verb (SELECT/INSERT/UPDATE/DELETE/...).
type QueryMetrics struct {
	mu    sync.Mutex
	stats map[string]*VerbStats
}

func newQueryMetrics() *QueryMetrics {
	return &QueryMetrics{stats: make(map[string]*VerbStats)}
}

// Observe records one query execution of the given verb and duration,
// updating the running mean.
func (m *QueryMetrics) Observe(verb string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stats[verb]
	if !ok {
		s = &VerbStats{}
		m.stats[verb] = s
	}
	// Incremental mean: mean_n = mean_(n-1) + (x_n - mean_(n-1)) / n
	s.Count++
	delta := d - s.MeanLatency
	s.MeanLatency += delta / time.Duration(s.Count)
}

// Snapshot returns a copy of the current per-verb statistics.
func (m *QueryMetrics) Snapshot() map[string]VerbStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]VerbStats, len(m.stats))
	for k, v := range m.stats {
		out[k] = *v
	}
	return out
}
