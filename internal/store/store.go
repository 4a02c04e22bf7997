// Package store implements the embedded persistence layer: a single-writer
// multi-reader SQLite pool, versioned migrations, batched detection writes,
// materialized-view refresh, pruning/archival, backup, and query metrics.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"runtime"
	"sync"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// Store errors, per the ConfigError/PersistenceError taxonomy.
var (
	ErrConflict   = errors.New("persistence: constraint conflict")
	ErrTimeout    = errors.New("persistence: operation timed out")
	ErrCorruption = errors.New("persistence: database file is corrupt")
)

// Store is the embedded relational persistence layer. One writer
// connection is serialized; reader connections may run concurrently.
type Store struct {
	path    string
	writer  *sql.DB
	readers []*sql.DB
	next    uint64 // round-robin counter over readers
	mu      sync.Mutex

	migrateOnce sync.Once
	metrics     *QueryMetrics
	batch       *BatchWriter
}

// Option configures Open.
type Option func(*options)

type options struct {
	readers int
}

// WithReaders overrides the number of reader connections (default:
// max(1, runtime.NumCPU()/2)).
func WithReaders(n int) Option {
	return func(o *options) { o.readers = n }
}

// Open creates or opens the SQLite database at path and applies the
// recommended pragmas for WAL mode, foreign keys, and performance.
func Open(path string, opts ...Option) (*Store, error) {
	cfg := options{readers: defaultReaderCount()}
	for _, o := range opts {
		o(&cfg)
	}

	writer, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite writer %q: %w", path, err)
	}
	writer.SetMaxOpenConns(1)

	if err := applyPragmas(writer); err != nil {
		writer.Close()
		return nil, err
	}

	readers := make([]*sql.DB, 0, cfg.readers)
	for i := 0; i < cfg.readers; i++ {
		r, err := sql.Open("sqlite", path+"?mode=ro")
		if err != nil {
			writer.Close()
			for _, existing := range readers {
				existing.Close()
			}
			return nil, fmt.Errorf("open sqlite reader %q: %w", path, err)
		}
		r.SetMaxOpenConns(4)
		readers = append(readers, r)
	}

	s := &Store{
		path:    path,
		writer:  writer,
		readers: readers,
		metrics: newQueryMetrics(),
	}
	s.batch = NewBatchWriter(s, DefaultBatchSize, DefaultFlushInterval)
	return s, nil
}

func defaultReaderCount() int {
	if n := runtime.NumCPU() / 2; n > 0 {
		return n
	}
	return 1
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA cache_size=-20000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("exec %q: %w", p, err)
		}
	}
	return nil
}

// GetWriter returns the single write connection.
func (s *Store) GetWriter() *sql.DB {
	return s.writer
}

// GetReader returns one of the read-only connections, round-robin.
func (s *Store) GetReader() *sql.DB {
	if len(s.readers) == 0 {
		return s.writer
	}
	s.mu.Lock()
	i := s.next % uint64(len(s.readers))
	s.next++
	s.mu.Unlock()
	return s.readers[i]
}

// Batch returns the batched detection writer.
func (s *Store) Batch() *BatchWriter {
	return s.batch
}

// Metrics returns the process-local query-timing aggregator.
func (s *Store) Metrics() *QueryMetrics {
	return s.metrics
}

// Tx executes fn within a write transaction, committing on nil return and
// rolling back otherwise.
func (s *Store) Tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original: %w)", rbErr, err)
		}
		return err
	}
	return tx.Commit()
}

// Close flushes any pending batched writes and closes all connections.
func (s *Store) Close() error {
	s.batch.Flush(context.Background())
	var firstErr error
	if err := s.writer.Close(); err != nil {
		firstErr = err
	}
	for _, r := range s.readers {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
