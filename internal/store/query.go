package store

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// verbOf returns the leading SQL verb of a statement, uppercased, for
// metrics bucketing.
func verbOf(query string) string {
	trimmed := strings.TrimSpace(query)
	if i := strings.IndexAny(trimmed, " \n\t"); i > 0 {
		return strings.ToUpper(trimmed[:i])
	}
	return strings.ToUpper(trimmed)
}

// ExecTimed runs db.ExecContext and records the duration under the
// statement's SQL verb.
func (s *Store) ExecTimed(ctx context.Context, db *sql.DB, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := db.ExecContext(ctx, query, args...)
	s.metrics.Observe(verbOf(query), time.Since(start))
	return res, err
}

// QueryTimed runs db.QueryContext and records the duration under the
// statement's SQL verb.
func (s *Store) QueryTimed(ctx context.Context, db *sql.DB, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := db.QueryContext(ctx, query, args...)
	s.metrics.Observe(verbOf(query), time.Since(start))
	return rows, err
}
