package store

import (
	"context"
	"fmt"
	"os"
)

// Backup creates a consistent copy of the store file at dest using
// SQLite's online backup (VACUUM INTO), safe to run while the writer is
// in use.
func (s *Store) Backup(ctx context.Context, dest string) error {
	_, err := s.ExecTimed(ctx, s.writer, `VACUUM INTO ?`, dest)
	if err != nil {
		return fmt.Errorf("backup to %q: %w", dest, err)
	}
	return nil
}

// Restore shuts down old, replaces the database file at path with src, and
// reopens the pool with the same options. old is no longer usable once
// Restore returns (whether it succeeds or fails).
func Restore(old *Store, src, path string, opts ...Option) (*Store, error) {
	if err := old.Close(); err != nil {
		return nil, fmt.Errorf("close store before restore: %w", err)
	}
	if err := copyFile(src, path); err != nil {
		return nil, fmt.Errorf("restore %q to %q: %w", src, path, err)
	}
	return Open(path, opts...)
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
