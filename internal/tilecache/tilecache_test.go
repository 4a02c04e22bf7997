package tilecache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTile(t *testing.T, path string, size int, mtime time.Time) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}

// Scenario: a tile older than MaxAge is purged, a newer one is kept.
func TestPurgeOldTiles_LeavesNewerFile(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "1", "2", "3.png")
	fresh := filepath.Join(dir, "1", "2", "4.png")

	writeTile(t, old, 10, time.Now().Add(-48*time.Hour))
	writeTile(t, fresh, 10, time.Now())

	m := NewMaintainer(Config{Dir: dir, MaxAge: 24 * time.Hour}, nil)
	removed, err := m.PurgeOldTiles(context.Background())
	if err != nil {
		t.Fatalf("PurgeOldTiles: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("expected aged tile removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("expected fresh tile kept")
	}
}

// Scenario: three tiles of 5, 4, and 3 MiB under a 7 MiB cap should evict
// the oldest (5 MiB) and keep the newest two (4 + 3 = 7 MiB).
func TestEnforceCacheLimit_KeepsNewestUnderCap(t *testing.T) {
	dir := t.TempDir()
	mib := 1 << 20

	oldest := filepath.Join(dir, "0", "0", "0.png")
	middle := filepath.Join(dir, "0", "0", "1.png")
	newest := filepath.Join(dir, "0", "0", "2.png")

	base := time.Now().Add(-1 * time.Hour)
	writeTile(t, oldest, 5*mib, base)
	writeTile(t, middle, 4*mib, base.Add(10*time.Minute))
	writeTile(t, newest, 3*mib, base.Add(20*time.Minute))

	m := NewMaintainer(Config{Dir: dir, CapBytes: int64(7 * mib)}, nil)
	removed, err := m.EnforceCacheLimit(context.Background())
	if err != nil {
		t.Fatalf("EnforceCacheLimit: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(oldest); !os.IsNotExist(err) {
		t.Error("expected oldest tile evicted")
	}
	if _, err := os.Stat(middle); err != nil {
		t.Error("expected middle tile kept")
	}
	if _, err := os.Stat(newest); err != nil {
		t.Error("expected newest tile kept")
	}
}

func TestRun_CoalescesConcurrentTriggers(t *testing.T) {
	dir := t.TempDir()
	writeTile(t, filepath.Join(dir, "0", "0", "0.png"), 10, time.Now())

	m := NewMaintainer(Config{Dir: dir, MaxAge: time.Hour}, nil)
	ctx := context.Background()

	done := make(chan struct{})
	go func() { m.Run(ctx); close(done) }()
	m.Run(ctx) // should no-op or serialize rather than race
	<-done
}

func TestCheckThresholds(t *testing.T) {
	dir := t.TempDir()
	writeTile(t, filepath.Join(dir, "0", "0", "0.png"), 10, time.Now())
	writeTile(t, filepath.Join(dir, "0", "0", "1.png"), 10, time.Now())

	m := NewMaintainer(Config{Dir: dir, TriggerFileCount: 2}, nil)
	if !m.checkThresholds() {
		t.Error("expected threshold met at file count 2")
	}

	m2 := NewMaintainer(Config{Dir: dir, TriggerFileCount: 10}, nil)
	if m2.checkThresholds() {
		t.Error("expected threshold not met below file count")
	}
}
