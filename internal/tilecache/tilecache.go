// Package tilecache enforces age and size limits on a directory-tree or
// MBTiles map tile store, runs periodic and event-triggered maintenance,
// and predictively prefetches tiles ahead of the observed GPS track.
package tilecache

import (
	"container/heap"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // pure-Go SQLite driver, used to VACUUM the MBTiles file
)

// Config configures a Maintainer.
type Config struct {
	Dir              string        // directory tree of <z>/<x>/<y>.png tiles
	MBTilesPath      string        // optional MBTiles SQLite file to VACUUM
	MaxAge           time.Duration // files older than this are purged
	CapBytes         int64         // total cache size before eviction kicks in
	TriggerFileCount int           // file-count threshold for the fs watcher
}

// Maintainer runs age-based purge, size-cap eviction, and MBTiles vacuum
// over a tile cache, triggered on a schedule and by filesystem events.
type Maintainer struct {
	cfg    Config
	logger *zap.Logger

	running atomic.Bool // coalesces concurrent maintenance triggers
	mu      sync.Mutex  // serializes Run against itself
}

// NewMaintainer creates a maintainer for cfg.
func NewMaintainer(cfg Config, logger *zap.Logger) *Maintainer {
	return &Maintainer{cfg: cfg, logger: logger}
}

type tileFile struct {
	path  string
	size  int64
	mtime time.Time
}

// walkTiles lists every regular file under the cache directory.
func (m *Maintainer) walkTiles() ([]tileFile, error) {
	var files []tileFile
	err := filepath.WalkDir(m.cfg.Dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, tileFile{path: path, size: info.Size(), mtime: info.ModTime()})
		return nil
	})
	return files, err
}

// PurgeOldTiles deletes every tile file whose mtime is older than
// cfg.MaxAge.
func (m *Maintainer) PurgeOldTiles(ctx context.Context) (removed int, err error) {
	if m.cfg.MaxAge <= 0 {
		return 0, nil
	}
	files, err := m.walkTiles()
	if err != nil {
		return 0, fmt.Errorf("tilecache: walk: %w", err)
	}

	cutoff := time.Now().Add(-m.cfg.MaxAge)
	for _, f := range files {
		select {
		case <-ctx.Done():
			return removed, ctx.Err()
		default:
		}
		if f.mtime.Before(cutoff) {
			if err := os.Remove(f.path); err != nil {
				if m.logger != nil {
					m.logger.Warn("tilecache: failed to remove aged tile", zap.String("path", f.path), zap.Error(err))
				}
				continue
			}
			removed++
		}
	}
	return removed, nil
}

// mtimeHeap is a container/heap.Interface ordering tileFiles oldest-mtime
// first, so EnforceCacheLimit can repeatedly evict the oldest tile.
type mtimeHeap []tileFile

func (h mtimeHeap) Len() int           { return len(h) }
func (h mtimeHeap) Less(i, j int) bool { return h[i].mtime.Before(h[j].mtime) }
func (h mtimeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *mtimeHeap) Push(x any)        { *h = append(*h, x.(tileFile)) }
func (h *mtimeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// EnforceCacheLimit evicts the oldest tiles, by mtime, until the cache's
// total size is at or under cfg.CapBytes.
func (m *Maintainer) EnforceCacheLimit(ctx context.Context) (removed int, err error) {
	if m.cfg.CapBytes <= 0 {
		return 0, nil
	}
	files, err := m.walkTiles()
	if err != nil {
		return 0, fmt.Errorf("tilecache: walk: %w", err)
	}

	h := mtimeHeap(files)
	heap.Init(&h)

	var total int64
	for _, f := range files {
		total += f.size
	}

	for total > m.cfg.CapBytes && h.Len() > 0 {
		select {
		case <-ctx.Done():
			return removed, ctx.Err()
		default:
		}
		oldest := heap.Pop(&h).(tileFile)
		if err := os.Remove(oldest.path); err != nil {
			if m.logger != nil {
				m.logger.Warn("tilecache: failed to evict tile", zap.String("path", oldest.path), zap.Error(err))
			}
			continue
		}
		total -= oldest.size
		removed++
	}
	return removed, nil
}

// Vacuum runs SQLite VACUUM on the configured MBTiles file, if any.
func (m *Maintainer) Vacuum(ctx context.Context) error {
	if m.cfg.MBTilesPath == "" {
		return nil
	}
	db, err := sql.Open("sqlite", m.cfg.MBTilesPath)
	if err != nil {
		return fmt.Errorf("tilecache: open mbtiles: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("tilecache: vacuum mbtiles: %w", err)
	}
	return nil
}

// Run performs one maintenance pass (purge, cache-limit enforcement,
// vacuum) if one isn't already in progress; concurrent calls while a
// pass is running are coalesced into a no-op.
func (m *Maintainer) Run(ctx context.Context) {
	if !m.running.CompareAndSwap(false, true) {
		return
	}
	defer m.running.CompareAndSwap(true, false)

	m.mu.Lock()
	defer m.mu.Unlock()

	if removed, err := m.PurgeOldTiles(ctx); err != nil {
		m.logWarn("purge failed", err)
	} else if removed > 0 && m.logger != nil {
		m.logger.Info("tilecache: purged aged tiles", zap.Int("removed", removed))
	}

	if removed, err := m.EnforceCacheLimit(ctx); err != nil {
		m.logWarn("cache limit enforcement failed", err)
	} else if removed > 0 && m.logger != nil {
		m.logger.Info("tilecache: evicted tiles over cap", zap.Int("removed", removed))
	}

	if err := m.Vacuum(ctx); err != nil {
		m.logWarn("vacuum failed", err)
	}
}

func (m *Maintainer) logWarn(msg string, err error) {
	if m.logger != nil {
		m.logger.Warn("tilecache: "+msg, zap.Error(err))
	}
}

// checkThresholds reports whether the cache currently warrants a
// maintenance run: file count at or above the trigger, or total size at
// or above the cap.
func (m *Maintainer) checkThresholds() bool {
	files, err := m.walkTiles()
	if err != nil {
		return false
	}
	if m.cfg.TriggerFileCount > 0 && len(files) >= m.cfg.TriggerFileCount {
		return true
	}
	if m.cfg.CapBytes > 0 {
		var total int64
		for _, f := range files {
			total += f.size
		}
		if total >= m.cfg.CapBytes {
			return true
		}
	}
	return false
}

// Watch runs an fsnotify watcher on the cache directory; any event
// triggers checkThresholds, and a maintenance run is scheduled
// (coalesced via Run's own running flag) whenever thresholds are met.
// Blocks until ctx is cancelled.
func (m *Maintainer) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tilecache: new watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(m.cfg.Dir); err != nil {
		return fmt.Errorf("tilecache: watch %q: %w", m.cfg.Dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if m.checkThresholds() {
				go m.Run(ctx)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if m.logger != nil {
				m.logger.Warn("tilecache: watcher error", zap.Error(err))
			}
		}
	}
}
