package tilecache

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TileCoord is a single slippy-map (Z/X/Y) tile address.
type TileCoord struct {
	Z, X, Y int
}

// Downloader fetches missing tiles within a bounding box from a tile
// server, writing each one atomically under DestDir/<z>/<x>/<y>.png.
type Downloader struct {
	BaseURL     string // e.g. "https://tile.example.com/{z}/{x}/{y}.png"
	DestDir     string
	Concurrency int // default runtime.NumCPU()
	Client      *http.Client
	Logger      *zap.Logger
}

// NewDownloader creates a downloader with a 10s-timeout HTTP client and
// CPU-count concurrency by default.
func NewDownloader(baseURL, destDir string, logger *zap.Logger) *Downloader {
	return &Downloader{
		BaseURL: baseURL,
		DestDir: destDir,
		Client:  &http.Client{Timeout: 10 * time.Second},
		Logger:  logger,
	}
}

// tilesInBBox enumerates every (x,y) tile at zoom that intersects bbox.
func tilesInBBox(bbox BBox, zoom int) []TileCoord {
	minX, maxY := lonLatToTile(bbox.MinLon, bbox.MinLat, zoom)
	maxX, minY := lonLatToTile(bbox.MaxLon, bbox.MaxLat, zoom)

	if minX > maxX {
		minX, maxX = maxX, minX
	}
	if minY > maxY {
		minY, maxY = maxY, minY
	}

	var coords []TileCoord
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			coords = append(coords, TileCoord{Z: zoom, X: x, Y: y})
		}
	}
	return coords
}

// lonLatToTile converts a lon/lat pair to slippy-map tile indices at the
// given zoom (standard Web Mercator tiling scheme).
func lonLatToTile(lon, lat float64, zoom int) (x, y int) {
	n := math.Exp2(float64(zoom))
	x = int((lon + 180.0) / 360.0 * n)
	latRad := deg2rad(lat)
	y = int((1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * n)
	return x, y
}

// Download fetches every tile in bbox at zoom that isn't already present
// on disk, bounded by d.Concurrency (default CPU count) concurrent
// requests. progress, if non-nil, is called once per completed tile
// (success or failure alike).
func (d *Downloader) Download(ctx context.Context, zoom int, bbox BBox, progress func(TileCoord, error)) error {
	concurrency := d.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
		if concurrency < 1 {
			concurrency = 1
		}
	}

	coords := tilesInBBox(bbox, zoom)
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, c := range coords {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(c TileCoord) {
			defer wg.Done()
			defer func() { <-sem }()
			err := d.fetchOne(ctx, c)
			if progress != nil {
				progress(c, err)
			}
		}(c)
	}

	wg.Wait()
	return nil
}

func (d *Downloader) tilePath(c TileCoord) string {
	return filepath.Join(d.DestDir, fmt.Sprint(c.Z), fmt.Sprint(c.X), fmt.Sprintf("%d.png", c.Y))
}

func (d *Downloader) fetchOne(ctx context.Context, c TileCoord) error {
	dest := d.tilePath(c)
	if _, err := os.Stat(dest); err == nil {
		return nil // already cached
	}

	url := tileURL(d.BaseURL, c)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		if d.Logger != nil {
			d.Logger.Warn("tilecache: download failed", zap.String("url", url), zap.Error(err))
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tilecache: %s: status %d", url, resp.StatusCode)
	}

	return writeAtomic(dest, resp.Body)
}

func tileURL(base string, c TileCoord) string {
	out := base
	out = replaceToken(out, "{z}", fmt.Sprint(c.Z))
	out = replaceToken(out, "{x}", fmt.Sprint(c.X))
	out = replaceToken(out, "{y}", fmt.Sprint(c.Y))
	return out
}

func replaceToken(s, token, val string) string {
	for {
		idx := indexOf(s, token)
		if idx < 0 {
			return s
		}
		s = s[:idx] + val + s[idx+len(token):]
	}
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

// writeAtomic writes r to a temp file in dest's directory, then renames
// it into place, so a concurrent reader never observes a partial tile.
func writeAtomic(dest string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".tile-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, dest)
}
