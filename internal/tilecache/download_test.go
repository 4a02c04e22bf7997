package tilecache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func TestTilesInBBox_CoversExpectedRange(t *testing.T) {
	bbox := BBox{MinLat: 40.0, MinLon: -105.01, MaxLat: 40.02, MaxLon: -105.0}
	coords := tilesInBBox(bbox, 15)
	if len(coords) == 0 {
		t.Fatal("expected at least one tile")
	}
	for _, c := range coords {
		if c.Z != 15 {
			t.Errorf("coord.Z = %d, want 15", c.Z)
		}
	}
}

func TestDownload_FetchesMissingTilesAndSkipsExisting(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("fake-png-bytes"))
	}))
	defer srv.Close()

	dest := t.TempDir()
	d := NewDownloader(srv.URL+"/{z}/{x}/{y}.png", dest, nil)

	bbox := BBox{MinLat: 40.0, MinLon: -105.01, MaxLat: 40.005, MaxLon: -105.0}

	var completed int32
	err := d.Download(context.Background(), 15, bbox, func(c TileCoord, err error) {
		if err != nil {
			t.Errorf("fetch %v: %v", c, err)
		}
		atomic.AddInt32(&completed, 1)
	})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}

	coords := tilesInBBox(bbox, 15)
	if int(completed) != len(coords) {
		t.Errorf("completed = %d, want %d", completed, len(coords))
	}
	if int(requests) != len(coords) {
		t.Errorf("requests = %d, want %d", requests, len(coords))
	}

	for _, c := range coords {
		p := d.tilePath(c)
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected tile file at %s: %v", p, err)
		}
	}

	// Second pass should skip every tile since files already exist.
	requests = 0
	if err := d.Download(context.Background(), 15, bbox, nil); err != nil {
		t.Fatalf("Download (second pass): %v", err)
	}
	if requests != 0 {
		t.Errorf("expected no requests on second pass, got %d", requests)
	}
}

func TestWriteAtomic_NoPartialFileOnReaderError(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "0", "0", "0.png")
	err := writeAtomic(dest, errReader{})
	if err == nil {
		t.Fatal("expected error from failing reader")
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("expected no partial file left behind")
	}
}

type errReader struct{}

func (errReader) Read(p []byte) (int, error) {
	return 0, os.ErrClosed
}
