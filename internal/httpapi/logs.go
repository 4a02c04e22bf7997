package httpapi

import (
	"bufio"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
)

// DefaultLogLines is how many trailing lines /logs returns by default.
const DefaultLogLines = 200

// handleLogs tails an allow-listed log file. Every path is normalized
// before being checked against the allow list so ".." segments or
// symlink-adjacent tricks can't escape it (§4.11 "Path safety").
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("path")
	if raw == "" {
		writeBadRequest(w, "path is required")
		return
	}
	clean := filepath.Clean(raw)
	if !s.svc.LogAllowlist[clean] {
		writeBadRequest(w, "path is not allow-listed")
		return
	}

	n := DefaultLogLines
	if v := r.URL.Query().Get("lines"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			n = parsed
		}
	}

	lines, err := tailLines(clean, n)
	if err != nil {
		writeInternalError(w, "failed to read log file")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"path": clean, "lines": lines})
}

// tailLines returns the last n lines of path. It reads the whole file
// since log files here are modest rotated chunks, not unbounded streams.
func tailLines(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var all []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		all = append(all, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(all) <= n {
		return all, nil
	}
	return all[len(all)-n:], nil
}
