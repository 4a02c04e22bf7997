package httpapi

import (
	"context"
	"net/http"
	"time"
)

// handleTriggerScan enqueues an immediate out-of-cycle scan of the given
// type onto the task queue, returning as soon as it's accepted rather
// than waiting for the scan to finish. The scheduled jobs still own the
// regular cadence; this is for an operator who wants a reading right now.
func (s *Server) handleTriggerScan(w http.ResponseWriter, r *http.Request) {
	scanType := r.PathValue("type")
	trigger, ok := s.svc.ScanTriggers[scanType]
	if !ok {
		writeNotFound(w, "unknown scan type")
		return
	}
	if s.svc.Tasks == nil {
		writeBadRequest(w, "task queue is not configured")
		return
	}

	accepted := s.svc.Tasks.TryEnqueue(func(ctx context.Context) {
		scanCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
		defer cancel()
		trigger(scanCtx)
	})
	if !accepted {
		writeError(w, http.StatusTooManyRequests, "scan queue is full, try again shortly")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"scan_type": scanType, "status": "queued"})
}
