package httpapi

import "net/http"

// handleSync triggers an out-of-band push of records accumulated since
// the client's watermark. It reports the new watermark on success.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.svc.RemoteSync == nil {
		writeBadRequest(w, "remote sync is not configured")
		return
	}
	if err := s.svc.RemoteSync.SyncNewRecords(r.Context(), s.svc.Store); err != nil {
		writeInternalError(w, "sync failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"watermark":        s.svc.RemoteSync.Watermark(),
		"remote_reachable": s.svc.RemoteSync.Reachable(r.Context()),
	})
}
