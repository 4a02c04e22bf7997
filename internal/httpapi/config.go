package httpapi

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Config.Current())
}

// handlePostConfig merges the request body into the running config.
// Manager.Merge already rejects unknown fields, so an unrecognized key
// surfaces here as a 400.
func (s *Server) handlePostConfig(w http.ResponseWriter, r *http.Request) {
	var updates map[string]any
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	cfg, err := s.svc.Config.Merge(updates)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}
