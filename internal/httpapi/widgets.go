package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/trashytalk/piwardrive-go/pkg/models"
)

// handleListWidgets reports the registered widget IDs and how many
// times each has refreshed, for the dashboard's "is this live" check.
func (s *Server) handleListWidgets(w http.ResponseWriter, r *http.Request) {
	counts := map[string]int64{}
	if s.svc.Widgets != nil {
		counts = s.svc.Widgets.Metrics()
	}
	writeJSON(w, http.StatusOK, map[string]any{"widgets": s.svc.WidgetIDs, "refresh_counts": counts})
}

func (s *Server) handleGetDashboardSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.svc.Store.GetDashboardSettings(r.Context())
	if err != nil {
		writeInternalError(w, "failed to load dashboard settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handlePostDashboardSettings(w http.ResponseWriter, r *http.Request) {
	var settings models.DashboardSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if err := s.svc.Store.SaveDashboardSettings(r.Context(), settings); err != nil {
		writeInternalError(w, "failed to save dashboard settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
