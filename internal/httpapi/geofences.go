package httpapi

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/trashytalk/piwardrive-go/internal/analytics"
	"github.com/trashytalk/piwardrive-go/pkg/models"
)

func (s *Server) handleListGeofences(w http.ResponseWriter, r *http.Request) {
	fences, err := s.svc.Store.ListGeofences(r.Context())
	if err != nil {
		writeInternalError(w, "failed to load geofences")
		return
	}
	writeJSON(w, http.StatusOK, s.withCurrentPosition(r, fences))
}

func (s *Server) handleGetGeofence(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	fence, err := s.svc.Store.GetGeofence(r.Context(), name)
	if errors.Is(err, sql.ErrNoRows) {
		writeNotFound(w, "geofence not found")
		return
	}
	if err != nil {
		writeInternalError(w, "failed to load geofence")
		return
	}
	out := s.withCurrentPosition(r, []models.Geofence{fence})
	writeJSON(w, http.StatusOK, out[0])
}

func (s *Server) handleCreateGeofence(w http.ResponseWriter, r *http.Request) {
	s.upsertGeofence(w, r, "")
}

func (s *Server) handlePutGeofence(w http.ResponseWriter, r *http.Request) {
	s.upsertGeofence(w, r, r.PathValue("name"))
}

func (s *Server) upsertGeofence(w http.ResponseWriter, r *http.Request, pathName string) {
	var fence models.Geofence
	if err := json.NewDecoder(r.Body).Decode(&fence); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if pathName != "" {
		fence.Name = pathName
	}
	if fence.Name == "" {
		writeBadRequest(w, "name is required")
		return
	}
	if len(fence.Vertices) < 3 {
		writeBadRequest(w, "a geofence needs at least 3 vertices")
		return
	}
	if err := s.svc.Store.UpsertGeofence(r.Context(), fence); err != nil {
		writeInternalError(w, "failed to save geofence")
		return
	}
	writeJSON(w, http.StatusOK, fence)
}

func (s *Server) handleDeleteGeofence(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.svc.Store.DeleteGeofence(r.Context(), name); err != nil {
		writeInternalError(w, "failed to delete geofence")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// withCurrentPosition recomputes Inside for each fence against the
// sensor's current fix, when one is available. Without a GPS reader
// the stored Inside value from the last successful evaluation stands.
func (s *Server) withCurrentPosition(r *http.Request, fences []models.Geofence) []models.Geofence {
	if s.svc.GPS == nil {
		return fences
	}
	lat, lon, ok := s.svc.GPS.Position(r.Context())
	if !ok {
		return fences
	}
	return analytics.EvaluateGeofences(fences, lat, lon)
}
