package httpapi

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// DefaultStatusLines is how many recent health samples /status returns
// when the caller does not specify ?lines=.
const DefaultStatusLines = 50

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	n := DefaultStatusLines
	if raw := r.URL.Query().Get("lines"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			n = v
		}
	}
	samples, err := s.svc.Store.LastHealthSamples(r.Context(), n)
	if err != nil {
		s.logger.Error("httpapi: failed to load health samples", zap.Error(err))
		writeInternalError(w, "failed to load health samples")
		return
	}
	writeJSON(w, http.StatusOK, samples)
}

func (s *Server) handleCPU(w http.ResponseWriter, r *http.Request) {
	sample := s.svc.Health.Sample(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"cpu_percent": sample.CPUPercent,
		"cpu_temp_c":  sample.CPUTempC,
	})
}

func (s *Server) handleRAM(w http.ResponseWriter, r *http.Request) {
	sample := s.svc.Health.Sample(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"mem_percent": sample.MemPercent})
}

func (s *Server) handleStorage(w http.ResponseWriter, r *http.Request) {
	sample := s.svc.Health.Sample(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"disk_percent": sample.DiskPercent})
}

func (s *Server) handleGPS(w http.ResponseWriter, r *http.Request) {
	if s.svc.GPS == nil {
		writeJSON(w, http.StatusOK, map[string]any{"fix_quality": "no_fix"})
		return
	}
	lat, lon, ok := s.svc.GPS.Position(r.Context())
	accuracy, _ := s.svc.GPS.Accuracy(r.Context())
	fix := s.svc.GPS.FixQuality(r.Context())

	resp := map[string]any{"fix_quality": fix}
	if ok {
		resp["lat"] = lat
		resp["lon"] = lon
		resp["accuracy"] = accuracy
	}
	writeJSON(w, http.StatusOK, resp)
}
