package httpapi

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleGetWebhooks(w http.ResponseWriter, r *http.Request) {
	urls, err := s.svc.Store.ListWebhooks(r.Context())
	if err != nil {
		writeInternalError(w, "failed to load webhooks")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"webhooks": urls})
}

// handlePostWebhooks replaces the webhook URL set. The request body is
// the full desired list, not a delta, matching the GET shape.
func (s *Server) handlePostWebhooks(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Webhooks []string `json:"webhooks" validate:"dive,url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if err := s.validate.Var(body.Webhooks, "dive,url"); err != nil {
		writeBadRequest(w, "webhooks must be valid URLs")
		return
	}

	existing, err := s.svc.Store.ListWebhooks(r.Context())
	if err != nil {
		writeInternalError(w, "failed to load webhooks")
		return
	}
	keep := make(map[string]bool, len(body.Webhooks))
	for _, u := range body.Webhooks {
		keep[u] = true
	}
	for _, u := range existing {
		if !keep[u] {
			if err := s.svc.Store.RemoveWebhook(r.Context(), u); err != nil {
				writeInternalError(w, "failed to remove webhook")
				return
			}
		}
	}
	for _, u := range body.Webhooks {
		if err := s.svc.Store.AddWebhook(r.Context(), u); err != nil {
			writeInternalError(w, "failed to add webhook")
			return
		}
	}

	if s.svc.Webhooks != nil {
		s.svc.Webhooks.SetURLs(body.Webhooks)
	}
	writeJSON(w, http.StatusOK, map[string]any{"webhooks": body.Webhooks})
}
