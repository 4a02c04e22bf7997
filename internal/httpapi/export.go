package httpapi

import (
	"errors"
	"net/http"

	"github.com/trashytalk/piwardrive-go/internal/export"
)

func (s *Server) handleExportAPs(w http.ResponseWriter, r *http.Request) {
	format := export.Format(r.URL.Query().Get("fmt"))
	if format == "" {
		format = export.FormatJSON
	}

	entries, err := s.svc.Store.ListAPCache(r.Context())
	if err != nil {
		writeInternalError(w, "failed to load access points")
		return
	}

	w.Header().Set("Content-Type", export.ContentType(format))
	if err := export.Write(w, format, entries); err != nil {
		if errors.Is(err, export.ErrUnsupportedFormat) {
			writeBadRequest(w, err.Error())
			return
		}
		writeInternalError(w, "failed to render export")
		return
	}
}
