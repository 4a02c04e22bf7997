package httpapi

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/trashytalk/piwardrive-go/api/swagger"
)

// registerDocs mounts the Swagger UI and its backing doc.json.
// RegisterRoutes always calls it, so every deployment serves the docs
// (docs are a developer convenience, not part of the authenticated
// surface other handlers sit behind).
func (s *Server) registerDocs(mux *http.ServeMux) {
	mux.HandleFunc("GET /swagger/doc.json", swagger.Handler())
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
}
