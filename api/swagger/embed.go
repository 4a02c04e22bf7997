// Package swagger embeds the hand-maintained OpenAPI description of the
// C11 HTTP surface and serves it alongside the Swagger UI.
package swagger

import (
	"embed"
	"net/http"
)

//go:embed swagger.json
var files embed.FS

// DocJSON returns the embedded swagger.json content.
func DocJSON() ([]byte, error) {
	return files.ReadFile("swagger.json")
}

// Handler serves swagger.json directly, for mounting at
// /swagger/doc.json ahead of httpSwagger.Handler.
func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := DocJSON()
		if err != nil {
			http.Error(w, "swagger doc unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(doc)
	}
}
