package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/trashytalk/piwardrive-go/pkg/models"
)

// writeJSON writes v as a JSON body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the §7 taxonomy's {code, message} error body. The
// HTTP status carries the semantics; message is the human-readable detail.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.APIProblem{Code: strconv.Itoa(status), Message: message})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, message)
}
