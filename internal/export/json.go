package export

import (
	"encoding/json"
	"io"

	"github.com/trashytalk/piwardrive-go/pkg/models"
)

func writeJSON(w io.Writer, entries []models.APCacheEntry) error {
	if entries == nil {
		entries = []models.APCacheEntry{}
	}
	return json.NewEncoder(w).Encode(entries)
}
