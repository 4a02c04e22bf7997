package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/trashytalk/piwardrive-go/pkg/models"
)

var apCacheFields = []string{"bssid", "ssid", "encryption", "lat", "lon", "last_seen"}

func writeCSV(w io.Writer, entries []models.APCacheEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(apCacheFields); err != nil {
		return err
	}
	for _, e := range entries {
		row := []string{
			e.BSSID,
			e.SSID,
			e.Encryption,
			strconv.FormatFloat(e.Lat, 'f', -1, 64),
			strconv.FormatFloat(e.Lon, 'f', -1, 64),
			e.LastSeen.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
