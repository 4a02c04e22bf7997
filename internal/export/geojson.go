package export

import (
	"encoding/json"
	"io"
	"time"

	"github.com/trashytalk/piwardrive-go/pkg/models"
)

type geoJSONGeometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

type geoJSONProperties struct {
	BSSID      string `json:"bssid"`
	SSID       string `json:"ssid"`
	Encryption string `json:"encryption"`
	LastSeen   string `json:"last_seen"`
}

type geoJSONFeature struct {
	Type       string            `json:"type"`
	Geometry   geoJSONGeometry   `json:"geometry"`
	Properties geoJSONProperties `json:"properties"`
}

type geoJSONFeatureCollection struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
}

func writeGeoJSON(w io.Writer, entries []models.APCacheEntry) error {
	fc := geoJSONFeatureCollection{
		Type:     "FeatureCollection",
		Features: make([]geoJSONFeature, 0, len(entries)),
	}
	for _, e := range entries {
		fc.Features = append(fc.Features, geoJSONFeature{
			Type:     "Feature",
			Geometry: geoJSONGeometry{Type: "Point", Coordinates: []float64{e.Lon, e.Lat}},
			Properties: geoJSONProperties{
				BSSID:      e.BSSID,
				SSID:       e.SSID,
				Encryption: e.Encryption,
				LastSeen:   e.LastSeen.UTC().Format(time.RFC3339),
			},
		})
	}
	return json.NewEncoder(w).Encode(fc)
}
