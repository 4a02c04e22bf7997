package export

import (
	"encoding/xml"
	"io"
	"time"

	"github.com/trashytalk/piwardrive-go/pkg/models"
)

type gpxWaypoint struct {
	Lat  float64 `xml:"lat,attr"`
	Lon  float64 `xml:"lon,attr"`
	Name string  `xml:"name"`
	Time string  `xml:"time"`
	Desc string  `xml:"desc,omitempty"`
}

type gpxDoc struct {
	XMLName xml.Name      `xml:"gpx"`
	Version string        `xml:"version,attr"`
	Creator string        `xml:"creator,attr"`
	Xmlns   string        `xml:"xmlns,attr"`
	Points  []gpxWaypoint `xml:"wpt"`
}

func writeGPX(w io.Writer, entries []models.APCacheEntry) error {
	doc := gpxDoc{
		Version: "1.1",
		Creator: "piwardrive-go",
		Xmlns:   "http://www.topografix.com/GPX/1/1",
	}
	for _, e := range entries {
		doc.Points = append(doc.Points, gpxWaypoint{
			Lat:  e.Lat,
			Lon:  e.Lon,
			Name: e.BSSID,
			Time: e.LastSeen.UTC().Format(time.RFC3339),
			Desc: e.SSID,
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return enc.Encode(doc)
}
