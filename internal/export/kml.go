package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strconv"

	"github.com/trashytalk/piwardrive-go/pkg/models"
)

type kmlPlacemark struct {
	Name        string   `xml:"name"`
	Description string   `xml:"description,omitempty"`
	Point       kmlPoint `xml:"Point"`
}

type kmlPoint struct {
	Coordinates string `xml:"coordinates"`
}

type kmlDocument struct {
	Name       string         `xml:"name"`
	Placemarks []kmlPlacemark `xml:"Placemark"`
}

type kmlRoot struct {
	XMLName xml.Name    `xml:"kml"`
	Xmlns   string      `xml:"xmlns,attr"`
	Doc     kmlDocument `xml:"Document"`
}

func buildKML(entries []models.APCacheEntry) kmlRoot {
	root := kmlRoot{
		Xmlns: "http://www.opengis.net/kml/2.2",
		Doc:   kmlDocument{Name: "piwardrive-go access points"},
	}
	for _, e := range entries {
		root.Doc.Placemarks = append(root.Doc.Placemarks, kmlPlacemark{
			Name:        e.BSSID,
			Description: e.SSID,
			Point:       kmlPoint{Coordinates: formatLonLat(e.Lon, e.Lat)},
		})
	}
	return root
}

func writeKML(w io.Writer, entries []models.APCacheEntry) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return enc.Encode(buildKML(entries))
}

// writeKMZ zips a single doc.kml entry, the standard KMZ layout.
func writeKMZ(w io.Writer, entries []models.APCacheEntry) error {
	var kml bytes.Buffer
	kml.WriteString(xml.Header)
	enc := xml.NewEncoder(&kml)
	enc.Indent("", "  ")
	if err := enc.Encode(buildKML(entries)); err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	f, err := zw.Create("doc.kml")
	if err != nil {
		return err
	}
	if _, err := f.Write(kml.Bytes()); err != nil {
		return err
	}
	return zw.Close()
}

func formatLonLat(lon, lat float64) string {
	return strconv.FormatFloat(lon, 'f', -1, 64) + "," + strconv.FormatFloat(lat, 'f', -1, 64) + ",0"
}
