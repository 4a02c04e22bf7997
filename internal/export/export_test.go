package export

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/trashytalk/piwardrive-go/pkg/models"
)

func sampleEntries() []models.APCacheEntry {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return []models.APCacheEntry{
		{BSSID: "aa:bb:cc:dd:ee:01", SSID: "coffeeshop", Encryption: "WPA2", Lat: 51.5, Lon: -0.1, LastSeen: now},
		{BSSID: "aa:bb:cc:dd:ee:02", SSID: "no-gps", Encryption: "WPA2", Lat: 0, Lon: 0, LastSeen: now},
	}
}

func TestWrite_CSVIncludesHeaderAndRows(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatCSV, sampleEntries()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d rows", len(rows))
	}
	if rows[0][0] != "bssid" {
		t.Fatalf("expected header row, got %v", rows[0])
	}
}

func TestWrite_JSONRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatJSON, sampleEntries()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	var out []models.APCacheEntry
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(out))
	}
}

func TestWrite_JSONEmitsEmptyArrayForNilEntries(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatJSON, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Fatalf("expected empty JSON array, got %q", buf.String())
	}
}

func TestWrite_GPXSkipsEntriesMissingPosition(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatGPX, sampleEntries()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	var doc gpxDoc
	if err := xml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(doc.Points) != 1 {
		t.Fatalf("expected 1 waypoint (geoless entry skipped), got %d", len(doc.Points))
	}
	if doc.Points[0].Name != "aa:bb:cc:dd:ee:01" {
		t.Fatalf("unexpected waypoint: %+v", doc.Points[0])
	}
}

func TestWrite_KMLSkipsEntriesMissingPosition(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatKML, sampleEntries()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	var doc kmlRoot
	if err := xml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(doc.Doc.Placemarks) != 1 {
		t.Fatalf("expected 1 placemark, got %d", len(doc.Doc.Placemarks))
	}
}

func TestWrite_KMZContainsSingleDocKML(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatKMZ, sampleEntries()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	if len(zr.File) != 1 || zr.File[0].Name != "doc.kml" {
		t.Fatalf("expected single doc.kml entry, got %+v", zr.File)
	}
}

func TestWrite_GeoJSONFeatureCollection(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatGeoJSON, sampleEntries()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	var fc geoJSONFeatureCollection
	if err := json.Unmarshal(buf.Bytes(), &fc); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if fc.Type != "FeatureCollection" {
		t.Fatalf("unexpected type %q", fc.Type)
	}
	if len(fc.Features) != 1 {
		t.Fatalf("expected 1 feature, got %d", len(fc.Features))
	}
	if fc.Features[0].Geometry.Coordinates[0] != -0.1 || fc.Features[0].Geometry.Coordinates[1] != 51.5 {
		t.Fatalf("unexpected coordinates: %v", fc.Features[0].Geometry.Coordinates)
	}
}

func TestWrite_ShapefileProducesThreeEntries(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatShapefile, sampleEntries()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	for _, want := range []string{"aps.shp", "aps.shx", "aps.dbf"} {
		if !names[want] {
			t.Fatalf("missing %s in shapefile archive", want)
		}
	}
}

func TestWrite_UnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, Format("tiff"), sampleEntries())
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestContentType_KnownFormats(t *testing.T) {
	cases := map[Format]string{
		FormatCSV:     "text/csv",
		FormatJSON:    "application/json",
		FormatGeoJSON: "application/json",
		FormatGPX:     "application/xml",
		FormatKMZ:     "application/zip",
	}
	for f, want := range cases {
		if got := ContentType(f); got != want {
			t.Errorf("ContentType(%s) = %q, want %q", f, got, want)
		}
	}
}
