// Package export renders the access-point cache into the wire formats
// the /export/aps endpoint offers: csv, json, gpx, kml, kmz, geojson,
// and shapefile.
package export

import (
	"fmt"
	"io"

	"github.com/trashytalk/piwardrive-go/pkg/models"
)

// Format is one of the supported export formats, as passed via the
// export endpoint's ?fmt= query parameter.
type Format string

const (
	FormatCSV       Format = "csv"
	FormatJSON      Format = "json"
	FormatGPX       Format = "gpx"
	FormatKML       Format = "kml"
	FormatKMZ       Format = "kmz"
	FormatGeoJSON   Format = "geojson"
	FormatShapefile Format = "shp"
)

// ErrUnsupportedFormat is returned by Write for any fmt value not in the
// set above.
var ErrUnsupportedFormat = fmt.Errorf("export: unsupported format")

// ContentType returns the MIME type to serve a given format under.
func ContentType(f Format) string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatJSON, FormatGeoJSON:
		return "application/json"
	case FormatGPX, FormatKML:
		return "application/xml"
	case FormatKMZ, FormatShapefile:
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}

// geoRecords drops entries with no usable position: geometry formats
// cannot place a point with a missing lat or lon.
func geoRecords(entries []models.APCacheEntry) []models.APCacheEntry {
	out := make([]models.APCacheEntry, 0, len(entries))
	for _, e := range entries {
		if e.Lat == 0 && e.Lon == 0 {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Write renders entries in the given format to w.
func Write(w io.Writer, f Format, entries []models.APCacheEntry) error {
	switch f {
	case FormatCSV:
		return writeCSV(w, entries)
	case FormatJSON:
		return writeJSON(w, entries)
	case FormatGPX:
		return writeGPX(w, geoRecords(entries))
	case FormatKML:
		return writeKML(w, geoRecords(entries))
	case FormatKMZ:
		return writeKMZ(w, geoRecords(entries))
	case FormatGeoJSON:
		return writeGeoJSON(w, geoRecords(entries))
	case FormatShapefile:
		return writeShapefile(w, geoRecords(entries))
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
}
