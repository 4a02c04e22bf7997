package analytics

import "github.com/trashytalk/piwardrive-go/pkg/models"

// PointInPolygon reports whether (lat, lon) falls inside the polygon
// described by vertices, using the standard ray-casting algorithm. A
// polygon with fewer than 3 vertices never contains a point.
func PointInPolygon(lat, lon float64, vertices []models.GeofenceVertex) bool {
	if len(vertices) < 3 {
		return false
	}
	inside := false
	for i, j := 0, len(vertices)-1; i < len(vertices); j, i = i, i+1 {
		vi, vj := vertices[i], vertices[j]
		intersects := (vi.Lon > lon) != (vj.Lon > lon) &&
			lat < (vj.Lat-vi.Lat)*(lon-vi.Lon)/(vj.Lon-vi.Lon)+vi.Lat
		if intersects {
			inside = !inside
		}
	}
	return inside
}

// EvaluateGeofences returns a copy of fences with Inside recomputed
// against the current position.
func EvaluateGeofences(fences []models.Geofence, lat, lon float64) []models.Geofence {
	out := make([]models.Geofence, len(fences))
	for i, f := range fences {
		f.Inside = PointInPolygon(lat, lon, f.Vertices)
		out[i] = f
	}
	return out
}
