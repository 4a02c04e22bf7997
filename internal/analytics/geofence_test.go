package analytics

import (
	"testing"

	"github.com/trashytalk/piwardrive-go/pkg/models"
)

func square() []models.GeofenceVertex {
	return []models.GeofenceVertex{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 10},
		{Lat: 10, Lon: 10},
		{Lat: 10, Lon: 0},
	}
}

func TestPointInPolygon_Inside(t *testing.T) {
	if !PointInPolygon(5, 5, square()) {
		t.Fatal("expected point inside square")
	}
}

func TestPointInPolygon_Outside(t *testing.T) {
	if PointInPolygon(20, 20, square()) {
		t.Fatal("expected point outside square")
	}
}

func TestPointInPolygon_TooFewVertices(t *testing.T) {
	if PointInPolygon(1, 1, []models.GeofenceVertex{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 1}}) {
		t.Fatal("a degenerate polygon should never contain a point")
	}
}

func TestEvaluateGeofences(t *testing.T) {
	fences := []models.Geofence{{Name: "yard", Vertices: square()}}
	out := EvaluateGeofences(fences, 5, 5)
	if !out[0].Inside {
		t.Fatal("expected yard to report inside")
	}
	if fences[0].Inside {
		t.Fatal("input slice must not be mutated")
	}
}
