package tilecache

import (
	"math"
	"testing"
)

func TestHaversineMeters_KnownDistance(t *testing.T) {
	// London to Paris, roughly 343 km.
	d := haversineMeters(51.5074, -0.1278, 48.8566, 2.3522)
	if d < 340000 || d > 347000 {
		t.Errorf("distance = %f, want ~343000", d)
	}
}

func TestInitialBearing_DueEast(t *testing.T) {
	// Along the equator, travelling east, bearing should be ~90 degrees.
	b := initialBearing(TrackPoint{Lat: 0, Lon: 0}, TrackPoint{Lat: 0, Lon: 1})
	if math.Abs(b-90) > 1 {
		t.Errorf("bearing = %f, want ~90", b)
	}
}

func TestDestinationPoint_RoundTripsDistance(t *testing.T) {
	start := TrackPoint{Lat: 40.0, Lon: -105.0}
	dest := destinationPoint(start, 45, 10000)
	d := haversineMeters(start.Lat, start.Lon, dest.Lat, dest.Lon)
	if math.Abs(d-10000) > 1 {
		t.Errorf("round-tripped distance = %f, want ~10000", d)
	}
}

func TestPredictiveBBox_ExtendsAheadOfTrack(t *testing.T) {
	prev := TrackPoint{Lat: 40.0, Lon: -105.0}
	last := TrackPoint{Lat: 40.01, Lon: -105.0} // heading roughly due north

	bbox := PredictiveBBox(prev, last, 3, 0.001)

	if bbox.MaxLat <= last.Lat {
		t.Errorf("MaxLat = %f, want > last.Lat %f (prefetch should extend ahead)", bbox.MaxLat, last.Lat)
	}
	if bbox.MinLat > last.Lat {
		t.Errorf("MinLat = %f, want <= last.Lat %f", bbox.MinLat, last.Lat)
	}
}

func TestPredictiveBBox_ZeroLookaheadIsJustPaddedLastPoint(t *testing.T) {
	prev := TrackPoint{Lat: 40.0, Lon: -105.0}
	last := TrackPoint{Lat: 40.01, Lon: -105.0}

	bbox := PredictiveBBox(prev, last, 0, 0.01)

	if math.Abs(bbox.MaxLat-(last.Lat+0.01)) > 1e-9 {
		t.Errorf("MaxLat = %f, want %f", bbox.MaxLat, last.Lat+0.01)
	}
	if math.Abs(bbox.MinLat-(last.Lat-0.01)) > 1e-9 {
		t.Errorf("MinLat = %f, want %f", bbox.MinLat, last.Lat-0.01)
	}
}
