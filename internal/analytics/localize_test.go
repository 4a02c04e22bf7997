package analytics

import "testing"

func TestWeightedCentroid_S2(t *testing.T) {
	obs := []Observation{
		{Lat: 0, Lon: 0, RSSIDBM: 90},
		{Lat: 10, Lon: 10, RSSIDBM: 60},
	}
	lat, lon := WeightedCentroid(obs, 1.5)
	if !(lat > 0 && lat < 5) {
		t.Errorf("lat = %v, want in (0, 5)", lat)
	}
	if !(lon > 0 && lon < 5) {
		t.Errorf("lon = %v, want in (0, 5)", lon)
	}
}

func TestLocalize_TooFewPointsSkipped(t *testing.T) {
	cfg := DefaultLocalizeConfig()
	_, ok := Localize("AA", []Observation{{Lat: 1, Lon: 1, RSSIDBM: 50}}, cfg)
	if ok {
		t.Errorf("Localize() with 1 point should be skipped (min_points=%d)", cfg.MinPoints)
	}
}

func TestDBSCAN_NoiseExcludedFromCentroid(t *testing.T) {
	points := []Point2D{{X: 0, Y: 0}, {X: 0.0001, Y: 0.0001}, {X: 50, Y: 50}}
	labels := DBSCAN(points, 0.001, 2)
	if labels[2] != -1 {
		t.Fatalf("far point label = %d, want -1 (noise)", labels[2])
	}
	if labels[0] == -1 || labels[0] != labels[1] {
		t.Errorf("nearby points should share a cluster, got labels %v", labels)
	}
}

func TestRSSIToDistance_MonotonicWithSignal(t *testing.T) {
	near := RSSIToDistance(-40, -40, 2.0)
	far := RSSIToDistance(-80, -40, 2.0)
	if near >= far {
		t.Errorf("expected distance to increase as RSSI weakens: near=%v far=%v", near, far)
	}
}
