package analytics

import "testing"

func TestAggregateDay_SuspiciousScoreInUnitRange(t *testing.T) {
	samples := []DetectionSample{
		{BSSID: "AA", SSID: "net1", Encryption: "WPA2", Channel: 6, SignalDBM: -50, Lat: 1, Lon: 1, HasLoc: true},
		{BSSID: "AA", SSID: "net2", Encryption: "OPEN", Channel: 6, SignalDBM: -55, Lat: 1, Lon: 1, HasLoc: true},
		{BSSID: "AA", SSID: "net1", Encryption: "WPA2", Channel: 300, SignalDBM: -48, Lat: 1.001, Lon: 1.001, HasLoc: true},
	}
	row := AggregateDay("AA", "2026-07-31", samples)

	if row.TotalDetections != 3 {
		t.Errorf("TotalDetections = %d, want 3", row.TotalDetections)
	}
	if row.SuspiciousScore < 0 || row.SuspiciousScore > 1 {
		t.Errorf("SuspiciousScore = %v, want in [0,1]", row.SuspiciousScore)
	}
	if row.EncryptionChanges != 1 {
		t.Errorf("EncryptionChanges = %d, want 1", row.EncryptionChanges)
	}
	if row.SSIDChanges != 1 {
		t.Errorf("SSIDChanges = %d, want 1", row.SSIDChanges)
	}
	if row.UniqueLocations != 2 {
		t.Errorf("UniqueLocations = %d, want 2", row.UniqueLocations)
	}
}

func TestAggregateDay_Empty(t *testing.T) {
	row := AggregateDay("AA", "2026-07-31", nil)
	if row.TotalDetections != 0 {
		t.Errorf("TotalDetections = %d, want 0", row.TotalDetections)
	}
}
