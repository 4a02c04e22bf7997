package analytics

import (
	"testing"
	"time"

	"github.com/trashytalk/piwardrive-go/pkg/models"
)

func TestDetectEvilTwin(t *testing.T) {
	records := []SecurityRecord{
		{SSID: "Home", BSSID: "AA", Encryption: "WPA2"},
		{SSID: "Home", BSSID: "BB", Encryption: "OPEN"},
	}
	found := detectEvilTwin(records, time.Now())
	if len(found) != 2 {
		t.Fatalf("detectEvilTwin() returned %d findings, want 2", len(found))
	}
	for _, f := range found {
		if f.Type != models.ActivityEvilTwin || f.Severity != models.SeverityHigh {
			t.Errorf("finding = %+v, want evil_twin/high", f)
		}
		bssids, _ := f.Evidence["bssids"].([]string)
		if len(bssids) != 2 {
			t.Errorf("evidence bssids = %v, want 2 entries", bssids)
		}
	}
}

func TestDetectHiddenSSID(t *testing.T) {
	records := []SecurityRecord{{BSSID: "AA", SSID: ""}}
	found := detectHiddenSSID(records, time.Now())
	if len(found) != 1 {
		t.Fatalf("detectHiddenSSID() returned %d findings, want 1", len(found))
	}
	if found[0].Type != models.ActivityHiddenSSID || found[0].Severity != models.SeverityLow {
		t.Errorf("finding = %+v, want hidden_ssid/low", found[0])
	}
}

func TestDetectDeauth(t *testing.T) {
	records := []SecurityRecord{
		{BSSID: "AA", StationCount: 0, SignalDBM: -30},
		{BSSID: "BB", StationCount: 2, SignalDBM: -30},
		{BSSID: "CC", StationCount: 0, SignalDBM: -80},
	}
	found := detectDeauth(records, time.Now())
	if len(found) != 1 || found[0].TargetBSSID != "AA" {
		t.Fatalf("detectDeauth() = %+v, want single finding for AA", found)
	}
}
