package analytics

import (
	"testing"
	"time"

	"github.com/trashytalk/piwardrive-go/pkg/models"
)

func TestFingerprint_SameCharacteristicsSameHash(t *testing.T) {
	a := WifiRecord{BSSID: "AA", SSID: "net", VendorName: "Acme", Encryption: "WPA2", Channel: 6}
	b := WifiRecord{BSSID: "BB", SSID: "other", VendorName: "Acme", Encryption: "WPA2", Channel: 6}

	fa := Fingerprint(a, time.Now())
	fb := Fingerprint(b, time.Now())
	if fa.Hash != fb.Hash {
		t.Errorf("hashes differ for identical characteristics: %s vs %s", fa.Hash, fb.Hash)
	}
}

func TestFingerprint_OpenNetworkIsPublicMedium(t *testing.T) {
	f := Fingerprint(WifiRecord{BSSID: "AA", Encryption: ""}, time.Now())
	if f.Classification != models.ClassPublic || f.Risk != models.RiskMedium {
		t.Errorf("got %s/%s, want public/medium", f.Classification, f.Risk)
	}
}

func TestFingerprint_WEPRaisesRiskToHigh(t *testing.T) {
	f := Fingerprint(WifiRecord{BSSID: "AA", VendorName: "Acme", Encryption: "WEP"}, time.Now())
	if f.Risk != models.RiskHigh {
		t.Errorf("risk = %s, want high", f.Risk)
	}
}

func TestFingerprint_ConfidenceCapsAtOne(t *testing.T) {
	f := Fingerprint(WifiRecord{
		BSSID: "AA", VendorOUI: "00:11:22", VendorName: "Acme", Encryption: "WPA2",
		Channel: 6, FrequencyMHz: 2437, CountryCode: "US", DeviceType: "router",
	}, time.Now())
	if f.Confidence > 1.0 {
		t.Errorf("confidence = %v, want <= 1.0", f.Confidence)
	}
}
