package analytics

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/trashytalk/piwardrive-go/pkg/models"
)

// characteristicKeys is the fixed, ordered set of fields that make up a
// network's fingerprint. Only keys present (non-empty) on the record
// contribute to the hash, so two networks agreeing on every known field
// hash identically regardless of which optional fields are absent.
var characteristicKeys = []string{
	"vendor_oui",
	"vendor_name",
	"encryption_type",
	"cipher_suite",
	"authentication_method",
	"beacon_interval_ms",
	"dtim_period",
	"ht_capabilities",
	"vht_capabilities",
	"he_capabilities",
	"country_code",
	"regulatory_domain",
	"channel",
	"frequency_mhz",
	"tx_power_dbm",
	"device_type",
}

// WifiRecord is the subset of a Wi-Fi detection needed to compute a
// fingerprint; callers populate VendorOUI/VendorName/DeviceType from
// internal/oui lookups alongside the raw scan fields.
type WifiRecord struct {
	BSSID        string
	SSID         string
	VendorOUI    string
	VendorName   string
	Encryption   string
	Channel      int
	FrequencyMHz int
	CountryCode  string
	DeviceType   string
}

func extractCharacteristics(r WifiRecord) map[string]any {
	all := map[string]any{
		"vendor_oui":      r.VendorOUI,
		"vendor_name":     r.VendorName,
		"encryption_type": r.Encryption,
		"country_code":    r.CountryCode,
		"channel":         r.Channel,
		"frequency_mhz":   r.FrequencyMHz,
		"device_type":     r.DeviceType,
	}
	out := make(map[string]any, len(characteristicKeys))
	for _, k := range characteristicKeys {
		v, ok := all[k]
		if !ok {
			continue
		}
		switch val := v.(type) {
		case string:
			if val == "" {
				continue
			}
		case int:
			if val == 0 {
				continue
			}
		}
		out[k] = v
	}
	return out
}

// fingerprintHash hashes the canonical JSON encoding of char. Go's
// encoding/json sorts map[string]any keys alphabetically when marshaling,
// matching the reference implementation's json.dumps(sort_keys=True).
func fingerprintHash(char map[string]any) string {
	data, _ := json.Marshal(char)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func classify(r WifiRecord) (models.Classification, models.RiskLevel) {
	enc := strings.ToUpper(r.Encryption)
	vendor := strings.ToLower(r.VendorName)

	var class models.Classification
	var risk models.RiskLevel

	switch {
	case enc == "" || enc == "OPEN":
		class, risk = models.ClassPublic, models.RiskMedium
	case strings.Contains(vendor, "CISCO") || strings.Contains(vendor, "ubiquiti"):
		class, risk = models.ClassBusiness, models.RiskLow
	default:
		class, risk = models.ClassHome, models.RiskLow
	}
	if strings.Contains(enc, "WEP") {
		risk = models.RiskHigh
	}
	return class, risk
}

// Fingerprint computes the stable identity hash, classification, and risk
// tier for a Wi-Fi network, following the same characteristic-extraction
// and rule order as the reference implementation.
func Fingerprint(r WifiRecord, now time.Time) models.NetworkFingerprint {
	char := extractCharacteristics(r)
	class, risk := classify(r)
	confidence := float64(len(char)) / 10.0
	if confidence > 1.0 {
		confidence = 1.0
	}
	return models.NetworkFingerprint{
		BSSID:           r.BSSID,
		SSID:            r.SSID,
		Hash:            fingerprintHash(char),
		Classification:  class,
		Risk:            risk,
		Confidence:      confidence,
		Characteristics: char,
		DetectedAt:      now,
	}
}
