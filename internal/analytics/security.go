package analytics

import (
	"time"

	"github.com/trashytalk/piwardrive-go/pkg/models"
)

// SecurityRecord is the subset of a Wi-Fi detection the heuristics need.
type SecurityRecord struct {
	SessionID    string
	BSSID        string
	SSID         string
	Encryption   string
	Vendor       string
	StationCount int
	SignalDBM    int
}

// DetectSuspicious runs the hidden-SSID, evil-twin, and deauth heuristics
// over a batch of Wi-Fi records observed together (typically one scan
// cycle) and returns every finding.
func DetectSuspicious(records []SecurityRecord, now time.Time) []models.SuspiciousActivity {
	var out []models.SuspiciousActivity
	out = append(out, detectHiddenSSID(records, now)...)
	out = append(out, detectEvilTwin(records, now)...)
	out = append(out, detectDeauth(records, now)...)
	return out
}

func detectHiddenSSID(records []SecurityRecord, now time.Time) []models.SuspiciousActivity {
	var out []models.SuspiciousActivity
	for _, r := range records {
		if r.SSID != "" {
			continue
		}
		out = append(out, models.SuspiciousActivity{
			SessionID:   r.SessionID,
			Type:        models.ActivityHiddenSSID,
			Severity:    models.SeverityLow,
			TargetBSSID: r.BSSID,
			Evidence:    map[string]any{"bssid": r.BSSID},
			DetectedAt:  now,
		})
	}
	return out
}

// detectEvilTwin groups records by SSID; a group qualifies when it spans
// at least 2 distinct BSSIDs and at least 2 distinct encryptions or
// vendors, in which case every member of the group emits a finding
// carrying the whole group as evidence.
func detectEvilTwin(records []SecurityRecord, now time.Time) []models.SuspiciousActivity {
	groups := make(map[string][]SecurityRecord)
	for _, r := range records {
		if r.SSID == "" {
			continue
		}
		groups[r.SSID] = append(groups[r.SSID], r)
	}

	var out []models.SuspiciousActivity
	for ssid, group := range groups {
		bssids := distinctStrings(group, func(r SecurityRecord) string { return r.BSSID })
		encs := distinctStrings(group, func(r SecurityRecord) string { return r.Encryption })
		vendors := distinctStrings(group, func(r SecurityRecord) string { return r.Vendor })

		if len(bssids) < 2 || (len(encs) < 2 && len(vendors) < 2) {
			continue
		}

		evidence := map[string]any{
			"ssid":        ssid,
			"bssids":      bssids,
			"encryptions": encs,
		}
		for _, r := range group {
			out = append(out, models.SuspiciousActivity{
				SessionID:   r.SessionID,
				Type:        models.ActivityEvilTwin,
				Severity:    models.SeverityHigh,
				TargetSSID:  ssid,
				TargetBSSID: r.BSSID,
				Evidence:    evidence,
				DetectedAt:  now,
			})
		}
	}
	return out
}

func detectDeauth(records []SecurityRecord, now time.Time) []models.SuspiciousActivity {
	var out []models.SuspiciousActivity
	for _, r := range records {
		if r.StationCount == 0 && r.SignalDBM > -40 {
			out = append(out, models.SuspiciousActivity{
				SessionID:   r.SessionID,
				Type:        models.ActivityDeauth,
				Severity:    models.SeverityMedium,
				TargetBSSID: r.BSSID,
				TargetSSID:  r.SSID,
				Evidence: map[string]any{
					"station_count": r.StationCount,
					"signal_dbm":    r.SignalDBM,
				},
				DetectedAt: now,
			})
		}
	}
	return out
}

func distinctStrings(records []SecurityRecord, field func(SecurityRecord) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range records {
		v := field(r)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
