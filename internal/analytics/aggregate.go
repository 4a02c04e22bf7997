package analytics

import (
	"math"
	"strings"

	"github.com/trashytalk/piwardrive-go/pkg/models"
)

// DetectionSample is the subset of a Wi-Fi detection row needed to
// aggregate a day's per-BSSID statistics.
type DetectionSample struct {
	BSSID      string
	SSID       string
	Channel    int
	Encryption string
	SignalDBM  int
	Lat        float64
	Lon        float64
	HasLoc     bool
}

// AggregateDay groups samples (already filtered to a single BSSID's
// detections for one calendar day) into a network_analytics row. date is
// the row's analysis_date (YYYY-MM-DD).
func AggregateDay(bssid, date string, samples []DetectionSample) models.NetworkAnalytics {
	total := len(samples)
	row := models.NetworkAnalytics{BSSID: bssid, Date: date, TotalDetections: total}
	if total == 0 {
		return row
	}

	type locKey struct {
		lat, lon float64
	}
	locSet := make(map[locKey]bool)
	encs := make(map[string]bool)
	ssids := make(map[string]bool)
	chans := make(map[int]bool)

	var sigSum, sigSumSq float64
	sigMin, sigMax := samples[0].SignalDBM, samples[0].SignalDBM

	for _, s := range samples {
		if s.HasLoc {
			locSet[locKey{round5(s.Lat), round5(s.Lon)}] = true
		}
		if s.Encryption != "" {
			encs[s.Encryption] = true
		}
		if s.SSID != "" {
			ssids[s.SSID] = true
		}
		chans[s.Channel] = true

		sigSum += float64(s.SignalDBM)
		sigSumSq += float64(s.SignalDBM) * float64(s.SignalDBM)
		if s.SignalDBM < sigMin {
			sigMin = s.SignalDBM
		}
		if s.SignalDBM > sigMax {
			sigMax = s.SignalDBM
		}
	}

	mean := sigSum / float64(total)
	row.SignalMin = sigMin
	row.SignalMax = sigMax
	row.SignalMean = mean
	row.SignalVariance = sigSumSq/float64(total) - mean*mean

	row.UniqueLocations = len(locSet)
	if len(locSet) > 0 {
		var latC, lonC float64
		for k := range locSet {
			latC += k.lat
			lonC += k.lon
		}
		latC /= float64(len(locSet))
		lonC /= float64(len(locSet))

		var maxRadius float64
		for k := range locSet {
			d := haversineMeters(latC, lonC, k.lat, k.lon)
			if d > maxRadius {
				maxRadius = d
			}
		}
		row.CoverageRadiusM = maxRadius
	}

	row.MobilityScore = math.Min(1.0, float64(len(locSet))/float64(total))
	row.EncryptionChanges = max0(len(encs) - 1)
	row.SSIDChanges = max0(len(ssids) - 1)
	row.ChannelChanges = max0(len(chans) - 1)

	seenSSIDPerBSSID := make(map[string]map[string]bool)
	suspiciousCount := 0
	for _, s := range samples {
		if suspiciousSample(s, seenSSIDPerBSSID) {
			suspiciousCount++
		}
	}
	row.SuspiciousScore = math.Min(1.0, float64(suspiciousCount)/float64(total))

	return row
}

// suspiciousSample flags an open/WEP network, a BSSID seen broadcasting
// more than one SSID so far this aggregation, or an out-of-range channel.
// seen accumulates BSSID -> observed SSIDs across the whole call; a sample
// counts as a duplicate-SSID hit only once an earlier or current sample has
// added a second SSID, so the resulting count depends on sample order.
func suspiciousSample(s DetectionSample, seen map[string]map[string]bool) bool {
	enc := strings.ToLower(s.Encryption)
	suspicious := strings.Contains(enc, "open") || strings.Contains(enc, "wep")

	if s.BSSID != "" {
		ssids, ok := seen[s.BSSID]
		if !ok {
			ssids = make(map[string]bool)
			seen[s.BSSID] = ssids
		}
		ssids[s.SSID] = true
		if len(ssids) > 1 {
			suspicious = true
		}
	}

	if s.Channel != 0 && (s.Channel < 1 || s.Channel > 196) {
		suspicious = true
	}

	return suspicious
}

// round5 matches the reference implementation's round(x, 5) location
// bucketing used to count distinct observed positions.
func round5(v float64) float64 {
	const p = 1e5
	return math.Round(v*p) / p
}

func max0(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusM = 6371000.0
	phi1 := deg2rad(lat1)
	phi2 := deg2rad(lat2)
	dPhi := deg2rad(lat2 - lat1)
	dLambda := deg2rad(lon2 - lon1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * earthRadiusM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
