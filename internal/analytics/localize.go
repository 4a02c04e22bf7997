package analytics

import (
	"math"
	"sort"
	"time"
)

// Observation is a single (lat, lon, RSSI) sighting of a BSSID at a point
// in time, as fed to Localize.
type Observation struct {
	Lat     float64
	Lon     float64
	RSSIDBM int
	At      time.Time
}

// LocalizeConfig tunes the Kalman, DBSCAN, and centroid-weighting stages.
type LocalizeConfig struct {
	MinPoints             int     // skip BSSIDs with fewer observations than this
	KalmanQ               float64 // process variance
	KalmanR               float64 // measurement variance
	DBSCANEps             float64 // neighborhood radius, in degrees
	DBSCANMinSamples      int
	CentroidRSSIWeightPow float64 // p in w = max(0.01, 1/(100-rssi)^p)
}

// DefaultLocalizeConfig mirrors the reference implementation's defaults.
func DefaultLocalizeConfig() LocalizeConfig {
	return LocalizeConfig{
		MinPoints:             5,
		KalmanQ:               1e-4,
		KalmanR:               1e-2,
		DBSCANEps:             0.0005,
		DBSCANMinSamples:      2,
		CentroidRSSIWeightPow: 1.5,
	}
}

// Localized is the emitted (bssid, lat, lon) localization result.
type Localized struct {
	BSSID string
	Lat   float64
	Lon   float64
}

// Localize runs the full AP localization pipeline for a single BSSID's
// observations: sort by time, Kalman-smooth lat/lon independently, DBSCAN
// the smoothed points to drop outliers, then compute an RSSI-weighted
// centroid of the surviving points. ok is false when there are fewer than
// cfg.MinPoints observations or every point is DBSCAN noise.
func Localize(bssid string, obs []Observation, cfg LocalizeConfig) (result Localized, ok bool) {
	if len(obs) < cfg.MinPoints {
		return Localized{}, false
	}

	sorted := append([]Observation{}, obs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].At.Before(sorted[j].At) })

	lats := make([]float64, len(sorted))
	lons := make([]float64, len(sorted))
	for i, o := range sorted {
		lats[i] = o.Lat
		lons[i] = o.Lon
	}
	smoothedLat := Kalman1D(lats, cfg.KalmanQ, cfg.KalmanR)
	smoothedLon := Kalman1D(lons, cfg.KalmanQ, cfg.KalmanR)

	points := make([]Point2D, len(sorted))
	for i := range sorted {
		points[i] = Point2D{X: smoothedLat[i], Y: smoothedLon[i]}
	}
	labels := DBSCAN(points, cfg.DBSCANEps, cfg.DBSCANMinSamples)

	var wLat, wLon, wSum float64
	for i, label := range labels {
		if label == -1 {
			continue
		}
		w := centroidWeight(sorted[i].RSSIDBM, cfg.CentroidRSSIWeightPow)
		wLat += w * smoothedLat[i]
		wLon += w * smoothedLon[i]
		wSum += w
	}
	if wSum == 0 {
		return Localized{}, false
	}

	return Localized{BSSID: bssid, Lat: wLat / wSum, Lon: wLon / wSum}, true
}

func centroidWeight(rssiDBM int, p float64) float64 {
	w := 1.0 / math.Pow(100-float64(rssiDBM), p)
	return math.Max(0.01, w)
}

// WeightedCentroid computes the RSSI-weighted centroid of a set of
// observations directly, without the Kalman/DBSCAN stages, using the same
// weight as Localize's final step (which computes its centroid inline over
// the smoothed, non-noise points rather than calling this function).
func WeightedCentroid(obs []Observation, p float64) (lat, lon float64) {
	var wLat, wLon, wSum float64
	for _, o := range obs {
		w := centroidWeight(o.RSSIDBM, p)
		wLat += w * o.Lat
		wLon += w * o.Lon
		wSum += w
	}
	if wSum == 0 {
		return 0, 0
	}
	return wLat / wSum, wLon / wSum
}

// RSSIToDistance converts a received signal strength to an estimated
// distance in meters using the log-distance path-loss model, given
// reference RSSI a (at 1m) and path-loss exponent n.
func RSSIToDistance(rssiDBM int, a, n float64) float64 {
	return math.Pow(10, (a-float64(rssiDBM))/(10*n))
}
