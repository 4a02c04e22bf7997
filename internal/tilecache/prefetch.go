package tilecache

import "math"

const earthRadiusMeters = 6371000.0

// TrackPoint is a single GPS fix on the observed track.
type TrackPoint struct {
	Lat, Lon float64
}

// BBox is a padded geographic bounding box, degrees.
type BBox struct {
	MinLat, MinLon, MaxLat, MaxLon float64
}

// PredictiveBBox extrapolates lookahead points beyond the last observed
// track point, along the bearing from the second-to-last to the last
// point, each one step-distance apart (step distance is the haversine
// distance between those same two points), then returns the bounding
// box of the last observed point plus every extrapolated point, padded
// by delta degrees on every side.
func PredictiveBBox(prev, last TrackPoint, lookahead int, delta float64) BBox {
	bearing := initialBearing(prev, last)
	step := haversineMeters(prev.Lat, prev.Lon, last.Lat, last.Lon)

	minLat, maxLat := last.Lat, last.Lat
	minLon, maxLon := last.Lon, last.Lon

	cur := last
	for i := 0; i < lookahead; i++ {
		cur = destinationPoint(cur, bearing, step)
		if cur.Lat < minLat {
			minLat = cur.Lat
		}
		if cur.Lat > maxLat {
			maxLat = cur.Lat
		}
		if cur.Lon < minLon {
			minLon = cur.Lon
		}
		if cur.Lon > maxLon {
			maxLon = cur.Lon
		}
	}

	return BBox{
		MinLat: minLat - delta,
		MinLon: minLon - delta,
		MaxLat: maxLat + delta,
		MaxLon: maxLon + delta,
	}
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
func rad2deg(r float64) float64 { return r * 180 / math.Pi }

// haversineMeters is the great-circle distance between two lat/lon
// points in meters.
func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	phi1, phi2 := deg2rad(lat1), deg2rad(lat2)
	dPhi := deg2rad(lat2 - lat1)
	dLambda := deg2rad(lon2 - lon1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// initialBearing is the forward azimuth in degrees (0-360, clockwise
// from true north) from a to b.
func initialBearing(a, b TrackPoint) float64 {
	phi1, phi2 := deg2rad(a.Lat), deg2rad(b.Lat)
	dLambda := deg2rad(b.Lon - a.Lon)

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)
	theta := math.Atan2(y, x)
	return math.Mod(rad2deg(theta)+360, 360)
}

// destinationPoint returns the point reached by travelling distanceM
// meters from p along bearingDeg.
func destinationPoint(p TrackPoint, bearingDeg, distanceM float64) TrackPoint {
	delta := distanceM / earthRadiusMeters
	theta := deg2rad(bearingDeg)
	phi1 := deg2rad(p.Lat)
	lambda1 := deg2rad(p.Lon)

	phi2 := math.Asin(math.Sin(phi1)*math.Cos(delta) + math.Cos(phi1)*math.Sin(delta)*math.Cos(theta))
	lambda2 := lambda1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*math.Sin(phi2),
	)

	return TrackPoint{Lat: rad2deg(phi2), Lon: rad2deg(lambda2)}
}
