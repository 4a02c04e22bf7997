package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/trashytalk/piwardrive-go/internal/analytics"
	"github.com/trashytalk/piwardrive-go/pkg/models"
)

// InsertHealthSample writes a single health sample directly (health
// samples are low-volume and do not go through the batched writer).
func (s *Store) InsertHealthSample(ctx context.Context, h models.HealthSample) error {
	_, err := s.ExecTimed(ctx, s.writer, `
		INSERT INTO health_records (timestamp, cpu_temp_c, cpu_percent, mem_percent, disk_percent)
		VALUES (?, ?, ?, ?, ?)`,
		h.Timestamp.UTC().Format(time.RFC3339Nano), h.CPUTempC, h.CPUPercent, h.MemPercent, h.DiskPercent)
	return err
}

// LastHealthSamples returns the most recent n health samples, newest first.
func (s *Store) LastHealthSamples(ctx context.Context, n int) ([]models.HealthSample, error) {
	rows, err := s.QueryTimed(ctx, s.GetReader(), `
		SELECT timestamp, cpu_temp_c, cpu_percent, mem_percent, disk_percent
		FROM health_records ORDER BY timestamp DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("last health samples: %w", err)
	}
	defer rows.Close()

	var out []models.HealthSample
	for rows.Next() {
		var h models.HealthSample
		var ts string
		if err := rows.Scan(&ts, &h.CPUTempC, &h.CPUPercent, &h.MemPercent, &h.DiskPercent); err != nil {
			return nil, err
		}
		h.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, h)
	}
	return out, rows.Err()
}

// HealthRecordsSince returns health samples recorded strictly after the
// given watermark, oldest first, for incremental remote-sync uploads.
func (s *Store) HealthRecordsSince(ctx context.Context, since time.Time) ([]models.HealthSample, error) {
	rows, err := s.QueryTimed(ctx, s.GetReader(), `
		SELECT timestamp, cpu_temp_c, cpu_percent, mem_percent, disk_percent
		FROM health_records WHERE timestamp > ? ORDER BY timestamp ASC`,
		since.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("health records since: %w", err)
	}
	defer rows.Close()

	var out []models.HealthSample
	for rows.Next() {
		var h models.HealthSample
		var ts string
		if err := rows.Scan(&ts, &h.CPUTempC, &h.CPUPercent, &h.MemPercent, &h.DiskPercent); err != nil {
			return nil, err
		}
		h.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, h)
	}
	return out, rows.Err()
}

// UpsertAPCache records the last-known location for a BSSID.
func (s *Store) UpsertAPCache(ctx context.Context, e models.APCacheEntry) error {
	_, err := s.ExecTimed(ctx, s.writer, `
		INSERT INTO ap_cache (bssid, ssid, encryption, lat, lon, last_seen)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(bssid) DO UPDATE SET
			ssid=excluded.ssid, encryption=excluded.encryption,
			lat=excluded.lat, lon=excluded.lon, last_seen=excluded.last_seen`,
		e.BSSID, e.SSID, e.Encryption, e.Lat, e.Lon, e.LastSeen.UTC().Format(time.RFC3339Nano))
	return err
}

// ListAPCache returns every cached access point.
func (s *Store) ListAPCache(ctx context.Context) ([]models.APCacheEntry, error) {
	rows, err := s.QueryTimed(ctx, s.GetReader(),
		`SELECT bssid, ssid, encryption, lat, lon, last_seen FROM ap_cache`)
	if err != nil {
		return nil, fmt.Errorf("list ap cache: %w", err)
	}
	defer rows.Close()

	var out []models.APCacheEntry
	for rows.Next() {
		var e models.APCacheEntry
		var ts string
		if err := rows.Scan(&e.BSSID, &e.SSID, &e.Encryption, &e.Lat, &e.Lon, &ts); err != nil {
			return nil, err
		}
		e.LastSeen, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

// SaveNetworkFingerprints inserts newly computed fingerprints. Fingerprints
// accumulate: each call adds rows and never replaces earlier rows for the
// same BSSID. This package has no query that reads them back.
func (s *Store) SaveNetworkFingerprints(ctx context.Context, rows []models.NetworkFingerprint) error {
	for _, fp := range rows {
		characteristics, err := json.Marshal(fp.Characteristics)
		if err != nil {
			return fmt.Errorf("marshal characteristics: %w", err)
		}
		_, err = s.ExecTimed(ctx, s.writer, `
			INSERT INTO network_fingerprints
				(bssid, ssid, fingerprint_hash, confidence_score, characteristics, classification, risk_level, detected_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			fp.BSSID, fp.SSID, fp.Hash, fp.Confidence, string(characteristics),
			string(fp.Classification), string(fp.Risk), fp.DetectedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("save fingerprint for %s: %w", fp.BSSID, err)
		}
	}
	return nil
}

// SaveSuspiciousActivities inserts security-heuristic findings.
func (s *Store) SaveSuspiciousActivities(ctx context.Context, rows []models.SuspiciousActivity) error {
	for _, a := range rows {
		evidence, err := json.Marshal(a.Evidence)
		if err != nil {
			return fmt.Errorf("marshal evidence: %w", err)
		}
		var lat, lon any
		if a.Lat != nil {
			lat = *a.Lat
		}
		if a.Lon != nil {
			lon = *a.Lon
		}
		_, err = s.ExecTimed(ctx, s.writer, `
			INSERT INTO suspicious_activities
				(session_id, activity_type, severity, target_bssid, target_ssid, evidence, detected_at, lat, lon, analyst_flag)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.SessionID, string(a.Type), string(a.Severity), a.TargetBSSID, a.TargetSSID,
			string(evidence), a.DetectedAt.UTC().Format(time.RFC3339Nano), lat, lon, a.AnalystFlag)
		if err != nil {
			return fmt.Errorf("save suspicious activity: %w", err)
		}
	}
	return nil
}

// UpsertNetworkAnalytics replaces the per-(bssid,date) aggregation row.
func (s *Store) UpsertNetworkAnalytics(ctx context.Context, a models.NetworkAnalytics) error {
	_, err := s.ExecTimed(ctx, s.writer, `
		INSERT INTO network_analytics
			(bssid, date, total_detections, unique_locations, signal_min, signal_max, signal_mean,
			 signal_variance, coverage_radius_m, mobility_score, encryption_changes, ssid_changes,
			 channel_changes, suspicious_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(bssid, date) DO UPDATE SET
			total_detections=excluded.total_detections, unique_locations=excluded.unique_locations,
			signal_min=excluded.signal_min, signal_max=excluded.signal_max, signal_mean=excluded.signal_mean,
			signal_variance=excluded.signal_variance, coverage_radius_m=excluded.coverage_radius_m,
			mobility_score=excluded.mobility_score, encryption_changes=excluded.encryption_changes,
			ssid_changes=excluded.ssid_changes, channel_changes=excluded.channel_changes,
			suspicious_score=excluded.suspicious_score`,
		a.BSSID, a.Date, a.TotalDetections, a.UniqueLocations, a.SignalMin, a.SignalMax, a.SignalMean,
		a.SignalVariance, a.CoverageRadiusM, a.MobilityScore, a.EncryptionChanges, a.SSIDChanges,
		a.ChannelChanges, a.SuspiciousScore)
	return err
}

// WifiDetectionSamplesByBSSID groups the day's Wi-Fi detections (UTC
// calendar date, "YYYY-MM-DD") by BSSID, ready for
// analytics.AggregateDay. Detections with no GPS fix at capture time
// still contribute to the count and characteristic stats; only HasLoc
// gates whether a sample counts toward the centroid.
func (s *Store) WifiDetectionSamplesByBSSID(ctx context.Context, date string) (map[string][]analytics.DetectionSample, error) {
	rows, err := s.QueryTimed(ctx, s.GetReader(), `
		SELECT bssid, COALESCE(ssid, ''), COALESCE(channel, 0), COALESCE(encryption, ''),
		       COALESCE(signal_dbm, 0), COALESCE(lat, 0), COALESCE(lon, 0)
		FROM wifi_detections WHERE substr(timestamp, 1, 10) = ?`, date)
	if err != nil {
		return nil, fmt.Errorf("wifi detections for %s: %w", date, err)
	}
	defer rows.Close()

	out := make(map[string][]analytics.DetectionSample)
	for rows.Next() {
		var sample analytics.DetectionSample
		if err := rows.Scan(&sample.BSSID, &sample.SSID, &sample.Channel, &sample.Encryption,
			&sample.SignalDBM, &sample.Lat, &sample.Lon); err != nil {
			return nil, err
		}
		sample.HasLoc = sample.Lat != 0 || sample.Lon != 0
		out[sample.BSSID] = append(out[sample.BSSID], sample)
	}
	return out, rows.Err()
}

// WifiObservationsSince groups geolocated Wi-Fi detections since a point
// in time by BSSID, for analytics.Localize. Detections with no fix are
// excluded; Localize needs a position for every observation it uses.
func (s *Store) WifiObservationsSince(ctx context.Context, since time.Time) (map[string][]analytics.Observation, error) {
	rows, err := s.QueryTimed(ctx, s.GetReader(), `
		SELECT bssid, timestamp, signal_dbm, lat, lon FROM wifi_detections
		WHERE timestamp >= ? AND lat IS NOT NULL AND lon IS NOT NULL
		  AND NOT (lat = 0 AND lon = 0)`,
		since.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("wifi observations since %s: %w", since, err)
	}
	defer rows.Close()

	out := make(map[string][]analytics.Observation)
	for rows.Next() {
		var bssid, ts string
		var obs analytics.Observation
		var rssi sql.NullInt64
		if err := rows.Scan(&bssid, &ts, &rssi, &obs.Lat, &obs.Lon); err != nil {
			return nil, err
		}
		obs.RSSIDBM = int(rssi.Int64)
		obs.At, _ = time.Parse(time.RFC3339Nano, ts)
		out[bssid] = append(out[bssid], obs)
	}
	return out, rows.Err()
}

// UpdateAPLocation stamps a localized position onto an existing cache
// entry without disturbing its SSID or encryption fields. A BSSID with
// no prior ap_cache row is left alone: localization only refines
// positions for access points a scan has already observed.
func (s *Store) UpdateAPLocation(ctx context.Context, bssid string, lat, lon float64) error {
	_, err := s.ExecTimed(ctx, s.writer,
		`UPDATE ap_cache SET lat = ?, lon = ? WHERE bssid = ?`, lat, lon, bssid)
	return err
}

// GetDashboardSettings reads the single dashboard-settings row, returning
// the zero value if none has been saved yet.
func (s *Store) GetDashboardSettings(ctx context.Context) (models.DashboardSettings, error) {
	var widgets, layout string
	err := s.GetReader().QueryRowContext(ctx,
		`SELECT widgets, layout FROM dashboard_settings WHERE id = 1`).Scan(&widgets, &layout)
	if err == sql.ErrNoRows {
		return models.DashboardSettings{}, nil
	}
	if err != nil {
		return models.DashboardSettings{}, fmt.Errorf("get dashboard settings: %w", err)
	}
	var out models.DashboardSettings
	if err := json.Unmarshal([]byte(widgets), &out.Widgets); err != nil {
		return models.DashboardSettings{}, fmt.Errorf("decode widgets: %w", err)
	}
	if err := json.Unmarshal([]byte(layout), &out.Layout); err != nil {
		return models.DashboardSettings{}, fmt.Errorf("decode layout: %w", err)
	}
	return out, nil
}

// SaveDashboardSettings replaces the dashboard-settings row.
func (s *Store) SaveDashboardSettings(ctx context.Context, d models.DashboardSettings) error {
	widgets, err := json.Marshal(d.Widgets)
	if err != nil {
		return err
	}
	layout, err := json.Marshal(d.Layout)
	if err != nil {
		return err
	}
	_, err = s.ExecTimed(ctx, s.writer, `
		INSERT INTO dashboard_settings (id, widgets, layout) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET widgets=excluded.widgets, layout=excluded.layout`,
		string(widgets), string(layout))
	return err
}
