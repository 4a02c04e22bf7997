package store

import "context"

// RefreshMaterializedViews recomputes the two derived tables from the live
// detection tables. Both statements are idempotent (DELETE+INSERT) so the
// refresh may be triggered repeatedly without accumulating stale rows.
func (s *Store) RefreshMaterializedViews(ctx context.Context) error {
	if err := s.refreshDailyDetectionStats(ctx); err != nil {
		return err
	}
	return s.refreshNetworkCoverageGrid(ctx)
}

func (s *Store) refreshDailyDetectionStats(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS daily_detection_stats (
			date            TEXT PRIMARY KEY,
			wifi_count      INTEGER NOT NULL DEFAULT 0,
			bluetooth_count INTEGER NOT NULL DEFAULT 0,
			cellular_count  INTEGER NOT NULL DEFAULT 0
		)`,
		`DELETE FROM daily_detection_stats`,
		`INSERT INTO daily_detection_stats (date, wifi_count, bluetooth_count, cellular_count)
			SELECT
				d,
				SUM(wifi_count),
				SUM(bluetooth_count),
				SUM(cellular_count)
			FROM (
				SELECT substr(timestamp, 1, 10) AS d, COUNT(*) AS wifi_count, 0 AS bluetooth_count, 0 AS cellular_count
				FROM wifi_detections GROUP BY d
				UNION ALL
				SELECT substr(timestamp, 1, 10) AS d, 0, COUNT(*), 0
				FROM bluetooth_detections GROUP BY d
				UNION ALL
				SELECT substr(timestamp, 1, 10) AS d, 0, 0, COUNT(*)
				FROM cellular_detections GROUP BY d
			)
			GROUP BY d`,
	}
	for _, stmt := range stmts {
		if _, err := s.ExecTimed(ctx, s.writer, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) refreshNetworkCoverageGrid(ctx context.Context) error {
	// A coarse lat/lon grid (0.01-degree cells, ~1.1km) of observed density,
	// used by the dashboard's coverage heatmap.
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS network_coverage_grid (
			cell_lat   REAL NOT NULL,
			cell_lon   REAL NOT NULL,
			detections INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (cell_lat, cell_lon)
		)`,
		`DELETE FROM network_coverage_grid`,
		`INSERT INTO network_coverage_grid (cell_lat, cell_lon, detections)
			SELECT ROUND(lat, 2), ROUND(lon, 2), COUNT(*)
			FROM wifi_detections
			WHERE lat IS NOT NULL AND lon IS NOT NULL
			GROUP BY ROUND(lat, 2), ROUND(lon, 2)`,
	}
	for _, stmt := range stmts {
		if _, err := s.ExecTimed(ctx, s.writer, stmt); err != nil {
			return err
		}
	}
	return nil
}
