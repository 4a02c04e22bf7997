package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration is a single versioned schema change. Versions must be applied
// in ascending order; Up runs inside a dedicated transaction.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// Migrate applies pending migrations in order, recording each as applied
// atomically with its DDL. Versions already present in schema_migrations
// are skipped. Versions in the database beyond the highest one known to
// this binary are logged by the caller but never block reads here.
func (s *Store) Migrate(ctx context.Context, migrations []Migration) error {
	if err := s.ensureMigrationsTable(ctx); err != nil {
		return err
	}

	for _, m := range migrations {
		applied, err := s.migrationApplied(ctx, m.Version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}
		if err := s.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
	}
	return nil
}

// AppliedVersions returns every version recorded in schema_migrations.
func (s *Store) AppliedVersions(ctx context.Context) ([]int, error) {
	rows, err := s.writer.QueryContext(ctx, `SELECT version FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (s *Store) ensureMigrationsTable(ctx context.Context) error {
	var err error
	s.migrateOnce.Do(func() {
		_, err = s.writer.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS schema_migrations (
				version     INTEGER PRIMARY KEY,
				description TEXT    NOT NULL,
				applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)
		`)
	})
	return err
}

func (s *Store) migrationApplied(ctx context.Context, version int) (bool, error) {
	var count int
	err := s.writer.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check migration %d: %w", version, err)
	}
	return count > 0, nil
}

func (s *Store) applyMigration(ctx context.Context, m Migration) error {
	return s.Tx(ctx, func(tx *sql.Tx) error {
		if err := m.Up(tx); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, description) VALUES (?, ?)`,
			m.Version, m.Description,
		)
		return err
	})
}

// CoreMigrations is the versioned sequence for the tables this package
// itself owns: detections, sessions, GPS tracks, fingerprints, suspicious
// activity, analytics, AP cache, health, users, dashboard settings, the
// detection archive tables, geofences, and webhooks.
var CoreMigrations = []Migration{
	{
		Version:     1,
		Description: "create scan_sessions and detection tables",
		Up: func(tx *sql.Tx) error {
			stmts := []string{
				`CREATE TABLE scan_sessions (
					id         TEXT PRIMARY KEY,
					started_at DATETIME NOT NULL,
					ended_at   DATETIME
				)`,
				`CREATE TABLE wifi_detections (
					id            INTEGER PRIMARY KEY AUTOINCREMENT,
					session_id    TEXT    NOT NULL,
					timestamp     TEXT    NOT NULL,
					bssid         TEXT    NOT NULL,
					ssid          TEXT,
					channel       INTEGER,
					frequency_mhz INTEGER,
					signal_dbm    INTEGER,
					encryption    TEXT,
					vendor        TEXT,
					station_count INTEGER,
					lat           REAL,
					lon           REAL,
					accuracy      REAL,
					heading       REAL
				)`,
				`CREATE INDEX idx_wifi_bssid ON wifi_detections(bssid)`,
				`CREATE INDEX idx_wifi_timestamp ON wifi_detections(timestamp)`,
				`CREATE TABLE bluetooth_detections (
					id          INTEGER PRIMARY KEY AUTOINCREMENT,
					session_id  TEXT    NOT NULL,
					timestamp   TEXT    NOT NULL,
					address     TEXT    NOT NULL,
					name        TEXT,
					rssi_dbm    INTEGER,
					device_class TEXT,
					lat         REAL,
					lon         REAL,
					accuracy    REAL,
					heading     REAL
				)`,
				`CREATE INDEX idx_bt_address ON bluetooth_detections(address)`,
				`CREATE TABLE cellular_detections (
					id          INTEGER PRIMARY KEY AUTOINCREMENT,
					session_id  TEXT    NOT NULL,
					timestamp   TEXT    NOT NULL,
					cell_id     TEXT    NOT NULL,
					lac         TEXT,
					mcc         TEXT,
					mnc         TEXT,
					technology  TEXT,
					band        TEXT,
					signal_dbm  INTEGER,
					lat         REAL,
					lon         REAL,
					accuracy    REAL,
					heading     REAL
				)`,
				`CREATE TABLE gps_tracks (
					id         INTEGER PRIMARY KEY AUTOINCREMENT,
					session_id TEXT    NOT NULL,
					timestamp  TEXT    NOT NULL,
					lat        REAL    NOT NULL,
					lon        REAL    NOT NULL,
					altitude   REAL,
					accuracy   REAL,
					speed_mps  REAL,
					heading    REAL,
					satellites INTEGER,
					hdop       REAL,
					vdop       REAL,
					pdop       REAL,
					fix_type   TEXT
				)`,
			}
			for _, stmt := range stmts {
				if _, err := tx.Exec(stmt); err != nil {
					return err
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "create analytics and health tables",
		Up: func(tx *sql.Tx) error {
			stmts := []string{
				`CREATE TABLE network_fingerprints (
					id               INTEGER PRIMARY KEY AUTOINCREMENT,
					bssid            TEXT    NOT NULL,
					ssid             TEXT,
					fingerprint_hash TEXT    NOT NULL,
					confidence_score REAL    NOT NULL,
					characteristics  TEXT    NOT NULL,
					classification   TEXT    NOT NULL,
					risk_level       TEXT    NOT NULL,
					detected_at      TEXT    NOT NULL
				)`,
				`CREATE INDEX idx_fingerprint_bssid ON network_fingerprints(bssid)`,
				`CREATE TABLE suspicious_activities (
					id            INTEGER PRIMARY KEY AUTOINCREMENT,
					session_id    TEXT    NOT NULL,
					activity_type TEXT    NOT NULL,
					severity      TEXT    NOT NULL,
					target_bssid  TEXT,
					target_ssid   TEXT,
					evidence      TEXT,
					detected_at   TEXT    NOT NULL,
					lat           REAL,
					lon           REAL,
					analyst_flag  INTEGER NOT NULL DEFAULT 0
				)`,
				`CREATE TABLE network_analytics (
					bssid              TEXT    NOT NULL,
					date               TEXT    NOT NULL,
					total_detections   INTEGER NOT NULL DEFAULT 0,
					unique_locations   INTEGER NOT NULL DEFAULT 0,
					signal_min         INTEGER,
					signal_max         INTEGER,
					signal_mean        REAL,
					signal_variance    REAL,
					coverage_radius_m  REAL,
					mobility_score     REAL,
					encryption_changes INTEGER NOT NULL DEFAULT 0,
					ssid_changes       INTEGER NOT NULL DEFAULT 0,
					channel_changes    INTEGER NOT NULL DEFAULT 0,
					suspicious_score   REAL    NOT NULL DEFAULT 0,
					PRIMARY KEY (bssid, date)
				)`,
				`CREATE TABLE ap_cache (
					bssid      TEXT PRIMARY KEY,
					ssid       TEXT,
					encryption TEXT,
					lat        REAL,
					lon        REAL,
					last_seen  TEXT NOT NULL
				)`,
				`CREATE TABLE health_records (
					id           INTEGER PRIMARY KEY AUTOINCREMENT,
					timestamp    TEXT    NOT NULL,
					cpu_temp_c   REAL,
					cpu_percent  REAL,
					mem_percent  REAL,
					disk_percent REAL
				)`,
				`CREATE INDEX idx_health_timestamp ON health_records(timestamp)`,
			}
			for _, stmt := range stmts {
				if _, err := tx.Exec(stmt); err != nil {
					return err
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "create users, dashboard settings, and archive tables",
		Up: func(tx *sql.Tx) error {
			stmts := []string{
				`CREATE TABLE users (
					id            TEXT PRIMARY KEY,
					username      TEXT NOT NULL UNIQUE,
					password_hash TEXT NOT NULL,
					token_hash    TEXT UNIQUE,
					role          TEXT NOT NULL DEFAULT 'viewer',
					created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					last_login    DATETIME,
					disabled      INTEGER NOT NULL DEFAULT 0
				)`,
				`CREATE TABLE dashboard_settings (
					id      INTEGER PRIMARY KEY CHECK (id = 1),
					widgets TEXT NOT NULL DEFAULT '[]',
					layout  TEXT NOT NULL DEFAULT '[]'
				)`,
				`CREATE TABLE wifi_detections_archive (
					id INTEGER PRIMARY KEY, session_id TEXT, timestamp TEXT, bssid TEXT,
					ssid TEXT, channel INTEGER, frequency_mhz INTEGER, signal_dbm INTEGER,
					encryption TEXT, vendor TEXT, station_count INTEGER,
					lat REAL, lon REAL, accuracy REAL, heading REAL
				)`,
				`CREATE TABLE bluetooth_detections_archive (
					id INTEGER PRIMARY KEY, session_id TEXT, timestamp TEXT, address TEXT,
					name TEXT, rssi_dbm INTEGER, device_class TEXT,
					lat REAL, lon REAL, accuracy REAL, heading REAL
				)`,
				`CREATE TABLE cellular_detections_archive (
					id INTEGER PRIMARY KEY, session_id TEXT, timestamp TEXT, cell_id TEXT,
					lac TEXT, mcc TEXT, mnc TEXT, technology TEXT, band TEXT, signal_dbm INTEGER,
					lat REAL, lon REAL, accuracy REAL, heading REAL
				)`,
			}
			for _, stmt := range stmts {
				if _, err := tx.Exec(stmt); err != nil {
					return err
				}
			}
			return nil
		},
	},
	{
		Version:     4,
		Description: "create geofences and webhooks tables",
		Up: func(tx *sql.Tx) error {
			stmts := []string{
				`CREATE TABLE geofences (
					name          TEXT PRIMARY KEY,
					vertices      TEXT NOT NULL,
					enter_message TEXT,
					exit_message  TEXT
				)`,
				`CREATE TABLE webhooks (
					url TEXT PRIMARY KEY
				)`,
			}
			for _, stmt := range stmts {
				if _, err := tx.Exec(stmt); err != nil {
					return err
				}
			}
			return nil
		},
	},
}
