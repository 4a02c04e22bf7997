// Package config loads and serves the application's runtime
// configuration: scan/poll intervals, log rotation, tile source, sync
// and webhook settings, and per-scan-type gating rules. Values come from
// environment variables, a JSON/TOML file, and built-in defaults, in that
// order of precedence, via Viper; no command-line flags are bound.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

// Config mirrors the recognized configuration keys. Field names map to
// snake_case keys via mapstructure tags so Viper can unmarshal both the
// config file and environment overrides into the same struct.
type Config struct {
	MapPollAPs    int `mapstructure:"map_poll_aps"`
	MapPollBT     int `mapstructure:"map_poll_bt"`
	MapPollGPS    int `mapstructure:"map_poll_gps"`
	MapPollGPSMax int `mapstructure:"map_poll_gps_max"`

	HealthPollInterval int `mapstructure:"health_poll_interval"`

	LogRotateInterval  int  `mapstructure:"log_rotate_interval"`
	LogRotateArchives  int  `mapstructure:"log_rotate_archives"`
	CleanupRotatedLogs bool `mapstructure:"cleanup_rotated_logs"`

	MapUseOffline   bool   `mapstructure:"map_use_offline"`
	OfflineTilePath string `mapstructure:"offline_tile_path"`
	MapAutoPrefetch bool   `mapstructure:"map_auto_prefetch"`

	MapClusterAPs      bool `mapstructure:"map_cluster_aps"`
	MapClusterCapacity int  `mapstructure:"map_cluster_capacity"`

	TileMaintenanceInterval int `mapstructure:"tile_maintenance_interval"`
	RoutePrefetchInterval   int `mapstructure:"route_prefetch_interval"`

	RemoteSyncURL     string `mapstructure:"remote_sync_url"`
	RemoteSyncToken   string `mapstructure:"remote_sync_token"`
	RemoteSyncTimeout int    `mapstructure:"remote_sync_timeout"`
	RemoteSyncRetries int    `mapstructure:"remote_sync_retries"`

	NotificationWebhooks []string `mapstructure:"notification_webhooks"`

	ScanRules map[string]ScanRule `mapstructure:"scan_rules"`

	ReportsDir string `mapstructure:"reports_dir"`
}

// ScanRule is the wire shape of one entry in scan_rules, matching
// schedule.Rule's fields under their config-file spelling.
type ScanRule struct {
	Enabled   bool     `mapstructure:"enabled"`
	StartTime string   `mapstructure:"start_time"`
	EndTime   string   `mapstructure:"end_time"`
	Days      []string `mapstructure:"days"`
}

// Defaults applies the documented defaults before a file or environment
// value may override them.
func Defaults(v *viper.Viper) {
	v.SetDefault("map_poll_aps", 10)
	v.SetDefault("map_poll_bt", 10)
	v.SetDefault("map_poll_gps", 1)
	v.SetDefault("map_poll_gps_max", 30)
	v.SetDefault("health_poll_interval", 30)
	v.SetDefault("log_rotate_interval", 86400)
	v.SetDefault("log_rotate_archives", 5)
	v.SetDefault("cleanup_rotated_logs", true)
	v.SetDefault("map_use_offline", false)
	v.SetDefault("map_auto_prefetch", false)
	v.SetDefault("map_cluster_aps", true)
	v.SetDefault("map_cluster_capacity", 8)
	v.SetDefault("tile_maintenance_interval", 3600)
	v.SetDefault("route_prefetch_interval", 60)
	v.SetDefault("remote_sync_timeout", 30)
	v.SetDefault("remote_sync_retries", 3)
	v.SetDefault("reports_dir", "reports")
}

// envOverrides are the PW_* environment variables that map onto config
// keys under a different name than AutomaticEnv's default transform.
var envOverrides = map[string]string{
	"PW_DB_PATH":           "db_path",
	"PW_GPSD_HOST":         "gpsd_host",
	"PW_GPSD_PORT":         "gpsd_port",
	"PW_API_USER":          "api_user",
	"PW_API_PASSWORD_HASH": "api_password_hash",
	"PW_CORS_ORIGINS":      "cors_origins",
	"PW_DEVICES":           "devices",
	"PW_WEBUI_DIST":        "webui_dist",
	"SIGINT_EXPORT_DIR":    "export_dir",
	"SIGINT_OUI_PATH":      "oui_path",
}

// New builds a Viper instance with the precedence order env > file >
// defaults. path, if non-empty, is read as the config file; a missing
// file is not an error (defaults and env still apply).
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	Defaults(v)

	for env, key := range envOverrides {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("config: bind env %s: %w", env, err)
		}
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config: read %q: %w", path, err)
			}
		}
	}

	return v, nil
}

// Load unmarshals v into a Config struct.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}
