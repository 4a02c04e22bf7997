package models

import "time"

// Classification is the coarse category assigned to a fingerprinted network.
type Classification string

const (
	ClassHome           Classification = "home"
	ClassBusiness       Classification = "business"
	ClassPublic         Classification = "public"
	ClassIoTSensor      Classification = "iot_sensor"
	ClassSmartAppliance Classification = "smart_appliance"
	ClassGeneric        Classification = "generic"
)

// RiskLevel is the risk tier assigned during fingerprinting.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// NetworkFingerprint is the stable identity hash computed over a Wi-Fi
// network's canonical characteristic set.
type NetworkFingerprint struct {
	BSSID           string         `json:"bssid"`
	SSID            string         `json:"ssid"`
	Hash            string         `json:"fingerprint_hash"`
	Classification  Classification `json:"classification"`
	Risk            RiskLevel      `json:"risk_level"`
	Confidence      float64        `json:"confidence_score"`
	Characteristics map[string]any `json:"characteristics"`
	DetectedAt      time.Time      `json:"detected_at"`
}

// ActivityType enumerates the security heuristics in C9.
type ActivityType string

const (
	ActivityEvilTwin   ActivityType = "evil_twin"
	ActivityHiddenSSID ActivityType = "hidden_ssid"
	ActivityDeauth     ActivityType = "deauth_attack"
	ActivityRogueAP    ActivityType = "rogue_ap"
)

// Severity is shared by suspicious-activity rows and anomaly results.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// SuspiciousActivity is a single heuristic finding.
type SuspiciousActivity struct {
	ID          int64          `json:"id,omitempty"`
	SessionID   string         `json:"session_id"`
	Type        ActivityType   `json:"activity_type"`
	Severity    Severity       `json:"severity"`
	TargetBSSID string         `json:"target_bssid,omitempty"`
	TargetSSID  string         `json:"target_ssid,omitempty"`
	Evidence    map[string]any `json:"evidence,omitempty"`
	DetectedAt  time.Time      `json:"detected_at"`
	Lat         *float64       `json:"lat,omitempty"`
	Lon         *float64       `json:"lon,omitempty"`
	AnalystFlag bool           `json:"analyst_flag"`
}

// NetworkAnalytics is a per-BSSID, per-day aggregation row.
type NetworkAnalytics struct {
	BSSID             string  `json:"bssid"`
	Date              string  `json:"date" example:"2026-07-31"`
	TotalDetections   int     `json:"total_detections"`
	UniqueLocations   int     `json:"unique_locations"`
	SignalMin         int     `json:"signal_min"`
	SignalMax         int     `json:"signal_max"`
	SignalMean        float64 `json:"signal_mean"`
	SignalVariance    float64 `json:"signal_variance"`
	CoverageRadiusM   float64 `json:"coverage_radius_m"`
	MobilityScore     float64 `json:"mobility_score"`
	EncryptionChanges int     `json:"encryption_changes"`
	SSIDChanges       int     `json:"ssid_changes"`
	ChannelChanges    int     `json:"channel_changes"`
	SuspiciousScore   float64 `json:"suspicious_score"`
}

// APCacheEntry is the last-known location cache for a BSSID.
type APCacheEntry struct {
	BSSID      string    `json:"bssid"`
	SSID       string    `json:"ssid"`
	Encryption string    `json:"encryption,omitempty"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	LastSeen   time.Time `json:"last_seen"`
}

// WidgetPlacement is a single widget's position on the dashboard grid.
type WidgetPlacement struct {
	WidgetID string `json:"widget_id"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	W        int    `json:"w"`
	H        int    `json:"h"`
}

// DashboardSettings is the ordered widget layout persisted per operator.
type DashboardSettings struct {
	Widgets []string          `json:"widgets"`
	Layout  []WidgetPlacement `json:"layout"`
}

// GeofenceVertex is a single polygon vertex.
type GeofenceVertex struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Geofence is a named polygon with optional enter/exit messages.
type Geofence struct {
	Name         string           `json:"name"`
	Vertices     []GeofenceVertex `json:"vertices"`
	EnterMessage string           `json:"enter_message,omitempty"`
	ExitMessage  string           `json:"exit_message,omitempty"`
	Inside       bool             `json:"inside"`
}
