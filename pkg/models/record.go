// Package models defines the wire and storage types shared across the
// piwardrive core: detection records, derived analytics rows, and the
// small set of operator-facing settings objects.
package models

import (
	"errors"
	"time"
)

// ErrInvalidRecord is returned by a New* constructor when a record is
// missing a required identifier.
var ErrInvalidRecord = errors.New("invalid record")

// FixType is the GPS fix quality reported by a sensor adapter.
type FixType string

const (
	FixNone    FixType = "no_fix"
	Fix2D      FixType = "2d"
	Fix3D      FixType = "3d"
	FixDGPS    FixType = "dgps"
	FixUnknown FixType = "unknown"
)

// GPSFix is an optional position tag attached to a detection.
type GPSFix struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Altitude float64 `json:"altitude,omitempty"`
	Accuracy float64 `json:"accuracy,omitempty" example:"5.0"`
	FixType  FixType `json:"fix_type,omitempty" example:"3d"`
}

// Valid reports whether the fix carries a usable lat/lon pair.
// A zero-value GPSFix (no reading obtained) is not valid.
func (f *GPSFix) Valid() bool {
	return f != nil && !(f.Lat == 0 && f.Lon == 0)
}

// AdhocSession is the literal session id used when no scan session is active.
const AdhocSession = "adhoc"

// detectionBase holds the fields every detection kind shares.
type detectionBase struct {
	SessionID string    `json:"session_id" example:"adhoc"`
	Timestamp time.Time `json:"timestamp"`
	GPS       *GPSFix   `json:"gps,omitempty"`
	Heading   *float64  `json:"heading,omitempty" example:"180.0"`
}

// WifiDetection is a single Wi-Fi access point observation.
type WifiDetection struct {
	detectionBase
	BSSID        string    `json:"bssid" example:"AA:BB:CC:DD:EE:FF"`
	SSID         string    `json:"ssid"`
	Channel      int       `json:"channel,omitempty"`
	FrequencyMHz int       `json:"frequency_mhz,omitempty"`
	SignalDBM    int       `json:"signal_dbm,omitempty"`
	Encryption   string    `json:"encryption,omitempty" example:"WPA2"`
	Vendor       string    `json:"vendor,omitempty"`
	StationCount int       `json:"station_count,omitempty"`
	FirstSeen    time.Time `json:"first_seen,omitempty"`
	LastSeen     time.Time `json:"last_seen,omitempty"`
}

// NewWifiDetection validates and returns a Wi-Fi detection. BSSID is required;
// SSID may be empty (hidden network).
func NewWifiDetection(sessionID, bssid string, ts time.Time) (WifiDetection, error) {
	if bssid == "" {
		return WifiDetection{}, errInvalid("bssid")
	}
	if sessionID == "" {
		sessionID = AdhocSession
	}
	return WifiDetection{
		detectionBase: detectionBase{SessionID: sessionID, Timestamp: ts},
		BSSID:         bssid,
	}, nil
}

// BluetoothDetection is a single Bluetooth device observation.
type BluetoothDetection struct {
	detectionBase
	Address     string    `json:"address" example:"00:11:22:33:44:55"`
	Name        string    `json:"name,omitempty"`
	RSSIDBM     int       `json:"rssi_dbm,omitempty"`
	DeviceClass string    `json:"device_class,omitempty"`
	FirstSeen   time.Time `json:"first_seen,omitempty"`
	LastSeen    time.Time `json:"last_seen,omitempty"`
}

// NewBluetoothDetection validates and returns a Bluetooth detection.
func NewBluetoothDetection(sessionID, addr string, ts time.Time) (BluetoothDetection, error) {
	if addr == "" {
		return BluetoothDetection{}, errInvalid("address")
	}
	if sessionID == "" {
		sessionID = AdhocSession
	}
	return BluetoothDetection{
		detectionBase: detectionBase{SessionID: sessionID, Timestamp: ts},
		Address:       addr,
	}, nil
}

// CellularDetection is a single cell tower observation.
type CellularDetection struct {
	detectionBase
	CellID     string `json:"cell_id" example:"1A2B3C"`
	LAC        string `json:"lac,omitempty"`
	MCC        string `json:"mcc,omitempty"`
	MNC        string `json:"mnc,omitempty"`
	Technology string `json:"technology,omitempty" example:"LTE"`
	Band       string `json:"band,omitempty"`
	SignalDBM  int    `json:"signal_dbm,omitempty"`
}

// NewCellularDetection validates and returns a cellular detection.
func NewCellularDetection(sessionID, cellID string, ts time.Time) (CellularDetection, error) {
	if cellID == "" {
		return CellularDetection{}, errInvalid("cell_id")
	}
	if sessionID == "" {
		sessionID = AdhocSession
	}
	return CellularDetection{
		detectionBase: detectionBase{SessionID: sessionID, Timestamp: ts},
		CellID:        cellID,
	}, nil
}

// GPSTrackPoint is a single raw GPS fix recorded on the track log.
type GPSTrackPoint struct {
	Timestamp  time.Time `json:"timestamp"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	Altitude   float64   `json:"altitude,omitempty"`
	Accuracy   float64   `json:"accuracy,omitempty"`
	SpeedMPS   float64   `json:"speed_mps,omitempty"`
	HeadingDeg float64   `json:"heading_deg,omitempty"`
	Satellites int       `json:"satellites,omitempty"`
	HDOP       float64   `json:"hdop,omitempty"`
	VDOP       float64   `json:"vdop,omitempty"`
	PDOP       float64   `json:"pdop,omitempty"`
	FixType    FixType   `json:"fix_type,omitempty"`
}

// HealthSample is a single system health reading.
type HealthSample struct {
	Timestamp   time.Time `json:"timestamp"`
	CPUTempC    float64   `json:"cpu_temp_c,omitempty"`
	CPUPercent  float64   `json:"cpu_percent,omitempty"`
	MemPercent  float64   `json:"mem_percent,omitempty"`
	DiskPercent float64   `json:"disk_percent,omitempty"`
}

func errInvalid(field string) error {
	return &invalidRecordError{field: field}
}

type invalidRecordError struct{ field string }

func (e *invalidRecordError) Error() string {
	return "invalid record: missing " + e.field
}

func (e *invalidRecordError) Unwrap() error { return ErrInvalidRecord }
