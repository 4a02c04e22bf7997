package scan

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/trashytalk/piwardrive-go/internal/oui"
	"github.com/trashytalk/piwardrive-go/internal/schedule"
	"github.com/trashytalk/piwardrive-go/internal/sensor"
	"github.com/trashytalk/piwardrive-go/pkg/models"
)

// WifiScanType is the rule evaluator key consulted before a Wi-Fi scan.
const WifiScanType = "wifi"

// WifiExecutor shells out to a Wi-Fi scanning tool (iwlist by default),
// parses the cell listing, and enriches each network with location,
// heading, and vendor before handing it off to post-processors.
type WifiExecutor struct {
	SessionID string
	Command   CommandSpec
	Rules     *schedule.RuleEvaluator
	Logger    *zap.Logger

	enrichment
	postProcessors []func(*models.WifiDetection)
}

// NewWifiExecutor builds an executor with the default `iwlist <iface>
// scan` command template.
func NewWifiExecutor(sessionID string, rules *schedule.RuleEvaluator, logger *zap.Logger, gps sensor.GPSReader, orient sensor.OrientationReader, vendor *oui.Table) *WifiExecutor {
	return &WifiExecutor{
		SessionID:  sessionID,
		Command:    CommandSpec{Template: []string{"iwlist", "{iface}", "scan"}},
		Rules:      rules,
		Logger:     logger,
		enrichment: enrichment{gps: gps, orientation: orient, vendor: vendor},
	}
}

// RegisterPostProcessor appends a hook invoked on every detection after
// enrichment, in registration order.
func (e *WifiExecutor) RegisterPostProcessor(fn func(*models.WifiDetection)) {
	e.postProcessors = append(e.postProcessors, fn)
}

// Scan runs the Wi-Fi scan synchronously.
func (e *WifiExecutor) Scan(ctx context.Context, opts Options) []models.WifiDetection {
	if !gate(e.Rules, WifiScanType) {
		return nil
	}

	args := opts.CommandOverride
	if len(args) == 0 {
		args = e.Command.Build(opts.Iface)
	}

	out, ok := runCommand(ctx, e.Logger, args, opts.timeoutOrDefault())
	if !ok {
		return nil
	}

	now := time.Now()
	cells := parseIwlistOutput(out)
	dets := make([]models.WifiDetection, 0, len(cells))
	for _, c := range cells {
		d, err := models.NewWifiDetection(e.SessionID, c.bssid, now)
		if err != nil {
			continue
		}
		d.SSID = c.ssid
		d.Channel = c.channel
		d.FrequencyMHz = c.frequencyMHz
		d.SignalDBM = c.signalDBM
		d.Encryption = c.encryption
		d.Vendor = e.vendorFor(c.bssid)

		if lat, lon, ok := e.position(ctx, opts.WithLocation); ok {
			d.GPS = &models.GPSFix{Lat: lat, Lon: lon}
		}
		if h, ok := e.heading(ctx); ok {
			d.Heading = &h
		}

		for _, pp := range e.postProcessors {
			pp(&d)
		}
		dets = append(dets, d)
	}
	return dets
}

// ScanAsync runs Scan in a goroutine and delivers the result on the
// returned channel, so the caller (typically the scheduler) is never
// blocked on the external process.
func (e *WifiExecutor) ScanAsync(ctx context.Context, opts Options) <-chan []models.WifiDetection {
	ch := make(chan []models.WifiDetection, 1)
	go func() {
		defer close(ch)
		ch <- e.Scan(ctx, opts)
	}()
	return ch
}

type iwlistCell struct {
	bssid        string
	ssid         string
	channel      int
	frequencyMHz int
	signalDBM    int
	encryption   string
}

var (
	reCellAddress = regexp.MustCompile(`(?i)Address:\s*([0-9A-F:]{17})`)
	reChannel     = regexp.MustCompile(`Channel:\s*(\d+)`)
	reFrequency   = regexp.MustCompile(`Frequency:\s*([\d.]+)\s*GHz`)
	reSignalLevel = regexp.MustCompile(`Signal level[=:]\s*(-?\d+)`)
	reESSID       = regexp.MustCompile(`ESSID:"(.*)"`)
	reEncryption  = regexp.MustCompile(`Encryption key:\s*(on|off)`)
	reIE          = regexp.MustCompile(`IE:\s*(.*WPA2?|.*WPA3)`)
)

// parseIwlistOutput parses the "Cell NN - Address: ..." block grammar
// emitted by `iwlist scan`, one iwlistCell per cell block.
func parseIwlistOutput(out string) []iwlistCell {
	var cells []iwlistCell
	var cur *iwlistCell

	flush := func() {
		if cur != nil && cur.bssid != "" {
			cells = append(cells, *cur)
		}
		cur = nil
	}

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Cell ") {
			flush()
			cur = &iwlistCell{}
		}
		if cur == nil {
			continue
		}
		if m := reCellAddress.FindStringSubmatch(line); m != nil {
			cur.bssid = strings.ToUpper(m[1])
		}
		if m := reChannel.FindStringSubmatch(line); m != nil {
			cur.channel, _ = strconv.Atoi(m[1])
		}
		if m := reFrequency.FindStringSubmatch(line); m != nil {
			if ghz, err := strconv.ParseFloat(m[1], 64); err == nil {
				cur.frequencyMHz = int(ghz * 1000)
			}
		}
		if m := reSignalLevel.FindStringSubmatch(line); m != nil {
			cur.signalDBM, _ = strconv.Atoi(m[1])
		}
		if m := reESSID.FindStringSubmatch(line); m != nil {
			cur.ssid = m[1]
		}
		if m := reEncryption.FindStringSubmatch(line); m != nil {
			if strings.EqualFold(m[1], "off") {
				cur.encryption = "OPEN"
			} else if cur.encryption == "" {
				cur.encryption = "WEP"
			}
		}
		if reIE.MatchString(line) {
			switch {
			case strings.Contains(line, "WPA3"):
				cur.encryption = "WPA3"
			case strings.Contains(line, "WPA2"):
				cur.encryption = "WPA2"
			case cur.encryption == "WEP":
				cur.encryption = "WPA"
			}
		}
	}
	flush()
	return cells
}
