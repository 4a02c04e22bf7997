package scan

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/trashytalk/piwardrive-go/internal/oui"
	"github.com/trashytalk/piwardrive-go/internal/schedule"
	"github.com/trashytalk/piwardrive-go/internal/sensor"
	"github.com/trashytalk/piwardrive-go/pkg/models"
)

// BluetoothScanType is the rule evaluator key consulted before a
// Bluetooth scan.
const BluetoothScanType = "bluetooth"

// BluetoothExecutor shells out to a Bluetooth controller tool
// (bluetoothctl by default) and parses its device-discovery lines.
type BluetoothExecutor struct {
	SessionID string
	Command   CommandSpec
	Rules     *schedule.RuleEvaluator
	Logger    *zap.Logger

	enrichment
	postProcessors []func(*models.BluetoothDetection)
}

// NewBluetoothExecutor builds an executor with the default
// `bluetoothctl scan on` command template.
func NewBluetoothExecutor(sessionID string, rules *schedule.RuleEvaluator, logger *zap.Logger, gps sensor.GPSReader, orient sensor.OrientationReader, vendor *oui.Table) *BluetoothExecutor {
	return &BluetoothExecutor{
		SessionID:  sessionID,
		Command:    CommandSpec{Template: []string{"bluetoothctl", "scan", "on"}},
		Rules:      rules,
		Logger:     logger,
		enrichment: enrichment{gps: gps, orientation: orient, vendor: vendor},
	}
}

// RegisterPostProcessor appends a hook invoked on every detection after
// enrichment, in registration order.
func (e *BluetoothExecutor) RegisterPostProcessor(fn func(*models.BluetoothDetection)) {
	e.postProcessors = append(e.postProcessors, fn)
}

// Scan runs the Bluetooth scan synchronously.
func (e *BluetoothExecutor) Scan(ctx context.Context, opts Options) []models.BluetoothDetection {
	if !gate(e.Rules, BluetoothScanType) {
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
	devices := parseBluetoothctlOutput(out)
	dets := make([]models.BluetoothDetection, 0, len(devices))
	for _, dev := range devices {
		d, err := models.NewBluetoothDetection(e.SessionID, dev.address, now)
		if err != nil {
			continue
		}
		d.Name = dev.name
		d.Vendor = e.vendorFor(dev.address)

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
// returned channel.
func (e *BluetoothExecutor) ScanAsync(ctx context.Context, opts Options) <-chan []models.BluetoothDetection {
	ch := make(chan []models.BluetoothDetection, 1)
	go func() {
		defer close(ch)
		ch <- e.Scan(ctx, opts)
	}()
	return ch
}

type btDevice struct {
	address string
	name    string
}

// reNewDevice matches bluetoothctl's "[NEW] Device AA:BB:CC:DD:EE:FF Name"
// discovery lines; CHG lines (property changes on already-seen devices)
// are intentionally not matched since they carry no address+name pair.
var reNewDevice = regexp.MustCompile(`^\[NEW\]\s+Device\s+([0-9A-Fa-f:]{17})\s+(.*)$`)

// parseBluetoothctlOutput parses bluetoothctl's streamed discovery
// output, deduplicating repeated sightings of the same address and
// keeping the last-seen name for each.
func parseBluetoothctlOutput(out string) []btDevice {
	seen := make(map[string]int)
	var devices []btDevice
	for _, line := range strings.Split(out, "\n") {
		m := reNewDevice.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		addr := strings.ToUpper(m[1])
		name := strings.TrimSpace(m[2])
		if i, ok := seen[addr]; ok {
			devices[i].name = name
			continue
		}
		seen[addr] = len(devices)
		devices = append(devices, btDevice{address: addr, name: name})
	}
	return devices
}
