package scan

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/trashytalk/piwardrive-go/internal/schedule"
	"github.com/trashytalk/piwardrive-go/internal/sensor"
	"github.com/trashytalk/piwardrive-go/pkg/models"
)

// CellularScanType is the rule evaluator key consulted before a cellular
// scan, matching the IMSI-catcher detection pass named in the gating
// rule.
const CellularScanType = "imsi"

// CellularExecutor shells out to a band/tower/IMSI query tool and parses
// its comma-separated band,cell_id,rssi lines.
type CellularExecutor struct {
	SessionID string
	Command   CommandSpec
	Rules     *schedule.RuleEvaluator
	Logger    *zap.Logger

	enrichment
	postProcessors []func(*models.CellularDetection)
}

// NewCellularExecutor builds an executor against cmd, which must emit
// one "band,cell_id,rssi" line per visible tower on stdout. No
// distribution-wide convention exists for this (cellular modems vary by
// vendor), so the template must be supplied by the caller rather than
// defaulted.
func NewCellularExecutor(sessionID string, cmd CommandSpec, rules *schedule.RuleEvaluator, logger *zap.Logger, gps sensor.GPSReader, orient sensor.OrientationReader) *CellularExecutor {
	return &CellularExecutor{
		SessionID:  sessionID,
		Command:    cmd,
		Rules:      rules,
		Logger:     logger,
		enrichment: enrichment{gps: gps, orientation: orient},
	}
}

// RegisterPostProcessor appends a hook invoked on every detection after
// enrichment, in registration order.
func (e *CellularExecutor) RegisterPostProcessor(fn func(*models.CellularDetection)) {
	e.postProcessors = append(e.postProcessors, fn)
}

// Scan runs the cellular scan synchronously.
func (e *CellularExecutor) Scan(ctx context.Context, opts Options) []models.CellularDetection {
	if !gate(e.Rules, CellularScanType) {
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
	towers := parseCellularOutput(out)
	dets := make([]models.CellularDetection, 0, len(towers))
	for _, t := range towers {
		d, err := models.NewCellularDetection(e.SessionID, t.cellID, now)
		if err != nil {
			continue
		}
		d.Band = t.band
		d.SignalDBM = t.signalDBM

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
func (e *CellularExecutor) ScanAsync(ctx context.Context, opts Options) <-chan []models.CellularDetection {
	ch := make(chan []models.CellularDetection, 1)
	go func() {
		defer close(ch)
		ch <- e.Scan(ctx, opts)
	}()
	return ch
}

type cellTower struct {
	band      string
	cellID    string
	signalDBM int
}

// parseCellularOutput parses one "band,cell_id,rssi" record per line,
// skipping malformed lines rather than aborting the whole scan.
func parseCellularOutput(out string) []cellTower {
	var towers []cellTower
	for _, line := range strings.Split(out, "\n") {
		fields := splitNonEmpty(line, ",")
		if len(fields) != 3 {
			continue
		}
		rssi, err := strconv.Atoi(fields[2])
		if err != nil {
			continue
		}
		towers = append(towers, cellTower{band: fields[0], cellID: fields[1], signalDBM: rssi})
	}
	return towers
}
