// Package scan shells out to external scanning tools (Wi-Fi, Bluetooth,
// cellular), parses their textual output into detection records, and
// enriches each record with position, heading, and vendor before handing
// it to any registered post-processors.
package scan

import (
	"context"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/trashytalk/piwardrive-go/internal/oui"
	"github.com/trashytalk/piwardrive-go/internal/schedule"
	"github.com/trashytalk/piwardrive-go/internal/sensor"
)

// DefaultTimeoutEnv is the environment variable used to override the
// default per-scan process timeout. Unset or invalid falls back to 10s.
const DefaultTimeoutEnv = "PIWARDRIVE_SCAN_TIMEOUT"

// DefaultTimeout is used when no per-call timeout and no environment
// override are given.
func DefaultTimeout() time.Duration {
	if v := envDuration(DefaultTimeoutEnv); v > 0 {
		return v
	}
	return 10 * time.Second
}

func envDuration(key string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// CommandSpec is a configurable argument template for a scan tool.
// Template tokens equal to "{iface}" are substituted with the target
// interface name; an empty PrivilegePrefix runs the tool unprivileged.
type CommandSpec struct {
	Template        []string
	PrivilegePrefix string
}

// Build renders the template into an argv, with the privilege prefix (if
// any) prepended as argv[0].
func (c CommandSpec) Build(iface string) []string {
	if len(c.Template) == 0 {
		return nil
	}
	args := make([]string, 0, len(c.Template)+1)
	if c.PrivilegePrefix != "" {
		args = append(args, c.PrivilegePrefix)
	}
	for _, tok := range c.Template {
		if tok == "{iface}" {
			tok = iface
		}
		args = append(args, tok)
	}
	return args
}

// Options configures a single scan invocation.
type Options struct {
	Iface           string
	CommandOverride []string
	Timeout         time.Duration
	WithLocation    bool
}

func (o Options) timeoutOrDefault() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return DefaultTimeout()
}

// runCommand launches args, captures stdout, and kills the process if it
// outlives timeout. Non-zero exit, launch failure, and timeout are all
// logged and reported as ok=false; none of them propagate as an error.
func runCommand(ctx context.Context, logger *zap.Logger, args []string, timeout time.Duration) (string, bool) {
	if len(args) == 0 {
		return "", false
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, args[0], args[1:]...)
	out, err := cmd.Output()
	if cctx.Err() == context.DeadlineExceeded {
		if logger != nil {
			logger.Warn("scan: command timed out", zap.Strings("args", args), zap.Duration("timeout", timeout))
		}
		return "", false
	}
	if err != nil {
		if logger != nil {
			logger.Warn("scan: command failed", zap.Strings("args", args), zap.Error(err))
		}
		return "", false
	}
	return string(out), true
}

// gate consults the scheduler's rule evaluator for scanType; a nil
// evaluator permits every scan type.
func gate(rules *schedule.RuleEvaluator, scanType string) bool {
	if rules == nil {
		return true
	}
	return rules.Check(scanType, timeNow())
}

func timeNow() time.Time { return time.Now() }

// enrichment bundles the sensor/vendor lookups shared by every executor
// family. A nil field simply skips that enrichment (e.g. no GPS fitted).
type enrichment struct {
	gps         sensor.GPSReader
	orientation sensor.OrientationReader
	vendor      *oui.Table
}

// position returns the current fix if withLocation is set and a GPS
// reader is configured and reporting a valid position.
func (e enrichment) position(ctx context.Context, withLocation bool) (lat, lon float64, ok bool) {
	if !withLocation || e.gps == nil {
		return 0, 0, false
	}
	return e.gps.Position(ctx)
}

func (e enrichment) heading(ctx context.Context) (float64, bool) {
	if e.orientation == nil {
		return 0, false
	}
	return e.orientation.Heading(ctx)
}

func (e enrichment) vendorFor(mac string) string {
	if e.vendor == nil {
		return ""
	}
	return e.vendor.LookupOrEmpty(mac)
}

// splitNonEmpty splits s on sep and drops empty fields, trimming
// whitespace from each remaining one. Used by the comma/space grammars
// every scanner's textual output shares.
func splitNonEmpty(s, sep string) []string {
	raw := strings.Split(s, sep)
	out := make([]string, 0, len(raw))
	for _, f := range raw {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
