// Package health samples system resource usage (CPU, memory, disk, and
// temperature) for the /status, /cpu, /ram, and /storage endpoints.
package health

import (
	"context"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"github.com/trashytalk/piwardrive-go/pkg/models"
)

// Sampler reads current resource usage via gopsutil.
type Sampler struct {
	// DiskPath is the mount point to report disk usage for.
	DiskPath string
	logger   *zap.Logger
}

// NewSampler creates a Sampler reporting disk usage for diskPath (default
// "/" if empty).
func NewSampler(diskPath string, logger *zap.Logger) *Sampler {
	if diskPath == "" {
		diskPath = "/"
	}
	return &Sampler{DiskPath: diskPath, logger: logger}
}

// Sample takes one reading of CPU percent (over a 200ms window), memory
// percent, disk percent, and CPU temperature (best-effort; 0 if no sensor
// is available).
func (s *Sampler) Sample(ctx context.Context) models.HealthSample {
	h := models.HealthSample{Timestamp: time.Now()}

	if pct, err := cpu.PercentWithContext(ctx, 200*time.Millisecond, false); err != nil {
		s.logWarn("cpu percent", err)
	} else if len(pct) > 0 {
		h.CPUPercent = pct[0]
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		s.logWarn("memory", err)
	} else {
		h.MemPercent = vm.UsedPercent
	}

	if du, err := disk.UsageWithContext(ctx, s.DiskPath); err != nil {
		s.logWarn("disk usage", err)
	} else {
		h.DiskPercent = du.UsedPercent
	}

	if temps, err := host.SensorsTemperaturesWithContext(ctx); err != nil {
		s.logWarn("sensors", err)
	} else if len(temps) > 0 {
		h.CPUTempC = pickCPUTemp(temps)
	}

	return h
}

// pickCPUTemp prefers a sensor key that looks CPU-related; falls back to
// the first reported sensor.
func pickCPUTemp(temps []host.TemperatureStat) float64 {
	for _, t := range temps {
		if looksLikeCPUSensor(t.SensorKey) {
			return t.Temperature
		}
	}
	return temps[0].Temperature
}

func looksLikeCPUSensor(key string) bool {
	lower := strings.ToLower(key)
	for _, needle := range []string{"cpu", "core", "package", "soc"} {
		if strings.Contains(lower, needle) {
			return true
		}
	}
	return false
}

func (s *Sampler) logWarn(what string, err error) {
	if s.logger != nil {
		s.logger.Warn("health: sample failed", zap.String("metric", what), zap.Error(err))
	}
}
