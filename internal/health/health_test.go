package health

import (
	"context"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/host"
)

func TestSample_PopulatesTimestampAndMetrics(t *testing.T) {
	s := NewSampler("/", nil)
	h := s.Sample(context.Background())

	if h.Timestamp.IsZero() {
		t.Error("expected non-zero timestamp")
	}
	if h.CPUPercent < 0 || h.CPUPercent > 100 {
		t.Errorf("CPUPercent = %f, want 0-100", h.CPUPercent)
	}
	if h.MemPercent < 0 || h.MemPercent > 100 {
		t.Errorf("MemPercent = %f, want 0-100", h.MemPercent)
	}
}

func TestPickCPUTemp_PrefersCPUSensorOverFirst(t *testing.T) {
	temps := []host.TemperatureStat{
		{SensorKey: "acpi_fan", Temperature: 10},
		{SensorKey: "coretemp_package_id_0", Temperature: 55},
		{SensorKey: "nvme", Temperature: 40},
	}
	got := pickCPUTemp(temps)
	if got != 55 {
		t.Errorf("pickCPUTemp = %f, want 55 (coretemp sensor)", got)
	}
}

func TestPickCPUTemp_FallsBackToFirstWhenNoCPUSensor(t *testing.T) {
	temps := []host.TemperatureStat{
		{SensorKey: "nvme", Temperature: 40},
		{SensorKey: "wifi_chip", Temperature: 35},
	}
	got := pickCPUTemp(temps)
	if got != 40 {
		t.Errorf("pickCPUTemp = %f, want 40 (first sensor)", got)
	}
}

func TestSample_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	s := NewSampler("/", nil)
	// Should not panic even though ctx is already expired.
	_ = s.Sample(ctx)
}
