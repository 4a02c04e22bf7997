package remotesync

import (
	"encoding/json"
	"io"
	"time"

	"github.com/trashytalk/piwardrive-go/pkg/models"
)

type recordBatch struct {
	Timestamp   string  `json:"timestamp"`
	CPUTempC    float64 `json:"cpu_temp_c,omitempty"`
	CPUPercent  float64 `json:"cpu_percent"`
	MemPercent  float64 `json:"mem_percent"`
	DiskPercent float64 `json:"disk_percent"`
}

func writeJSONRecords(w io.Writer, records []models.HealthSample) error {
	batch := make([]recordBatch, 0, len(records))
	for _, r := range records {
		batch = append(batch, recordBatch{
			Timestamp:   r.Timestamp.UTC().Format(time.RFC3339Nano),
			CPUTempC:    r.CPUTempC,
			CPUPercent:  r.CPUPercent,
			MemPercent:  r.MemPercent,
			DiskPercent: r.DiskPercent,
		})
	}
	return json.NewEncoder(w).Encode(batch)
}
