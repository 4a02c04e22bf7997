package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/trashytalk/piwardrive-go/pkg/models"
)

// Defaults per the persistence layer contract.
const (
	DefaultBatchSize     = 128
	DefaultFlushInterval = 2 * time.Second
	maxRetries           = 3
)

// BatchWriter buffers detection rows per kind and flushes them as a single
// multi-row INSERT once the buffer reaches BatchSize or FlushInterval
// elapses, whichever comes first. Flush is also forced on Close.
type BatchWriter struct {
	store    *Store
	size     int
	interval time.Duration

	mu   sync.Mutex
	wifi []models.WifiDetection
	bt   []models.BluetoothDetection
	cell []models.CellularDetection

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewBatchWriter creates a BatchWriter bound to store and starts its
// background flush-interval loop.
func NewBatchWriter(store *Store, size int, interval time.Duration) *BatchWriter {
	b := &BatchWriter{store: store, size: size, interval: interval, stop: make(chan struct{})}
	b.wg.Add(1)
	go b.loop()
	return b
}

func (b *BatchWriter) loop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			b.Flush(context.Background())
		}
	}
}

// AddWifi enqueues a Wi-Fi detection, flushing immediately if the buffer is full.
func (b *BatchWriter) AddWifi(ctx context.Context, d models.WifiDetection) error {
	b.mu.Lock()
	b.wifi = append(b.wifi, d)
	full := len(b.wifi) >= b.size
	b.mu.Unlock()
	if full {
		return b.flushWifi(ctx)
	}
	return nil
}

// AddBluetooth enqueues a Bluetooth detection, flushing immediately if the buffer is full.
func (b *BatchWriter) AddBluetooth(ctx context.Context, d models.BluetoothDetection) error {
	b.mu.Lock()
	b.bt = append(b.bt, d)
	full := len(b.bt) >= b.size
	b.mu.Unlock()
	if full {
		return b.flushBluetooth(ctx)
	}
	return nil
}

// AddCellular enqueues a cellular detection, flushing immediately if the buffer is full.
func (b *BatchWriter) AddCellular(ctx context.Context, d models.CellularDetection) error {
	b.mu.Lock()
	b.cell = append(b.cell, d)
	full := len(b.cell) >= b.size
	b.mu.Unlock()
	if full {
		return b.flushCellular(ctx)
	}
	return nil
}

// Flush forces all buffers to be written immediately.
func (b *BatchWriter) Flush(ctx context.Context) {
	_ = b.flushWifi(ctx)
	_ = b.flushBluetooth(ctx)
	_ = b.flushCellular(ctx)
}

// Stop halts the interval loop and performs a final flush.
func (b *BatchWriter) Stop() {
	close(b.stop)
	b.wg.Wait()
	b.Flush(context.Background())
}

func (b *BatchWriter) flushWifi(ctx context.Context) error {
	b.mu.Lock()
	rows := b.wifi
	b.wifi = nil
	b.mu.Unlock()
	if len(rows) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO wifi_detections
		(session_id, timestamp, bssid, ssid, channel, frequency_mhz, signal_dbm, encryption, vendor, station_count, lat, lon, accuracy, heading) VALUES `)
	args := make([]any, 0, len(rows)*14)
	for i, r := range rows {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?,?,?,?,?,?,?,?,?,?,?,?,?,?)")
		var lat, lon, acc, hdg any
		if r.GPS.Valid() {
			lat, lon, acc = r.GPS.Lat, r.GPS.Lon, r.GPS.Accuracy
		}
		if r.Heading != nil {
			hdg = *r.Heading
		}
		args = append(args, r.SessionID, r.Timestamp.UTC().Format(time.RFC3339Nano), r.BSSID, r.SSID,
			r.Channel, r.FrequencyMHz, r.SignalDBM, r.Encryption, r.Vendor, r.StationCount, lat, lon, acc, hdg)
	}
	return b.execWithRetry(ctx, sb.String(), args)
}

func (b *BatchWriter) flushBluetooth(ctx context.Context) error {
	b.mu.Lock()
	rows := b.bt
	b.bt = nil
	b.mu.Unlock()
	if len(rows) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO bluetooth_detections
		(session_id, timestamp, address, name, rssi_dbm, device_class, lat, lon, accuracy, heading) VALUES `)
	args := make([]any, 0, len(rows)*10)
	for i, r := range rows {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?,?,?,?,?,?,?,?,?,?)")
		var lat, lon, acc, hdg any
		if r.GPS.Valid() {
			lat, lon, acc = r.GPS.Lat, r.GPS.Lon, r.GPS.Accuracy
		}
		if r.Heading != nil {
			hdg = *r.Heading
		}
		args = append(args, r.SessionID, r.Timestamp.UTC().Format(time.RFC3339Nano), r.Address, r.Name,
			r.RSSIDBM, r.DeviceClass, lat, lon, acc, hdg)
	}
	return b.execWithRetry(ctx, sb.String(), args)
}

func (b *BatchWriter) flushCellular(ctx context.Context) error {
	b.mu.Lock()
	rows := b.cell
	b.cell = nil
	b.mu.Unlock()
	if len(rows) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO cellular_detections
		(session_id, timestamp, cell_id, lac, mcc, mnc, technology, band, signal_dbm, lat, lon, accuracy, heading) VALUES `)
	args := make([]any, 0, len(rows)*13)
	for i, r := range rows {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?,?,?,?,?,?,?,?,?,?,?,?,?)")
		var lat, lon, acc, hdg any
		if r.GPS.Valid() {
			lat, lon, acc = r.GPS.Lat, r.GPS.Lon, r.GPS.Accuracy
		}
		if r.Heading != nil {
			hdg = *r.Heading
		}
		args = append(args, r.SessionID, r.Timestamp.UTC().Format(time.RFC3339Nano), r.CellID, r.LAC,
			r.MCC, r.MNC, r.Technology, r.Band, r.SignalDBM, lat, lon, acc, hdg)
	}
	return b.execWithRetry(ctx, sb.String(), args)
}

// execWithRetry runs a write with capped exponential backoff on transient
// errors. Constraint violations are surfaced immediately as ErrConflict.
func (b *BatchWriter) execWithRetry(ctx context.Context, query string, args []any) error {
	backoff := 50 * time.Millisecond
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		start := time.Now()
		_, err := b.store.writer.ExecContext(ctx, query, args...)
		b.store.metrics.Observe("INSERT", time.Since(start))
		if err == nil {
			return nil
		}
		if isConstraintError(err) {
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("batch insert failed after %d attempts: %w", maxRetries, lastErr)
}

func isConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "constraint failed")
}
