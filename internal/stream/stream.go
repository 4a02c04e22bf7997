// Package stream accepts detection batches from the scan executors, runs
// per-source processing (fingerprinting and security heuristics for
// Wi-Fi), and fans the result out to rate-limited, non-blocking
// subscriber queues.
package stream

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/trashytalk/piwardrive-go/internal/analytics"
	"github.com/trashytalk/piwardrive-go/pkg/models"
)

// Source identifies which scan executor family a batch came from.
type Source string

const (
	SourceWifi      Source = "wifi"
	SourceBluetooth Source = "bluetooth"
	SourceCellular  Source = "cellular"
)

// DefaultIngestCapacity is the ingest queue's default bound; the oldest
// pending batch is dropped to make room for a new one once full.
const DefaultIngestCapacity = 1000

// DefaultSubscriberCapacity is the default per-subscriber fan-out bound.
const DefaultSubscriberCapacity = 100

// DefaultRateLimit is the default dispatch rate in messages/second.
const DefaultRateLimit = 20.0

// WifiResult is what Wi-Fi batches carry on broadcast: the enriched
// detections alongside the fingerprints and suspicious-activity
// findings computed over the same batch.
type WifiResult struct {
	Detections   []models.WifiDetection      `json:"detections"`
	Fingerprints []models.NetworkFingerprint `json:"fingerprints"`
	Suspicious   []models.SuspiciousActivity `json:"suspicious"`
}

// Message is the broadcast envelope every subscriber receives.
type Message struct {
	Timestamp time.Time        `json:"timestamp"`
	Source    Source           `json:"source"`
	Records   any              `json:"records"`
	Stats     map[string]int64 `json:"stats"`
}

type batch struct {
	source  Source
	records any
}

// Subscriber is a registered broadcast target. Callers read from C
// until it closes (on Unsubscribe or Processor shutdown).
type Subscriber struct {
	C    <-chan Message
	name string
	ch   chan Message
}

// Processor is the C8 stream processor: one ingest queue, per-source
// processing, and fan-out to registered subscribers.
type Processor struct {
	logger  *zap.Logger
	limiter *rate.Limiter

	ingestCap     int
	subscriberCap int

	mu     sync.Mutex
	ingest []batch

	subMu sync.RWMutex
	subs  map[*Subscriber]struct{}

	statsMu sync.Mutex
	stats   map[string]int64

	notify chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewProcessor creates a processor. ingestCap/subscriberCap/rateLimit
// fall back to their package defaults when <= 0.
func NewProcessor(ingestCap, subscriberCap int, rateLimit float64, logger *zap.Logger) *Processor {
	if ingestCap <= 0 {
		ingestCap = DefaultIngestCapacity
	}
	if subscriberCap <= 0 {
		subscriberCap = DefaultSubscriberCapacity
	}
	if rateLimit <= 0 {
		rateLimit = DefaultRateLimit
	}
	return &Processor{
		logger:        logger,
		limiter:       rate.NewLimiter(rate.Limit(rateLimit), 1),
		ingestCap:     ingestCap,
		subscriberCap: subscriberCap,
		subs:          make(map[*Subscriber]struct{}),
		stats:         make(map[string]int64),
		notify:        make(chan struct{}, 1),
	}
}

// Start launches the dispatch loop in its own goroutine and returns at
// once; the loop runs until Stop or until ctx is cancelled.
func (p *Processor) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	go p.run()
}

// Stop halts the dispatch loop and closes every subscriber channel.
func (p *Processor) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.subMu.Lock()
	for s := range p.subs {
		close(s.ch)
	}
	p.subs = make(map[*Subscriber]struct{})
	p.subMu.Unlock()
}

// PublishWifi enqueues a Wi-Fi detection batch.
func (p *Processor) PublishWifi(records []models.WifiDetection) {
	p.enqueue(batch{source: SourceWifi, records: records})
}

// PublishBluetooth enqueues a Bluetooth detection batch.
func (p *Processor) PublishBluetooth(records []models.BluetoothDetection) {
	p.enqueue(batch{source: SourceBluetooth, records: records})
}

// PublishCellular enqueues a cellular detection batch.
func (p *Processor) PublishCellular(records []models.CellularDetection) {
	p.enqueue(batch{source: SourceCellular, records: records})
}

// enqueue appends b to the ingest queue, dropping the oldest pending
// batch first if the queue is already at capacity.
func (p *Processor) enqueue(b batch) {
	p.mu.Lock()
	if len(p.ingest) >= p.ingestCap {
		p.ingest = p.ingest[1:]
	}
	p.ingest = append(p.ingest, b)
	p.mu.Unlock()

	select {
	case p.notify <- struct{}{}:
	default:
	}
}

func (p *Processor) dequeue() (batch, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.ingest) == 0 {
		return batch{}, false
	}
	b := p.ingest[0]
	p.ingest = p.ingest[1:]
	return b, true
}

func (p *Processor) run() {
	defer p.wg.Done()
	for {
		b, ok := p.dequeue()
		if !ok {
			select {
			case <-p.ctx.Done():
				return
			case <-p.notify:
				continue
			}
		}

		if err := p.limiter.Wait(p.ctx); err != nil {
			return
		}
		p.dispatch(b)
	}
}

func (p *Processor) dispatch(b batch) {
	now := time.Now()
	var payload any = b.records
	count := 0

	switch b.source {
	case SourceWifi:
		dets := b.records.([]models.WifiDetection)
		count = len(dets)
		payload = p.processWifi(dets, now)
	case SourceBluetooth:
		dets := b.records.([]models.BluetoothDetection)
		count = len(dets)
	case SourceCellular:
		dets := b.records.([]models.CellularDetection)
		count = len(dets)
	}

	p.statsMu.Lock()
	p.stats[string(b.source)] += int64(count)
	stats := make(map[string]int64, len(p.stats))
	for k, v := range p.stats {
		stats[k] = v
	}
	p.statsMu.Unlock()

	p.broadcast(Message{Timestamp: now, Source: b.source, Records: payload, Stats: stats})
}

// processWifi runs fingerprinting and the suspicious-activity
// heuristics over a batch before it is broadcast.
func (p *Processor) processWifi(dets []models.WifiDetection, now time.Time) WifiResult {
	result := WifiResult{Detections: dets}

	secRecords := make([]analytics.SecurityRecord, 0, len(dets))
	for _, d := range dets {
		result.Fingerprints = append(result.Fingerprints, analytics.Fingerprint(analytics.WifiRecord{
			BSSID:        d.BSSID,
			SSID:         d.SSID,
			VendorName:   d.Vendor,
			Encryption:   d.Encryption,
			Channel:      d.Channel,
			FrequencyMHz: d.FrequencyMHz,
		}, now))
		secRecords = append(secRecords, analytics.SecurityRecord{
			SessionID:    d.SessionID,
			BSSID:        d.BSSID,
			SSID:         d.SSID,
			Encryption:   d.Encryption,
			Vendor:       d.Vendor,
			StationCount: d.StationCount,
			SignalDBM:    d.SignalDBM,
		})
	}
	result.Suspicious = analytics.DetectSuspicious(secRecords, now)
	return result
}

// broadcast fans msg out to every subscriber via a non-blocking send; a
// subscriber whose queue is full simply misses this message.
func (p *Processor) broadcast(msg Message) {
	p.subMu.RLock()
	defer p.subMu.RUnlock()
	for s := range p.subs {
		select {
		case s.ch <- msg:
		default:
			if p.logger != nil {
				p.logger.Warn("stream: subscriber queue full, dropping message", zap.String("subscriber", s.name))
			}
		}
	}
}

// Subscribe registers a new fan-out target.
func (p *Processor) Subscribe(name string) *Subscriber {
	ch := make(chan Message, p.subscriberCap)
	s := &Subscriber{C: ch, name: name, ch: ch}
	p.subMu.Lock()
	p.subs[s] = struct{}{}
	p.subMu.Unlock()
	return s
}

// Unsubscribe removes and closes a subscriber's channel.
func (p *Processor) Unsubscribe(s *Subscriber) {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	if _, ok := p.subs[s]; ok {
		delete(p.subs, s)
		close(s.ch)
	}
}
