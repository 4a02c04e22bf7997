package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultSSEInterval is how often the periodic aps/status/history feeds
// recompute and emit a new event, mirroring the WebSocket feeds' cadence.
const DefaultSSEInterval = 5 * time.Second

// sseEvent is the envelope every SSE feed emits, matching the
// WebSocket hub's Message shape so both transports carry the same
// seq/timestamp/errors/load_time bookkeeping.
type sseEvent struct {
	Seq        uint64 `json:"seq"`
	Timestamp  string `json:"timestamp"`
	Data       any    `json:"data"`
	Errors     int64  `json:"errors"`
	LoadTimeMS int64  `json:"load_time_ms,omitempty"`
}

// writeSSE encodes ev as a single "data: ..." SSE frame and flushes it.
// It returns false if encoding or the write failed, signaling the caller
// to stop the feed. Flush support is checked earlier, by sseHeaders.
func writeSSE(w http.ResponseWriter, flusher http.Flusher, ev sseEvent) bool {
	payload, err := json.Marshal(ev)
	if err != nil {
		return false
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return false
	}
	flusher.Flush()
	return true
}

func sseHeaders(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return flusher, true
}

// handleSSEAPs streams periodic access-point cache snapshots.
func (s *Server) handleSSEAPs(w http.ResponseWriter, r *http.Request) {
	flusher, ok := sseHeaders(w)
	if !ok {
		writeInternalError(w, "streaming not supported")
		return
	}

	ticker := time.NewTicker(DefaultSSEInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			start := time.Now()
			entries, err := s.svc.Store.ListAPCache(r.Context())
			if err != nil {
				s.sseAPsErrs.Add(1)
				continue
			}
			ev := sseEvent{
				Seq:        s.sseAPsSeq.Add(1),
				Timestamp:  time.Now().UTC().Format(time.RFC3339),
				Data:       entries,
				Errors:     s.sseAPsErrs.Load(),
				LoadTimeMS: time.Since(start).Milliseconds(),
			}
			if !writeSSE(w, flusher, ev) {
				return
			}
		}
	}
}

// handleSSEStatus streams periodic resource/health snapshots.
func (s *Server) handleSSEStatus(w http.ResponseWriter, r *http.Request) {
	flusher, ok := sseHeaders(w)
	if !ok {
		writeInternalError(w, "streaming not supported")
		return
	}

	ticker := time.NewTicker(DefaultSSEInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			start := time.Now()
			sample := s.svc.Health.Sample(r.Context())
			ev := sseEvent{
				Seq:        s.sseStatusSeq.Add(1),
				Timestamp:  time.Now().UTC().Format(time.RFC3339),
				Data:       sample,
				Errors:     s.sseStatusErrs.Load(),
				LoadTimeMS: time.Since(start).Milliseconds(),
			}
			if !writeSSE(w, flusher, ev) {
				return
			}
		}
	}
}

// handleSSEHistory streams periodic re-reads of recent health history,
// picking up new samples as the batched writer flushes them.
func (s *Server) handleSSEHistory(w http.ResponseWriter, r *http.Request) {
	flusher, ok := sseHeaders(w)
	if !ok {
		writeInternalError(w, "streaming not supported")
		return
	}

	n := DefaultStatusLines
	ticker := time.NewTicker(DefaultSSEInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			start := time.Now()
			samples, err := s.svc.Store.LastHealthSamples(r.Context(), n)
			if err != nil {
				s.sseHistoryErrs.Add(1)
				continue
			}
			ev := sseEvent{
				Seq:        s.sseHistorySeq.Add(1),
				Timestamp:  time.Now().UTC().Format(time.RFC3339),
				Data:       samples,
				Errors:     s.sseHistoryErrs.Load(),
				LoadTimeMS: time.Since(start).Milliseconds(),
			}
			if !writeSSE(w, flusher, ev) {
				return
			}
		}
	}
}

// handleSSEDetections relays the stream processor's fan-out directly,
// one SSE event per broadcast message, without an artificial tick.
func (s *Server) handleSSEDetections(w http.ResponseWriter, r *http.Request) {
	flusher, ok := sseHeaders(w)
	if !ok {
		writeInternalError(w, "streaming not supported")
		return
	}

	sub := s.svc.Stream.Subscribe("sse-detections")
	defer s.svc.Stream.Unsubscribe(sub)

	var seq uint64
	var errs int64
	for {
		select {
		case <-r.Context().Done():
			return
		case msg, open := <-sub.C:
			if !open {
				return
			}
			seq++
			ev := sseEvent{
				Seq:       seq,
				Timestamp: msg.Timestamp.UTC().Format(time.RFC3339),
				Data:      msg.Records,
				Errors:    errs,
			}
			if !writeSSE(w, flusher, ev) {
				return
			}
		}
	}
}
