package ws

import "time"

// Message is the envelope every streamed feed uses: a monotonically
// increasing sequence number, a timestamp, the payload, a running
// count of delivery errors for the feed, and how long the update
// that produced this message took to compute.
type Message struct {
	Seq        uint64    `json:"seq"`
	Timestamp  time.Time `json:"timestamp"`
	Data       any       `json:"data"`
	Errors     int64     `json:"errors"`
	LoadTimeMS int64     `json:"load_time_ms,omitempty"`
}
