package analytics

import "math"

// CUSUMResult is the outcome of a single CUSUM update.
type CUSUMResult struct {
	IsChangePoint bool
	Direction     string // "up" or "down"
	CUSUMHigh     float64
	CUSUMLow      float64
}

// CUSUM tracks cumulative sums for change-point detection, e.g. a
// sustained shift in a network's mean signal strength.
type CUSUM struct {
	Drift     float64 // allowable drift (slack parameter k)
	Threshold float64 // decision threshold (h)
	High      float64 // upper cumulative sum S+
	Low       float64 // lower cumulative sum S-
}

// NewCUSUM creates a new CUSUM detector.
func NewCUSUM(drift, threshold float64) *CUSUM {
	return &CUSUM{Drift: drift, Threshold: threshold}
}

// Update processes a new normalized value ((value-mean)/stdDev) and
// reports whether it crosses a change-point threshold.
func (c *CUSUM) Update(normalized float64) CUSUMResult {
	c.High = math.Max(0, c.High+normalized-c.Drift)
	c.Low = math.Max(0, c.Low-normalized-c.Drift)

	result := CUSUMResult{CUSUMHigh: c.High, CUSUMLow: c.Low}
	if c.High > c.Threshold {
		result.IsChangePoint = true
		result.Direction = "up"
		c.High = 0
	}
	if c.Low > c.Threshold {
		result.IsChangePoint = true
		result.Direction = "down"
		c.Low = 0
	}
	return result
}

// Reset clears the CUSUM accumulators.
func (c *CUSUM) Reset() {
	c.High = 0
	c.Low = 0
}
