package scheduler

import (
	"sync"
	"time"
)

// Snapshot is a point-in-time copy of the accept counters.
type Snapshot struct {
	TotalAccepted uint64 `json:"total_accepted"`
	CurrentRate   uint64 `json:"current_rate"`
	PeakRate      uint64 `json:"peak_rate"`
}

// Counters tracks total accepted connections and the per-second accept rate,
// keeping the peak rate observed since the last reset.
type Counters struct {
	mu          sync.Mutex
	total       uint64
	window      uint64
	windowStart time.Time
	peak        uint64
}

// RecordAccept counts one accepted connection at now. Accepts within the same
// wall-clock second share a rate window; a new second opens a fresh window.
func (c *Counters) RecordAccept(now time.Time) {
	second := now.Truncate(time.Second)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.total++
	if second.Equal(c.windowStart) {
		c.window++
	} else {
		c.windowStart = second
		c.window = 1
	}
	if c.window > c.peak {
		c.peak = c.window
	}
}

func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		TotalAccepted: c.total,
		CurrentRate:   c.window,
		PeakRate:      c.peak,
	}
}

// Reset clears all counters, including the peak.
func (c *Counters) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total = 0
	c.window = 0
	c.windowStart = time.Time{}
	c.peak = 0
}

// Peak returns the highest per-second accept rate observed.
func (c *Counters) Peak() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peak
}
