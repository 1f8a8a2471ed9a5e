package scheduler

import (
	"testing"
	"time"

	"github.com/danmuck/gemctl/internal/testutil/testlog"
)

func TestCountersRateWindow(t *testing.T) {
	testlog.Start(t)
	var c Counters
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	c.RecordAccept(base)
	c.RecordAccept(base.Add(100 * time.Millisecond))
	c.RecordAccept(base.Add(900 * time.Millisecond))

	snap := c.Snapshot()
	if snap.TotalAccepted != 3 || snap.CurrentRate != 3 || snap.PeakRate != 3 {
		t.Fatalf("snapshot=%+v", snap)
	}

	// Next second opens a fresh window; the peak survives.
	c.RecordAccept(base.Add(time.Second))
	snap = c.Snapshot()
	if snap.TotalAccepted != 4 || snap.CurrentRate != 1 || snap.PeakRate != 3 {
		t.Fatalf("snapshot=%+v", snap)
	}
}

func TestCountersReset(t *testing.T) {
	testlog.Start(t)
	var c Counters
	now := time.Now()
	c.RecordAccept(now)
	c.RecordAccept(now)
	c.Reset()

	snap := c.Snapshot()
	if snap.TotalAccepted != 0 || snap.CurrentRate != 0 || snap.PeakRate != 0 {
		t.Fatalf("snapshot after reset=%+v", snap)
	}
}
