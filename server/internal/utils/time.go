package utils

import (
	"sync"
	"time"
)

// Clock supplies wall-clock milliseconds to the simulation.
type Clock interface {
	NowMS() int64
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

func (SystemClock) NowMS() int64 { return GetCurrentTimestampMS() }

// GetCurrentTimestampMS returns the current Unix timestamp in milliseconds.
func GetCurrentTimestampMS() int64 {
	return time.Now().UnixMilli()
}

// ManualClock only moves when told to. Safe for concurrent use.
type ManualClock struct {
	mu  sync.Mutex
	now int64
}

func NewManualClock(startMS int64) *ManualClock {
	return &ManualClock{now: startMS}
}

func (c *ManualClock) NowMS() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d.Milliseconds()
	c.mu.Unlock()
}

// Ticker calls fire whenever at least period has elapsed since the last call,
// checking every poll interval. Late ticks are not replayed. It returns when
// stop is closed.
func Ticker(period, poll time.Duration, stop <-chan struct{}, fire func(elapsed time.Duration)) {
	last := time.Now()
	for {
		select {
		case <-stop:
			return
		case <-time.After(poll):
		}
		if elapsed := time.Since(last); elapsed >= period {
			last = time.Now()
			fire(elapsed)
		}
	}
}
