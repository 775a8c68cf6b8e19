package utils

import (
	"bytes"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestManualClockAdvance(t *testing.T) {
	c := NewManualClock(1000)
	c.Advance(250 * time.Millisecond)
	if got := c.NowMS(); got != 1250 {
		t.Fatalf("expected 1250, got %d", got)
	}
}

func TestTickerFiresAndStops(t *testing.T) {
	stop := make(chan struct{})
	var fired int32
	done := make(chan struct{})
	go func() {
		Ticker(10*time.Millisecond, 2*time.Millisecond, stop, func(time.Duration) {
			atomic.AddInt32(&fired, 1)
		})
		close(done)
	}()
	time.Sleep(80 * time.Millisecond)
	close(stop)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("ticker did not stop")
	}
	if atomic.LoadInt32(&fired) == 0 {
		t.Fatalf("expected at least one tick")
	}
}

func TestSetLogLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	defer SetLogOutput(os.Stdout)
	SetLogLevel("warn")
	LogInfof("hidden %d", 1)
	LogWarnf("shown %d", 2)
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown 2") {
		t.Fatalf("unexpected log output %q", out)
	}
	SetLogLevel("info")
}
