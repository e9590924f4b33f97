package timer

import (
	"sync/atomic"
	"testing"
	"time"
)

type countingCallback struct {
	ticks atomic.Int64
}

func (c *countingCallback) Tick() {
	c.ticks.Add(1)
}

func TestTimerTicks(t *testing.T) {
	cb := &countingCallback{}

	tm, err := Start(cb, time.Millisecond)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if err := tm.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	got := cb.ticks.Load()
	if got == 0 {
		t.Fatal("timer never ticked")
	}

	// No ticks after close.
	time.Sleep(10 * time.Millisecond)
	if cb.ticks.Load() != got {
		t.Error("timer ticked after close")
	}
}

func TestTimerInvalidInterval(t *testing.T) {
	if _, err := Start(&countingCallback{}, 0); err == nil {
		t.Error("expected error for zero interval")
	}
}

func TestTimerDoubleClose(t *testing.T) {
	tm, err := Start(&countingCallback{}, time.Millisecond)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := tm.Close(); err != nil {
		t.Fatalf("first close failed: %v", err)
	}
	if err := tm.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}
}
