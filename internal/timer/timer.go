// Package timer provides the periodic-callback primitive driving the
// real-time transports. The callback runs on a dedicated goroutine at the
// configured tick interval until Close.
package timer

import (
	"fmt"
	"sync"
	"time"
)

// Callback is invoked once per tick. Implementations must guard their own
// re-entrancy; a slow callback delays subsequent ticks rather than
// overlapping them.
type Callback interface {
	Tick()
}

// Timer delivers periodic callbacks at approximately the configured
// interval.
type Timer struct {
	interval time.Duration
	cb       Callback

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Start launches a timer ticking every interval.
func Start(cb Callback, interval time.Duration) (*Timer, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("timer interval must be positive, got %v", interval)
	}

	t := &Timer{
		interval: interval,
		cb:       cb,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go t.run()
	return t, nil
}

func (t *Timer) run() {
	defer close(t.done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			t.cb.Tick()
		}
	}
}

// Close stops the timer and waits for the callback goroutine to exit. Safe
// to call more than once.
func (t *Timer) Close() error {
	t.once.Do(func() { close(t.stop) })
	<-t.done
	return nil
}
