package inactivity

import (
	"sync"
	"time"
)

// Throttle passes through the first event of each sampling window and drops
// the rest until the window closes.
type Throttle struct {
	clock    Clock
	interval func() time.Duration
	fn       func(Event)

	mu      sync.Mutex
	open    bool
	window  Timer
	stopped bool
}

// NewThrottle creates a throttle calling fn for every event that opens a
// window. The interval is read each time a window opens, so callers may
// change it at any time.
func NewThrottle(clock Clock, interval func() time.Duration, fn func(Event)) *Throttle {
	if clock == nil {
		clock = RealClock()
	}
	return &Throttle{
		clock:    clock,
		interval: interval,
		fn:       fn,
	}
}

// Offer submits an event and reports whether it was processed.
func (t *Throttle) Offer(e Event) bool {
	t.mu.Lock()
	if t.stopped || t.open {
		t.mu.Unlock()
		return false
	}

	// A non-positive interval disables throttling
	if d := t.interval(); d > 0 {
		t.open = true
		t.window = t.clock.AfterFunc(d, t.closeWindow)
	}
	t.mu.Unlock()

	// Call outside of lock so fn may re-enter
	t.fn(e)
	return true
}

// closeWindow ends the current sampling window
func (t *Throttle) closeWindow() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.open = false
	t.window = nil
}

// Stop cancels the open window and drops all later events.
func (t *Throttle) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopped = true
	if t.window != nil {
		t.window.Stop()
		t.window = nil
	}
	t.open = false
}
