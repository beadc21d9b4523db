package testutil

import (
	"sync"
	"time"

	"github.com/Veraticus/idlewatch/pkg/inactivity"
)

// FakeClock is a manually advanced implementation of inactivity.Clock.
// Timers fire synchronously inside Advance, in due order.
type FakeClock struct {
	mu        sync.Mutex
	now       time.Time
	timers    []*FakeTimer
	scheduled int
}

// Ensure FakeClock implements inactivity.Clock
var _ inactivity.Clock = (*FakeClock)(nil)

// NewFakeClock creates a fake clock starting at start
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the current fake time
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc schedules f to run once the clock has advanced by d
func (c *FakeClock) AfterFunc(d time.Duration, f func()) inactivity.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &FakeTimer{
		clock: c,
		when:  c.now.Add(d),
		fn:    f,
	}
	c.timers = append(c.timers, t)
	c.scheduled++
	return t
}

// Advance moves the clock forward by d, running every timer that comes due
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDueLocked(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.when
		next.fired = true
		c.removeLocked(next)
		c.mu.Unlock()

		// Run outside of lock so the callback can schedule more timers
		next.fn()
	}
}

// Pending returns the number of timers that have neither fired nor stopped
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// Scheduled returns how many timers were ever created
func (c *FakeClock) Scheduled() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scheduled
}

func (c *FakeClock) nextDueLocked(target time.Time) *FakeTimer {
	var next *FakeTimer
	for _, t := range c.timers {
		if t.when.After(target) {
			continue
		}
		if next == nil || t.when.Before(next.when) {
			next = t
		}
	}
	return next
}

func (c *FakeClock) removeLocked(t *FakeTimer) {
	for i, pending := range c.timers {
		if pending == t {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return
		}
	}
}

// FakeTimer is a timer created by FakeClock
type FakeTimer struct {
	clock   *FakeClock
	when    time.Time
	fn      func()
	fired   bool
	stopped bool
}

// Stop cancels the timer, reporting whether it was still pending
func (t *FakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	t.clock.removeLocked(t)
	return true
}
