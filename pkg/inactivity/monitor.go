package inactivity

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Defaults applied when a Config leaves a value unset.
const (
	DefaultInactivityLimit  = 15.0
	DefaultSamplingInterval = 1000 * time.Millisecond
)

// MaxInactivityLimit is the largest limit in minutes a timer can represent.
const MaxInactivityLimit = float64(math.MaxInt64 / int64(time.Minute))

// ValidInactivityLimit reports whether minutes is a usable idle limit. NaN
// and infinities are rejected.
func ValidInactivityLimit(minutes float64) bool {
	return minutes > 0 && minutes <= MaxInactivityLimit
}

// ErrClosed is returned by Run once the monitor has been closed.
var ErrClosed = errors.New("inactivity monitor closed")

// Config holds the monitor settings.
type Config struct {
	// InactivityLimit is the idle duration in minutes before the callback fires.
	InactivityLimit float64
	// SamplingInterval is the minimum spacing between processed activity ticks.
	SamplingInterval time.Duration
	// DisabledEvents lists event kind names to ignore, case-insensitive.
	DisabledEvents []string
}

// DefaultConfig returns the default monitor configuration
func DefaultConfig() Config {
	return Config{
		InactivityLimit:  DefaultInactivityLimit,
		SamplingInterval: DefaultSamplingInterval,
	}
}

// Option customizes a Monitor.
type Option func(*Monitor)

// WithClock sets the clock used for the idle timer and sampling windows.
func WithClock(clock Clock) Option {
	return func(m *Monitor) {
		m.clock = clock
	}
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(m *Monitor) {
		m.log = log
	}
}

// Monitor merges filtered input events into one throttled activity signal and
// fires a callback when no activity arrives within the inactivity limit.
type Monitor struct {
	clock    Clock
	log      logrus.FieldLogger
	callback func(bool)
	throttle *Throttle

	mu         sync.Mutex
	limit      float64
	interval   time.Duration
	disabled   []string
	timer      Timer
	generation uint64
	state      State
	closed     bool
}

// New creates a monitor. The callback receives true each time the inactivity
// limit is reached. An InactivityLimit that is not positive, finite and
// representable as a duration falls back to the default.
func New(cfg Config, callback func(bool), opts ...Option) *Monitor {
	m := &Monitor{
		callback: callback,
		state:    StateUnarmed,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.clock == nil {
		m.clock = RealClock()
	}
	if m.log == nil {
		m.log = logrus.StandardLogger()
	}

	m.setInactivityLimit(cfg.InactivityLimit)
	m.setSamplingInterval(cfg.SamplingInterval)
	m.disabled = normalizeKinds(cfg.DisabledEvents)
	m.throttle = NewThrottle(m.clock, m.samplingInterval, m.tick)

	return m
}

// Start schedules the idle callback after the inactivity limit. Any pending
// timer is cancelled first.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.startLocked()
}

// Reset cancels the pending idle timer, if any.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resetLocked()
}

func (m *Monitor) startLocked() {
	m.stopTimerLocked()

	gen := m.generation
	m.timer = m.clock.AfterFunc(m.limitLocked(), func() { m.fire(gen) })
	m.state = StateArmed
}

func (m *Monitor) resetLocked() {
	if m.stopTimerLocked() {
		m.state = StateUnarmed
	}
}

// stopTimerLocked cancels the pending timer and invalidates any expiry
// already in flight. It reports whether a timer was pending.
func (m *Monitor) stopTimerLocked() bool {
	m.generation++
	if m.timer == nil {
		return false
	}
	m.timer.Stop()
	m.timer = nil
	return true
}

// fire runs when the idle timer of generation gen expires
func (m *Monitor) fire(gen uint64) {
	m.mu.Lock()
	if m.closed || gen != m.generation {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	m.state = StateFired
	limit := m.limitLocked()
	callback := m.callback
	m.mu.Unlock()

	m.log.WithField("limit", limit).Debug("inactivity limit reached")

	if callback != nil {
		callback(true)
	}
}

// tick handles one throttled activity emission
func (m *Monitor) tick(e Event) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.resetLocked()
	m.startLocked()
	m.mu.Unlock()

	m.log.WithField("kind", e.Kind).Debug("activity tick")
}

// IsEventDisabled reports whether kind is in the disabled list, ignoring case.
func (m *Monitor) IsEventDisabled(kind string) bool {
	kind = normalizeKind(kind)

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, disabled := range m.disabled {
		if disabled == kind {
			return true
		}
	}
	return false
}

// OnPointerMove ingests a mouse-move or touch-move event. It reports whether
// the event reached the activity stream.
func (m *Monitor) OnPointerMove(e Event) bool {
	if m.IsEventDisabled(string(KindMouseMove)) || m.IsEventDisabled(string(KindTouchMove)) {
		return false
	}
	return m.emit(e)
}

// OnWheel ingests a wheel event.
func (m *Monitor) OnWheel(e Event) bool {
	if m.IsEventDisabled(string(KindWheel)) {
		return false
	}
	return m.emit(e)
}

// OnPointerDown ingests a mouse-down or touch-end event.
func (m *Monitor) OnPointerDown(e Event) bool {
	if m.IsEventDisabled(string(KindMouseDown)) || m.IsEventDisabled(string(KindTouchEnd)) {
		return false
	}
	return m.emit(e)
}

// OnKeyPress ingests a key press event.
func (m *Monitor) OnKeyPress(e Event) bool {
	if m.IsEventDisabled(string(KindKeyPress)) {
		return false
	}
	return m.emit(e)
}

// Handle routes e to the ingestion point for its kind. Unknown kinds are
// ignored.
func (m *Monitor) Handle(e Event) bool {
	switch EventKind(normalizeKind(string(e.Kind))) {
	case KindMouseMove, KindTouchMove:
		return m.OnPointerMove(e)
	case KindWheel:
		return m.OnWheel(e)
	case KindMouseDown, KindTouchEnd:
		return m.OnPointerDown(e)
	case KindKeyPress:
		return m.OnKeyPress(e)
	default:
		return false
	}
}

// Run feeds events from the channel into the monitor until the channel is
// closed, the context is done, or the monitor is closed. It lets producers
// that must not block, such as a terminal input reader, hand events off
// through a buffered channel instead of calling Handle directly.
func (m *Monitor) Run(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-events:
			if !ok {
				return nil
			}
			if m.isClosed() {
				return ErrClosed
			}
			m.Handle(e)
		}
	}
}

// emit places an event on the merged activity stream
func (m *Monitor) emit(e Event) bool {
	if m.isClosed() {
		return false
	}
	if e.At.IsZero() {
		e.At = m.clock.Now()
	}
	m.throttle.Offer(e)
	return true
}

// SetDisabledEvents replaces the disabled event kinds.
func (m *Monitor) SetDisabledEvents(kinds []string) {
	normalized := normalizeKinds(kinds)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.disabled = normalized
}

// SetInactivityLimit changes the idle limit in minutes. It applies from the
// next time the timer is armed.
func (m *Monitor) SetInactivityLimit(minutes float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setInactivityLimit(minutes)
}

// SetSamplingInterval changes the throttle window. It applies from the next
// window that opens.
func (m *Monitor) SetSamplingInterval(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setSamplingInterval(d)
}

func (m *Monitor) setInactivityLimit(minutes float64) {
	if !ValidInactivityLimit(minutes) {
		minutes = DefaultInactivityLimit
	}
	m.limit = minutes
}

func (m *Monitor) setSamplingInterval(d time.Duration) {
	if d < 0 {
		d = 0
	}
	m.interval = d
}

// Config returns a copy of the current configuration.
func (m *Monitor) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()

	disabled := make([]string, len(m.disabled))
	copy(disabled, m.disabled)
	return Config{
		InactivityLimit:  m.limit,
		SamplingInterval: m.interval,
		DisabledEvents:   disabled,
	}
}

// State returns the current idle cycle state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Close cancels all timers. Events delivered after Close are ignored.
func (m *Monitor) Close() error {
	m.mu.Lock()
	m.closed = true
	m.resetLocked()
	m.mu.Unlock()

	m.throttle.Stop()
	return nil
}

func (m *Monitor) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Monitor) samplingInterval() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.interval
}

func (m *Monitor) limitLocked() time.Duration {
	return time.Duration(m.limit * float64(time.Minute))
}

func normalizeKind(kind string) string {
	return strings.ToLower(strings.TrimSpace(kind))
}

func normalizeKinds(kinds []string) []string {
	normalized := make([]string, 0, len(kinds))
	for _, k := range kinds {
		normalized = append(normalized, normalizeKind(k))
	}
	return normalized
}
