// Package inactivity detects user inactivity from a stream of input events
// and invokes a callback once an idle limit passes without activity.
package inactivity

import "time"

// EventKind names a category of input event.
type EventKind string

// Input event kinds understood by the monitor.
const (
	KindMouseMove EventKind = "mousemove"
	KindTouchMove EventKind = "touchmove"
	KindWheel     EventKind = "wheel"
	KindMouseDown EventKind = "mousedown"
	KindTouchEnd  EventKind = "touchend"
	KindKeyPress  EventKind = "keypress"
)

// Kinds lists every event kind in a stable order.
func Kinds() []EventKind {
	return []EventKind{
		KindMouseMove,
		KindTouchMove,
		KindWheel,
		KindMouseDown,
		KindTouchEnd,
		KindKeyPress,
	}
}

// IsKnownKind reports whether name is one of Kinds, ignoring case.
func IsKnownKind(name string) bool {
	normalized := EventKind(normalizeKind(name))
	for _, k := range Kinds() {
		if k == normalized {
			return true
		}
	}
	return false
}

// Event is a single raw input notification delivered by the host.
type Event struct {
	Kind EventKind
	At   time.Time
}

// State is the monitor's position in its idle cycle.
type State int

const (
	// StateUnarmed means no idle timer is pending.
	StateUnarmed State = iota
	// StateArmed means an idle timer is pending.
	StateArmed
	// StateFired means the idle callback ran and no timer is pending.
	StateFired
)

func (s State) String() string {
	switch s {
	case StateUnarmed:
		return "unarmed"
	case StateArmed:
		return "armed"
	case StateFired:
		return "fired"
	default:
		return "unknown"
	}
}
