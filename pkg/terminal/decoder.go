// Package terminal turns raw terminal input into inactivity events.
package terminal

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Veraticus/idlewatch/pkg/inactivity"
)

const esc = 0x1b

// Sequences longer than this without a final byte are released as typed
const maxMouseReportLen = 32

// Mouse button bits shared by the X10 and SGR encodings
const (
	mouseMotionBit = 32
	mouseWheelBit  = 64
	mouseExtraBit  = 128
	mouseButtons   = 3
)

// EnableMouseTracking asks the terminal to report all mouse motion, presses
// and wheel scrolls using the SGR extended encoding.
func EnableMouseTracking() []byte {
	return []byte("\033[?1003h\033[?1006h")
}

// DisableMouseTracking reverts EnableMouseTracking.
func DisableMouseTracking() []byte {
	return []byte("\033[?1006l\033[?1003l")
}

// Decoder classifies terminal input bytes into input events. Escape
// sequences split across reads are held until complete or flushed.
type Decoder struct {
	stripMouse bool
	pending    []byte
	now        func() time.Time
}

// NewDecoder creates a decoder. When stripMouse is set, mouse reports are
// removed from the passthrough bytes.
func NewDecoder(stripMouse bool) *Decoder {
	return &Decoder{
		stripMouse: stripMouse,
		now:        time.Now,
	}
}

// Decode consumes data and returns the bytes to forward along with the
// events found in them.
func (d *Decoder) Decode(data []byte) ([]byte, []inactivity.Event) {
	buf := append(d.pending, data...)
	d.pending = nil

	var out []byte
	var events []inactivity.Event
	at := d.now()

	for i := 0; i < len(buf); {
		tok := scan(buf[i:])
		if !tok.complete {
			d.pending = append([]byte(nil), buf[i:]...)
			break
		}

		if tok.kind != "" {
			events = append(events, inactivity.Event{Kind: tok.kind, At: at})
		}
		if !(tok.mouse && d.stripMouse) {
			out = append(out, buf[i:i+tok.size]...)
		}
		i += tok.size
	}

	return out, events
}

// Pending reports whether a partial sequence is being held.
func (d *Decoder) Pending() bool {
	return len(d.pending) > 0
}

// Flush releases any held partial sequence as-is. A held sequence that never
// completed was typed by the user, so it counts as one key press.
func (d *Decoder) Flush() ([]byte, []inactivity.Event) {
	held := d.pending
	d.pending = nil
	if len(held) == 0 {
		return nil, nil
	}
	return held, []inactivity.Event{{Kind: inactivity.KindKeyPress, At: d.now()}}
}

// token is one scanned unit of input
type token struct {
	size     int
	kind     inactivity.EventKind
	mouse    bool
	complete bool
}

func scan(b []byte) token {
	if b[0] != esc {
		_, size := utf8.DecodeRune(b)
		return token{size: size, kind: inactivity.KindKeyPress, complete: true}
	}

	// An escape at the end of the buffer may start a sequence still in flight
	if len(b) == 1 {
		return token{}
	}
	// Escape key followed by another escape
	if b[1] == esc {
		return token{size: 1, kind: inactivity.KindKeyPress, complete: true}
	}

	switch b[1] {
	case '[':
		if len(b) == 2 {
			return token{}
		}
		if b[2] == '<' {
			return scanSGRMouse(b)
		}
		if b[2] == 'M' {
			return scanX10Mouse(b)
		}
		return scanCSI(b)
	case 'O':
		// SS3 function and keypad keys
		if len(b) < 3 {
			return token{}
		}
		return token{size: 3, kind: inactivity.KindKeyPress, complete: true}
	default:
		// Alt+key
		return token{size: 2, kind: inactivity.KindKeyPress, complete: true}
	}
}

// scanCSI consumes a control sequence such as a cursor or function key
func scanCSI(b []byte) token {
	for j := 2; j < len(b); j++ {
		c := b[j]
		if c >= 0x40 && c <= 0x7e {
			// Focus in/out reports are not user input
			if j == 2 && (c == 'I' || c == 'O') {
				return token{size: j + 1, complete: true}
			}
			return token{size: j + 1, kind: inactivity.KindKeyPress, complete: true}
		}
		if c < 0x20 || c > 0x3f {
			return token{size: j, kind: inactivity.KindKeyPress, complete: true}
		}
	}

	// No final byte yet
	if len(b) < maxMouseReportLen {
		return token{}
	}
	return token{size: len(b), kind: inactivity.KindKeyPress, complete: true}
}

// scanSGRMouse consumes an SGR mouse report: ESC [ < b ; x ; y (M|m)
func scanSGRMouse(b []byte) token {
	for j := 3; j < len(b); j++ {
		c := b[j]
		if c == 'M' || c == 'm' {
			fields := strings.Split(string(b[3:j]), ";")
			if len(fields) != 3 {
				return scanCSI(b)
			}
			cb, err := strconv.Atoi(fields[0])
			if err != nil {
				return scanCSI(b)
			}
			return token{size: j + 1, kind: classifyMouse(cb, c == 'M'), mouse: true, complete: true}
		}
		if (c < '0' || c > '9') && c != ';' {
			return scanCSI(b)
		}
	}

	if len(b) < maxMouseReportLen {
		return token{}
	}
	return scanCSI(b)
}

// scanX10Mouse consumes a legacy mouse report: ESC [ M b x y
func scanX10Mouse(b []byte) token {
	if len(b) < 6 {
		return token{}
	}
	cb := int(b[3]) - 32
	press := cb&mouseButtons != mouseButtons
	return token{size: 6, kind: classifyMouse(cb, press), mouse: true, complete: true}
}

// classifyMouse maps a button code to an event kind. Releases map to none.
func classifyMouse(cb int, press bool) inactivity.EventKind {
	switch {
	case cb&mouseWheelBit != 0 && cb&mouseExtraBit == 0:
		return inactivity.KindWheel
	case cb&mouseMotionBit != 0:
		return inactivity.KindMouseMove
	case press:
		return inactivity.KindMouseDown
	default:
		return ""
	}
}
