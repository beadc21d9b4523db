package terminal

import (
	"io"
	"time"

	"github.com/Veraticus/idlewatch/pkg/inactivity"
)

// DefaultEscapeTimeout is how long a held partial escape sequence waits for
// the rest of its bytes before it is released as typed.
const DefaultEscapeTimeout = 50 * time.Millisecond

const readBufferSize = 4096

// chunk is one read from the underlying reader
type chunk struct {
	data []byte
	err  error
}

// InputReader wraps terminal input, reporting each decoded event to a
// handler and yielding the passthrough bytes.
type InputReader struct {
	reader        io.Reader
	decoder       *Decoder
	handler       func(inactivity.Event)
	escapeTimeout time.Duration

	chunks  chan chunk
	started bool
	buf     []byte
	err     error
}

// NewInputReader creates an input reader. handler may be nil.
func NewInputReader(r io.Reader, decoder *Decoder, handler func(inactivity.Event)) *InputReader {
	return &InputReader{
		reader:        r,
		decoder:       decoder,
		handler:       handler,
		escapeTimeout: DefaultEscapeTimeout,
		chunks:        make(chan chunk),
	}
}

// SetEscapeTimeout changes how long a partial escape sequence is held.
func (r *InputReader) SetEscapeTimeout(d time.Duration) {
	r.escapeTimeout = d
}

func (r *InputReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if !r.started {
		r.started = true
		go r.readLoop()
	}

	// Keep reading while everything read so far was stripped or held
	for len(r.buf) == 0 {
		if r.err != nil {
			return 0, r.err
		}

		c, ok := r.next()
		if !ok {
			r.flush()
			continue
		}

		if len(c.data) > 0 {
			out, events := r.decoder.Decode(c.data)
			r.dispatch(events)
			r.buf = append(r.buf, out...)
		}
		if c.err != nil {
			r.flush()
			r.err = c.err
		}
	}

	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

// next waits for the next chunk. While a partial sequence is held it gives up
// after the escape timeout and reports false.
func (r *InputReader) next() (chunk, bool) {
	if !r.decoder.Pending() {
		return <-r.chunks, true
	}

	timer := time.NewTimer(r.escapeTimeout)
	defer timer.Stop()

	select {
	case c := <-r.chunks:
		return c, true
	case <-timer.C:
		return chunk{}, false
	}
}

func (r *InputReader) flush() {
	out, events := r.decoder.Flush()
	r.dispatch(events)
	r.buf = append(r.buf, out...)
}

func (r *InputReader) dispatch(events []inactivity.Event) {
	if r.handler == nil {
		return
	}
	for _, e := range events {
		r.handler(e)
	}
}

// readLoop feeds reads from the underlying reader to Read until it fails
func (r *InputReader) readLoop() {
	for {
		tmp := make([]byte, readBufferSize)
		n, err := r.reader.Read(tmp)
		r.chunks <- chunk{data: tmp[:n], err: err}
		if err != nil {
			return
		}
	}
}
