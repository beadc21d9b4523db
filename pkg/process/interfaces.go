package process

import (
	"io"
	"os"

	"github.com/Veraticus/idlewatch/pkg/inactivity"
)

// PTY defines the interface for PTY operations
type PTY interface {
	Start(command string, args []string, env []string) error
	Wait() error
	Stop() error
	ProcessState() *os.ProcessState
	Process() *os.Process
	GetPTY() *os.File
	CopyIO(stdin io.Reader, stdout io.Writer, wrap func(io.Reader) io.Reader) error
}

// EventHandler receives decoded input events
type EventHandler interface {
	Handle(e inactivity.Event) bool
}
