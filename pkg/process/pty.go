package process

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"

	"github.com/creack/pty"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// PTYManager handles PTY-based process execution
type PTYManager struct {
	cmd         *exec.Cmd
	pty         *os.File
	log         logrus.FieldLogger
	mu          sync.Mutex
	stopChan    chan struct{}
	wg          sync.WaitGroup
	restoreFunc func()
}

// Ensure PTYManager implements PTY
var _ PTY = (*PTYManager)(nil)

// NewPTYManager creates a new PTY manager
func NewPTYManager(log logrus.FieldLogger) *PTYManager {
	return &PTYManager{
		log:      log,
		stopChan: make(chan struct{}),
	}
}

// Start starts a process with PTY
func (p *PTYManager) Start(command string, args []string, env []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil {
		return fmt.Errorf("process already started")
	}

	p.cmd = exec.Command(command, args...)
	p.cmd.Env = env

	var err error
	p.pty, err = pty.Start(p.cmd)
	if err != nil {
		return fmt.Errorf("failed to start PTY: %w", err)
	}

	p.log = p.log.WithFields(logrus.Fields{
		"command": command,
		"pid":     p.cmd.Process.Pid,
	})
	p.log.WithField("args", args).Debug("started process on PTY")

	// Some environments don't have a terminal
	if _, err := p.copyTerminalSize(); err != nil {
		p.log.WithError(err).Debug("failed to copy terminal size")
	}

	p.wg.Add(1)
	go p.monitorTerminalSize()

	return nil
}

// GetPTY returns the PTY file descriptor
func (p *PTYManager) GetPTY() *os.File {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pty
}

// Wait waits for the process to complete
func (p *PTYManager) Wait() error {
	if p.cmd == nil {
		return fmt.Errorf("process not started")
	}

	err := p.cmd.Wait()
	p.log.WithField("exit_code", p.cmd.ProcessState.ExitCode()).Debug("process exited")

	close(p.stopChan)
	p.wg.Wait()

	p.mu.Lock()
	if p.pty != nil {
		_ = p.pty.Close()
	}
	p.mu.Unlock()

	return err
}

// ProcessState returns the process state
func (p *PTYManager) ProcessState() *os.ProcessState {
	if p.cmd == nil {
		return nil
	}
	return p.cmd.ProcessState
}

// Process returns the underlying process
func (p *PTYManager) Process() *os.Process {
	if p.cmd == nil {
		return nil
	}
	return p.cmd.Process
}

// Stop restores the terminal state
func (p *PTYManager) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.restoreFunc != nil {
		p.restoreFunc()
		p.restoreFunc = nil
		p.log.Debug("terminal restored from raw mode")
	}

	return nil
}

// copyTerminalSize copies the terminal size from stdin to the PTY
func (p *PTYManager) copyTerminalSize() (*pty.Winsize, error) {
	size, err := pty.GetsizeFull(os.Stdin)
	if err != nil {
		return nil, err
	}

	return size, pty.Setsize(p.pty, size)
}

// monitorTerminalSize monitors for terminal size changes
func (p *PTYManager) monitorTerminalSize() {
	defer p.wg.Done()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGWINCH)
	defer signal.Stop(sigChan)

	for {
		select {
		case <-sigChan:
			p.mu.Lock()
			if p.pty != nil {
				size, err := p.copyTerminalSize()
				if err != nil {
					p.log.WithError(err).Debug("failed to resize PTY")
				} else {
					p.log.WithFields(logrus.Fields{
						"rows": size.Rows,
						"cols": size.Cols,
					}).Trace("resized PTY")
				}
			}
			p.mu.Unlock()
		case <-p.stopChan:
			return
		}
	}
}

// setRawMode puts the terminal on fd into raw mode and returns a restore func
func setRawMode(fd int) (func(), error) {
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("fd %d is not a terminal", fd)
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("failed to set raw mode: %w", err)
	}
	return func() { _ = term.Restore(fd, state) }, nil
}

// CopyIO copies stdin to the PTY and PTY output to stdout. wrap, if set,
// wraps stdin before copying. It returns once the PTY output ends.
func (p *PTYManager) CopyIO(stdin io.Reader, stdout io.Writer, wrap func(io.Reader) io.Reader) error {
	p.mu.Lock()
	if p.pty == nil {
		p.mu.Unlock()
		return fmt.Errorf("PTY not initialized")
	}
	ptyFile := p.pty
	p.mu.Unlock()

	// Stop restores the terminal if the caller gives up before output ends
	if file, ok := stdin.(*os.File); ok {
		restore, err := setRawMode(int(file.Fd()))
		if err != nil {
			p.log.WithError(err).Debug("leaving stdin in cooked mode")
		} else {
			p.mu.Lock()
			p.restoreFunc = restore
			p.mu.Unlock()
			defer func() { _ = p.Stop() }()
		}
	}

	input := stdin
	if wrap != nil {
		input = wrap(stdin)
	}

	// Reads from stdin block until the next keystroke, so this copy is not
	// waited on
	go func() {
		if _, err := io.Copy(ptyFile, input); err != nil && !isClosedPTY(err) {
			p.log.WithError(err).Debug("stdin copy ended")
		}
	}()

	if _, err := io.Copy(stdout, ptyFile); err != nil && !isClosedPTY(err) {
		return fmt.Errorf("stdout copy error: %w", err)
	}
	return nil
}

// isClosedPTY reports whether err means the PTY went away with its process
func isClosedPTY(err error) bool {
	return errors.Is(err, syscall.EIO) || errors.Is(err, os.ErrClosed)
}
