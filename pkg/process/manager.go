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

	"github.com/sirupsen/logrus"

	"github.com/Veraticus/idlewatch/pkg/config"
	"github.com/Veraticus/idlewatch/pkg/inactivity"
	"github.com/Veraticus/idlewatch/pkg/terminal"
)

// Manager runs the watched process and routes its terminal input into an
// EventHandler
type Manager struct {
	config     *config.Config
	ptyManager PTY
	handler    EventHandler
	log        logrus.FieldLogger
	stdin      io.Reader
	stdout     io.Writer

	started  bool
	exitCode int
	mu       sync.Mutex
	sigChan  chan os.Signal
	done     chan struct{}
	copyDone chan struct{}
}

// NewManager creates a new process manager
func NewManager(cfg *config.Config, handler EventHandler, log logrus.FieldLogger) *Manager {
	return newManager(cfg, NewPTYManager(log), handler, log, os.Stdin, os.Stdout)
}

func newManager(cfg *config.Config, ptyManager PTY, handler EventHandler, log logrus.FieldLogger, stdin io.Reader, stdout io.Writer) *Manager {
	return &Manager{
		config:     cfg,
		ptyManager: ptyManager,
		handler:    handler,
		log:        log,
		stdin:      stdin,
		stdout:     stdout,
		done:       make(chan struct{}),
		copyDone:   make(chan struct{}),
	}
}

// Start starts the watched process
func (m *Manager) Start(command string, args []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ptyManager.Start(command, args, os.Environ()); err != nil {
		return fmt.Errorf("failed to start process: %w", err)
	}
	m.started = true

	if m.config.MouseTracking {
		if _, err := m.stdout.Write(terminal.EnableMouseTracking()); err != nil {
			m.log.WithError(err).Warn("failed to enable mouse tracking")
		}
	}

	go func() {
		defer close(m.copyDone)
		if err := m.ptyManager.CopyIO(m.stdin, m.stdout, m.wrapInput); err != nil {
			m.log.WithError(err).Error("I/O error")
		}
	}()

	m.setupSignalForwarding()

	m.log.WithFields(logrus.Fields{
		"command": command,
		"args":    args,
	}).Debug("started watched process")

	return nil
}

// wrapInput routes stdin through the terminal decoder
func (m *Manager) wrapInput(r io.Reader) io.Reader {
	// Strip the mouse reports our own tracking asked for
	decoder := terminal.NewDecoder(m.config.MouseTracking)
	return terminal.NewInputReader(r, decoder, m.handleEvent)
}

func (m *Manager) handleEvent(e inactivity.Event) {
	if m.handler == nil {
		return
	}
	if !m.handler.Handle(e) {
		m.log.WithField("kind", e.Kind).Trace("input event not accepted")
	}
}

// Wait waits for the process to exit
func (m *Manager) Wait() error {
	m.mu.Lock()
	started := m.started
	m.mu.Unlock()
	if !started {
		return fmt.Errorf("process not started")
	}

	err := m.ptyManager.Wait()
	<-m.copyDone

	m.mu.Lock()
	if m.ptyManager.ProcessState() != nil {
		m.exitCode = m.ptyManager.ProcessState().ExitCode()
	}
	m.mu.Unlock()

	m.restoreTerminal()

	close(m.done)
	m.cleanupSignals()

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// The exit code carries this
		return nil
	}
	return err
}

// restoreTerminal undoes raw mode and mouse tracking
func (m *Manager) restoreTerminal() {
	_ = m.ptyManager.Stop()
	if m.config.MouseTracking {
		_, _ = m.stdout.Write(terminal.DisableMouseTracking())
	}
}

// ExitCode returns the exit code of the process
func (m *Manager) ExitCode() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exitCode
}

// setupSignalForwarding sets up signal forwarding to the child process
func (m *Manager) setupSignalForwarding() {
	m.sigChan = make(chan os.Signal, 1)
	signal.Notify(m.sigChan,
		syscall.SIGTERM,
		syscall.SIGINT,
		syscall.SIGHUP,
		syscall.SIGQUIT,
		syscall.SIGUSR1,
		syscall.SIGUSR2,
	)

	go m.forwardSignals()
}

// forwardSignals forwards signals to the child process
func (m *Manager) forwardSignals() {
	for {
		select {
		case sig := <-m.sigChan:
			if m.ptyManager != nil && m.ptyManager.Process() != nil {
				if err := m.ptyManager.Process().Signal(sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
					m.log.WithError(err).WithField("signal", sig).Warn("signal forward error")
				}
			}
		case <-m.done:
			return
		}
	}
}

// cleanupSignals stops signal forwarding
func (m *Manager) cleanupSignals() {
	if m.sigChan != nil {
		signal.Stop(m.sigChan)
	}
}

// Stop gracefully stops the manager and cleans up resources
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ptyManager == nil {
		return nil
	}

	m.restoreTerminal()

	if m.ptyManager.Process() != nil {
		// Send SIGTERM first for graceful shutdown
		if err := m.ptyManager.Process().Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return m.ptyManager.Process().Kill()
		}
	}

	return nil
}
