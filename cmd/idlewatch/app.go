package main

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Veraticus/idlewatch/pkg/config"
	"github.com/Veraticus/idlewatch/pkg/inactivity"
	"github.com/Veraticus/idlewatch/pkg/notification"
	"github.com/Veraticus/idlewatch/pkg/process"
)

// Dependencies holds all the dependencies for the application
type Dependencies struct {
	Config         *config.Config
	Log            logrus.FieldLogger
	Notifier       notification.Notifier
	IdleNotifier   *notification.IdleNotifier
	Monitor        *inactivity.Monitor
	Events         eventQueue
	ProcessManager *process.Manager
}

// eventBacklog bounds input events waiting for the monitor
const eventBacklog = 64

// eventQueue hands terminal input events to the monitor's Run loop so the
// stdin copy never waits on the monitor
type eventQueue chan inactivity.Event

// Handle queues e, reporting false when the backlog is full
func (q eventQueue) Handle(e inactivity.Event) bool {
	select {
	case q <- e:
		return true
	default:
		return false
	}
}

// NewDependencies creates all dependencies with the given configuration
func NewDependencies(cfg *config.Config, log logrus.FieldLogger, command string) *Dependencies {
	deps := &Dependencies{
		Config: cfg,
		Log:    log,
	}

	deps.Notifier = newNotifier(cfg, log, command)

	deps.Monitor = inactivity.New(cfg.MonitorConfig(), deps.handleIdle, inactivity.WithLogger(log))
	deps.IdleNotifier = notification.NewIdleNotifier(deps.Notifier, log, deps.inactivityLimit)

	deps.Events = make(eventQueue, eventBacklog)
	deps.ProcessManager = process.NewManager(cfg, deps.Events, log)

	return deps
}

// newNotifier picks ntfy when a topic is configured and the log otherwise
func newNotifier(cfg *config.Config, log logrus.FieldLogger, command string) notification.Notifier {
	if cfg.NtfyTopic == "" {
		return notification.NewLogNotifier(log)
	}
	client := notification.NewNtfyClient(cfg.NtfyServer, cfg.NtfyTopic)
	return notification.NewContextNotifier(client, command)
}

// handleIdle is the monitor callback
func (d *Dependencies) handleIdle(idle bool) {
	if d.Config.Quiet {
		d.Log.Debug("idle limit reached, notifications disabled")
		return
	}
	d.IdleNotifier.HandleIdle(idle)
}

func (d *Dependencies) inactivityLimit() time.Duration {
	minutes := d.Monitor.Config().InactivityLimit
	return time.Duration(minutes * float64(time.Minute))
}

// Close cleans up all dependencies
func (d *Dependencies) Close() {
	if d.Monitor != nil {
		_ = d.Monitor.Close()
	}
}

// Application represents the main application
type Application struct {
	deps *Dependencies
}

// NewApplication creates a new application with the given dependencies
func NewApplication(deps *Dependencies) *Application {
	return &Application{
		deps: deps,
	}
}

// Run arms the monitor and runs the watched command until it exits
func (a *Application) Run(command string, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.deps.Monitor.Start()
	go a.consumeEvents(ctx)

	if err := a.deps.ProcessManager.Start(command, args); err != nil {
		return err
	}

	return a.deps.ProcessManager.Wait()
}

// consumeEvents runs the monitor over queued input events until ctx ends
func (a *Application) consumeEvents(ctx context.Context) {
	err := a.deps.Monitor.Run(ctx, a.deps.Events)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.deps.Log.WithError(err).Debug("event loop stopped")
	}
}

// Stop gracefully stops the application
func (a *Application) Stop() error {
	return a.deps.ProcessManager.Stop()
}

// ExitCode returns the exit code of the watched process
func (a *Application) ExitCode() int {
	return a.deps.ProcessManager.ExitCode()
}
