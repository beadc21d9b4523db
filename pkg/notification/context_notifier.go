package notification

import (
	"os"
	"path/filepath"
	"strings"
)

// ContextNotifier wraps another notifier and adds context to notifications
type ContextNotifier struct {
	underlying  Notifier
	cwdBasename string
	command     string
}

// NewContextNotifier creates a new context notifier. command names the
// watched program and may be empty.
func NewContextNotifier(underlying Notifier, command string) *ContextNotifier {
	cwd, err := os.Getwd()
	cwdBasename := ""
	if err == nil {
		cwdBasename = filepath.Base(cwd)
	}

	return &ContextNotifier{
		underlying:  underlying,
		cwdBasename: cwdBasename,
		command:     filepath.Base(strings.TrimSpace(command)),
	}
}

// Send implements the Notifier interface
func (cn *ContextNotifier) Send(notification Notification) error {
	context := cn.cwdBasename
	if cn.command != "" && cn.command != "." {
		if context != "" {
			context = context + " - " + cn.command
		} else {
			context = cn.command
		}
	}

	if context != "" {
		notification.Title = "idlewatch: " + context
	}

	return cn.underlying.Send(notification)
}
