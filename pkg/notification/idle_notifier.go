package notification

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// IdleTag marks notifications sent for inactivity
const IdleTag = "idle"

// IdleNotifier turns inactivity callbacks into notifications.
type IdleNotifier struct {
	notifier Notifier
	log      logrus.FieldLogger
	limit    func() time.Duration
	now      func() time.Time
}

// NewIdleNotifier creates an idle notifier. limit reports the inactivity
// limit in effect, for the message text.
func NewIdleNotifier(notifier Notifier, log logrus.FieldLogger, limit func() time.Duration) *IdleNotifier {
	return &IdleNotifier{
		notifier: notifier,
		log:      log,
		limit:    limit,
		now:      time.Now,
	}
}

// HandleIdle is the inactivity callback. Send errors are logged, not returned.
func (n *IdleNotifier) HandleIdle(idle bool) {
	if !idle {
		return
	}

	message := "No input activity detected"
	if n.limit != nil {
		message = fmt.Sprintf("No input activity for %s", n.limit())
	}

	err := n.notifier.Send(Notification{
		Title:   "idlewatch: inactive",
		Message: message,
		Time:    n.now(),
		Tag:     IdleTag,
	})
	if err != nil {
		n.log.WithError(err).Warn("failed to send idle notification")
	}
}
