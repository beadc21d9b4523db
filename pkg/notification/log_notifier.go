package notification

import "github.com/sirupsen/logrus"

// LogNotifier writes notifications to a logger. It is used when no ntfy topic
// is configured.
type LogNotifier struct {
	log logrus.FieldLogger
}

// NewLogNotifier creates a new log notifier
func NewLogNotifier(log logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Send logs the notification at info level
func (n *LogNotifier) Send(notification Notification) error {
	n.log.WithFields(logrus.Fields{
		"title": notification.Title,
		"tag":   notification.Tag,
	}).Info(notification.Message)
	return nil
}
