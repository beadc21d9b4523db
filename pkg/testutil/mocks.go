package testutil

import (
	"sync"
	"time"

	"github.com/Veraticus/idlewatch/pkg/inactivity"
	"github.com/Veraticus/idlewatch/pkg/notification"
)

// MockNotifier is a thread-safe mock implementation of notification.Notifier for testing
type MockNotifier struct {
	mu            sync.Mutex
	notifications []notification.Notification
	attempts      []notification.Notification // Track all send attempts
	sendErr       error
	sendDelay     time.Duration
}

// NewMockNotifier creates a new mock notifier
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{
		notifications: []notification.Notification{},
		attempts:      []notification.Notification{},
	}
}

// Send implements the Notifier interface
func (m *MockNotifier) Send(n notification.Notification) error {
	if m.sendDelay > 0 {
		time.Sleep(m.sendDelay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Always track the attempt
	m.attempts = append(m.attempts, n)

	if m.sendErr != nil {
		return m.sendErr
	}

	m.notifications = append(m.notifications, n)
	return nil
}

// GetNotifications returns a copy of successfully sent notifications
func (m *MockNotifier) GetNotifications() []notification.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]notification.Notification, len(m.notifications))
	copy(result, m.notifications)
	return result
}

// GetAttempts returns a copy of all attempted sends (including failures)
func (m *MockNotifier) GetAttempts() []notification.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]notification.Notification, len(m.attempts))
	copy(result, m.attempts)
	return result
}

// SetError sets the error to return on Send calls
func (m *MockNotifier) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

// SetDelay sets a delay before each Send call
func (m *MockNotifier) SetDelay(delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendDelay = delay
}

// Clear resets the mock state
func (m *MockNotifier) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = []notification.Notification{}
	m.attempts = []notification.Notification{}
	m.sendErr = nil
	m.sendDelay = 0
}

// MockEventHandler records the input events it is handed
type MockEventHandler struct {
	mu          sync.Mutex
	events      []inactivity.Event
	accept      bool
	handleCount int
}

// NewMockEventHandler creates a new mock event handler
func NewMockEventHandler(accept bool) *MockEventHandler {
	return &MockEventHandler{
		accept: accept,
	}
}

// Handle records the event and reports whether it was accepted
func (m *MockEventHandler) Handle(e inactivity.Event) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handleCount++
	if m.accept {
		m.events = append(m.events, e)
	}
	return m.accept
}

// SetAccept sets the result that Handle will return
func (m *MockEventHandler) SetAccept(accept bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accept = accept
}

// GetEvents returns a copy of accepted events
func (m *MockEventHandler) GetEvents() []inactivity.Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]inactivity.Event, len(m.events))
	copy(result, m.events)
	return result
}

// GetHandleCount returns how many times Handle was called
func (m *MockEventHandler) GetHandleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handleCount
}
