package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const ntfyTimeout = 10 * time.Second

// NtfyClient publishes notifications to an ntfy server
type NtfyClient struct {
	server string
	topic  string
	client *http.Client
}

// ntfyMessage is the JSON publish payload understood by ntfy
type ntfyMessage struct {
	Topic   string   `json:"topic"`
	Title   string   `json:"title,omitempty"`
	Message string   `json:"message"`
	Tags    []string `json:"tags,omitempty"`
}

// NewNtfyClient creates a new ntfy client
func NewNtfyClient(server, topic string) *NtfyClient {
	return &NtfyClient{
		server: strings.TrimRight(server, "/"),
		topic:  topic,
		client: &http.Client{Timeout: ntfyTimeout},
	}
}

// Send publishes the notification
func (c *NtfyClient) Send(notification Notification) error {
	msg := ntfyMessage{
		Topic:   c.topic,
		Title:   notification.Title,
		Message: notification.Message,
	}
	if notification.Tag != "" {
		msg.Tags = []string{notification.Tag}
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.server+"/", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ntfy returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	return nil
}
