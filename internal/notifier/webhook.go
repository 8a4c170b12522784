package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WebhookPayload represents the payload sent to webhooks. Text makes the
// payload directly usable as a Slack incoming webhook.
type WebhookPayload struct {
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Text      string    `json:"text"`
}

// WebhookNotifier posts a JSON payload per Send
type WebhookNotifier struct {
	url    string
	source string
	client *http.Client
	now    func() time.Time
}

// NewWebhook creates a WebhookNotifier
func NewWebhook(url, source string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		source: source,
		client: &http.Client{Timeout: 30 * time.Second},
		now:    time.Now,
	}
}

// Send implements Notifier
func (n *WebhookNotifier) Send(ctx context.Context, subject, body string) error {
	payload := WebhookPayload{
		Timestamp: n.now().UTC(),
		Source:    n.source,
		Subject:   subject,
		Body:      body,
		Text:      fmt.Sprintf("*%s*\n%s", subject, body),
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned error status: %d", resp.StatusCode)
	}

	return nil
}
