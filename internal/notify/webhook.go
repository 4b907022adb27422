package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// WebhookNotifier posts a generic JSON payload to a configured webhook URL.
type WebhookNotifier struct {
	URL        string
	httpClient *http.Client
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{URL: url, httpClient: &http.Client{Timeout: notifyTimeout}}
}

func (n *WebhookNotifier) Crash(ctx context.Context, serverName string) error {
	return n.post(ctx, map[string]string{
		"type":        "crash",
		"server_name": serverName,
	})
}

func (n *WebhookNotifier) Error(ctx context.Context, payload ErrorPayload) error {
	return n.post(ctx, map[string]any{
		"type":    "error",
		"payload": payload,
	})
}

func (n *WebhookNotifier) post(ctx context.Context, body any) error {
	if n.URL == "" {
		return fmt.Errorf("webhook notifier not configured")
	}

	b, err := json.Marshal(body)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook post failed: status %d", resp.StatusCode)
	}
	return nil
}
