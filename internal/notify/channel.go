package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aypapol/panel/internal/model"
	"github.com/aypapol/panel/internal/store"
)

const notifyTimeout = 5 * time.Second

// ChannelNotifier posts rich messages to a chat API, using a bot token and
// channel ids pulled from BotSettings.
type ChannelNotifier struct {
	Settings   store.BotSettingsStore
	APIBaseURL string // e.g. a Discord-compatible "post message" endpoint
	BotToken   string
	httpClient *http.Client
}

func NewChannelNotifier(settings store.BotSettingsStore, apiBaseURL, botToken string) *ChannelNotifier {
	return &ChannelNotifier{
		Settings:   settings,
		APIBaseURL: apiBaseURL,
		BotToken:   botToken,
		httpClient: &http.Client{Timeout: notifyTimeout},
	}
}

func (n *ChannelNotifier) Crash(ctx context.Context, serverName string) error {
	channelID, err := n.Settings.Get(ctx, model.BotSettingCrashesChannelID)
	if err != nil {
		return fmt.Errorf("resolve crashes channel: %w", err)
	}
	return n.post(ctx, channelID, fmt.Sprintf(":warning: **%s** crashed unexpectedly", serverName))
}

func (n *ChannelNotifier) Error(ctx context.Context, payload ErrorPayload) error {
	channelID, err := n.Settings.Get(ctx, model.BotSettingErrorsChannelID)
	if err != nil {
		return fmt.Errorf("resolve errors channel: %w", err)
	}
	msg := payload.Message
	if payload.Component != "" {
		msg = fmt.Sprintf("[%s] %s", payload.Component, msg)
	}
	return n.post(ctx, channelID, msg)
}

func (n *ChannelNotifier) post(ctx context.Context, channelID, content string) error {
	if n.APIBaseURL == "" {
		return fmt.Errorf("channel notifier not configured")
	}

	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/channels/%s/messages", n.APIBaseURL, channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bot "+n.BotToken)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("channel post failed: status %d", resp.StatusCode)
	}
	return nil
}
