// Package slack posts messages to an incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type payload struct {
	Channel string `json:"channel,omitempty"`
	Text    string `json:"text"`
	Mrkdwn  bool   `json:"mrkdwn"`
}

type Client struct {
	webhookURL     string
	defaultChannel string
	httpClient     doer
}

// NewClient builds a webhook client. defaultChannel is used when PostMessage gets an empty channel;
// when both are empty the webhook's own channel applies.
func NewClient(webhookURL, defaultChannel string, httpClient doer) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		webhookURL:     webhookURL,
		defaultChannel: defaultChannel,
		httpClient:     httpClient,
	}
}

func (c *Client) PostMessage(ctx context.Context, channel string, message string) error {
	if strings.TrimSpace(message) == "" {
		return fmt.Errorf("refusing to post an empty message")
	}
	if channel == "" {
		channel = c.defaultChannel
	}

	body, err := json.Marshal(payload{Channel: channel, Text: message, Mrkdwn: true})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("failed to post message: %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	slog.Info("SLACK: Message posted", "channel", channel, "size_bytes", len(message))
	return nil
}
