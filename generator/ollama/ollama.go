// Package ollama generates plans through a local Ollama chat endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"nutriplan"
)

type options struct {
	Temperature   float64 `json:"temperature"`
	TopP          float64 `json:"top_p,omitempty"`
	RepeatPenalty float64 `json:"repeat_penalty,omitempty"`
	NumCtx        int     `json:"num_ctx,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Format   string    `json:"format,omitempty"`
	Stream   bool      `json:"stream"`
	Options  options   `json:"options"`
}

type wireResponse struct {
	Message message `json:"message"`
	Done    bool    `json:"done"`
}

type Client struct {
	endpoint   string
	model      string
	httpClient nutriplan.HTTPClient
	options    options
}

type ClientOpts struct {
	BaseEndpoint string
	ModelID      string
	TopP         float64
	HTTPClient   nutriplan.HTTPClient
}

func NewClient(opts ClientOpts) (*Client, error) {
	if strings.TrimSpace(opts.ModelID) == "" {
		return nil, fmt.Errorf("model id is required")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.TopP == 0 {
		opts.TopP = 0.9
	}

	return &Client{
		model:      opts.ModelID,
		httpClient: opts.HTTPClient,
		endpoint:   strings.TrimRight(opts.BaseEndpoint, "/") + "/api/chat",
		options: options{
			TopP:          opts.TopP,
			RepeatPenalty: 1.05,
			NumCtx:        16384,
		},
	}, nil
}

// Generate sends the instructions as a system+user chat and returns the assistant content verbatim.
func (c *Client) Generate(ctx context.Context, in nutriplan.Instructions, temperature float64) (string, error) {
	slog.Info("GENERATOR: Invoked", "provider", "ollama", "model", c.model, "temperature", temperature)

	opts := c.options
	opts.Temperature = temperature

	reqBytes, err := json.Marshal(wireRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: in.System},
			{Role: "user", Content: in.User},
		},
		Format:  "json",
		Stream:  false,
		Options: opts,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(reqBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama: %s: %s", resp.Status, string(body))
	}

	var wr wireResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		slog.Warn("GENERATOR: decode failed, returning raw body", "provider", "ollama", "error", err)
		return string(body), nil
	}

	slog.Info("GENERATOR: Response received", "provider", "ollama", "content_length", len(wr.Message.Content))
	return wr.Message.Content, nil
}
