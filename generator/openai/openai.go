// Package openai generates plans through an OpenAI-compatible chat completions endpoint.
package openai

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

const (
	defaultBaseURL   = "https://api.openai.com/v1"
	defaultModelID   = "gpt-4o-mini"
	defaultMaxTokens = 4096
	defaultTopP      = 0.9
)

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type wireRequest struct {
	Model          string         `json:"model"`
	Messages       []message      `json:"messages"`
	Temperature    float64        `json:"temperature"`
	TopP           float64        `json:"top_p,omitempty"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
	ResponseFormat responseFormat `json:"response_format"`
}

type wireResponse struct {
	Choices []struct {
		Message      message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type ClientOpts struct {
	BaseURL    string
	APIKey     string
	ModelID    string
	MaxTokens  int
	TopP       float64
	HTTPClient nutriplan.HTTPClient
}

type Client struct {
	endpoint   string
	apiKey     string
	opts       ClientOpts
	httpClient nutriplan.HTTPClient
}

func NewClient(opts ClientOpts) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.ModelID == "" {
		opts.ModelID = defaultModelID
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.TopP == 0 {
		opts.TopP = defaultTopP
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	return &Client{
		endpoint:   strings.TrimRight(opts.BaseURL, "/") + "/chat/completions",
		apiKey:     opts.APIKey,
		opts:       opts,
		httpClient: opts.HTTPClient,
	}
}

// Generate requests a JSON-object completion and returns the first choice's content.
func (c *Client) Generate(ctx context.Context, in nutriplan.Instructions, temperature float64) (string, error) {
	slog.Info("GENERATOR: Invoked", "provider", "openai", "model", c.opts.ModelID, "temperature", temperature)

	reqBytes, err := json.Marshal(wireRequest{
		Model: c.opts.ModelID,
		Messages: []message{
			{Role: "system", Content: in.System},
			{Role: "user", Content: in.User},
		},
		Temperature:    temperature,
		TopP:           c.opts.TopP,
		MaxTokens:      c.opts.MaxTokens,
		ResponseFormat: responseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(reqBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai: %s: %s", resp.Status, string(body))
	}

	var wr wireResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		return "", fmt.Errorf("openai: failed to decode response: %w", err)
	}
	if len(wr.Choices) == 0 {
		return "", fmt.Errorf("openai: response has no choices")
	}

	choice := wr.Choices[0]
	slog.Info("GENERATOR: Response received",
		"provider", "openai",
		"finish_reason", choice.FinishReason,
		"input_tokens", wr.Usage.PromptTokens,
		"output_tokens", wr.Usage.CompletionTokens,
	)
	if choice.FinishReason == "length" {
		slog.Warn("GENERATOR: Completion hit the token limit; output is probably truncated", "max_tokens", c.opts.MaxTokens)
	}

	return choice.Message.Content, nil
}
