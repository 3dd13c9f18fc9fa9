// Package bedrock generates plans through the AWS Bedrock Converse API.
package bedrock

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"nutriplan"
)

const (
	// defaultModelID is an inference profile ID, not a foundation model ID.
	defaultModelID = "us.anthropic.claude-3-7-sonnet-20250219-v1:0"

	// A full day plan with swap options is long; 1k tokens truncates it.
	defaultMaxTokens = 4096

	defaultTopP = 0.9
)

var (
	errMaxTokens = errors.New("model hit the MaxTokens limit")
	errFiltered  = errors.New("model response blocked by Bedrock safety filters")
)

type bedrockRuntimeClient interface {
	Converse(context.Context, *bedrockruntime.ConverseInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

type Options struct {
	ModelID   string
	MaxTokens int32
	TopP      float32
}

type Client struct {
	brc  bedrockRuntimeClient
	opts Options
}

func NewClient(brc bedrockRuntimeClient, opts Options) *Client {
	if opts.ModelID == "" {
		opts.ModelID = defaultModelID
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.TopP == 0 {
		opts.TopP = defaultTopP
	}
	return &Client{
		brc:  brc,
		opts: opts,
	}
}

// Generate sends one user turn with the system block and returns the assistant text.
func (c *Client) Generate(ctx context.Context, in nutriplan.Instructions, temperature float64) (string, error) {
	slog.Info("GENERATOR: Invoked", "provider", "bedrock", "model", c.opts.ModelID, "temperature", temperature)

	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.opts.ModelID),
		System:  []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: in.System}},
		Messages: []types.Message{{
			Role:    types.ConversationRoleUser,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: in.User}},
		}},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(c.opts.MaxTokens),
			Temperature: aws.Float32(float32(temperature)),
			TopP:        aws.Float32(c.opts.TopP),
		},
	}

	out, err := c.brc.Converse(ctx, input)
	if err != nil {
		slog.Error("GENERATOR: Bedrock converse failed", "error", err, "model", c.opts.ModelID)
		return "", err
	}

	attrs := []any{"provider", "bedrock", "stop_reason", out.StopReason}
	if out.Metrics != nil {
		attrs = append(attrs, "latency_ms", aws.ToInt64(out.Metrics.LatencyMs))
	}
	if out.Usage != nil {
		attrs = append(attrs,
			"input_tokens", aws.ToInt32(out.Usage.InputTokens),
			"output_tokens", aws.ToInt32(out.Usage.OutputTokens),
		)
	}
	slog.Info("GENERATOR: Response received", attrs...)

	switch out.StopReason {
	case types.StopReasonMaxTokens:
		slog.Warn("GENERATOR: Model hit MaxTokens limit; consider raising MAX_TOKENS", "max_tokens", c.opts.MaxTokens)
		return "", errMaxTokens
	case types.StopReasonGuardrailIntervened, types.StopReasonContentFiltered:
		return "", errFiltered
	}

	return textFromOutput(out), nil
}

// textFromOutput prefers the last text block that looks like a JSON object and otherwise joins
// every text block with newlines.
func textFromOutput(out *bedrockruntime.ConverseOutput) string {
	if out == nil || out.Output == nil {
		return ""
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok || msg == nil {
		return ""
	}

	texts := make([]string, 0, len(msg.Value.Content))
	for _, cb := range msg.Value.Content {
		if t, ok := cb.(*types.ContentBlockMemberText); ok && t != nil && t.Value != "" {
			texts = append(texts, t.Value)
		}
	}

	for i := len(texts) - 1; i >= 0; i-- {
		s := strings.TrimSpace(texts[i])
		if len(s) > 1 && s[0] == '{' && s[len(s)-1] == '}' {
			return s
		}
	}
	return strings.Join(texts, "\n")
}
