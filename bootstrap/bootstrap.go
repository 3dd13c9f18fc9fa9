// Package bootstrap builds the configured collaborators for the entry points.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"nutriplan"
	"nutriplan/generator/bedrock"
	"nutriplan/generator/mock"
	"nutriplan/generator/ollama"
	"nutriplan/generator/openai"
	"nutriplan/slack"
	"nutriplan/storage"
)

// LoadAWSConfig is swapped in tests so no credentials chain is consulted.
var LoadAWSConfig = func(ctx context.Context) (aws.Config, error) {
	return config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(5))
}

// NewGenerator returns the Generator selected by LLM_PROVIDER.
func NewGenerator(ctx context.Context, cfg nutriplan.ModelConfig) (nutriplan.Generator, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout}

	switch cfg.Provider {
	case "ollama":
		slog.Info("SETUP: Using Ollama generator", "model", cfg.ModelID, "base_url", cfg.BaseURL)
		return ollama.NewClient(ollama.ClientOpts{
			BaseEndpoint: cfg.BaseURL,
			ModelID:      cfg.ModelID,
			TopP:         float64(cfg.TopP),
			HTTPClient:   httpClient,
		})

	case "openai":
		slog.Info("SETUP: Using OpenAI-compatible generator", "model", cfg.ModelID, "base_url", cfg.BaseURL)
		return openai.NewClient(openai.ClientOpts{
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			ModelID:    cfg.ModelID,
			MaxTokens:  int(cfg.MaxTokens),
			TopP:       float64(cfg.TopP),
			HTTPClient: httpClient,
		}), nil

	case "bedrock":
		awsCfg, err := LoadAWSConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		slog.Info("SETUP: Using Bedrock generator", "model", cfg.ModelID, "region", awsCfg.Region)
		return bedrock.NewClient(bedrockruntime.NewFromConfig(awsCfg), bedrock.Options{
			ModelID:   cfg.ModelID,
			MaxTokens: cfg.MaxTokens,
			TopP:      cfg.TopP,
		}), nil

	case "mock":
		slog.Info("SETUP: Using mock generator")
		return mock.NewGenerator(), nil

	default:
		return nil, fmt.Errorf("unknown LLM provider %q (want ollama, openai, bedrock or mock)", cfg.Provider)
	}
}

// NewStore returns the PlanStore selected by STORE_DRIVER, wrapped in the Redis cache when
// STORE_REDIS_URL is set. The returned close function releases every connection it opened.
func NewStore(ctx context.Context, cfg nutriplan.StoreConfig) (nutriplan.PlanStore, func() error, error) {
	var (
		store   nutriplan.PlanStore
		closers []func() error
	)

	switch cfg.Driver {
	case "memory":
		store = storage.NewMemoryStore()

	case "file":
		store = storage.NewFileStore(cfg.FileDir)

	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		s, err := storage.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		store = s
		closers = append(closers, s.Close)

	case "postgres":
		if cfg.PostgresURL == "" {
			return nil, nil, errors.New("STORE_POSTGRES_URL is required for the postgres store")
		}
		s, err := storage.NewPostgresStore(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		store = s
		closers = append(closers, func() error { s.Close(); return nil })

	case "s3":
		if cfg.S3Bucket == "" {
			return nil, nil, errors.New("STORE_S3_BUCKET is required for the s3 store")
		}
		awsCfg, err := LoadAWSConfig(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		store = storage.NewS3Store(s3.NewFromConfig(awsCfg), cfg.S3Bucket, cfg.S3Prefix)

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q (want memory, file, sqlite, postgres or s3)", cfg.Driver)
	}

	if cfg.RedisURL != "" {
		client, err := storage.ConnectRedis(cfg.RedisURL)
		if err != nil {
			return nil, nil, errors.Join(err, closeAll(closers))
		}
		store = storage.NewCachedStore(store, client, cfg.RedisTTL)
		closers = append(closers, client.Close)
		slog.Info("SETUP: Redis plan cache enabled", "ttl", cfg.RedisTTL)
	}

	slog.Info("SETUP: Plan store initialized", "driver", cfg.Driver)
	return store, func() error { return closeAll(closers) }, nil
}

// NewSlackClient returns nil when no webhook is configured.
func NewSlackClient(cfg nutriplan.SlackConfig, timeoutClient *http.Client) nutriplan.SlackClient {
	if cfg.WebhookURL == "" {
		return nil
	}
	return slack.NewClient(cfg.WebhookURL, cfg.Channel, timeoutClient)
}

func closeAll(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		errs = append(errs, closers[i]())
	}
	return errors.Join(errs...)
}
