package nutriplan

import (
	"errors"
	"time"

	"github.com/joeshaw/envdecode"
)

type ModelConfig struct {
	Provider  string        `env:"LLM_PROVIDER,default=ollama"`
	ModelID   string        `env:"MODEL_ID,default=llama3.1"`
	BaseURL   string        `env:"LLM_BASE_URL,default=http://localhost:11434"`
	APIKey    string        `env:"LLM_API_KEY"`
	MaxTokens int32         `env:"MAX_TOKENS,default=4096"`
	TopP      float32       `env:"TOP_P,default=0.9"`
	Timeout   time.Duration `env:"LLM_TIMEOUT,default=90s"`
}

type PlannerConfig struct {
	MaxAttempts           int           `env:"PLANNER_MAX_ATTEMPTS,default=3"`
	FirstTemperature      float64       `env:"PLANNER_FIRST_TEMPERATURE,default=0.4"`
	CorrectionTemperature float64       `env:"PLANNER_CORRECTION_TEMPERATURE,default=0.2"`
	AttemptTimeout        time.Duration `env:"PLANNER_ATTEMPT_TIMEOUT,default=0s"`
	Locale                string        `env:"PLAN_LOCALE,default=pt-PT"`
}

type StoreConfig struct {
	Driver      string        `env:"STORE_DRIVER,default=file"`
	FileDir     string        `env:"STORE_FILE_DIR,default=artifacts/plans"`
	SQLitePath  string        `env:"STORE_SQLITE_PATH,default=artifacts/plans.db"`
	PostgresURL string        `env:"STORE_POSTGRES_URL"`
	S3Bucket    string        `env:"STORE_S3_BUCKET"`
	S3Prefix    string        `env:"STORE_S3_PREFIX,default=plans"`
	RedisURL    string        `env:"STORE_REDIS_URL"`
	RedisTTL    time.Duration `env:"STORE_REDIS_TTL,default=10m"`
}

type SlackConfig struct {
	WebhookURL string `env:"SLACK_WEBHOOK_URL"`
	Channel    string `env:"SLACK_CHANNEL,default=#meal-plans"`
}

type Config struct {
	Model   ModelConfig
	Planner PlannerConfig
	Store   StoreConfig
	Slack   SlackConfig
}

// LoadConfig decodes the full configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, err
	}
	return cfg, nil
}
