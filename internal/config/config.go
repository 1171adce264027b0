package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port               string `envconfig:"PORT" default:"8080"`
	Environment        string `envconfig:"ENV" default:"development"`
	DBConnectionString string `envconfig:"DATABASE_URL" required:"true"`
	JWTSecret          string `envconfig:"JWT_SECRET" required:"true"`

	S3URL       string `envconfig:"S3_URL" required:"true"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"replays"`
	S3Region    string `envconfig:"S3_REGION" required:"true"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY" required:"true"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY" required:"true"`

	GCPProjectID                  string `envconfig:"GCP_PROJECT_ID" required:"true"`
	PubSubEmulatorHost            string `envconfig:"PUBSUB_EMULATOR_HOST"`
	PubSubPushServiceAccountEmail string `envconfig:"PUBSUB_PUSH_SERVICE_ACCOUNT_EMAIL"`
	PubSubRotationTopic           string `envconfig:"PUBSUB_ROTATION_TOPIC" default:"usage-rotation"`
	RotationEndpointURL           string `envconfig:"ROTATION_ENDPOINT_URL"`

	// Coach model settings
	OpenAIAPIKey       string `envconfig:"OPENAI_API_KEY"`
	OpenAIAPIKeySecret string `envconfig:"OPENAI_API_KEY_SECRET_NAME"`
	OpenAIModel        string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`

	FreePlanID string `envconfig:"FREE_PLAN_ID" default:"free"`

	// Usage metering settings
	UsageQueueName          string `envconfig:"USAGE_QUEUE_NAME" default:"usage_deltas"`
	UsageDeadLetterQueue    string `envconfig:"USAGE_DEAD_LETTER_QUEUE_NAME" default:"usage_deltas_dlq"`
	UsageFlushIntervalSec   int    `envconfig:"USAGE_FLUSH_INTERVAL_SEC" default:"30"`
	UsageFlushMaxAccounts   int    `envconfig:"USAGE_FLUSH_MAX_ACCOUNTS" default:"50"`
	UsageFlushTimeoutSec    int    `envconfig:"USAGE_FLUSH_TIMEOUT_SEC" default:"10"`
	UsageStalePeriodMode    string `envconfig:"USAGE_STALE_PERIOD_MODE" default:"optimistic"`

	// Usage aggregator settings
	UsagePollTimeoutSec    int `envconfig:"USAGE_POLL_TIMEOUT_SEC" default:"30"`
	UsagePollMaxMsg        int `envconfig:"USAGE_POLL_MAX_MSG" default:"10"`
	UsageMaxRetries        int `envconfig:"USAGE_MAX_RETRIES" default:"5"`
	UsageBackoffInitialSec int `envconfig:"USAGE_BACKOFF_INITIAL_SEC" default:"1"`
	UsageBackoffMaxSec     int `envconfig:"USAGE_BACKOFF_MAX_SEC" default:"60"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
