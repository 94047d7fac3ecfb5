// Package config loads SDK configuration from environment variables, with
// an optional .env file for local development.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the speech cloud SDK.
type Config struct {
	// Observability
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`        // debug, info, warn, error
	LogFormat      string `envconfig:"LOG_FORMAT" default:"json"`       // json, console
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"false"` // Serve Prometheus metrics
	MetricsAddr    string `envconfig:"METRICS_ADDR" default:":9090"`

	// Recognition backend
	STTProvider string `envconfig:"STT_PROVIDER" default:"mock"` // google, mock

	// Google Cloud Speech-to-Text v2
	GoogleProjectID       string `envconfig:"GOOGLE_PROJECT_ID" default:""`
	GoogleCredentialsFile string `envconfig:"GOOGLE_APPLICATION_CREDENTIALS" default:""`
	GoogleLocation        string `envconfig:"GOOGLE_SPEECH_LOCATION" default:"global"`
	GoogleRecognizer      string `envconfig:"GOOGLE_SPEECH_RECOGNIZER" default:"_"`
	GoogleModel           string `envconfig:"GOOGLE_SPEECH_MODEL" default:"long"`

	// Audio format
	LanguageCode  string `envconfig:"LANGUAGE_CODE" default:"en-US"`
	SampleRateHz  int    `envconfig:"SAMPLE_RATE_HZ" default:"16000"`
	AudioChannels int    `envconfig:"AUDIO_CHANNELS" default:"1"`

	// Stream resilience
	RetryMaxAttempts    int `envconfig:"RETRY_MAX_ATTEMPTS" default:"5"`
	RetryInitialBackoff int `envconfig:"RETRY_INITIAL_BACKOFF" default:"500"` // milliseconds
	RetryMaxBackoff     int `envconfig:"RETRY_MAX_BACKOFF" default:"10000"`   // milliseconds

	// Kafka event sink
	KafkaEnabled        bool     `envconfig:"KAFKA_ENABLED" default:"false"`
	KafkaBrokers        []string `envconfig:"KAFKA_BROKERS" default:""`
	KafkaTopicUpdated   string   `envconfig:"KAFKA_TOPIC_UPDATED" default:"transcript.updated"`
	KafkaTopicCompleted string   `envconfig:"KAFKA_TOPIC_COMPLETED" default:"transcript.completed"`
	KafkaPrincipal      string   `envconfig:"KAFKA_PRINCIPAL" default:"speech-cloud-sdk"`
}

// Load reads configuration from the environment, first merging in a .env
// file when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFromEnv()
}

// LoadFromEnv loads configuration from environment variables only, without
// consulting a .env file.
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints that envconfig tags cannot
// express.
func (c *Config) Validate() error {
	switch c.STTProvider {
	case "google", "mock":
	default:
		return fmt.Errorf("unknown STT_PROVIDER %q", c.STTProvider)
	}
	if c.STTProvider == "google" && c.GoogleProjectID == "" {
		return fmt.Errorf("GOOGLE_PROJECT_ID is required when STT_PROVIDER is google")
	}
	if c.SampleRateHz <= 0 {
		return fmt.Errorf("SAMPLE_RATE_HZ must be positive, got %d", c.SampleRateHz)
	}
	if c.AudioChannels <= 0 {
		return fmt.Errorf("AUDIO_CHANNELS must be positive, got %d", c.AudioChannels)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	return nil
}

// RetryInitialBackoffDuration returns the initial retry backoff.
func (c *Config) RetryInitialBackoffDuration() time.Duration {
	return time.Duration(c.RetryInitialBackoff) * time.Millisecond
}

// RetryMaxBackoffDuration returns the retry backoff ceiling.
func (c *Config) RetryMaxBackoffDuration() time.Duration {
	return time.Duration(c.RetryMaxBackoff) * time.Millisecond
}
