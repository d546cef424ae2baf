package client

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimeout           = 30 * time.Second
	defaultMaxRetries        = 3
	defaultRetryBaseDelay    = 200 * time.Millisecond
	defaultRequestsPerSecond = 25.0
	defaultBurst             = 50
	defaultPageSize          = 300
)

// Environment variables read by FromEnv.
const (
	EnvBaseURL = "METALAKE_BASE_URL"
	EnvAPIKey  = "METALAKE_API_KEY"
)

// Config holds catalog connection configuration.
type Config struct {
	BaseURL           string        `yaml:"base_url"`
	APIKey            string        `yaml:"api_key"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	RetryBaseDelay    time.Duration `yaml:"retry_base_delay"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	PageSize          int           `yaml:"page_size"`

	// HTTPClient overrides the transport. Optional.
	HTTPClient *http.Client `yaml:"-"`

	// Logger receives request diagnostics. Defaults to slog.Default().
	Logger *slog.Logger `yaml:"-"`
}

// LoadConfig reads a Config from a YAML file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		BaseURL: os.Getenv(EnvBaseURL),
		APIKey:  os.Getenv(EnvAPIKey),
	}
}

// withDefaults fills zero values.
func (c Config) withDefaults() Config {
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.RetryBaseDelay == 0 {
		c.RetryBaseDelay = defaultRetryBaseDelay
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = defaultRequestsPerSecond
	}
	if c.Burst == 0 {
		c.Burst = defaultBurst
	}
	if c.PageSize == 0 {
		c.PageSize = defaultPageSize
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}
