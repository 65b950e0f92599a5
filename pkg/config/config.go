// Package config loads the service configuration from a YAML file, with
// environment variable fallbacks for secrets and connection details.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	// HTTP
	Port int `yaml:"port"`

	// Redis session store
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	SessionPrefix string `yaml:"session_prefix"`
	// SessionTTLSeconds is the sliding session expiry (default 86400).
	SessionTTLSeconds int `yaml:"session_ttl_seconds"`

	// Intent classifier
	OpenAIKey   string `yaml:"openai_key"`
	IntentModel string `yaml:"intent_model"`

	// Chat endpoint throttling, per session
	RateLimitPerSecond float64 `yaml:"rate_limit_per_second"`
	RateLimitBurst     int     `yaml:"rate_limit_burst"`

	// Quote API
	QuoteBaseURL string `yaml:"quote_base_url"`
	// QuoteStub serves canned quote responses instead of calling the
	// provider. Enabled by default for local development.
	QuoteStub bool `yaml:"quote_stub"`
}

// Load reads configuration from a YAML file. A missing path yields a config
// built purely from defaults and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Environment fallbacks
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	}
	if cfg.RedisPassword == "" {
		cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	}
	if cfg.OpenAIKey == "" {
		cfg.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.QuoteBaseURL == "" {
		cfg.QuoteBaseURL = os.Getenv("QUOTE_API_BASE_URL")
	}
	if v := os.Getenv("QUOTE_STUB"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.QuoteStub = b
		}
	}

	// Defaults
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	if cfg.SessionPrefix == "" {
		cfg.SessionPrefix = "session:"
	}
	if cfg.SessionTTLSeconds == 0 {
		cfg.SessionTTLSeconds = 86400
	}
	if cfg.IntentModel == "" {
		cfg.IntentModel = "gpt-4o-mini"
	}
	if cfg.RateLimitPerSecond == 0 {
		cfg.RateLimitPerSecond = 5
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 10
	}
	if cfg.QuoteBaseURL == "" {
		cfg.QuoteBaseURL = "https://api-sandbox.example.com"
	}

	return &cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.RedisAddr == "" {
		return fmt.Errorf("redis_addr is required")
	}
	if c.OpenAIKey == "" {
		return fmt.Errorf("openai_key is required")
	}
	if !c.QuoteStub && c.QuoteBaseURL == "" {
		return fmt.Errorf("quote_base_url is required when quote_stub is disabled")
	}
	if c.SessionTTLSeconds < 0 {
		return fmt.Errorf("session_ttl_seconds must be non-negative")
	}
	return nil
}
