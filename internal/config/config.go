// Package config handles application configuration from environment variables
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

// Config holds all application configuration
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	API       APIConfig
	Fetch     FetchConfig
	Cache     CacheConfig
	Anthropic AnthropicConfig

	AdminToken        string `env:"ADMIN_TOKEN"`
	RedisAddr         string `env:"REDIS_ADDR"`
	DatabaseURL       string `env:"DATABASE_URL"`
	WorkerConcurrency int    `env:"WORKER_CONCURRENCY" envDefault:"8"`
}

// APIConfig holds the HTTP server settings
type APIConfig struct {
	Host           string        `env:"API_HOST" envDefault:"0.0.0.0"`
	Port           int           `env:"API_PORT" envDefault:"8000"`
	CORSOrigins    []string      `env:"CORS_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`
}

// FetchConfig holds the page fetcher settings
type FetchConfig struct {
	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`
	MaxRetries         int `env:"FETCH_MAX_RETRIES" envDefault:"3"`
}

// CacheConfig holds the extraction cache settings
type CacheConfig struct {
	Enabled         bool          `env:"ENABLE_CACHE" envDefault:"true"`
	TTLSeconds      int           `env:"CACHE_TTL" envDefault:"3600"`
	MaxSize         int           `env:"CACHE_MAX_SIZE" envDefault:"1000"`
	CleanupInterval time.Duration `env:"CACHE_CLEANUP_INTERVAL" envDefault:"5m"`
}

// TTL returns the entry lifetime as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// AnthropicConfig holds the LLM provider settings
type AnthropicConfig struct {
	APIKey  string `env:"ANTHROPIC_API_KEY"`
	Model   string `env:"ANTHROPIC_MODEL" envDefault:"claude-3-5-sonnet-20241022"`
	BaseURL string `env:"ANTHROPIC_BASE_URL"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	return load(env.Options{})
}

// LoadFrom reads configuration from vars instead of the process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	return load(env.Options{Environment: vars})
}

func load(opts env.Options) (*Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Addr is the listen address of the API server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.API.Host, strconv.Itoa(c.API.Port))
}

// Level parses LogLevel, falling back to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// HasAnthropic returns true if an Anthropic API key is configured
func (c *Config) HasAnthropic() bool {
	return c.Anthropic.APIKey != ""
}

// HasQueue returns true if the asynq Redis address is configured
func (c *Config) HasQueue() bool {
	return c.RedisAddr != ""
}

// HasDatabase returns true if a Postgres URL is configured
func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

// HasJobs returns true if async parse jobs can be served
func (c *Config) HasJobs() bool {
	return c.HasQueue() && c.HasDatabase()
}

// IsProduction reports whether ENVIRONMENT is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Validate checks ranges that the environment parser cannot express
func (c *Config) Validate() error {
	var errs []error
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, fmt.Errorf("API_PORT must be between 1-65535, got %d", c.API.Port))
	}
	if c.API.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.API.RequestTimeout))
	}
	if c.Fetch.RateLimitPerMinute < 1 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_PER_MINUTE must be at least 1, got %d", c.Fetch.RateLimitPerMinute))
	}
	if c.Fetch.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("FETCH_MAX_RETRIES must not be negative, got %d", c.Fetch.MaxRetries))
	}
	if c.Cache.Enabled {
		if c.Cache.TTLSeconds < 1 {
			errs = append(errs, fmt.Errorf("CACHE_TTL must be at least 1 second, got %d", c.Cache.TTLSeconds))
		}
		if c.Cache.MaxSize < 1 {
			errs = append(errs, fmt.Errorf("CACHE_MAX_SIZE must be at least 1, got %d", c.Cache.MaxSize))
		}
		if c.Cache.CleanupInterval <= 0 {
			errs = append(errs, fmt.Errorf("CACHE_CLEANUP_INTERVAL must be positive, got %s", c.Cache.CleanupInterval))
		}
	}
	if c.WorkerConcurrency < 1 {
		errs = append(errs, fmt.Errorf("WORKER_CONCURRENCY must be at least 1, got %d", c.WorkerConcurrency))
	}
	return errors.Join(errs...)
}
