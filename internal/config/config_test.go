package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "0.0.0.0:8000", cfg.Addr())
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.API.CORSOrigins)
	assert.Equal(t, 60*time.Second, cfg.API.RequestTimeout)
	assert.Equal(t, 30, cfg.Fetch.RateLimitPerMinute)
	assert.Equal(t, 3, cfg.Fetch.MaxRetries)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, time.Hour, cfg.Cache.TTL())
	assert.Equal(t, 1000, cfg.Cache.MaxSize)
	assert.Equal(t, 5*time.Minute, cfg.Cache.CleanupInterval)
	assert.Equal(t, "claude-3-5-sonnet-20241022", cfg.Anthropic.Model)
	assert.Equal(t, 8, cfg.WorkerConcurrency)
	assert.Equal(t, zerolog.InfoLevel, cfg.Level())

	assert.False(t, cfg.HasAnthropic())
	assert.False(t, cfg.HasQueue())
	assert.False(t, cfg.HasDatabase())
	assert.False(t, cfg.HasJobs())
	assert.False(t, cfg.IsProduction())
}

func TestLoad(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"ENVIRONMENT":            "production",
		"LOG_LEVEL":              "debug",
		"API_HOST":               "127.0.0.1",
		"API_PORT":               "9090",
		"CORS_ORIGINS":           "https://a.example,https://b.example",
		"REQUEST_TIMEOUT":        "15s",
		"RATE_LIMIT_PER_MINUTE":  "10",
		"FETCH_MAX_RETRIES":      "0",
		"ENABLE_CACHE":           "false",
		"CACHE_TTL":              "60",
		"CACHE_MAX_SIZE":         "5",
		"CACHE_CLEANUP_INTERVAL": "30s",
		"ANTHROPIC_API_KEY":      "sk-test",
		"ANTHROPIC_BASE_URL":     "http://localhost:4010",
		"ADMIN_TOKEN":            "secret",
		"REDIS_ADDR":             "localhost:6379",
		"DATABASE_URL":           "postgres://localhost/tripparse",
		"WORKER_CONCURRENCY":     "2",
	})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Addr())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.API.CORSOrigins)
	assert.Equal(t, 15*time.Second, cfg.API.RequestTimeout)
	assert.Equal(t, 10, cfg.Fetch.RateLimitPerMinute)
	assert.Equal(t, 0, cfg.Fetch.MaxRetries)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, time.Minute, cfg.Cache.TTL())
	assert.Equal(t, zerolog.DebugLevel, cfg.Level())
	assert.Equal(t, "secret", cfg.AdminToken)
	assert.Equal(t, 2, cfg.WorkerConcurrency)

	assert.True(t, cfg.HasAnthropic())
	assert.True(t, cfg.HasJobs())
	assert.True(t, cfg.IsProduction())
}

func TestLoadFromProcessEnvironment(t *testing.T) {
	t.Setenv("API_PORT", "8123")
	t.Setenv("ANTHROPIC_API_KEY", "sk-env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8123, cfg.API.Port)
	assert.True(t, cfg.HasAnthropic())
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{"port not a number", map[string]string{"API_PORT": "http"}},
		{"port out of range", map[string]string{"API_PORT": "70000"}},
		{"bad duration", map[string]string{"REQUEST_TIMEOUT": "soon"}},
		{"zero rate", map[string]string{"RATE_LIMIT_PER_MINUTE": "0"}},
		{"negative retries", map[string]string{"FETCH_MAX_RETRIES": "-1"}},
		{"zero ttl", map[string]string{"CACHE_TTL": "0"}},
		{"zero size", map[string]string{"CACHE_MAX_SIZE": "0"}},
		{"zero workers", map[string]string{"WORKER_CONCURRENCY": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(tt.vars)
			assert.Error(t, err)
		})
	}
}

func TestDisabledCacheSkipsCacheValidation(t *testing.T) {
	_, err := LoadFrom(map[string]string{"ENABLE_CACHE": "false", "CACHE_TTL": "0", "CACHE_MAX_SIZE": "0"})
	assert.NoError(t, err)
}

func TestLevelFallback(t *testing.T) {
	cfg := &Config{LogLevel: "loud"}
	assert.Equal(t, zerolog.InfoLevel, cfg.Level())
}
