package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Prediction: PredictionConfig{
			DaysAhead:         30,
			HistoryDays:       30,
			FallbackBasePrice: 500,
		},
		Cache: CacheConfig{
			TTLSeconds: 900,
			Prefix:     "fare_cache:",
			MaxEntries: 1000,
		},
		Retry: RetryConfig{
			MaxRetries:        3,
			BaseDelayMs:       1000,
			MaxDelayMs:        30000,
			AttemptTimeoutSec: 30,
		},
		OfflineQueue: OfflineQueueConfig{
			Capacity:    100,
			MaxAgeHours: 168,
		},
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "http://localhost:3001", cfg.FareAPI.ServiceURL)
	assert.Equal(t, 30, cfg.Prediction.DaysAhead)
	assert.Equal(t, 30, cfg.Prediction.HistoryDays)
	assert.InDelta(t, 500.0, cfg.Prediction.FallbackBasePrice, 1e-9)
	assert.Equal(t, 900, cfg.Cache.TTLSeconds)
	assert.Equal(t, "fare_cache:", cfg.Cache.Prefix)
	assert.Equal(t, 1000, cfg.Cache.MaxEntries)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, 100, cfg.OfflineQueue.Capacity)
	assert.Equal(t, 168, cfg.OfflineQueue.MaxAgeHours)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ENVIRONMENT", "Production")
	t.Setenv("CACHE_TTL_SECONDS", "300")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "production", cfg.Environment, "environment is normalized to lowercase")
	assert.Equal(t, 300, cfg.Cache.TTLSeconds)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validate(validConfig()))

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero days ahead", func(c *Config) { c.Prediction.DaysAhead = 0 }, "days_ahead"},
		{"zero history days", func(c *Config) { c.Prediction.HistoryDays = 0 }, "history_days"},
		{"zero fallback price", func(c *Config) { c.Prediction.FallbackBasePrice = 0 }, "fallback_base_price"},
		{"zero cache entries", func(c *Config) { c.Cache.MaxEntries = 0 }, "max_entries"},
		{"negative retries", func(c *Config) { c.Retry.MaxRetries = -1 }, "max_retries"},
		{"max delay below base", func(c *Config) { c.Retry.MaxDelayMs = 500 }, "retry delays"},
		{"zero queue capacity", func(c *Config) { c.OfflineQueue.Capacity = 0 }, "capacity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := validConfig()

	assert.Equal(t, time.Second, cfg.Retry.BaseDelay())
	assert.Equal(t, 30*time.Second, cfg.Retry.MaxDelay())
	assert.Equal(t, 30*time.Second, cfg.Retry.AttemptTimeout())
	assert.Equal(t, 15*time.Minute, cfg.Cache.TTL())
	assert.Equal(t, 7*24*time.Hour, cfg.OfflineQueue.MaxAge())
}
