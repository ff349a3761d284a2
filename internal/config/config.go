package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment  string             `mapstructure:"environment"`
	LogLevel     string             `mapstructure:"log_level"`
	Server       ServerConfig       `mapstructure:"server"`
	Redis        RedisConfig        `mapstructure:"redis"`
	FareAPI      FareAPIConfig      `mapstructure:"fare_api"`
	Prediction   PredictionConfig   `mapstructure:"prediction"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Retry        RetryConfig        `mapstructure:"retry"`
	OfflineQueue OfflineQueueConfig `mapstructure:"offline_queue"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// FareAPIConfig points at the external fare-history aggregator service.
type FareAPIConfig struct {
	ServiceURL string `mapstructure:"service_url"`
	Timeout    int    `mapstructure:"timeout"`
}

type PredictionConfig struct {
	DaysAhead         int     `mapstructure:"days_ahead"`
	HistoryDays       int     `mapstructure:"history_days"`
	FallbackBasePrice float64 `mapstructure:"fallback_base_price"`
}

type CacheConfig struct {
	TTLSeconds int    `mapstructure:"ttl_seconds"`
	Prefix     string `mapstructure:"prefix"`
	MaxEntries int    `mapstructure:"max_entries"`
}

type RetryConfig struct {
	MaxRetries        int `mapstructure:"max_retries"`
	BaseDelayMs       int `mapstructure:"base_delay_ms"`
	MaxDelayMs        int `mapstructure:"max_delay_ms"`
	AttemptTimeoutSec int `mapstructure:"attempt_timeout_sec"`
}

type OfflineQueueConfig struct {
	Capacity    int `mapstructure:"capacity"`
	MaxAgeHours int `mapstructure:"max_age_hours"`
}

// BaseDelay returns the initial backoff delay as a duration.
func (r RetryConfig) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelayMs) * time.Millisecond
}

// MaxDelay returns the backoff delay cap as a duration.
func (r RetryConfig) MaxDelay() time.Duration {
	return time.Duration(r.MaxDelayMs) * time.Millisecond
}

// AttemptTimeout returns the per-attempt abort timeout as a duration.
func (r RetryConfig) AttemptTimeout() time.Duration {
	return time.Duration(r.AttemptTimeoutSec) * time.Second
}

// TTL returns the default cache TTL as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// MaxAge returns the maximum queued-request age as a duration.
func (q OfflineQueueConfig) MaxAge() time.Duration {
	return time.Duration(q.MaxAgeHours) * time.Hour
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Normalize environment to lowercase for consistent comparison
	config.Environment = strings.ToLower(config.Environment)

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(config *Config) error {
	if config.Prediction.DaysAhead <= 0 {
		return fmt.Errorf("prediction.days_ahead must be positive, got %d", config.Prediction.DaysAhead)
	}
	if config.Prediction.HistoryDays <= 0 {
		return fmt.Errorf("prediction.history_days must be positive, got %d", config.Prediction.HistoryDays)
	}
	if config.Prediction.FallbackBasePrice <= 0 {
		return fmt.Errorf("prediction.fallback_base_price must be positive, got %f", config.Prediction.FallbackBasePrice)
	}
	if config.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be positive, got %d", config.Cache.MaxEntries)
	}
	if config.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must not be negative, got %d", config.Retry.MaxRetries)
	}
	if config.Retry.BaseDelayMs <= 0 || config.Retry.MaxDelayMs < config.Retry.BaseDelayMs {
		return fmt.Errorf("retry delays invalid: base %dms, max %dms", config.Retry.BaseDelayMs, config.Retry.MaxDelayMs)
	}
	if config.OfflineQueue.Capacity <= 0 {
		return fmt.Errorf("offline_queue.capacity must be positive, got %d", config.OfflineQueue.Capacity)
	}
	return nil
}

func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Redis
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Fare history aggregator
	viper.SetDefault("fare_api.service_url", "http://localhost:3001")
	viper.SetDefault("fare_api.timeout", 30)

	// Prediction engine
	viper.SetDefault("prediction.days_ahead", 30)
	viper.SetDefault("prediction.history_days", 30)
	viper.SetDefault("prediction.fallback_base_price", 500.0)

	// Response cache
	viper.SetDefault("cache.ttl_seconds", 900)
	viper.SetDefault("cache.prefix", "fare_cache:")
	viper.SetDefault("cache.max_entries", 1000)

	// Retry policy
	viper.SetDefault("retry.max_retries", 3)
	viper.SetDefault("retry.base_delay_ms", 1000)
	viper.SetDefault("retry.max_delay_ms", 30000)
	viper.SetDefault("retry.attempt_timeout_sec", 30)

	// Offline queue
	viper.SetDefault("offline_queue.capacity", 100)
	viper.SetDefault("offline_queue.max_age_hours", 168)
}
