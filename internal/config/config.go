package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cesargomez89/fetchpay/internal/constants"
)

// Config holds all application configuration
type Config struct {
	Port             string
	DBPath           string
	DownloadsDir     string
	CallbackURL      string
	PayProviderURL   string
	PayProviderToken string
	RedisAddr        string
	LogLevel         string
	LogFormat        string
	StartingBalance  int64
	MaxArtifactBytes int64
	WorkerCount      int
	RateLimitRPM     int
	FetchTimeout     time.Duration
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:             getEnv("PORT", constants.DefaultPort),
		DBPath:           getEnv("DB_PATH", constants.DefaultDBPath),
		DownloadsDir:     getEnv("DOWNLOADS_DIR", constants.DefaultDownloadsDir),
		CallbackURL:      getEnv("CALLBACK_URL", ""),
		PayProviderURL:   getEnv("PAY_PROVIDER_URL", ""),
		PayProviderToken: getEnv("PAY_PROVIDER_TOKEN", ""),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "text"),
		StartingBalance:  getEnvInt64("STARTING_BALANCE", constants.DefaultStartingBalance),
		MaxArtifactBytes: getEnvInt64("MAX_ARTIFACT_BYTES", constants.MaxArtifactBytes),
		WorkerCount:      getEnvInt("WORKER_COUNT", constants.DefaultWorkerCount),
		RateLimitRPM:     getEnvInt("RATE_LIMIT_RPM", constants.DefaultRateLimitRPM),
		FetchTimeout:     getEnvDuration("FETCH_TIMEOUT", 0),
	}
}

// Validate validates the configuration and returns detailed errors
func (c *Config) Validate() error {
	var errors []string

	if c.Port == "" {
		errors = append(errors, "PORT cannot be empty")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("PORT must be a valid number, got: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("PORT must be between 1 and 65535, got: %d", port))
		}
	}

	if c.DBPath == "" {
		errors = append(errors, "DB_PATH cannot be empty")
	}

	if c.DownloadsDir == "" {
		errors = append(errors, "DOWNLOADS_DIR cannot be empty")
	}

	if c.CallbackURL != "" {
		if _, err := url.ParseRequestURI(c.CallbackURL); err != nil {
			errors = append(errors, fmt.Sprintf("CALLBACK_URL is not a valid URL: %s", c.CallbackURL))
		}
	}

	if c.PayProviderURL != "" {
		if _, err := url.ParseRequestURI(c.PayProviderURL); err != nil {
			errors = append(errors, fmt.Sprintf("PAY_PROVIDER_URL is not a valid URL: %s", c.PayProviderURL))
		}
	}

	if c.StartingBalance < 0 {
		errors = append(errors, fmt.Sprintf("STARTING_BALANCE cannot be negative, got: %d", c.StartingBalance))
	}

	if c.MaxArtifactBytes <= 0 {
		errors = append(errors, fmt.Sprintf("MAX_ARTIFACT_BYTES must be positive, got: %d", c.MaxArtifactBytes))
	}

	if c.WorkerCount < 1 {
		errors = append(errors, fmt.Sprintf("WORKER_COUNT must be at least 1, got: %d", c.WorkerCount))
	}

	if c.FetchTimeout < 0 {
		errors = append(errors, fmt.Sprintf("FETCH_TIMEOUT cannot be negative, got: %v", c.FetchTimeout))
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.LogFormat] {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: text, json, got: %s", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
