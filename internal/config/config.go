package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the process-level settings of the CLI
type Config struct {
	// API Configuration
	API APIConfig

	// Logging Configuration
	Logging LoggingConfig
}

// APIConfig holds settings for talking to the People Matter API
type APIConfig struct {
	Prefix   string        // path prefix of every endpoint, e.g. /api/v1
	Timeout  time.Duration // per-request timeout
	Insecure bool          // skip TLS verification (self-signed dev servers)
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

const (
	DefaultAPIPrefix = "/api/v1"
	DefaultTimeout   = 50 * time.Second
)

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	prefix := os.Getenv("PMCTL_API_PREFIX")
	if prefix == "" {
		prefix = DefaultAPIPrefix
	}

	timeout := DefaultTimeout
	if raw := os.Getenv("PMCTL_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid PMCTL_TIMEOUT %q: %w", raw, err)
		}
		timeout = d
	}

	insecure := false
	if raw := os.Getenv("PMCTL_INSECURE"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid PMCTL_INSECURE %q: %w", raw, err)
		}
		insecure = b
	}

	// Logging configuration - the CLI is quiet by default
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "warn"
	}

	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "console"
	}

	return &Config{
		API: APIConfig{
			Prefix:   prefix,
			Timeout:  timeout,
			Insecure: insecure,
		},
		Logging: LoggingConfig{
			Level:  logLevel,
			Format: logFormat,
		},
	}, nil
}
