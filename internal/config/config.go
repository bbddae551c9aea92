// Package config contains everything related to configuration
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	DatabasePath     string
	SecretsPath      string
	LogPath          string
	RefreshInterval  time.Duration
	CostAlertUSD     float64
	OpenAIBaseURL    string
	AnthropicBaseURL string
	GeminiBaseURL    string
}

// Default values
const (
	defaultRefreshInterval = 5 * time.Minute
	defaultCostAlertUSD    = 0 // disabled
)

// Load reads configuration from .env files and environment variables.
func Load() (*Config, error) {
	// Try loading .env from multiple locations
	for _, path := range getEnvPaths() {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	cfg := &Config{
		DatabasePath:     getEnvString("PANOPTIC_DB_PATH", getDefaultDatabasePath()),
		SecretsPath:      getEnvString("PANOPTIC_SECRETS_PATH", getDefaultSecretsPath()),
		LogPath:          getEnvString("PANOPTIC_LOG_PATH", ""),
		RefreshInterval:  getEnvDuration("PANOPTIC_REFRESH_INTERVAL", defaultRefreshInterval),
		CostAlertUSD:     getEnvFloat("PANOPTIC_COST_ALERT_USD", defaultCostAlertUSD),
		OpenAIBaseURL:    os.Getenv("PANOPTIC_OPENAI_BASE_URL"),
		AnthropicBaseURL: os.Getenv("PANOPTIC_ANTHROPIC_BASE_URL"),
		GeminiBaseURL:    os.Getenv("PANOPTIC_GEMINI_BASE_URL"),
	}

	// Ensure database directory exists
	if err := ensureDir(filepath.Dir(cfg.DatabasePath)); err != nil {
		return nil, err
	}

	// Ensure secrets directory exists
	if err := ensureDir(filepath.Dir(cfg.SecretsPath)); err != nil {
		return nil, err
	}

	return cfg, nil
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "panoptic", ".env"),
			filepath.Join(home, ".panoptic", ".env"),
		)
	}

	return paths
}

// getDefaultDatabasePath returns the default path for the SQLite database.
func getDefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "panoptic.db"
	}
	return filepath.Join(home, ".config", "panoptic", "panoptic.db")
}

// getDefaultSecretsPath returns the default path for the secrets JSON file.
func getDefaultSecretsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "panoptic-secrets.json"
	}
	return filepath.Join(home, ".config", "panoptic", "panoptic-secrets.json")
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns the default.
// Accepts values like "30s", "5m", or plain seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns the default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}
