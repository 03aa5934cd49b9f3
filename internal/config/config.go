// Package config provides configuration management for Scaffy.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds all configuration for the Scaffy server.
type Config struct {
	// ServerAddr is the address the HTTP server listens on (e.g., ":7090").
	ServerAddr string

	// DataDir is the directory for persistent data (SQLite DB, etc.).
	DataDir string

	// DatabasePath is the full path to the SQLite database file.
	DatabasePath string

	// AnthropicAPIKey drives the generation pipeline.
	AnthropicAPIKey string

	// LLMModel overrides the default model name (optional).
	LLMModel string

	// GitHubToken enables assignment import from private repositories
	// (optional; public repos work without it at lower rate limits).
	GitHubToken string

	// Slack integration (optional).
	// SlackBotToken is the Bot User OAuth Token (xoxb-...).
	SlackBotToken string
	// SlackChannel is the channel ID completion notices are posted to.
	SlackChannel string

	// Request rate limits per client IP.
	RatePerMinute int
	RatePerHour   int
	RatePerDay    int
}

// Load creates a Config from environment variables with sensible defaults.
func Load() (*Config, error) {
	dataDir := envOr("SCAFFY_DATA_DIR", defaultDataDir())
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	cfg := &Config{
		ServerAddr:      envOr("SCAFFY_ADDR", ":7090"),
		DataDir:         dataDir,
		DatabasePath:    filepath.Join(dataDir, "scaffy.db"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		LLMModel:        os.Getenv("SCAFFY_LLM_MODEL"),
		GitHubToken:     os.Getenv("GITHUB_TOKEN"),
		SlackBotToken:   os.Getenv("SLACK_BOT_TOKEN"),
		SlackChannel:    os.Getenv("SCAFFY_SLACK_CHANNEL"),
		RatePerMinute:   envOrInt("SCAFFY_RATE_PER_MINUTE", 30),
		RatePerHour:     envOrInt("SCAFFY_RATE_PER_HOUR", 300),
		RatePerDay:      envOrInt("SCAFFY_RATE_PER_DAY", 1000),
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	return nil
}

// SlackEnabled returns true if completion notifications are configured.
func (c *Config) SlackEnabled() bool {
	return c.SlackBotToken != "" && c.SlackChannel != ""
}

func envOrInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".scaffy"
	}
	return filepath.Join(home, ".scaffy")
}
