// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string
	Anthropic   AnthropicConfig
	Budget      BudgetConfig
	RateLimit   RateLimitConfig
	Heartbeat   time.Duration
}

// AnthropicConfig controls the model-call collaborator.
type AnthropicConfig struct {
	APIKey         string
	Binary         string // Claude Code CLI binary
	Model          string // simple model names: sonnet, opus, haiku
	MaxTurns       int
	DebateMaxTurns int
}

// BudgetConfig controls daily spend limits.
type BudgetConfig struct {
	DailyLimitUSD float64
}

// RateLimitConfig controls per-fingerprint simulation throttling.
type RateLimitConfig struct {
	Window time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "3000"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/simulations.db"),
		Anthropic: AnthropicConfig{
			APIKey:         os.Getenv("ANTHROPIC_API_KEY"),
			Binary:         getEnv("CLAUDE_BIN", "claude"),
			Model:          getEnv("MODEL", "sonnet"),
			MaxTurns:       getEnvInt("MAX_TURNS", 5),
			DebateMaxTurns: getEnvInt("DEBATE_MAX_TURNS", 2),
		},
		Budget: BudgetConfig{
			DailyLimitUSD: getEnvFloat("DAILY_BUDGET", 2.00),
		},
		RateLimit: RateLimitConfig{
			Window: getEnvDuration("RATE_LIMIT_WINDOW", 24*time.Hour),
		},
		Heartbeat: getEnvDuration("HEARTBEAT_INTERVAL", 3*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.Anthropic.Binary == "" {
		return fmt.Errorf("CLAUDE_BIN cannot be empty")
	}
	if c.Anthropic.MaxTurns <= 0 {
		return fmt.Errorf("MAX_TURNS must be > 0")
	}
	if c.Anthropic.DebateMaxTurns <= 0 {
		return fmt.Errorf("DEBATE_MAX_TURNS must be > 0")
	}
	if c.Budget.DailyLimitUSD < 0 {
		return fmt.Errorf("DAILY_BUDGET cannot be negative")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be > 0")
	}
	if c.Heartbeat <= 0 {
		return fmt.Errorf("HEARTBEAT_INTERVAL must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
