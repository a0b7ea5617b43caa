package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "FRONTEND_URL", "DB_PATH", "ANTHROPIC_API_KEY", "CLAUDE_BIN",
		"MODEL", "MAX_TURNS", "DEBATE_MAX_TURNS", "DAILY_BUDGET",
		"RATE_LIMIT_WINDOW", "HEARTBEAT_INTERVAL",
	} {
		// t.Setenv registers the restore; unset so defaults apply.
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "3000" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.Anthropic.Model != "sonnet" {
		t.Errorf("Model = %q", cfg.Anthropic.Model)
	}
	if cfg.Anthropic.MaxTurns != 5 || cfg.Anthropic.DebateMaxTurns != 2 {
		t.Errorf("turns = %d/%d", cfg.Anthropic.MaxTurns, cfg.Anthropic.DebateMaxTurns)
	}
	if cfg.Budget.DailyLimitUSD != 2.00 {
		t.Errorf("DailyLimitUSD = %v", cfg.Budget.DailyLimitUSD)
	}
	if cfg.RateLimit.Window != 24*time.Hour {
		t.Errorf("Window = %v", cfg.RateLimit.Window)
	}
	if cfg.Heartbeat != 3*time.Second {
		t.Errorf("Heartbeat = %v", cfg.Heartbeat)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("MAX_TURNS", "9")
	t.Setenv("DAILY_BUDGET", "5.50")
	t.Setenv("RATE_LIMIT_WINDOW", "1h")
	t.Setenv("HEARTBEAT_INTERVAL", "500ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.Anthropic.MaxTurns != 9 {
		t.Errorf("MaxTurns = %d", cfg.Anthropic.MaxTurns)
	}
	if cfg.Budget.DailyLimitUSD != 5.50 {
		t.Errorf("DailyLimitUSD = %v", cfg.Budget.DailyLimitUSD)
	}
	if cfg.RateLimit.Window != time.Hour {
		t.Errorf("Window = %v", cfg.RateLimit.Window)
	}
	if cfg.Heartbeat != 500*time.Millisecond {
		t.Errorf("Heartbeat = %v", cfg.Heartbeat)
	}
}

func TestLoadBadValuesFallBack(t *testing.T) {
	t.Setenv("MAX_TURNS", "not-a-number")
	t.Setenv("DAILY_BUDGET", "free")
	t.Setenv("RATE_LIMIT_WINDOW", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Anthropic.MaxTurns != 5 {
		t.Errorf("MaxTurns = %d, want default 5", cfg.Anthropic.MaxTurns)
	}
	if cfg.Budget.DailyLimitUSD != 2.00 {
		t.Errorf("DailyLimitUSD = %v, want default", cfg.Budget.DailyLimitUSD)
	}
	if cfg.RateLimit.Window != 24*time.Hour {
		t.Errorf("Window = %v, want default", cfg.RateLimit.Window)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"empty port":        func(c *Config) { c.Port = "" },
		"empty db path":     func(c *Config) { c.DBPath = "" },
		"empty binary":      func(c *Config) { c.Anthropic.Binary = "" },
		"zero max turns":    func(c *Config) { c.Anthropic.MaxTurns = 0 },
		"negative budget":   func(c *Config) { c.Budget.DailyLimitUSD = -1 },
		"zero window":       func(c *Config) { c.RateLimit.Window = 0 },
		"zero heartbeat":    func(c *Config) { c.Heartbeat = 0 },
		"zero debate turns": func(c *Config) { c.Anthropic.DebateMaxTurns = 0 },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := &Config{
				Port:   "3000",
				DBPath: "./data/test.db",
				Anthropic: AnthropicConfig{
					Binary:         "claude",
					MaxTurns:       5,
					DebateMaxTurns: 2,
				},
				Budget:    BudgetConfig{DailyLimitUSD: 2},
				RateLimit: RateLimitConfig{Window: 24 * time.Hour},
				Heartbeat: 3 * time.Second,
			}
			mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestIsDevelopment(t *testing.T) {
	cases := map[string]struct {
		frontendURL string
		want        bool
	}{
		"unset":      {"", true},
		"localhost":  {"http://localhost:5173", true},
		"loopback":   {"http://127.0.0.1:5173", true},
		"production": {"https://newsroom.example.com", false},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := &Config{FrontendURL: tc.frontendURL}
			if got := cfg.IsDevelopment(); got != tc.want {
				t.Errorf("IsDevelopment() = %v, want %v", got, tc.want)
			}
		})
	}
}
