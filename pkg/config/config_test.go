package config

import (
	"errors"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.EscalationWindow != 5*time.Minute {
		t.Errorf("escalation window default: %v", cfg.EscalationWindow)
	}
	if cfg.EscalationThreshold != 5 {
		t.Errorf("escalation threshold default: %d", cfg.EscalationThreshold)
	}
	if cfg.ScoringWindow != 24*time.Hour {
		t.Errorf("scoring window default: %v", cfg.ScoringWindow)
	}
	if cfg.MaxPayloadBytes != 64*1024 {
		t.Errorf("payload cap default: %d", cfg.MaxPayloadBytes)
	}
	if cfg.RetentionWindow != 0 {
		t.Errorf("retention default should be unlimited, got %v", cfg.RetentionWindow)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RAMPART_ESCALATION_WINDOW", "10m")
	t.Setenv("RAMPART_ESCALATION_THRESHOLD", "3")
	t.Setenv("RAMPART_REDIS_ADDR", "localhost:6379")
	t.Setenv("RAMPART_PORT", "9090")

	cfg := NewDefaultConfig()
	if cfg.EscalationWindow != 10*time.Minute {
		t.Errorf("escalation window override: %v", cfg.EscalationWindow)
	}
	if cfg.EscalationThreshold != 3 {
		t.Errorf("escalation threshold override: %d", cfg.EscalationThreshold)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("redis addr override: %q", cfg.RedisAddr)
	}
	if cfg.Port != "9090" {
		t.Errorf("port override: %q", cfg.Port)
	}
}

func TestUnparseableEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("RAMPART_ESCALATION_WINDOW", "not-a-duration")
	t.Setenv("RAMPART_ESCALATION_THRESHOLD", "five")

	cfg := NewDefaultConfig()
	if cfg.EscalationWindow != 5*time.Minute {
		t.Errorf("bad duration should fall back, got %v", cfg.EscalationWindow)
	}
	if cfg.EscalationThreshold != 5 {
		t.Errorf("bad int should fall back, got %d", cfg.EscalationThreshold)
	}
}

func TestValidateRejections(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero escalation window", func(c *Config) { c.EscalationWindow = 0 }},
		{"zero threshold", func(c *Config) { c.EscalationThreshold = 0 }},
		{"negative threshold", func(c *Config) { c.EscalationThreshold = -1 }},
		{"scoring window shorter than escalation window", func(c *Config) { c.ScoringWindow = time.Minute }},
		{"zero payload cap", func(c *Config) { c.MaxPayloadBytes = 0 }},
		{"negative retention", func(c *Config) { c.RetentionWindow = -time.Hour }},
		{"zero scan concurrency", func(c *Config) { c.MaxConcurrentScans = 0 }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation failure")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestScoringWindowMayEqualEscalationWindow(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.ScoringWindow = cfg.EscalationWindow
	if err := cfg.Validate(); err != nil {
		t.Errorf("equal windows are allowed: %v", err)
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("RAMPART_TEST_STR", "value")
	t.Setenv("RAMPART_TEST_BOOL", "true")
	t.Setenv("RAMPART_TEST_INT", "42")
	t.Setenv("RAMPART_TEST_DUR", "90s")

	if got := GetEnv("RAMPART_TEST_STR", "d"); got != "value" {
		t.Errorf("GetEnv: %q", got)
	}
	if got := GetEnv("RAMPART_TEST_MISSING", "d"); got != "d" {
		t.Errorf("GetEnv default: %q", got)
	}
	if !GetEnvBool("RAMPART_TEST_BOOL", false) {
		t.Error("GetEnvBool should parse true")
	}
	if got := GetEnvInt("RAMPART_TEST_INT", 0); got != 42 {
		t.Errorf("GetEnvInt: %d", got)
	}
	if got := GetEnvDuration("RAMPART_TEST_DUR", 0); got != 90*time.Second {
		t.Errorf("GetEnvDuration: %v", got)
	}
}
