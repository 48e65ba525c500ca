// Package config holds the runtime settings for the Rampart gateway.
// All settings come from RAMPART_* environment variables with sensible
// defaults, so a bare binary starts with the documented behavior.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// ErrInvalidConfig wraps every validation failure so callers can test
// with errors.Is.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds global settings for the Rampart gateway.
// All settings can be configured via environment variables or programmatically.
type Config struct {
	// === Detection ===
	EscalationWindow    time.Duration // Sliding window for repeat-offender escalation (default: 5m)
	EscalationThreshold int           // Denied events within the window that trigger a block (default: 5)
	ScoringWindow       time.Duration // Trailing window for risk scoring and reports (default: 24h)
	MaxPayloadBytes     int           // Scan cap per canonicalized payload (default: 64 KiB)

	// === Ledger ===
	RetentionWindow time.Duration // Prune events older than this; 0 keeps everything (default: 0)
	RedisAddr       string        // Redis backend for the ledger; empty = in-memory (default: "")
	RedisPrefix     string        // Key prefix for the Redis ledger (default: "rampart")

	// === Rules ===
	RuleFilePath string // Optional YAML rule file loaded on top of the builtin signatures

	// === HTTP Surface ===
	Port               string // Listen port for serve mode (default: "8080")
	MaxConcurrentScans int    // Load-shedding semaphore capacity (default: 100)
}

// NewDefaultConfig creates a Config from the environment with defaults
// applied. Call Validate (or MustValidate) before using it.
func NewDefaultConfig() *Config {
	return &Config{
		EscalationWindow:    GetEnvDuration("RAMPART_ESCALATION_WINDOW", 5*time.Minute),
		EscalationThreshold: GetEnvInt("RAMPART_ESCALATION_THRESHOLD", 5),
		ScoringWindow:       GetEnvDuration("RAMPART_SCORING_WINDOW", 24*time.Hour),
		MaxPayloadBytes:     GetEnvInt("RAMPART_MAX_PAYLOAD_BYTES", 64*1024),

		RetentionWindow: GetEnvDuration("RAMPART_RETENTION_WINDOW", 0),
		RedisAddr:       GetEnv("RAMPART_REDIS_ADDR", ""),
		RedisPrefix:     GetEnv("RAMPART_REDIS_PREFIX", "rampart"),

		RuleFilePath: GetEnv("RAMPART_RULE_FILE", ""),

		Port:               GetEnv("RAMPART_PORT", "8080"),
		MaxConcurrentScans: GetEnvInt("RAMPART_MAX_CONCURRENT_SCANS", 100),
	}
}

// Validate checks the cross-field constraints the engine depends on.
// The scoring window must cover the escalation window, otherwise reports
// would miss the very events that drive blocking.
func (c *Config) Validate() error {
	if c.EscalationWindow <= 0 {
		return fmt.Errorf("%w: escalation window must be positive, got %v", ErrInvalidConfig, c.EscalationWindow)
	}
	if c.EscalationThreshold <= 0 {
		return fmt.Errorf("%w: escalation threshold must be positive, got %d", ErrInvalidConfig, c.EscalationThreshold)
	}
	if c.ScoringWindow < c.EscalationWindow {
		return fmt.Errorf("%w: scoring window %v shorter than escalation window %v", ErrInvalidConfig, c.ScoringWindow, c.EscalationWindow)
	}
	if c.MaxPayloadBytes <= 0 {
		return fmt.Errorf("%w: max payload bytes must be positive, got %d", ErrInvalidConfig, c.MaxPayloadBytes)
	}
	if c.RetentionWindow < 0 {
		return fmt.Errorf("%w: retention window must not be negative, got %v", ErrInvalidConfig, c.RetentionWindow)
	}
	if c.MaxConcurrentScans <= 0 {
		return fmt.Errorf("%w: max concurrent scans must be positive, got %d", ErrInvalidConfig, c.MaxConcurrentScans)
	}
	return nil
}

// MustValidate calls Validate and fatally exits if validation fails.
// Call this at startup before starting the server.
func (c *Config) MustValidate() {
	if err := c.Validate(); err != nil {
		log.Fatalf("[STARTUP] FATAL: Configuration validation failed: %v", err)
	}
	log.Println("[STARTUP] Configuration validated successfully")
}

// Helper functions for environment variable parsing.

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns the boolean value of an environment variable or a default value.
func GetEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvInt returns the integer value of an environment variable or a default value.
func GetEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

// GetEnvDuration returns the duration value of an environment variable
// (Go duration syntax, e.g. "5m") or a default value.
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return defaultValue
}
