package config

import (
	"os"
	"strings"
	"time"
)

// Default values for configuration.
const (
	DefaultListen         = ":9090"
	DefaultMode           = "release"
	DefaultDatabase       = "cs2log.db"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "json"
	DefaultMaxLines       = 10000
	DefaultMaxBodyBytes   = 10 << 20
	DefaultWebhookTimeout = 10 * time.Second
)

// Environment variable names.
const (
	EnvListen    = "CS2LOG_LISTEN"
	EnvDatabase  = "CS2LOG_DATABASE"
	EnvLogLevel  = "CS2LOG_LOG_LEVEL"
	EnvAPITokens = "CS2LOG_API_TOKENS"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:       DefaultListen,
		Mode:         DefaultMode,
		Database:     DefaultDatabase,
		LogLevel:     DefaultLogLevel,
		LogFormat:    DefaultLogFormat,
		MaxLines:     DefaultMaxLines,
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() {
	if v := os.Getenv(EnvListen); v != "" {
		c.Listen = v
	}
	if v := os.Getenv(EnvDatabase); v != "" {
		c.Database = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvAPITokens); v != "" {
		c.APITokens = nil
		for _, tok := range strings.Split(v, ",") {
			if tok = strings.TrimSpace(tok); tok != "" {
				c.APITokens = append(c.APITokens, tok)
			}
		}
	}
}
