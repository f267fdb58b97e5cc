// Package config provides configuration loading and validation for cs2log.
package config

import "time"

// Config is the root configuration structure loaded from YAML.
type Config struct {
	// Listen is the HTTP listen address for the serve command.
	Listen string `yaml:"listen"`

	// Mode is the gin mode: release, debug or test.
	Mode string `yaml:"mode"`

	// Database is the SQLite database path.
	Database string `yaml:"database"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// MaxLines caps the number of non-blank lines accepted per request.
	MaxLines int `yaml:"max_lines"`

	// MaxBodyBytes caps the size of a request body.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// APITokens, when non-empty, are the bearer tokens accepted on /api routes.
	APITokens []string `yaml:"api_tokens,omitempty"`

	Servers  []ServerConfig  `yaml:"servers,omitempty"`
	Webhooks []WebhookConfig `yaml:"webhooks,omitempty"`
}

// ServerConfig declares a game server allowed to push logs.
type ServerConfig struct {
	// ID is the identifier used in the ingest URL (required).
	ID string `yaml:"id"`

	// Name is a display name. Defaults to ID.
	Name string `yaml:"name,omitempty"`

	// APIKey, when set, must accompany every ingest request.
	APIKey string `yaml:"api_key,omitempty"`
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnGameOver fires when an ingested batch contains a game_over line (default).
	WebhookTriggerOnGameOver WebhookTrigger = "on_game_over"
	// WebhookTriggerOnFailures fires when an ingested batch has unparsed lines.
	WebhookTriggerOnFailures WebhookTrigger = "on_failures"
	// WebhookTriggerAlways fires after every ingested batch.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines a webhook endpoint notified about ingested batches.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url"`

	// Token is an optional bearer token for authentication.
	Token string `yaml:"token,omitempty"`

	// Trigger determines when the webhook fires.
	// Defaults to "on_game_over" if not specified.
	Trigger WebhookTrigger `yaml:"trigger,omitempty"`

	// Timeout is the HTTP request timeout.
	// Defaults to 10s if not specified.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}
