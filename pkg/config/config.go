package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var serverIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Load reads and validates a configuration file. An empty path yields the
// defaults with environment overrides applied.
func Load(_ context.Context, path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnvironmentOverrides()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks a configuration for errors and fills in per-entry defaults.
func Validate(cfg *Config) error {
	if cfg.Listen == "" {
		return errors.New("listen: address is required")
	}

	switch cfg.Mode {
	case "release", "debug", "test":
	default:
		return fmt.Errorf("mode: invalid mode %q (must be release, debug, or test)", cfg.Mode)
	}

	if cfg.Database == "" {
		return errors.New("database: path is required")
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level: invalid level %q (must be debug, info, warn, or error)", cfg.LogLevel)
	}

	switch cfg.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("log_format: invalid format %q (must be json or console)", cfg.LogFormat)
	}

	if cfg.MaxLines < 1 {
		return fmt.Errorf("max_lines: must be >= 1, got %d", cfg.MaxLines)
	}

	if cfg.MaxBodyBytes < 1 {
		return fmt.Errorf("max_body_bytes: must be >= 1, got %d", cfg.MaxBodyBytes)
	}

	for i := range cfg.APITokens {
		cfg.APITokens[i] = expandEnvVar(cfg.APITokens[i])
		if cfg.APITokens[i] == "" {
			return fmt.Errorf("api_tokens[%d]: token is empty", i)
		}
	}

	seen := make(map[string]bool)
	for i := range cfg.Servers {
		srv := &cfg.Servers[i]
		if err := validateServer(srv); err != nil {
			return fmt.Errorf("servers[%d] (%s): %w", i, srv.ID, err)
		}
		if seen[srv.ID] {
			return fmt.Errorf("servers[%d] (%s): duplicate id", i, srv.ID)
		}
		seen[srv.ID] = true
	}

	// Webhooks are optional, but validate if present
	for i := range cfg.Webhooks {
		if err := validateWebhook(&cfg.Webhooks[i]); err != nil {
			name := cfg.Webhooks[i].Name
			if name == "" {
				name = cfg.Webhooks[i].URL
			}
			return fmt.Errorf("webhooks[%d] (%s): %w", i, name, err)
		}
	}

	return nil
}

func validateServer(srv *ServerConfig) error {
	if srv.ID == "" {
		return errors.New("id is required")
	}

	if !serverIDPattern.MatchString(srv.ID) {
		return errors.New("id may only contain letters, digits, '.', '_' and '-'")
	}

	if srv.Name == "" {
		srv.Name = srv.ID
	}

	srv.APIKey = expandEnvVar(srv.APIKey)

	return nil
}

func validateWebhook(wh *WebhookConfig) error {
	if wh.URL == "" {
		return errors.New("url is required")
	}

	u, err := url.Parse(wh.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("url must have a host")
	}

	wh.Token = expandEnvVar(wh.Token)

	if wh.Trigger != "" {
		switch wh.Trigger {
		case WebhookTriggerOnGameOver, WebhookTriggerOnFailures, WebhookTriggerAlways, WebhookTriggerNever:
			// Valid
		default:
			return fmt.Errorf("invalid trigger %q (must be on_game_over, on_failures, always, or never)", wh.Trigger)
		}
	} else {
		wh.Trigger = WebhookTriggerOnGameOver
	}

	if wh.Timeout <= 0 {
		wh.Timeout = DefaultWebhookTimeout
	}

	return nil
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	// Handle ${VAR} format
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}

	// Handle $VAR format (no braces)
	if strings.HasPrefix(s, "$") && !strings.HasPrefix(s, "${") {
		return os.Getenv(s[1:])
	}

	return s
}
