package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	rcErrors "github.com/cadre-oss/reqcheck/internal/errors"
	"github.com/cadre-oss/reqcheck/internal/event"
	"github.com/cadre-oss/reqcheck/internal/roles"
)

// Validate checks the whole configuration and reports every problem in a
// single CONFIG_INVALID error.
func Validate(cfg *Config) error {
	var errors []string

	// Provider
	validProviders := map[string]bool{
		"anthropic": true,
		"openai":    true,
	}
	if !validProviders[cfg.Provider.Name] {
		errors = append(errors, fmt.Sprintf("invalid provider: %s (must be anthropic or openai)", cfg.Provider.Name))
	}
	if cfg.Provider.BaseURL != "" {
		if u, err := url.Parse(cfg.Provider.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid provider base_url: %q", cfg.Provider.BaseURL))
		}
	}
	if cfg.Provider.Temperature < 0 || cfg.Provider.Temperature > 2 {
		errors = append(errors, fmt.Sprintf("provider temperature must be between 0 and 2, got %v", cfg.Provider.Temperature))
	}
	if cfg.Provider.MaxTokens < 0 {
		errors = append(errors, "provider max_tokens must be non-negative")
	}
	errors = appendDuration(errors, "provider timeout", cfg.Provider.Timeout)

	// Defaults
	if cfg.Defaults.MaxRetries < 1 {
		errors = append(errors, fmt.Sprintf("defaults max_retries must be at least 1, got %d", cfg.Defaults.MaxRetries))
	}
	errors = appendDuration(errors, "defaults backoff", cfg.Defaults.Backoff)
	errors = appendDuration(errors, "defaults max_backoff", cfg.Defaults.MaxBackoff)
	errors = appendDuration(errors, "defaults timeout", cfg.Defaults.Timeout)
	if cfg.Defaults.BackoffJitter < 0 || cfg.Defaults.BackoffJitter > 1 {
		errors = append(errors, fmt.Sprintf("defaults backoff_jitter must be between 0 and 1, got %v", cfg.Defaults.BackoffJitter))
	}

	validBackoff := map[string]bool{
		"fixed":       true,
		"exponential": true,
		"":            true,
	}
	if !validBackoff[cfg.Defaults.BackoffStrategy] {
		errors = append(errors, fmt.Sprintf("invalid backoff_strategy: %s (must be fixed or exponential)", cfg.Defaults.BackoffStrategy))
	}

	// Logging
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errors = append(errors, fmt.Sprintf("invalid logging level: %s", cfg.Logging.Level))
	}
	validFormats := map[string]bool{"text": true, "json": true, "": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errors = append(errors, fmt.Sprintf("invalid logging format: %s (must be text or json)", cfg.Logging.Format))
	}

	// State
	switch cfg.State.Driver {
	case "memory", "":
	case "sqlite":
		if cfg.State.Path == "" {
			errors = append(errors, "sqlite state driver requires a path")
		}
	case "postgres":
		if cfg.State.Path == "" {
			errors = append(errors, "postgres state driver requires a DSN in state.path")
		}
	default:
		errors = append(errors, fmt.Sprintf("unsupported state driver: %s", cfg.State.Driver))
	}

	// Pipeline
	switch cfg.Pipeline.ErrorStrategy {
	case ErrorStrategyFailFast, ErrorStrategyContinue, "":
	default:
		errors = append(errors, fmt.Sprintf("invalid error_strategy: %s (must be %s or %s)",
			cfg.Pipeline.ErrorStrategy, ErrorStrategyFailFast, ErrorStrategyContinue))
	}

	// Roles
	for id, role := range cfg.Roles {
		if !roles.Known(id) {
			errors = append(errors, fmt.Sprintf("unknown role %q (known: %s)", id, strings.Join(roles.IDs(), ", ")))
			continue
		}
		if role.MaxRetries < 0 {
			errors = append(errors, fmt.Sprintf("role %s max_retries must be non-negative", id))
		}
		errors = appendDuration(errors, "role "+id+" backoff", role.Backoff)
	}

	// Hooks
	for i, h := range cfg.Hooks.Hooks {
		errors = append(errors, validateHook(i, h)...)
	}

	if len(errors) > 0 {
		return rcErrors.New(rcErrors.CodeConfigInvalid,
			fmt.Sprintf("config validation failed: %s", strings.Join(errors, "; "))).
			WithSuggestion("Run 'reqcheck config show' to inspect the effective configuration")
	}
	return nil
}

func validateHook(i int, h HookConfig) []string {
	var errors []string
	label := h.Name
	if label == "" {
		label = fmt.Sprintf("#%d", i)
		errors = append(errors, fmt.Sprintf("hook %s: name is required", label))
	}

	switch h.Type {
	case "shell":
		if h.Command == "" {
			errors = append(errors, fmt.Sprintf("hook %s: shell hook requires a command", label))
		}
	case "webhook":
		if h.URL == "" {
			errors = append(errors, fmt.Sprintf("hook %s: webhook hook requires a url", label))
		}
	case "log", "pause":
	default:
		errors = append(errors, fmt.Sprintf("hook %s: invalid type %q (must be shell, webhook, log, or pause)", label, h.Type))
	}

	for _, ev := range h.Events {
		if !event.IsKnown(event.EventType(ev)) {
			errors = append(errors, fmt.Sprintf("hook %s: unknown event %q", label, ev))
		}
	}
	return errors
}

func appendDuration(errors []string, field, value string) []string {
	if value == "" {
		return errors
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return append(errors, fmt.Sprintf("invalid %s %q: %s", field, value, err))
	}
	if d < 0 {
		return append(errors, fmt.Sprintf("%s must not be negative", field))
	}
	return errors
}
