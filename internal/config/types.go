package config

import "time"

// Error strategies for the pipeline driver.
const (
	ErrorStrategyFailFast = "fail-fast"
	ErrorStrategyContinue = "continue"
)

// Config represents the main project configuration (reqcheck.yaml)
type Config struct {
	Name     string                `yaml:"name" json:"name"`
	Version  string                `yaml:"version" json:"version"`
	Provider ProviderConfig        `yaml:"provider" json:"provider"`
	Defaults DefaultsConfig        `yaml:"defaults" json:"defaults"`
	Logging  LoggingConfig         `yaml:"logging" json:"logging"`
	State    StateConfig           `yaml:"state" json:"state"`
	Pipeline PipelineConfig        `yaml:"pipeline" json:"pipeline"`
	Roles    map[string]RoleConfig `yaml:"roles,omitempty" json:"roles,omitempty"`
	Hooks    HooksConfig           `yaml:"hooks" json:"hooks"`
}

// HooksConfig configures lifecycle event hooks.
type HooksConfig struct {
	Enabled bool         `yaml:"enabled" json:"enabled"`
	Hooks   []HookConfig `yaml:"hooks" json:"hooks"`
}

// HookConfig defines a single hook.
type HookConfig struct {
	Name     string   `yaml:"name" json:"name"`
	Type     string   `yaml:"type" json:"type"`     // shell, webhook, log, pause
	Events   []string `yaml:"events" json:"events"` // event types to match
	Blocking bool     `yaml:"blocking" json:"blocking"`
	Command  string   `yaml:"command,omitempty" json:"command,omitempty"` // for shell hooks
	URL      string   `yaml:"url,omitempty" json:"url,omitempty"`         // for webhook hooks
	Message  string   `yaml:"message,omitempty" json:"message,omitempty"` // for pause hooks
	Level    string   `yaml:"level,omitempty" json:"level,omitempty"`     // for log hooks (debug, info, warn)
}

// ProviderConfig configures the LLM provider
type ProviderConfig struct {
	Name        string  `yaml:"name" json:"name"`   // anthropic, openai
	Model       string  `yaml:"model" json:"model"` // claude-sonnet-4-20250514, gpt-4o-mini, etc.
	APIKey      string  `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	BaseURL     string  `yaml:"base_url,omitempty" json:"base_url,omitempty"` // OpenAI-compatible gateways
	Temperature float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	MaxTokens   int     `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
	Timeout     string  `yaml:"timeout,omitempty" json:"timeout,omitempty"` // per request, e.g. "2m"
}

// DefaultsConfig provides default values for every agent
type DefaultsConfig struct {
	MaxRetries      int     `yaml:"max_retries" json:"max_retries"`
	Backoff         string  `yaml:"backoff" json:"backoff"`                   // pause after a failed attempt, e.g. "20s"
	BackoffStrategy string  `yaml:"backoff_strategy" json:"backoff_strategy"` // fixed, exponential
	MaxBackoff      string  `yaml:"max_backoff,omitempty" json:"max_backoff,omitempty"`
	BackoffJitter   float64 `yaml:"backoff_jitter,omitempty" json:"backoff_jitter,omitempty"`
	Timeout         string  `yaml:"timeout,omitempty" json:"timeout,omitempty"` // whole run, empty means none
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level       string `yaml:"level" json:"level"`   // debug, info, warn, error
	Format      string `yaml:"format" json:"format"` // text, json
	File        string `yaml:"file,omitempty" json:"file,omitempty"`
	MetricsFile string `yaml:"metrics_file,omitempty" json:"metrics_file,omitempty"`
}

// StateConfig configures state storage
type StateConfig struct {
	Driver string `yaml:"driver" json:"driver"` // sqlite, postgres, memory
	Path   string `yaml:"path" json:"path"`     // connection string or file path
}

// PipelineConfig configures the review pipeline
type PipelineConfig struct {
	ErrorStrategy string `yaml:"error_strategy" json:"error_strategy"` // fail-fast, continue
	CodeAnalysis  bool   `yaml:"code_analysis" json:"code_analysis"`
	Output        string `yaml:"output,omitempty" json:"output,omitempty"` // report file path
}

// RoleConfig overrides one built-in role. Zero values keep the built-in.
type RoleConfig struct {
	Name         string `yaml:"name,omitempty" json:"name,omitempty"`
	Instructions string `yaml:"instructions,omitempty" json:"instructions,omitempty"`
	MaxRetries   int    `yaml:"max_retries,omitempty" json:"max_retries,omitempty"`
	Backoff      string `yaml:"backoff,omitempty" json:"backoff,omitempty"`
	Disabled     bool   `yaml:"disabled,omitempty" json:"disabled,omitempty"`
}

// ParsedTimeout converts the request timeout string to time.Duration
func (p *ProviderConfig) ParsedTimeout() (time.Duration, error) {
	if p.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(p.Timeout)
}

// ParsedTimeout converts the run timeout string to time.Duration. Zero
// means no limit.
func (d *DefaultsConfig) ParsedTimeout() (time.Duration, error) {
	if d.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(d.Timeout)
}

// Role returns the override for id, if any.
func (c *Config) Role(id string) RoleConfig {
	if c.Roles == nil {
		return RoleConfig{}
	}
	return c.Roles[id]
}
