package config

import (
	"strings"
	"testing"
)

func TestValidate_Defaults(t *testing.T) {
	if err := Validate(defaultConfig()); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidate_Problems(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"provider", func(c *Config) { c.Provider.Name = "bard" }, "invalid provider"},
		{"base url", func(c *Config) { c.Provider.BaseURL = "not a url" }, "base_url"},
		{"temperature", func(c *Config) { c.Provider.Temperature = 3 }, "temperature"},
		{"retries", func(c *Config) { c.Defaults.MaxRetries = 0 }, "max_retries must be at least 1"},
		{"backoff", func(c *Config) { c.Defaults.Backoff = "soon" }, "defaults backoff"},
		{"negative backoff", func(c *Config) { c.Defaults.Backoff = "-1s" }, "must not be negative"},
		{"jitter", func(c *Config) { c.Defaults.BackoffJitter = 1.5 }, "backoff_jitter"},
		{"strategy", func(c *Config) { c.Defaults.BackoffStrategy = "random" }, "backoff_strategy"},
		{"level", func(c *Config) { c.Logging.Level = "loud" }, "logging level"},
		{"format", func(c *Config) { c.Logging.Format = "xml" }, "logging format"},
		{"driver", func(c *Config) { c.State.Driver = "redis" }, "unsupported state driver"},
		{"postgres dsn", func(c *Config) { c.State.Driver = "postgres"; c.State.Path = "" }, "DSN"},
		{"error strategy", func(c *Config) { c.Pipeline.ErrorStrategy = "complete-running" }, "error_strategy"},
		{"unknown role", func(c *Config) { c.Roles = map[string]RoleConfig{"poet": {}} }, "unknown role"},
		{"role backoff", func(c *Config) {
			c.Roles = map[string]RoleConfig{"summarizer": {Backoff: "x"}}
		}, "role summarizer backoff"},
		{"hook type", func(c *Config) {
			c.Hooks.Hooks = []HookConfig{{Name: "h", Type: "email"}}
		}, "invalid type"},
		{"hook event", func(c *Config) {
			c.Hooks.Hooks = []HookConfig{{Name: "h", Type: "log", Events: []string{"task.started"}}}
		}, "unknown event"},
		{"shell command", func(c *Config) {
			c.Hooks.Hooks = []HookConfig{{Name: "h", Type: "shell"}}
		}, "requires a command"},
		{"webhook url", func(c *Config) {
			c.Hooks.Hooks = []HookConfig{{Name: "h", Type: "webhook"}}
		}, "requires a url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatalf("expected error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %q in %q", tt.want, err.Error())
			}
		})
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := defaultConfig()
	cfg.Provider.Name = "bard"
	cfg.Defaults.MaxRetries = -1
	cfg.Pipeline.ErrorStrategy = "yolo"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"invalid provider", "max_retries", "error_strategy"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %q", want, err.Error())
		}
	}
}
