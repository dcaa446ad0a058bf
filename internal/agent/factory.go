package agent

import (
	"fmt"

	"github.com/cadre-oss/reqcheck/internal/config"
	rcErrors "github.com/cadre-oss/reqcheck/internal/errors"
	"github.com/cadre-oss/reqcheck/internal/provider"
	"github.com/cadre-oss/reqcheck/internal/provider/anthropic"
	"github.com/cadre-oss/reqcheck/internal/provider/openai"
)

// NewProvider creates the provider named in cfg.
func NewProvider(cfg config.ProviderConfig) (provider.Provider, error) {
	timeout, err := cfg.ParsedTimeout()
	if err != nil {
		return nil, rcErrors.Wrap(rcErrors.CodeConfigInvalid, "invalid provider timeout", err)
	}

	switch cfg.Name {
	case "anthropic", "":
		return anthropic.NewClient(anthropic.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Timeout: timeout,
		}), nil
	case "openai":
		return openai.NewClient(openai.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Timeout: timeout,
		}), nil
	default:
		return nil, rcErrors.New(rcErrors.CodeConfigInvalid, fmt.Sprintf("unknown provider: %s", cfg.Name)).
			WithSuggestion("Set provider.name to anthropic or openai")
	}
}

// NewInvoker creates the provider named in cfg and binds it with the
// configured model settings.
func NewInvoker(cfg config.ProviderConfig) (provider.Invoker, error) {
	p, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return provider.Bind(p, provider.BindOptions{
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}), nil
}

// BackoffFromConfig builds the retry pause from the defaults section. A
// non-empty override replaces the interval.
func BackoffFromConfig(d config.DefaultsConfig, override string) (Backoff, error) {
	interval := d.Backoff
	if override != "" {
		interval = override
	}
	b, err := ParseBackoff(d.BackoffStrategy, interval, d.MaxBackoff)
	if err != nil {
		return b, rcErrors.Wrap(rcErrors.CodeConfigInvalid, "invalid backoff", err)
	}
	if d.BackoffJitter < 0 || d.BackoffJitter > 1 {
		return b, rcErrors.New(rcErrors.CodeConfigInvalid,
			fmt.Sprintf("backoff jitter must be between 0 and 1, got %v", d.BackoffJitter))
	}
	b.JitterFraction = d.BackoffJitter
	return b, nil
}
