package agent

import (
	"testing"

	"github.com/cadre-oss/reqcheck/internal/config"
	rcErrors "github.com/cadre-oss/reqcheck/internal/errors"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.ProviderConfig
		wantName string
		wantCode string
	}{
		{"anthropic", config.ProviderConfig{Name: "anthropic", APIKey: "k"}, "anthropic", ""},
		{"default", config.ProviderConfig{}, "anthropic", ""},
		{"openai", config.ProviderConfig{Name: "openai", APIKey: "k", BaseURL: "https://openrouter.ai/api/v1"}, "openai", ""},
		{"unknown", config.ProviderConfig{Name: "gigachat"}, "", rcErrors.CodeConfigInvalid},
		{"bad timeout", config.ProviderConfig{Name: "openai", Timeout: "eventually"}, "", rcErrors.CodeConfigInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.cfg)
			if tt.wantCode != "" {
				if rcErrors.AsCode(err) != tt.wantCode {
					t.Fatalf("expected %s, got %v", tt.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if p.Name() != tt.wantName {
				t.Errorf("expected %s, got %s", tt.wantName, p.Name())
			}
		})
	}
}

func TestNewInvoker(t *testing.T) {
	inv, err := NewInvoker(config.ProviderConfig{Name: "openai", APIKey: "k", Model: "gpt-4o-mini"})
	if err != nil {
		t.Fatal(err)
	}
	if inv == nil {
		t.Fatal("expected invoker")
	}
}
