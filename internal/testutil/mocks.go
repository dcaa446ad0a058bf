package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cadre-oss/reqcheck/internal/config"
	"github.com/cadre-oss/reqcheck/internal/provider"
	"github.com/cadre-oss/reqcheck/internal/telemetry"
)

// MockProvider implements provider.Provider for testing.
type MockProvider struct {
	mu         sync.Mutex
	Responses  []*provider.Response // queued responses, consumed in order
	Calls      []*provider.CompletionRequest
	ShouldFail bool
	FailErr    error
	Delay      time.Duration
	idx        int
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Complete(ctx context.Context, req *provider.CompletionRequest) (*provider.Response, error) {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)

	if m.ShouldFail {
		if m.FailErr != nil {
			return nil, m.FailErr
		}
		return nil, fmt.Errorf("mock provider error")
	}

	if m.idx >= len(m.Responses) {
		return &provider.Response{
			Content:    "default mock response",
			StopReason: "end_turn",
		}, nil
	}

	resp := m.Responses[m.idx]
	m.idx++
	return resp, nil
}

// CallCount returns the number of Complete calls made (thread-safe).
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Step is one scripted reply: text, or an error when Err is set.
type Step struct {
	Text string
	Err  error
}

// Reply is a successful Step.
func Reply(text string) Step { return Step{Text: text} }

// Fail is a failing Step.
func Fail(msg string) Step { return Step{Err: fmt.Errorf("%s", msg)} }

// ScriptedInvoker implements provider.Invoker by replaying steps in order.
// When the script runs out, Default is used; a nil Default fails.
type ScriptedInvoker struct {
	mu      sync.Mutex
	Steps   []Step
	Default *Step
	Prompts []string
	idx     int
}

// NewScriptedInvoker creates an invoker that plays steps in order.
func NewScriptedInvoker(steps ...Step) *ScriptedInvoker {
	return &ScriptedInvoker{Steps: steps}
}

// AlwaysFail returns an invoker whose every call fails with msg.
func AlwaysFail(msg string) *ScriptedInvoker {
	s := Fail(msg)
	return &ScriptedInvoker{Default: &s}
}

// AlwaysReply returns an invoker whose every call returns text.
func AlwaysReply(text string) *ScriptedInvoker {
	s := Reply(text)
	return &ScriptedInvoker{Default: &s}
}

func (s *ScriptedInvoker) Invoke(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Prompts = append(s.Prompts, prompt)
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var step Step
	switch {
	case s.idx < len(s.Steps):
		step = s.Steps[s.idx]
		s.idx++
	case s.Default != nil:
		step = *s.Default
	default:
		return "", fmt.Errorf("script exhausted after %d calls", len(s.Prompts)-1)
	}
	if step.Err != nil {
		return "", step.Err
	}
	return step.Text, nil
}

// CallCount returns the number of Invoke calls made.
func (s *ScriptedInvoker) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Prompts)
}

// LastPrompt returns the most recent prompt, or "".
func (s *ScriptedInvoker) LastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Prompts) == 0 {
		return ""
	}
	return s.Prompts[len(s.Prompts)-1]
}

// TestLogger returns a logger suitable for tests (no output).
func TestLogger() *telemetry.Logger {
	return telemetry.NewDiscardLogger()
}

// TestConfig returns a minimal config for testing.
func TestConfig() *config.Config {
	return &config.Config{
		Name:    "test-project",
		Version: "1.0",
		Provider: config.ProviderConfig{
			Name:  "anthropic",
			Model: "mock-model",
		},
		Defaults: config.DefaultsConfig{
			MaxRetries:      1,
			Backoff:         "0s",
			BackoffStrategy: "fixed",
		},
		Logging: config.LoggingConfig{
			Level:  "debug",
			Format: "text",
		},
		State: config.StateConfig{
			Driver: "memory",
		},
		Pipeline: config.PipelineConfig{
			ErrorStrategy: config.ErrorStrategyFailFast,
		},
	}
}
