package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	rcErrors "github.com/cadre-oss/reqcheck/internal/errors"
	"github.com/cadre-oss/reqcheck/internal/event"
	"github.com/cadre-oss/reqcheck/internal/memory"
	"github.com/cadre-oss/reqcheck/internal/provider"
	"github.com/cadre-oss/reqcheck/internal/telemetry"
)

const (
	// DefaultName labels memory writes when no name is configured.
	DefaultName = "Agent"
	// DefaultMaxRetries is the number of attempts made when none is configured.
	DefaultMaxRetries = 10
)

// Config describes one role-specialized agent.
type Config struct {
	Name         string
	Instructions string
	Model        provider.Invoker
	MaxRetries   int // total attempts, >= 1; 0 selects DefaultMaxRetries
	Backoff      Backoff
	Memory       *memory.Store // shared, not owned

	Logger   *telemetry.Logger
	Metrics  *telemetry.Metrics
	EventBus *event.Bus
}

// Agent wraps a single model invocation with role instructions, memory
// context and bounded retry.
type Agent struct {
	name         string
	instructions string
	model        provider.Invoker
	maxRetries   int
	backoff      Backoff
	memory       *memory.Store

	logger   *telemetry.Logger
	metrics  *telemetry.Metrics
	eventBus *event.Bus
}

// New creates an agent. The instructions are copied and never change.
func New(cfg Config) (*Agent, error) {
	if cfg.Model == nil {
		return nil, rcErrors.New(rcErrors.CodeConfigInvalid, "agent requires a model").
			WithSuggestion("Bind a provider with provider.Bind or wrap a function in provider.InvokerFunc")
	}
	if cfg.MaxRetries < 0 {
		return nil, rcErrors.New(rcErrors.CodeConfigInvalid,
			fmt.Sprintf("max retries must not be negative, got %d", cfg.MaxRetries))
	}

	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = DefaultName
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = DefaultMaxRetries
	}

	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.NewDiscardLogger()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NewMetrics()
	}

	return &Agent{
		name:         name,
		instructions: cfg.Instructions,
		model:        cfg.Model,
		maxRetries:   maxRetries,
		backoff:      cfg.Backoff,
		memory:       cfg.Memory,
		logger:       logger.WithFields(map[string]interface{}{"agent": name}),
		metrics:      metrics,
		eventBus:     cfg.EventBus,
	}, nil
}

// Name returns the display name.
func (a *Agent) Name() string {
	return a.name
}

// Instructions returns the role instructions.
func (a *Agent) Instructions() string {
	return a.instructions
}

// MaxRetries returns the total number of attempts per Run.
func (a *Agent) MaxRetries() int {
	return a.maxRetries
}

// Prompt composes the prompt Run would send for input, reading context
// from readKey when the agent has a memory store.
func (a *Agent) Prompt(input, readKey string) string {
	var context string
	if a.memory != nil && readKey != "" {
		context = a.memory.Read(readKey)
	}
	return ComposePrompt(a.instructions, readKey, context, input)
}

// Run composes the prompt, invokes the model with retry and, on success,
// appends the labeled result to writeKey. Empty keys mean "no memory".
//
// Run never returns an error: exhausted retries come back as a failed
// Result and leave memory untouched.
func (a *Agent) Run(ctx context.Context, input, readKey, writeKey string) Result {
	start := time.Now()
	prompt := a.Prompt(input, readKey)

	a.logger.Debug("Agent prompt", "read_key", readKey, "prompt", prompt)

	var lastErr error
	attempts := 0
	for attempts < a.maxRetries {
		attempts++
		a.logger.Info("Invoking model", "attempt", attempts, "max_attempts", a.maxRetries)
		a.metrics.IncModelAttempts()

		callStart := time.Now()
		text, err := a.model.Invoke(ctx, prompt)
		a.metrics.RecordAPILatency(time.Since(callStart))

		if err == nil {
			text = strings.TrimSpace(text)
			a.logger.Info("Model replied", "attempt", attempts, "length", len(text))
			a.logger.Debug("Agent reply", "reply", text)

			if a.memory != nil && writeKey != "" {
				a.memory.Append(writeKey, Label(a.name, text))
			}
			return Result{Text: text, Attempts: attempts, Duration: time.Since(start)}
		}

		lastErr = err
		a.metrics.IncModelFailures()
		a.logger.Error("Model invocation failed", "attempt", attempts, "error", err)

		if ctx.Err() != nil || attempts >= a.maxRetries {
			break
		}

		delay := a.backoff.Delay(attempts)
		a.eventBus.Emit(event.NewEvent(event.AgentRetrying, map[string]interface{}{
			"agent":   a.name,
			"attempt": attempts,
			"delay":   delay.String(),
			"error":   err.Error(),
		}))
		if err := sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}

	failure := rcErrors.Wrap(rcErrors.CodeRetriesExhausted,
		fmt.Sprintf("agent %q produced no result after %d attempt(s)", a.name, attempts), lastErr)
	a.logger.Error("Agent gave up", "attempts", attempts, "error", lastErr)

	return Result{Attempts: attempts, Duration: time.Since(start), Err: failure}
}

// ComposePrompt joins instructions, an optional context block and input
// with newlines. The context block is omitted when context is empty.
func ComposePrompt(instructions, contextKey, context, input string) string {
	parts := make([]string, 0, 3)
	if instructions != "" {
		parts = append(parts, instructions)
	}
	if context != "" {
		parts = append(parts, ContextBlock(contextKey, context))
	}
	if input != "" {
		parts = append(parts, input)
	}
	return strings.Join(parts, "\n")
}

// ContextBlock labels context read from memory with its source key.
func ContextBlock(key, context string) string {
	return fmt.Sprintf("Context from memory [%s]:\n%s", key, context)
}

// Label attributes a result to the agent that produced it.
func Label(name, text string) string {
	return name + ":\n" + text
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
