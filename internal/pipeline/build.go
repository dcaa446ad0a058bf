package pipeline

import (
	"fmt"

	"github.com/cadre-oss/reqcheck/internal/agent"
	"github.com/cadre-oss/reqcheck/internal/config"
	rcErrors "github.com/cadre-oss/reqcheck/internal/errors"
	"github.com/cadre-oss/reqcheck/internal/event"
	"github.com/cadre-oss/reqcheck/internal/memory"
	"github.com/cadre-oss/reqcheck/internal/provider"
	"github.com/cadre-oss/reqcheck/internal/roles"
	"github.com/cadre-oss/reqcheck/internal/source"
	"github.com/cadre-oss/reqcheck/internal/state"
	"github.com/cadre-oss/reqcheck/internal/telemetry"
)

// Deps are the runtime collaborators of a review driver. Model is
// required; a nil Memory gets a fresh store.
type Deps struct {
	Model        provider.Invoker
	Memory       *memory.Store
	Retriever    source.Retriever
	StateManager *state.Manager
	Logger       *telemetry.Logger
	Metrics      *telemetry.Metrics
	EventBus     *event.Bus
}

// NewReview builds the review driver described by cfg: one agent per
// role, all sharing one memory store and one model.
func NewReview(cfg *config.Config, deps Deps) (*Driver, error) {
	if deps.Model == nil {
		return nil, rcErrors.New(rcErrors.CodeConfigInvalid, "review pipeline requires a model")
	}
	if deps.Memory == nil {
		deps.Memory = memory.New()
	}
	if deps.Logger == nil {
		deps.Logger = telemetry.NewDiscardLogger()
	}
	if deps.Metrics == nil {
		deps.Metrics = telemetry.NewMetrics()
	}

	stages := ReviewStages(ReviewOptions{CodeAnalysis: cfg.Pipeline.CodeAnalysis})

	agents := make(map[string]*agent.Agent, len(stages))
	for i, s := range stages {
		if _, built := agents[s.Role]; built {
			continue
		}
		a, err := NewRoleAgent(cfg, s.Role, deps)
		if err != nil {
			return nil, err
		}
		agents[s.Role] = a
		if cfg.Role(s.Role).Disabled {
			stages[i].Skip = true
		}
	}

	return NewDriver(DriverConfig{
		Name:          ReviewName,
		Stages:        stages,
		Agents:        agents,
		Memory:        deps.Memory,
		ErrorStrategy: cfg.Pipeline.ErrorStrategy,
		Retriever:     deps.Retriever,
		Finalize:      FinalizeReview,
		StateManager:  deps.StateManager,
		Logger:        deps.Logger,
		Metrics:       deps.Metrics,
		EventBus:      deps.EventBus,
	})
}

// NewRoleAgent builds the agent for a built-in role with cfg's overrides.
func NewRoleAgent(cfg *config.Config, roleID string, deps Deps) (*agent.Agent, error) {
	role, err := roles.Get(roleID)
	if err != nil {
		return nil, rcErrors.Wrap(rcErrors.CodeRoleNotFound, fmt.Sprintf("role %s", roleID), err)
	}
	override := cfg.Role(roleID)
	role = role.Override(override.Name, override.Instructions)

	retries := cfg.Defaults.MaxRetries
	if override.MaxRetries > 0 {
		retries = override.MaxRetries
	}

	backoff, err := agent.BackoffFromConfig(cfg.Defaults, override.Backoff)
	if err != nil {
		return nil, err
	}

	return agent.New(agent.Config{
		Name:         role.Name,
		Instructions: role.Instructions,
		Model:        deps.Model,
		MaxRetries:   retries,
		Backoff:      backoff,
		Memory:       deps.Memory,
		Logger:       deps.Logger,
		Metrics:      deps.Metrics,
		EventBus:     deps.EventBus,
	})
}
