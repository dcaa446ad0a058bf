// Package app assembles a review pipeline from configuration: logging,
// metrics, hooks, run history, the model and the driver.
package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cadre-oss/reqcheck/internal/agent"
	"github.com/cadre-oss/reqcheck/internal/config"
	rcErrors "github.com/cadre-oss/reqcheck/internal/errors"
	"github.com/cadre-oss/reqcheck/internal/event"
	"github.com/cadre-oss/reqcheck/internal/memory"
	"github.com/cadre-oss/reqcheck/internal/pipeline"
	"github.com/cadre-oss/reqcheck/internal/provider"
	"github.com/cadre-oss/reqcheck/internal/source"
	"github.com/cadre-oss/reqcheck/internal/state"
	"github.com/cadre-oss/reqcheck/internal/telemetry"
)

// Options configures New. Only Config is required.
type Options struct {
	Config  *config.Config
	Verbose bool
	// Model replaces the provider named in Config.
	Model     provider.Invoker
	Retriever source.Retriever
	// LogOutput defaults to stderr.
	LogOutput io.Writer
	// StateDriver overrides Config.State.Driver when set.
	StateDriver string
	// State shares run history owned by the caller. Close leaves it open.
	State *state.Manager
	// Hooks are registered on the event bus after the configured ones.
	Hooks []event.Hook
}

// App is a ready-to-run review pipeline and everything it owns.
type App struct {
	Config   *config.Config
	Logger   *telemetry.Logger
	Metrics  *telemetry.Metrics
	EventBus *event.Bus
	State    *state.Manager
	Memory   *memory.Store
	Driver   *pipeline.Driver

	timeout time.Duration
	closers []func() error
}

// New validates the configuration and wires the pipeline. Call Close
// when done.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, rcErrors.New(rcErrors.CodeConfigInvalid, "no configuration given")
	}
	if opts.StateDriver != "" {
		cfg.State.Driver = opts.StateDriver
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Memory: memory.New()}

	level := cfg.Logging.Level
	if opts.Verbose {
		level = "debug"
	}
	a.Logger = telemetry.NewLoggerWithOptions(telemetry.LoggerOptions{
		Level:  level,
		Format: cfg.Logging.Format,
		Output: opts.LogOutput,
	})
	a.closers = append(a.closers, a.Logger.Close)
	if cfg.Logging.File != "" {
		if err := a.Logger.WithFile(cfg.Logging.File); err != nil {
			a.Close()
			return nil, rcErrors.Wrap(rcErrors.CodeConfigInvalid, "failed to open log file", err)
		}
	}

	a.Metrics = telemetry.NewMetrics()
	if cfg.Logging.MetricsFile != "" {
		exporter, err := telemetry.NewJSONFileExporter(cfg.Logging.MetricsFile)
		if err != nil {
			a.Close()
			return nil, rcErrors.Wrap(rcErrors.CodeConfigInvalid, "failed to open metrics file", err)
		}
		a.Metrics.SetExporter(exporter)
		a.closers = append(a.closers, exporter.Close)
	}

	a.EventBus = event.NewBus(a.Logger)
	if cfg.Hooks.Enabled {
		hooks, err := BuildHooks(cfg.Hooks.Hooks, a.Logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		for _, h := range hooks {
			a.EventBus.Register(h)
		}
	}
	for _, h := range opts.Hooks {
		a.EventBus.Register(h)
	}

	var err error
	if opts.State != nil {
		a.State = opts.State
	} else {
		stateMgr, err := state.NewManager(ctx, cfg.State.Driver, cfg.State.Path)
		if err != nil {
			a.Close()
			return nil, rcErrors.Wrap(rcErrors.CodeConfigInvalid, "failed to initialize state", err)
		}
		a.State = stateMgr
		a.closers = append(a.closers, stateMgr.Close)
	}

	model := opts.Model
	if model == nil {
		model, err = agent.NewInvoker(cfg.Provider)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	a.timeout, err = cfg.Defaults.ParsedTimeout()
	if err != nil {
		a.Close()
		return nil, rcErrors.Wrap(rcErrors.CodeConfigInvalid, "invalid run timeout", err)
	}

	a.Driver, err = pipeline.NewReview(cfg, pipeline.Deps{
		Model:        model,
		Memory:       a.Memory,
		Retriever:    opts.Retriever,
		StateManager: a.State,
		Logger:       a.Logger,
		Metrics:      a.Metrics,
		EventBus:     a.EventBus,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

// Review runs the pipeline once, bounded by defaults.timeout when set.
func (a *App) Review(ctx context.Context, in pipeline.Inputs) (*pipeline.Report, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	return a.Driver.Run(ctx, in)
}

// hookDrainTimeout bounds how long Close waits for asynchronous hooks.
const hookDrainTimeout = 5 * time.Second

// Close waits for in-flight hook deliveries, then releases files and the
// state store, last opened first.
func (a *App) Close() error {
	if a.EventBus != nil {
		ctx, cancel := context.WithTimeout(context.Background(), hookDrainTimeout)
		if err := a.EventBus.Drain(ctx); err != nil {
			a.Logger.Warn("Event hooks still running at shutdown", "error", err)
		}
		cancel()
	}

	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

// BuildHooks turns hook configuration into registered-ready hooks.
func BuildHooks(cfgs []config.HookConfig, logger *telemetry.Logger) ([]event.Hook, error) {
	hooks := make([]event.Hook, 0, len(cfgs))
	for i, hc := range cfgs {
		events := make([]event.EventType, 0, len(hc.Events))
		for _, e := range hc.Events {
			events = append(events, event.EventType(e))
		}
		name := hc.Name
		if name == "" {
			name = fmt.Sprintf("%s-%d", hc.Type, i)
		}
		h, err := event.NewHook(hc.Type, name, events, event.HookOptions{
			Blocking: hc.Blocking,
			Command:  hc.Command,
			URL:      hc.URL,
			Message:  hc.Message,
			Level:    hc.Level,
			Logger:   logger,
		})
		if err != nil {
			return nil, rcErrors.Wrap(rcErrors.CodeConfigInvalid, "invalid hook", err)
		}
		hooks = append(hooks, h)
	}
	return hooks, nil
}
