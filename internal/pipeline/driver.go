package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cadre-oss/reqcheck/internal/agent"
	"github.com/cadre-oss/reqcheck/internal/config"
	rcErrors "github.com/cadre-oss/reqcheck/internal/errors"
	"github.com/cadre-oss/reqcheck/internal/event"
	"github.com/cadre-oss/reqcheck/internal/memory"
	"github.com/cadre-oss/reqcheck/internal/source"
	"github.com/cadre-oss/reqcheck/internal/state"
	"github.com/cadre-oss/reqcheck/internal/telemetry"
)

// Memory keys seeded from the raw inputs before any stage runs.
const (
	KeyRequirements    = "requirements"
	KeyRequirementsRAG = "requirements_rag"
	KeyCode            = "code"
)

// DriverConfig wires a Driver. Stages, Agents and Memory are required.
type DriverConfig struct {
	Name   string
	Stages []Stage
	// Agents maps role ID to the agent that plays it.
	Agents map[string]*agent.Agent
	// Memory must be the store the agents were built with.
	Memory        *memory.Store
	ErrorStrategy string // config.ErrorStrategyFailFast or config.ErrorStrategyContinue
	Retriever     source.Retriever

	// Finalize fills the report's derived fields once all stages ran.
	Finalize func(r *Report)

	StateManager *state.Manager
	Logger       *telemetry.Logger
	Metrics      *telemetry.Metrics
	EventBus     *event.Bus
}

// Driver runs a fixed set of stages in dependency order against a shared
// memory store.
type Driver struct {
	name          string
	order         []Stage
	agents        map[string]*agent.Agent
	memory        *memory.Store
	errorStrategy string
	retriever     source.Retriever
	finalize      func(r *Report)

	stateMgr *state.Manager
	logger   *telemetry.Logger
	metrics  *telemetry.Metrics
	eventBus *event.Bus
}

// NewDriver validates the stage graph and resolves the execution order.
func NewDriver(cfg DriverConfig) (*Driver, error) {
	if cfg.Memory == nil {
		return nil, rcErrors.New(rcErrors.CodeConfigInvalid, "pipeline requires a memory store")
	}
	if len(cfg.Stages) == 0 {
		return nil, rcErrors.New(rcErrors.CodeConfigInvalid, "pipeline has no stages")
	}

	graph, err := NewGraph(cfg.Stages)
	if err != nil {
		return nil, err
	}
	hasAgent := func(role string) bool {
		_, ok := cfg.Agents[role]
		return ok
	}
	if err := graph.Validate(hasAgent); err != nil {
		return nil, err
	}
	order, err := graph.Order()
	if err != nil {
		return nil, err
	}

	strategy := cfg.ErrorStrategy
	switch strategy {
	case "":
		strategy = config.ErrorStrategyFailFast
	case config.ErrorStrategyFailFast, config.ErrorStrategyContinue:
	default:
		return nil, rcErrors.New(rcErrors.CodeConfigInvalid, fmt.Sprintf("unknown error strategy: %s", strategy))
	}

	d := &Driver{
		name:          cfg.Name,
		order:         order,
		agents:        cfg.Agents,
		memory:        cfg.Memory,
		errorStrategy: strategy,
		retriever:     cfg.Retriever,
		finalize:      cfg.Finalize,
		stateMgr:      cfg.StateManager,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
		eventBus:      cfg.EventBus,
	}
	if d.name == "" {
		d.name = "pipeline"
	}
	if d.retriever == nil {
		d.retriever = source.NoRetriever{}
	}
	if d.logger == nil {
		d.logger = telemetry.NewDiscardLogger()
	}
	if d.metrics == nil {
		d.metrics = telemetry.NewMetrics()
	}
	return d, nil
}

// Plan returns the stages in the order Run executes them.
func (d *Driver) Plan() []Stage {
	plan := make([]Stage, len(d.order))
	copy(plan, d.order)
	return plan
}

// Run executes every stage once. On a fail-fast abort the partial report
// is returned together with a STAGE_FAILED error.
func (d *Driver) Run(ctx context.Context, in Inputs) (*Report, error) {
	if strings.TrimSpace(in.Requirements) == "" {
		return nil, rcErrors.New(rcErrors.CodeInputMissing, "requirements text is empty")
	}
	if strings.TrimSpace(in.Code) == "" {
		return nil, rcErrors.New(rcErrors.CodeInputMissing, "code text is empty")
	}

	report := &Report{
		Pipeline:  d.name,
		Outputs:   make(Outputs),
		StartedAt: time.Now(),
	}

	retrieved, err := d.retriever.Retrieve(ctx, in.Requirements)
	if err != nil {
		d.logger.Warn("Retrieval failed, continuing without it", "error", err)
		retrieved = ""
	}

	d.memory.Clear()
	d.memory.Append(KeyRequirements, in.Requirements)
	d.memory.Append(KeyRequirementsRAG, joinNonEmpty(in.Requirements, retrieved))
	d.memory.Append(KeyCode, in.Code)

	report.RunID = uuid.New().String()
	if d.stateMgr != nil {
		stages := make([]state.StageState, 0, len(d.order))
		for _, s := range d.order {
			stages = append(stages, state.StageState{Name: s.Name, Agent: d.agents[s.Role].Name()})
		}
		inputs := map[string]string{
			KeyRequirements: in.Requirements,
			KeyCode:         in.Code,
		}
		if retrieved != "" {
			inputs["retrieved"] = retrieved
		}
		run, err := d.stateMgr.StartRun(ctx, d.name, inputs, stages)
		if err != nil {
			d.logger.Warn("Failed to record run start", "error", err)
		} else {
			report.RunID = run.ID
			d.stateMgr.SetMetadata("error_strategy", d.errorStrategy)
		}
	}

	d.logger.Info("Starting pipeline", "pipeline", d.name, "run", report.RunID, "stages", len(d.order))
	d.eventBus.Emit(event.NewEvent(event.PipelineStarted, map[string]interface{}{
		"pipeline": d.name,
		"run_id":   report.RunID,
	}))

	for _, s := range d.order {
		select {
		case <-ctx.Done():
			return d.abort(ctx, report, rcErrors.Wrap(rcErrors.CodeStageFailed,
				fmt.Sprintf("pipeline cancelled before stage %s", s.Name), ctx.Err()))
		default:
		}

		if s.Skip {
			d.skipStage(ctx, report, s)
			continue
		}

		res := d.runStage(ctx, in, report, s)
		if res.OK() {
			continue
		}

		if ctx.Err() != nil || s.Required || d.errorStrategy == config.ErrorStrategyFailFast {
			return d.abort(ctx, report, rcErrors.Wrap(rcErrors.CodeStageFailed,
				fmt.Sprintf("stage %s failed", s.Name), res.Err).
				WithSuggestion("Re-run with --error-strategy continue to get a partial report"))
		}

		d.logger.Warn("Stage failed, continuing with placeholder", "stage", s.Name, "error", res.Err)
		report.Outputs[s.Name] = Placeholder(s.Name)
	}

	if d.finalize != nil {
		d.finalize(report)
	}
	report.Memory = d.memory.Snapshot()
	report.Duration = time.Since(report.StartedAt)

	if d.stateMgr != nil {
		if err := d.stateMgr.CompleteRun(context.WithoutCancel(ctx), report.Outputs, report.Memory); err != nil {
			d.logger.Warn("Failed to record run completion", "error", err)
		}
	}

	d.logger.Info("Pipeline completed", "pipeline", d.name, "run", report.RunID,
		"failed", len(report.Failed), "duration", report.Duration)
	d.eventBus.Emit(event.NewEvent(event.PipelineCompleted, map[string]interface{}{
		"pipeline": d.name,
		"run_id":   report.RunID,
		"failed":   report.Failed,
	}))
	d.flushMetrics("pipeline.completed", report.RunID)

	return report, nil
}

func (d *Driver) runStage(ctx context.Context, in Inputs, report *Report, s Stage) agent.Result {
	a := d.agents[s.Role]

	if s.Seed != nil && s.Read != "" {
		d.memory.Append(s.Read, s.Seed(in, report.Outputs))
	}

	d.updateState(ctx, s.Name, state.StatusRunning, 0, "", nil)
	d.metrics.IncStagesStarted()
	d.logger.Info("Starting stage", "stage", s.Name, "agent", a.Name())
	d.eventBus.Emit(event.NewEvent(event.StageStarted, map[string]interface{}{
		"run_id":   report.RunID,
		"pipeline": d.name,
		"stage":    s.Name,
		"agent":    a.Name(),
	}))

	res := a.Run(ctx, s.Input, s.Read, s.Write)
	d.metrics.RecordStageDuration(res.Duration)

	result := StageResult{
		Name:     s.Name,
		Role:     s.Role,
		Agent:    a.Name(),
		Text:     res.Text,
		Attempts: res.Attempts,
		Duration: res.Duration,
	}

	if !res.OK() {
		result.Status = state.StatusFailed
		result.Error = res.Err.Error()
		report.Stages = append(report.Stages, result)
		report.Failed = append(report.Failed, s.Name)

		d.updateState(ctx, s.Name, state.StatusFailed, res.Attempts, "", res.Err)
		d.metrics.IncStagesFailed()
		d.logger.Error("Stage failed", "stage", s.Name, "agent", a.Name(), "attempts", res.Attempts, "error", res.Err)
		d.eventBus.Emit(event.NewEvent(event.StageFailed, map[string]interface{}{
			"run_id":   report.RunID,
			"pipeline": d.name,
			"stage":    s.Name,
			"agent":    a.Name(),
			"attempts": res.Attempts,
			"error":    res.Err.Error(),
		}))
		return res
	}

	result.Status = state.StatusCompleted
	report.Stages = append(report.Stages, result)
	report.Outputs[s.Name] = res.Text

	d.updateState(ctx, s.Name, state.StatusCompleted, res.Attempts, res.Text, nil)
	d.metrics.IncStagesCompleted()
	d.logger.Info("Stage completed", "stage", s.Name, "agent", a.Name(),
		"attempts", res.Attempts, "duration", res.Duration)
	d.eventBus.Emit(event.NewEvent(event.StageCompleted, map[string]interface{}{
		"run_id":   report.RunID,
		"pipeline": d.name,
		"stage":    s.Name,
		"agent":    a.Name(),
		"attempts": res.Attempts,
	}))
	return res
}

func (d *Driver) skipStage(ctx context.Context, report *Report, s Stage) {
	report.Stages = append(report.Stages, StageResult{
		Name:   s.Name,
		Role:   s.Role,
		Agent:  d.agents[s.Role].Name(),
		Status: state.StatusSkipped,
	})
	report.Outputs[s.Name] = SkippedPlaceholder(s.Name)

	d.updateState(ctx, s.Name, state.StatusSkipped, 0, "", nil)
	d.logger.Info("Skipping disabled stage", "stage", s.Name)
	d.eventBus.Emit(event.NewEvent(event.StageSkipped, map[string]interface{}{
		"run_id":   report.RunID,
		"pipeline": d.name,
		"stage":    s.Name,
	}))
}

func (d *Driver) abort(ctx context.Context, report *Report, err error) (*Report, error) {
	report.Memory = d.memory.Snapshot()
	report.Duration = time.Since(report.StartedAt)

	if d.stateMgr != nil {
		if ferr := d.stateMgr.FailRun(context.WithoutCancel(ctx), err, report.Outputs, report.Memory); ferr != nil {
			d.logger.Warn("Failed to record run failure", "error", ferr)
		}
	}

	d.logger.Error("Pipeline failed", "pipeline", d.name, "run", report.RunID, "error", err)
	d.eventBus.Emit(event.NewEvent(event.PipelineFailed, map[string]interface{}{
		"pipeline": d.name,
		"run_id":   report.RunID,
		"error":    err.Error(),
	}))
	d.flushMetrics("pipeline.failed", report.RunID)

	return report, err
}

func (d *Driver) flushMetrics(event, runID string) {
	labels := map[string]string{"pipeline": d.name, "run_id": runID}
	if err := d.metrics.Flush(event, labels); err != nil {
		d.logger.Warn("Failed to export metrics", "error", err)
	}
}

func (d *Driver) updateState(ctx context.Context, name, status string, attempts int, output string, stageErr error) {
	if d.stateMgr == nil {
		return
	}
	if err := d.stateMgr.UpdateStageState(context.WithoutCancel(ctx), name, status, attempts, output, stageErr); err != nil {
		d.logger.Warn("Failed to record stage state", "stage", name, "error", err)
	}
}

func joinNonEmpty(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}
