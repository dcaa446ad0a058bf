package state

import (
	"time"
)

// Run and stage statuses.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// RunState represents the state of a pipeline run
type RunState struct {
	ID          string            `json:"id"`
	Pipeline    string            `json:"pipeline"`
	Status      string            `json:"status"` // pending, running, completed, failed
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt time.Time         `json:"completed_at,omitempty"`
	Error       string            `json:"error,omitempty"`
	Stages      []StageState      `json:"stages"`
	Inputs      map[string]string `json:"inputs,omitempty"`
	Outputs     map[string]string `json:"outputs,omitempty"`
	// Memory is the shared store's contents when the run ended.
	Memory   map[string]string      `json:"memory,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// StageState represents the state of a stage within a run
type StageState struct {
	Name        string    `json:"name"`
	Agent       string    `json:"agent"`
	Status      string    `json:"status"` // pending, running, completed, failed, skipped
	StartedAt   time.Time `json:"started_at,omitempty"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
	Attempts    int       `json:"attempts"`
	Output      string    `json:"output,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Duration returns how long the stage ran, or zero if it has not finished.
func (s StageState) Duration() time.Duration {
	if s.StartedAt.IsZero() || s.CompletedAt.IsZero() {
		return 0
	}
	return s.CompletedAt.Sub(s.StartedAt)
}

// NewRunState creates a new run state
func NewRunState(id, pipeline string) *RunState {
	return &RunState{
		ID:        id,
		Pipeline:  pipeline,
		Status:    StatusPending,
		StartedAt: time.Now(),
		Stages:    []StageState{},
		Inputs:    make(map[string]string),
		Outputs:   make(map[string]string),
		Metadata:  make(map[string]interface{}),
	}
}

// GetStage returns a stage state by name
func (r *RunState) GetStage(name string) *StageState {
	for i := range r.Stages {
		if r.Stages[i].Name == name {
			return &r.Stages[i]
		}
	}
	return nil
}

// UpdateStage updates or adds a stage state
func (r *RunState) UpdateStage(stage StageState) {
	for i := range r.Stages {
		if r.Stages[i].Name == stage.Name {
			r.Stages[i] = stage
			return
		}
	}
	r.Stages = append(r.Stages, stage)
}

// IsComplete returns true if no stage is pending or running
func (r *RunState) IsComplete() bool {
	for _, stage := range r.Stages {
		if stage.Status == StatusPending || stage.Status == StatusRunning {
			return false
		}
	}
	return true
}

// FailedStages returns the names of failed stages in run order.
func (r *RunState) FailedStages() []string {
	var failed []string
	for _, stage := range r.Stages {
		if stage.Status == StatusFailed {
			failed = append(failed, stage.Name)
		}
	}
	return failed
}
