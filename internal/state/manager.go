package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrRunNotFound is returned, wrapped, by every Store for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Store defines the interface for state storage backends
type Store interface {
	SaveRun(ctx context.Context, run *RunState) error
	GetRun(ctx context.Context, id string) (*RunState, error)
	ListRuns(ctx context.Context, limit int) ([]*RunState, error)
	DeleteRun(ctx context.Context, id string) error

	Close() error
}

// Manager tracks the active run and persists it to a Store
type Manager struct {
	store     Store
	mu        sync.RWMutex
	activeRun *RunState
}

// NewManager creates a new state manager. For sqlite path is a file; for
// postgres it is a DSN.
func NewManager(ctx context.Context, driver, path string) (*Manager, error) {
	var store Store
	var err error

	switch driver {
	case "memory", "":
		store = NewInMemoryStore()
	case "sqlite":
		store, err = NewSQLiteStore(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create sqlite store: %w", err)
		}
	case "postgres":
		store, err = NewPostgresStore(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres store: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported state driver: %s", driver)
	}

	return &Manager{store: store}, nil
}

// NewManagerWithStore wraps an existing store.
func NewManagerWithStore(store Store) *Manager {
	return &Manager{store: store}
}

// Close closes the state manager
func (m *Manager) Close() error {
	return m.store.Close()
}

// StartRun creates a run with one pending stage per name and makes it active
func (m *Manager) StartRun(ctx context.Context, pipeline string, inputs map[string]string, stages []StageState) (*RunState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run := NewRunState(uuid.New().String(), pipeline)
	run.Status = StatusRunning
	for k, v := range inputs {
		run.Inputs[k] = v
	}
	for _, st := range stages {
		if st.Status == "" {
			st.Status = StatusPending
		}
		run.Stages = append(run.Stages, st)
	}

	if err := m.store.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to save run: %w", err)
	}

	m.activeRun = run
	return run, nil
}

// UpdateStageState records a stage transition on the active run
func (m *Manager) UpdateStageState(ctx context.Context, name, status string, attempts int, output string, stageErr error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.activeRun == nil {
		return fmt.Errorf("no active run")
	}

	stage := m.activeRun.GetStage(name)
	if stage == nil {
		return fmt.Errorf("stage not found: %s", name)
	}

	stage.Status = status
	switch status {
	case StatusRunning:
		stage.StartedAt = time.Now()
	case StatusCompleted, StatusFailed, StatusSkipped:
		stage.CompletedAt = time.Now()
	}
	if attempts > 0 {
		stage.Attempts = attempts
	}
	if output != "" {
		stage.Output = output
	}
	if stageErr != nil {
		stage.Error = stageErr.Error()
	}

	return m.store.SaveRun(ctx, m.activeRun)
}

// CompleteRun marks the run as complete
func (m *Manager) CompleteRun(ctx context.Context, outputs, memory map[string]string) error {
	return m.finish(ctx, StatusCompleted, outputs, memory, nil)
}

// FailRun marks the run as failed
func (m *Manager) FailRun(ctx context.Context, runErr error, outputs, memory map[string]string) error {
	return m.finish(ctx, StatusFailed, outputs, memory, runErr)
}

func (m *Manager) finish(ctx context.Context, status string, outputs, memory map[string]string, runErr error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.activeRun == nil {
		return fmt.Errorf("no active run")
	}

	m.activeRun.Status = status
	m.activeRun.CompletedAt = time.Now()
	if outputs != nil {
		m.activeRun.Outputs = outputs
	}
	if memory != nil {
		m.activeRun.Memory = memory
	}
	if runErr != nil {
		m.activeRun.Error = runErr.Error()
	}

	if err := m.store.SaveRun(ctx, m.activeRun); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// GetActiveRun returns the run started by this manager, if any
func (m *Manager) GetActiveRun() *RunState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeRun
}

// GetRun loads a run by ID
func (m *Manager) GetRun(ctx context.Context, id string) (*RunState, error) {
	return m.store.GetRun(ctx, id)
}

// ListRuns lists recent runs
func (m *Manager) ListRuns(ctx context.Context, limit int) ([]*RunState, error) {
	return m.store.ListRuns(ctx, limit)
}

// DeleteRun removes a run from the store
func (m *Manager) DeleteRun(ctx context.Context, id string) error {
	return m.store.DeleteRun(ctx, id)
}

// SetMetadata sets a key-value pair on the active run's metadata.
func (m *Manager) SetMetadata(key string, value interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.activeRun == nil {
		return
	}
	if m.activeRun.Metadata == nil {
		m.activeRun.Metadata = make(map[string]interface{})
	}
	m.activeRun.Metadata[key] = value
}
