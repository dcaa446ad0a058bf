package state

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// InMemoryStore keeps run history for the lifetime of the process.
type InMemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*RunState
}

// NewInMemoryStore creates a new in-memory store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		runs: make(map[string]*RunState),
	}
}

// SaveRun saves a run state
func (s *InMemoryStore) SaveRun(_ context.Context, run *RunState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *run
	cp.Stages = append([]StageState(nil), run.Stages...)
	s.runs[run.ID] = &cp
	return nil
}

// GetRun retrieves a run state
func (s *InMemoryStore) GetRun(_ context.Context, id string) (*RunState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if run, ok := s.runs[id]; ok {
		cp := *run
		return &cp, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
}

// ListRuns lists runs, most recently started first
func (s *InMemoryStore) ListRuns(_ context.Context, limit int) ([]*RunState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]*RunState, 0, len(s.runs))
	for _, run := range s.runs {
		cp := *run
		runs = append(runs, &cp)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// DeleteRun deletes a run
func (s *InMemoryStore) DeleteRun(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, id)
	return nil
}

// Close is a no-op.
func (s *InMemoryStore) Close() error {
	return nil
}
