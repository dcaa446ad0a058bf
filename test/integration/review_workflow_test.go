//go:build integration

package integration

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/cadre-oss/reqcheck/internal/app"
	"github.com/cadre-oss/reqcheck/internal/config"
	"github.com/cadre-oss/reqcheck/internal/event"
	"github.com/cadre-oss/reqcheck/internal/pipeline"
	"github.com/cadre-oss/reqcheck/internal/state"
	"github.com/cadre-oss/reqcheck/internal/testutil"
)

type recorder struct {
	mu    sync.Mutex
	types []event.EventType
}

func (r *recorder) Name() string                 { return "recorder" }
func (r *recorder) Matches(event.EventType) bool { return true }
func (r *recorder) IsBlocking() bool             { return true }
func (r *recorder) Handle(ev event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, ev.Type)
	return nil
}

func (r *recorder) count(t event.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, got := range r.types {
		if got == t {
			n++
		}
	}
	return n
}

func review(t *testing.T, cfg *config.Config, model *testutil.ScriptedInvoker, hooks ...event.Hook) *pipeline.Report {
	t.Helper()
	a, err := app.New(context.Background(), app.Options{
		Config:    cfg,
		Model:     model,
		LogOutput: io.Discard,
		Hooks:     hooks,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	report, err := a.Review(context.Background(), pipeline.Inputs{
		Requirements: "Return the sum of two integers.",
		Code:         "func add(a, b int) int { return a + b }",
	})
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	return report
}

func TestReviewHistoryPersistsAcrossRuns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.db")
	cfg := testutil.TestConfig()
	cfg.State = config.StateConfig{Driver: "sqlite", Path: dbPath}

	first := review(t, cfg, testutil.AlwaysReply("first"))
	second := review(t, cfg, testutil.AlwaysReply("Requirements score: 90%\nCode score: 70%"))

	if second.Scores.Requirements.Value != 90 || second.Scores.Code.Value != 70 {
		t.Errorf("scores = %+v", second.Scores)
	}
	// Memory starts empty for every run.
	for k, v := range second.Memory {
		if strings.Contains(v, "first") {
			t.Errorf("memory key %s leaked text from the first run", k)
		}
	}

	mgr, err := state.NewManager(context.Background(), "sqlite", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer mgr.Close()

	runs, err := mgr.ListRuns(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}
	for _, id := range []string{first.RunID, second.RunID} {
		run, err := mgr.GetRun(context.Background(), id)
		if err != nil {
			t.Fatalf("get run %s: %v", id, err)
		}
		if run.Status != state.StatusCompleted {
			t.Errorf("run %s status = %s", id, run.Status)
		}
		if len(run.Stages) != len(pipeline.ReviewStages(pipeline.ReviewOptions{})) {
			t.Errorf("run %s stages = %d", id, len(run.Stages))
		}
		if run.Metadata["error_strategy"] != config.ErrorStrategyFailFast {
			t.Errorf("run %s metadata = %v", id, run.Metadata)
		}
	}
}

func TestReviewEventsAndStageOrder(t *testing.T) {
	rec := &recorder{}
	model := testutil.AlwaysReply("ok")
	report := review(t, testutil.TestConfig(), model, rec)

	want := []string{
		pipeline.StageRequirementAnalysis,
		pipeline.StageAlignment,
		pipeline.StageReferenceCode,
		pipeline.StageComparison,
		pipeline.StageReport,
		pipeline.StageQuality,
		pipeline.StageSummary,
	}
	if len(report.Stages) != len(want) {
		t.Fatalf("stages = %d, want %d", len(report.Stages), len(want))
	}
	for i, s := range report.Stages {
		if s.Name != want[i] {
			t.Errorf("stage %d = %s, want %s", i, s.Name, want[i])
		}
	}
	if model.CallCount() != len(want) {
		t.Errorf("model calls = %d, want %d", model.CallCount(), len(want))
	}

	if n := rec.count(event.PipelineStarted); n != 1 {
		t.Errorf("pipeline.started = %d", n)
	}
	if n := rec.count(event.StageCompleted); n != len(want) {
		t.Errorf("stage.completed = %d", n)
	}
	if n := rec.count(event.PipelineCompleted); n != 1 {
		t.Errorf("pipeline.completed = %d", n)
	}
}
