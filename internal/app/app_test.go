package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cadre-oss/reqcheck/internal/config"
	rcErrors "github.com/cadre-oss/reqcheck/internal/errors"
	"github.com/cadre-oss/reqcheck/internal/pipeline"
	"github.com/cadre-oss/reqcheck/internal/state"
	"github.com/cadre-oss/reqcheck/internal/testutil"
)

func TestNew_RunsReviewAndRecordsHistory(t *testing.T) {
	dir := t.TempDir()
	cfg := testutil.TestConfig()
	cfg.State = config.StateConfig{Driver: "sqlite", Path: filepath.Join(dir, "state.db")}
	cfg.Logging.File = filepath.Join(dir, "calls.log")
	cfg.Logging.MetricsFile = filepath.Join(dir, "metrics.jsonl")
	cfg.Hooks = config.HooksConfig{
		Enabled: true,
		Hooks:   []config.HookConfig{{Name: "trace", Type: "log", Events: []string{"stage.completed"}}},
	}

	var logs bytes.Buffer
	a, err := New(context.Background(), Options{
		Config:    cfg,
		Model:     testutil.AlwaysReply("Requirements score: 70% - ok\nCode score: 60% - ok"),
		LogOutput: &logs,
	})
	if err != nil {
		t.Fatal(err)
	}

	report, err := a.Review(context.Background(), pipeline.Inputs{Requirements: "R", Code: "C"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Scores.Code.Value != 60 {
		t.Errorf("scores = %+v", report.Scores)
	}

	runs, err := a.State.ListRuns(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != report.RunID || runs[0].Status != state.StatusCompleted {
		t.Errorf("unexpected run history: %+v", runs)
	}

	if err := a.Close(); err != nil {
		t.Fatal(err)
	}

	metrics, err := os.ReadFile(cfg.Logging.MetricsFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(metrics), "pipeline.completed") {
		t.Errorf("metrics file = %s", metrics)
	}
	callLog, err := os.ReadFile(cfg.Logging.File)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(callLog), "Stage completed") {
		t.Errorf("log file missing stage records")
	}
	if !strings.Contains(logs.String(), "[event] stage.completed") {
		t.Errorf("log hook did not fire")
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testutil.TestConfig()
	cfg.Pipeline.ErrorStrategy = "shrug"

	_, err := New(context.Background(), Options{Config: cfg, Model: testutil.AlwaysReply("x")})
	if rcErrors.AsCode(err) != rcErrors.CodeConfigInvalid {
		t.Errorf("expected CONFIG_INVALID, got %v", err)
	}

	if _, err := New(context.Background(), Options{}); rcErrors.AsCode(err) != rcErrors.CodeConfigInvalid {
		t.Errorf("expected CONFIG_INVALID without config, got %v", err)
	}
}

func TestBuildHooks(t *testing.T) {
	hooks, err := BuildHooks([]config.HookConfig{
		{Type: "shell", Command: "true", Events: []string{"pipeline.completed"}},
		{Name: "notify", Type: "webhook", URL: "http://localhost:9/x"},
	}, testutil.TestLogger())
	if err != nil {
		t.Fatal(err)
	}
	if len(hooks) != 2 || hooks[0].Name() != "shell-0" || hooks[1].Name() != "notify" {
		t.Errorf("unexpected hooks: %v", hooks)
	}

	_, err = BuildHooks([]config.HookConfig{{Type: "shell"}}, testutil.TestLogger())
	if rcErrors.AsCode(err) != rcErrors.CodeConfigInvalid {
		t.Errorf("expected CONFIG_INVALID, got %v", err)
	}
}
