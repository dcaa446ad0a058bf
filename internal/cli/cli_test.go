package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cadre-oss/reqcheck/internal/pipeline"
	"github.com/cadre-oss/reqcheck/internal/state"
)

func TestSetNestedValue(t *testing.T) {
	m := map[string]interface{}{
		"provider": map[string]interface{}{"name": "anthropic"},
		"name":     "demo",
	}

	if err := setNestedValue(m, "provider.model", "claude"); err != nil {
		t.Fatal(err)
	}
	if err := setNestedValue(m, "roles.summarizer.disabled", true); err != nil {
		t.Fatal(err)
	}
	if got := m["provider"].(map[string]interface{})["model"]; got != "claude" {
		t.Errorf("provider.model = %v", got)
	}
	roles := m["roles"].(map[string]interface{})
	if got := roles["summarizer"].(map[string]interface{})["disabled"]; got != true {
		t.Errorf("roles.summarizer.disabled = %v", got)
	}

	if err := setNestedValue(m, "name.first", "x"); err == nil {
		t.Error("expected error descending into a scalar")
	}
	if err := setNestedValue(m, "provider.", "x"); err == nil {
		t.Error("expected error for empty key segment")
	}
}

func TestParseScalar(t *testing.T) {
	tests := []struct {
		in   string
		want interface{}
	}{
		{"true", true},
		{"3", 3},
		{"0.5", 0.5},
		{"continue", "continue"},
		{"20s", "20s"},
		{"[a, b]", "[a, b]"},
	}
	for _, tt := range tests {
		if got := parseScalar(tt.in); got != tt.want {
			t.Errorf("parseScalar(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func sampleReport() *pipeline.Report {
	return &pipeline.Report{
		RunID:       "run-1",
		Pipeline:    pipeline.ReviewName,
		FinalReport: "All requirements met.",
		Summary:     "Good.",
		Scores: pipeline.Scores{
			Requirements: pipeline.Score{Value: 80, Found: true},
			Code:         pipeline.Score{Value: 50, Comment: "half", Found: true},
		},
	}
}

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()

	mdPath := filepath.Join(dir, "out", "report.md")
	if err := writeReport(mdPath, sampleReport()); err != nil {
		t.Fatal(err)
	}
	md, err := os.ReadFile(mdPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(md), "50% - half") {
		t.Errorf("markdown missing score:\n%s", md)
	}

	jsonPath := filepath.Join(dir, "report.JSON")
	if err := writeReport(jsonPath, sampleReport()); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	var decoded pipeline.Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json report: %v", err)
	}
	if decoded.RunID != "run-1" {
		t.Errorf("run id = %q", decoded.RunID)
	}
}

func TestFormatScore(t *testing.T) {
	if got := formatScore(pipeline.Score{Value: 70, Found: true}); got != "70%" {
		t.Errorf("got %q", got)
	}
	if got := formatScore(pipeline.Score{Value: 70, Comment: "ok", Found: true}); got != "70% - ok" {
		t.Errorf("got %q", got)
	}
	if got := formatScore(pipeline.Score{}); !strings.Contains(got, "n/a") {
		t.Errorf("got %q", got)
	}
}

func TestRenderPlan(t *testing.T) {
	stages := pipeline.ReviewStages(pipeline.ReviewOptions{})
	var buf bytes.Buffer
	renderPlan(&buf, stages)

	out := buf.String()
	for _, s := range stages {
		if !strings.Contains(out, s.Name) {
			t.Errorf("plan missing stage %s", s.Name)
		}
	}
}

func TestShowStatusAndRun(t *testing.T) {
	ctx := context.Background()
	mgr := state.NewManagerWithStore(state.NewInMemoryStore())

	var buf bytes.Buffer
	if err := showStatus(ctx, &buf, mgr, 10); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No runs found.") {
		t.Errorf("empty status = %q", buf.String())
	}

	run, err := mgr.StartRun(ctx, "review", nil, []state.StageState{{Name: "alignment", Agent: "Alignment Checker"}})
	if err != nil {
		t.Fatal(err)
	}
	mgr.UpdateStageState(ctx, "alignment", state.StatusFailed, 2, "", os.ErrDeadlineExceeded)
	mgr.FailRun(ctx, os.ErrDeadlineExceeded, nil, nil)

	buf.Reset()
	if err := showStatus(ctx, &buf, mgr, 10); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Failed stages: [alignment]") {
		t.Errorf("status = %q", buf.String())
	}

	buf.Reset()
	if err := showRun(ctx, &buf, mgr, run.ID); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Agent: Alignment Checker") || !strings.Contains(out, "Attempts: 2") {
		t.Errorf("run detail = %q", out)
	}

	if err := showRun(ctx, &buf, mgr, "missing"); err == nil {
		t.Error("expected error for unknown run")
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("abc"); got != "abc" {
		t.Errorf("got %q", got)
	}
	if got := shortID("0123456789abcdef"); len(got) >= len("0123456789abcdef") {
		t.Errorf("shortID did not shorten: %q", got)
	}
}
