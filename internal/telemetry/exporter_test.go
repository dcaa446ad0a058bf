package telemetry

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestJSONFileExporter_Export(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".reqcheck", "metrics.jsonl")

	exporter, err := NewJSONFileExporter(path)
	if err != nil {
		t.Fatal(err)
	}

	snapshot := MetricsSnapshot{
		Timestamp: time.Now(),
		Event:     "pipeline.completed",
		Metrics: map[string]interface{}{
			"stages_completed": int64(8),
			"model_attempts":   int64(9),
		},
		Labels: map[string]string{"run_id": "run-1"},
	}
	if err := exporter.Export(snapshot); err != nil {
		t.Fatal(err)
	}
	snapshot.Event = "pipeline.failed"
	if err := exporter.Export(snapshot); err != nil {
		t.Fatal(err)
	}
	if err := exporter.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var events []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var parsed MetricsSnapshot
		if err := json.Unmarshal(scanner.Bytes(), &parsed); err != nil {
			t.Fatalf("bad line %q: %v", scanner.Text(), err)
		}
		events = append(events, parsed.Event)
		if parsed.Labels["run_id"] != "run-1" {
			t.Errorf("expected run_id label, got %v", parsed.Labels)
		}
	}
	if len(events) != 2 || events[0] != "pipeline.completed" || events[1] != "pipeline.failed" {
		t.Errorf("unexpected events %v", events)
	}
}

func TestMetrics_FlushWithExporter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.jsonl")
	exporter, err := NewJSONFileExporter(path)
	if err != nil {
		t.Fatal(err)
	}

	m := NewMetrics()
	m.SetExporter(exporter)
	m.IncStagesStarted()
	m.IncStagesCompleted()
	m.Flush("pipeline.completed", map[string]string{"run_id": "x"})
	exporter.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty metrics file")
	}

	var snapshot MetricsSnapshot
	if err := json.Unmarshal(data[:len(data)-1], &snapshot); err != nil {
		t.Fatal(err)
	}
	if snapshot.Event != "pipeline.completed" {
		t.Errorf("expected event 'pipeline.completed', got %q", snapshot.Event)
	}
	if got := snapshot.Metrics["stages_completed"]; got != float64(1) {
		t.Errorf("expected stages_completed 1, got %v", got)
	}
}

func TestMetrics_Summary(t *testing.T) {
	m := NewMetrics()
	m.IncStagesStarted()
	m.IncStagesStarted()
	m.IncStagesCompleted()
	m.IncStagesFailed()
	m.IncModelAttempts()
	m.IncModelAttempts()
	m.IncModelFailures()
	m.RecordStageDuration(10 * time.Millisecond)
	m.RecordStageDuration(30 * time.Millisecond)
	m.RecordAPILatency(4 * time.Millisecond)

	s := m.GetSummary()
	checks := map[string]int64{
		"stages_started":        2,
		"stages_completed":      1,
		"stages_failed":         1,
		"model_attempts":        2,
		"model_failures":        1,
		"active_stages":         0,
		"avg_stage_duration_ms": 20,
		"avg_api_latency_ms":    4,
	}
	for k, want := range checks {
		if got := s[k]; got != want {
			t.Errorf("%s = %v, want %d", k, got, want)
		}
	}

	m.Reset()
	if got := m.GetSummary()["model_attempts"]; got != int64(0) {
		t.Errorf("after reset model_attempts = %v", got)
	}
}

func TestJSONFileExporter_ExportAfterClose(t *testing.T) {
	exporter, err := NewJSONFileExporter(filepath.Join(t.TempDir(), "metrics.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	if err := exporter.Close(); err != nil {
		t.Fatal(err)
	}
	if err := exporter.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}

	m := NewMetrics()
	m.SetExporter(exporter)
	if err := m.Flush("pipeline.completed", nil); err == nil {
		t.Error("expected flush to a closed exporter to fail")
	}
}

func TestMetrics_FlushWithoutExporter(t *testing.T) {
	if err := NewMetrics().Flush("pipeline.completed", nil); err != nil {
		t.Errorf("flush without exporter: %v", err)
	}
}
