package pipeline

import (
	"fmt"
	"strings"
	"time"
)

// StageResult is the outcome of one stage.
type StageResult struct {
	Name     string        `json:"name"`
	Role     string        `json:"role"`
	Agent    string        `json:"agent"`
	Status   string        `json:"status"`
	Text     string        `json:"text,omitempty"`
	Attempts int           `json:"attempts"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Report is everything a run produced, including partial results of a
// run that stopped early.
type Report struct {
	RunID       string            `json:"run_id"`
	Pipeline    string            `json:"pipeline"`
	Stages      []StageResult     `json:"stages"`
	Outputs     Outputs           `json:"outputs"`
	FinalReport string            `json:"final_report,omitempty"`
	Summary     string            `json:"summary,omitempty"`
	Scores      Scores            `json:"scores"`
	Failed      []string          `json:"failed,omitempty"`
	Memory      map[string]string `json:"memory,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	Duration    time.Duration     `json:"duration"`
}

// Stage returns the result of a stage by name.
func (r *Report) Stage(name string) (StageResult, bool) {
	for _, s := range r.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return StageResult{}, false
}

// OK reports whether every stage that ran succeeded.
func (r *Report) OK() bool {
	return len(r.Failed) == 0
}

// Markdown renders the report as a standalone markdown document.
func (r *Report) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s report\n\n", r.Pipeline)
	fmt.Fprintf(&b, "Run `%s`, %s\n\n", r.RunID, r.Duration.Round(time.Millisecond))

	if r.Scores.Requirements.Found || r.Scores.Code.Found {
		b.WriteString("## Scores\n\n")
		writeScore(&b, "Requirements", r.Scores.Requirements)
		writeScore(&b, "Code", r.Scores.Code)
		b.WriteString("\n")
	}

	if r.Summary != "" {
		b.WriteString("## Summary\n\n")
		b.WriteString(strings.TrimSpace(r.Summary))
		b.WriteString("\n\n")
	}

	if r.FinalReport != "" {
		b.WriteString("## Report\n\n")
		b.WriteString(strings.TrimSpace(r.FinalReport))
		b.WriteString("\n\n")
	}

	b.WriteString("## Stages\n\n")
	b.WriteString("| Stage | Agent | Status | Attempts | Duration |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, s := range r.Stages {
		fmt.Fprintf(&b, "| %s | %s | %s | %d | %s |\n",
			s.Name, s.Agent, s.Status, s.Attempts, s.Duration.Round(time.Millisecond))
	}

	if len(r.Failed) > 0 {
		fmt.Fprintf(&b, "\nFailed stages: %s\n", strings.Join(r.Failed, ", "))
	}

	return b.String()
}

func writeScore(b *strings.Builder, label string, s Score) {
	if !s.Found {
		fmt.Fprintf(b, "- %s: n/a\n", label)
		return
	}
	if s.Comment == "" {
		fmt.Fprintf(b, "- %s: %d%%\n", label, s.Value)
		return
	}
	fmt.Fprintf(b, "- %s: %d%% - %s\n", label, s.Value, s.Comment)
}
