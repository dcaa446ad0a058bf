package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/cadre-oss/reqcheck/internal/pipeline"
	"github.com/cadre-oss/reqcheck/internal/state"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#B15CFF")).
			Padding(0, 1)
	failedPanelStyle  = panelStyle.BorderForeground(lipgloss.Color("#FF6B6B"))
	skippedPanelStyle = panelStyle.BorderForeground(lipgloss.Color("#999999"))

	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
	headingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
)

// renderReport prints one panel per stage, then the final report, the
// summary and the scores.
func renderReport(w io.Writer, r *pipeline.Report, width int) {
	for _, s := range r.Stages {
		fmt.Fprintln(w, renderStage(s, width))
	}

	if r.FinalReport != "" {
		fmt.Fprintln(w, panel(titleStyle.Render("Final report"), r.FinalReport, panelStyle, width))
	}
	if r.Summary != "" {
		fmt.Fprintln(w, panel(titleStyle.Render("Summary"), r.Summary, panelStyle, width))
	}

	fmt.Fprintln(w, headingStyle.Render("Scores"))
	fmt.Fprintf(w, "  Requirements: %s\n", formatScore(r.Scores.Requirements))
	fmt.Fprintf(w, "  Code:         %s\n", formatScore(r.Scores.Code))

	status := titleStyle.Render("completed")
	if !r.OK() {
		status = failedStyle.Render("completed with failures: " + strings.Join(r.Failed, ", "))
	}
	fmt.Fprintf(w, "\nRun %s %s in %s\n", r.RunID, status, r.Duration.Round(time.Millisecond))
}

func renderStage(s pipeline.StageResult, width int) string {
	title := titleStyle.Render(s.Agent)
	meta := mutedStyle.Render(fmt.Sprintf("%s · %d attempt(s) · %s", s.Name, s.Attempts, s.Duration.Round(time.Millisecond)))

	switch s.Status {
	case state.StatusFailed:
		return panel(failedStyle.Render(s.Agent+" failed")+"  "+meta, s.Error, failedPanelStyle, width)
	case state.StatusSkipped:
		return panel(mutedStyle.Render(s.Agent+" skipped"), mutedStyle.Render("disabled in configuration"), skippedPanelStyle, width)
	default:
		return panel(title+"  "+meta, s.Text, panelStyle, width)
	}
}

func panel(title, body string, style lipgloss.Style, width int) string {
	if width > 0 {
		style = style.Width(width)
	}
	return style.Render(title + "\n\n" + strings.TrimSpace(body))
}

func formatScore(s pipeline.Score) string {
	if !s.Found {
		return mutedStyle.Render("n/a")
	}
	if s.Comment == "" {
		return fmt.Sprintf("%d%%", s.Value)
	}
	return fmt.Sprintf("%d%% - %s", s.Value, s.Comment)
}

// renderPlan prints the stages a run would execute.
func renderPlan(w io.Writer, stages []pipeline.Stage) {
	fmt.Fprintln(w, headingStyle.Render("Dry run - would execute:"))
	for i, s := range stages {
		line := fmt.Sprintf("  %d. %s (role: %s", i+1, s.Name, s.Role)
		if s.Read != "" {
			line += ", reads: " + s.Read
		}
		if s.Write != "" {
			line += ", writes: " + s.Write
		}
		line += ")"
		if s.Skip {
			line += " " + mutedStyle.Render("[disabled]")
		}
		fmt.Fprintln(w, line)
	}
}

func statusIcon(status string) string {
	switch status {
	case state.StatusPending:
		return "○"
	case state.StatusRunning:
		return "◐"
	case state.StatusCompleted:
		return "●"
	case state.StatusFailed:
		return "✗"
	case state.StatusSkipped:
		return "◌"
	default:
		return "?"
	}
}
