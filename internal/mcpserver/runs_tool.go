package mcpserver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/cadre-oss/reqcheck/internal/state"
)

// RunsTool handles the runs MCP tool.
type RunsTool struct {
	load ConfigLoader
}

// NewRunsTool creates a RunsTool.
func NewRunsTool(load ConfigLoader) *RunsTool {
	return &RunsTool{load: load}
}

// Definition returns the MCP tool definition for runs.
func (t *RunsTool) Definition() mcp.Tool {
	return mcp.NewTool("runs",
		mcp.WithDescription("List recent review runs with their status and failed stages."),
		mcp.WithNumber("limit",
			mcp.Description("Max runs (default: 10)"),
		),
	)
}

// Handle processes the runs tool call.
func (t *RunsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := 10
	if v, ok := req.GetArguments()["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}

	cfg, err := t.load()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load config: %v", err)), nil
	}

	stateMgr, err := state.NewManager(ctx, cfg.State.Driver, cfg.State.Path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to open state: %v", err)), nil
	}
	defer stateMgr.Close()

	runs, err := stateMgr.ListRuns(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list runs: %v", err)), nil
	}
	if len(runs) == 0 {
		return mcp.NewToolResultText("No runs found."), nil
	}

	var b strings.Builder
	for _, run := range runs {
		fmt.Fprintf(&b, "%s  %s  %s  %s\n", run.ID, run.Pipeline, run.Status, run.StartedAt.Format(time.RFC3339))
		if failed := run.FailedStages(); len(failed) > 0 {
			fmt.Fprintf(&b, "  failed stages: %s\n", strings.Join(failed, ", "))
		}
		if run.Error != "" {
			fmt.Fprintf(&b, "  error: %s\n", run.Error)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}
