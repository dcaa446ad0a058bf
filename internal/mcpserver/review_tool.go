package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/cadre-oss/reqcheck/internal/app"
	"github.com/cadre-oss/reqcheck/internal/pipeline"
	"github.com/cadre-oss/reqcheck/internal/provider"
)

// ReviewTool handles the review MCP tool. Every call gets its own memory.
type ReviewTool struct {
	load      ConfigLoader
	model     provider.Invoker
	logOutput io.Writer
}

// NewReviewTool creates a ReviewTool. A nil model uses the configured
// provider.
func NewReviewTool(load ConfigLoader, model provider.Invoker, logOutput io.Writer) *ReviewTool {
	return &ReviewTool{load: load, model: model, logOutput: logOutput}
}

// Definition returns the MCP tool definition for review.
func (t *ReviewTool) Definition() mcp.Tool {
	return mcp.NewTool("review",
		mcp.WithDescription(
			"Review source code against a requirements document. Runs requirement analysis, "+
				"alignment checking, a reference implementation, comparison, reporting, "+
				"scoring and summarization, and returns the report.",
		),
		mcp.WithString("requirements",
			mcp.Required(),
			mcp.Description("Requirements text"),
		),
		mcp.WithString("code",
			mcp.Required(),
			mcp.Description("Source code text; concatenate several files with '// file: <path>' headers"),
		),
		mcp.WithString("error_strategy",
			mcp.Description("fail-fast (default) or continue"),
		),
		mcp.WithBoolean("code_analysis",
			mcp.Description("Also run the standalone code analysis stage"),
		),
		mcp.WithString("format",
			mcp.Description("markdown (default) or json"),
		),
	)
}

// Handle processes the review tool call.
func (t *ReviewTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	requirements := req.GetString("requirements", "")
	code := req.GetString("code", "")
	if requirements == "" || code == "" {
		return mcp.NewToolResultError("'requirements' and 'code' are required"), nil
	}

	cfg, err := t.load()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load config: %v", err)), nil
	}
	if s := req.GetString("error_strategy", ""); s != "" {
		cfg.Pipeline.ErrorStrategy = s
	}
	if v, ok := req.GetArguments()["code_analysis"].(bool); ok && v {
		cfg.Pipeline.CodeAnalysis = true
	}

	a, err := app.New(ctx, app.Options{Config: cfg, Model: t.model, LogOutput: t.logOutput})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer a.Close()

	report, runErr := a.Review(ctx, pipeline.Inputs{Requirements: requirements, Code: code})
	if report == nil {
		return mcp.NewToolResultError(runErr.Error()), nil
	}

	body, err := formatReport(report, req.GetString("format", "markdown"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if runErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%v\n\nPartial report:\n\n%s", runErr, body)), nil
	}
	return mcp.NewToolResultText(body), nil
}

func formatReport(report *pipeline.Report, format string) (string, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode report: %w", err)
		}
		return string(data), nil
	case "markdown", "":
		return report.Markdown(), nil
	default:
		return "", fmt.Errorf("unknown format %q (must be markdown or json)", format)
	}
}
