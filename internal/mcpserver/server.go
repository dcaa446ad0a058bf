// Package mcpserver exposes the review pipeline as MCP tools over stdio.
package mcpserver

import (
	"io"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/cadre-oss/reqcheck/internal/config"
	"github.com/cadre-oss/reqcheck/internal/provider"
)

const serverName = "reqcheck"

// ConfigLoader returns a fresh configuration for each tool call.
type ConfigLoader func() (*config.Config, error)

// Options configures New.
type Options struct {
	Version string
	// Model replaces the configured provider, mainly for tests.
	Model provider.Invoker
	// LogOutput receives pipeline logs. Stdout carries the protocol, so
	// it defaults to stderr.
	LogOutput io.Writer
}

// New creates an MCP server with the review and runs tools registered.
func New(load ConfigLoader, opts Options) *server.MCPServer {
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stderr
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	s := server.NewMCPServer(
		serverName,
		opts.Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	review := NewReviewTool(load, opts.Model, opts.LogOutput)
	s.AddTool(review.Definition(), review.Handle)

	runs := NewRunsTool(load)
	s.AddTool(runs.Definition(), runs.Handle)

	return s
}

const instructions = `reqcheck reviews source code against a requirements document.
Call "review" with the requirements text and the code text. It runs a pipeline of
specialized agents and returns a report with requirement and code scores.
Call "runs" to list recent reviews.`
