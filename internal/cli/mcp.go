package cli

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/cadre-oss/reqcheck/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the review pipeline as an MCP server over stdio",
	Long: `Start a Model Context Protocol server on stdin/stdout.

Tools:
  review  - review code against requirements and return the report
  runs    - list recent review runs

The configuration is reloaded for every call. Logs go to stderr.`,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	s := mcpserver.New(loadConfig, mcpserver.Options{
		Version:   Version,
		LogOutput: cmd.ErrOrStderr(),
	})
	return server.ServeStdio(s)
}
