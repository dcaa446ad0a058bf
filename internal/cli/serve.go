package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cadre-oss/reqcheck/internal/config"
	rcErrors "github.com/cadre-oss/reqcheck/internal/errors"
	"github.com/cadre-oss/reqcheck/internal/server"
	"github.com/cadre-oss/reqcheck/internal/state"
	"github.com/cadre-oss/reqcheck/internal/telemetry"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the review pipeline over HTTP",
	Long: `Start an HTTP API for reviews.

Endpoints:
  POST /api/reviews         run a review ({"requirements", "code"})
  GET  /api/runs            list recent runs
  GET  /api/runs/{id}       show one run
  GET  /api/events[/{id}]   stream pipeline events (SSE)
  GET  /api/roles           list agent roles
  GET  /api/health          liveness

Reviews run one at a time.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	logger := telemetry.NewLoggerWithOptions(telemetry.LoggerOptions{
		Level:  level,
		Format: cfg.Logging.Format,
		Output: cmd.ErrOrStderr(),
	})
	defer logger.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	stateMgr, err := state.NewManager(ctx, cfg.State.Driver, cfg.State.Path)
	if err != nil {
		return rcErrors.Wrap(rcErrors.CodeConfigInvalid, "failed to initialize state", err)
	}
	defer stateMgr.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(cmd.ErrOrStderr(), "\nReceived interrupt, shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	s := server.New(cfg, stateMgr, logger, server.Options{
		Version:   Version,
		LogOutput: cmd.ErrOrStderr(),
	})
	return s.Start(ctx, serveAddr)
}
