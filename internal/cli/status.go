package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/cadre-oss/reqcheck/internal/state"
)

var (
	statusWatch bool
	statusLimit int
	statusRunID string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent review runs",
	Long: `Display recent runs from the state store.

Examples:
  reqcheck status             # Recent runs
  reqcheck status --run 1a2b  # Stage details for one run
  reqcheck status --watch     # Live dashboard`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVarP(&statusWatch, "watch", "w", false, "watch mode with live updates")
	statusCmd.Flags().IntVarP(&statusLimit, "limit", "n", 10, "number of runs to show")
	statusCmd.Flags().StringVar(&statusRunID, "run", "", "show stage details for a run ID")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	stateMgr, err := state.NewManager(ctx, cfg.State.Driver, cfg.State.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize state: %w", err)
	}
	defer stateMgr.Close()

	out := cmd.OutOrStdout()
	if statusRunID != "" {
		return showRun(ctx, out, stateMgr, statusRunID)
	}
	if statusWatch {
		return watchStatus(ctx, out, stateMgr)
	}
	return showStatus(ctx, out, stateMgr, statusLimit)
}

func showStatus(ctx context.Context, w io.Writer, stateMgr *state.Manager, limit int) error {
	runs, err := stateMgr.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found.")
		return nil
	}

	fmt.Fprintln(w, "Recent Runs:")
	fmt.Fprintln(w, "------------")

	for _, run := range runs {
		fmt.Fprintf(w, "%s %s  %s  (%s)\n",
			statusIcon(run.Status),
			shortID(run.ID),
			run.Pipeline,
			run.Status,
		)
		fmt.Fprintf(w, "   Started: %s\n", run.StartedAt.Format(time.RFC3339))
		if !run.CompletedAt.IsZero() {
			fmt.Fprintf(w, "   Completed: %s (duration: %s)\n",
				run.CompletedAt.Format(time.RFC3339),
				run.CompletedAt.Sub(run.StartedAt).Round(time.Second),
			)
		}
		if failed := run.FailedStages(); len(failed) > 0 {
			fmt.Fprintf(w, "   Failed stages: %v\n", failed)
		}
		if run.Error != "" {
			fmt.Fprintf(w, "   Error: %s\n", run.Error)
		}
		fmt.Fprintln(w)
	}

	return nil
}

func showRun(ctx context.Context, w io.Writer, stateMgr *state.Manager, id string) error {
	run, err := stateMgr.GetRun(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load run %s: %w", id, err)
	}

	fmt.Fprintf(w, "Run ID: %s\n", run.ID)
	fmt.Fprintf(w, "Pipeline: %s\n", run.Pipeline)
	fmt.Fprintf(w, "Status: %s\n", run.Status)
	if run.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", run.Error)
	}
	fmt.Fprintln(w, "\nStages:")

	for _, st := range run.Stages {
		fmt.Fprintf(w, "  %s %s (%s)\n", statusIcon(st.Status), st.Name, st.Status)
		if st.Agent != "" {
			fmt.Fprintf(w, "      Agent: %s\n", st.Agent)
		}
		if st.Attempts > 0 {
			fmt.Fprintf(w, "      Attempts: %d, duration: %s\n", st.Attempts, st.Duration().Round(time.Millisecond))
		}
		if st.Error != "" {
			fmt.Fprintf(w, "      Error: %s\n", st.Error)
		}
	}
	return nil
}

func watchStatus(ctx context.Context, w io.Writer, stateMgr *state.Manager) error {
	fmt.Fprintln(w, "Watching for updates... (Ctrl+C to stop)")

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		// Clear screen (simple approach)
		fmt.Fprint(w, "\033[H\033[2J")

		if err := showStatus(ctx, w, stateMgr, statusLimit); err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
		}

		fmt.Fprintf(w, "\nLast updated: %s\n", time.Now().Format(time.RFC3339))

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
