package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cadre-oss/reqcheck/internal/app"
	"github.com/cadre-oss/reqcheck/internal/config"
	"github.com/cadre-oss/reqcheck/internal/pipeline"
	"github.com/cadre-oss/reqcheck/internal/source"
)

var (
	runRequirements  string
	runCode          []string
	runReference     string
	runOutput        string
	runOutputJSON    bool
	runDryRun        bool
	runErrorStrategy string
	runCodeAnalysis  bool
	runWidth         int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Review requirements against code",
	Long: `Run the review pipeline over a requirements document and source code.

Code may be given as several files or directories; they are concatenated
with a "// file: <path>" header before each one.

Examples:
  reqcheck run -r requirements.md -c main.py
  reqcheck run -r requirements.md -c src/ --reference docs/       # add reference documents
  reqcheck run -r requirements.md -c main.py -o report.md         # also write markdown
  reqcheck run -r requirements.md -c main.py --json               # print JSON instead of panels
  reqcheck run -r requirements.md -c main.py --error-strategy continue
  reqcheck run -r requirements.md -c main.py --dry-run`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runRequirements, "requirements", "r", "", "requirements file (required)")
	runCmd.Flags().StringSliceVarP(&runCode, "code", "c", nil, "code files or directories (required)")
	runCmd.Flags().StringVar(&runReference, "reference", "", "directory of reference documents added to the requirements context")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "write the report to a file (.json for JSON, markdown otherwise)")
	runCmd.Flags().BoolVar(&runOutputJSON, "json", false, "print the report as JSON")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "show the stages that would run without calling the model")
	runCmd.Flags().StringVar(&runErrorStrategy, "error-strategy", "", "fail-fast or continue (overrides config)")
	runCmd.Flags().BoolVar(&runCodeAnalysis, "code-analysis", false, "enable the standalone code analysis stage")
	runCmd.Flags().IntVar(&runWidth, "width", 100, "panel width, 0 for unbounded")
	_ = runCmd.MarkFlagRequired("requirements")
	_ = runCmd.MarkFlagRequired("code")
	_ = runCmd.RegisterFlagCompletionFunc("error-strategy", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{config.ErrorStrategyFailFast, config.ErrorStrategyContinue}, cobra.ShellCompDirectiveNoFileComp
	})
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nReceived interrupt, stopping after the current attempt...")
			cancel()
		case <-ctx.Done():
		}
	}()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runErrorStrategy != "" {
		cfg.Pipeline.ErrorStrategy = runErrorStrategy
	}
	if runCodeAnalysis {
		cfg.Pipeline.CodeAnalysis = true
	}
	output := runOutput
	if output == "" {
		output = cfg.Pipeline.Output
	}

	requirements, err := source.ReadFile(runRequirements)
	if err != nil {
		return err
	}
	code, err := source.ReadPaths(runCode...)
	if err != nil {
		return err
	}

	opts := app.Options{Config: cfg, Verbose: verbose}
	if runReference != "" {
		opts.Retriever = source.DirRetriever{Dir: runReference}
	}
	if runDryRun {
		opts.StateDriver = "memory"
	}

	a, err := app.New(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	if runDryRun {
		renderPlan(out, a.Driver.Plan())
		return nil
	}

	report, runErr := a.Review(ctx, pipeline.Inputs{Requirements: requirements, Code: code})
	if report != nil {
		if runOutputJSON {
			if err := writeJSON(out, report); err != nil {
				return err
			}
		} else {
			renderReport(out, report, runWidth)
		}
		if output != "" {
			if err := writeReport(output, report); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", output)
		}
	}

	if verbose {
		printMetrics(cmd.ErrOrStderr(), a.Metrics.GetSummary())
	}

	return runErr
}

func writeJSON(w io.Writer, report *pipeline.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// writeReport writes JSON for .json paths and markdown otherwise.
func writeReport(path string, report *pipeline.Report) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create report: %w", err)
		}
		defer f.Close()
		return writeJSON(f, report)
	}

	if err := os.WriteFile(path, []byte(report.Markdown()), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func printMetrics(w io.Writer, summary map[string]interface{}) {
	keys := make([]string, 0, len(summary))
	for k := range summary {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintln(w, "\nMetrics:")
	for _, k := range keys {
		fmt.Fprintf(w, "  %-22s %v\n", k, summary[k])
	}
}
