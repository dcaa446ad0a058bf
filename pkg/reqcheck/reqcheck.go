// Package reqcheck provides a public API for reviewing code against
// requirements with a pipeline of LLM agents.
//
// Example usage:
//
//	import "github.com/cadre-oss/reqcheck/pkg/reqcheck"
//
//	report, err := reqcheck.Review(ctx, reqcheck.Options{
//		Requirements: "Sum a list of numbers.",
//		Code:         "def sum_numbers(lst): ...",
//	})
//	fmt.Println(report.Summary, report.Scores.Code.Value)
//
//	// Run a single role
//	analysis, err := reqcheck.RunRole(ctx, "requirement_analyzer", "Sum a list.", reqcheck.Options{})
package reqcheck

import (
	"context"
	"fmt"

	"github.com/cadre-oss/reqcheck/internal/agent"
	"github.com/cadre-oss/reqcheck/internal/app"
	"github.com/cadre-oss/reqcheck/internal/config"
	"github.com/cadre-oss/reqcheck/internal/memory"
	"github.com/cadre-oss/reqcheck/internal/pipeline"
	"github.com/cadre-oss/reqcheck/internal/provider"
	"github.com/cadre-oss/reqcheck/internal/roles"
	"github.com/cadre-oss/reqcheck/internal/source"
	"github.com/cadre-oss/reqcheck/internal/telemetry"
)

type (
	// Report is the result of a review run.
	Report = pipeline.Report
	// Scores are the parsed requirement and code ratings.
	Scores = pipeline.Scores
	// Invoker sends one prompt to a model and returns its reply.
	Invoker = provider.Invoker
	// InvokerFunc adapts a function to Invoker.
	InvokerFunc = provider.InvokerFunc
)

// Options configures a review. Requirements and Code are required for
// Review; everything else is optional.
type Options struct {
	Requirements string
	Code         string

	// ConfigDir holds reqcheck.yaml; "" means the working directory.
	ConfigDir string
	// Model replaces the configured provider.
	Model Invoker
	// ErrorStrategy overrides pipeline.error_strategy.
	ErrorStrategy string
	CodeAnalysis  bool
	// ReferenceDir adds its documents to the requirements context.
	ReferenceDir string
	// StateDriver overrides state.driver, e.g. "memory" to keep no history.
	StateDriver string
	Verbose     bool
}

// Review runs the full review pipeline. On a fail-fast abort the partial
// report is returned with the error.
func Review(ctx context.Context, opts Options) (*Report, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	appOpts := app.Options{
		Config:      cfg,
		Verbose:     opts.Verbose,
		Model:       opts.Model,
		StateDriver: opts.StateDriver,
	}
	if opts.ReferenceDir != "" {
		appOpts.Retriever = source.DirRetriever{Dir: opts.ReferenceDir}
	}

	a, err := app.New(ctx, appOpts)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	return a.Review(ctx, pipeline.Inputs{Requirements: opts.Requirements, Code: opts.Code})
}

// RunRole runs one built-in role once over input and returns its reply.
func RunRole(ctx context.Context, roleID, input string, opts Options) (string, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return "", err
	}
	if err := config.Validate(cfg); err != nil {
		return "", err
	}

	deps := pipeline.Deps{
		Model:  opts.Model,
		Memory: memory.New(),
		Logger: telemetry.NewLogger(opts.Verbose),
	}
	if deps.Model == nil {
		deps.Model, err = agent.NewInvoker(cfg.Provider)
		if err != nil {
			return "", err
		}
	}

	a, err := pipeline.NewRoleAgent(cfg, roleID, deps)
	if err != nil {
		return "", err
	}

	res := a.Run(ctx, input, "", "")
	if !res.OK() {
		return "", res.Err
	}
	return res.Text, nil
}

// Roles returns the built-in role IDs.
func Roles() []string {
	return roles.IDs()
}

func loadConfig(opts Options) (*config.Config, error) {
	dir := opts.ConfigDir
	if dir == "" {
		dir = "."
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.ErrorStrategy != "" {
		cfg.Pipeline.ErrorStrategy = opts.ErrorStrategy
	}
	if opts.CodeAnalysis {
		cfg.Pipeline.CodeAnalysis = true
	}
	return cfg, nil
}
