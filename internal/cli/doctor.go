package cli

import (
	"context"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/cadre-oss/reqcheck/internal/agent"
	"github.com/cadre-oss/reqcheck/internal/config"
	"github.com/cadre-oss/reqcheck/internal/roles"
	"github.com/cadre-oss/reqcheck/internal/state"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check environment and configuration",
	Long:  "Validate that the configuration, provider credentials and state store are usable.",
	RunE:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "reqcheck doctor - checking your environment")
	fmt.Fprintln(w)
	allOK := true

	fmt.Fprintf(w, "  Go version: %s ✓\n", runtime.Version())
	fmt.Fprintf(w, "  Platform:   %s/%s ✓\n", runtime.GOOS, runtime.GOARCH)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(w, "  Config:     FAILED (%s) ✗\n", err)
		fmt.Fprintln(w, "    → Run 'reqcheck init' to create a project")
		return nil
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(w, "  Config:     INVALID ✗\n    → %s\n", err)
		allOK = false
	} else {
		fmt.Fprintf(w, "  Config:     %s v%s ✓\n", cfg.Name, cfg.Version)
	}

	if key := cfg.Provider.APIKey; key != "" {
		fmt.Fprintf(w, "  API key:    set (***%s) ✓\n", key[max(0, len(key)-4):])
	} else {
		fmt.Fprintln(w, "  API key:    NOT SET ✗")
		fmt.Fprintln(w, "    → Set ANTHROPIC_API_KEY, OPENAI_API_KEY or REQCHECK_PROVIDER_API_KEY")
		allOK = false
	}

	if _, err := agent.NewProvider(cfg.Provider); err != nil {
		fmt.Fprintf(w, "  Provider:   FAILED (%s) ✗\n", err)
		allOK = false
	} else {
		fmt.Fprintf(w, "  Provider:   %s (%s) ✓\n", cfg.Provider.Name, cfg.Provider.Model)
	}

	stateMgr, err := state.NewManager(context.Background(), cfg.State.Driver, cfg.State.Path)
	if err != nil {
		fmt.Fprintf(w, "  State DB:   FAILED (%s) ✗\n", err)
		allOK = false
	} else {
		stateMgr.Close()
		fmt.Fprintf(w, "  State DB:   %s ✓\n", cfg.State.Driver)
	}

	broken := 0
	for _, id := range roles.IDs() {
		if _, err := roles.Get(id); err != nil {
			broken++
		}
	}
	if broken > 0 {
		fmt.Fprintf(w, "  Roles:      %d failed to load ✗\n", broken)
		allOK = false
	} else {
		fmt.Fprintf(w, "  Roles:      %d built-in ✓\n", len(roles.IDs()))
	}

	fmt.Fprintln(w)
	if allOK {
		fmt.Fprintln(w, "All checks passed!")
	} else {
		fmt.Fprintln(w, "Some checks failed. See above for details.")
	}

	return nil
}
