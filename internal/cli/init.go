package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cadre-oss/reqcheck/internal/config"
	"github.com/cadre-oss/reqcheck/internal/roles"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Create a reqcheck.yaml with commented defaults",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing reqcheck.yaml")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	path, err := config.WriteInit(dir, filepath.Base(abs), roles.IDs(), initForce)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Created %s\n\n", path)
	fmt.Fprintln(w, "Next steps:")
	fmt.Fprintln(w, "  1. Set ANTHROPIC_API_KEY (or switch provider to openai and set OPENAI_API_KEY)")
	fmt.Fprintln(w, "  2. reqcheck run -r requirements.txt -c src/")
	return nil
}
