package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cadre-oss/reqcheck/internal/config"
	rcErrors "github.com/cadre-oss/reqcheck/internal/errors"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "reqcheck",
	Short: "Review requirements and code with a pipeline of LLM agents",
	Long: `reqcheck - requirements and code review by a team of LLM agents.

Each agent plays one role: requirement analysis, alignment checking,
reference implementation, comparison, reporting, scoring and
summarization. Agents share one memory so every stage sees what the
earlier ones concluded.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and prints any error with its suggestion.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if s := rcErrors.Suggestion(err); s != "" {
			fmt.Fprintln(os.Stderr, "  →", s)
		}
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./reqcheck.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("reqcheck")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// loadConfig loads the file viper discovered, or the defaults when there
// is none.
func loadConfig() (*config.Config, error) {
	path := viper.ConfigFileUsed()
	if path == "" && cfgFile != "" {
		path = cfgFile
	}
	if path == "" {
		return config.Load(".")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, rcErrors.Wrap(rcErrors.CodeConfigInvalid, "config file not found", err).
			WithSuggestion("Run 'reqcheck init' to create one")
	}
	return config.LoadFile(path)
}
