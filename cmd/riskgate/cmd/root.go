package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/riskgate/config"
)

var (
	cfgPath   string
	statePath string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "riskgate",
	Short: "Risk-budgeted position sizing and trade execution gating",
	Long: `Riskgate sizes option trades against a Reverse-Fibonacci daily loss
budget and gates executions with an auditable decision trail.

It provides tools for:
  - Deriving whole-number contract counts for condors and butterflies
  - Validating proposed executions against budget and hard caps
  - Replaying daily P&L sequences through the loss ladder
  - Querying and exporting the audit trail`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := zerolog.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q", logLevel)
		}
		zerolog.SetGlobalLevel(level)
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to config file (optional)")
	rootCmd.PersistentFlags().StringVar(&statePath, "state", "", "Path to budget state snapshot (optional)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug|info|warn|error")
}

// loadConfig returns the configured or default engine configuration.
func loadConfig() (*config.Config, error) {
	if cfgPath == "" {
		return config.Default(), nil
	}
	return config.LoadFromFile(cfgPath)
}
