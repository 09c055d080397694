package main

import (
	"github.com/spf13/cobra"
)

var (
	// configPath is the YAML config file path. Empty runs on defaults.
	configPath string

	// dbPath overrides the configured database path.
	dbPath string

	// logLevel overrides the configured log level.
	logLevel string
)

// rootCmd runs the match ledger daemon.
var rootCmd = &cobra.Command{
	Use:   "matchledgerd",
	Short: "Match report lifecycle daemon",
	Long: `matchledgerd watches a chat channel for match score reports and
walks each one through peer validation and admin certification, publishing
certified results to an external ledger.

Without a chat platform client attached it reads JSON-framed chat events
from stdin, one per line.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context())
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(
		&configPath, "config", "c", "",
		"Path to YAML config file",
	)
	rootCmd.Flags().StringVar(
		&dbPath, "db", "",
		"Path to SQLite database (overrides config)",
	)
	rootCmd.Flags().StringVar(
		&logLevel, "log-level", "",
		"Log level: trace, debug, info, warn, error (overrides config)",
	)
}
