package main

import (
	"fmt"

	"github.com/matchledger/matchledger/internal/config"
	"github.com/spf13/cobra"
)

// checkConfigCmd loads and validates the config file without starting the
// daemon. Useful before rolling a config change out.
var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Validate the config file and print the effective settings",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "channel:         %s\n", cfg.ChannelName)
		fmt.Fprintf(out, "score commands:  %v\n", cfg.ScoreCommands)
		fmt.Fprintf(out, "emoji:           verify=%s certified=%s error=%s\n",
			cfg.VerifyEmoji, cfg.CertifiedEmoji, cfg.ErrorEmoji)
		fmt.Fprintf(out, "admins:          %d\n", len(cfg.Admins))
		fmt.Fprintf(out, "big admins:      %d\n", len(cfg.BigAdmins))
		fmt.Fprintf(out, "min fields:      %d\n", cfg.MinReportFields)
		fmt.Fprintf(out, "database:        %s\n", cfg.Database.Path)
		if cfg.Ledger.WebhookURL != "" {
			fmt.Fprintf(out, "ledger webhook:  %s (timeout %s)\n",
				cfg.Ledger.WebhookURL, cfg.Ledger.Timeout.Std())
		} else {
			fmt.Fprintln(out, "ledger webhook:  (log only)")
		}
		fmt.Fprintln(out, "config OK")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkConfigCmd)
}
