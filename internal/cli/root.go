// Package cli implements bsctl, a command line client for the battleship
// server's game protocol and admin API.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfg   *Config
	admin *AdminClient
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "bsctl",
		Short: "CLI tool for the battleship server",
		Long: `bsctl talks to a battleship server over its binary TCP protocol and
reads server state from the admin HTTP API.

Protocol commands log in for the duration of the command; the session ends
when bsctl exits.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			admin = NewAdminClient(cfg.AdminURL, cfg.AdminToken)
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.Addr, "addr", cfg.Addr, "Game server address (env: BSCTL_ADDR)")
	rootCmd.PersistentFlags().StringVar(&cfg.AdminURL, "admin-url", cfg.AdminURL, "Admin API URL (env: BSCTL_ADMIN_URL)")
	rootCmd.PersistentFlags().StringVar(&cfg.AdminToken, "admin-token", cfg.AdminToken, "Admin API token (env: BSCTL_ADMIN_TOKEN)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Username, "user", "u", cfg.Username, "Username (env: BSCTL_USER)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Password, "pass", "p", cfg.Password, "Password (env: BSCTL_PASS)")
	rootCmd.PersistentFlags().DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Timeout for single request commands")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(newPingCmd())
	rootCmd.AddCommand(newRegisterCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newPlayersCmd())
	rootCmd.AddCommand(newChallengeCmd())
	rootCmd.AddCommand(newAcceptCmd())
	rootCmd.AddCommand(newQueueCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
