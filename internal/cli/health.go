package cli

import (
	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health via the admin API",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result HealthResult

			ctx, cancel := requestContext(cmd)
			defer cancel()

			if err := admin.Get(ctx, "/api/v1/health", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show server statistics via the admin API",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result StatsResult

			ctx, cancel := requestContext(cmd)
			defer cancel()

			if err := admin.Get(ctx, "/api/v1/stats", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}
