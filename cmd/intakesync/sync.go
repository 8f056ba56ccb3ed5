package main

import (
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one reconciliation cycle now",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			if probe, _ := cmd.Flags().GetBool("probe"); probe {
				a.connectivity.Probe(cmd.Context())
			}
			summary, err := a.scheduler.TriggerSync(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(summary)
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show queue counts and connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			status, err := a.status.Status(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(status)
		})
	},
}

func init() {
	syncCmd.Flags().Bool("probe", false, "Check that the API is reachable before syncing")
	rootCmd.AddCommand(syncCmd, statusCmd)
}
