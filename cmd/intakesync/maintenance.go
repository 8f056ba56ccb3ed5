package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/prudhvinik1/intakesync/internal/services"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <export.json>",
	Short: "Import clients saved by the browser-storage intake form",
	Long: `Import a JSON export of the old browser storage keys (clientsHistory,
offlineQueue and client_drafts). Clients are stored and queued the same way as
new submissions; drafts go to the local cache.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read export: %w", err)
		}
		var export services.LegacyExport
		if err := json.Unmarshal(data, &export); err != nil {
			return fmt.Errorf("failed to parse export: %w", err)
		}
		return withApp(cmd.Context(), func(a *app) error {
			report, err := a.maintenance.ImportLegacy(cmd.Context(), export)
			if err != nil {
				return err
			}
			return printJSON(report)
		})
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete synced queue items older than the retention period",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			n, err := a.maintenance.CleanupOldData(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(map[string]int64{"deleted": n})
		})
	},
}

var retryCmd = &cobra.Command{
	Use:   "retry <queue-id>",
	Short: "Requeue a failed item, or drop it with --abandon",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid queue id %q", args[0])
		}
		abandon, _ := cmd.Flags().GetBool("abandon")
		return withApp(cmd.Context(), func(a *app) error {
			if abandon {
				if err := a.queue.Abandon(cmd.Context(), id); err != nil {
					return err
				}
				return printJSON(map[string]int64{"abandoned": id})
			}
			item, err := a.queue.RetryFailed(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(item)
		})
	},
}

func init() {
	retryCmd.Flags().Bool("abandon", false, "Drop the item instead of retrying it")
	rootCmd.AddCommand(importCmd, cleanupCmd, retryCmd)
}
