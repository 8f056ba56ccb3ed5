package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/prudhvinik1/intakesync/internal/config"
	"github.com/prudhvinik1/intakesync/internal/logger"
	"github.com/spf13/cobra"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "intakesync",
	Short: "Offline-first sync agent for field client intake",
	Long: `intakesync stores client intake records locally and replays them to the
intake API when the device is online.

Settings come from the environment, optionally loaded from a .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		loaded, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded

		logger.Initialize(logger.Options{
			Level:  cfg.LogLevel,
			Format: logger.ParseFormat(cfg.LogFormat),
			File:   cfg.LogFile,
		})
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
