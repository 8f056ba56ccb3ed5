package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prudhvinik1/intakesync/internal/handlers"
	"github.com/prudhvinik1/intakesync/internal/logger"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync agent and its local HTTP API",
	Long: `Run the sync agent. It schedules reconciliation on connectivity changes,
on a timer while work is queued, and on demand, and serves the local HTTP API
and WebSocket event stream views use to submit records and follow progress.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.For("server")
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		// Open the store up front so a bad path fails at startup.
		if _, err := a.stores.Get(ctx); err != nil {
			return err
		}

		hub := handlers.NewHub(a.bus)
		hub.Start()
		defer hub.Stop()

		a.connectivity.Start(ctx)
		defer a.connectivity.Stop()
		a.scheduler.Start(ctx)
		defer a.scheduler.Stop()

		server := &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
			Handler:           handlers.New(a.handlerServices(), hub).Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			log.Info("Shutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Errorw("Server shutdown failed", "error", err)
			}
		}()

		log.Infow("Starting server", "port", cfg.ServerPort, "online", a.connectivity.IsOnline())
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		log.Info("Server stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
