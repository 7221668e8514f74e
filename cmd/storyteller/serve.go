package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abdulachik/storyteller/internal/app"
	"github.com/abdulachik/storyteller/internal/config"
	"github.com/abdulachik/storyteller/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long: `Serve the reader page, the story gallery and the JSON API.

The server starts even without LLM credentials; generation requests then
answer with a configuration error and /readyz reports the llm as unhealthy.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := cfg.ValidateForServe(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	shutdownTracing := setupTracing(ctx, cfg)
	defer shutdownTracing()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	a.Health.Refresh(ctx)
	for name, st := range a.Health.All() {
		slog.Info("component status", "component", name, "healthy", st.Healthy, "message", st.Message)
	}

	srv, err := server.New(server.Config{
		Addr:            cfg.HTTPAddr,
		Stories:         a.Stories,
		Health:          a.Health,
		Metrics:         a.Metrics,
		ShutdownTimeout: cfg.ShutdownTimeout,
		Debug:           cfg.LogLevel == "debug",
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	slog.Info("starting storyteller",
		"version", version,
		"addr", cfg.HTTPAddr,
		"store", cfg.StoreDriver,
		"llm", cfg.LLMProvider,
		"dedup", cfg.DedupStrategy,
	)

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
