package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/abdulachik/storyteller/internal/config"
	"github.com/abdulachik/storyteller/internal/observability"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "storyteller",
	Short: "Generate unsettling short stories from seed quotes",
	Long: `Storyteller writes short psychological-horror stories from a seed quote,
splits them into ten reading screens and keeps every plot unique by comparing
each new story with the ones already told.`,
	SilenceUsage: true,
}

func init() {
	// Load .env file if present
	_ = godotenv.Load()

	// Set up logging
	level := slog.LevelInfo
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// setupTracing installs the tracer provider and returns its shutdown func.
func setupTracing(ctx context.Context, cfg *config.Config) func() {
	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName:    "storyteller",
		ServiceVersion: version,
		Environment:    cfg.Environment,
		Enabled:        cfg.TracesEnabled,
		Endpoint:       cfg.OTLPEndpoint,
	})
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
		return func() {}
	}
	return func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
