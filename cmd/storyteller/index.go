package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdulachik/storyteller/internal/app"
	"github.com/abdulachik/storyteller/internal/config"
	"github.com/abdulachik/storyteller/internal/vectorstore"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Backfill stored plots into the vector index",
	Long: `Embed the plots of stored stories into the VecLite plot index used by the
vector and hybrid dedup strategies.

Stories are added oldest first. Each story is looked up in the index by id
first, so re-running fills any gaps and never embeds a plot twice.

Uses the embedding provider configured in veclite.yaml (VECLITE_CONFIG).`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := cfg.ValidateForIndex(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	index, err := app.OpenIndex(cfg)
	if err != nil {
		return fmt.Errorf("open plot index: %w", err)
	}
	defer index.Close()

	stories, err := store.ListStories(ctx)
	if err != nil {
		return fmt.Errorf("list stories: %w", err)
	}

	plots := make([]vectorstore.Plot, 0, len(stories))
	for _, s := range stories {
		plots = append(plots, vectorstore.Plot{StoryID: s.ID, Text: s.Plot})
	}

	slog.Info("indexing plots",
		"stories", len(stories),
		"already_indexed", index.Count(),
	)

	start := time.Now()
	res, err := vectorstore.Backfill(ctx, index, plots)
	if err != nil {
		return err
	}

	slog.Info("indexing complete",
		"indexed", res.Indexed,
		"skipped", res.Skipped,
		"errors", res.Failed,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}
