package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/abdulachik/storyteller/internal/app"
	"github.com/abdulachik/storyteller/internal/catalog"
	"github.com/abdulachik/storyteller/internal/config"
	"github.com/abdulachik/storyteller/internal/health"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show story and index statistics",
	Long:  `Display story counts, the seed catalog, component health and plot index statistics.`,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	total, err := store.CountStories(ctx)
	if err != nil {
		return fmt.Errorf("count stories: %w", err)
	}

	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		return err
	}

	tracker := health.NewTracker()
	tracker.Register(health.Store, func(ctx context.Context) (string, error) {
		return cfg.StoreDriver, store.Ping(ctx)
	})
	tracker.Register(health.LLM, func(context.Context) (string, error) {
		if err := cfg.ValidateForGeneration(); err != nil {
			return "", err
		}
		return cfg.LLMProvider, nil
	})
	tracker.Refresh(ctx)

	fmt.Println("=== Storyteller Statistics ===")
	fmt.Println()
	switch cfg.StoreDriver {
	case config.DriverMongo:
		fmt.Printf("Store: mongo (%s)\n", cfg.MongoDatabase)
	default:
		fmt.Printf("Store: sqlite (%s)\n", cfg.DatabasePath)
	}
	fmt.Printf("Stories: %d\n", total)
	fmt.Println()

	fmt.Println("Catalog:")
	fmt.Printf("  Quotes: %d\n", len(cat.Quotes))
	fmt.Printf("  Books: %d\n", len(cat.Books))
	fmt.Printf("  Inspirations: %d\n", len(cat.Inspirations))
	fmt.Println()

	fmt.Println("Components:")
	for _, name := range tracker.Names() {
		st := tracker.Get(name)
		state := "ok"
		if !st.Healthy {
			state = "unhealthy"
		}
		fmt.Printf("  %s: %s (%s)\n", name, state, st.Message)
	}
	fmt.Println()

	fmt.Printf("Dedup: %s", cfg.DedupStrategy)
	if cfg.UsesIndex() {
		fmt.Printf(" (threshold %.2f, shortlist %d)", cfg.DedupThreshold, cfg.DedupShortlist)
	}
	fmt.Println()

	if _, err := os.Stat(cfg.VecLitePath); err == nil {
		index, err := app.OpenIndex(cfg)
		if err != nil {
			slog.Warn("failed to open plot index", "error", err)
			return nil
		}
		defer index.Close()

		stats := index.Stats()
		fmt.Println()
		fmt.Println("VecLite:")
		fmt.Printf("  Path: %s\n", cfg.VecLitePath)
		fmt.Printf("  Plots: %d\n", stats.Count)
		fmt.Printf("  Unindexed stories: %d\n", max(total-int64(stats.Count), 0))
		fmt.Printf("  Dimension: %d\n", stats.Dimension)
		fmt.Printf("  Distance: %s\n", stats.DistanceType)
		fmt.Printf("  Index: %s\n", stats.IndexType)
	}

	return nil
}
