package vectorstore

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
)

// Plot is a stored story plot to be indexed.
type Plot struct {
	StoryID int64
	Text    string
}

// Indexer is the subset of PlotIndex used by Backfill.
type Indexer interface {
	Has(ctx context.Context, storyID int64, plot string) (bool, error)
	Add(ctx context.Context, storyID int64, plot string) error
	Sync() error
}

// BackfillResult summarizes a Backfill run.
type BackfillResult struct {
	Indexed int
	Skipped int
	Failed  int
}

const syncEvery = 100

// Backfill adds every plot whose story is missing from idx, oldest story
// first. Presence is checked per story id, so gaps left by failed adds are
// filled and nothing is indexed twice.
func Backfill(ctx context.Context, idx Indexer, plots []Plot) (BackfillResult, error) {
	var res BackfillResult

	plots = slices.Clone(plots)
	slices.SortFunc(plots, func(a, b Plot) int {
		return cmp.Compare(a.StoryID, b.StoryID)
	})

	for _, p := range plots {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		has, err := idx.Has(ctx, p.StoryID, p.Text)
		if err != nil {
			slog.Warn("failed to look up plot", "story_id", p.StoryID, "error", err)
			res.Failed++
			continue
		}
		if has {
			res.Skipped++
			continue
		}

		if err := idx.Add(ctx, p.StoryID, p.Text); err != nil {
			slog.Warn("failed to index plot", "story_id", p.StoryID, "error", err)
			res.Failed++
			continue
		}
		res.Indexed++

		if res.Indexed%syncEvery == 0 {
			slog.Info("progress", "indexed", res.Indexed, "total", len(plots))
			if err := idx.Sync(); err != nil {
				slog.Warn("failed to sync", "error", err)
			}
		}
	}

	if err := idx.Sync(); err != nil {
		return res, fmt.Errorf("sync: %w", err)
	}
	return res, nil
}
