// Package vectorstore keeps an embedding index of stored plots in VecLite.
package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/abdul-hamid-achik/veclite"

	"github.com/abdulachik/storyteller/internal/dedup"
)

const plotsCollection = "plots"

// Config holds configuration for the PlotIndex.
type Config struct {
	Path string
	// ConfigPath selects the veclite.yaml holding the embedder settings.
	// Empty uses veclite's own search path.
	ConfigPath string
}

// PlotIndex wraps VecLite for plot similarity search.
type PlotIndex struct {
	mu       sync.Mutex
	vecdb    *veclite.DB
	coll     *veclite.Collection
	embedder veclite.Embedder
}

// New opens or creates the plot index.
func New(cfg Config) (*PlotIndex, error) {
	slog.Debug("opening plot index", "path", cfg.Path, "config_path", cfg.ConfigPath)

	vecliteCfg, err := veclite.LoadConfig(cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load veclite config: %w", err)
	}

	embedder, err := veclite.NewEmbedderFromConfig(vecliteCfg.Embedder)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	vecdb, err := veclite.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open veclite db: %w", err)
	}

	coll, err := vecdb.CreateCollection(plotsCollection,
		veclite.WithDimension(embedder.Dimension()),
		veclite.WithDistanceType(veclite.DistanceCosine),
		veclite.WithHNSW(16, 200),
		veclite.WithTextIndex("plot"),
		veclite.WithEmbedder(embedder),
	)
	if err != nil {
		coll, err = vecdb.GetCollection(plotsCollection)
		if err != nil {
			vecdb.Close()
			return nil, fmt.Errorf("get collection: %w", err)
		}
	}

	slog.Info("plot index ready",
		"provider", vecliteCfg.Embedder.Provider,
		"dimension", embedder.Dimension(),
		"plots", coll.Count(),
	)

	return &PlotIndex{
		vecdb:    vecdb,
		coll:     coll,
		embedder: embedder,
	}, nil
}

// Add embeds plot and stores it under storyID.
func (p *PlotIndex) Add(ctx context.Context, storyID int64, plot string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	_, err := p.coll.InsertText(plot, map[string]any{
		"story_id": storyID,
		"plot":     plot,
	})
	if err != nil {
		return fmt.Errorf("insert plot %d: %w", storyID, err)
	}
	return nil
}

// hasNeighbours bounds the lookup in Has; identical plots from other
// stories can outrank the one being checked.
const hasNeighbours = 8

// Has reports whether storyID is already indexed. A stored plot is its own
// nearest neighbour, so the story id is looked for among the closest hits.
func (p *PlotIndex) Has(ctx context.Context, storyID int64, plot string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.coll.Count() == 0 {
		return false, nil
	}
	results, err := p.coll.SearchText(plot, veclite.TopK(hasNeighbours))
	if err != nil {
		return false, fmt.Errorf("look up plot %d: %w", storyID, err)
	}
	return containsStory(toMatches(results), storyID), nil
}

// Similar returns up to k stored plots whose cosine similarity to plot is at
// least threshold, best first.
func (p *PlotIndex) Similar(ctx context.Context, plot string, threshold float32, k int) ([]dedup.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	var (
		results []veclite.Result
		err     error
	)
	if threshold > 0 {
		results, err = p.coll.SearchText(plot, veclite.TopK(k), veclite.Threshold(threshold))
	} else {
		results, err = p.coll.SearchText(plot, veclite.TopK(k))
	}
	if err != nil {
		return nil, fmt.Errorf("search plots: %w", err)
	}
	return toMatches(results), nil
}

// Count returns the number of indexed plots.
func (p *PlotIndex) Count() int {
	return p.coll.Count()
}

// Stats returns collection statistics.
func (p *PlotIndex) Stats() veclite.CollectionStats {
	return p.coll.Stats()
}

// Sync persists pending changes to disk.
func (p *PlotIndex) Sync() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.vecdb.Sync()
}

// Close syncs and closes the VecLite database.
func (p *PlotIndex) Close() error {
	if p.vecdb == nil {
		return nil
	}
	return p.vecdb.Close()
}

func containsStory(matches []dedup.Match, storyID int64) bool {
	for _, m := range matches {
		if m.StoryID == storyID {
			return true
		}
	}
	return false
}

func toMatches(results []veclite.Result) []dedup.Match {
	out := make([]dedup.Match, 0, len(results))
	for _, r := range results {
		out = append(out, toMatch(r.Record.Payload, r.Record.Content, r.Score))
	}
	return out
}

func toMatch(payload map[string]any, content string, score float32) dedup.Match {
	m := dedup.Match{Score: score}
	if payload != nil {
		m.StoryID = payloadInt64(payload["story_id"])
		if plot, ok := payload["plot"].(string); ok {
			m.Plot = plot
		}
	}
	if m.Plot == "" {
		m.Plot = content
	}
	return m
}

// payloadInt64 reads a numeric payload value that may have round-tripped
// through a JSON or msgpack encoding.
func payloadInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case uint64:
		return int64(n)
	case float64:
		return int64(n)
	case float32:
		return int64(n)
	default:
		return 0
	}
}
