// Package dedup decides whether a new plot repeats a stored one.
package dedup

import (
	"context"
	"log/slog"

	"github.com/abdulachik/storyteller/internal/observability"
)

// Strategy selects how candidate plots are compared.
type Strategy string

// Supported strategies.
const (
	// StrategyLLM compares the candidate with every stored plot.
	StrategyLLM Strategy = "llm"
	// StrategyVector treats the nearest index hit above the threshold as a duplicate.
	StrategyVector Strategy = "vector"
	// StrategyHybrid asks the comparator about the index shortlist only.
	StrategyHybrid Strategy = "hybrid"
)

// Verdict is the outcome of a check.
type Verdict string

// Verdicts.
const (
	Unique    Verdict = "unique"
	Duplicate Verdict = "duplicate"
	// Skipped means stored plots could not be read. Callers treat it as unique.
	Skipped Verdict = "skipped"
)

// Match is a stored plot that matched the candidate.
type Match struct {
	StoryID int64   `json:"story_id,omitempty"`
	Plot    string  `json:"plot"`
	Score   float32 `json:"score,omitempty"`
}

// Index finds stored plots similar to a candidate.
type Index interface {
	Similar(ctx context.Context, plot string, threshold float32, k int) ([]Match, error)
}

// PlotLoader returns every stored plot.
type PlotLoader func(ctx context.Context) ([]string, error)

// Report describes how a check reached its verdict.
type Report struct {
	Verdict  Verdict  `json:"verdict"`
	Strategy Strategy `json:"strategy"`
	// Fallback is set when the index failed and the plain scan was used.
	Fallback bool   `json:"fallback,omitempty"`
	Compared int    `json:"compared"`
	Failed   int    `json:"failed"`
	Match    *Match `json:"match,omitempty"`
	Err      error  `json:"-"`
}

// IsDuplicate reports whether the candidate repeats a stored plot.
func (r Report) IsDuplicate() bool {
	return r.Verdict == Duplicate
}

// Config holds configuration for the Checker.
type Config struct {
	Strategy   Strategy
	Comparator Comparator
	// Index is required for the vector and hybrid strategies. Without it
	// the checker behaves as StrategyLLM.
	Index     Index
	Threshold float32
	Shortlist int
	Metrics   *observability.Metrics
}

// Checker runs plot deduplication.
type Checker struct {
	strategy   Strategy
	comparator Comparator
	index      Index
	threshold  float32
	shortlist  int
	metrics    *observability.Metrics
}

// NewChecker creates a checker.
func NewChecker(cfg Config) *Checker {
	strategy := cfg.Strategy
	if strategy == "" || cfg.Index == nil {
		strategy = StrategyLLM
	}
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = 0.9
	}
	shortlist := cfg.Shortlist
	if shortlist <= 0 {
		shortlist = 5
	}

	return &Checker{
		strategy:   strategy,
		comparator: cfg.Comparator,
		index:      cfg.Index,
		threshold:  threshold,
		shortlist:  shortlist,
		metrics:    cfg.Metrics,
	}
}

// Strategy returns the effective strategy.
func (c *Checker) Strategy() Strategy {
	return c.strategy
}

// Check compares candidate against an in-memory set of stored plots.
func (c *Checker) Check(ctx context.Context, candidate string, stored []string) Report {
	return c.CheckSource(ctx, candidate, func(context.Context) ([]string, error) {
		return stored, nil
	})
}

// CheckSource compares candidate against the plots returned by load. load is
// only called when the strategy needs the full collection.
func (c *Checker) CheckSource(ctx context.Context, candidate string, load PlotLoader) Report {
	switch c.strategy {
	case StrategyVector:
		matches, err := c.index.Similar(ctx, candidate, c.threshold, 1)
		if err != nil {
			return c.fallback(ctx, candidate, load, err)
		}
		report := Report{Verdict: Unique, Strategy: StrategyVector, Compared: len(matches)}
		if len(matches) > 0 && matches[0].Score >= c.threshold {
			report.Verdict = Duplicate
			report.Match = &matches[0]
		}
		return report

	case StrategyHybrid:
		matches, err := c.index.Similar(ctx, candidate, 0, c.shortlist)
		if err != nil {
			return c.fallback(ctx, candidate, load, err)
		}
		report := Report{Verdict: Unique, Strategy: StrategyHybrid}
		c.scan(ctx, candidate, matches, &report)
		return report

	default:
		return c.scanSource(ctx, candidate, load, Report{Strategy: StrategyLLM})
	}
}

func (c *Checker) fallback(ctx context.Context, candidate string, load PlotLoader, err error) Report {
	slog.Warn("plot index unavailable, scanning stored plots", "strategy", c.strategy, "error", err)
	return c.scanSource(ctx, candidate, load, Report{Strategy: c.strategy, Fallback: true})
}

func (c *Checker) scanSource(ctx context.Context, candidate string, load PlotLoader, report Report) Report {
	plots, err := load(ctx)
	if err != nil {
		slog.Error("failed to load stored plots, skipping dedup", "error", err)
		report.Verdict = Skipped
		report.Err = err
		return report
	}

	matches := make([]Match, len(plots))
	for i, p := range plots {
		matches[i] = Match{Plot: p}
	}

	report.Verdict = Unique
	c.scan(ctx, candidate, matches, &report)
	return report
}

// scan asks the comparator about each match in turn and stops at the first
// affirmative answer. Failed comparisons are skipped.
func (c *Checker) scan(ctx context.Context, candidate string, matches []Match, report *Report) {
	for i := range matches {
		if err := ctx.Err(); err != nil {
			report.Err = err
			return
		}

		same, err := c.comparator.Same(ctx, candidate, matches[i].Plot)
		report.Compared++
		if err != nil {
			report.Failed++
			c.count("error")
			slog.Warn("plot comparison failed, skipping", "error", err)
			continue
		}
		if same {
			c.count("yes")
			report.Verdict = Duplicate
			report.Match = &matches[i]
			return
		}
		c.count("no")
	}
}

func (c *Checker) count(result string) {
	if c.metrics != nil {
		c.metrics.DedupComparisons.WithLabelValues(result).Inc()
	}
}
