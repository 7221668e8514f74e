// Package story generates, deduplicates and stores stories.
package story

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/abdulachik/storyteller/internal/catalog"
	"github.com/abdulachik/storyteller/internal/db"
	"github.com/abdulachik/storyteller/internal/dedup"
	"github.com/abdulachik/storyteller/internal/llm"
	"github.com/abdulachik/storyteller/internal/observability"
	"github.com/abdulachik/storyteller/internal/pager"
)

const summaryMaxTokens = 100

// Repository stores stories.
type Repository interface {
	CreateStory(ctx context.Context, arg db.CreateStoryParams) (*db.Story, error)
	ListPlots(ctx context.Context) ([]string, error)
	ListStories(ctx context.Context) ([]*db.Story, error)
	GetStory(ctx context.Context, id int64) (*db.Story, error)
	CountStories(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// PlotIndexer receives the plot of every stored story.
type PlotIndexer interface {
	Add(ctx context.Context, storyID int64, plot string) error
}

// Request seeds a story.
type Request struct {
	Quote       string `json:"quote"`
	Book        string `json:"book,omitempty"`
	Inspiration string `json:"inspiration,omitempty"`
}

// Result is the outcome of a generation request. It is always returned,
// failures included.
type Result struct {
	Success    bool     `json:"success"`
	StoryParts []string `json:"storyParts"`
	StoryID    *int64   `json:"storyId,omitempty"`
	Plot       string   `json:"plot,omitempty"`
	DBError    string   `json:"dbError,omitempty"`
	// Attempts is the number of stories generated for this request.
	Attempts int `json:"attempts,omitempty"`
	// Exhausted is set when every attempt was a duplicate and the last one
	// is returned unsaved.
	Exhausted bool          `json:"exhausted,omitempty"`
	Dedup     *dedup.Report `json:"dedup,omitempty"`
	RunID     string        `json:"runId,omitempty"`
	Err       error         `json:"-"`
}

// ListResult is the outcome of listing stories.
type ListResult struct {
	Success bool        `json:"success"`
	Stories []*db.Story `json:"stories"`
	Message string      `json:"message,omitempty"`
}

// GetResult is the outcome of fetching one story.
type GetResult struct {
	Success bool      `json:"success"`
	Story   *db.Story `json:"story"`
	Message string    `json:"message,omitempty"`
}

// PagesResult is a stored story split into reading screens.
type PagesResult struct {
	Success bool     `json:"success"`
	StoryID int64    `json:"storyId,omitempty"`
	Plot    string   `json:"plot,omitempty"`
	Pages   []string `json:"pages"`
	Message string   `json:"message,omitempty"`
}

// Config holds the service dependencies and settings.
type Config struct {
	// Generator may be nil, in which case every generation request answers
	// with the configuration error.
	Generator llm.Generator
	Repo      Repository
	Checker   *dedup.Checker
	Index     PlotIndexer
	Catalog   *catalog.Catalog
	Metrics   *observability.Metrics

	MaxAttempts      int
	MaxTokens        int
	WordLimit        int
	Language         string
	AvoidTokenBudget int
	Tokens           TokenCounter
	Rand             *rand.Rand
}

// Service orchestrates story generation.
type Service struct {
	gen     llm.Generator
	repo    Repository
	checker *dedup.Checker
	index   PlotIndexer
	catalog *catalog.Catalog
	metrics *observability.Metrics
	tracer  trace.Tracer

	maxAttempts int
	maxTokens   int
	wordLimit   int
	language    string
	avoidBudget int
	tokens      TokenCounter

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewService creates a story service.
func NewService(cfg Config) *Service {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 400
	}
	checker := cfg.Checker
	if checker == nil && cfg.Generator != nil {
		checker = dedup.NewChecker(dedup.Config{Comparator: dedup.NewLLMComparator(cfg.Generator)})
	}
	cat := cfg.Catalog
	if cat == nil {
		cat = catalog.Default()
	}

	return &Service{
		gen:         cfg.Generator,
		repo:        cfg.Repo,
		checker:     checker,
		index:       cfg.Index,
		catalog:     cat,
		metrics:     cfg.Metrics,
		tracer:      observability.Tracer(),
		maxAttempts: maxAttempts,
		maxTokens:   maxTokens,
		wordLimit:   cfg.WordLimit,
		language:    cfg.Language,
		avoidBudget: cfg.AvoidTokenBudget,
		tokens:      cfg.Tokens,
		rng:         cfg.Rand,
	}
}

// Catalog returns the seed catalog.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// Generate writes a story for req, retrying while the result repeats a
// stored plot.
func (s *Service) Generate(ctx context.Context, req Request) Result {
	runID := uuid.NewString()
	log := slog.With("run_id", runID)

	ctx, span := s.tracer.Start(ctx, "story.generate", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.Bool("request.has_book", req.Book != ""),
	))
	defer span.End()

	res := s.generate(ctx, log, req)
	res.RunID = runID

	outcome := outcomeOf(res)
	span.SetAttributes(
		attribute.String("generation.outcome", outcome),
		attribute.Int("generation.attempts", res.Attempts),
	)
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
	}
	if s.metrics != nil {
		s.metrics.Generations.WithLabelValues(outcome).Inc()
		if res.Attempts > 0 {
			s.metrics.GenerationAttempts.Observe(float64(res.Attempts))
		}
	}

	return res
}

func (s *Service) generate(ctx context.Context, log *slog.Logger, req Request) Result {
	if strings.TrimSpace(req.Quote) == "" {
		return Result{StoryParts: []string{MsgInvalidInput}, Err: ErrInvalidInput}
	}
	if s.gen == nil {
		log.Error("missing text generation credentials")
		return Result{StoryParts: []string{MsgConfigError}, Err: ErrMissingConfig}
	}

	var (
		text   string
		plot   string
		report dedup.Report
	)
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		quote := req.Quote
		if attempt > 1 {
			quote += UniquenessSuffix
		}

		plots, plotsErr := s.loadPlots(ctx, log)

		var err error
		text, err = s.writeStory(ctx, quote, req, plots)
		if err != nil {
			log.Error("story generation failed", "attempt", attempt, "error", err)
			return Result{
				StoryParts: []string{FallbackStory},
				Attempts:   attempt,
				Err:        fmt.Errorf("%w: %w", ErrGenerationFailed, err),
			}
		}

		plot = s.summarize(ctx, log, text)

		report = s.checker.CheckSource(ctx, plot, func(context.Context) ([]string, error) {
			return plots, plotsErr
		})
		if report.IsDuplicate() {
			log.Info("duplicate plot, regenerating",
				"attempt", attempt,
				"max_attempts", s.maxAttempts,
				"plot", plot,
				"strategy", report.Strategy,
			)
			continue
		}

		res := Result{
			Success:    true,
			StoryParts: pager.Paginate(text),
			Plot:       plot,
			Attempts:   attempt,
			Dedup:      &report,
		}
		s.persist(ctx, log, req, text, plot, &res)
		return res
	}

	log.Warn("every attempt was a duplicate, returning last story unsaved",
		"attempts", s.maxAttempts,
		"plot", plot,
	)
	return Result{
		Success:    true,
		StoryParts: pager.Paginate(text),
		Plot:       plot,
		Attempts:   s.maxAttempts,
		Exhausted:  true,
		Dedup:      &report,
	}
}

func (s *Service) loadPlots(ctx context.Context, log *slog.Logger) ([]string, error) {
	plots, err := s.repo.ListPlots(ctx)
	if err != nil {
		log.Error("failed to read stored plots", "error", err)
		s.storeError("list_plots")
		return nil, err
	}
	return plots, nil
}

func (s *Service) writeStory(ctx context.Context, quote string, req Request, plots []string) (string, error) {
	avoid := trimToBudget(plots, s.avoidBudget, s.tokens)
	if len(avoid) < len(plots) {
		slog.Debug("avoid list trimmed to token budget", "kept", len(avoid), "total", len(plots))
	}

	text, err := s.gen.Generate(ctx, llm.Request{
		Op:     llm.OpGenerate,
		System: StorySystemPrompt,
		Prompt: BuildStoryPrompt(PromptParams{
			Quote:       quote,
			Book:        req.Book,
			Inspiration: req.Inspiration,
			WordLimit:   s.wordLimit,
			Language:    s.language,
			Avoid:       avoid,
		}),
		MaxTokens: s.maxTokens,
	})
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

func (s *Service) summarize(ctx context.Context, log *slog.Logger, text string) string {
	out, err := s.gen.Generate(ctx, llm.Request{
		Op:        llm.OpSummarize,
		System:    SummarySystemPrompt,
		Prompt:    BuildSummaryPrompt(text),
		MaxTokens: summaryMaxTokens,
	})
	if err != nil {
		log.Warn("summarization failed, using default summary", "error", err)
		return DefaultSummary
	}
	if plot := cleanSummary(out); plot != "" {
		return plot
	}
	return DefaultSummary
}

func (s *Service) persist(ctx context.Context, log *slog.Logger, req Request, text, plot string, res *Result) {
	book := strings.TrimSpace(req.Book)
	if book == "" {
		book = text
	}
	inspiration := strings.TrimSpace(req.Inspiration)
	if inspiration == "" {
		inspiration = DefaultInspiration
	}

	saved, err := s.repo.CreateStory(ctx, db.CreateStoryParams{
		BookBasedStory: book,
		StoryText:      text,
		Plot:           plot,
		Inspiration:    inspiration,
		SeedQuote:      req.Quote,
	})
	if err != nil {
		log.Error("failed to save story", "error", err)
		s.storeError("create_story")
		res.DBError = MsgDBError
		return
	}

	id := saved.ID
	res.StoryID = &id
	log.Info("story saved", "story_id", id, "attempts", res.Attempts)

	if s.index != nil {
		if err := s.index.Add(ctx, id, plot); err != nil {
			log.Warn("failed to index plot", "story_id", id, "error", err)
		}
	}
}

func (s *Service) storeError(op string) {
	if s.metrics != nil {
		s.metrics.StoreErrors.WithLabelValues(op).Inc()
	}
}

// Random generates a story from a random catalog draw.
func (s *Service) Random(ctx context.Context) (catalog.Seed, Result) {
	s.rngMu.Lock()
	seed := s.catalog.Pick(s.rng)
	s.rngMu.Unlock()

	return seed, s.Generate(ctx, Request{
		Quote:       seed.Quote,
		Book:        seed.Book,
		Inspiration: seed.Inspiration,
	})
}

// List returns every stored story, newest first.
func (s *Service) List(ctx context.Context) ListResult {
	stories, err := s.repo.ListStories(ctx)
	if err != nil {
		slog.Error("failed to list stories", "error", err)
		s.storeError("list_stories")
		return ListResult{Stories: []*db.Story{}, Message: MsgStoreError}
	}
	if stories == nil {
		stories = []*db.Story{}
	}
	return ListResult{Success: true, Stories: stories}
}

// Get returns one stored story.
func (s *Service) Get(ctx context.Context, id int64) GetResult {
	story, err := s.repo.GetStory(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return GetResult{Message: MsgStoryNotFound}
	}
	if err != nil {
		slog.Error("failed to get story", "story_id", id, "error", err)
		s.storeError("get_story")
		return GetResult{Message: MsgStoreError}
	}
	return GetResult{Success: true, Story: story}
}

// Pages returns a stored story split into its non-empty reading screens.
func (s *Service) Pages(ctx context.Context, id int64) PagesResult {
	got := s.Get(ctx, id)
	if !got.Success {
		return PagesResult{Pages: []string{}, Message: got.Message}
	}
	return PagesResult{
		Success: true,
		StoryID: got.Story.ID,
		Plot:    got.Story.Plot,
		Pages:   pager.NonEmpty(pager.Paginate(got.Story.Text())),
	}
}

// outcomeOf labels a result for metrics and spans.
func outcomeOf(r Result) string {
	switch {
	case errors.Is(r.Err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(r.Err, ErrMissingConfig):
		return "config_error"
	case !r.Success:
		return "failed"
	case r.Exhausted:
		return "exhausted"
	case r.DBError != "":
		return "unsaved"
	default:
		return "stored"
	}
}
