// Package app wires configuration into the running story service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/abdulachik/storyteller/internal/catalog"
	"github.com/abdulachik/storyteller/internal/config"
	"github.com/abdulachik/storyteller/internal/db"
	"github.com/abdulachik/storyteller/internal/dedup"
	"github.com/abdulachik/storyteller/internal/docstore"
	"github.com/abdulachik/storyteller/internal/health"
	"github.com/abdulachik/storyteller/internal/llm"
	"github.com/abdulachik/storyteller/internal/observability"
	"github.com/abdulachik/storyteller/internal/story"
	"github.com/abdulachik/storyteller/internal/vectorstore"
)

// Store is a story repository with a schema and a connection to release.
type Store interface {
	story.Repository
	Migrate(ctx context.Context) error
	Close() error
}

// App is the main application container holding all dependencies.
type App struct {
	Config  *config.Config
	Store   Store
	Metrics *observability.Metrics
	Health  *health.Tracker
	Catalog *catalog.Catalog

	// Generator is nil when the provider is not configured; GeneratorErr
	// then says why.
	Generator    llm.Generator
	GeneratorErr error

	// Index is nil unless the dedup strategy uses it.
	Index   *vectorstore.PlotIndex
	Checker *dedup.Checker
	Stories *story.Service
}

// New creates a new application instance with all dependencies wired up.
// A missing LLM credential is not an error: the service then answers every
// generation request with the configuration error.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	a := &App{
		Config:  cfg,
		Store:   store,
		Metrics: observability.NewMetrics(),
		Health:  health.NewTracker(),
		Catalog: cat,
	}

	a.Generator, a.GeneratorErr = NewGenerator(cfg, a.Metrics)
	if a.GeneratorErr != nil {
		slog.Error("text generation unavailable", "provider", cfg.LLMProvider, "error", a.GeneratorErr)
	}

	var index dedup.Index
	if cfg.UsesIndex() {
		idx, err := OpenIndex(cfg)
		if err != nil {
			slog.Error("plot index unavailable, comparing plots with the llm", "error", err)
		} else {
			a.Index = idx
			index = idx
		}
	}

	if a.Generator != nil {
		a.Checker = dedup.NewChecker(dedup.Config{
			Strategy:   dedup.Strategy(cfg.DedupStrategy),
			Comparator: dedup.NewLLMComparator(a.Generator),
			Index:      index,
			Threshold:  cfg.DedupThreshold,
			Shortlist:  cfg.DedupShortlist,
			Metrics:    a.Metrics,
		})
	}

	svcCfg := story.Config{
		Generator:        a.Generator,
		Repo:             store,
		Checker:          a.Checker,
		Catalog:          cat,
		Metrics:          a.Metrics,
		MaxAttempts:      cfg.GenerationMaxAttempts,
		MaxTokens:        cfg.StoryMaxTokens,
		WordLimit:        cfg.StoryWordLimit,
		Language:         cfg.StoryLanguage,
		AvoidTokenBudget: cfg.AvoidTokenBudget,
	}
	if cfg.AvoidTokenBudget > 0 {
		svcCfg.Tokens = story.NewTokenCounter(model(cfg))
	}
	if a.Index != nil {
		svcCfg.Index = a.Index
	}
	a.Stories = story.NewService(svcCfg)

	a.registerProbes()
	return a, nil
}

// OpenStore connects to the store selected by STORE_DRIVER without
// migrating it.
func OpenStore(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		slog.Info("connecting to mongodb", "database", cfg.MongoDatabase)
		s, err := docstore.Connect(ctx, docstore.Config{
			URI:       cfg.MongoURI,
			Database:  cfg.MongoDatabase,
			Attempts:  cfg.MongoAttempts,
			RetryWait: cfg.MongoRetryWait,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		slog.Debug("opening database", "path", cfg.DatabasePath)
		s, err := db.NewStore(ctx, cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		return s, nil
	}
}

// NewGenerator builds the configured provider with retries and
// instrumentation.
func NewGenerator(cfg *config.Config, metrics *observability.Metrics) (llm.Generator, error) {
	llmCfg := llm.Config{
		Provider: cfg.LLMProvider,
		Model:    model(cfg),
		Timeout:  cfg.LLMTimeout,
	}
	switch cfg.LLMProvider {
	case config.ProviderAnthropic:
		llmCfg.APIKey = cfg.AnthropicAPIKey
	case config.ProviderOllama:
		llmCfg.BaseURL = cfg.OllamaHost
	default:
		llmCfg.APIKey = cfg.OpenAIAPIKey
		llmCfg.BaseURL = cfg.OpenAIBaseURL
	}

	gen, err := llm.New(llmCfg)
	if err != nil {
		return nil, err
	}

	gen = llm.WithRetry(gen, llm.RetryConfig{
		MaxRetries: cfg.LLMMaxRetries,
		Delay:      cfg.LLMRetryDelay,
	})
	return llm.Instrument(gen, metrics), nil
}

// OpenIndex opens the VecLite plot index.
func OpenIndex(cfg *config.Config) (*vectorstore.PlotIndex, error) {
	return vectorstore.New(vectorstore.Config{
		Path:       cfg.VecLitePath,
		ConfigPath: cfg.VecLiteConfig,
	})
}

func model(cfg *config.Config) string {
	switch cfg.LLMProvider {
	case config.ProviderAnthropic:
		return cfg.AnthropicModel
	case config.ProviderOllama:
		return cfg.OllamaModel
	default:
		return cfg.OpenAIModel
	}
}

func (a *App) registerProbes() {
	a.Health.Register(health.Store, func(ctx context.Context) (string, error) {
		if err := a.Store.Ping(ctx); err != nil {
			return "", err
		}
		n, err := a.Store.CountStories(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d stories", n), nil
	})

	a.Health.Register(health.LLM, func(context.Context) (string, error) {
		if a.Generator == nil {
			return "", a.GeneratorErr
		}
		return a.Generator.Name(), nil
	})

	if a.Config.UsesIndex() {
		a.Health.Register(health.Index, func(context.Context) (string, error) {
			if a.Index == nil {
				return "", errors.New("plot index not open")
			}
			return fmt.Sprintf("%d plots", a.Index.Count()), nil
		})
	}
}

// Close closes all resources.
func (a *App) Close() error {
	var errs []error
	if a.Index != nil {
		if err := a.Index.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close plot index: %w", err))
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}

