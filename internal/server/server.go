// Package server exposes the story service over HTTP.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abdulachik/storyteller/internal/catalog"
	"github.com/abdulachik/storyteller/internal/health"
	"github.com/abdulachik/storyteller/internal/observability"
	"github.com/abdulachik/storyteller/internal/story"
)

//go:embed templates/*.html
var templatesFS embed.FS

// StoryService is the part of story.Service the handlers use.
type StoryService interface {
	Generate(ctx context.Context, req story.Request) story.Result
	Random(ctx context.Context) (catalog.Seed, story.Result)
	List(ctx context.Context) story.ListResult
	Get(ctx context.Context, id int64) story.GetResult
	Pages(ctx context.Context, id int64) story.PagesResult
	Catalog() *catalog.Catalog
}

// Config holds server dependencies.
type Config struct {
	Addr            string
	Stories         StoryService
	Health          *health.Tracker
	Metrics         *observability.Metrics
	ShutdownTimeout time.Duration
	// Debug switches gin to debug mode.
	Debug bool
}

// Server is the HTTP front end.
type Server struct {
	stories         StoryService
	health          *health.Tracker
	metrics         *observability.Metrics
	router          *gin.Engine
	srv             *http.Server
	shutdownTimeout time.Duration
}

// New creates a server and registers its routes.
func New(cfg Config) (*Server, error) {
	if cfg.Stories == nil {
		return nil, errors.New("story service is required")
	}
	if cfg.Health == nil {
		cfg.Health = health.NewTracker()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NewMetrics()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	tmpl, err := template.New("").Funcs(template.FuncMap{
		"date": formatDate,
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		stories:         cfg.Stories,
		health:          cfg.Health,
		metrics:         cfg.Metrics,
		shutdownTimeout: cfg.ShutdownTimeout,
	}

	router := gin.New()
	router.Use(requestLogger(cfg.Metrics))
	router.Use(gin.Recovery())
	router.SetHTMLTemplate(tmpl)
	s.routes(router)
	s.router = router

	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(r *gin.Engine) {
	r.GET("/", s.readerPage)
	r.GET("/stories", s.galleryPage)

	api := r.Group("/api")
	{
		api.POST("/stories/generate", s.generate)
		api.GET("/stories", s.listStories)
		api.GET("/stories/:id", s.getStory)
		api.GET("/stories/:id/pages", s.storyPages)
		api.GET("/catalog", s.catalog)
	}

	r.GET("/healthz", s.healthz)
	r.HEAD("/healthz", s.healthz)
	r.GET("/readyz", s.readyz)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down http server", "timeout", s.shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("January 2, 2006")
}
