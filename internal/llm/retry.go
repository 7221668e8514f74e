package llm

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go"
)

// RetryConfig controls transient-failure retries.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first call.
	MaxRetries int
	Delay      time.Duration
}

type retrying struct {
	next Generator
	cfg  RetryConfig
}

// WithRetry retries transient failures of g with exponential backoff.
// Cancellation and client errors are returned immediately.
func WithRetry(g Generator, cfg RetryConfig) Generator {
	if cfg.MaxRetries <= 0 {
		return g
	}
	return &retrying{next: g, cfg: cfg}
}

func (r *retrying) Name() string { return r.next.Name() }

func (r *retrying) Generate(ctx context.Context, req Request) (string, error) {
	var out string
	err := retry.Do(
		func() error {
			text, err := r.next.Generate(ctx, req)
			if err != nil {
				return err
			}
			out = text
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(r.cfg.MaxRetries+1)),
		retry.Delay(r.cfg.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(IsTransient),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("retrying llm request",
				"provider", r.next.Name(),
				"op", req.Op,
				"attempt", n+1,
				"error", err,
			)
		}),
	)
	if err != nil {
		return "", err
	}
	return out, nil
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrMissingAPIKey) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	var openaiErr *openai.Error
	if errors.As(err, &openaiErr) {
		return temporaryStatus(openaiErr.StatusCode)
	}
	var ollamaErr api.StatusError
	if errors.As(err, &ollamaErr) {
		return temporaryStatus(ollamaErr.StatusCode)
	}

	// Network failures and empty answers.
	return true
}

func temporaryStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
