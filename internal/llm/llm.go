// Package llm talks to the external text generation services.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMissingAPIKey is returned when a cloud provider has no credential.
	ErrMissingAPIKey = errors.New("missing API key")
	// ErrEmptyResponse is returned when the service answered with no text.
	ErrEmptyResponse = errors.New("empty response from API")
)

// Operation names, used for logs, spans and metric labels.
const (
	OpGenerate  = "generate"
	OpSummarize = "summarize"
	OpCompare   = "compare"
)

// Request is a single system+user prompt exchange.
type Request struct {
	Op        string
	System    string
	Prompt    string
	MaxTokens int
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
}

// Config selects and configures a provider.
type Config struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

// New builds the generator for cfg.Provider.
func New(cfg Config) (Generator, error) {
	switch cfg.Provider {
	case "openai", "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai: %w", ErrMissingAPIKey)
		}
		return NewOpenAI(cfg), nil
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic: %w", ErrMissingAPIKey)
		}
		return NewAnthropic(cfg), nil
	case "ollama":
		return NewOllama(cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
