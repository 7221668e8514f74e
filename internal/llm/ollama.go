package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

const (
	defaultOllamaHost  = "http://localhost:11434"
	defaultOllamaModel = "llama3.1"
)

// Ollama generates text with a local Ollama server.
type Ollama struct {
	client *api.Client
	model  string
}

// NewOllama creates an Ollama generator for cfg.BaseURL.
func NewOllama(cfg Config) (*Ollama, error) {
	host := strings.TrimSuffix(strings.TrimSuffix(cfg.BaseURL, "/"), "/v1")
	if host == "" {
		host = defaultOllamaHost
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host %q: %w", host, err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultOllamaModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &Ollama{
		client: api.NewClient(u, &http.Client{Timeout: timeout}),
		model:  model,
	}, nil
}

// Name returns the provider name.
func (o *Ollama) Name() string { return "ollama" }

// Generate runs a non-streaming chat request.
func (o *Ollama) Generate(ctx context.Context, req Request) (string, error) {
	var msgs []api.Message
	if req.System != "" {
		msgs = append(msgs, api.Message{Role: "system", Content: req.System})
	}
	msgs = append(msgs, api.Message{Role: "user", Content: req.Prompt})

	stream := false
	chatReq := &api.ChatRequest{
		Model:    o.model,
		Messages: msgs,
		Stream:   &stream,
	}
	if req.MaxTokens > 0 {
		chatReq.Options = map[string]any{"num_predict": req.MaxTokens}
	}

	var content strings.Builder
	err := o.client.Chat(ctx, chatReq, func(r api.ChatResponse) error {
		content.WriteString(r.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}

	text := strings.TrimSpace(content.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
