package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// LLM providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// Dedup strategies.
const (
	DedupLLM    = "llm"
	DedupVector = "vector"
	DedupHybrid = "hybrid"
)

// Config holds all application configuration.
type Config struct {
	// Storage
	StoreDriver    string
	DatabasePath   string
	MongoURI       string
	MongoDatabase  string
	MongoAttempts  int
	MongoRetryWait time.Duration

	// Text generation
	LLMProvider     string
	OpenAIAPIKey    string
	OpenAIModel     string
	OpenAIBaseURL   string
	AnthropicAPIKey string
	AnthropicModel  string
	OllamaHost      string
	OllamaModel     string
	LLMTimeout      time.Duration
	LLMMaxRetries   int
	LLMRetryDelay   time.Duration

	// Story generation
	StoryMaxTokens        int
	StoryWordLimit        int
	StoryLanguage         string
	GenerationMaxAttempts int
	AvoidTokenBudget      int
	CatalogFile           string

	// Plot deduplication
	DedupStrategy  string
	DedupThreshold float32
	DedupShortlist int
	VecLitePath    string
	VecLiteConfig  string

	// HTTP
	HTTPAddr        string
	ShutdownTimeout time.Duration

	// Logging and tracing
	LogLevel      string
	TracesEnabled bool
	OTLPEndpoint  string
	Environment   string
}

// Load reads configuration from environment variables.
// It automatically loads .env file if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		StoreDriver:     getEnv("STORE_DRIVER", DriverSQLite),
		DatabasePath:    getEnv("DATABASE_PATH", "data/storyteller.db"),
		MongoURI:        getEnv("MONGODB_URI", ""),
		MongoDatabase:   getEnv("MONGODB_DATABASE", "storyteller"),
		LLMProvider:     getEnv("LLM_PROVIDER", ProviderOpenAI),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o"),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		OllamaHost:      normalizeOllamaHost(getEnv("OLLAMA_HOST", "http://localhost:11434")),
		OllamaModel:     getEnv("OLLAMA_MODEL", "llama3.1"),
		StoryLanguage:   getEnv("STORY_LANGUAGE", "Russian"),
		CatalogFile:     getEnv("CATALOG_FILE", ""),
		DedupStrategy:   getEnv("DEDUP_STRATEGY", DedupLLM),
		VecLitePath:     getEnv("VECLITE_PATH", "data/plots.veclite"),
		VecLiteConfig:   getEnv("VECLITE_CONFIG", ""),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		TracesEnabled:   getEnv("OTEL_TRACES_ENABLED", "false") == "true",
		OTLPEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		Environment:     getEnv("ENVIRONMENT", "development"),
	}

	durations := []struct {
		key, def string
		dst      *time.Duration
	}{
		{"LLM_TIMEOUT", "120s", &cfg.LLMTimeout},
		{"LLM_RETRY_DELAY", "1s", &cfg.LLMRetryDelay},
		{"MONGODB_RETRY_WAIT", "2s", &cfg.MongoRetryWait},
		{"SHUTDOWN_TIMEOUT", "10s", &cfg.ShutdownTimeout},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getEnv(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = v
	}

	ints := []struct {
		key, def string
		dst      *int
	}{
		{"LLM_MAX_RETRIES", "2", &cfg.LLMMaxRetries},
		{"MONGODB_CONNECT_ATTEMPTS", "5", &cfg.MongoAttempts},
		{"STORY_MAX_TOKENS", "400", &cfg.StoryMaxTokens},
		{"STORY_WORD_LIMIT", "200", &cfg.StoryWordLimit},
		{"GENERATION_MAX_ATTEMPTS", "3", &cfg.GenerationMaxAttempts},
		{"AVOID_TOKEN_BUDGET", "0", &cfg.AvoidTokenBudget},
		{"DEDUP_SHORTLIST", "5", &cfg.DedupShortlist},
	}
	for _, i := range ints {
		v, err := strconv.Atoi(getEnv(i.key, i.def))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", i.key, err)
		}
		*i.dst = v
	}

	threshold, err := strconv.ParseFloat(getEnv("DEDUP_THRESHOLD", "0.9"), 32)
	if err != nil {
		return nil, fmt.Errorf("invalid DEDUP_THRESHOLD: %w", err)
	}
	cfg.DedupThreshold = float32(threshold)

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if err := c.ValidateForStore(); err != nil {
		return err
	}
	if c.GenerationMaxAttempts < 1 {
		return fmt.Errorf("GENERATION_MAX_ATTEMPTS must be at least 1")
	}
	switch c.DedupStrategy {
	case DedupLLM, DedupVector, DedupHybrid:
	default:
		return fmt.Errorf("invalid DEDUP_STRATEGY: %s (must be 'llm', 'vector' or 'hybrid')", c.DedupStrategy)
	}
	return nil
}

// ValidateForStore checks configuration needed to open the story store.
func (c *Config) ValidateForStore() error {
	switch c.StoreDriver {
	case DriverSQLite, "":
		if c.DatabasePath == "" {
			return fmt.Errorf("DATABASE_PATH is required")
		}
	case DriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGODB_URI is required when STORE_DRIVER is mongo")
		}
		if c.MongoDatabase == "" {
			return fmt.Errorf("MONGODB_DATABASE is required when STORE_DRIVER is mongo")
		}
	default:
		return fmt.Errorf("invalid STORE_DRIVER: %s (must be 'sqlite' or 'mongo')", c.StoreDriver)
	}
	return nil
}

// ValidateForGeneration checks configuration needed to call the text generation service.
func (c *Config) ValidateForGeneration() error {
	if err := c.Validate(); err != nil {
		return err
	}
	switch c.LLMProvider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER is openai")
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when LLM_PROVIDER is anthropic")
		}
	case ProviderOllama:
		if c.OllamaHost == "" {
			return fmt.Errorf("OLLAMA_HOST is required when LLM_PROVIDER is ollama")
		}
	default:
		return fmt.Errorf("invalid LLM_PROVIDER: %s (must be 'openai', 'anthropic' or 'ollama')", c.LLMProvider)
	}
	return nil
}

// ValidateForIndex checks configuration needed for the plot vector index.
func (c *Config) ValidateForIndex() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.VecLitePath == "" {
		return fmt.Errorf("VECLITE_PATH is required")
	}
	return nil
}

// ValidateForServe checks configuration needed for serve mode.
// A missing API key is not fatal here: the server starts and every
// generation request answers with the configuration error message.
func (c *Config) ValidateForServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR is required")
	}
	if c.DedupStrategy != DedupLLM {
		return c.ValidateForIndex()
	}
	return nil
}

// UsesIndex reports whether the dedup strategy needs the vector index.
func (c *Config) UsesIndex() bool {
	return c.DedupStrategy == DedupVector || c.DedupStrategy == DedupHybrid
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// normalizeOllamaHost turns a bind address such as "0.0.0.0" into a client URL.
func normalizeOllamaHost(host string) string {
	if host == "" || host == "0.0.0.0" || host == "0.0.0.0:11434" {
		return "http://localhost:11434"
	}
	if len(host) < 4 || host[:4] != "http" {
		return "http://" + host
	}
	return host
}
