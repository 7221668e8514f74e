package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Save original env and restore after test
	origEnv := os.Environ()
	t.Cleanup(func() {
		os.Clearenv()
		for _, e := range origEnv {
			for i := 0; i < len(e); i++ {
				if e[i] == '=' {
					os.Setenv(e[:i], e[i+1:])
					break
				}
			}
		}
	})

	t.Run("defaults", func(t *testing.T) {
		os.Clearenv()
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, DriverSQLite, cfg.StoreDriver)
		assert.Equal(t, "data/storyteller.db", cfg.DatabasePath)
		assert.Equal(t, ProviderOpenAI, cfg.LLMProvider)
		assert.Equal(t, "gpt-4o", cfg.OpenAIModel)
		assert.Equal(t, "http://localhost:11434", cfg.OllamaHost)
		assert.Equal(t, 400, cfg.StoryMaxTokens)
		assert.Equal(t, 200, cfg.StoryWordLimit)
		assert.Equal(t, "Russian", cfg.StoryLanguage)
		assert.Equal(t, 3, cfg.GenerationMaxAttempts)
		assert.Equal(t, DedupLLM, cfg.DedupStrategy)
		assert.InDelta(t, 0.9, cfg.DedupThreshold, 0.0001)
		assert.Equal(t, 120*time.Second, cfg.LLMTimeout)
		assert.Equal(t, ":8080", cfg.HTTPAddr)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.False(t, cfg.TracesEnabled)
	})

	t.Run("custom values", func(t *testing.T) {
		os.Clearenv()
		os.Setenv("DATABASE_PATH", "/custom/path.db")
		os.Setenv("OPENAI_API_KEY", "sk-test")
		os.Setenv("LLM_PROVIDER", "ollama")
		os.Setenv("OLLAMA_HOST", "gpu-box:11434")
		os.Setenv("LLM_TIMEOUT", "30s")
		os.Setenv("GENERATION_MAX_ATTEMPTS", "5")
		os.Setenv("DEDUP_THRESHOLD", "0.75")
		os.Setenv("OTEL_TRACES_ENABLED", "true")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "/custom/path.db", cfg.DatabasePath)
		assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
		assert.Equal(t, ProviderOllama, cfg.LLMProvider)
		assert.Equal(t, "http://gpu-box:11434", cfg.OllamaHost)
		assert.Equal(t, 30*time.Second, cfg.LLMTimeout)
		assert.Equal(t, 5, cfg.GenerationMaxAttempts)
		assert.InDelta(t, 0.75, cfg.DedupThreshold, 0.0001)
		assert.True(t, cfg.TracesEnabled)
	})

	t.Run("invalid duration", func(t *testing.T) {
		os.Clearenv()
		os.Setenv("LLM_TIMEOUT", "invalid")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "LLM_TIMEOUT")
	})

	t.Run("invalid integer", func(t *testing.T) {
		os.Clearenv()
		os.Setenv("STORY_MAX_TOKENS", "notanumber")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "STORY_MAX_TOKENS")
	})

	t.Run("invalid threshold", func(t *testing.T) {
		os.Clearenv()
		os.Setenv("DEDUP_THRESHOLD", "high")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "DEDUP_THRESHOLD")
	})
}

func validConfig() *Config {
	return &Config{
		StoreDriver:           DriverSQLite,
		DatabasePath:          "test.db",
		GenerationMaxAttempts: 3,
		DedupStrategy:         DedupLLM,
		LLMProvider:           ProviderOpenAI,
		OpenAIAPIKey:          "sk-test",
		HTTPAddr:              ":8080",
		VecLitePath:           "plots.veclite",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid"},
		{name: "missing database path", mutate: func(c *Config) { c.DatabasePath = "" }, wantErr: "DATABASE_PATH"},
		{name: "unknown driver", mutate: func(c *Config) { c.StoreDriver = "postgres" }, wantErr: "STORE_DRIVER"},
		{name: "mongo without uri", mutate: func(c *Config) { c.StoreDriver = DriverMongo }, wantErr: "MONGODB_URI"},
		{name: "zero attempts", mutate: func(c *Config) { c.GenerationMaxAttempts = 0 }, wantErr: "GENERATION_MAX_ATTEMPTS"},
		{name: "unknown strategy", mutate: func(c *Config) { c.DedupStrategy = "fuzzy" }, wantErr: "DEDUP_STRATEGY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateForGeneration(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, validConfig().ValidateForGeneration())
	})

	t.Run("missing openai key", func(t *testing.T) {
		cfg := validConfig()
		cfg.OpenAIAPIKey = ""
		err := cfg.ValidateForGeneration()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "OPENAI_API_KEY")
	})

	t.Run("missing anthropic key", func(t *testing.T) {
		cfg := validConfig()
		cfg.LLMProvider = ProviderAnthropic
		err := cfg.ValidateForGeneration()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
	})

	t.Run("ollama needs no key", func(t *testing.T) {
		cfg := validConfig()
		cfg.LLMProvider = ProviderOllama
		cfg.OpenAIAPIKey = ""
		cfg.OllamaHost = "http://localhost:11434"
		assert.NoError(t, cfg.ValidateForGeneration())
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := validConfig()
		cfg.LLMProvider = "bard"
		err := cfg.ValidateForGeneration()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "LLM_PROVIDER")
	})
}

func TestConfig_ValidateForServe(t *testing.T) {
	t.Run("missing api key is allowed", func(t *testing.T) {
		cfg := validConfig()
		cfg.OpenAIAPIKey = ""
		assert.NoError(t, cfg.ValidateForServe())
	})

	t.Run("vector strategy needs index path", func(t *testing.T) {
		cfg := validConfig()
		cfg.DedupStrategy = DedupVector
		cfg.VecLitePath = ""
		err := cfg.ValidateForServe()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "VECLITE_PATH")
	})
}

func TestNormalizeOllamaHost(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "http://localhost:11434"},
		{"0.0.0.0", "http://localhost:11434"},
		{"box:11434", "http://box:11434"},
		{"https://ollama.example.com", "https://ollama.example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeOllamaHost(tt.in))
		})
	}
}

func TestConfig_UsesIndex(t *testing.T) {
	cfg := validConfig()
	assert.False(t, cfg.UsesIndex())
	cfg.DedupStrategy = DedupHybrid
	assert.True(t, cfg.UsesIndex())
}
