package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Provider names accepted by New.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

const (
	defaultGeminiModel = "gemini-2.5-flash"
	defaultOllamaModel = "llama3.2:latest"
	defaultOpenAIModel = "gpt-4o-mini"

	defaultOllamaEndpoint = "http://localhost:11434"
	defaultOpenAIEndpoint = "https://api.openai.com/v1"

	defaultTemperature     = 0.4
	defaultMaxOutputTokens = 512
)

// Local models often need well over a minute; callers cancel through ctx.
const defaultLLMHTTPTimeout = 3 * time.Minute

// Generator turns a prompt into raw model text. Output shape is not
// guaranteed; callers parse it defensively.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// Config describes how to build a Generator. APIKey is always supplied by
// the caller; no adapter reads credentials on its own.
type Config struct {
	Provider          string
	Model             string
	Endpoint          string
	APIKey            string
	Temperature       float32
	MaxOutputTokens   int32
	Timeout           time.Duration
	Retries           int
	RequestsPerMinute float64
	HTTPClient        *http.Client
	Logger            *zap.Logger
}

func (c Config) withDefaults() Config {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = ProviderGemini
	}
	if c.Temperature <= 0 {
		c.Temperature = defaultTemperature
	}
	if c.MaxOutputTokens <= 0 {
		c.MaxOutputTokens = defaultMaxOutputTokens
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultLLMHTTPTimeout
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.Endpoint = strings.TrimRight(strings.TrimSpace(c.Endpoint), "/")
	return c
}

// New builds the Generator for cfg.Provider, wrapped in a client-side rate
// limit when RequestsPerMinute is set.
func New(ctx context.Context, cfg Config) (Generator, error) {
	cfg = cfg.withDefaults()

	var (
		gen Generator
		err error
	)
	switch cfg.Provider {
	case ProviderGemini:
		gen, err = newGeminiClient(ctx, cfg)
	case ProviderOllama:
		gen = newOllamaClient(cfg)
	case ProviderOpenAI:
		gen = newOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	if cfg.RequestsPerMinute > 0 {
		gen = RateLimited(gen, rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60), 1))
	}
	return gen, nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
