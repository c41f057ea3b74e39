package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

type ollamaClient struct {
	http        *resty.Client
	model       string
	temperature float32
	maxTokens   int32
	logger      *zap.Logger
}

func newRestyClient(cfg Config, baseURL string) *resty.Client {
	var client *resty.Client
	if cfg.HTTPClient != nil {
		client = resty.NewWithClient(cfg.HTTPClient)
	} else {
		client = resty.New().SetTimeout(cfg.Timeout)
	}
	return client.
		SetBaseURL(baseURL).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
}

func newOllamaClient(cfg Config) *ollamaClient {
	return &ollamaClient{
		http:        newRestyClient(cfg, orDefault(cfg.Endpoint, defaultOllamaEndpoint)),
		model:       orDefault(cfg.Model, defaultOllamaModel),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxOutputTokens,
		logger:      cfg.Logger.Named("ollama"),
	}
}

func (c *ollamaClient) Name() string {
	return fmt.Sprintf("Ollama (%s)", c.model)
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float32 `json:"temperature"`
	NumPredict  int32   `json:"num_predict"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (c *ollamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	var out ollamaResponse
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(ollamaRequest{
			Model:   c.model,
			Prompt:  prompt,
			Options: ollamaOptions{Temperature: c.temperature, NumPredict: c.maxTokens},
		}).
		SetResult(&out).
		Post("/api/generate")
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	if resp.IsError() {
		c.logger.Warn("generate failed", zap.Int("status", resp.StatusCode()))
		return "", newHTTPError("ollama", resp.StatusCode(), resp.String())
	}
	text := strings.TrimSpace(out.Response)
	c.logger.Debug("generate finished",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("prompt_chars", len(prompt)),
		zap.Int("response_chars", len(text)),
	)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
