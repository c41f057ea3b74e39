package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type geminiClient struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
	logger *zap.Logger
}

func newGeminiClient(ctx context.Context, cfg Config) (*geminiClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.Endpoint != "" {
		cc.HTTPOptions.BaseURL = cfg.Endpoint
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &geminiClient{
		client: client,
		model:  orDefault(cfg.Model, defaultGeminiModel),
		config: &genai.GenerateContentConfig{
			Temperature:     genai.Ptr(cfg.Temperature),
			MaxOutputTokens: cfg.MaxOutputTokens,
		},
		logger: cfg.Logger.Named("gemini"),
	}, nil
}

func (c *geminiClient) Name() string {
	return fmt.Sprintf("Gemini (%s)", c.model)
}

func (c *geminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), c.config)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			c.logger.Warn("generate failed", zap.Int("status", apiErr.Code), zap.String("message", apiErr.Message))
			return "", newHTTPError("gemini", apiErr.Code, apiErr.Message)
		}
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
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
