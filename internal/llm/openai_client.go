package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const systemPrompt = "You are a supportive assistant for a personal health-tracking app. You never diagnose."

// openAIClient talks to any OpenAI-compatible /chat/completions endpoint.
// Local servers may not need a key, so an empty one sends no auth header.
type openAIClient struct {
	http        *resty.Client
	model       string
	temperature float32
	maxTokens   int32
	logger      *zap.Logger
}

func newOpenAIClient(cfg Config) *openAIClient {
	client := newRestyClient(cfg, orDefault(cfg.Endpoint, defaultOpenAIEndpoint))
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return &openAIClient{
		http:        client,
		model:       orDefault(cfg.Model, defaultOpenAIModel),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxOutputTokens,
		logger:      cfg.Logger.Named("openai"),
	}
}

func (c *openAIClient) Name() string {
	return fmt.Sprintf("OpenAI (%s)", c.model)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int32         `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *openAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	var out chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model: c.model,
			Messages: []chatMessage{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: prompt},
			},
			Temperature: c.temperature,
			MaxTokens:   c.maxTokens,
		}).
		SetResult(&out).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	if resp.IsError() {
		c.logger.Warn("chat failed", zap.Int("status", resp.StatusCode()))
		return "", newHTTPError("openai", resp.StatusCode(), resp.String())
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
