package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"recipe-resolver/internal/infrastructure/config"
	"recipe-resolver/internal/pkg/common"
	"go.uber.org/zap"
)

// OpenRouterClient calls the OpenRouter chat completions API. It is the
// single generation provider shared by the recipe generator, the review
// gate's suggestion step and the web-search extraction step.
type OpenRouterClient struct {
	config *config.Config
	client *resty.Client
}

// NewOpenRouterClient creates an OpenRouter chat client from config.
func NewOpenRouterClient(cfg *config.Config) *OpenRouterClient {
	client := resty.New().
		SetBaseURL("https://openrouter.ai/api/v1").
		SetTimeout(cfg.OpenRouter.Timeout).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.OpenRouter.APIKey)).
		SetHeader("HTTP-Referer", "https://recipe-resolver.dev").
		SetHeader("X-Title", "Recipe Resolver")

	return &OpenRouterClient{
		config: cfg,
		client: client,
	}
}

// Complete sends a single-turn prompt and returns the raw completion
// text. Temperature 0 is used for review calls, 0.7 for generation.
func (s *OpenRouterClient) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	req := map[string]interface{}{
		"model": s.config.OpenRouter.Model,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": prompt,
			},
		},
		"max_tokens":  s.config.OpenRouter.MaxTokens,
		"temperature": temperature,
	}

	start := time.Now()
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		Post("/chat/completions")
	common.LogProviderCall("openrouter", time.Since(start), err, "")

	if err != nil {
		return "", common.NewResolutionError(common.KindGeneration, "failed to reach OpenRouter", err)
	}

	if resp.StatusCode() != http.StatusOK {
		common.LogError("OpenRouter returned error status",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("model", s.config.OpenRouter.Model),
		)
		return "", common.NewResolutionError(common.KindGeneration,
			fmt.Sprintf("OpenRouter API error (status %d)", resp.StatusCode()), nil)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", common.NewResolutionError(common.KindGeneration, "failed to parse OpenRouter response", err)
	}

	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", common.NewResolutionError(common.KindGeneration, "empty OpenRouter response", nil)
	}

	return result.Choices[0].Message.Content, nil
}
