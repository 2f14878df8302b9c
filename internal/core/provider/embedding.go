package provider

import (
	"context"
	"fmt"
	"time"

	genai "google.golang.org/genai"

	"recipe-resolver/internal/infrastructure/config"
	"recipe-resolver/internal/pkg/common"
	"go.uber.org/zap"
)

// EmbeddingClient wraps the Gemini embedding API. Ingredient sets are
// embedded as a single "Ingredients: a, b, c" text.
type EmbeddingClient struct {
	cli     *genai.Client
	model   string
	timeout time.Duration
}

// NewEmbeddingClient creates a Gemini embedding client from config.
func NewEmbeddingClient(ctx context.Context, cfg *config.Config) (*EmbeddingClient, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.Embedding.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}
	return &EmbeddingClient{
		cli:     cli,
		model:   cfg.Embedding.Model,
		timeout: cfg.Embedding.Timeout,
	}, nil
}

// EmbedIngredients returns the embedding vector for an ingredient set.
func (c *EmbeddingClient) EmbedIngredients(ctx context.Context, ingredients []string) ([]float32, error) {
	text := "Ingredients: " + common.FormatIngredientList(ingredients)
	return c.Embed(ctx, text)
}

// Embed returns the embedding vector for arbitrary text.
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.cli.Models.EmbedContent(ctx, c.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}},
		nil,
	)
	common.LogProviderCall("embedding", time.Since(start), err, "")
	if err != nil {
		return nil, common.NewResolutionError(common.KindSearch, "embedding request failed", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		common.LogWarn("embedding response was empty", zap.String("model", c.model))
		return nil, common.NewResolutionError(common.KindSearch, "empty embedding response", nil)
	}
	return resp.Embeddings[0].Values, nil
}
