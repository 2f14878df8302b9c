package provider

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"recipe-resolver/internal/infrastructure/config"
	"recipe-resolver/internal/pkg/common"
	"go.uber.org/zap"
)

// SearchResult is one candidate document from the web search provider.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// TavilyClient queries the Tavily search API for candidate recipes.
type TavilyClient struct {
	config *config.Config
	client *resty.Client
}

// NewTavilyClient creates a Tavily search client from config.
func NewTavilyClient(cfg *config.Config) *TavilyClient {
	client := resty.New().
		SetBaseURL("https://api.tavily.com").
		SetTimeout(cfg.Search.Timeout)

	return &TavilyClient{
		config: cfg,
		client: client,
	}
}

// Search issues one search query and returns the raw results. Every
// provider-level failure returns an error; callers treat it as a miss.
func (c *TavilyClient) Search(ctx context.Context, query string) ([]SearchResult, error) {
	req := map[string]interface{}{
		"api_key":      c.config.Search.APIKey,
		"query":        query,
		"max_results":  c.config.Search.MaxResults,
		"search_depth": "advanced",
	}

	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&tavilyResponse{}).
		Post("/search")
	common.LogProviderCall("tavily", time.Since(start), err, "")

	if err != nil {
		return nil, common.NewResolutionError(common.KindSearch, "failed to reach Tavily", err)
	}
	if resp.StatusCode() != http.StatusOK {
		common.LogWarn("Tavily returned error status",
			zap.Int("status_code", resp.StatusCode()),
		)
		return nil, common.NewResolutionError(common.KindSearch, "Tavily API error", nil)
	}

	body, ok := resp.Result().(*tavilyResponse)
	if !ok || len(body.Results) == 0 {
		return nil, common.NewResolutionError(common.KindSearch, "empty search response", nil)
	}
	return body.Results, nil
}

type tavilyResponse struct {
	Results []SearchResult `json:"results"`
}
