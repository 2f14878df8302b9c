package resolution

import (
	"context"
	"fmt"
	"strings"

	"recipe-resolver/internal/core/provider"
	"recipe-resolver/internal/pkg/common"
	"go.uber.org/zap"
)

// noRecipeSentinel is what the extraction prompt returns when the
// search results contain no usable recipe.
const noRecipeSentinel = "NO_RECIPE"

// SearchClient is the raw web search surface behind the adapter.
type SearchClient interface {
	Search(ctx context.Context, query string) ([]provider.SearchResult, error)
}

// SearchRequest carries the working set for one web-search attempt.
type SearchRequest struct {
	Ingredients []string
	Difficulty  common.Difficulty
	Lang        common.Language
}

// WebSearchAdapter looks for an existing recipe on the web and extracts
// it into the structured recipe shape through the chat provider. Every
// failure mode is reported as a search error; the pipeline treats the
// adapter as best-effort and falls through to generation.
type WebSearchAdapter struct {
	search SearchClient
	llm    ChatCompleter
	pantry []string
}

// NewWebSearchAdapter creates a web-search adapter. search may be nil
// when no search provider is configured.
func NewWebSearchAdapter(search SearchClient, llm ChatCompleter, pantry []string) *WebSearchAdapter {
	return &WebSearchAdapter{search: search, llm: llm, pantry: pantry}
}

// Enabled reports whether a search provider is configured.
func (a *WebSearchAdapter) Enabled() bool {
	return a != nil && a.search != nil
}

// Search queries the web for a recipe restricted to the working set and
// extracts it. A clean "nothing found" is (nil, nil); provider and
// extraction failures return a search error.
func (a *WebSearchAdapter) Search(ctx context.Context, req SearchRequest) (*common.Recipe, error) {
	query := fmt.Sprintf("%s recipe using only %s",
		req.Difficulty, common.FormatIngredientList(req.Ingredients))
	if req.Lang == common.LangTR {
		query = fmt.Sprintf("sadece %s kullanan %s tarif",
			common.FormatIngredientList(req.Ingredients), req.Difficulty)
	}

	results, err := a.search.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	content, err := a.llm.Complete(ctx, a.extractionPrompt(req, results), 0)
	if err != nil {
		return nil, common.NewResolutionError(common.KindSearch, "recipe extraction failed", err)
	}
	if strings.Contains(content, noRecipeSentinel) {
		common.LogInfo("web search found no usable recipe",
			zap.Int("results", len(results)),
		)
		return nil, nil
	}

	recipe, err := parseRecipeJSON(content)
	if err != nil {
		return nil, common.NewResolutionError(common.KindSearch, "failed to parse extracted recipe", err)
	}
	if err := recipe.Validate(); err != nil {
		return nil, common.NewResolutionError(common.KindSearch, "extracted recipe is incomplete", err)
	}

	common.LogInfo("web search produced a candidate",
		zap.String("name", recipe.Name),
	)
	return recipe, nil
}

func (a *WebSearchAdapter) extractionPrompt(req SearchRequest, results []provider.SearchResult) string {
	var b strings.Builder
	b.WriteString("Below are web search results. Extract ONE complete recipe that uses only these ingredients: ")
	b.WriteString(common.FormatIngredientList(req.Ingredients))
	if len(a.pantry) > 0 {
		b.WriteString(" (pantry staples like ")
		b.WriteString(common.FormatIngredientList(a.pantry))
		b.WriteString(" are also allowed)")
	}
	b.WriteString(".\n")
	fmt.Fprintf(&b, "The recipe must match difficulty %q and be written in %s.\n",
		req.Difficulty, languageName[req.Lang])
	fmt.Fprintf(&b, "If no result contains such a recipe, reply with exactly %s.\n", noRecipeSentinel)
	b.WriteString(`Otherwise respond with a single JSON object and nothing else:
{"name": "...", "ingredients": ["..."], "steps": ["..."], "metadata": {"source": "<url>"}}

Search results:
`)
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] %s (%s)\n%s\n\n", i+1, r.Title, r.URL, r.Content)
	}
	return b.String()
}
