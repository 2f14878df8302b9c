package resolution

import (
	"context"
	"fmt"
	"strings"

	"recipe-resolver/internal/pkg/common"
	"go.uber.org/zap"
)

// ChatCompleter is the single-turn LLM surface used by the generator,
// the review gate and the web-search extraction step.
type ChatCompleter interface {
	Complete(ctx context.Context, prompt string, temperature float64) (string, error)
}

// GenerationRequest carries everything the generator needs to produce
// one candidate recipe.
type GenerationRequest struct {
	Ingredients          []string
	Difficulty           common.Difficulty
	Lang                 common.Language
	Note                 string
	RejectedCombinations [][]string
}

// Generator produces candidate recipes from the working ingredient set
// through the chat provider.
type Generator struct {
	llm         ChatCompleter
	pantry      []string
	temperature float64
}

// NewGenerator creates a recipe generator.
func NewGenerator(llm ChatCompleter, pantry []string, temperature float64) *Generator {
	return &Generator{llm: llm, pantry: pantry, temperature: temperature}
}

var difficultyGuidance = map[common.Difficulty]string{
	common.DifficultyEasy:         "Keep it simple: few steps, basic techniques, minimal equipment.",
	common.DifficultyIntermediate: "Moderate complexity: several steps, some technique, common equipment.",
	common.DifficultyHard:         "Advanced: multi-stage preparation, precise technique and timing.",
}

var languageName = map[common.Language]string{
	common.LangEN: "English",
	common.LangTR: "Turkish",
}

// Generate asks the provider for one candidate recipe and parses it.
// Malformed or structurally invalid output returns a generation error;
// callers retry within the iteration budget.
func (g *Generator) Generate(ctx context.Context, req GenerationRequest) (*common.Recipe, error) {
	prompt := g.buildPrompt(req)

	content, err := g.llm.Complete(ctx, prompt, g.temperature)
	if err != nil {
		return nil, err
	}

	recipe, err := parseRecipeJSON(content)
	if err != nil {
		common.LogWarn("generator returned unparseable output", zap.Error(err))
		return nil, common.NewResolutionError(common.KindGeneration, "failed to parse generated recipe", err)
	}
	if err := recipe.Validate(); err != nil {
		common.LogWarn("generator returned structurally invalid recipe", zap.Error(err))
		return nil, common.NewResolutionError(common.KindGeneration, "generated recipe is incomplete", err)
	}

	common.LogInfo("recipe generated",
		zap.String("name", recipe.Name),
		zap.Int("steps", len(recipe.Steps)),
	)
	return recipe, nil
}

func (g *Generator) buildPrompt(req GenerationRequest) string {
	var b strings.Builder
	b.WriteString("You are a professional chef. Create one recipe using ONLY these ingredients: ")
	b.WriteString(common.FormatIngredientList(req.Ingredients))
	b.WriteString(".\n")
	if len(g.pantry) > 0 {
		b.WriteString("You may additionally assume these pantry staples are available: ")
		b.WriteString(common.FormatIngredientList(g.pantry))
		b.WriteString(".\n")
	}
	b.WriteString("Do not introduce any other ingredient.\n")
	fmt.Fprintf(&b, "Difficulty: %s. %s\n", req.Difficulty, difficultyGuidance[req.Difficulty])
	fmt.Fprintf(&b, "Write the recipe in %s.\n", languageName[req.Lang])
	if req.Note != "" {
		fmt.Fprintf(&b, "Modification request from the user: %s\n", req.Note)
	}
	if len(req.RejectedCombinations) > 0 {
		b.WriteString("The user already rejected recipes relying on these additions, do not depend on them: ")
		parts := make([]string, 0, len(req.RejectedCombinations))
		for _, combo := range req.RejectedCombinations {
			parts = append(parts, common.FormatIngredientList(combo))
		}
		b.WriteString(strings.Join(parts, "; "))
		b.WriteString(".\n")
	}
	b.WriteString(`Respond with a single JSON object and nothing else:
{"name": "...", "ingredients": ["..."], "steps": ["..."], "metadata": {"prep_time": "...", "servings": "..."}}`)
	return b.String()
}

// parseRecipeJSON extracts the recipe object from a completion, which
// may be wrapped in code fences or surrounding prose.
func parseRecipeJSON(content string) (*common.Recipe, error) {
	payload, err := common.ExtractJSONObject(content)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Name        string                 `json:"name"`
		Ingredients []string               `json:"ingredients"`
		Steps       []string               `json:"steps"`
		Metadata    map[string]interface{} `json:"metadata"`
	}
	if err := common.ParseJSON(payload, &raw); err != nil {
		return nil, err
	}

	recipe := &common.Recipe{
		Name:        strings.TrimSpace(raw.Name),
		Ingredients: raw.Ingredients,
		Steps:       raw.Steps,
	}
	if len(raw.Metadata) > 0 {
		recipe.Metadata = make(map[string]string, len(raw.Metadata))
		for k, v := range raw.Metadata {
			recipe.Metadata[k] = fmt.Sprint(v)
		}
	}
	return recipe, nil
}
