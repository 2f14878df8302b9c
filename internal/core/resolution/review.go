package resolution

import (
	"context"
	"fmt"
	"strings"

	"recipe-resolver/internal/core/ingredient"
	"recipe-resolver/internal/pkg/common"
	"go.uber.org/zap"
)

// Verdict is the outcome of reviewing one candidate recipe.
type Verdict string

const (
	// VerdictValid accepts the candidate as the final recipe.
	VerdictValid Verdict = "valid"
	// VerdictRetry asks for regeneration with the same working set.
	VerdictRetry Verdict = "retry"
	// VerdictFixable asks the user to approve extra ingredients.
	VerdictFixable Verdict = "fixable"
	// VerdictUnfixable terminates the session: no viable additions.
	VerdictUnfixable Verdict = "unfixable"
)

// ReviewRequest carries one candidate plus the session context the
// gate needs to judge it and to avoid re-proposing rejected extras.
type ReviewRequest struct {
	Recipe         *common.Recipe
	Ingredients    []string
	ApprovedExtras []string
	Difficulty     common.Difficulty
	Lang           common.Language
	Source         string
	ExtrasProposed []string
	// ExtrasBudget is how many more extras the session may still add.
	// Suggestions never exceed it, so a one-ingredient repair stays
	// possible after an earlier approval spent part of the budget.
	ExtrasBudget         int
	RejectedCombinations [][]string
}

// suggestionLimit caps proposals at the smaller of the per-turn cap and
// the session's remaining extra budget.
func (r ReviewRequest) suggestionLimit() int {
	if r.ExtrasBudget < maxSuggestedExtras {
		return r.ExtrasBudget
	}
	return maxSuggestedExtras
}

// ReviewResult reports the verdict with supporting detail.
type ReviewResult struct {
	Verdict Verdict
	// Offenders are candidate ingredients outside the allowed set.
	Offenders []string
	// SuggestedExtras are the additions offered for approval when the
	// verdict is fixable. Never repeats a rejected combination.
	SuggestedExtras []string
	Reason          string
}

// stepBounds is the acceptable step-count range per difficulty.
var stepBounds = map[common.Difficulty][2]int{
	common.DifficultyEasy:         {1, 7},
	common.DifficultyIntermediate: {3, 12},
	common.DifficultyHard:         {5, 30},
}

const maxSuggestedExtras = 2

// ReviewGate validates candidate recipes against the working set.
// Structural and ingredient checks are deterministic; the chat
// provider is consulted only to suggest repair ingredients.
type ReviewGate struct {
	llm       ChatCompleter
	validator *ingredient.Validator
}

// NewReviewGate creates a review gate.
func NewReviewGate(llm ChatCompleter, validator *ingredient.Validator) *ReviewGate {
	return &ReviewGate{llm: llm, validator: validator}
}

// Review judges one candidate. Candidates from every source pass
// through the same checks.
func (g *ReviewGate) Review(ctx context.Context, req ReviewRequest) (*ReviewResult, error) {
	if err := req.Recipe.Validate(); err != nil {
		return nil, common.NewResolutionError(common.KindGeneration, "candidate recipe is incomplete", err)
	}

	offenders := g.findOffenders(req)
	stepsOK := g.stepCountOK(req)

	if len(offenders) == 0 && stepsOK {
		common.LogInfo("candidate accepted",
			zap.String("name", req.Recipe.Name),
			zap.String("source", req.Source),
		)
		return &ReviewResult{Verdict: VerdictValid}, nil
	}

	if len(offenders) == 0 {
		// Step count off for the difficulty but ingredients are fine:
		// regeneration can fix this without extras.
		return &ReviewResult{
			Verdict: VerdictRetry,
			Reason:  fmt.Sprintf("step count outside %s range", req.Difficulty),
		}, nil
	}

	common.LogWarn("candidate uses ingredients outside the working set",
		zap.Strings("offenders", offenders),
		zap.String("source", req.Source),
	)

	extras := g.filterSuggestions(offenders, req)
	if len(extras) == 0 {
		extras = g.askForExtras(ctx, req, offenders)
	}
	if len(extras) == 0 {
		return &ReviewResult{
			Verdict:   VerdictUnfixable,
			Offenders: offenders,
			Reason:    "no viable ingredient additions remain",
		}, nil
	}

	return &ReviewResult{
		Verdict:         VerdictFixable,
		Offenders:       offenders,
		SuggestedExtras: extras,
		Reason:          "recipe depends on ingredients the user did not list",
	}, nil
}

// findOffenders returns candidate ingredients that are neither pantry
// staples nor traceable to the working set or approved extras.
func (g *ReviewGate) findOffenders(req ReviewRequest) []string {
	allowed := make([]string, 0, len(req.Ingredients)+len(req.ApprovedExtras))
	for _, ing := range req.Ingredients {
		allowed = append(allowed, ingredient.Normalize(ing))
	}
	for _, ing := range req.ApprovedExtras {
		allowed = append(allowed, ingredient.Normalize(ing))
	}

	var offenders []string
	seen := make(map[string]struct{})
	for _, ing := range g.validator.FilterPantry(req.Recipe.Ingredients) {
		norm := ingredient.Normalize(ing)
		if norm == "" {
			continue
		}
		if matchesAny(norm, allowed) {
			continue
		}
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}
		offenders = append(offenders, norm)
	}
	return offenders
}

// matchesAny reports whether a candidate ingredient is traceable to one
// of the allowed names. Quantities and preparation words make exact
// equality too strict, so containment and shared tokens also count.
func matchesAny(candidate string, allowed []string) bool {
	for _, a := range allowed {
		if candidate == a {
			return true
		}
		if len(a) >= 3 && strings.Contains(candidate, a) {
			return true
		}
		if len(candidate) >= 3 && strings.Contains(a, candidate) {
			return true
		}
		for _, tok := range strings.Fields(candidate) {
			if len(tok) >= 3 {
				for _, atok := range strings.Fields(a) {
					if tok == atok {
						return true
					}
				}
			}
		}
	}
	return false
}

func (g *ReviewGate) stepCountOK(req ReviewRequest) bool {
	bounds, ok := stepBounds[req.Difficulty]
	if !ok {
		return true
	}
	n := len(req.Recipe.Steps)
	return n >= bounds[0] && n <= bounds[1]
}

// filterSuggestions keeps offenders that are usable as approval
// proposals: valid ingredient names, not already proposed, and not
// forming a previously rejected combination.
func (g *ReviewGate) filterSuggestions(candidates []string, req ReviewRequest) []string {
	limit := req.suggestionLimit()
	if limit <= 0 {
		return nil
	}

	proposed := make(map[string]struct{}, len(req.ExtrasProposed))
	for _, p := range req.ExtrasProposed {
		proposed[ingredient.Normalize(p)] = struct{}{}
	}

	var extras []string
	for _, c := range candidates {
		norm := ingredient.Normalize(c)
		if norm == "" || len([]rune(norm)) > 50 {
			continue
		}
		if _, dup := proposed[norm]; dup {
			continue
		}
		if comboRejected([]string{norm}, req.RejectedCombinations) {
			continue
		}
		extras = append(extras, norm)
		if len(extras) == limit {
			break
		}
	}
	if len(extras) > 0 && comboRejected(extras, req.RejectedCombinations) {
		return nil
	}
	return extras
}

func comboRejected(combo []string, rejected [][]string) bool {
	key := canonicalCombo(combo)
	for _, r := range rejected {
		if canonicalCombo(r) == key {
			return true
		}
	}
	return false
}

// askForExtras consults the provider for alternative additions when the
// offenders themselves are exhausted. Best-effort: any failure means no
// suggestions.
func (g *ReviewGate) askForExtras(ctx context.Context, req ReviewRequest, offenders []string) []string {
	limit := req.suggestionLimit()
	if limit <= 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("A recipe for these ingredients failed review: ")
	b.WriteString(common.FormatIngredientList(req.Ingredients))
	b.WriteString(".\nIt depended on unavailable ingredients: ")
	b.WriteString(common.FormatIngredientList(offenders))
	b.WriteString(".\n")
	if len(req.RejectedCombinations) > 0 {
		b.WriteString("The user already rejected these additions: ")
		parts := make([]string, 0, len(req.RejectedCombinations))
		for _, combo := range req.RejectedCombinations {
			parts = append(parts, common.FormatIngredientList(combo))
		}
		b.WriteString(strings.Join(parts, "; "))
		b.WriteString(".\n")
	}
	fmt.Fprintf(&b, `Suggest at most %d common ingredients the user could add to make a coherent %s recipe possible.
If the listed ingredients cannot form any edible dish, reply with exactly NONE.
Otherwise respond with a single JSON object and nothing else: {"extras": ["..."]}`,
		limit, req.Difficulty)

	content, err := g.llm.Complete(ctx, b.String(), 0)
	if err != nil {
		common.LogWarn("extra-ingredient suggestion call failed", zap.Error(err))
		return nil
	}
	if strings.Contains(content, "NONE") {
		return nil
	}

	payload, err := common.ExtractJSONObject(content)
	if err != nil {
		return nil
	}
	var raw struct {
		Extras []string `json:"extras"`
	}
	if err := common.ParseJSON(payload, &raw); err != nil {
		return nil
	}
	return g.filterSuggestions(raw.Extras, req)
}
