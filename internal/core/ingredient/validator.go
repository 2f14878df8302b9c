package ingredient

import (
	"regexp"
	"strings"

	"recipe-resolver/internal/pkg/common"
)

const maxIngredientLen = 50

// ingredientPattern permits letters, digits, whitespace, commas and
// dashes, plus Turkish extended characters.
var ingredientPattern = regexp.MustCompile(`^[a-zA-Z0-9\s,\-çÇğĞıİöÖşŞüÜ]+$`)

// Validator normalizes and filters raw ingredient input. It is a pure
// component: construction captures the configured pantry set and every
// call is side-effect free.
type Validator struct {
	pantry map[string]struct{}
}

// NewValidator creates a validator over the given default pantry list.
func NewValidator(pantry []string) *Validator {
	set := make(map[string]struct{}, len(pantry))
	for _, p := range pantry {
		set[Normalize(p)] = struct{}{}
	}
	return &Validator{pantry: set}
}

// Normalize folds an ingredient name for comparison: lower-cased,
// trimmed, inner whitespace collapsed.
func Normalize(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(raw))), " ")
}

// IsPantry reports whether name is a default pantry ingredient.
func (v *Validator) IsPantry(name string) bool {
	_, ok := v.pantry[Normalize(name)]
	return ok
}

// FilterPantry removes default pantry items, preserving order.
func (v *Validator) FilterPantry(ingredients []string) []string {
	out := make([]string, 0, len(ingredients))
	for _, ing := range ingredients {
		if !v.IsPantry(ing) {
			out = append(out, ing)
		}
	}
	return out
}

// Input is the validated output handed to the resolution pipeline.
type Input struct {
	// Ingredients is the normalized, deduplicated working set with
	// default pantry items stripped.
	Ingredients []string
	// Original is the immutable snapshot of the raw user input.
	Original []string
	// Difficulty is the parsed difficulty level.
	Difficulty common.Difficulty
	// Lang is the target output language.
	Lang common.Language
}

// Validate checks raw ingredient input against the character-safety
// rules, normalizes and deduplicates it, strips pantry items and parses
// the difficulty label. All failures carry KindValidation.
func (v *Validator) Validate(raw []string, difficulty, lang string) (*Input, error) {
	language := common.ParseLanguage(lang)

	if len(raw) < 3 {
		return nil, common.NewResolutionError(common.KindValidation,
			common.Message(common.MsgTooFewRaw, language), nil)
	}

	parsed, err := common.ParseDifficulty(difficulty)
	if err != nil {
		return nil, common.NewResolutionError(common.KindValidation,
			common.Message(common.MsgInvalidDifficulty, language), err)
	}

	seen := make(map[string]struct{}, len(raw))
	working := make([]string, 0, len(raw))
	original := make([]string, 0, len(raw))

	for _, ing := range raw {
		norm := Normalize(ing)
		if norm == "" || len([]rune(norm)) > maxIngredientLen || !ingredientPattern.MatchString(norm) {
			return nil, common.NewResolutionError(common.KindValidation,
				common.Message(common.MsgInvalidIngredient, language), nil)
		}
		original = append(original, ing)
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}
		if v.IsPantry(norm) {
			continue
		}
		working = append(working, norm)
	}

	if len(working) < 1 {
		return nil, common.NewResolutionError(common.KindValidation,
			common.Message(common.MsgMinIngredients, language), nil)
	}

	return &Input{
		Ingredients: working,
		Original:    original,
		Difficulty:  parsed,
		Lang:        language,
	}, nil
}
