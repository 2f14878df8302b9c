package common

import (
	"fmt"
	"strings"
)

// Difficulty is one of the three recognized recipe difficulty levels.
type Difficulty string

const (
	DifficultyEasy         Difficulty = "easy"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyHard         Difficulty = "hard"
)

// ParseDifficulty validates a raw difficulty label.
func ParseDifficulty(raw string) (Difficulty, error) {
	switch Difficulty(strings.ToLower(strings.TrimSpace(raw))) {
	case DifficultyEasy:
		return DifficultyEasy, nil
	case DifficultyIntermediate:
		return DifficultyIntermediate, nil
	case DifficultyHard:
		return DifficultyHard, nil
	}
	return "", fmt.Errorf("unknown difficulty %q", raw)
}

// Language is a supported output language.
type Language string

const (
	LangEN Language = "en"
	LangTR Language = "tr"
)

// ParseLanguage validates a language code, defaulting to English.
func ParseLanguage(raw string) Language {
	if Language(strings.ToLower(strings.TrimSpace(raw))) == LangTR {
		return LangTR
	}
	return LangEN
}

// Recipe is the structured recipe entity exchanged across the pipeline
// and persisted on approval.
type Recipe struct {
	Name        string            `json:"name"`
	Ingredients []string          `json:"ingredients"`
	Steps       []string          `json:"steps"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Validate checks the minimal recipe shape: non-empty name, at least
// one ingredient and one step.
func (r *Recipe) Validate() error {
	if r == nil {
		return fmt.Errorf("recipe is nil")
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("recipe name is empty")
	}
	if len(r.Ingredients) == 0 {
		return fmt.Errorf("recipe has no ingredients")
	}
	if len(r.Steps) == 0 {
		return fmt.Errorf("recipe has no steps")
	}
	return nil
}

// FormatIngredientList joins ingredients for prompts and search queries.
func FormatIngredientList(ingredients []string) string {
	return strings.Join(ingredients, ", ")
}
