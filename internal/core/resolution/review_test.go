package resolution

import (
	"context"
	"testing"

	"recipe-resolver/internal/core/ingredient"
	"recipe-resolver/internal/pkg/common"
)

type fakeLLM struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func newTestGate(llm ChatCompleter) *ReviewGate {
	return NewReviewGate(llm, ingredient.NewValidator(testPantry))
}

func TestReviewAcceptsCleanRecipe(t *testing.T) {
	gate := newTestGate(&fakeLLM{})

	result, err := gate.Review(context.Background(), ReviewRequest{
		Recipe: &common.Recipe{
			Name:        "Stir Fry",
			Ingredients: []string{"chicken breast", "broccoli florets", "salt", "oil"},
			Steps:       []string{"cut the chicken", "fry with broccoli"},
		},
		Ingredients: []string{"chicken", "broccoli"},
		Difficulty:  common.DifficultyEasy,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Verdict != VerdictValid {
		t.Fatalf("verdict = %s: %+v", result.Verdict, result)
	}
}

func TestReviewAcceptsApprovedExtras(t *testing.T) {
	gate := newTestGate(&fakeLLM{})

	result, err := gate.Review(context.Background(), ReviewRequest{
		Recipe: &common.Recipe{
			Name:        "Omelette",
			Ingredients: []string{"egg", "milk"},
			Steps:       []string{"whisk", "cook"},
		},
		Ingredients:    []string{"egg"},
		ApprovedExtras: []string{"milk"},
		Difficulty:     common.DifficultyEasy,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Verdict != VerdictValid {
		t.Fatalf("verdict = %s: %+v", result.Verdict, result)
	}
}

func TestReviewFlagsOffendersAsFixable(t *testing.T) {
	gate := newTestGate(&fakeLLM{})

	result, err := gate.Review(context.Background(), ReviewRequest{
		Recipe: &common.Recipe{
			Name:        "Pancakes",
			Ingredients: []string{"egg", "milk", "flour"},
			Steps:       []string{"mix", "fry"},
		},
		Ingredients:  []string{"egg"},
		ExtrasBudget: 2,
		Difficulty:   common.DifficultyEasy,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Verdict != VerdictFixable {
		t.Fatalf("verdict = %s: %+v", result.Verdict, result)
	}
	if len(result.SuggestedExtras) == 0 || len(result.SuggestedExtras) > 2 {
		t.Fatalf("suggested extras = %v", result.SuggestedExtras)
	}
	if len(result.Offenders) != 2 {
		t.Fatalf("offenders = %v", result.Offenders)
	}
}

func TestReviewSuggestionsRespectRemainingBudget(t *testing.T) {
	gate := newTestGate(&fakeLLM{})

	result, err := gate.Review(context.Background(), ReviewRequest{
		Recipe: &common.Recipe{
			Name:        "Pancakes",
			Ingredients: []string{"egg", "milk", "flour"},
			Steps:       []string{"mix", "fry"},
		},
		Ingredients:    []string{"egg"},
		ApprovedExtras: []string{"butter"},
		ExtrasBudget:   1,
		Difficulty:     common.DifficultyEasy,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Verdict != VerdictFixable {
		t.Fatalf("verdict = %s: %+v", result.Verdict, result)
	}
	if len(result.SuggestedExtras) != 1 {
		t.Fatalf("suggested extras = %v, want exactly one", result.SuggestedExtras)
	}
}

func TestReviewExhaustedBudgetIsUnfixable(t *testing.T) {
	llm := &fakeLLM{response: `{"extras": ["flour"]}`}
	gate := newTestGate(llm)

	result, err := gate.Review(context.Background(), ReviewRequest{
		Recipe: &common.Recipe{
			Name:        "Pancakes",
			Ingredients: []string{"egg", "flour"},
			Steps:       []string{"mix", "fry"},
		},
		Ingredients:  []string{"egg"},
		ExtrasBudget: 0,
		Difficulty:   common.DifficultyEasy,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Verdict != VerdictUnfixable {
		t.Fatalf("verdict = %s: %+v", result.Verdict, result)
	}
	if len(llm.prompts) != 0 {
		t.Fatalf("provider consulted with no budget left: %d calls", len(llm.prompts))
	}
}

func TestReviewNeverSuggestsRejectedCombo(t *testing.T) {
	// offenders are exhausted and the provider has nothing new
	llm := &fakeLLM{response: "NONE"}
	gate := newTestGate(llm)

	result, err := gate.Review(context.Background(), ReviewRequest{
		Recipe: &common.Recipe{
			Name:        "Omelette",
			Ingredients: []string{"egg", "milk"},
			Steps:       []string{"whisk", "cook"},
		},
		Ingredients:          []string{"egg"},
		ExtrasProposed:       []string{"milk"},
		ExtrasBudget:         2,
		RejectedCombinations: [][]string{{"milk"}},
		Difficulty:           common.DifficultyEasy,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Verdict != VerdictUnfixable {
		t.Fatalf("verdict = %s: %+v", result.Verdict, result)
	}
	if len(llm.prompts) != 1 {
		t.Fatalf("expected one suggestion call, got %d", len(llm.prompts))
	}
}

func TestReviewUsesProviderSuggestions(t *testing.T) {
	llm := &fakeLLM{response: `{"extras": ["yogurt"]}`}
	gate := newTestGate(llm)

	result, err := gate.Review(context.Background(), ReviewRequest{
		Recipe: &common.Recipe{
			Name:        "Omelette",
			Ingredients: []string{"egg", "milk"},
			Steps:       []string{"whisk", "cook"},
		},
		Ingredients:          []string{"egg"},
		ExtrasProposed:       []string{"milk"},
		ExtrasBudget:         2,
		RejectedCombinations: [][]string{{"milk"}},
		Difficulty:           common.DifficultyEasy,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Verdict != VerdictFixable {
		t.Fatalf("verdict = %s: %+v", result.Verdict, result)
	}
	if len(result.SuggestedExtras) != 1 || result.SuggestedExtras[0] != "yogurt" {
		t.Fatalf("suggested extras = %v", result.SuggestedExtras)
	}
}

func TestReviewStepBoundsTriggerRetry(t *testing.T) {
	gate := newTestGate(&fakeLLM{})

	steps := make([]string, 9)
	for i := range steps {
		steps[i] = "do something"
	}
	result, err := gate.Review(context.Background(), ReviewRequest{
		Recipe: &common.Recipe{
			Name:        "Overworked Toast",
			Ingredients: []string{"bread"},
			Steps:       steps,
		},
		Ingredients: []string{"bread"},
		Difficulty:  common.DifficultyEasy,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Verdict != VerdictRetry {
		t.Fatalf("verdict = %s: %+v", result.Verdict, result)
	}
}

func TestReviewIncompleteCandidateErrors(t *testing.T) {
	gate := newTestGate(&fakeLLM{})

	_, err := gate.Review(context.Background(), ReviewRequest{
		Recipe:      &common.Recipe{Name: "Nothing"},
		Ingredients: []string{"egg"},
		Difficulty:  common.DifficultyEasy,
	})
	if !common.IsKind(err, common.KindGeneration) {
		t.Fatalf("err = %v, want generation error", err)
	}
}

func TestMatchesAny(t *testing.T) {
	allowed := []string{"chicken", "soy sauce"}
	cases := []struct {
		candidate string
		want      bool
	}{
		{"chicken", true},
		{"chicken breast", true},
		{"sauce", true}, // shares a token with soy sauce
		{"milk", false},
		{"rice", false},
	}
	for _, tc := range cases {
		if got := matchesAny(tc.candidate, allowed); got != tc.want {
			t.Fatalf("matchesAny(%q) = %v, want %v", tc.candidate, got, tc.want)
		}
	}
}
