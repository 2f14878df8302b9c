package ingredient

import (
	"testing"

	"recipe-resolver/internal/pkg/common"
)

var testPantry = []string{"water", "salt", "oil", "su", "tuz", "yağ"}

func TestValidateHappyPath(t *testing.T) {
	v := NewValidator(testPantry)

	in, err := v.Validate([]string{"Chicken", "  broccoli ", "soy sauce"}, "easy", "en")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"chicken", "broccoli", "soy sauce"}
	if len(in.Ingredients) != len(want) {
		t.Fatalf("working set = %v, want %v", in.Ingredients, want)
	}
	for i, ing := range want {
		if in.Ingredients[i] != ing {
			t.Fatalf("working set = %v, want %v", in.Ingredients, want)
		}
	}
	if in.Difficulty != common.DifficultyEasy {
		t.Fatalf("difficulty = %s", in.Difficulty)
	}
	if in.Lang != common.LangEN {
		t.Fatalf("lang = %s", in.Lang)
	}
	if len(in.Original) != 3 {
		t.Fatalf("original snapshot = %v", in.Original)
	}
}

func TestValidateTooFewRaw(t *testing.T) {
	v := NewValidator(testPantry)
	_, err := v.Validate([]string{"egg", "milk"}, "easy", "en")
	if !common.IsKind(err, common.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestValidatePantryOnlyRejected(t *testing.T) {
	v := NewValidator(testPantry)
	_, err := v.Validate([]string{"water", "salt", "oil"}, "easy", "en")
	if !common.IsKind(err, common.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestValidatePantryStrippedAndDeduped(t *testing.T) {
	v := NewValidator(testPantry)
	in, err := v.Validate([]string{"Egg", "egg", "water", "salt"}, "easy", "tr")
	if err != nil {
		t.Fatal(err)
	}
	if len(in.Ingredients) != 1 || in.Ingredients[0] != "egg" {
		t.Fatalf("working set = %v, want [egg]", in.Ingredients)
	}
	if in.Lang != common.LangTR {
		t.Fatalf("lang = %s", in.Lang)
	}
}

func TestValidateInvalidCharacters(t *testing.T) {
	v := NewValidator(testPantry)
	cases := [][]string{
		{"egg", "milk", "DROP TABLE;"},
		{"egg", "milk", "a{b}"},
	}
	for _, raw := range cases {
		if _, err := v.Validate(raw, "easy", "en"); !common.IsKind(err, common.KindValidation) {
			t.Fatalf("input %v: err = %v, want validation error", raw, err)
		}
	}
}

func TestValidateTurkishCharactersAllowed(t *testing.T) {
	v := NewValidator(testPantry)
	in, err := v.Validate([]string{"yumurta", "süt", "kıyma"}, "intermediate", "tr")
	if err != nil {
		t.Fatal(err)
	}
	if len(in.Ingredients) != 3 {
		t.Fatalf("working set = %v", in.Ingredients)
	}
}

func TestValidateBadDifficulty(t *testing.T) {
	v := NewValidator(testPantry)
	_, err := v.Validate([]string{"egg", "milk", "flour"}, "extreme", "en")
	if !common.IsKind(err, common.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestValidateTooLongIngredient(t *testing.T) {
	v := NewValidator(testPantry)
	long := make([]byte, 60)
	for i := range long {
		long[i] = 'a'
	}
	_, err := v.Validate([]string{"egg", "milk", string(long)}, "easy", "en")
	if !common.IsKind(err, common.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  Soy   SAUCE  "); got != "soy sauce" {
		t.Fatalf("Normalize = %q", got)
	}
}
