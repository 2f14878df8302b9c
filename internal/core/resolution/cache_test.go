package resolution

import (
	"context"
	"path/filepath"
	"testing"

	"recipe-resolver/internal/core/store"
	"recipe-resolver/internal/pkg/common"
)

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) EmbedIngredients(ctx context.Context, ingredients []string) ([]float32, error) {
	return f.vec, f.err
}

func newCacheFixture(t *testing.T, embedder Embedder) (*CacheResolver, *store.Store) {
	t.Helper()
	st, err := store.NewStore(filepath.Join(t.TempDir(), "recipes.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	resolver, err := NewCacheResolver(st, embedder, 16, 0.85)
	if err != nil {
		t.Fatal(err)
	}
	return resolver, st
}

func saveApproved(t *testing.T, st *store.Store, name string, ingredients []string, vec []float32) {
	t.Helper()
	_, err := st.SaveApproved(context.Background(), &store.Record{
		Recipe: common.Recipe{
			Name:        name,
			Ingredients: ingredients,
			Steps:       []string{"cook"},
		},
		Difficulty: common.DifficultyEasy,
		Lang:       common.LangEN,
		CacheKey:   store.CacheKey(ingredients, common.DifficultyEasy, common.LangEN),
		Embedding:  vec,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestLookupExactHit(t *testing.T) {
	resolver, st := newCacheFixture(t, nil)
	saveApproved(t, st, "Stir Fry", []string{"chicken", "broccoli"}, nil)

	recipe, tier, err := resolver.Lookup(context.Background(),
		[]string{"Broccoli", "chicken"}, common.DifficultyEasy, common.LangEN)
	if err != nil {
		t.Fatal(err)
	}
	if recipe == nil || tier != TierExact {
		t.Fatalf("tier = %s, recipe = %+v", tier, recipe)
	}

	// second lookup is served from the hot tier
	_, tier, err = resolver.Lookup(context.Background(),
		[]string{"chicken", "broccoli"}, common.DifficultyEasy, common.LangEN)
	if err != nil {
		t.Fatal(err)
	}
	if tier != TierHot {
		t.Fatalf("tier = %s, want hot", tier)
	}
}

func TestLookupMissWithoutEmbedder(t *testing.T) {
	resolver, _ := newCacheFixture(t, nil)

	recipe, tier, err := resolver.Lookup(context.Background(),
		[]string{"chicken"}, common.DifficultyEasy, common.LangEN)
	if err != nil {
		t.Fatal(err)
	}
	if recipe != nil || tier != TierNone {
		t.Fatalf("tier = %s, recipe = %+v", tier, recipe)
	}
}

func TestLookupSemanticHit(t *testing.T) {
	resolver, st := newCacheFixture(t, &fakeEmbedder{vec: []float32{1, 0, 0}})
	saveApproved(t, st, "Stir Fry", []string{"chicken", "broccoli"}, []float32{1, 0.05, 0})

	recipe, tier, err := resolver.Lookup(context.Background(),
		[]string{"chicken thighs", "broccolini"}, common.DifficultyEasy, common.LangEN)
	if err != nil {
		t.Fatal(err)
	}
	if recipe == nil || tier != TierSemantic {
		t.Fatalf("tier = %s, recipe = %+v", tier, recipe)
	}
}

func TestLookupEmbeddingFailureDegradesToMiss(t *testing.T) {
	resolver, st := newCacheFixture(t,
		&fakeEmbedder{err: common.NewResolutionError(common.KindSearch, "quota", nil)})
	saveApproved(t, st, "Stir Fry", []string{"chicken", "broccoli"}, []float32{1, 0, 0})

	recipe, tier, err := resolver.Lookup(context.Background(),
		[]string{"chicken thighs"}, common.DifficultyEasy, common.LangEN)
	if err != nil {
		t.Fatal(err)
	}
	if recipe != nil || tier != TierNone {
		t.Fatalf("embedding failure should degrade to a miss, got tier %s", tier)
	}

	n, err := st.CountLogs(context.Background(), common.KindSearch)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("search error log count = %d, want 1", n)
	}
}

func TestRefreshUpdatesHotTier(t *testing.T) {
	resolver, _ := newCacheFixture(t, nil)
	key := store.CacheKey([]string{"egg"}, common.DifficultyEasy, common.LangEN)

	resolver.Refresh(key, &common.Recipe{Name: "Fried Egg", Ingredients: []string{"egg"}, Steps: []string{"fry"}})

	recipe, tier, err := resolver.Lookup(context.Background(),
		[]string{"egg"}, common.DifficultyEasy, common.LangEN)
	if err != nil {
		t.Fatal(err)
	}
	if recipe == nil || tier != TierHot {
		t.Fatalf("tier = %s, recipe = %+v", tier, recipe)
	}
}
