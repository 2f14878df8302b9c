package resolution

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"recipe-resolver/internal/core/store"
	"recipe-resolver/internal/pkg/common"
	"go.uber.org/zap"
)

// Tier names the cache tier that answered a lookup.
type Tier string

const (
	TierNone     Tier = ""
	TierHot      Tier = "hot"
	TierExact    Tier = "exact"
	TierSemantic Tier = "semantic"
)

// Embedder converts an ingredient set into a vector for similarity
// lookup. It is nil when semantic search is disabled.
type Embedder interface {
	EmbedIngredients(ctx context.Context, ingredients []string) ([]float32, error)
}

// CacheResolver answers resolution requests from previously approved
// recipes: an in-process hot tier, then an exact key lookup, then a
// vector-similarity lookup. All tiers are read-only from the
// resolution pipeline's point of view.
type CacheResolver struct {
	store    *store.Store
	embedder Embedder
	hot      *lru.Cache[string, *common.Recipe]
	cutoff   float64
}

// NewCacheResolver creates a cache resolver. embedder may be nil, in
// which case the semantic tier is skipped.
func NewCacheResolver(st *store.Store, embedder Embedder, hotSize int, cutoff float64) (*CacheResolver, error) {
	hot, err := lru.New[string, *common.Recipe](hotSize)
	if err != nil {
		return nil, err
	}
	return &CacheResolver{
		store:    st,
		embedder: embedder,
		hot:      hot,
		cutoff:   cutoff,
	}, nil
}

// Lookup resolves an ingredient set against the cache tiers. A miss is
// (nil, TierNone, nil); embedding or query failures degrade to a miss
// after being logged as search errors.
func (r *CacheResolver) Lookup(ctx context.Context, ingredients []string, difficulty common.Difficulty, lang common.Language) (*common.Recipe, Tier, error) {
	key := store.CacheKey(ingredients, difficulty, lang)

	if recipe, ok := r.hot.Get(key); ok {
		common.LogCacheHit(string(TierHot), key)
		return recipe, TierHot, nil
	}

	recipe, err := r.store.FindExact(ctx, key)
	if err != nil {
		r.store.LogEvent(ctx, common.KindSearch, "exact cache lookup failed: "+err.Error(), "")
		common.LogError("exact cache lookup failed", zap.Error(err), zap.String("cache_key", key))
	} else if recipe != nil {
		common.LogCacheHit(string(TierExact), key)
		r.hot.Add(key, recipe)
		return recipe, TierExact, nil
	}

	if r.embedder == nil {
		common.LogCacheMiss(string(TierExact), key)
		return nil, TierNone, nil
	}

	query, err := r.embedder.EmbedIngredients(ctx, ingredients)
	if err != nil {
		// Embedding failures never abort resolution, the pipeline
		// continues as a cache miss.
		r.store.LogEvent(ctx, common.KindSearch, "ingredient embedding failed: "+err.Error(), "")
		common.LogWarn("ingredient embedding failed, skipping semantic tier", zap.Error(err))
		return nil, TierNone, nil
	}

	recipe, score, err := r.store.FindSimilar(ctx, query, difficulty, lang, r.cutoff)
	if err != nil {
		r.store.LogEvent(ctx, common.KindSearch, "similarity lookup failed: "+err.Error(), "")
		common.LogWarn("similarity lookup failed, treating as miss", zap.Error(err))
		return nil, TierNone, nil
	}
	if recipe != nil {
		common.LogCacheHit(string(TierSemantic), key)
		common.LogDebug("semantic cache hit", zap.Float64("score", score))
		return recipe, TierSemantic, nil
	}

	common.LogCacheMiss(string(TierSemantic), key)
	return nil, TierNone, nil
}

// Refresh replaces the hot-tier entry for a key after a newer approval
// overwrote the persisted record.
func (r *CacheResolver) Refresh(key string, recipe *common.Recipe) {
	r.hot.Add(key, recipe)
}
