package recipe

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	"recipe-resolver/internal/core/ingredient"
	"recipe-resolver/internal/core/resolution"
	"recipe-resolver/internal/core/store"
	"recipe-resolver/internal/pkg/common"
	"go.uber.org/zap"
)

// Resolver drives resolution sessions.
type Resolver interface {
	Resolve(ctx context.Context, req resolution.ResolveRequest) (*resolution.Result, error)
	Resume(ctx context.Context, sessionID string, approved bool) (*resolution.Result, error)
}

// RecipeStore persists approved recipes.
type RecipeStore interface {
	SaveApproved(ctx context.Context, rec *store.Record) (int64, error)
	LogEvent(ctx context.Context, kind common.ErrorKind, message, requestID string)
}

// HotRefresher updates the in-process cache tier after an approval.
type HotRefresher interface {
	Refresh(key string, recipe *common.Recipe)
}

// Handler serves the recipe resolution endpoints.
type Handler struct {
	resolver  Resolver
	store     RecipeStore
	hot       HotRefresher
	embedder  resolution.Embedder
	validator *ingredient.Validator
}

// NewHandler creates the recipe handler. hot and embedder may be nil.
func NewHandler(resolver Resolver, st RecipeStore, hot HotRefresher, embedder resolution.Embedder, validator *ingredient.Validator) *Handler {
	return &Handler{
		resolver:  resolver,
		store:     st,
		hot:       hot,
		embedder:  embedder,
		validator: validator,
	}
}

// GenerateRequest is the POST /generate payload.
type GenerateRequest struct {
	Ingredients []string `json:"ingredients" binding:"required,min=3,max=20"`
	Difficulty  string   `json:"difficulty" binding:"required"`
	Lang        string   `json:"lang"`
}

// ModifyRequest is the POST /modify payload. The handler merges
// original_ingredients with new_ingredients into the working set; the
// modification note carries the free-form change the user wants.
type ModifyRequest struct {
	OriginalIngredients []string `json:"original_ingredients" binding:"required,min=3,max=20"`
	NewIngredients      []string `json:"new_ingredients" binding:"omitempty,max=20"`
	Difficulty          string   `json:"difficulty" binding:"required"`
	ModificationNote    string   `json:"modification_note" binding:"required"`
	Lang                string   `json:"lang"`
}

// ApprovalRequest is the POST /approval payload.
type ApprovalRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Approved  *bool  `json:"approved" binding:"required"`
	Lang      string `json:"lang"`
}

// FeedbackRequest is the POST /feedback payload.
type FeedbackRequest struct {
	Recipe      common.Recipe `json:"recipe" binding:"required"`
	Ingredients []string      `json:"ingredients" binding:"required,min=1,max=22"`
	Difficulty  string        `json:"difficulty" binding:"required"`
	Lang        string        `json:"lang"`
	Approved    *bool         `json:"approved" binding:"required"`
}

// Generate runs the full resolution pipeline for an ingredient set.
func (h *Handler) Generate(c *gin.Context) {
	var req GenerateRequest
	lang := common.ParseLanguage(c.Query("lang"))
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, lang, err)
		return
	}
	lang = common.ParseLanguage(req.Lang)

	result, err := h.resolver.Resolve(c.Request.Context(), resolution.ResolveRequest{
		Ingredients: req.Ingredients,
		Difficulty:  req.Difficulty,
		Lang:        req.Lang,
		RequestID:   requestid.Get(c),
	})
	if err != nil {
		h.resolveError(c, lang, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Modify regenerates a recipe with a modification note. Cached recipes
// cannot satisfy a modification, so the session enters at generation.
func (h *Handler) Modify(c *gin.Context) {
	var req ModifyRequest
	lang := common.ParseLanguage(c.Query("lang"))
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, lang, err)
		return
	}
	lang = common.ParseLanguage(req.Lang)

	merged := append([]string{}, req.OriginalIngredients...)
	merged = append(merged, req.NewIngredients...)

	result, err := h.resolver.Resolve(c.Request.Context(), resolution.ResolveRequest{
		Ingredients: merged,
		Difficulty:  req.Difficulty,
		Lang:        req.Lang,
		Note:        req.ModificationNote,
		RequestID:   requestid.Get(c),
	})
	if err != nil {
		h.resolveError(c, lang, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Approval resumes a suspended session with the user's decision on the
// proposed extra ingredients.
func (h *Handler) Approval(c *gin.Context) {
	var req ApprovalRequest
	lang := common.ParseLanguage(c.Query("lang"))
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, lang, err)
		return
	}
	lang = common.ParseLanguage(req.Lang)

	result, err := h.resolver.Resume(c.Request.Context(), req.SessionID, *req.Approved)
	if err != nil {
		if errors.Is(err, resolution.ErrSessionNotFound) {
			respondError(c, common.ErrSessionNotFound, common.Message(common.MsgSessionNotFound, lang), "")
			return
		}
		h.resolveError(c, lang, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Feedback records the user's verdict on a delivered recipe. Only
// approved recipes are persisted; a newer approval for the same
// ingredient set replaces the older one.
func (h *Handler) Feedback(c *gin.Context) {
	var req FeedbackRequest
	lang := common.ParseLanguage(c.Query("lang"))
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, lang, err)
		return
	}
	lang = common.ParseLanguage(req.Lang)

	if !*req.Approved {
		common.LogInfo("recipe feedback rejected, nothing persisted",
			zap.String("request_id", requestid.Get(c)),
			zap.String("lang", string(lang)),
		)
		c.JSON(http.StatusOK, gin.H{
			"status":  "rejected",
			"message": common.Message(common.MsgFeedbackRejected, lang),
		})
		return
	}

	in, err := h.validator.Validate(req.Ingredients, req.Difficulty, req.Lang)
	if err != nil {
		h.resolveError(c, lang, err)
		return
	}
	if err := req.Recipe.Validate(); err != nil {
		respondError(c, common.ErrUnprocessable, common.Message(common.MsgInvalidIngredient, lang), err.Error())
		return
	}

	key := store.CacheKey(in.Ingredients, in.Difficulty, in.Lang)
	rec := &store.Record{
		Recipe:     req.Recipe,
		Difficulty: in.Difficulty,
		Lang:       in.Lang,
		CacheKey:   key,
	}

	// The embedding is best-effort: a record without one simply never
	// answers semantic lookups.
	if h.embedder != nil {
		if vec, err := h.embedder.EmbedIngredients(c.Request.Context(), in.Ingredients); err != nil {
			h.store.LogEvent(c.Request.Context(), common.KindSearch, err.Error(), requestid.Get(c))
			common.LogWarn("feedback embedding failed, saving without vector", zap.Error(err))
		} else {
			rec.Embedding = vec
		}
	}

	if _, err := h.store.SaveApproved(c.Request.Context(), rec); err != nil {
		// Persistence failures degrade the cache, not the response the
		// user already approved.
		h.store.LogEvent(c.Request.Context(), common.KindPersistence, err.Error(), requestid.Get(c))
		common.LogError("failed to persist approved recipe",
			zap.Error(err),
			zap.String("cache_key", key),
		)
		c.JSON(http.StatusOK, gin.H{
			"status":  "accepted",
			"message": common.Message(common.MsgFeedbackSuccess, lang),
			"cached":  false,
		})
		return
	}

	if h.hot != nil {
		h.hot.Refresh(key, &req.Recipe)
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "accepted",
		"message": common.Message(common.MsgFeedbackSuccess, lang),
		"cached":  true,
	})
}

// respondError writes a predefined error with a localized message. The
// status and code come from the error; the message may override it.
func respondError(c *gin.Context, cerr *common.CustomError, message, details string) {
	if message == "" {
		message = cerr.Message
	}
	c.JSON(cerr.Status, common.ErrorResponse{
		Code:    cerr.Code,
		Message: message,
		Details: details,
	})
}

// bindError reports a body that bound but failed validation, such as an
// ingredient list outside the 3..20 bound.
func (h *Handler) bindError(c *gin.Context, lang common.Language, err error) {
	respondError(c, common.ErrUnprocessable, common.Message(common.MsgTooFewRaw, lang), err.Error())
}

// resolveError maps request-level resolution errors to HTTP statuses.
// Pipeline failures never reach here, the orchestrator reports them
// inside the result envelope.
func (h *Handler) resolveError(c *gin.Context, lang common.Language, err error) {
	var re *common.ResolutionError
	if errors.As(err, &re) && re.Kind == common.KindValidation {
		respondError(c, common.ErrUnprocessable, re.Message, "")
		return
	}
	common.LogError("resolution request failed",
		zap.Error(err),
		zap.String("request_id", requestid.Get(c)),
	)
	respondError(c, common.ErrInternalError, common.Message(common.MsgInternalError, lang), "")
}
