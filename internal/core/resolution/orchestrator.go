package resolution

import (
	"context"
	"time"

	"github.com/google/uuid"

	"recipe-resolver/internal/core/ingredient"
	"recipe-resolver/internal/pkg/common"
	"go.uber.org/zap"
)

// Result statuses reported to the API layer.
const (
	StatusSuccess          = "success"
	StatusAwaitingApproval = "awaiting_approval"
	StatusError            = "error"
)

// Candidate sources recorded on the session.
const (
	SourceCache     = "cache"
	SourceWebSearch = "web_search"
	SourceGenerated = "generated"
)

// CacheLookup is the cache tier surface consumed by the orchestrator.
type CacheLookup interface {
	Lookup(ctx context.Context, ingredients []string, difficulty common.Difficulty, lang common.Language) (*common.Recipe, Tier, error)
}

// CandidateSearcher is the web-search surface.
type CandidateSearcher interface {
	Enabled() bool
	Search(ctx context.Context, req SearchRequest) (*common.Recipe, error)
}

// CandidateGenerator produces candidate recipes.
type CandidateGenerator interface {
	Generate(ctx context.Context, req GenerationRequest) (*common.Recipe, error)
}

// CandidateReviewer judges candidate recipes.
type CandidateReviewer interface {
	Review(ctx context.Context, req ReviewRequest) (*ReviewResult, error)
}

// EventLogger records pipeline events in the durable log.
type EventLogger interface {
	LogEvent(ctx context.Context, kind common.ErrorKind, message, requestID string)
}

// Result is the outcome of driving a session to a stopping point:
// terminal success, terminal failure, or suspension for approval.
type Result struct {
	Status         string           `json:"status"`
	SessionID      string           `json:"session_id,omitempty"`
	Recipe         *common.Recipe   `json:"recipe,omitempty"`
	Source         string           `json:"source,omitempty"`
	ExtrasAdded    []string         `json:"extra_ingredients_added,omitempty"`
	ProposedExtras []string         `json:"proposed_extras,omitempty"`
	// ExtrasTried lists every extra proposed during a failed session, so
	// the caller can see which additions were attempted before giving up.
	ExtrasTried []string         `json:"extra_ingredients_tried,omitempty"`
	Iterations  int              `json:"iterations"`
	ErrorKind   common.ErrorKind `json:"error_kind,omitempty"`
	Message     string           `json:"message,omitempty"`
}

// ResolveRequest is one resolution request as received from the API.
type ResolveRequest struct {
	Ingredients []string
	Difficulty  string
	Lang        string
	// Note is a free-form modification request. When set, the session
	// enters at the generation stage: cached recipes cannot satisfy a
	// modification.
	Note      string
	RequestID string
}

// Orchestrator drives resolution sessions through the state machine.
// It owns no provider logic itself; every stage is delegated to a
// component behind an interface.
type Orchestrator struct {
	validator *ingredient.Validator
	cache     CacheLookup
	search    CandidateSearcher
	generator CandidateGenerator
	gate      CandidateReviewer
	sessions  SessionStore
	events    EventLogger

	maxIterations int
	maxExtras     int
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Validator     *ingredient.Validator
	Cache         CacheLookup
	Search        CandidateSearcher
	Generator     CandidateGenerator
	Gate          CandidateReviewer
	Sessions      SessionStore
	Events        EventLogger
	MaxIterations int
	MaxExtras     int
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(deps Deps) *Orchestrator {
	return &Orchestrator{
		validator:     deps.Validator,
		cache:         deps.Cache,
		search:        deps.Search,
		generator:     deps.Generator,
		gate:          deps.Gate,
		sessions:      deps.Sessions,
		events:        deps.Events,
		maxIterations: deps.MaxIterations,
		maxExtras:     deps.MaxExtras,
	}
}

// Resolve validates the request and drives a fresh session until it
// suspends or terminates. Validation failures return an error carrying
// KindValidation; pipeline failures terminate the session and are
// reported inside the Result instead.
func (o *Orchestrator) Resolve(ctx context.Context, req ResolveRequest) (*Result, error) {
	in, err := o.validator.Validate(req.Ingredients, req.Difficulty, req.Lang)
	if err != nil {
		o.events.LogEvent(ctx, common.KindOf(err), err.Error(), req.RequestID)
		return nil, err
	}

	sess := &Session{
		ID:                  uuid.New().String(),
		State:               StateCaching,
		Ingredients:         in.Ingredients,
		OriginalIngredients: in.Original,
		Difficulty:          in.Difficulty,
		Lang:                in.Lang,
		IterationCount:      1,
		ModificationNote:    req.Note,
		RequestID:           req.RequestID,
		CreatedAt:           time.Now().UTC(),
	}
	if req.Note != "" {
		sess.State = StateGenerating
	}

	common.LogInfo("resolution started",
		zap.String("session_id", sess.ID),
		zap.Strings("ingredients", sess.Ingredients),
		zap.String("difficulty", string(sess.Difficulty)),
		zap.String("lang", string(sess.Lang)),
	)
	return o.run(ctx, sess)
}

// Resume applies the user's approval decision to a suspended session
// and drives it onward. Returns ErrSessionNotFound for unknown,
// expired or non-suspended sessions.
func (o *Orchestrator) Resume(ctx context.Context, sessionID string, approved bool) (*Result, error) {
	sess, err := o.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.State != StateAwaitingApproval {
		return nil, ErrSessionNotFound
	}

	pending := sess.PendingExtras
	sess.PendingExtras = nil
	sess.IterationCount++

	if approved {
		sess.Ingredients = append(sess.Ingredients, pending...)
		sess.ApprovedExtras = append(sess.ApprovedExtras, pending...)
		sess.ExtraCount += len(pending)
		common.LogInfo("extras approved",
			zap.String("session_id", sess.ID),
			zap.Strings("extras", pending),
		)
	} else {
		sess.RejectedCombinations = append(sess.RejectedCombinations, pending)
		common.LogInfo("extras rejected",
			zap.String("session_id", sess.ID),
			zap.Strings("extras", pending),
		)
		if sess.IterationCount >= o.maxIterations {
			return o.fail(ctx, sess, common.KindExhaustedRetries,
				common.Message(common.MsgRecipeNotFound, sess.Lang)), nil
		}
	}

	sess.State = StateGenerating
	return o.run(ctx, sess)
}

// run advances the session state machine until it reaches a stopping
// point. Each iteration of the loop handles exactly one state.
func (o *Orchestrator) run(ctx context.Context, sess *Session) (*Result, error) {
	for {
		switch sess.State {
		case StateCaching:
			recipe, tier, err := o.cache.Lookup(ctx, sess.Ingredients, sess.Difficulty, sess.Lang)
			if err == nil && recipe != nil {
				sess.Recipe = recipe
				sess.CandidateSource = SourceCache + ":" + string(tier)
				sess.State = StatePersisting
				continue
			}
			sess.State = StateSearching

		case StateSearching:
			if o.search == nil || !o.search.Enabled() {
				sess.State = StateGenerating
				continue
			}
			recipe, err := o.search.Search(ctx, SearchRequest{
				Ingredients: sess.Ingredients,
				Difficulty:  sess.Difficulty,
				Lang:        sess.Lang,
			})
			if err != nil {
				// Search is best-effort: log and fall through.
				o.events.LogEvent(ctx, common.KindOf(err), err.Error(), sess.RequestID)
				common.LogWarn("web search failed, falling through to generation",
					zap.String("session_id", sess.ID),
					zap.Error(err),
				)
			} else if recipe != nil {
				sess.Candidate = recipe
				sess.CandidateSource = SourceWebSearch
				sess.State = StateReviewing
				continue
			}
			sess.State = StateGenerating

		case StateGenerating:
			recipe, err := o.generator.Generate(ctx, GenerationRequest{
				Ingredients:          sess.Ingredients,
				Difficulty:           sess.Difficulty,
				Lang:                 sess.Lang,
				Note:                 sess.ModificationNote,
				RejectedCombinations: sess.RejectedCombinations,
			})
			if err != nil {
				o.events.LogEvent(ctx, common.KindOf(err), err.Error(), sess.RequestID)
				if sess.IterationCount < o.maxIterations {
					sess.IterationCount++
					common.LogWarn("generation failed, retrying",
						zap.String("session_id", sess.ID),
						zap.Int("iteration", sess.IterationCount),
						zap.Error(err),
					)
					continue
				}
				return o.fail(ctx, sess, common.KindOf(err),
					common.Message(common.MsgGenerationError, sess.Lang)), nil
			}
			sess.Candidate = recipe
			sess.CandidateSource = SourceGenerated
			sess.State = StateReviewing

		case StateReviewing:
			review, err := o.gate.Review(ctx, ReviewRequest{
				Recipe:               sess.Candidate,
				Ingredients:          sess.Ingredients,
				ApprovedExtras:       sess.ApprovedExtras,
				Difficulty:           sess.Difficulty,
				Lang:                 sess.Lang,
				Source:               sess.CandidateSource,
				ExtrasProposed:       sess.ExtrasProposed,
				ExtrasBudget:         o.maxExtras - sess.ExtraCount,
				RejectedCombinations: sess.RejectedCombinations,
			})
			if err != nil {
				o.events.LogEvent(ctx, common.KindOf(err), err.Error(), sess.RequestID)
				if sess.IterationCount < o.maxIterations {
					sess.IterationCount++
					sess.State = StateGenerating
					continue
				}
				return o.fail(ctx, sess, common.KindOf(err),
					common.Message(common.MsgGenerationError, sess.Lang)), nil
			}

			switch review.Verdict {
			case VerdictValid:
				sess.Recipe = sess.Candidate
				sess.State = StatePersisting

			case VerdictRetry:
				if sess.IterationCount >= o.maxIterations {
					return o.fail(ctx, sess, common.KindExhaustedRetries,
						common.Message(common.MsgRecipeNotFound, sess.Lang)), nil
				}
				sess.IterationCount++
				sess.State = StateGenerating

			case VerdictFixable:
				// The gate filters repeats against the session context it
				// was handed, but the session is the source of truth.
				extras := make([]string, 0, len(review.SuggestedExtras))
				for _, e := range review.SuggestedExtras {
					if !sess.AlreadyProposed(e) {
						extras = append(extras, e)
					}
				}
				if len(extras) == 0 ||
					sess.IterationCount >= o.maxIterations ||
					sess.ExtraCount+len(extras) > o.maxExtras {
					return o.fail(ctx, sess, common.KindExhaustedRetries,
						common.Message(common.MsgRecipeNotFound, sess.Lang)), nil
				}
				sess.PendingExtras = extras
				sess.ExtrasProposed = append(sess.ExtrasProposed, extras...)
				sess.State = StateAwaitingApproval
				if err := o.sessions.Save(ctx, sess); err != nil {
					o.events.LogEvent(ctx, common.KindPersistence, err.Error(), sess.RequestID)
					return o.fail(ctx, sess, common.KindPersistence,
						common.Message(common.MsgInternalError, sess.Lang)), nil
				}
				common.LogInfo("session suspended for approval",
					zap.String("session_id", sess.ID),
					zap.Strings("proposed_extras", extras),
				)
				return &Result{
					Status:         StatusAwaitingApproval,
					SessionID:      sess.ID,
					ProposedExtras: extras,
					Iterations:     sess.IterationCount,
					Message:        common.Message(common.MsgAwaitingApproval, sess.Lang),
				}, nil

			default: // VerdictUnfixable
				kind := common.KindGeneration
				if len(review.Offenders) > 0 {
					kind = common.KindHallucination
				}
				return o.fail(ctx, sess, kind,
					common.Message(common.MsgRecipeNotFound, sess.Lang)), nil
			}

		case StatePersisting:
			_ = o.sessions.Delete(ctx, sess.ID)
			common.LogInfo("resolution succeeded",
				zap.String("session_id", sess.ID),
				zap.String("source", sess.CandidateSource),
				zap.Int("iterations", sess.IterationCount),
			)
			return &Result{
				Status:      StatusSuccess,
				SessionID:   sess.ID,
				Recipe:      sess.Recipe,
				Source:      sess.CandidateSource,
				ExtrasAdded: sess.ApprovedExtras,
				Iterations:  sess.IterationCount,
				Message:     common.Message(common.MsgRecipeValidated, sess.Lang),
			}, nil

		default:
			// Unknown state means a corrupted session.
			return o.fail(ctx, sess, common.KindGeneration,
				common.Message(common.MsgInternalError, sess.Lang)), nil
		}
	}
}

// fail terminates the session, records the failure and builds the
// error result. Pipeline failures are part of the protocol, so they
// come back as results rather than errors.
func (o *Orchestrator) fail(ctx context.Context, sess *Session, kind common.ErrorKind, message string) *Result {
	sess.State = StateFailed
	sess.ErrorKind = kind
	sess.ErrorMessage = message
	o.events.LogEvent(ctx, kind, message, sess.RequestID)
	_ = o.sessions.Delete(ctx, sess.ID)
	common.LogWarn("resolution failed",
		zap.String("session_id", sess.ID),
		zap.String("error_kind", string(kind)),
		zap.Int("iterations", sess.IterationCount),
	)
	return &Result{
		Status:      StatusError,
		SessionID:   sess.ID,
		ExtrasTried: sess.ExtrasProposed,
		Iterations:  sess.IterationCount,
		ErrorKind:   kind,
		Message:     message,
	}
}
