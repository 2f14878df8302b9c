package resolution

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"recipe-resolver/internal/core/ingredient"
	"recipe-resolver/internal/pkg/common"
)

// State identifies a stage of the resolution state machine.
type State string

const (
	StateValidating       State = "validating"
	StateCaching          State = "caching"
	StateSearching        State = "searching"
	StateGenerating       State = "generating"
	StateReviewing        State = "reviewing"
	StateAwaitingApproval State = "awaiting_approval"
	StatePersisting       State = "persisting"
	StateFailed           State = "failed"
)

// Terminal reports whether no transition leaves the state.
func (s State) Terminal() bool {
	return s == StatePersisting || s == StateFailed
}

// Session is the per-request resolution state. It is plain data so a
// suspended session can be serialized, stored and resumed from the
// exact point it stopped.
type Session struct {
	ID                   string            `json:"id"`
	State                State             `json:"state"`
	Ingredients          []string          `json:"ingredients"`
	OriginalIngredients  []string          `json:"original_ingredients"`
	Difficulty           common.Difficulty `json:"difficulty"`
	Lang                 common.Language   `json:"lang"`
	ExtrasProposed       []string          `json:"extra_ingredients_proposed"`
	PendingExtras        []string          `json:"pending_extras,omitempty"`
	ApprovedExtras       []string          `json:"approved_extras,omitempty"`
	ExtraCount           int               `json:"extra_count"`
	IterationCount       int               `json:"iteration_count"`
	RejectedCombinations [][]string        `json:"rejected_combinations,omitempty"`
	Candidate            *common.Recipe    `json:"candidate,omitempty"`
	CandidateSource      string            `json:"candidate_source,omitempty"`
	Recipe               *common.Recipe    `json:"recipe,omitempty"`
	ErrorKind            common.ErrorKind  `json:"error_kind,omitempty"`
	ErrorMessage         string            `json:"error_message,omitempty"`
	ModificationNote     string            `json:"modification_note,omitempty"`
	RequestID            string            `json:"request_id,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
}

// canonicalCombo folds an extra-ingredient combination into a
// comparable form: normalized, sorted, joined.
func canonicalCombo(combo []string) string {
	folded := make([]string, 0, len(combo))
	for _, c := range combo {
		folded = append(folded, ingredient.Normalize(c))
	}
	sort.Strings(folded)
	return strings.Join(folded, "|")
}

// ComboRejected reports whether the combination was rejected earlier in
// this session. The same combination is never offered twice.
func (s *Session) ComboRejected(combo []string) bool {
	key := canonicalCombo(combo)
	for _, rejected := range s.RejectedCombinations {
		if canonicalCombo(rejected) == key {
			return true
		}
	}
	return false
}

// AlreadyProposed reports whether a single extra was proposed earlier
// in this session.
func (s *Session) AlreadyProposed(extra string) bool {
	norm := ingredient.Normalize(extra)
	for _, p := range s.ExtrasProposed {
		if ingredient.Normalize(p) == norm {
			return true
		}
	}
	return false
}

// SessionStore persists suspended resolution sessions across the
// approval step.
type SessionStore interface {
	Save(ctx context.Context, sess *Session) error
	Load(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// ErrSessionNotFound is returned when a session is missing or expired.
var ErrSessionNotFound = fmt.Errorf("resolution session not found")

// MemorySessionStore keeps sessions in process memory with lazy TTL
// expiry. Used when no redis backend is configured, and in tests.
// Sessions are stored serialized so every Load hands out a private
// copy, same as the redis backend.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	ttl      time.Duration
}

type memoryEntry struct {
	data      string
	expiresAt time.Time
}

// NewMemorySessionStore creates an in-memory session store.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]memoryEntry),
		ttl:      ttl,
	}
}

func (m *MemorySessionStore) Save(ctx context.Context, sess *Session) error {
	data, err := common.ToJSON(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = memoryEntry{data: data, expiresAt: time.Now().Add(m.ttl)}
	return nil
}

func (m *MemorySessionStore) Load(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	entry, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, ErrSessionNotFound
	}
	var sess Session
	if err := common.ParseJSON(entry.data, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &sess, nil
}

func (m *MemorySessionStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// RedisSessionStore persists sessions in redis so a suspended session
// survives process restarts and can be resumed by any replica.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionStore connects to redis and verifies the connection.
func NewRedisSessionStore(addr string, ttl time.Duration) (*RedisSessionStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisSessionStore{client: client, ttl: ttl}, nil
}

func sessionKey(id string) string {
	return "resolution:session:" + id
}

func (r *RedisSessionStore) Save(ctx context.Context, sess *Session) error {
	data, err := common.ToJSON(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return r.client.Set(ctx, sessionKey(sess.ID), data, r.ttl).Err()
}

func (r *RedisSessionStore) Load(ctx context.Context, id string) (*Session, error) {
	data, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	var sess Session
	if err := common.ParseJSONBytes(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &sess, nil
}

func (r *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, sessionKey(id)).Err()
}
