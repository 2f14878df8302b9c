package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"recipe-resolver/internal/core/ingredient"
	"recipe-resolver/internal/pkg/common"
	"go.uber.org/zap"
)

// Record is the persisted form of an approved recipe plus its
// resolution key and embedding.
type Record struct {
	ID         int64
	Recipe     common.Recipe
	Difficulty common.Difficulty
	Lang       common.Language
	CacheKey   string
	Embedding  []float32
	CreatedAt  time.Time
}

// Store persists approved recipes and structured logs in sqlite.
// sqlite serializes writes; readers run concurrently under WAL.
type Store struct {
	db *sql.DB
}

// NewStore opens (and initializes) the recipe store at dsn.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	if _, err := s.db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return err
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS recipes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			ingredients TEXT NOT NULL,
			steps TEXT NOT NULL,
			metadata TEXT,
			difficulty TEXT NOT NULL,
			lang TEXT NOT NULL DEFAULT 'en',
			cache_key TEXT NOT NULL UNIQUE,
			embedding BLOB,
			created_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_recipes_difficulty_lang ON recipes(difficulty, lang);`,
		`CREATE TABLE IF NOT EXISTS logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
			error_kind TEXT,
			message TEXT,
			request_id TEXT
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// CacheKey canonicalizes an ingredient set plus difficulty and language
// into the exact-match lookup key.
func CacheKey(ingredients []string, difficulty common.Difficulty, lang common.Language) string {
	folded := make([]string, 0, len(ingredients))
	for _, ing := range ingredients {
		folded = append(folded, ingredient.Normalize(ing))
	}
	sort.Strings(folded)
	return strings.Join(folded, "|") + "::" + string(difficulty) + "::" + string(lang)
}

// SaveApproved persists an approved recipe record. A newer approval for
// the same cache key replaces the previous one (last-approved wins).
func (s *Store) SaveApproved(ctx context.Context, rec *Record) (int64, error) {
	ingredients, err := json.Marshal(rec.Recipe.Ingredients)
	if err != nil {
		return 0, err
	}
	steps, err := json.Marshal(rec.Recipe.Steps)
	if err != nil {
		return 0, err
	}
	metadata, err := json.Marshal(rec.Recipe.Metadata)
	if err != nil {
		return 0, err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	var embedding []byte
	if len(rec.Embedding) > 0 {
		embedding = EncodeVector(rec.Embedding)
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO recipes(name,ingredients,steps,metadata,difficulty,lang,cache_key,embedding,created_at)
		VALUES(?,?,?,?,?,?,?,?,?)
		ON CONFLICT(cache_key) DO UPDATE SET
			name=excluded.name, ingredients=excluded.ingredients, steps=excluded.steps,
			metadata=excluded.metadata, embedding=excluded.embedding, created_at=excluded.created_at`,
		rec.Recipe.Name, string(ingredients), string(steps), string(metadata),
		string(rec.Difficulty), string(rec.Lang), rec.CacheKey, embedding, rec.CreatedAt)
	if err != nil {
		return 0, common.NewResolutionError(common.KindPersistence, "failed to save recipe", err)
	}
	id, _ := res.LastInsertId()
	common.LogInfo("recipe persisted",
		zap.String("name", rec.Recipe.Name),
		zap.String("cache_key", rec.CacheKey),
	)
	return id, nil
}

// FindExact performs a point query on the canonical cache key.
// Returns (nil, nil) on miss.
func (s *Store) FindExact(ctx context.Context, key string) (*common.Recipe, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT name, ingredients, steps, metadata FROM recipes WHERE cache_key=?`, key)
	recipe, err := scanRecipe(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return recipe, err
}

// FindSimilar returns the best recipe whose embedding has cosine
// similarity >= cutoff against the query vector, restricted to the
// given difficulty and language. Returns (nil, 0, nil) on miss.
func (s *Store) FindSimilar(ctx context.Context, query []float32, difficulty common.Difficulty, lang common.Language, cutoff float64) (*common.Recipe, float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, ingredients, steps, metadata, embedding FROM recipes
		 WHERE difficulty=? AND lang=? AND embedding IS NOT NULL`,
		string(difficulty), string(lang))
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var best *common.Recipe
	bestScore := cutoff
	for rows.Next() {
		var name, ingredientsJSON, stepsJSON string
		var metadataJSON sql.NullString
		var blob []byte
		if err := rows.Scan(&name, &ingredientsJSON, &stepsJSON, &metadataJSON, &blob); err != nil {
			return nil, 0, err
		}
		vec, err := DecodeVector(blob)
		if err != nil {
			continue
		}
		score := Cosine(query, vec)
		if score >= bestScore {
			recipe, err := unmarshalRecipe(name, ingredientsJSON, stepsJSON, metadataJSON.String)
			if err != nil {
				continue
			}
			best = recipe
			bestScore = score
		}
	}
	if best == nil {
		return nil, 0, rows.Err()
	}
	return best, bestScore, rows.Err()
}

// LogEvent appends a structured log record. Failures are reported to
// the application log only, never to the caller.
func (s *Store) LogEvent(ctx context.Context, kind common.ErrorKind, message, requestID string) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO logs (error_kind, message, request_id) VALUES (?,?,?)`,
		string(kind), message, requestID)
	if err != nil {
		common.LogError("failed to write log record",
			zap.Error(err),
			zap.String("error_kind", string(kind)),
			zap.String("request_id", requestID),
		)
	}
}

// CountLogs returns the number of log records for an error kind.
func (s *Store) CountLogs(ctx context.Context, kind common.ErrorKind) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM logs WHERE error_kind=?`, string(kind)).Scan(&n)
	return n, err
}

// Ping verifies the store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return errors.New("store is nil")
	}
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecipe(row rowScanner) (*common.Recipe, error) {
	var name, ingredientsJSON, stepsJSON string
	var metadataJSON sql.NullString
	if err := row.Scan(&name, &ingredientsJSON, &stepsJSON, &metadataJSON); err != nil {
		return nil, err
	}
	return unmarshalRecipe(name, ingredientsJSON, stepsJSON, metadataJSON.String)
}

func unmarshalRecipe(name, ingredientsJSON, stepsJSON, metadataJSON string) (*common.Recipe, error) {
	recipe := &common.Recipe{Name: name}
	if err := json.Unmarshal([]byte(ingredientsJSON), &recipe.Ingredients); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(stepsJSON), &recipe.Steps); err != nil {
		return nil, err
	}
	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &recipe.Metadata); err != nil {
			return nil, err
		}
	}
	return recipe, nil
}
