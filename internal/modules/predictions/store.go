// Package predictions materializes each active strategy's next-draw output.
//
// The cache is advisory: it can be dropped and rebuilt at any time, and
// readers must tolerate stale entries.
package predictions

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/augur/internal/domain"
)

// Store persists cached predictions keyed by strategy name.
type Store interface {
	// Put overwrites the entry of p.Strategy.
	Put(ctx context.Context, p domain.CachedPrediction) error
	// Get returns nil, nil when no entry exists.
	Get(ctx context.Context, strategy string) (*domain.CachedPrediction, error)
	// List returns every entry ordered by strategy name.
	List(ctx context.Context) ([]domain.CachedPrediction, error)
}

func encode(p domain.CachedPrediction) ([]byte, error) {
	payload, err := msgpack.Marshal(&p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode prediction %s: %w", p.Strategy, err)
	}
	return payload, nil
}

func decode(payload []byte) (*domain.CachedPrediction, error) {
	var p domain.CachedPrediction
	if err := msgpack.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to decode cached prediction: %w", err)
	}
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

// SQLiteStore keeps predictions in the cache database as msgpack blobs
// Database: cache.db (cached_predictions table)
type SQLiteStore struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSQLiteStore creates a new SQLite prediction store
func NewSQLiteStore(db *sql.DB, log zerolog.Logger) *SQLiteStore {
	return &SQLiteStore{
		db:  db,
		log: log.With().Str("repo", "cached_predictions").Logger(),
	}
}

// Put upserts a prediction
func (s *SQLiteStore) Put(ctx context.Context, p domain.CachedPrediction) error {
	payload, err := encode(p)
	if err != nil {
		return err
	}
	updatedAt := p.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cached_predictions (strategy_name, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(strategy_name) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, p.Strategy, payload, updatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to store prediction %s: %w", p.Strategy, err)
	}
	return nil
}

// Get returns the cached prediction of a strategy, or nil if absent
func (s *SQLiteStore) Get(ctx context.Context, strategy string) (*domain.CachedPrediction, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT payload FROM cached_predictions WHERE strategy_name = ?", strategy,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached prediction %s: %w", strategy, err)
	}
	return decode(payload)
}

// List returns every cached prediction
func (s *SQLiteStore) List(ctx context.Context) ([]domain.CachedPrediction, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT payload FROM cached_predictions ORDER BY strategy_name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query cached predictions: %w", err)
	}
	defer rows.Close()

	var out []domain.CachedPrediction
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan cached prediction: %w", err)
		}
		p, err := decode(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cached predictions: %w", err)
	}
	return out, nil
}

// Clear drops every cached prediction
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM cached_predictions"); err != nil {
		return fmt.Errorf("failed to clear cached predictions: %w", err)
	}
	return nil
}
