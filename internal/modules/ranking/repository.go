package ranking

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/augur/internal/database"
	"github.com/aristath/augur/internal/domain"
)

// Repository stores the materialized ranking table
// Database: cache.db (ranking_entries table)
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new ranking repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "ranking").Logger(),
	}
}

// ReplaceAll swaps the whole table in one transaction so readers never see a partial ranking.
func (r *Repository) ReplaceAll(ctx context.Context, entries []domain.RankingEntry) error {
	return database.WithTransactionContext(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM ranking_entries"); err != nil {
			return fmt.Errorf("failed to clear ranking: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO ranking_entries (strategy_name, avg_accuracy, sample_count, last_updated)
			VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare ranking insert: %w", err)
		}
		defer stmt.Close()

		for _, e := range entries {
			if _, err := stmt.ExecContext(ctx, e.Strategy, e.AvgAccuracy, e.SampleCount, e.LastUpdated.Unix()); err != nil {
				return fmt.Errorf("failed to insert ranking entry %s: %w", e.Strategy, err)
			}
		}
		return nil
	})
}

// List returns the stored ranking ordered by avg_accuracy descending, ties by name.
func (r *Repository) List(ctx context.Context) ([]domain.RankingEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT strategy_name, avg_accuracy, sample_count, last_updated
		FROM ranking_entries
		ORDER BY avg_accuracy DESC, strategy_name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranking: %w", err)
	}
	defer rows.Close()

	var entries []domain.RankingEntry
	for rows.Next() {
		var e domain.RankingEntry
		var updated int64
		if err := rows.Scan(&e.Strategy, &e.AvgAccuracy, &e.SampleCount, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan ranking entry: %w", err)
		}
		e.LastUpdated = time.Unix(updated, 0).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ranking: %w", err)
	}
	return entries, nil
}
