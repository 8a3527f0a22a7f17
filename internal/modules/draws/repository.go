// Package draws stores the append-only draw sequence.
package draws

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/augur/internal/database"
	"github.com/aristath/augur/internal/domain"
	"github.com/aristath/augur/internal/utils"
)

// Repository handles draw database operations
// Database: history.db (draws table)
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new draws repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "draws").Logger(),
	}
}

const drawColumns = "id, drawn_at, primary_numbers, secondary_numbers"

// List returns draws matching the query.
func (r *Repository) List(ctx context.Context, q domain.DrawQuery) (domain.History, error) {
	var (
		where []string
		args  []interface{}
	)
	if q.Before != nil {
		where = append(where, "drawn_at < ?")
		args = append(args, q.Before.Unix())
	}

	query := "SELECT " + drawColumns + " FROM draws"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if q.Order == domain.OrderDesc {
		query += " ORDER BY id DESC"
	} else {
		query += " ORDER BY id ASC"
	}
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query draws: %w", err)
	}
	defer rows.Close()

	var history domain.History
	for rows.Next() {
		d, err := scanDraw(rows)
		if err != nil {
			return nil, err
		}
		history = append(history, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating draws: %w", err)
	}

	return history, nil
}

// All returns the full history in ascending order.
func (r *Repository) All(ctx context.Context) (domain.History, error) {
	return r.List(ctx, domain.DrawQuery{Order: domain.OrderAsc})
}

// Get returns a draw by ID, or nil if it does not exist.
func (r *Repository) Get(ctx context.Context, id int64) (*domain.Draw, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+drawColumns+" FROM draws WHERE id = ?", id)

	d, err := scanDraw(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Count returns the number of stored draws.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM draws").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count draws: %w", err)
	}
	return count, nil
}

// Insert stores a draw. Existing IDs are left untouched and reported as false.
func (r *Repository) Insert(ctx context.Context, d domain.Draw) (bool, error) {
	inserted := false
	err := database.WithTransactionContext(ctx, r.db, func(tx *sql.Tx) error {
		ok, err := insertDraw(ctx, tx, d)
		inserted = ok
		return err
	})
	return inserted, err
}

// InsertBatch stores draws in one transaction and returns how many were new.
func (r *Repository) InsertBatch(ctx context.Context, draws []domain.Draw) (int, error) {
	inserted := 0
	err := database.WithTransactionContext(ctx, r.db, func(tx *sql.Tx) error {
		for _, d := range draws {
			ok, err := insertDraw(ctx, tx, d)
			if err != nil {
				return err
			}
			if ok {
				inserted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.log.Debug().Int("inserted", inserted).Int("total", len(draws)).Msg("Stored draws")
	return inserted, nil
}

func insertDraw(ctx context.Context, tx *sql.Tx, d domain.Draw) (bool, error) {
	primary, err := utils.EncodeInts(d.Primary)
	if err != nil {
		return false, err
	}
	secondary, err := utils.EncodeInts(d.Secondary)
	if err != nil {
		return false, err
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO draws (id, drawn_at, primary_numbers, secondary_numbers)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, d.ID, d.DrawnAt.Unix(), primary, secondary)
	if err != nil {
		return false, fmt.Errorf("failed to insert draw %d: %w", d.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected == 1, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDraw(row rowScanner) (domain.Draw, error) {
	var (
		d                  domain.Draw
		drawnAt            int64
		primary, secondary string
	)
	if err := row.Scan(&d.ID, &drawnAt, &primary, &secondary); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return d, err
		}
		return d, fmt.Errorf("failed to scan draw: %w", err)
	}

	var err error
	if d.Primary, err = utils.DecodeInts(primary); err != nil {
		return d, fmt.Errorf("draw %d: %w", d.ID, err)
	}
	if d.Secondary, err = utils.DecodeInts(secondary); err != nil {
		return d, fmt.Errorf("draw %d: %w", d.ID, err)
	}
	d.DrawnAt = time.Unix(drawnAt, 0).UTC()
	return d, nil
}
