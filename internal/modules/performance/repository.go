// Package performance persists the immutable performance ledger.
//
// Production and staging records share one table shape. A Repository is bound
// to one namespace and only ever touches that namespace's table.
package performance

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/augur/internal/domain"
	"github.com/aristath/augur/internal/utils"
)

// Repository handles performance record database operations
// Database: ledger.db (performance_records or staging_performance_records table)
type Repository struct {
	db        *sql.DB
	namespace domain.Namespace
	table     string
	log       zerolog.Logger
}

// TableFor returns the ledger table backing a namespace.
func TableFor(ns domain.Namespace) string {
	if ns == domain.NamespaceStaging {
		return "staging_performance_records"
	}
	return "performance_records"
}

// NewRepository creates a performance repository bound to a namespace
func NewRepository(db *sql.DB, ns domain.Namespace, log zerolog.Logger) *Repository {
	return &Repository{
		db:        db,
		namespace: ns,
		table:     TableFor(ns),
		log:       log.With().Str("repo", "performance").Str("namespace", string(ns)).Logger(),
	}
}

// NewProductionRepository is NewRepository for the production namespace.
func NewProductionRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return NewRepository(db, domain.NamespaceProduction, log)
}

// NewStagingRepository is NewRepository for the staging namespace.
func NewStagingRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return NewRepository(db, domain.NamespaceStaging, log)
}

// Namespace returns the namespace the repository writes to.
func (r *Repository) Namespace() domain.Namespace {
	return r.namespace
}

const recordColumns = "draw_id, strategy_name, predicted, actual, hits, accuracy, created_at"

// Exists reports whether a record for (drawID, strategy) is already stored.
func (r *Repository) Exists(ctx context.Context, drawID int64, strategy string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM "+r.table+" WHERE draw_id = ? AND strategy_name = ?", drawID, strategy,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check performance record: %w", err)
	}
	return true, nil
}

// Insert stores a record unless one already exists for the same key.
// Concurrent writers of the same key race harmlessly: the conflict clause keeps the first row.
func (r *Repository) Insert(ctx context.Context, rec domain.PerformanceRecord) (bool, error) {
	return insertRecord(ctx, r.db, r.table, rec)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertRecord(ctx context.Context, db execer, table string, rec domain.PerformanceRecord) (bool, error) {
	predicted, err := utils.EncodeInts(rec.Predicted)
	if err != nil {
		return false, err
	}
	actual, err := utils.EncodeInts(rec.Actual)
	if err != nil {
		return false, err
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO `+table+` (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(draw_id, strategy_name) DO NOTHING
	`, rec.DrawID, rec.Strategy, predicted, actual, rec.Hits, rec.Accuracy, createdAt.Unix())
	if err != nil {
		return false, fmt.Errorf("failed to insert performance record (draw %d, %s): %w", rec.DrawID, rec.Strategy, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected == 1, nil
}

// Recent returns up to limit records of a strategy ordered by draw descending,
// restricted to draws before beforeDrawID when it is positive.
func (r *Repository) Recent(ctx context.Context, strategy string, beforeDrawID int64, limit int) ([]domain.PerformanceRecord, error) {
	query := "SELECT " + recordColumns + " FROM " + r.table + " WHERE strategy_name = ?"
	args := []interface{}{strategy}
	if beforeDrawID > 0 {
		query += " AND draw_id < ?"
		args = append(args, beforeDrawID)
	}
	query += " ORDER BY draw_id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	return r.query(ctx, r.db, query, args...)
}

// ListByStrategies returns every record of the given strategies ordered by draw.
func (r *Repository) ListByStrategies(ctx context.Context, strategies ...string) ([]domain.PerformanceRecord, error) {
	return r.listByStrategies(ctx, r.db, strategies)
}

// Count returns how many records a strategy has.
func (r *Repository) Count(ctx context.Context, strategy string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+r.table+" WHERE strategy_name = ?", strategy,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count performance records: %w", err)
	}
	return count, nil
}

// CountByStrategy returns record counts keyed by strategy name.
func (r *Repository) CountByStrategy(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT strategy_name, COUNT(*) FROM "+r.table+" GROUP BY strategy_name")
	if err != nil {
		return nil, fmt.Errorf("failed to count performance records: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("failed to scan record count: %w", err)
		}
		counts[name] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating record counts: %w", err)
	}
	return counts, nil
}

// DeleteByStrategies removes every record of the given strategies.
func (r *Repository) DeleteByStrategies(ctx context.Context, strategies ...string) (int64, error) {
	return r.deleteByStrategies(ctx, r.db, strategies)
}

// ListByStrategiesTx is ListByStrategies inside a caller-owned transaction.
func (r *Repository) ListByStrategiesTx(ctx context.Context, tx *sql.Tx, strategies ...string) ([]domain.PerformanceRecord, error) {
	return r.listByStrategies(ctx, tx, strategies)
}

// DeleteByStrategiesTx is DeleteByStrategies inside a caller-owned transaction.
func (r *Repository) DeleteByStrategiesTx(ctx context.Context, tx *sql.Tx, strategies ...string) (int64, error) {
	return r.deleteByStrategies(ctx, tx, strategies)
}

// InsertTx stores records inside a caller-owned transaction, preserving CreatedAt.
func (r *Repository) InsertTx(ctx context.Context, tx *sql.Tx, recs []domain.PerformanceRecord) (int, error) {
	inserted := 0
	for _, rec := range recs {
		ok, err := insertRecord(ctx, tx, r.table, rec)
		if err != nil {
			return inserted, err
		}
		if ok {
			inserted++
		}
	}
	return inserted, nil
}

type querier interface {
	execer
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func (r *Repository) listByStrategies(ctx context.Context, q querier, strategies []string) ([]domain.PerformanceRecord, error) {
	if len(strategies) == 0 {
		return nil, nil
	}
	placeholders, args := inClause(strategies)
	query := "SELECT " + recordColumns + " FROM " + r.table +
		" WHERE strategy_name IN (" + placeholders + ") ORDER BY draw_id ASC, strategy_name ASC"
	return r.query(ctx, q, query, args...)
}

func (r *Repository) deleteByStrategies(ctx context.Context, q querier, strategies []string) (int64, error) {
	if len(strategies) == 0 {
		return 0, nil
	}
	placeholders, args := inClause(strategies)
	res, err := q.ExecContext(ctx, "DELETE FROM "+r.table+" WHERE strategy_name IN ("+placeholders+")", args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete performance records: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected, nil
}

func (r *Repository) query(ctx context.Context, q querier, query string, args ...interface{}) ([]domain.PerformanceRecord, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query performance records: %w", err)
	}
	defer rows.Close()

	var records []domain.PerformanceRecord
	for rows.Next() {
		var (
			rec               domain.PerformanceRecord
			predicted, actual string
			createdAt         int64
		)
		if err := rows.Scan(&rec.DrawID, &rec.Strategy, &predicted, &actual, &rec.Hits, &rec.Accuracy, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan performance record: %w", err)
		}
		p, err := utils.DecodeInts(predicted)
		if err != nil {
			return nil, err
		}
		rec.Predicted = p
		if rec.Actual, err = utils.DecodeInts(actual); err != nil {
			return nil, err
		}
		rec.CreatedAt = time.Unix(createdAt, 0).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating performance records: %w", err)
	}
	return records, nil
}

func inClause(values []string) (string, []interface{}) {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(values)), ","), args
}
