package performance

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/augur/internal/domain"
)

// RunRepository stores the audit trail of replays
// Database: ledger.db (replay_runs table)
type RunRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRunRepository creates a new replay run repository
func NewRunRepository(db *sql.DB, log zerolog.Logger) *RunRepository {
	return &RunRepository{
		db:  db,
		log: log.With().Str("repo", "replay_runs").Logger(),
	}
}

// Save inserts or updates a run keyed by ID.
func (r *RunRepository) Save(ctx context.Context, run *domain.ReplayRun) error {
	var finishedAt interface{}
	if run.FinishedAt != nil {
		finishedAt = run.FinishedAt.Unix()
	}
	var strategy interface{}
	if run.Strategy != "" {
		strategy = run.Strategy
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO replay_runs (id, mode, weighting, namespace, strategy_name, from_draw, to_draw,
			processed, skipped, failed, status, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			from_draw = excluded.from_draw,
			to_draw = excluded.to_draw,
			processed = excluded.processed,
			skipped = excluded.skipped,
			failed = excluded.failed,
			status = excluded.status,
			finished_at = excluded.finished_at
	`, run.ID, string(run.Mode), string(run.Weighting), string(run.Namespace), strategy,
		run.FromDraw, run.ToDraw, run.Processed, run.Skipped, run.Failed,
		string(run.Status), run.StartedAt.Unix(), finishedAt)
	if err != nil {
		return fmt.Errorf("failed to save replay run %s: %w", run.ID, err)
	}
	return nil
}

const runColumns = `id, mode, weighting, namespace, strategy_name, from_draw, to_draw,
	processed, skipped, failed, status, started_at, finished_at`

// Get returns a run by ID, or ErrNotFound.
func (r *RunRepository) Get(ctx context.Context, id string) (*domain.ReplayRun, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM replay_runs WHERE id = ?", id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("replay run %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// List returns the most recent runs first.
func (r *RunRepository) List(ctx context.Context, limit int) ([]domain.ReplayRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM replay_runs ORDER BY started_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query replay runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.ReplayRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating replay runs: %w", err)
	}
	return runs, nil
}

func scanRun(row scanner) (domain.ReplayRun, error) {
	var (
		run                              domain.ReplayRun
		mode, weighting, namespace, stat string
		strategy                         sql.NullString
		startedAt                        int64
		finishedAt                       sql.NullInt64
	)
	err := row.Scan(&run.ID, &mode, &weighting, &namespace, &strategy, &run.FromDraw, &run.ToDraw,
		&run.Processed, &run.Skipped, &run.Failed, &stat, &startedAt, &finishedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return run, err
		}
		return run, fmt.Errorf("failed to scan replay run: %w", err)
	}

	run.Mode = domain.ReplayMode(mode)
	run.Weighting = domain.Weighting(weighting)
	run.Namespace = domain.Namespace(namespace)
	run.Strategy = strategy.String
	run.Status = domain.RunStatus(stat)
	run.StartedAt = time.Unix(startedAt, 0).UTC()
	if finishedAt.Valid {
		t := time.Unix(finishedAt.Int64, 0).UTC()
		run.FinishedAt = &t
	}
	return run, nil
}
