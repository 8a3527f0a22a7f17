package performance

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/augur/internal/domain"
)

// StatusRepository persists strategy activation state
// Database: ledger.db (strategies table)
type StatusRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewStatusRepository creates a new strategy status repository
func NewStatusRepository(db *sql.DB, log zerolog.Logger) *StatusRepository {
	return &StatusRepository{
		db:  db,
		log: log.With().Str("repo", "strategy_status").Logger(),
	}
}

// Register records a strategy the first time it is seen. Existing rows keep
// their state so a committed strategy stays active across restarts.
func (r *StatusRepository) Register(ctx context.Context, name string, kind domain.Kind, active bool) error {
	now := time.Now().Unix()
	var activatedAt interface{}
	if active {
		activatedAt = now
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO strategies (name, kind, active, activated_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`, name, string(kind), boolToInt(active), activatedAt, now)
	if err != nil {
		return fmt.Errorf("failed to register strategy %s: %w", name, err)
	}
	return nil
}

// Activate marks a strategy active. Used by staging commit.
func (r *StatusRepository) Activate(ctx context.Context, name string, kind domain.Kind) error {
	return r.ActivateTx(ctx, r.db, name, kind)
}

// ActivateTx is Activate on a caller-owned connection or transaction.
func (r *StatusRepository) ActivateTx(ctx context.Context, db execer, name string, kind domain.Kind) error {
	now := time.Now().Unix()
	_, err := db.ExecContext(ctx, `
		INSERT INTO strategies (name, kind, active, activated_at, updated_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			active = 1,
			activated_at = COALESCE(strategies.activated_at, excluded.activated_at),
			updated_at = excluded.updated_at
	`, name, string(kind), now, now)
	if err != nil {
		return fmt.Errorf("failed to activate strategy %s: %w", name, err)
	}
	return nil
}

// Deactivate marks a strategy inactive. Its production records stay untouched.
func (r *StatusRepository) Deactivate(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE strategies SET active = 0, updated_at = ? WHERE name = ?", time.Now().Unix(), name)
	if err != nil {
		return fmt.Errorf("failed to deactivate strategy %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("strategy %s: %w", name, domain.ErrNotFound)
	}
	return nil
}

// IsActive reports whether a strategy is active. Unknown strategies are active.
func (r *StatusRepository) IsActive(ctx context.Context, name string) (bool, error) {
	status, err := r.Get(ctx, name)
	if err != nil {
		return false, err
	}
	if status == nil {
		return true, nil
	}
	return status.Active, nil
}

// Get returns the stored status of a strategy, or nil if it was never registered.
func (r *StatusRepository) Get(ctx context.Context, name string) (*domain.StrategyStatus, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT name, kind, active, activated_at FROM strategies WHERE name = ?", name)

	status, err := scanStatus(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// List returns every registered strategy status ordered by name.
func (r *StatusRepository) List(ctx context.Context) ([]domain.StrategyStatus, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT name, kind, active, activated_at FROM strategies ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query strategy status: %w", err)
	}
	defer rows.Close()

	var statuses []domain.StrategyStatus
	for rows.Next() {
		status, err := scanStatus(rows)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating strategy status: %w", err)
	}
	return statuses, nil
}

// InactiveSet returns the names of inactive strategies.
func (r *StatusRepository) InactiveSet(ctx context.Context) (map[string]bool, error) {
	statuses, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	inactive := make(map[string]bool)
	for _, s := range statuses {
		if !s.Active {
			inactive[s.Name] = true
		}
	}
	return inactive, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanStatus(row scanner) (domain.StrategyStatus, error) {
	var (
		status      domain.StrategyStatus
		kind        string
		active      int
		activatedAt sql.NullInt64
	)
	if err := row.Scan(&status.Name, &kind, &active, &activatedAt); err != nil {
		if err == sql.ErrNoRows {
			return status, err
		}
		return status, fmt.Errorf("failed to scan strategy status: %w", err)
	}
	status.Kind = domain.Kind(kind)
	status.Active = active == 1
	if activatedAt.Valid {
		t := time.Unix(activatedAt.Int64, 0).UTC()
		status.ActivatedAt = &t
	}
	return status, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
