// Package staging runs trial backfills in an isolated namespace and promotes
// them to production atomically.
package staging

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/augur/internal/database"
	"github.com/aristath/augur/internal/domain"
	"github.com/aristath/augur/internal/events"
	"github.com/aristath/augur/internal/modules/backtest"
	"github.com/aristath/augur/internal/modules/performance"
	"github.com/aristath/augur/internal/modules/strategies"
)

// CommitResult describes a promotion.
type CommitResult struct {
	Strategy   string   `json:"strategy"`
	Strategies []string `json:"strategies"`
	Promoted   int      `json:"promoted"` // staged records copied to production
	Replaced   int64    `json:"replaced"` // production records deleted first
}

// Status describes what is staged for a strategy.
type Status struct {
	Strategy string          `json:"strategy"`
	Records  map[string]int  `json:"records"` // staged record count per strategy
	Active   map[string]bool `json:"active"`
}

// Workbench is the try, verify, then promote workflow.
//
// Production and staging tables live in the same ledger database so a commit
// is one transaction.
type Workbench struct {
	ledger     *sql.DB
	production *performance.Repository
	staging    *performance.Repository
	status     *performance.StatusRepository
	simulator  *backtest.Simulator
	registry   *strategies.Registry
	emitter    backtest.Emitter
	log        zerolog.Logger
}

// NewWorkbench creates a workbench. simulator must write to the staging repository.
func NewWorkbench(
	ledger *sql.DB,
	production, staging *performance.Repository,
	status *performance.StatusRepository,
	simulator *backtest.Simulator,
	registry *strategies.Registry,
	emitter backtest.Emitter,
	log zerolog.Logger,
) *Workbench {
	return &Workbench{
		ledger:     ledger,
		production: production,
		staging:    staging,
		status:     status,
		simulator:  simulator,
		registry:   registry,
		emitter:    emitter,
		log:        log.With().Str("module", "staging").Logger(),
	}
}

// family returns the strategy and its complement, if one is registered.
func (w *Workbench) family(name string) ([]strategies.Strategy, error) {
	base := strategies.BaseName(name)
	st, ok := w.registry.Get(base)
	if !ok {
		return nil, fmt.Errorf("strategy %s: %w", name, domain.ErrNotFound)
	}
	if st.Descriptor().Kind == domain.KindEnsemble {
		return nil, fmt.Errorf("ensemble %s is derived from the ranking and cannot be staged", base)
	}

	family := []strategies.Strategy{st}
	if anti, ok := w.registry.Get(strategies.ComplementName(base)); ok {
		family = append(family, anti)
	}
	return family, nil
}

func names(family []strategies.Strategy) []string {
	out := make([]string, len(family))
	for i, s := range family {
		out[i] = s.Descriptor().Name
	}
	return out
}

// Backfill replays a strategy and its complement into staging. Production is
// never touched. limit keeps only the most recent draws; zero replays all.
func (w *Workbench) Backfill(ctx context.Context, name string, limit int) (*backtest.Summary, error) {
	if w.simulator.Namespace() != domain.NamespaceStaging {
		return nil, fmt.Errorf("staging backfill requires a staging simulator, got %s", w.simulator.Namespace())
	}
	family, err := w.family(name)
	if err != nil {
		return nil, err
	}

	w.log.Info().Strs("strategies", names(family)).Int("limit", limit).Msg("Starting staging backfill")
	return w.simulator.Run(ctx, backtest.Options{Strategies: names(family), Limit: limit})
}

// Commit promotes staged records of a strategy and its complement in one
// ledger transaction: conflicting production records are replaced, staged
// timestamps are preserved, both strategies become active and staging is
// cleared. It returns ErrNoStagedRecords when nothing is staged.
func (w *Workbench) Commit(ctx context.Context, name string) (*CommitResult, error) {
	family, err := w.family(name)
	if err != nil {
		return nil, err
	}
	members := names(family)
	result := &CommitResult{Strategy: family[0].Descriptor().Name, Strategies: members}

	err = database.WithTransactionContext(ctx, w.ledger, func(tx *sql.Tx) error {
		staged, err := w.staging.ListByStrategiesTx(ctx, tx, members...)
		if err != nil {
			return err
		}
		if len(staged) == 0 {
			return fmt.Errorf("strategy %s: %w", result.Strategy, domain.ErrNoStagedRecords)
		}

		if result.Replaced, err = w.production.DeleteByStrategiesTx(ctx, tx, members...); err != nil {
			return err
		}
		if result.Promoted, err = w.production.InsertTx(ctx, tx, staged); err != nil {
			return err
		}
		for _, s := range family {
			if err := w.status.ActivateTx(ctx, tx, s.Descriptor().Name, s.Descriptor().Kind); err != nil {
				return err
			}
		}
		if _, err := w.staging.DeleteByStrategiesTx(ctx, tx, members...); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to commit staging for %s: %w", result.Strategy, err)
	}

	w.log.Info().
		Str("strategy", result.Strategy).
		Int("promoted", result.Promoted).
		Int64("replaced", result.Replaced).
		Msg("Staging committed")
	if w.emitter != nil {
		w.emitter.EmitTyped(events.StagingCommitted, "staging", &events.StagingCommittedData{
			Strategy: result.Strategy,
			Promoted: result.Promoted,
			Replaced: result.Replaced,
		})
	}
	return result, nil
}

// Discard clears staged records of a strategy and its complement.
func (w *Workbench) Discard(ctx context.Context, name string) (int64, error) {
	family, err := w.family(name)
	if err != nil {
		return 0, err
	}

	removed, err := w.staging.DeleteByStrategies(ctx, names(family)...)
	if err != nil {
		return 0, fmt.Errorf("failed to discard staging for %s: %w", name, err)
	}

	w.log.Info().Str("strategy", family[0].Descriptor().Name).Int64("removed", removed).Msg("Staging discarded")
	if w.emitter != nil {
		w.emitter.EmitTyped(events.StagingDiscarded, "staging", &events.StagingDiscardedData{
			Strategy: family[0].Descriptor().Name,
			Removed:  removed,
		})
	}
	return removed, nil
}

// Status counts staged records and reports activation of a strategy and its complement.
func (w *Workbench) Status(ctx context.Context, name string) (*Status, error) {
	family, err := w.family(name)
	if err != nil {
		return nil, err
	}

	out := &Status{
		Strategy: family[0].Descriptor().Name,
		Records:  make(map[string]int, len(family)),
		Active:   make(map[string]bool, len(family)),
	}
	for _, s := range family {
		n := s.Descriptor().Name
		count, err := w.staging.Count(ctx, n)
		if err != nil {
			return nil, err
		}
		active, err := w.status.IsActive(ctx, n)
		if err != nil {
			return nil, err
		}
		out.Records[n] = count
		out.Active[n] = active
	}
	return out, nil
}
