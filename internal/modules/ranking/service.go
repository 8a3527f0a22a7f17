package ranking

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/augur/internal/domain"
	"github.com/aristath/augur/internal/metrics"
	"github.com/aristath/augur/internal/utils"
)

// Strategies lists the strategies the ranking covers.
type Strategies interface {
	ActiveNames(ctx context.Context) ([]string, error)
	Known(name string) bool
}

// RefreshResult reports the outcome of a refresh per strategy.
type RefreshResult struct {
	Ranked  []string          `json:"ranked"`
	Omitted []string          `json:"omitted"` // no records yet
	Failed  map[string]string `json:"failed,omitempty"`
}

// Service recomputes and serves the ranking table.
type Service struct {
	records    RecordReader
	repo       *Repository
	strategies Strategies
	window     int
	metrics    *metrics.Registry
	log        zerolog.Logger
}

// NewService creates a ranking service averaging the last window production records.
func NewService(records RecordReader, repo *Repository, strategies Strategies, window int, m *metrics.Registry, log zerolog.Logger) *Service {
	return &Service{
		records:    records,
		repo:       repo,
		strategies: strategies,
		window:     window,
		metrics:    m,
		log:        log.With().Str("module", "ranking").Logger(),
	}
}

// Refresh recomputes every active strategy's entry and replaces the table.
// A strategy whose records cannot be read keeps its previous entry.
func (s *Service) Refresh(ctx context.Context) (*RefreshResult, error) {
	defer utils.OperationTimer("ranking_refresh", s.log)()
	start := time.Now()

	names, err := s.strategies.ActiveNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active strategies: %w", err)
	}

	previous, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	prevByName := make(map[string]domain.RankingEntry, len(previous))
	for _, e := range previous {
		prevByName[e.Strategy] = e
	}

	now := time.Now().UTC()
	result := &RefreshResult{Failed: make(map[string]string)}
	entries := make([]domain.RankingEntry, 0, len(names))

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		recs, err := s.records.Recent(ctx, name, 0, s.window)
		if err != nil {
			s.log.Error().Err(err).Str("strategy", name).Msg("Failed to read performance records")
			result.Failed[name] = err.Error()
			if e, ok := prevByName[name]; ok {
				entries = append(entries, e)
			}
			continue
		}

		e, ok := ComputeRecords(name, recs, now)
		if !ok {
			result.Omitted = append(result.Omitted, name)
			continue
		}
		entries = append(entries, e)
		result.Ranked = append(result.Ranked, name)
	}

	if err := s.repo.ReplaceAll(ctx, entries); err != nil {
		return nil, err
	}

	accuracies := make(map[string]float64, len(entries))
	for _, e := range entries {
		accuracies[e.Strategy] = e.AvgAccuracy
	}
	s.metrics.SetRanking(accuracies, time.Since(start))

	s.log.Info().
		Int("ranked", len(result.Ranked)).
		Int("omitted", len(result.Omitted)).
		Int("failed", len(result.Failed)).
		Msg("Ranking refreshed")

	return result, nil
}

// Get returns the stored ranking, best first.
func (s *Service) Get(ctx context.Context) ([]domain.RankingEntry, error) {
	return s.repo.List(ctx)
}

// Entry returns one strategy's entry. Unregistered strategies and strategies
// without records both yield ErrNotFound.
func (s *Service) Entry(ctx context.Context, name string) (*domain.RankingEntry, error) {
	if !s.strategies.Known(name) {
		return nil, fmt.Errorf("strategy %s: %w", name, domain.ErrNotFound)
	}

	entries, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Strategy == name {
			return &e, nil
		}
	}
	return nil, fmt.Errorf("ranking entry %s: %w", name, domain.ErrNotFound)
}

// Current returns the stored ranking as a snapshot.
func (s *Service) Current(ctx context.Context) (Snapshot, error) {
	entries, err := s.repo.List(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return NewSnapshot(entries, time.Now().UTC()), nil
}

// SnapshotBefore returns the current ranking regardless of drawID.
// Use it only for the labeled look-ahead approximation.
func (s *Service) SnapshotBefore(ctx context.Context, _ int64) (Snapshot, error) {
	return s.Current(ctx)
}
