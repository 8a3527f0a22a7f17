package predictions

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/augur/internal/domain"
	"github.com/aristath/augur/internal/events"
	"github.com/aristath/augur/internal/metrics"
	"github.com/aristath/augur/internal/modules/strategies"
)

// Emitter publishes cache refresh events.
type Emitter interface {
	EmitTyped(eventType events.EventType, module string, data events.EventData)
}

// RefreshResult reports which strategies were cached.
type RefreshResult struct {
	Refreshed []string          `json:"refreshed"`
	Failed    map[string]string `json:"failed"`
	Duration  time.Duration     `json:"duration"`
}

// Service refreshes and serves cached predictions.
type Service struct {
	draws       domain.DrawStore
	active      *strategies.ActiveSet
	store       Store
	concurrency int
	metrics     *metrics.Registry
	emitter     Emitter
	log         zerolog.Logger
}

// NewService creates a prediction cache service. concurrency bounds how many
// strategies are predicted at once.
func NewService(draws domain.DrawStore, active *strategies.ActiveSet, store Store, concurrency int, m *metrics.Registry, emitter Emitter, log zerolog.Logger) *Service {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Service{
		draws:       draws,
		active:      active,
		store:       store,
		concurrency: concurrency,
		metrics:     m,
		emitter:     emitter,
		log:         log.With().Str("module", "predictions").Logger(),
	}
}

// Refresh predicts the next draw for every active strategy over the full
// history and overwrites its cache entry together with its complement.
// Per-strategy failures are reported in the result and never stop the others.
func (s *Service) Refresh(ctx context.Context) (*RefreshResult, error) {
	start := time.Now()

	active, err := s.active.Active(ctx)
	if err != nil {
		return nil, err
	}
	history, err := s.draws.List(ctx, domain.DrawQuery{Order: domain.OrderAsc})
	if err != nil {
		return nil, fmt.Errorf("failed to load draws: %w", err)
	}
	history = history[:len(history):len(history)]
	now := time.Now().UTC().Truncate(time.Second)

	result := &RefreshResult{Failed: make(map[string]string)}
	var mu sync.Mutex

	// Entries are keyed by strategy name so parallel writers never collide.
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, st := range active {
		st := st
		g.Go(func() error {
			name := st.Descriptor().Name
			err := s.refreshOne(ctx, st, history, now)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed[name] = err.Error()
				s.metrics.RecordCacheRefresh(metrics.ResultFailed)
				s.log.Error().Err(err).Str("strategy", name).Msg("Failed to refresh cached prediction")
				return nil
			}
			result.Refreshed = append(result.Refreshed, name)
			s.metrics.RecordCacheRefresh(metrics.ResultInserted)
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(result.Refreshed)
	result.Duration = time.Since(start)

	s.log.Info().
		Int("refreshed", len(result.Refreshed)).
		Int("failed", len(result.Failed)).
		Dur("duration", result.Duration).
		Msg("Prediction cache refreshed")
	if s.emitter != nil {
		s.emitter.EmitTyped(events.CacheRefreshed, "predictions", &events.CacheRefreshedData{
			Refreshed: len(result.Refreshed),
			Failed:    result.Failed,
		})
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func (s *Service) refreshOne(ctx context.Context, st strategies.Strategy, history domain.History, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	game := s.active.Registry().Game()

	predicted, err := strategies.Run(ctx, st, history, game)
	if err != nil {
		return err
	}

	return s.store.Put(ctx, domain.CachedPrediction{
		Strategy:   st.Descriptor().Name,
		Candidates: predicted,
		Complement: strategies.ComplementFrom(predicted, game),
		UpdatedAt:  now,
	})
}

// Get returns the cached prediction of a registered strategy, or nil when
// none has been cached yet. Unregistered strategies are ErrNotFound.
func (s *Service) Get(ctx context.Context, name string) (*domain.CachedPrediction, error) {
	if !s.active.Known(name) {
		return nil, fmt.Errorf("strategy %s: %w", name, domain.ErrNotFound)
	}
	return s.store.Get(ctx, name)
}

// List returns every cached prediction.
func (s *Service) List(ctx context.Context) ([]domain.CachedPrediction, error) {
	return s.store.List(ctx)
}
