package strategies

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aristath/augur/internal/config"
	"github.com/aristath/augur/internal/domain"
	"github.com/aristath/augur/internal/modules/ranking"
)

// Registry is the catalog of strategies. It is built once at startup and
// passed explicitly to the components that need it.
type Registry struct {
	mu     sync.RWMutex
	order  []Strategy
	byName map[string]Strategy
	game   config.GameConfig
}

// NewRegistry creates an empty registry for a game shape.
func NewRegistry(game config.GameConfig) *Registry {
	return &Registry{byName: make(map[string]Strategy), game: game}
}

// Game returns the game shape strategies are normalized to.
func (r *Registry) Game() config.GameConfig {
	return r.game
}

// Register adds a strategy. Names must be unique.
func (r *Registry) Register(s Strategy) error {
	name := s.Descriptor().Name
	if name == "" {
		return fmt.Errorf("strategy without name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("strategy %s already registered", name)
	}
	r.byName[name] = s
	r.order = append(r.order, s)
	return nil
}

// List returns every descriptor in registration order.
func (r *Registry) List() []domain.Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Descriptor, len(r.order))
	for i, s := range r.order {
		out[i] = s.Descriptor()
	}
	return out
}

// Names returns every strategy name in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	for i, s := range r.order {
		out[i] = s.Descriptor().Name
	}
	return out
}

// Get returns a strategy by name.
func (r *Registry) Get(name string) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byName[name]
	return s, ok
}

// Predict runs a strategy by name and normalizes its output.
func (r *Registry) Predict(ctx context.Context, name string, history domain.History) (domain.CandidateSet, error) {
	s, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("strategy %s: %w", name, domain.ErrNotFound)
	}
	return Run(ctx, s, history, r.game)
}

// ByKind returns the strategies of one kind in registration order.
func (r *Registry) ByKind(kind domain.Kind) []Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Strategy
	for _, s := range r.order {
		if s.Descriptor().Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// Base returns a snapshot of the base strategies. Later registrations do not
// change a snapshot already taken.
func (r *Registry) Base() []Strategy {
	return r.ByKind(domain.KindBase)
}

// Ensembles returns the registered medal tiers.
func (r *Registry) Ensembles() []*Ensemble {
	var out []*Ensemble
	for _, s := range r.ByKind(domain.KindEnsemble) {
		if e, ok := s.(*Ensemble); ok {
			out = append(out, e)
		}
	}
	return out
}

// BaseName returns the base strategy a name derives from: itself, or the
// wrapped strategy for a complement.
func BaseName(name string) string {
	return strings.TrimPrefix(name, ComplementPrefix)
}

// Build registers the built-in catalog, a complement for every base strategy
// and one ensemble per tier over the base snapshot.
func Build(game config.GameConfig, catalog *config.Catalog, tiers []config.Tier, provider ranking.Provider) (*Registry, error) {
	reg := NewRegistry(game)

	for _, s := range builtins(game, catalog) {
		if !catalog.Spec(s.Descriptor().Name).IsEnabled() {
			continue
		}
		if err := reg.Register(s); err != nil {
			return nil, err
		}
	}

	base := reg.Base()
	for _, s := range base {
		if err := reg.Register(Complement(s, game)); err != nil {
			return nil, err
		}
	}

	for _, tier := range tiers {
		if err := reg.Register(NewEnsemble(tier, base, provider, game)); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

func builtins(game config.GameConfig, catalog *config.Catalog) []Strategy {
	param := func(name, key string, def float64) float64 {
		return catalog.Spec(name).Param(key, def)
	}

	return []Strategy{
		HotWindow(int(param("hot_window", "window", 100)), game),
		ColdWindow(int(param("cold_window", "window", 100)), game),
		HotAllTime(game),
		Overdue(game),
		RecencyDecay(param("recency_decay", "decay", 0.9), game),
		MarkovTransition(game),
		RepeatLast(game),
		EMATrend(int(param("ema_trend", "period", 10)), game),
		LinearTrend(int(param("linear_trend", "blocks", 10)), game),
		AscendingFixed(game),
	}
}

// Staged returns the registered names the catalog keeps inactive until a
// staging commit: staged base strategies and their complements.
func Staged(reg *Registry, catalog *config.Catalog) map[string]bool {
	staged := make(map[string]bool)
	for _, name := range reg.Names() {
		if catalog.Spec(BaseName(name)).Staged {
			staged[name] = true
		}
	}
	return staged
}

// StatusSource reports inactive strategies.
type StatusSource interface {
	InactiveSet(ctx context.Context) (map[string]bool, error)
}

// ActiveSet filters a registry by persisted activation state.
type ActiveSet struct {
	reg    *Registry
	status StatusSource
}

// NewActiveSet creates an activation filter. A nil status treats every strategy as active.
func NewActiveSet(reg *Registry, status StatusSource) *ActiveSet {
	return &ActiveSet{reg: reg, status: status}
}

// Registry returns the underlying registry.
func (a *ActiveSet) Registry() *Registry {
	return a.reg
}

func (a *ActiveSet) inactive(ctx context.Context) (map[string]bool, error) {
	if a.status == nil {
		return map[string]bool{}, nil
	}
	return a.status.InactiveSet(ctx)
}

// Active returns the active strategies in registration order.
func (a *ActiveSet) Active(ctx context.Context) ([]Strategy, error) {
	inactive, err := a.inactive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load strategy status: %w", err)
	}

	var out []Strategy
	for _, name := range a.reg.Names() {
		if inactive[name] {
			continue
		}
		s, _ := a.reg.Get(name)
		out = append(out, s)
	}
	return out, nil
}

// ActiveNames returns the names of the active strategies.
func (a *ActiveSet) ActiveNames(ctx context.Context) ([]string, error) {
	active, err := a.Active(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(active))
	for i, s := range active {
		names[i] = s.Descriptor().Name
	}
	return names, nil
}

// IsActive reports whether a registered strategy is active.
func (a *ActiveSet) IsActive(ctx context.Context, name string) (bool, error) {
	if _, ok := a.reg.Get(name); !ok {
		return false, fmt.Errorf("strategy %s: %w", name, domain.ErrNotFound)
	}
	inactive, err := a.inactive(ctx)
	if err != nil {
		return false, err
	}
	return !inactive[name], nil
}

// Known reports whether a strategy is registered.
func (a *ActiveSet) Known(name string) bool {
	_, ok := a.reg.Get(name)
	return ok
}
