package strategies

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aristath/augur/internal/config"
	"github.com/aristath/augur/internal/domain"
	"github.com/aristath/augur/internal/modules/evaluation"
	"github.com/aristath/augur/internal/modules/ranking"
)

// EnsemblePrefix names medal tier ensembles.
const EnsemblePrefix = "medal_"

// Ensemble is a medal tier: a weighted plurality vote of the top T ranked members.
//
// Members are a frozen snapshot of base strategies taken at construction, so
// an ensemble can never vote through another ensemble or a complement.
type Ensemble struct {
	desc      domain.Descriptor
	size      int
	members   []Strategy
	memberSet map[string]Strategy
	ranking   ranking.Provider
	game      config.GameConfig
	baseline  float64
}

// Weight is one member's share of the vote.
type Weight struct {
	Strategy    string  `json:"strategy"`
	AvgAccuracy float64 `json:"avg_accuracy"`
	Weight      float64 `json:"weight"` // avg_accuracy / baseline
}

// NewEnsemble builds a tier over members. provider supplies the ranking for live predictions.
func NewEnsemble(tier config.Tier, members []Strategy, provider ranking.Provider, game config.GameConfig) *Ensemble {
	frozen := append([]Strategy(nil), members...)
	set := make(map[string]Strategy, len(frozen))
	for _, m := range frozen {
		set[m.Descriptor().Name] = m
	}

	return &Ensemble{
		desc: domain.Descriptor{
			Name:        EnsemblePrefix + tier.Name,
			Description: fmt.Sprintf("Weighted vote of the top %d ranked base strategies", tier.Size),
			Kind:        domain.KindEnsemble,
		},
		size:      tier.Size,
		members:   frozen,
		memberSet: set,
		ranking:   provider,
		game:      game,
		baseline:  evaluation.Baseline(game.Domain, game.PrimaryCount, game.CandidateSize),
	}
}

func (e *Ensemble) Descriptor() domain.Descriptor { return e.desc }

// Size is the tier size T.
func (e *Ensemble) Size() int { return e.size }

// Baseline is the accuracy of a random candidate set of the same size.
func (e *Ensemble) Baseline() float64 { return e.baseline }

// Members returns the member names in registration order.
func (e *Ensemble) Members() []string {
	names := make([]string, len(e.members))
	for i, m := range e.members {
		names[i] = m.Descriptor().Name
	}
	return names
}

// Member returns a member strategy by name.
func (e *Ensemble) Member(name string) (Strategy, bool) {
	m, ok := e.memberSet[name]
	return m, ok
}

func (e *Ensemble) isMember(name string) bool {
	_, ok := e.memberSet[name]
	return ok
}

// Weights returns the voting weights of the top T ranked members, best first.
func (e *Ensemble) Weights(snap ranking.Snapshot) []Weight {
	top := snap.Top(e.size, e.isMember)
	weights := make([]Weight, len(top))
	for i, entry := range top {
		w := entry.AvgAccuracy
		if e.baseline > 0 {
			w = entry.AvgAccuracy / e.baseline
		}
		weights[i] = Weight{Strategy: entry.Strategy, AvgAccuracy: entry.AvgAccuracy, Weight: w}
	}
	return weights
}

// Predict votes with the provider's current ranking.
func (e *Ensemble) Predict(ctx context.Context, history domain.History) (domain.CandidateSet, error) {
	if e.ranking == nil {
		return nil, fmt.Errorf("ensemble %s has no ranking provider", e.desc.Name)
	}
	snap, err := e.ranking.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ranking: %w", err)
	}
	return e.Vote(ctx, snap, history)
}

// Vote runs every weighted member over history and tallies the ballots.
func (e *Ensemble) Vote(ctx context.Context, snap ranking.Snapshot, history domain.History) (domain.CandidateSet, error) {
	return e.VoteWith(snap, history, func(m Strategy) (domain.CandidateSet, error) {
		return Run(ctx, m, history, e.game)
	})
}

// VoteWith tallies ballots produced by predict, which callers use to supply
// member outputs they already computed.
//
// Each member adds its weight to every value it predicts. The K values with
// the highest totals win, ties ascending. Members that fail are skipped; when
// no member is ranked the output is the normalized fallback.
func (e *Ensemble) VoteWith(snap ranking.Snapshot, history domain.History, predict func(Strategy) (domain.CandidateSet, error)) (domain.CandidateSet, error) {
	weights := e.Weights(snap)
	k, n := e.game.CandidateSize, e.game.Domain
	if len(weights) == 0 {
		return Normalize(nil, history, k, n), nil
	}

	votes := make([]float64, n+1)
	var errs []error
	voted := 0
	for _, w := range weights {
		predicted, err := predict(e.memberSet[w.Strategy])
		if err != nil {
			errs = append(errs, fmt.Errorf("member %s: %w", w.Strategy, err))
			continue
		}
		voted++
		for _, v := range predicted {
			if v >= 1 && v <= n {
				votes[v] += w.Weight
			}
		}
	}
	if voted == 0 {
		return nil, fmt.Errorf("ensemble %s: every member failed: %w", e.desc.Name, errors.Join(errs...))
	}

	// every value is ranked; values nobody voted for follow in ascending order
	values := make([]int, 0, n)
	for v := 1; v <= n; v++ {
		values = append(values, v)
	}
	sort.SliceStable(values, func(i, j int) bool {
		return votes[values[i]] > votes[values[j]]
	})

	return Normalize(values, history, k, n), nil
}
