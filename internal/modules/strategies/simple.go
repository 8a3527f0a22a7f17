package strategies

import (
	"context"

	"github.com/aristath/augur/internal/config"
	"github.com/aristath/augur/internal/domain"
)

type repeatLast struct {
	game config.GameConfig
}

// RepeatLast predicts the previous draw's numbers, padded with the most frequent ones.
func RepeatLast(game config.GameConfig) Strategy {
	return &repeatLast{game: game}
}

func (s *repeatLast) Descriptor() domain.Descriptor {
	return domain.Descriptor{
		Name:        "repeat_last",
		Description: "Numbers of the previous draw, then the most frequent",
		Kind:        domain.KindBase,
	}
}

func (s *repeatLast) Predict(_ context.Context, history domain.History) (domain.CandidateSet, error) {
	var ranked domain.CandidateSet
	if last, ok := history.Last(); ok {
		ranked = append(ranked, last.Primary...)
	}
	return Normalize(ranked, history, s.game.CandidateSize, s.game.Domain), nil
}

type ascendingFixed struct {
	out  domain.CandidateSet
	desc domain.Descriptor
}

// AscendingFixed always predicts 1..K. It is a control for the ranking.
func AscendingFixed(game config.GameConfig) Incremental {
	return &ascendingFixed{
		out: Normalize(nil, nil, game.CandidateSize, game.Domain),
		desc: domain.Descriptor{
			Name:        "ascending_fixed",
			Description: "Constant 1..K control",
			Kind:        domain.KindFixed,
			Stateful:    true,
		},
	}
}

func (s *ascendingFixed) Descriptor() domain.Descriptor { return s.desc }

func (s *ascendingFixed) Predict(context.Context, domain.History) (domain.CandidateSet, error) {
	return append(domain.CandidateSet(nil), s.out...), nil
}

func (s *ascendingFixed) NewState() State { return fixedState{out: s.out} }

type fixedState struct {
	out domain.CandidateSet
}

func (fixedState) Reset()              {}
func (fixedState) Observe(domain.Draw) {}
func (s fixedState) PredictNext() domain.CandidateSet {
	return append(domain.CandidateSet(nil), s.out...)
}
