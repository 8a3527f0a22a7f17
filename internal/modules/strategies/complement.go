package strategies

import (
	"context"

	"github.com/aristath/augur/internal/config"
	"github.com/aristath/augur/internal/domain"
)

// ComplementPrefix names the anti-strategy of a base strategy.
const ComplementPrefix = "anti_"

// ComplementName returns the name of base's complement.
func ComplementName(base string) string {
	return ComplementPrefix + base
}

type complement struct {
	base Strategy
	game config.GameConfig
	desc domain.Descriptor
}

// Complement derives the anti-strategy of base: the domain minus base's
// prediction, normalized to N-K values. It calls base.Predict exactly once
// per prediction and never touches base's state.
//
// When base is Incremental so is the complement; its State wraps a private
// base State. Replays that already compute base use ComplementFrom instead.
func Complement(base Strategy, game config.GameConfig) Strategy {
	bd := base.Descriptor()
	c := &complement{
		base: base,
		game: game,
		desc: domain.Descriptor{
			Name:        ComplementName(bd.Name),
			Description: "Complement of " + bd.Name,
			Kind:        domain.KindComplement,
			Stateful:    bd.Stateful,
		},
	}
	if inc, ok := base.(Incremental); ok {
		return &incrementalComplement{complement: c, base: inc}
	}
	return c
}

func (c *complement) Descriptor() domain.Descriptor { return c.desc }

func (c *complement) Predict(ctx context.Context, history domain.History) (domain.CandidateSet, error) {
	predicted, err := Run(ctx, c.base, history, c.game)
	if err != nil {
		return nil, err
	}
	return complementOf(predicted, c.game.Domain, c.game.ComplementSize()), nil
}

type incrementalComplement struct {
	*complement
	base Incremental
}

func (c *incrementalComplement) NewState() State {
	return &complementState{base: c.base.NewState(), game: c.game}
}

type complementState struct {
	base State
	game config.GameConfig
}

func (s *complementState) Reset()                { s.base.Reset() }
func (s *complementState) Observe(d domain.Draw) { s.base.Observe(d) }

func (s *complementState) PredictNext() domain.CandidateSet {
	predicted := s.base.PredictNext()
	if !Valid(predicted, s.game.CandidateSize, s.game.Domain) {
		predicted = Normalize(predicted, nil, s.game.CandidateSize, s.game.Domain)
	}
	return complementOf(predicted, s.game.Domain, s.game.ComplementSize())
}

// ComplementBase returns the strategy s complements.
func ComplementBase(s Strategy) (Strategy, bool) {
	switch c := s.(type) {
	case *complement:
		return c.base, true
	case *incrementalComplement:
		return c.complement.base, true
	}
	return nil, false
}

// ComplementFrom derives a complement output from an already computed base
// prediction. Callers that hold the base output use it to avoid predicting twice.
func ComplementFrom(predicted domain.CandidateSet, game config.GameConfig) domain.CandidateSet {
	return complementOf(predicted, game.Domain, game.ComplementSize())
}
