// Package strategies defines the prediction contract and the built-in catalog.
//
// A Strategy maps a history that ends strictly before the target draw to a
// ranked candidate set. Strategies that can be updated one draw at a time also
// implement Incremental; their State is owned by the caller, so a registered
// Strategy never changes after construction and is safe for concurrent use.
package strategies

import (
	"context"
	"fmt"

	"github.com/aristath/augur/internal/config"
	"github.com/aristath/augur/internal/domain"
)

// Strategy is the uniform prediction contract.
type Strategy interface {
	Descriptor() domain.Descriptor

	// Predict returns a ranked candidate set for the draw after history.
	// history is capacity-capped: it cannot be resliced to reach later draws.
	Predict(ctx context.Context, history domain.History) (domain.CandidateSet, error)
}

// Incremental is implemented by strategies that support stateful replay.
//
// For these strategies Predict(h) equals folding h into a fresh State and
// calling PredictNext, so windowed and incremental replays agree whenever the
// strategy's memory fits inside the window.
type Incremental interface {
	Strategy
	NewState() State
}

// State is strategy-private accumulated knowledge.
type State interface {
	// Reset discards everything observed.
	Reset()
	// Observe folds in the next chronological draw.
	Observe(d domain.Draw)
	// PredictNext predicts the draw after the last observed one.
	// Output is already normalized.
	PredictNext() domain.CandidateSet
}

// OutputSize is the normalized size of a strategy's output.
func OutputSize(kind domain.Kind, game config.GameConfig) int {
	if kind == domain.KindComplement {
		return game.ComplementSize()
	}
	return game.CandidateSize
}

// Run calls s.Predict, converts a panic into an error and normalizes the output.
func Run(ctx context.Context, s Strategy, history domain.History, game config.GameConfig) (out domain.CandidateSet, err error) {
	name := s.Descriptor().Name
	defer func() {
		if p := recover(); p != nil {
			out = nil
			err = fmt.Errorf("strategy %s panicked: %v", name, p)
		}
	}()

	predicted, err := s.Predict(ctx, history)
	if err != nil {
		return nil, fmt.Errorf("strategy %s failed: %w", name, err)
	}

	size := OutputSize(s.Descriptor().Kind, game)
	if Valid(predicted, size, game.Domain) {
		return predicted, nil
	}
	return Normalize(predicted, history, size, game.Domain), nil
}

// RunState calls st.PredictNext with panic recovery. Invalid output is
// normalized against history, which must be the draws observed so far.
func RunState(name string, kind domain.Kind, st State, history domain.History, game config.GameConfig) (out domain.CandidateSet, err error) {
	defer func() {
		if p := recover(); p != nil {
			out = nil
			err = fmt.Errorf("strategy %s panicked: %v", name, p)
		}
	}()

	predicted := st.PredictNext()
	size := OutputSize(kind, game)
	if Valid(predicted, size, game.Domain) {
		return predicted, nil
	}
	return Normalize(predicted, history, size, game.Domain), nil
}

// ObserveState calls st.Observe with panic recovery.
func ObserveState(name string, st State, d domain.Draw) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("strategy %s panicked while observing draw %d: %v", name, d.ID, p)
		}
	}()
	st.Observe(d)
	return nil
}

// fold is Predict for incremental strategies.
func fold(ctx context.Context, s Incremental, history domain.History) (domain.CandidateSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st := s.NewState()
	for _, d := range history {
		st.Observe(d)
	}
	return st.PredictNext(), nil
}
