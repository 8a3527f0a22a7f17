package strategies

import (
	"context"
	"errors"
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/augur/internal/config"
	"github.com/aristath/augur/internal/domain"
)

// ErrInsufficientHistory is returned by a Trainer that cannot fit on the given
// history. The strategy then yields the normalized fallback instead of failing.
var ErrInsufficientHistory = errors.New("insufficient history")

// Trainer fits a Model from history. Model-backed strategies are opaque:
// how parameters are learned or stored is the trainer's business.
type Trainer interface {
	Train(ctx context.Context, history domain.History) (Model, error)
}

// Model scores a value for the next draw. Higher is more likely.
type Model interface {
	Score(value int) float64
}

// modelStrategy trains on every call and ranks values by model score.
type modelStrategy struct {
	desc    domain.Descriptor
	trainer Trainer
	game    config.GameConfig
}

// NewModelStrategy wraps a trainer in the Strategy contract.
func NewModelStrategy(name, description string, trainer Trainer, game config.GameConfig) Strategy {
	return &modelStrategy{
		desc:    domain.Descriptor{Name: name, Description: description, Kind: domain.KindBase},
		trainer: trainer,
		game:    game,
	}
}

func (s *modelStrategy) Descriptor() domain.Descriptor { return s.desc }

func (s *modelStrategy) Predict(ctx context.Context, history domain.History) (domain.CandidateSet, error) {
	model, err := s.trainer.Train(ctx, history)
	if errors.Is(err, ErrInsufficientHistory) {
		return Normalize(nil, history, s.game.CandidateSize, s.game.Domain), nil
	}
	if err != nil {
		return nil, err
	}

	scores := make([]float64, s.game.Domain+1)
	for v := 1; v <= s.game.Domain; v++ {
		score := model.Score(v)
		if math.IsNaN(score) || math.IsInf(score, 0) {
			score = 0
		}
		scores[v] = score
	}
	return rankTop(scores, s.game.CandidateSize, false), nil
}

// presence returns the 0/1 appearance series of value across history.
func presence(history domain.History, value int) []float64 {
	series := make([]float64, len(history))
	for i, d := range history {
		if d.Has(value) {
			series[i] = 1
		}
	}
	return series
}

// emaTrainer fits an exponential moving average of each value's presence series.
type emaTrainer struct {
	period int
	n      int
}

type scoreTable []float64

func (t scoreTable) Score(v int) float64 {
	if v < 0 || v >= len(t) {
		return 0
	}
	return t[v]
}

func (t *emaTrainer) Train(ctx context.Context, history domain.History) (Model, error) {
	if len(history) < t.period {
		return nil, ErrInsufficientHistory
	}

	scores := make(scoreTable, t.n+1)
	for v := 1; v <= t.n; v++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ema := talib.Ema(presence(history, v), t.period)
		if len(ema) > 0 {
			scores[v] = ema[len(ema)-1]
		}
	}
	return scores, nil
}

// EMATrend ranks values by the EMA of their presence series.
func EMATrend(period int, game config.GameConfig) Strategy {
	if period < 2 {
		period = 10
	}
	return NewModelStrategy("ema_trend", "EMA of each number's presence series",
		&emaTrainer{period: period, n: game.Domain}, game)
}

// trendTrainer regresses per-block frequency on block index and forecasts the
// next block.
type trendTrainer struct {
	blocks int
	n      int
}

func (t *trendTrainer) Train(ctx context.Context, history domain.History) (Model, error) {
	size := len(history) / t.blocks
	if size < 1 {
		return nil, ErrInsufficientHistory
	}
	// most recent blocks*size draws, oldest block first
	recent := history[len(history)-size*t.blocks:]

	xs := make([]float64, t.blocks)
	for i := range xs {
		xs[i] = float64(i)
	}

	scores := make(scoreTable, t.n+1)
	ys := make([]float64, t.blocks)
	for v := 1; v <= t.n; v++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for b := 0; b < t.blocks; b++ {
			ys[b] = 0
			for _, d := range recent[b*size : (b+1)*size] {
				if d.Has(v) {
					ys[b]++
				}
			}
		}
		alpha, beta := stat.LinearRegression(xs, ys, nil, false)
		scores[v] = alpha + beta*float64(t.blocks)
	}
	return scores, nil
}

// LinearTrend forecasts each value's next-block frequency by least squares.
func LinearTrend(blocks int, game config.GameConfig) Strategy {
	if blocks < 2 {
		blocks = 10
	}
	return NewModelStrategy("linear_trend", "Least-squares trend of block frequencies",
		&trendTrainer{blocks: blocks, n: game.Domain}, game)
}
