package strategies

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/augur/internal/config"
	"github.com/aristath/augur/internal/domain"
	"github.com/aristath/augur/internal/modules/evaluation"
	testingpkg "github.com/aristath/augur/internal/testing"
)

func defaultGame() config.GameConfig {
	return config.Default().Game
}

func buildRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := Build(defaultGame(), nil, config.DefaultTiers(), nil)
	require.NoError(t, err)
	return reg
}

func TestHotWindow_HotScenario(t *testing.T) {
	game := defaultGame()
	history := testingpkg.HotScenarioHistory()
	require.Len(t, history, 150)

	hot := HotWindow(100, game)
	predicted, err := Run(context.Background(), hot, history, game)
	require.NoError(t, err)
	assert.Equal(t, domain.CandidateSet(testingpkg.HotScenarioEvens()), predicted)

	anti, err := Run(context.Background(), Complement(hot, game), history, game)
	require.NoError(t, err)
	assert.Equal(t, domain.CandidateSet(testingpkg.HotScenarioOdds()), anti)

	actual := []int{3, 17, 22, 40, 41}
	hits := evaluation.Evaluate("hot_window", predicted, actual).Hits
	antiHits := evaluation.Evaluate("anti_hot_window", anti, actual).Hits
	assert.Equal(t, 2, hits)
	assert.Equal(t, 3, antiHits)
	assert.Equal(t, 5, hits+antiHits)
}

func TestHotWindow_TieAtCutoffBreaksAscending(t *testing.T) {
	game := defaultGame()
	history := testingpkg.HotBoundaryHistory()
	want := domain.CandidateSet(testingpkg.HotBoundaryTop())

	for _, strategy := range []Strategy{HotWindow(100, game), HotAllTime(game)} {
		predicted, err := Run(context.Background(), strategy, history, game)
		require.NoError(t, err)
		assert.Equal(t, want, predicted, strategy.Descriptor().Name)
	}

	hot := HotWindow(100, game)
	state := hot.NewState()
	for _, d := range history {
		state.Observe(d)
	}
	assert.Equal(t, want, state.PredictNext())

	anti, err := Run(context.Background(), Complement(hot, game), history, game)
	require.NoError(t, err)
	assert.True(t, anti.Contains(38))
	assert.False(t, anti.Contains(27))
	assert.Len(t, anti, game.ComplementSize())
}

func TestHotAllTime_SeesWholeHistory(t *testing.T) {
	game := defaultGame()
	predicted, err := Run(context.Background(), HotAllTime(game), testingpkg.HotScenarioHistory(), game)
	require.NoError(t, err)

	assert.Equal(t, domain.CandidateSet{1, 3, 5, 7, 9}, predicted[:5])
	assert.Equal(t, 2, predicted[5], "evens follow, ascending")
}

func TestColdWindow_PrefersAbsent(t *testing.T) {
	game := defaultGame()
	predicted, err := Run(context.Background(), ColdWindow(100, game), testingpkg.HotScenarioHistory(), game)
	require.NoError(t, err)
	assert.Equal(t, domain.CandidateSet(testingpkg.HotScenarioOdds()), predicted)
}

func TestOverdue(t *testing.T) {
	game := defaultGame()
	history := testingpkg.HotScenarioHistory()
	predicted, err := Run(context.Background(), Overdue(game), history, game)
	require.NoError(t, err)

	// never drawn: 11..49 odd (20 values), then 1,3,5,7,9 last seen at draw 50
	var want domain.CandidateSet
	for v := 11; v <= 49; v += 2 {
		want = append(want, v)
	}
	want = append(want, 1, 3, 5, 7, 9)
	assert.Equal(t, want, predicted)
}

func TestStrategies_InsufficientHistoryFallsBack(t *testing.T) {
	game := defaultGame()
	reg := buildRegistry(t)
	fallback := Normalize(nil, nil, game.CandidateSize, game.Domain)

	for _, s := range reg.Base() {
		t.Run(s.Descriptor().Name, func(t *testing.T) {
			predicted, err := Run(context.Background(), s, domain.History{}, game)
			require.NoError(t, err)
			assert.Equal(t, fallback, predicted)
		})
	}
}

func TestStrategies_OutputIsNormalized(t *testing.T) {
	game := defaultGame()
	reg := buildRegistry(t)
	history := testingpkg.SyntheticHistory(120, 42)

	for _, s := range append(reg.Base(), reg.ByKind(domain.KindFixed)...) {
		t.Run(s.Descriptor().Name, func(t *testing.T) {
			for _, i := range []int{0, 1, 5, 30, 120} {
				predicted, err := Run(context.Background(), s, history[:i:i], game)
				require.NoError(t, err)
				assert.True(t, Valid(predicted, game.CandidateSize, game.Domain), "draw %d: %v", i, predicted)
			}
		})
	}
}

// Predictions for draw i must not change when draws at or after i do.
func TestStrategies_NoLeakage(t *testing.T) {
	game := defaultGame()
	reg := buildRegistry(t)
	ctx := context.Background()

	for _, s := range append(reg.Base(), reg.ByKind(domain.KindComplement)...) {
		t.Run(s.Descriptor().Name, func(t *testing.T) {
			history := testingpkg.SyntheticHistory(80, 7)
			for _, i := range []int{10, 40, 79} {
				before, err := Run(ctx, s, history[:i:i], game)
				require.NoError(t, err)

				mutated := append(domain.History(nil), history...)
				for j := i; j < len(mutated); j++ {
					mutated[j] = testingpkg.NewDraw(mutated[j].ID, []int{1, 2, 3, 4, 5}, []int{1, 2})
				}
				after, err := Run(ctx, s, mutated[:i:i], game)
				require.NoError(t, err)
				assert.Equal(t, before, after, "draw index %d", i)

				truncated, err := Run(ctx, s, history[:i], game)
				require.NoError(t, err)
				assert.Equal(t, before, truncated)
			}
		})
	}
}

func TestIncremental_MatchesPredict(t *testing.T) {
	game := defaultGame()
	reg := buildRegistry(t)
	history := testingpkg.SyntheticHistory(150, 3)

	for _, s := range reg.List() {
		strategy, _ := reg.Get(s.Name)
		inc, ok := strategy.(Incremental)
		if !ok {
			continue
		}
		t.Run(s.Name, func(t *testing.T) {
			assert.True(t, s.Stateful)
			state := inc.NewState()
			for i, d := range history {
				fromState, err := RunState(s.Name, s.Kind, state, history[:i:i], game)
				require.NoError(t, err)
				fromSlice, err := Run(context.Background(), strategy, history[:i:i], game)
				require.NoError(t, err)
				require.Equal(t, fromSlice, fromState, "draw %d", d.ID)
				require.NoError(t, ObserveState(s.Name, state, d))
			}

			state.Reset()
			fresh, err := RunState(s.Name, s.Kind, state, nil, game)
			require.NoError(t, err)
			empty, err := Run(context.Background(), strategy, nil, game)
			require.NoError(t, err)
			assert.Equal(t, empty, fresh, "reset forgets every observed draw")
		})
	}
}

func TestComplement_Invariants(t *testing.T) {
	game := defaultGame()
	require.Equal(t, game.Domain, 2*game.CandidateSize, "exact bipartition")

	reg := buildRegistry(t)
	history := testingpkg.SyntheticHistory(60, 11)
	ctx := context.Background()

	for _, base := range reg.Base() {
		anti, ok := reg.Get(ComplementName(base.Descriptor().Name))
		require.True(t, ok)
		assert.Equal(t, domain.KindComplement, anti.Descriptor().Kind)

		t.Run(base.Descriptor().Name, func(t *testing.T) {
			for i := 0; i < len(history); i++ {
				h := history[:i:i]
				p, err := Run(ctx, base, h, game)
				require.NoError(t, err)
				c, err := Run(ctx, anti, h, game)
				require.NoError(t, err)

				union := make(map[int]bool)
				for _, v := range p {
					union[v] = true
				}
				for _, v := range c {
					assert.False(t, p.Contains(v), "draw %d: %d in both", i, v)
					union[v] = true
				}
				assert.Len(t, union, game.Domain)

				actual := history[i].Primary
				sum := evaluation.Evaluate("s", p, actual).Hits + evaluation.Evaluate("anti", c, actual).Hits
				assert.Equal(t, len(actual), sum)
			}
		})
	}
}

type countingStrategy struct {
	calls int
	out   domain.CandidateSet
}

func (c *countingStrategy) Descriptor() domain.Descriptor {
	return domain.Descriptor{Name: "counting", Kind: domain.KindBase}
}

func (c *countingStrategy) Predict(context.Context, domain.History) (domain.CandidateSet, error) {
	c.calls++
	return c.out, nil
}

func TestComplement_CallsBaseOnce(t *testing.T) {
	game := defaultGame()
	base := &countingStrategy{out: domain.CandidateSet(seq(1, 25))}
	anti := Complement(base, game)

	out, err := anti.Predict(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, base.calls)
	assert.Equal(t, domain.CandidateSet(seq(26, 50)), out)
	assert.Equal(t, "anti_counting", anti.Descriptor().Name)
	_, incremental := anti.(Incremental)
	assert.False(t, incremental)
}

func TestComplementBase(t *testing.T) {
	game := defaultGame()
	plain := &countingStrategy{}
	hot := HotWindow(20, game)

	base, ok := ComplementBase(Complement(plain, game))
	require.True(t, ok)
	assert.Same(t, plain, base)

	base, ok = ComplementBase(Complement(hot, game))
	require.True(t, ok)
	assert.Equal(t, "hot_window", base.Descriptor().Name)

	_, ok = ComplementBase(hot)
	assert.False(t, ok)

	assert.Equal(t, domain.CandidateSet(seq(26, 50)), ComplementFrom(domain.CandidateSet(seq(1, 25)), game))
}

type panicStrategy struct{}

func (panicStrategy) Descriptor() domain.Descriptor {
	return domain.Descriptor{Name: "boom", Kind: domain.KindBase}
}

func (panicStrategy) Predict(context.Context, domain.History) (domain.CandidateSet, error) {
	panic("missing trained parameters")
}

func TestRun_RecoversPanic(t *testing.T) {
	_, err := Run(context.Background(), panicStrategy{}, nil, defaultGame())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing trained parameters")
}

func TestLinearTrend_FollowsRisingNumber(t *testing.T) {
	game := defaultGame()
	history := make(domain.History, 0, 100)
	for i := int64(1); i <= 100; i++ {
		primary := []int{1, 2, 3, 4, 5}
		if i > 50 {
			primary = []int{50, 2, 3, 4, 5}
		}
		history = append(history, testingpkg.NewDraw(i, primary, []int{1, 2}))
	}

	predicted, err := Run(context.Background(), LinearTrend(10, game), history, game)
	require.NoError(t, err)
	assert.Equal(t, 50, predicted[0], "rising number ranks first")
	assert.False(t, predicted[:4].Contains(1), "fading number drops")
}

func TestEMATrend_WeighsRecentPresence(t *testing.T) {
	game := defaultGame()
	history := make(domain.History, 0, 30)
	for i := int64(1); i <= 30; i++ {
		primary := []int{10, 11, 12, 13, 14}
		if i > 25 {
			primary = []int{40, 41, 42, 43, 44}
		}
		history = append(history, testingpkg.NewDraw(i, primary, []int{1, 2}))
	}

	predicted, err := Run(context.Background(), EMATrend(5, game), history, game)
	require.NoError(t, err)
	assert.Equal(t, domain.CandidateSet{40, 41, 42, 43, 44}, predicted[:5])
}
