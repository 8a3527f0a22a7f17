package strategies

import (
	"context"

	"github.com/aristath/augur/internal/config"
	"github.com/aristath/augur/internal/domain"
)

// stateful adapts a State constructor to the Strategy contract.
type stateful struct {
	desc     domain.Descriptor
	newState func() State
}

func (s *stateful) Descriptor() domain.Descriptor { return s.desc }

func (s *stateful) NewState() State { return s.newState() }

func (s *stateful) Predict(ctx context.Context, history domain.History) (domain.CandidateSet, error) {
	return fold(ctx, s, history)
}

func newStateful(name, description string, newState func() State) *stateful {
	return &stateful{
		desc: domain.Descriptor{
			Name:        name,
			Description: description,
			Kind:        domain.KindBase,
			Stateful:    true,
		},
		newState: newState,
	}
}

// HotWindow ranks values by frequency over the trailing window draws.
func HotWindow(window int, game config.GameConfig) Incremental {
	return newStateful("hot_window", "Most frequent numbers over a trailing window", func() State {
		return newWindowState(window, game, false)
	})
}

// ColdWindow ranks values by scarcity over the trailing window draws.
func ColdWindow(window int, game config.GameConfig) Incremental {
	return newStateful("cold_window", "Least frequent numbers over a trailing window", func() State {
		return newWindowState(window, game, true)
	})
}

type windowState struct {
	n, k   int
	cold   bool
	ring   [][]int
	next   int
	filled int
	counts []int
}

func newWindowState(window int, game config.GameConfig, cold bool) *windowState {
	if window < 1 {
		window = 1
	}
	return &windowState{
		n:      game.Domain,
		k:      game.CandidateSize,
		cold:   cold,
		ring:   make([][]int, window),
		counts: make([]int, game.Domain+1),
	}
}

func (s *windowState) Reset() {
	for i := range s.ring {
		s.ring[i] = nil
	}
	for i := range s.counts {
		s.counts[i] = 0
	}
	s.next, s.filled = 0, 0
}

func (s *windowState) Observe(d domain.Draw) {
	if s.filled == len(s.ring) {
		for _, v := range s.ring[s.next] {
			s.counts[v]--
		}
	} else {
		s.filled++
	}

	kept := make([]int, 0, len(d.Primary))
	for _, v := range d.Primary {
		if v >= 1 && v <= s.n {
			s.counts[v]++
			kept = append(kept, v)
		}
	}
	s.ring[s.next] = kept
	s.next = (s.next + 1) % len(s.ring)
}

func (s *windowState) PredictNext() domain.CandidateSet {
	return rankTop(intScores(s.counts), s.k, s.cold)
}

// HotAllTime ranks values by frequency over the whole history.
func HotAllTime(game config.GameConfig) Incremental {
	return newStateful("hot_alltime", "Most frequent numbers over the whole history", func() State {
		return &countState{n: game.Domain, k: game.CandidateSize, counts: make([]int, game.Domain+1)}
	})
}

type countState struct {
	n, k   int
	counts []int
}

func (s *countState) Reset() {
	for i := range s.counts {
		s.counts[i] = 0
	}
}

func (s *countState) Observe(d domain.Draw) {
	for _, v := range d.Primary {
		if v >= 1 && v <= s.n {
			s.counts[v]++
		}
	}
}

func (s *countState) PredictNext() domain.CandidateSet {
	return rankTop(intScores(s.counts), s.k, false)
}

// Overdue ranks values by draws elapsed since they last appeared.
// Values never drawn are the most overdue.
func Overdue(game config.GameConfig) Incremental {
	return newStateful("overdue", "Numbers with the longest absence", func() State {
		return &overdueState{n: game.Domain, k: game.CandidateSize, last: make([]int, game.Domain+1)}
	})
}

type overdueState struct {
	n, k int
	t    int   // draws observed
	last []int // 1-based index of the last draw containing the value, 0 if never
}

func (s *overdueState) Reset() {
	s.t = 0
	for i := range s.last {
		s.last[i] = 0
	}
}

func (s *overdueState) Observe(d domain.Draw) {
	s.t++
	for _, v := range d.Primary {
		if v >= 1 && v <= s.n {
			s.last[v] = s.t
		}
	}
}

func (s *overdueState) PredictNext() domain.CandidateSet {
	scores := make([]float64, s.n+1)
	for v := 1; v <= s.n; v++ {
		scores[v] = float64(s.t - s.last[v])
		if s.last[v] == 0 {
			scores[v] = float64(s.t + 1)
		}
	}
	return rankTop(scores, s.k, false)
}

// RecencyDecay scores each appearance with weight decay^age.
func RecencyDecay(decay float64, game config.GameConfig) Incremental {
	if decay <= 0 || decay >= 1 {
		decay = 0.9
	}
	return newStateful("recency_decay", "Exponentially decayed appearance score", func() State {
		return &decayState{n: game.Domain, k: game.CandidateSize, decay: decay, scores: make([]float64, game.Domain+1)}
	})
}

type decayState struct {
	n, k   int
	decay  float64
	scores []float64
}

func (s *decayState) Reset() {
	for i := range s.scores {
		s.scores[i] = 0
	}
}

func (s *decayState) Observe(d domain.Draw) {
	for v := 1; v <= s.n; v++ {
		s.scores[v] *= s.decay
	}
	for _, v := range d.Primary {
		if v >= 1 && v <= s.n {
			s.scores[v]++
		}
	}
}

func (s *decayState) PredictNext() domain.CandidateSet {
	return rankTop(s.scores, s.k, false)
}

// MarkovTransition ranks values by how often they followed the numbers of the
// previous draw. All-time frequency breaks ties.
func MarkovTransition(game config.GameConfig) Incremental {
	return newStateful("markov_transition", "Successor counts from the previous draw", func() State {
		return newMarkovState(game)
	})
}

type markovState struct {
	n, k   int
	trans  [][]int // trans[a][b]: b appeared in the draw after one containing a
	counts []int
	total  int
	last   []int
}

func newMarkovState(game config.GameConfig) *markovState {
	s := &markovState{n: game.Domain, k: game.CandidateSize}
	s.Reset()
	return s
}

func (s *markovState) Reset() {
	s.trans = make([][]int, s.n+1)
	for i := range s.trans {
		s.trans[i] = make([]int, s.n+1)
	}
	s.counts = make([]int, s.n+1)
	s.total = 0
	s.last = nil
}

func (s *markovState) Observe(d domain.Draw) {
	current := make([]int, 0, len(d.Primary))
	for _, v := range d.Primary {
		if v >= 1 && v <= s.n {
			current = append(current, v)
		}
	}
	for _, a := range s.last {
		for _, b := range current {
			s.trans[a][b]++
		}
	}
	for _, v := range current {
		s.counts[v]++
		s.total++
	}
	s.last = current
}

func (s *markovState) PredictNext() domain.CandidateSet {
	scores := make([]float64, s.n+1)
	for b := 1; b <= s.n; b++ {
		sum := 0
		for _, a := range s.last {
			sum += s.trans[a][b]
		}
		// frequency term stays below 1 so it only orders equal transition counts
		scores[b] = float64(sum) + float64(s.counts[b])/float64(s.total+1)
	}
	return rankTop(scores, s.k, false)
}
