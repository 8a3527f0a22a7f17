package testing

import (
	"math/rand"
	"sort"
	"time"

	"github.com/aristath/augur/internal/domain"
)

// FixtureEpoch is the timestamp of draw 1 in generated histories.
var FixtureEpoch = time.Date(2020, 1, 3, 20, 0, 0, 0, time.UTC)

// drawTime spaces draws three days apart.
func drawTime(id int64) time.Time {
	return FixtureEpoch.Add(time.Duration(id-1) * 72 * time.Hour)
}

// NewDraw builds a draw with sorted numbers.
func NewDraw(id int64, primary, secondary []int) domain.Draw {
	p := append([]int(nil), primary...)
	s := append([]int(nil), secondary...)
	sort.Ints(p)
	sort.Ints(s)
	return domain.Draw{ID: id, DrawnAt: drawTime(id), Primary: p, Secondary: s}
}

// SyntheticHistory generates count reproducible draws over 1..50 (5 numbers)
// and 1..12 (2 numbers).
func SyntheticHistory(count int, seed int64) domain.History {
	rng := rand.New(rand.NewSource(seed))
	history := make(domain.History, 0, count)
	for i := 1; i <= count; i++ {
		history = append(history, NewDraw(int64(i), pick(rng, 50, 5), pick(rng, 12, 2)))
	}
	return history
}

func pick(rng *rand.Rand, domainSize, count int) []int {
	perm := rng.Perm(domainSize)[:count]
	out := make([]int, count)
	for i, v := range perm {
		out[i] = v + 1
	}
	return out
}

// HotScenarioHistory is 150 draws with a hand-computed distribution.
//
// Draws 1..50 always contain {1,3,5,7,9}: each appears 50 times.
// Draws 51..150 cycle through five blocks of even numbers
// {2..10}, {12..20}, {22..30}, {32..40}, {42..50}: each even appears exactly
// 20 times and no odd number appears.
//
// Over the trailing 100 draws the 25 even numbers are the hot set (all tied,
// so ascending order) and the 25 odd numbers are the complement.
// All-time, {1,3,5,7,9} lead with 50 appearances each.
func HotScenarioHistory() domain.History {
	history := make(domain.History, 0, 150)
	for i := int64(1); i <= 50; i++ {
		history = append(history, NewDraw(i, []int{1, 3, 5, 7, 9}, []int{1, 2}))
	}
	for i := int64(51); i <= 150; i++ {
		block := int((i - 51) % 5)
		base := block * 10
		primary := []int{base + 2, base + 4, base + 6, base + 8, base + 10}
		history = append(history, NewDraw(i, primary, []int{int(i%12) + 1, int((i+5)%12) + 1}))
	}
	return history
}

// HotScenarioEvens is the expected hot_window prediction after HotScenarioHistory.
func HotScenarioEvens() []int {
	out := make([]int, 0, 25)
	for v := 2; v <= 50; v += 2 {
		out = append(out, v)
	}
	return out
}

// HotScenarioOdds is the expected complement of HotScenarioEvens.
func HotScenarioOdds() []int {
	out := make([]int, 0, 25)
	for v := 1; v <= 49; v += 2 {
		out = append(out, v)
	}
	return out
}

// HotBoundaryHistory is 51 draws whose 25th and 26th most frequent values tie.
//
// Draws 1..48 walk a cyclic run of five over 1..24, so each of 1..24 appears
// exactly 10 times. Draw 49 is {27,38,39,40,50}, draw 50 is {27,45,46,47,48}
// and draw 51 is {38,41,42,43,49}. 27 and 38 both appear twice; 38 is more
// recent. Every other value appears at most once.
func HotBoundaryHistory() domain.History {
	history := make(domain.History, 0, 51)
	for i := 1; i <= 48; i++ {
		primary := make([]int, 5)
		for j := range primary {
			primary[j] = (i-1+j)%24 + 1
		}
		history = append(history, NewDraw(int64(i), primary, []int{1, 2}))
	}
	history = append(history,
		NewDraw(49, []int{27, 38, 39, 40, 50}, []int{3, 4}),
		NewDraw(50, []int{27, 45, 46, 47, 48}, []int{5, 6}),
		NewDraw(51, []int{38, 41, 42, 43, 49}, []int{7, 8}),
	)
	return history
}

// HotBoundaryTop is the expected hot prediction after HotBoundaryHistory:
// 1..24, then the lower of the tied pair.
func HotBoundaryTop() []int {
	out := make([]int, 0, 25)
	for v := 1; v <= 24; v++ {
		out = append(out, v)
	}
	return append(out, 27)
}
