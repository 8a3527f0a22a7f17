package strategies

import (
	"sort"

	"github.com/aristath/augur/internal/domain"
)

// Normalize makes ranked exactly k distinct values of 1..n.
//
// Out-of-range and duplicate values are dropped and the list is trimmed
// highest-confidence-first. A short list is padded with the unused values most
// frequent in history, ties ascending; values never drawn come last in
// ascending order, which is also the whole output for an empty history.
func Normalize(ranked domain.CandidateSet, history domain.History, k, n int) domain.CandidateSet {
	if k > n {
		k = n
	}
	if k <= 0 {
		return domain.CandidateSet{}
	}

	out := make(domain.CandidateSet, 0, k)
	used := make([]bool, n+1)
	for _, v := range ranked {
		if len(out) == k {
			return out
		}
		if v < 1 || v > n || used[v] {
			continue
		}
		used[v] = true
		out = append(out, v)
	}
	if len(out) == k {
		return out
	}

	freq := Frequencies(history, n)
	pad := make([]int, 0, n-len(out))
	for v := 1; v <= n; v++ {
		if !used[v] {
			pad = append(pad, v)
		}
	}
	sort.SliceStable(pad, func(i, j int) bool {
		return freq[pad[i]] > freq[pad[j]]
	})

	return append(out, pad[:k-len(out)]...)
}

// Valid reports whether c already is k distinct values of 1..n.
func Valid(c domain.CandidateSet, k, n int) bool {
	if k > n {
		k = n
	}
	if len(c) != k {
		return false
	}
	seen := make([]bool, n+1)
	for _, v := range c {
		if v < 1 || v > n || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

// Frequencies counts primary appearances of each value; index 0 is unused.
func Frequencies(history domain.History, n int) []int {
	freq := make([]int, n+1)
	for _, d := range history {
		for _, v := range d.Primary {
			if v >= 1 && v <= n {
				freq[v]++
			}
		}
	}
	return freq
}

// rankTop orders 1..n by score, ties ascending by value, and returns the first k.
// scores is indexed by value.
func rankTop(scores []float64, k int, ascending bool) domain.CandidateSet {
	n := len(scores) - 1
	values := make([]int, n)
	for i := range values {
		values[i] = i + 1
	}
	sort.SliceStable(values, func(i, j int) bool {
		a, b := scores[values[i]], scores[values[j]]
		if ascending {
			return a < b
		}
		return a > b
	})
	if k > n {
		k = n
	}
	return domain.CandidateSet(values[:k:k])
}

func intScores(counts []int) []float64 {
	out := make([]float64, len(counts))
	for i, c := range counts {
		out[i] = float64(c)
	}
	return out
}

// complementOf returns 1..n minus predicted, ascending, trimmed to size.
func complementOf(predicted domain.CandidateSet, n, size int) domain.CandidateSet {
	in := make([]bool, n+1)
	for _, v := range predicted {
		if v >= 1 && v <= n {
			in[v] = true
		}
	}
	out := make(domain.CandidateSet, 0, size)
	for v := 1; v <= n && len(out) < size; v++ {
		if !in[v] {
			out = append(out, v)
		}
	}
	return out
}
