// Package evaluation scores strategy predictions against actual draws.
//
// Everything here is pure: callers decide whether and where to persist the
// resulting records.
package evaluation

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat/combin"

	"github.com/aristath/augur/internal/domain"
)

// Result is the outcome of one prediction against one draw.
type Result struct {
	Strategy string  `json:"strategy"`
	Hits     int     `json:"hits"`
	Accuracy float64 `json:"accuracy"` // hits / |actual| * 100
}

// Evaluate scores predicted against actual.
// Duplicate values in predicted count once. An empty actual scores zero.
func Evaluate(strategy string, predicted domain.CandidateSet, actual []int) Result {
	res := Result{Strategy: strategy}
	if len(actual) == 0 {
		return res
	}

	want := make(map[int]struct{}, len(actual))
	for _, v := range actual {
		want[v] = struct{}{}
	}

	seen := make(map[int]struct{}, len(predicted))
	for _, v := range predicted {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		if _, ok := want[v]; ok {
			res.Hits++
		}
	}

	res.Accuracy = float64(res.Hits) / float64(len(want)) * 100
	return res
}

// Record builds the performance record of a prediction for a draw.
func Record(draw domain.Draw, strategy string, predicted domain.CandidateSet) domain.PerformanceRecord {
	res := Evaluate(strategy, predicted, draw.Primary)

	return domain.PerformanceRecord{
		DrawID:    draw.ID,
		Strategy:  strategy,
		Predicted: append(domain.CandidateSet(nil), predicted...),
		Actual:    append([]int(nil), draw.Primary...),
		Hits:      res.Hits,
		Accuracy:  res.Accuracy,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

// Baseline is the expected accuracy (%) of a uniformly random k-subset of 1..n
// against a draw of p numbers.
//
// The number of hits is hypergeometric: P(h) = C(p,h)·C(n−p,k−h) / C(n,k).
// The expectation is summed from the pmf so the closed form p·k/n is a
// property to test, not an assumption.
func Baseline(n, p, k int) float64 {
	if n <= 0 || p <= 0 || k <= 0 {
		return 0
	}
	if k > n {
		k = n
	}
	if p > n {
		p = n
	}

	logTotal := combin.LogGeneralizedBinomial(float64(n), float64(k))

	lo := k - (n - p)
	if lo < 0 {
		lo = 0
	}
	hi := p
	if k < hi {
		hi = k
	}

	expected := 0.0
	for h := lo; h <= hi; h++ {
		logWays := combin.LogGeneralizedBinomial(float64(p), float64(h)) +
			combin.LogGeneralizedBinomial(float64(n-p), float64(k-h))
		expected += float64(h) * math.Exp(logWays-logTotal)
	}

	return expected / float64(p) * 100
}
