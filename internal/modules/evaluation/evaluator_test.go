package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aristath/augur/internal/domain"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name         string
		predicted    domain.CandidateSet
		actual       []int
		wantHits     int
		wantAccuracy float64
	}{
		{"all hits", domain.CandidateSet{1, 2, 3, 4, 5, 6}, []int{1, 2, 3, 4, 5}, 5, 100},
		{"no hits", domain.CandidateSet{10, 11}, []int{1, 2, 3, 4, 5}, 0, 0},
		{"two of five", domain.CandidateSet{22, 40, 1}, []int{3, 17, 22, 40, 41}, 2, 40},
		{"duplicates count once", domain.CandidateSet{3, 3, 3}, []int{3, 17, 22, 40, 41}, 1, 20},
		{"empty actual", domain.CandidateSet{1}, nil, 0, 0},
		{"empty prediction", nil, []int{1, 2}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Evaluate("s", tt.predicted, tt.actual)
			assert.Equal(t, "s", res.Strategy)
			assert.Equal(t, tt.wantHits, res.Hits)
			assert.InDelta(t, tt.wantAccuracy, res.Accuracy, 1e-9)
		})
	}
}

func TestRecord_CopiesInputs(t *testing.T) {
	draw := domain.Draw{ID: 7, Primary: []int{3, 17, 22, 40, 41}}
	predicted := domain.CandidateSet{22, 40}

	rec := Record(draw, "hot_window", predicted)
	predicted[0] = 99
	draw.Primary[0] = 98

	assert.Equal(t, int64(7), rec.DrawID)
	assert.Equal(t, "hot_window", rec.Strategy)
	assert.Equal(t, domain.CandidateSet{22, 40}, rec.Predicted)
	assert.Equal(t, []int{3, 17, 22, 40, 41}, rec.Actual)
	assert.Equal(t, 2, rec.Hits)
	assert.InDelta(t, 40.0, rec.Accuracy, 1e-9)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestBaseline_MatchesClosedForm(t *testing.T) {
	tests := []struct{ n, p, k int }{
		{50, 5, 25},
		{50, 5, 10},
		{49, 6, 20},
		{12, 2, 6},
		{10, 5, 8}, // lower bound of the pmf support is positive
	}

	for _, tt := range tests {
		want := float64(tt.k) / float64(tt.n) * 100
		assert.InDelta(t, want, Baseline(tt.n, tt.p, tt.k), 1e-9, "n=%d p=%d k=%d", tt.n, tt.p, tt.k)
	}
}

func TestBaseline_Degenerate(t *testing.T) {
	assert.Equal(t, 0.0, Baseline(0, 5, 25))
	assert.InDelta(t, 100.0, Baseline(50, 5, 50), 1e-9)
}
