// Package ranking maintains the rolling average accuracy of every strategy.
//
// The ranking is a pure function of the last W performance records of each
// strategy. It is recomputed wholesale, never averaged incrementally.
package ranking

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/aristath/augur/internal/domain"
)

// Snapshot is an immutable ranking ordered by avg_accuracy descending, ties by name.
type Snapshot struct {
	Entries []domain.RankingEntry `json:"entries"`
	TakenAt time.Time             `json:"taken_at"`
}

// NewSnapshot copies and orders entries.
func NewSnapshot(entries []domain.RankingEntry, takenAt time.Time) Snapshot {
	sorted := append([]domain.RankingEntry(nil), entries...)
	sortEntries(sorted)
	return Snapshot{Entries: sorted, TakenAt: takenAt}
}

func sortEntries(entries []domain.RankingEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].AvgAccuracy != entries[j].AvgAccuracy {
			return entries[i].AvgAccuracy > entries[j].AvgAccuracy
		}
		return entries[i].Strategy < entries[j].Strategy
	})
}

// Top returns the best t entries accepted by keep. A nil keep accepts everything.
func (s Snapshot) Top(t int, keep func(name string) bool) []domain.RankingEntry {
	out := make([]domain.RankingEntry, 0, t)
	for _, e := range s.Entries {
		if len(out) == t {
			break
		}
		if keep == nil || keep(e.Strategy) {
			out = append(out, e)
		}
	}
	return out
}

// Get returns the entry of a strategy.
func (s Snapshot) Get(name string) (domain.RankingEntry, bool) {
	for _, e := range s.Entries {
		if e.Strategy == name {
			return e, true
		}
	}
	return domain.RankingEntry{}, false
}

// Len is the number of ranked strategies.
func (s Snapshot) Len() int {
	return len(s.Entries)
}

// Compute averages accuracies given newest first. It returns false for no records
// so a strategy without history is omitted instead of ranked at zero.
func Compute(strategy string, newestFirst []float64, now time.Time) (domain.RankingEntry, bool) {
	if len(newestFirst) == 0 {
		return domain.RankingEntry{}, false
	}
	return domain.RankingEntry{
		Strategy:    strategy,
		AvgAccuracy: stat.Mean(newestFirst, nil),
		SampleCount: len(newestFirst),
		LastUpdated: now,
	}, true
}

// ComputeRecords is Compute over records ordered by draw descending.
func ComputeRecords(strategy string, records []domain.PerformanceRecord, now time.Time) (domain.RankingEntry, bool) {
	acc := make([]float64, len(records))
	for i, r := range records {
		acc[i] = r.Accuracy
	}
	return Compute(strategy, acc, now)
}
