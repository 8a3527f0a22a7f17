package ranking

import (
	"sort"
	"time"

	"github.com/aristath/augur/internal/domain"
)

// Window is an in-memory rolling ranking fed one result at a time.
//
// Incremental replay uses it to rank strategies at each historical point
// without reading the ledger: after Add has been called for every draw before
// i, Snapshot equals what Refresh would compute from those same records.
type Window struct {
	size    int
	buffers map[string]*ring
}

type ring struct {
	values []float64
	next   int
	full   bool
}

// NewWindow creates a rolling window of size records per strategy.
func NewWindow(size int) *Window {
	if size < 1 {
		size = 1
	}
	return &Window{size: size, buffers: make(map[string]*ring)}
}

// Add appends the accuracy of the next chronological record of a strategy.
func (w *Window) Add(strategy string, accuracy float64) {
	b, ok := w.buffers[strategy]
	if !ok {
		b = &ring{values: make([]float64, w.size)}
		w.buffers[strategy] = b
	}
	b.values[b.next] = accuracy
	b.next = (b.next + 1) % w.size
	if b.next == 0 {
		b.full = true
	}
}

// Seed loads records ordered by draw descending, as returned by the ledger.
func (w *Window) Seed(strategy string, newestFirst []float64) {
	if len(newestFirst) > w.size {
		newestFirst = newestFirst[:w.size]
	}
	for i := len(newestFirst) - 1; i >= 0; i-- {
		w.Add(strategy, newestFirst[i])
	}
}

// newestFirst returns the buffered values in the order Refresh averages them.
func (b *ring) newestFirst() []float64 {
	n := b.next
	if b.full {
		n = len(b.values)
	}
	out := make([]float64, 0, n)
	idx := b.next
	for i := 0; i < n; i++ {
		idx--
		if idx < 0 {
			idx = len(b.values) - 1
		}
		out = append(out, b.values[idx])
	}
	return out
}

// Snapshot ranks every strategy seen so far.
func (w *Window) Snapshot(now time.Time) Snapshot {
	names := make([]string, 0, len(w.buffers))
	for name := range w.buffers {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]domain.RankingEntry, 0, len(names))
	for _, name := range names {
		if e, ok := Compute(name, w.buffers[name].newestFirst(), now); ok {
			entries = append(entries, e)
		}
	}
	return NewSnapshot(entries, now)
}
