package work

import (
	"sort"
	"sync"
	"time"
)

// Completion is the last successful run of a work type for one subject.
type Completion struct {
	TypeID   string        `json:"type_id"`
	Subject  string        `json:"subject,omitempty"`
	At       time.Time     `json:"completed_at"`
	Took     time.Duration `json:"took_ns"`
	Attempts int           `json:"attempts"`
}

// CompletionTracker remembers when each work item last succeeded. Interval
// work types use it for staleness and /api/work/status reports it.
type CompletionTracker struct {
	mu   sync.RWMutex
	last map[string]Completion // key: "typeID:subject"
}

// NewCompletionTracker creates an empty tracker.
func NewCompletionTracker() *CompletionTracker {
	return &CompletionTracker{last: make(map[string]Completion)}
}

// MarkCompleted records that item succeeded now.
func (t *CompletionTracker) MarkCompleted(item *WorkItem) {
	t.MarkCompletedAt(item, time.Now())
}

// MarkCompletedAt records that item succeeded at completedAt. The run time is
// derived from item.StartedAt when the processor set it.
func (t *CompletionTracker) MarkCompletedAt(item *WorkItem, completedAt time.Time) {
	c := Completion{
		TypeID:   item.TypeID,
		Subject:  item.Subject,
		At:       completedAt,
		Attempts: item.Retries + 1,
	}
	if !item.StartedAt.IsZero() && completedAt.After(item.StartedAt) {
		c.Took = completedAt.Sub(item.StartedAt)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.last[makeKey(item.TypeID, item.Subject)] = c
}

// GetCompletion returns when a work type/subject combination last succeeded.
func (t *CompletionTracker) GetCompletion(typeID, subject string) (time.Time, bool) {
	c, ok := t.Last(typeID, subject)
	return c.At, ok
}

// Last returns the full completion record for a work type/subject.
func (t *CompletionTracker) Last(typeID, subject string) (Completion, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	c, ok := t.last[makeKey(typeID, subject)]
	return c, ok
}

// IsStale reports whether an interval work type is due again. Never-run work
// and a zero interval are always due.
func (t *CompletionTracker) IsStale(typeID, subject string, interval time.Duration) bool {
	if interval == 0 {
		return true
	}
	at, ok := t.GetCompletion(typeID, subject)
	if !ok {
		return true
	}
	return time.Since(at) > interval
}

// Recent returns every completion, newest first.
func (t *CompletionTracker) Recent() []Completion {
	t.mu.RLock()
	out := make([]Completion, 0, len(t.last))
	for _, c := range t.last {
		out = append(out, c)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].At.Equal(out[j].At) {
			return makeKey(out[i].TypeID, out[i].Subject) < makeKey(out[j].TypeID, out[j].Subject)
		}
		return out[i].At.After(out[j].At)
	})
	return out
}

// Clear forgets the completion of a work type/subject so it runs again.
func (t *CompletionTracker) Clear(typeID, subject string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.last, makeKey(typeID, subject))
}
