// Package domain provides core domain models and types.
package domain

import (
	"sort"
	"time"
)

// Draw is one immutable historical event.
// Primary and Secondary are stored sorted ascending.
type Draw struct {
	ID        int64     `json:"id"`
	DrawnAt   time.Time `json:"drawn_at"`
	Primary   []int     `json:"primary"`
	Secondary []int     `json:"secondary"`
}

// Has reports whether n is one of the draw's primary numbers.
func (d Draw) Has(n int) bool {
	for _, v := range d.Primary {
		if v == n {
			return true
		}
	}
	return false
}

// History is an ordered sequence of draws, ascending by ID.
// Strategies only ever receive a History that ends strictly before the draw
// they are predicting.
type History []Draw

// Last returns the most recent draw and false if the history is empty.
func (h History) Last() (Draw, bool) {
	if len(h) == 0 {
		return Draw{}, false
	}
	return h[len(h)-1], true
}

// Tail returns at most n trailing draws. The result is capacity-capped so it
// cannot be resliced past its end.
func (h History) Tail(n int) History {
	if n <= 0 || n >= len(h) {
		return h[:len(h):len(h)]
	}
	return h[len(h)-n : len(h) : len(h)]
}

// CandidateSet is a strategy's ranked output, highest confidence first.
type CandidateSet []int

// Contains reports whether n is in the set.
func (c CandidateSet) Contains(n int) bool {
	for _, v := range c {
		if v == n {
			return true
		}
	}
	return false
}

// Sorted returns an ascending copy of the set.
func (c CandidateSet) Sorted() []int {
	out := make([]int, len(c))
	copy(out, c)
	sort.Ints(out)
	return out
}

// Kind classifies a strategy in the registry.
type Kind string

const (
	// KindBase is an independent strategy computed directly from history.
	KindBase Kind = "base"
	// KindComplement is derived from a base strategy as domain minus prediction.
	KindComplement Kind = "complement"
	// KindEnsemble votes over the top ranked base strategies.
	KindEnsemble Kind = "ensemble"
	// KindFixed is a control strategy with a constant output.
	KindFixed Kind = "fixed"
)

// Descriptor describes a registered strategy.
type Descriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Kind        Kind   `json:"kind"`
	// Stateful is true when the strategy supports incremental replay.
	Stateful bool `json:"stateful"`
}

// PerformanceRecord scores one strategy against one draw.
// At most one exists per (DrawID, Strategy) in a namespace and it is never updated.
type PerformanceRecord struct {
	DrawID    int64        `json:"draw_id"`
	Strategy  string       `json:"strategy"`
	Predicted CandidateSet `json:"predicted"`
	Actual    []int        `json:"actual"`
	Hits      int          `json:"hits"`
	Accuracy  float64      `json:"accuracy"`
	CreatedAt time.Time    `json:"created_at"`
}

// RankingEntry is the windowed average accuracy of one strategy.
type RankingEntry struct {
	Strategy    string    `json:"strategy"`
	AvgAccuracy float64   `json:"avg_accuracy"`
	SampleCount int       `json:"sample_count"`
	LastUpdated time.Time `json:"last_updated"`
}

// CachedPrediction is the materialized next-draw output of one strategy.
// It is advisory and can always be recomputed.
type CachedPrediction struct {
	Strategy   string       `json:"strategy" msgpack:"strategy"`
	Candidates CandidateSet `json:"candidates" msgpack:"candidates"`
	Complement CandidateSet `json:"complement" msgpack:"complement"`
	UpdatedAt  time.Time    `json:"updated_at" msgpack:"updated_at"`
}

// StrategyStatus is the persisted activation state of a strategy.
type StrategyStatus struct {
	Name        string     `json:"name"`
	Kind        Kind       `json:"kind"`
	Active      bool       `json:"active"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
}

// Namespace selects which performance record set a replay writes to.
type Namespace string

const (
	// NamespaceProduction holds the records that feed the ranking.
	NamespaceProduction Namespace = "production"
	// NamespaceStaging holds trial records awaiting commit or discard.
	NamespaceStaging Namespace = "staging"
)

// ReplayMode selects how the simulator walks history.
type ReplayMode string

const (
	// ModeIncremental walks draws once, feeding stateful strategies via Observe.
	ModeIncremental ReplayMode = "incremental"
	// ModeWindowed recomputes every prediction from a trailing window.
	ModeWindowed ReplayMode = "windowed"
)

// Weighting selects where ensemble weights come from during replay.
type Weighting string

const (
	// WeightingPointInTime uses only records of draws before the target draw.
	WeightingPointInTime Weighting = "point_in_time"
	// WeightingSnapshot uses the current stored ranking for every draw.
	// It leaks future information and is an approximation.
	WeightingSnapshot Weighting = "snapshot"
)

// RunStatus is the terminal state of a replay run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunCancelled RunStatus = "cancelled"
	RunFailed    RunStatus = "failed"
)

// ReplayRun is the audit row of one replay.
type ReplayRun struct {
	ID         string     `json:"id"`
	Mode       ReplayMode `json:"mode"`
	Weighting  Weighting  `json:"weighting"`
	Namespace  Namespace  `json:"namespace"`
	Strategy   string     `json:"strategy,omitempty"`
	FromDraw   int64      `json:"from_draw"`
	ToDraw     int64      `json:"to_draw"`
	Processed  int        `json:"processed"`
	Skipped    int        `json:"skipped"`
	Failed     int        `json:"failed"`
	Status     RunStatus  `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
