package work

import (
	"context"
	"strings"
	"time"
)

// WorkTimeout is the maximum duration a work item can run before being cancelled.
// Full replays over a long history are the slowest items.
const WorkTimeout = 2 * time.Hour

// MaxRetries is the maximum number of times a failed work item will be retried.
const MaxRetries = 3

// Priority defines the execution priority of work types.
type Priority int

const (
	// PriorityLow is for maintenance (backups, health checks).
	PriorityLow Priority = iota
	// PriorityMedium is for derived data (cache refresh).
	PriorityMedium
	// PriorityHigh is for ranking refresh.
	PriorityHigh
	// PriorityCritical is for replays that produce performance records.
	PriorityCritical
)

// String returns a human-readable name for the priority.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityMedium:
		return "Medium"
	case PriorityHigh:
		return "High"
	case PriorityCritical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// WorkType defines a type of work that can be executed.
type WorkType struct {
	// ID is the unique identifier for this work type (e.g., "ranking:refresh").
	ID string

	// Description is shown in listings and job events.
	Description string

	// DependsOn lists work type IDs that run before this one. Completing a
	// dependency queues this type for the same subject.
	DependsOn []string

	// Interval is the minimum time between runs (0 = queued only).
	Interval time.Duration

	// Priority determines execution order when multiple work items are eligible.
	Priority Priority

	// Global work ignores subjects. It is queued with an empty subject when
	// any subject of a dependency completes, and waits for every subject of
	// its dependencies.
	Global bool

	// FindSubjects optionally returns subjects that need this work.
	// Returns []string{""} for global work, nil if no work needed.
	FindSubjects func() []string

	// Execute performs the work for a given subject.
	// Subject is empty for global work, a strategy name for per-strategy work.
	Execute func(ctx context.Context, subject string, progress *ProgressReporter) error
}

// WorkItem represents a specific unit of work to be executed.
type WorkItem struct {
	// ID is the full work ID including subject (e.g., "replay:incremental:hot_window").
	ID string

	// TypeID is the work type ID (e.g., "replay:incremental").
	TypeID string

	// Subject is empty for global work.
	Subject string

	// Retries is the number of times this item has been retried.
	Retries int

	// CreatedAt is when this work item was created.
	CreatedAt time.Time

	// StartedAt is set when the processor begins executing the item.
	StartedAt time.Time
}

// NewWorkItem creates a new work item from a work type and subject.
func NewWorkItem(workType *WorkType, subject string) *WorkItem {
	return &WorkItem{
		ID:        makeKey(workType.ID, subject),
		TypeID:    workType.ID,
		Subject:   subject,
		CreatedAt: time.Now(),
	}
}

// ParseWorkID extracts the work type ID and subject from a full work ID.
// For example, "replay:incremental:hot_window" returns ("replay:incremental", "hot_window").
// For "ranking:refresh", returns ("ranking:refresh", "").
func ParseWorkID(id string) (typeID string, subject string) {
	parts := strings.SplitN(id, ":", 3)
	if len(parts) <= 2 {
		return id, ""
	}
	return parts[0] + ":" + parts[1], parts[2]
}

func makeKey(typeID, subject string) string {
	if subject == "" {
		return typeID
	}
	return typeID + ":" + subject
}
