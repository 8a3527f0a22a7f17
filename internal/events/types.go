// Package events provides event management functionality.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	// Replay lifecycle
	ReplayStarted   EventType = "REPLAY_STARTED"
	ReplayProgress  EventType = "REPLAY_PROGRESS"
	ReplayCompleted EventType = "REPLAY_COMPLETED"

	// Derived data
	RankingRefreshed EventType = "RANKING_REFRESHED"
	CacheRefreshed   EventType = "CACHE_REFRESHED"

	// Staging workflow
	StagingCommitted EventType = "STAGING_COMMITTED"
	StagingDiscarded EventType = "STAGING_DISCARDED"

	// Work processor
	JobStarted   EventType = "JOB_STARTED"
	JobProgress  EventType = "JOB_PROGRESS"
	JobCompleted EventType = "JOB_COMPLETED"
	JobFailed    EventType = "JOB_FAILED"

	ErrorOccurred EventType = "ERROR_OCCURRED"
)

// AllTypes lists every event type, in declaration order.
func AllTypes() []EventType {
	return []EventType{
		ReplayStarted, ReplayProgress, ReplayCompleted,
		RankingRefreshed, CacheRefreshed,
		StagingCommitted, StagingDiscarded,
		JobStarted, JobProgress, JobCompleted, JobFailed,
		ErrorOccurred,
	}
}

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}
