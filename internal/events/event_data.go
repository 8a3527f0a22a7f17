package events

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// ReplayStartedData contains data for ReplayStarted events
type ReplayStartedData struct {
	RunID      string   `json:"run_id"`
	Namespace  string   `json:"namespace"`
	Mode       string   `json:"mode"`
	Weighting  string   `json:"weighting"`
	Strategies []string `json:"strategies"`
	Draws      int      `json:"draws"`
}

// EventType returns the event type for ReplayStartedData
func (d *ReplayStartedData) EventType() EventType {
	return ReplayStarted
}

// ReplayProgressData contains data for ReplayProgress events
type ReplayProgressData struct {
	RunID     string `json:"run_id"`
	Namespace string `json:"namespace"`
	Current   int    `json:"current"`
	Total     int    `json:"total"`
	DrawID    int64  `json:"draw_id"`
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}

// EventType returns the event type for ReplayProgressData
func (d *ReplayProgressData) EventType() EventType {
	return ReplayProgress
}

// ReplayCompletedData contains data for ReplayCompleted events
type ReplayCompletedData struct {
	RunID      string  `json:"run_id"`
	Namespace  string  `json:"namespace"`
	Status     string  `json:"status"`
	Processed  int     `json:"processed"`
	Skipped    int     `json:"skipped"`
	Failed     int     `json:"failed"`
	DurationMs float64 `json:"duration_ms"`
}

// EventType returns the event type for ReplayCompletedData
func (d *ReplayCompletedData) EventType() EventType {
	return ReplayCompleted
}

// RankingRefreshedData contains data for RankingRefreshed events
type RankingRefreshedData struct {
	Ranked  int `json:"ranked"`
	Omitted int `json:"omitted"`
	Failed  int `json:"failed"`
}

// EventType returns the event type for RankingRefreshedData
func (d *RankingRefreshedData) EventType() EventType {
	return RankingRefreshed
}

// CacheRefreshedData contains data for CacheRefreshed events
type CacheRefreshedData struct {
	Refreshed int               `json:"refreshed"`
	Failed    map[string]string `json:"failed,omitempty"`
}

// EventType returns the event type for CacheRefreshedData
func (d *CacheRefreshedData) EventType() EventType {
	return CacheRefreshed
}

// StagingCommittedData contains data for StagingCommitted events
type StagingCommittedData struct {
	Strategy string `json:"strategy"`
	Promoted int    `json:"promoted"`
	Replaced int64  `json:"replaced"`
}

// EventType returns the event type for StagingCommittedData
func (d *StagingCommittedData) EventType() EventType {
	return StagingCommitted
}

// StagingDiscardedData contains data for StagingDiscarded events
type StagingDiscardedData struct {
	Strategy string `json:"strategy"`
	Removed  int64  `json:"removed"`
}

// EventType returns the event type for StagingDiscardedData
func (d *StagingDiscardedData) EventType() EventType {
	return StagingDiscarded
}

// JobStatusData contains data for work processor lifecycle events
type JobStatusData struct {
	JobID       string                 `json:"job_id"`
	JobType     string                 `json:"job_type"`
	Status      string                 `json:"status"`
	Description string                 `json:"description"`
	Error       string                 `json:"error,omitempty"`
	Duration    float64                `json:"duration,omitempty"` // seconds
	Progress    map[string]interface{} `json:"progress,omitempty"`
}

// EventType returns the event type for JobStatusData
func (d *JobStatusData) EventType() EventType {
	switch d.Status {
	case "started":
		return JobStarted
	case "completed":
		return JobCompleted
	case "failed":
		return JobFailed
	default:
		return JobProgress
	}
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}
