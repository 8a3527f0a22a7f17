package work

import (
	"sync"
	"time"

	"github.com/aristath/augur/internal/events"
)

// Emitter publishes job lifecycle events.
type Emitter interface {
	EmitTyped(eventType events.EventType, module string, data events.EventData)
}

// Job status values carried by events.JobStatusData.
const (
	StatusStarted   = "started"
	StatusProgress  = "progress"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Throttle interval for progress events (avoid spam)
const progressThrottleInterval = 100 * time.Millisecond

// ProgressReporter provides progress reporting for work items.
// A nil reporter or a reporter without an emitter drops every report.
type ProgressReporter struct {
	emitter     Emitter
	workID      string
	workType    string
	description string

	lastReport time.Time
	mu         sync.Mutex
}

// NewProgressReporter creates a new progress reporter for a work item
func NewProgressReporter(emitter Emitter, item *WorkItem, description string) *ProgressReporter {
	return &ProgressReporter{
		emitter:     emitter,
		workID:      item.ID,
		workType:    item.TypeID,
		description: description,
	}
}

// Report reports numeric progress (current/total) with a message.
// Progress events are throttled to avoid spam.
func (r *ProgressReporter) Report(current, total int, message string) {
	r.ReportWithDetails(message, map[string]interface{}{
		"current": current,
		"total":   total,
	})
}

// ReportPhase reports a named phase with a message.
func (r *ProgressReporter) ReportPhase(phase, message string) {
	r.ReportWithDetails(message, map[string]interface{}{"phase": phase})
}

// ReportWithDetails reports progress with arbitrary details.
func (r *ProgressReporter) ReportWithDetails(message string, details map[string]interface{}) {
	if r == nil || r.emitter == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if time.Since(r.lastReport) < progressThrottleInterval {
		return
	}
	r.lastReport = time.Now()

	progress := map[string]interface{}{"message": message}
	for k, v := range details {
		progress[k] = v
	}
	r.emit(&events.JobStatusData{
		JobID:       r.workID,
		JobType:     r.workType,
		Status:      StatusProgress,
		Description: r.description,
		Progress:    progress,
	})
}

func (r *ProgressReporter) emitStarted() {
	if r == nil || r.emitter == nil {
		return
	}
	r.emit(&events.JobStatusData{
		JobID:       r.workID,
		JobType:     r.workType,
		Status:      StatusStarted,
		Description: r.description,
	})
}

func (r *ProgressReporter) emitCompleted(duration time.Duration) {
	if r == nil || r.emitter == nil {
		return
	}
	r.emit(&events.JobStatusData{
		JobID:       r.workID,
		JobType:     r.workType,
		Status:      StatusCompleted,
		Description: r.description,
		Duration:    duration.Seconds(),
	})
}

func (r *ProgressReporter) emitFailed(err error, duration time.Duration, retries int) {
	if r == nil || r.emitter == nil {
		return
	}

	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	r.emit(&events.JobStatusData{
		JobID:       r.workID,
		JobType:     r.workType,
		Status:      StatusFailed,
		Description: r.description,
		Error:       errMsg,
		Duration:    duration.Seconds(),
		Progress:    map[string]interface{}{"retries": retries},
	})
}

func (r *ProgressReporter) emit(data *events.JobStatusData) {
	r.emitter.EmitTyped(data.EventType(), "work", data)
}
