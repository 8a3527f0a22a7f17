package work

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressReporter_Throttles(t *testing.T) {
	rec := &recorder{}
	item := &WorkItem{ID: "replay:incremental", TypeID: "replay:incremental"}
	reporter := NewProgressReporter(rec, item, "replay")

	reporter.Report(1, 10, "first")
	reporter.Report(2, 10, "dropped")
	time.Sleep(progressThrottleInterval + 10*time.Millisecond)
	reporter.ReportPhase("ranking", "after the throttle window")

	require.Len(t, rec.events, 2)
	assert.Equal(t, StatusProgress, rec.events[0].Status)
	assert.Equal(t, 1, rec.events[0].Progress["current"])
	assert.Equal(t, "first", rec.events[0].Progress["message"])
	assert.Equal(t, "ranking", rec.events[1].Progress["phase"])
}

func TestProgressReporter_NilSafe(t *testing.T) {
	var reporter *ProgressReporter
	assert.NotPanics(t, func() {
		reporter.Report(1, 2, "x")
		reporter.ReportPhase("p", "x")
		reporter.emitStarted()
		reporter.emitCompleted(time.Second)
		reporter.emitFailed(nil, time.Second, 0)
	})

	assert.NotPanics(t, func() {
		NewProgressReporter(nil, &WorkItem{ID: "a"}, "").Report(1, 2, "x")
	})
}
