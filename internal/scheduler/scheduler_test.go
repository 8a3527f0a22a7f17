package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/augur/internal/config"
	"github.com/aristath/augur/internal/database"
	testingpkg "github.com/aristath/augur/internal/testing"
	"github.com/aristath/augur/internal/work"
)

type fakeQueue struct {
	queued []string
	err    error
}

func (f *fakeQueue) Enqueue(workTypeID, subject string) error {
	if f.err != nil {
		return f.err
	}
	f.queued = append(f.queued, workTypeID)
	return nil
}

func TestScheduler_AddJobRejectsBadSchedules(t *testing.T) {
	s := New(zerolog.Nop())

	assert.Error(t, s.AddJob("not a schedule", NewEnqueueJob(work.TypeReplay, &fakeQueue{})))
	assert.Error(t, s.AddJob("*/5 * * * *", NewEnqueueJob(work.TypeReplay, &fakeQueue{})), "six fields are required")
	assert.NoError(t, s.AddJob("0 */5 * * * *", NewEnqueueJob(work.TypeReplay, &fakeQueue{})))
	assert.Equal(t, 1, s.Len())

	err := s.AddJob("0 */10 * * * *", NewEnqueueJob(work.TypeReplay, &fakeQueue{}))
	assert.ErrorContains(t, err, "already scheduled")
	assert.Equal(t, 1, s.Len())
}

func TestScheduler_Entries(t *testing.T) {
	s := New(zerolog.Nop())
	require.NoError(t, s.AddJob("0 5 * * * *", NewEnqueueJob(work.TypeRanking, &fakeQueue{})))
	require.NoError(t, s.AddJob("0 */30 * * * *", NewEnqueueJob(work.TypeCache, &fakeQueue{})))

	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "enqueue cache:refresh", entries[0].Name)
	assert.Equal(t, "0 */30 * * * *", entries[0].Schedule)
	assert.Equal(t, "enqueue ranking:refresh", entries[1].Name)
	assert.True(t, entries[1].Next.IsZero(), "not started")

	s.Start()
	defer s.Stop()
	assert.Eventually(t, func() bool {
		for _, e := range s.Entries() {
			if e.Next.IsZero() {
				return false
			}
		}
		return true
	}, time.Second, 10*time.Millisecond)
}

type panicJob struct{ runs chan struct{} }

func (j *panicJob) Name() string { return "panics" }
func (j *panicJob) Run() error {
	j.runs <- struct{}{}
	panic("boom")
}

func TestScheduler_RecoversPanickingJobs(t *testing.T) {
	s := New(zerolog.Nop())
	job := &panicJob{runs: make(chan struct{}, 4)}
	require.NoError(t, s.AddJob("@every 1s", job))

	s.Start()
	defer s.Stop()
	for i := 0; i < 2; i++ {
		select {
		case <-job.runs:
		case <-time.After(5 * time.Second):
			t.Fatal("job did not run again after panicking")
		}
	}
}

func TestEnqueueJob(t *testing.T) {
	q := &fakeQueue{}
	job := NewEnqueueJob(work.TypeRanking, q)

	assert.Equal(t, "enqueue ranking:refresh", job.Name())
	require.NoError(t, New(zerolog.Nop()).RunNow(job))
	assert.Equal(t, []string{work.TypeRanking}, q.queued)

	q.err = errors.New("unknown work type")
	assert.Error(t, job.Run())
}

func TestRegisterJobs(t *testing.T) {
	cfg := config.ScheduleConfig{
		Replay:  "0 */30 * * * *",
		Ranking: "0 5 * * * *",
		Cache:   "",
		Backup:  "0 0 3 * * *",
	}

	s := New(zerolog.Nop())
	require.NoError(t, RegisterJobs(s, cfg, &fakeQueue{}, false))
	assert.Equal(t, 2, s.Len(), "empty and backup schedules are skipped")

	s = New(zerolog.Nop())
	require.NoError(t, RegisterJobs(s, cfg, &fakeQueue{}, true))
	assert.Equal(t, 3, s.Len())

	cfg.Ranking = "bogus"
	assert.Error(t, RegisterJobs(New(zerolog.Nop()), cfg, &fakeQueue{}, false))
}

func TestCheckWALCheckpointsJob(t *testing.T) {
	dbs := testingpkg.NewTestDatabases(t)

	job := NewCheckWALCheckpointsJob(zerolog.Nop(), dbs.History, nil, dbs.Ledger)
	assert.Equal(t, "check_wal_checkpoints", job.Name())
	assert.NoError(t, job.Run())

	assert.NoError(t, NewCheckWALCheckpointsJob(zerolog.Nop(), []*database.DB{nil}...).Run(), "nil databases are ignored")
}
