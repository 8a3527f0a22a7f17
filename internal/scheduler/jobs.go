package scheduler

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/augur/internal/config"
	"github.com/aristath/augur/internal/database"
	"github.com/aristath/augur/internal/work"
)

// Enqueuer queues work on the processor.
type Enqueuer interface {
	Enqueue(workTypeID, subject string) error
}

// EnqueueJob queues a global work type. The processor decides when it runs,
// so a slow replay never overlaps the next tick.
type EnqueueJob struct {
	workType string
	queue    Enqueuer
}

// NewEnqueueJob creates a job that queues workType.
func NewEnqueueJob(workType string, queue Enqueuer) *EnqueueJob {
	return &EnqueueJob{workType: workType, queue: queue}
}

// Name returns the job name
func (j *EnqueueJob) Name() string {
	return "enqueue " + j.workType
}

// Run queues the work type
func (j *EnqueueJob) Run() error {
	return j.queue.Enqueue(j.workType, "")
}

// CheckWALCheckpointsJob monitors WAL checkpoint status
type CheckWALCheckpointsJob struct {
	log       zerolog.Logger
	databases []*database.DB
}

// NewCheckWALCheckpointsJob creates a new CheckWALCheckpointsJob. Nil
// databases are ignored.
func NewCheckWALCheckpointsJob(log zerolog.Logger, databases ...*database.DB) *CheckWALCheckpointsJob {
	return &CheckWALCheckpointsJob{
		log:       log.With().Str("job", "check_wal_checkpoints").Logger(),
		databases: databases,
	}
}

// Name returns the job name
func (j *CheckWALCheckpointsJob) Name() string {
	return "check_wal_checkpoints"
}

// Run executes the check WAL checkpoints job
func (j *CheckWALCheckpointsJob) Run() error {
	checkedCount := 0
	for _, db := range j.databases {
		if db == nil {
			continue
		}

		// PRAGMA wal_checkpoint returns: busy, log, checkpointed
		var busy, log, checkpointed int
		err := db.Conn().QueryRow("PRAGMA wal_checkpoint(PASSIVE)").Scan(&busy, &log, &checkpointed)
		if err != nil {
			j.log.Warn().
				Err(err).
				Str("database", db.Name()).
				Msg("Failed to check WAL checkpoint")
			continue
		}

		if log > 1000 {
			j.log.Warn().
				Str("database", db.Name()).
				Int("wal_frames", log).
				Int("checkpointed", checkpointed).
				Msg("WAL file is large, checkpoint may be needed")
		} else {
			j.log.Debug().
				Str("database", db.Name()).
				Int("wal_frames", log).
				Msg("WAL checkpoint status OK")
		}

		checkedCount++
	}

	j.log.Info().
		Int("checked", checkedCount).
		Msg("WAL checkpoint check completed")
	return nil
}

// RegisterJobs wires the configured schedules. Empty schedules are skipped;
// the backup schedule is only used when backup work is registered.
func RegisterJobs(s *Scheduler, cfg config.ScheduleConfig, queue Enqueuer, hasBackup bool, databases ...*database.DB) error {
	schedules := []struct {
		schedule string
		workType string
	}{
		{cfg.Replay, work.TypeReplay},
		{cfg.Ranking, work.TypeRanking},
		{cfg.Cache, work.TypeCache},
	}
	if hasBackup {
		schedules = append(schedules, struct {
			schedule string
			workType string
		}{cfg.Backup, work.TypeBackup})
	}

	for _, sc := range schedules {
		if sc.schedule == "" {
			continue
		}
		if err := s.AddJob(sc.schedule, NewEnqueueJob(sc.workType, queue)); err != nil {
			return fmt.Errorf("invalid schedule %q for %s: %w", sc.schedule, sc.workType, err)
		}
	}

	if len(databases) > 0 {
		if err := s.AddJob("0 0 * * * *", NewCheckWALCheckpointsJob(s.log, databases...)); err != nil {
			return fmt.Errorf("failed to schedule WAL checks: %w", err)
		}
	}
	return nil
}
