// Package backtest replays strategies against historical draws and persists
// one performance record per (draw, strategy).
//
// The prediction for draw i is computed from draws strictly before i. Windowed
// replay hands each strategy a capacity-capped trailing slice; incremental
// replay feeds Incremental strategies one draw at a time, calling PredictNext
// before Observe. Records are checked with Exists before computing and inserted
// with a conflict clause, so replays are idempotent and can be resumed after
// any interruption without checkpoints or locks.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/augur/internal/config"
	"github.com/aristath/augur/internal/domain"
	"github.com/aristath/augur/internal/events"
	"github.com/aristath/augur/internal/metrics"
	"github.com/aristath/augur/internal/modules/evaluation"
	"github.com/aristath/augur/internal/modules/ranking"
	"github.com/aristath/augur/internal/modules/strategies"
)

// RunStore persists the audit row of a replay.
type RunStore interface {
	Save(ctx context.Context, run *domain.ReplayRun) error
}

// Emitter publishes replay lifecycle events.
type Emitter interface {
	EmitTyped(eventType events.EventType, module string, data events.EventData)
}

// Options selects what a replay covers.
type Options struct {
	// Strategies to replay. Empty means every active strategy.
	Strategies []string
	// FromDraw and ToDraw bound the target draws by ID, inclusive. Zero is unbounded.
	FromDraw int64
	ToDraw   int64
	// Mode defaults to incremental.
	Mode domain.ReplayMode
	// Weighting defaults to point-in-time.
	Weighting domain.Weighting
	// Limit keeps only the most recent Limit target draws. Zero is unlimited.
	Limit int
}

// Counts tallies the outcome of one strategy.
type Counts struct {
	Processed int `json:"processed"` // new records written
	Skipped   int `json:"skipped"`   // records already present
	Failed    int `json:"failed"`    // strategy errored or panicked
}

// Summary is the result of a replay.
type Summary struct {
	RunID      string             `json:"run_id"`
	Namespace  domain.Namespace   `json:"namespace"`
	Mode       domain.ReplayMode  `json:"mode"`
	Weighting  domain.Weighting   `json:"weighting"`
	Status     domain.RunStatus   `json:"status"`
	FromDraw   int64              `json:"from_draw"`
	ToDraw     int64              `json:"to_draw"`
	Draws      int                `json:"draws"`
	Strategies map[string]*Counts `json:"strategies"`
	Processed  int                `json:"processed"`
	Skipped    int                `json:"skipped"`
	Failed     int                `json:"failed"`
	Duration   time.Duration      `json:"duration"`
	// LookAhead is set when ensemble weights came from the current ranking
	// rather than from records before each draw.
	LookAhead bool `json:"look_ahead"`
}

func (s *Summary) count(name string) *Counts {
	c, ok := s.Strategies[name]
	if !ok {
		c = &Counts{}
		s.Strategies[name] = c
	}
	return c
}

func (s *Summary) processed(name string) {
	s.count(name).Processed++
	s.Processed++
}

func (s *Summary) skipped(name string) {
	s.count(name).Skipped++
	s.Skipped++
}

func (s *Summary) failed(name string) {
	s.count(name).Failed++
	s.Failed++
}

// Simulator runs replays into one performance sink.
type Simulator struct {
	draws   domain.DrawStore
	sink    domain.PerformanceSink
	active  *strategies.ActiveSet
	current ranking.Provider
	runs    RunStore
	engine  config.EngineConfig
	game    config.GameConfig
	metrics *metrics.Registry
	emitter Emitter
	log     zerolog.Logger
}

// Config wires a Simulator. Runs, Current, Metrics and Emitter are optional.
type Config struct {
	Draws  domain.DrawStore
	Sink   domain.PerformanceSink
	Active *strategies.ActiveSet
	// Current supplies the stored ranking for snapshot weighting.
	Current ranking.Provider
	Runs    RunStore
	Engine  config.EngineConfig
	Metrics *metrics.Registry
	Emitter Emitter
}

// NewSimulator creates a simulator writing to cfg.Sink.
func NewSimulator(cfg Config, log zerolog.Logger) *Simulator {
	return &Simulator{
		draws:   cfg.Draws,
		sink:    cfg.Sink,
		active:  cfg.Active,
		current: cfg.Current,
		runs:    cfg.Runs,
		engine:  cfg.Engine,
		game:    cfg.Active.Registry().Game(),
		metrics: cfg.Metrics,
		emitter: cfg.Emitter,
		log: log.With().
			Str("module", "backtest").
			Str("namespace", string(cfg.Sink.Namespace())).
			Logger(),
	}
}

// Namespace returns the namespace the simulator writes to.
func (s *Simulator) Namespace() domain.Namespace {
	return s.sink.Namespace()
}

// Run replays the selected strategies over the selected draws.
//
// Per-strategy failures are counted and never abort the run. Cancelling ctx
// stops between draws; every record already written is valid and a later run
// resumes where this one stopped. The returned summary is non-nil whenever the
// replay started, including on cancellation.
func (s *Simulator) Run(ctx context.Context, opts Options) (*Summary, error) {
	if opts.Mode == "" {
		opts.Mode = domain.ModeIncremental
	}
	if opts.Weighting == "" {
		opts.Weighting = domain.WeightingPointInTime
	}
	if opts.Mode != domain.ModeIncremental && opts.Mode != domain.ModeWindowed {
		return nil, fmt.Errorf("unknown replay mode %q", opts.Mode)
	}
	if opts.Weighting != domain.WeightingPointInTime && opts.Weighting != domain.WeightingSnapshot {
		return nil, fmt.Errorf("unknown weighting %q", opts.Weighting)
	}

	selected, err := s.resolve(ctx, opts.Strategies)
	if err != nil {
		return nil, err
	}

	history, err := s.draws.List(ctx, domain.DrawQuery{Order: domain.OrderAsc})
	if err != nil {
		return nil, fmt.Errorf("failed to load draws: %w", err)
	}
	first, last := targetRange(history, opts)

	plan := newPlan(selected)
	summary := &Summary{
		RunID:      uuid.New().String(),
		Namespace:  s.sink.Namespace(),
		Mode:       opts.Mode,
		Weighting:  opts.Weighting,
		Status:     domain.RunRunning,
		Strategies: make(map[string]*Counts, len(selected)),
		LookAhead:  opts.Weighting == domain.WeightingSnapshot && len(plan.ensembles) > 0,
	}
	for _, st := range selected {
		summary.count(st.Descriptor().Name)
	}
	if first < last {
		summary.FromDraw = history[first].ID
		summary.ToDraw = history[last-1].ID
		summary.Draws = last - first
	}

	weights, err := s.weightSource(ctx, opts, plan)
	if err != nil {
		return nil, err
	}

	startedAt := time.Now().UTC().Truncate(time.Second)
	run := &domain.ReplayRun{
		ID:        summary.RunID,
		Mode:      opts.Mode,
		Weighting: opts.Weighting,
		Namespace: summary.Namespace,
		FromDraw:  summary.FromDraw,
		ToDraw:    summary.ToDraw,
		Status:    domain.RunRunning,
		StartedAt: startedAt,
	}
	if len(opts.Strategies) == 1 {
		run.Strategy = opts.Strategies[0]
	}
	s.saveRun(ctx, run)

	if summary.LookAhead {
		s.log.Warn().
			Str("run_id", summary.RunID).
			Msg("Snapshot weighting uses the current ranking for every draw; ensemble records include look-ahead")
	}

	s.log.Info().
		Str("run_id", summary.RunID).
		Str("mode", string(opts.Mode)).
		Str("weighting", string(opts.Weighting)).
		Int("strategies", len(selected)).
		Int("draws", summary.Draws).
		Msg("Replay started")
	s.emit(events.ReplayStarted, &events.ReplayStartedData{
		RunID:      summary.RunID,
		Namespace:  string(summary.Namespace),
		Mode:       string(opts.Mode),
		Weighting:  string(opts.Weighting),
		Strategies: plan.names(),
		Draws:      summary.Draws,
	})

	stop := s.metrics.StartReplay(string(opts.Mode))
	start := time.Now()

	r := &replay{
		sim:     s,
		plan:    plan,
		history: history,
		first:   first,
		last:    last,
		summary: summary,
		weights: weights,
		derived: plan.derived(),
	}
	if opts.Mode == domain.ModeIncremental {
		err = r.incremental(ctx)
	} else {
		err = r.windowed(ctx)
	}

	stop()
	summary.Duration = time.Since(start)

	switch {
	case err == nil:
		summary.Status = domain.RunCompleted
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		summary.Status = domain.RunCancelled
	default:
		summary.Status = domain.RunFailed
	}

	finishedAt := time.Now().UTC().Truncate(time.Second)
	run.Processed = summary.Processed
	run.Skipped = summary.Skipped
	run.Failed = summary.Failed
	run.Status = summary.Status
	run.FinishedAt = &finishedAt
	s.saveRun(context.WithoutCancel(ctx), run)

	s.log.Info().
		Str("run_id", summary.RunID).
		Str("status", string(summary.Status)).
		Int("processed", summary.Processed).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Dur("duration", summary.Duration).
		Msg("Replay finished")
	s.emit(events.ReplayCompleted, &events.ReplayCompletedData{
		RunID:      summary.RunID,
		Namespace:  string(summary.Namespace),
		Status:     string(summary.Status),
		Processed:  summary.Processed,
		Skipped:    summary.Skipped,
		Failed:     summary.Failed,
		DurationMs: float64(summary.Duration.Microseconds()) / 1000,
	})

	return summary, err
}

// resolve maps requested names to strategies. Production replays refuse
// strategies that are registered but not yet committed.
func (s *Simulator) resolve(ctx context.Context, names []string) ([]strategies.Strategy, error) {
	if len(names) == 0 {
		active, err := s.active.Active(ctx)
		if err != nil {
			return nil, err
		}
		return active, nil
	}

	reg := s.active.Registry()
	out := make([]strategies.Strategy, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		st, ok := reg.Get(name)
		if !ok {
			return nil, fmt.Errorf("strategy %s: %w", name, domain.ErrNotFound)
		}
		if s.sink.Namespace() == domain.NamespaceProduction {
			active, err := s.active.IsActive(ctx, name)
			if err != nil {
				return nil, err
			}
			if !active {
				return nil, fmt.Errorf("strategy %s: %w", name, domain.ErrStrategyInactive)
			}
		}
		out = append(out, st)
	}
	return out, nil
}

// weightSource picks where ensemble weights come from.
func (s *Simulator) weightSource(ctx context.Context, opts Options, p *plan) (ranking.Source, error) {
	if len(p.ensembles) == 0 {
		return nil, nil
	}
	if opts.Weighting == domain.WeightingSnapshot {
		if s.current == nil {
			return nil, fmt.Errorf("snapshot weighting requires a stored ranking")
		}
		snap, err := s.current.Current(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load current ranking: %w", err)
		}
		return ranking.NewFixed(snap), nil
	}
	// Point-in-time weights come from the replay's own rolling window.
	return nil, nil
}

func (s *Simulator) saveRun(ctx context.Context, run *domain.ReplayRun) {
	if s.runs == nil {
		return
	}
	if err := s.runs.Save(ctx, run); err != nil {
		s.log.Error().Err(err).Str("run_id", run.ID).Msg("Failed to save replay run")
	}
}

func (s *Simulator) emit(eventType events.EventType, data events.EventData) {
	if s.emitter == nil {
		return
	}
	s.emitter.EmitTyped(eventType, "backtest", data)
}

// persist evaluates a prediction and stores it unless it already exists.
func (s *Simulator) persist(ctx context.Context, summary *Summary, draw domain.Draw, name string, predicted domain.CandidateSet) domain.PerformanceRecord {
	rec := evaluation.Record(draw, name, predicted)
	inserted, err := s.sink.Insert(ctx, rec)
	switch {
	case err != nil:
		s.fail(summary, draw, name, err)
	case inserted:
		summary.processed(name)
		s.metrics.RecordReplay(string(s.sink.Namespace()), name, metrics.ResultInserted)
	default:
		// another replay of the same strategy got there first
		summary.skipped(name)
		s.metrics.RecordReplay(string(s.sink.Namespace()), name, metrics.ResultSkipped)
	}
	return rec
}

func (s *Simulator) fail(summary *Summary, draw domain.Draw, name string, err error) {
	summary.failed(name)
	s.metrics.RecordReplay(string(s.sink.Namespace()), name, metrics.ResultFailed)
	s.log.Error().
		Err(err).
		Str("strategy", name).
		Int64("draw_id", draw.ID).
		Msg("Strategy failed during replay")
}

func (s *Simulator) skip(summary *Summary, name string) {
	summary.skipped(name)
	s.metrics.RecordReplay(string(s.sink.Namespace()), name, metrics.ResultSkipped)
}

// targetRange returns the half-open index range of target draws.
func targetRange(history domain.History, opts Options) (int, int) {
	first, last := len(history), 0
	for i, d := range history {
		if opts.FromDraw > 0 && d.ID < opts.FromDraw {
			continue
		}
		if opts.ToDraw > 0 && d.ID > opts.ToDraw {
			continue
		}
		if i < first {
			first = i
		}
		last = i + 1
	}
	if first >= last {
		return 0, 0
	}
	if opts.Limit > 0 && last-first > opts.Limit {
		first = last - opts.Limit
	}
	return first, last
}
