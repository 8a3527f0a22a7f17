package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/augur/internal/domain"
	"github.com/aristath/augur/internal/events"
	"github.com/aristath/augur/internal/modules/evaluation"
	"github.com/aristath/augur/internal/modules/ranking"
	"github.com/aristath/augur/internal/modules/strategies"
)

// plan splits the selected strategies by how they are replayed.
type plan struct {
	direct    []strategies.Strategy
	ensembles []*strategies.Ensemble
	selected  map[string]bool
	// members is the union of ensemble members in first-seen order.
	members   []strategies.Strategy
	memberSet map[string]bool
}

func newPlan(selected []strategies.Strategy) *plan {
	p := &plan{selected: make(map[string]bool), memberSet: make(map[string]bool)}
	for _, st := range selected {
		p.selected[st.Descriptor().Name] = true
		if e, ok := st.(*strategies.Ensemble); ok {
			p.ensembles = append(p.ensembles, e)
			continue
		}
		p.direct = append(p.direct, st)
	}

	for _, e := range p.ensembles {
		for _, name := range e.Members() {
			if p.memberSet[name] {
				continue
			}
			m, _ := e.Member(name)
			p.memberSet[name] = true
			p.members = append(p.members, m)
		}
	}
	return p
}

func (p *plan) names() []string {
	out := make([]string, 0, len(p.direct)+len(p.ensembles))
	for _, st := range p.direct {
		out = append(out, st.Descriptor().Name)
	}
	for _, e := range p.ensembles {
		out = append(out, e.Descriptor().Name)
	}
	return out
}

func (p *plan) memberNames() []string {
	out := make([]string, len(p.members))
	for i, m := range p.members {
		out[i] = m.Descriptor().Name
	}
	return out
}

// computed returns every non-ensemble strategy whose output is needed per draw.
func (p *plan) computed() []strategies.Strategy {
	out := append([]strategies.Strategy(nil), p.direct...)
	for _, m := range p.members {
		if !p.selected[m.Descriptor().Name] {
			out = append(out, m)
		}
	}
	return out
}

// derived maps each computed complement whose base is also computed to that
// base. Its output is taken from the base output instead of predicting twice.
func (p *plan) derived() map[string]strategies.Strategy {
	computed := p.computed()
	byName := make(map[string]strategies.Strategy, len(computed))
	for _, st := range computed {
		byName[st.Descriptor().Name] = st
	}

	out := make(map[string]strategies.Strategy)
	for _, st := range computed {
		base, ok := strategies.ComplementBase(st)
		if !ok {
			continue
		}
		if b, ok := byName[base.Descriptor().Name]; ok {
			out[st.Descriptor().Name] = b
		}
	}
	return out
}

type outcome struct {
	predicted domain.CandidateSet
	err       error
}

// replay is the state of one Run.
type replay struct {
	sim     *Simulator
	plan    *plan
	history domain.History
	first   int
	last    int
	summary *Summary
	weights ranking.Source
	derived map[string]strategies.Strategy
}

// trailing returns the replay window before draw index i. The slice is
// capacity-capped so a strategy cannot reach draw i or later.
func (r *replay) trailing(i int) domain.History {
	lo := i - r.sim.engine.ReplayWindow
	if lo < 0 {
		lo = 0
	}
	return r.history[lo:i:i]
}

func (r *replay) windowed(ctx context.Context) error {
	window, err := r.weightWindow(ctx)
	if err != nil {
		return err
	}
	for i := r.first; i < r.last; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.step(ctx, i, nil, window)
		if err := r.tick(ctx, i); err != nil {
			return err
		}
	}
	return nil
}

// incremental walks history once. Incremental strategies keep a State that
// observes every draw after predicting it; other strategies fall back to the
// trailing window.
func (r *replay) incremental(ctx context.Context) error {
	states := make(map[string]strategies.State)
	for _, st := range r.plan.computed() {
		name := st.Descriptor().Name
		if _, ok := r.derived[name]; ok {
			continue
		}
		if inc, ok := st.(strategies.Incremental); ok {
			states[name] = inc.NewState()
		}
	}

	for _, d := range r.history[:r.first] {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.observe(states, d)
	}

	window, err := r.weightWindow(ctx)
	if err != nil {
		return err
	}

	for i := r.first; i < r.last; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.step(ctx, i, states, window)
		r.observe(states, r.history[i])
		if err := r.tick(ctx, i); err != nil {
			return err
		}
	}
	return nil
}

// weightWindow returns the rolling window point-in-time ensemble weights come
// from, or nil when the run has no ensembles or uses a fixed source. The window
// is fed with member results of the draws already walked, so the weights for
// draw i only reflect draws before i. Members are computed whether or not they
// were selected.
func (r *replay) weightWindow(ctx context.Context) (*ranking.Window, error) {
	if len(r.plan.ensembles) == 0 || r.weights != nil || r.first >= r.last {
		return nil, nil
	}
	return r.seedWindow(ctx)
}

// step predicts draw i for every selected strategy. States must not have
// observed draw i yet.
func (r *replay) step(ctx context.Context, i int, states map[string]strategies.State, window *ranking.Window) {
	s := r.sim
	draw := r.history[i]
	out := &drawOutputs{
		replay:  r,
		ctx:     ctx,
		hist:    r.trailing(i),
		states:  states,
		outputs: make(map[string]outcome),
	}

	for _, st := range r.plan.direct {
		name := st.Descriptor().Name
		if !r.needsRecord(ctx, draw, name) {
			continue
		}
		o := out.get(st)
		if o.err != nil {
			s.fail(r.summary, draw, name, o.err)
			continue
		}
		s.persist(ctx, r.summary, draw, name, o.predicted)
	}

	if len(r.plan.ensembles) > 0 {
		r.vote(ctx, draw, out, window)
	}

	if window != nil {
		for _, m := range r.plan.members {
			name := m.Descriptor().Name
			if o := out.get(m); o.err == nil {
				window.Add(name, evaluation.Evaluate(name, o.predicted, draw.Primary).Accuracy)
			}
		}
	}
}

func (r *replay) vote(ctx context.Context, draw domain.Draw, out *drawOutputs, window *ranking.Window) {
	s := r.sim

	var snap ranking.Snapshot
	var snapErr error
	if window != nil {
		snap = window.Snapshot(time.Now().UTC())
	} else {
		snap, snapErr = r.weights.SnapshotBefore(ctx, draw.ID)
	}

	for _, e := range r.plan.ensembles {
		name := e.Descriptor().Name
		if !r.needsRecord(ctx, draw, name) {
			continue
		}
		if snapErr != nil {
			s.fail(r.summary, draw, name, snapErr)
			continue
		}
		predicted, err := e.VoteWith(snap, out.hist, func(m strategies.Strategy) (domain.CandidateSet, error) {
			o := out.get(m)
			return o.predicted, o.err
		})
		if err != nil {
			s.fail(r.summary, draw, name, err)
			continue
		}
		s.persist(ctx, r.summary, draw, name, predicted)
	}
}

// drawOutputs computes each strategy's prediction for one draw at most once.
type drawOutputs struct {
	replay  *replay
	ctx     context.Context
	hist    domain.History
	states  map[string]strategies.State
	outputs map[string]outcome
}

func (d *drawOutputs) get(st strategies.Strategy) outcome {
	desc := st.Descriptor()
	if o, ok := d.outputs[desc.Name]; ok {
		return o
	}

	game := d.replay.sim.game
	var o outcome
	if base, ok := d.replay.derived[desc.Name]; ok {
		b := d.get(base)
		if b.err != nil {
			o.err = fmt.Errorf("strategy %s failed: %w", desc.Name, b.err)
		} else {
			o.predicted = strategies.ComplementFrom(b.predicted, game)
		}
	} else if state, ok := d.states[desc.Name]; ok {
		o.predicted, o.err = strategies.RunState(desc.Name, desc.Kind, state, d.hist, game)
	} else {
		o.predicted, o.err = strategies.Run(d.ctx, st, d.hist, game)
	}
	d.outputs[desc.Name] = o
	return o
}

// seedWindow loads member records from before the first target draw.
func (r *replay) seedWindow(ctx context.Context) (*ranking.Window, error) {
	s := r.sim
	window := ranking.NewWindow(s.engine.RankingWindow)
	before := r.history[r.first].ID

	for _, name := range r.plan.memberNames() {
		recs, err := s.sink.Recent(ctx, name, before, s.engine.RankingWindow)
		if err != nil {
			return nil, fmt.Errorf("failed to seed ranking window for %s: %w", name, err)
		}
		accuracies := make([]float64, len(recs))
		for i, rec := range recs {
			accuracies[i] = rec.Accuracy
		}
		window.Seed(name, accuracies)
	}
	return window, nil
}

// observe feeds d to every state. A state that panics is dropped and its
// strategy falls back to windowed prediction for the rest of the run.
func (r *replay) observe(states map[string]strategies.State, d domain.Draw) {
	for name, st := range states {
		if err := strategies.ObserveState(name, st, d); err != nil {
			r.sim.log.Error().
				Err(err).
				Str("strategy", name).
				Int64("draw_id", d.ID).
				Msg("Dropping strategy state after observe failure")
			delete(states, name)
		}
	}
}

// needsRecord reports whether (draw, name) still has to be computed. Existing
// records are counted as skipped.
func (r *replay) needsRecord(ctx context.Context, draw domain.Draw, name string) bool {
	exists, err := r.sim.sink.Exists(ctx, draw.ID, name)
	if err != nil {
		r.sim.fail(r.summary, draw, name, fmt.Errorf("failed to check existing record: %w", err))
		return false
	}
	if exists {
		r.sim.skip(r.summary, name)
		return false
	}
	return true
}

// tick reports progress after every batch and pauses between batches.
func (r *replay) tick(ctx context.Context, i int) error {
	s := r.sim
	done := i - r.first + 1
	total := r.last - r.first
	batch := s.engine.BatchSize
	if batch < 1 {
		batch = 1
	}
	if done%batch != 0 && done != total {
		return nil
	}

	draw := r.history[i]
	s.log.Info().
		Str("run_id", r.summary.RunID).
		Int("current", done).
		Int("total", total).
		Int64("draw_id", draw.ID).
		Int("processed", r.summary.Processed).
		Int("skipped", r.summary.Skipped).
		Int("failed", r.summary.Failed).
		Msg("Replay progress")
	s.emit(events.ReplayProgress, &events.ReplayProgressData{
		RunID:     r.summary.RunID,
		Namespace: string(r.summary.Namespace),
		Current:   done,
		Total:     total,
		DrawID:    draw.ID,
		Processed: r.summary.Processed,
		Skipped:   r.summary.Skipped,
		Failed:    r.summary.Failed,
	})

	if done == total || s.engine.BatchPause <= 0 {
		return nil
	}
	timer := time.NewTimer(s.engine.BatchPause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
