package work

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Processor is the main work processor that executes work items.
// It processes one work item at a time, respecting dependencies.
type Processor struct {
	registry   *Registry
	completion *CompletionTracker
	emitter    Emitter
	log        zerolog.Logger
	timeout    time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	trigger    chan struct{}
	done       chan struct{}
	stop       chan struct{}
	stopped    chan struct{}
	queued     map[string]*WorkItem
	retryQueue []*WorkItem
	inFlight   map[string]*WorkItem
	running    sync.WaitGroup
	mu         sync.Mutex
}

// Status is a point-in-time view of the processor queues.
type Status struct {
	Queued   []string `json:"queued"`
	InFlight []string `json:"in_flight"`
	Retrying []string `json:"retrying"`

	// Completed lists the last success of each work item, newest first.
	Completed []Completion `json:"completed"`
}

// NewProcessor creates a new work processor.
func NewProcessor(registry *Registry, completion *CompletionTracker, emitter Emitter, log zerolog.Logger) *Processor {
	return NewProcessorWithTimeout(registry, completion, emitter, log, WorkTimeout)
}

// NewProcessorWithTimeout creates a new work processor with a custom timeout.
func NewProcessorWithTimeout(registry *Registry, completion *CompletionTracker, emitter Emitter, log zerolog.Logger, timeout time.Duration) *Processor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Processor{
		registry:   registry,
		completion: completion,
		emitter:    emitter,
		log:        log.With().Str("component", "work_processor").Logger(),
		timeout:    timeout,
		ctx:        ctx,
		cancel:     cancel,
		trigger:    make(chan struct{}, 1),
		done:       make(chan struct{}, 1),
		stop:       make(chan struct{}),
		stopped:    make(chan struct{}),
		queued:     make(map[string]*WorkItem),
		inFlight:   make(map[string]*WorkItem),
	}
}

// Run starts the processor loop. This blocks until Stop() is called.
func (p *Processor) Run() {
	defer close(p.stopped)

	for {
		select {
		case <-p.stop:
			return
		case <-p.trigger:
			p.processOne()
		case <-p.done:
			p.processOne()
		}
	}
}

// Stop stops the processor, cancels running work and waits for it to return.
func (p *Processor) Stop() {
	p.cancel()
	close(p.stop)
	<-p.stopped
	p.running.Wait()
}

// Trigger wakes up the processor to check for work.
// This is non-blocking and can be called from any goroutine.
func (p *Processor) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
		// Trigger already pending
	}
}

// Enqueue queues a work type for a subject and wakes the processor.
// Queueing an item that is already queued is a no-op.
func (p *Processor) Enqueue(workTypeID, subject string) error {
	wt := p.registry.Get(workTypeID)
	if wt == nil {
		return fmt.Errorf("unknown work type: %s", workTypeID)
	}
	p.enqueue(wt, subject)
	p.Trigger()
	return nil
}

func (p *Processor) enqueue(wt *WorkType, subject string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	item := NewWorkItem(wt, subject)
	if _, exists := p.queued[item.ID]; !exists {
		p.queued[item.ID] = item
	}
}

// ExecuteNow runs a work type synchronously, bypassing the queue. Dependents
// are queued on success as if the processor had run it.
func (p *Processor) ExecuteNow(ctx context.Context, workTypeID, subject string) error {
	wt := p.registry.Get(workTypeID)
	if wt == nil {
		return fmt.Errorf("unknown work type: %s", workTypeID)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	item := NewWorkItem(wt, subject)
	if err := p.execute(ctx, item, wt); err != nil {
		return err
	}
	p.succeed(item)
	p.Trigger()
	return nil
}

// Status returns the queued, running and retrying work IDs.
func (p *Processor) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Status{Queued: []string{}, InFlight: []string{}, Retrying: []string{}}
	for id := range p.queued {
		s.Queued = append(s.Queued, id)
	}
	for id := range p.inFlight {
		s.InFlight = append(s.InFlight, id)
	}
	for _, item := range p.retryQueue {
		s.Retrying = append(s.Retrying, item.ID)
	}
	sort.Strings(s.Queued)
	sort.Strings(s.InFlight)
	s.Completed = p.completion.Recent()
	return s
}

// processOne finds and executes the next eligible work item.
func (p *Processor) processOne() {
	p.mu.Lock()
	if len(p.inFlight) > 0 {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	item, wt := p.findNextWork()
	if item == nil {
		item, wt = p.popRetryQueue()
	}
	if item == nil {
		return
	}

	p.mu.Lock()
	p.inFlight[item.ID] = item
	p.mu.Unlock()

	p.running.Add(1)
	go func() {
		defer p.running.Done()
		defer func() {
			p.mu.Lock()
			delete(p.inFlight, item.ID)
			p.mu.Unlock()

			select {
			case p.done <- struct{}{}:
			default:
			}
		}()

		ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
		defer cancel()

		err := p.execute(ctx, item, wt)
		if err == nil {
			p.succeed(item)
			return
		}

		if errors.Is(p.ctx.Err(), context.Canceled) {
			p.log.Warn().Str("work", item.ID).Msg("Work interrupted by shutdown")
			return
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			p.log.Error().Str("work", item.ID).Dur("timeout", p.timeout).Msg("Work timed out")
		} else {
			p.log.Error().Err(err).Str("work", item.ID).Msg("Work failed")
		}

		item.Retries++
		if item.Retries < MaxRetries {
			p.pushRetryQueue(item)
		} else {
			p.log.Warn().Str("work", item.ID).Int("retries", item.Retries).Msg("Max retries reached, skipping")
		}
	}()
}

// findNextWork returns the highest priority eligible item. Queued items come
// before subjects found by FindSubjects or by interval staleness.
func (p *Processor) findNextWork() (*WorkItem, *WorkType) {
	for _, wt := range p.registry.ByPriority() {
		for _, subject := range p.candidates(wt) {
			if p.blocked(wt, subject) {
				continue
			}

			key := makeKey(wt.ID, subject)
			p.mu.Lock()
			item, ok := p.queued[key]
			delete(p.queued, key)
			p.mu.Unlock()
			if !ok {
				item = NewWorkItem(wt, subject)
			}
			return item, wt
		}
	}
	return nil, nil
}

func (p *Processor) candidates(wt *WorkType) []string {
	var subjects []string
	seen := make(map[string]bool)

	p.mu.Lock()
	for _, item := range p.queued {
		if item.TypeID == wt.ID {
			subjects = append(subjects, item.Subject)
			seen[item.Subject] = true
		}
	}
	p.mu.Unlock()
	sort.Strings(subjects)

	var found []string
	switch {
	case wt.FindSubjects != nil:
		found = wt.FindSubjects()
	case wt.Interval > 0:
		found = []string{""}
	}
	for _, subject := range found {
		if seen[subject] {
			continue
		}
		if wt.Interval > 0 && !p.completion.IsStale(wt.ID, subject, wt.Interval) {
			continue
		}
		seen[subject] = true
		subjects = append(subjects, subject)
	}
	return subjects
}

// blocked reports whether a dependency of wt is queued, running or waiting
// for a retry for the same subject, or for any subject when wt is global.
func (p *Processor) blocked(wt *WorkType, subject string) bool {
	if len(wt.DependsOn) == 0 {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	matches := func(item *WorkItem, depID string) bool {
		if item.TypeID != depID {
			return false
		}
		return wt.Global || item.Subject == subject
	}
	for _, depID := range wt.DependsOn {
		for _, item := range p.queued {
			if matches(item, depID) {
				return true
			}
		}
		for _, item := range p.inFlight {
			if matches(item, depID) {
				return true
			}
		}
		for _, item := range p.retryQueue {
			if matches(item, depID) {
				return true
			}
		}
	}
	return false
}

// execute runs wt.Execute with job events and panic recovery.
func (p *Processor) execute(ctx context.Context, item *WorkItem, wt *WorkType) (err error) {
	reporter := NewProgressReporter(p.emitter, item, wt.Description)
	reporter.emitStarted()
	start := time.Now()
	item.StartedAt = start

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("work %s panicked: %v", item.ID, r)
		}
		if err != nil {
			reporter.emitFailed(err, time.Since(start), item.Retries)
			return
		}
		reporter.emitCompleted(time.Since(start))
		p.log.Info().Str("work", item.ID).Dur("duration", time.Since(start)).Msg("Work completed")
	}()

	return wt.Execute(ctx, item.Subject, reporter)
}

// succeed records the completion and queues every dependent for the same subject.
func (p *Processor) succeed(item *WorkItem) {
	p.completion.MarkCompleted(item)
	for _, dep := range p.registry.GetDependents(item.TypeID) {
		if dep.Global {
			p.enqueue(dep, "")
			continue
		}
		p.enqueue(dep, item.Subject)
	}
}

// pushRetryQueue adds an item to the retry queue.
func (p *Processor) pushRetryQueue(item *WorkItem) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.retryQueue = append(p.retryQueue, item)
}

// popRetryQueue removes and returns the first item from the retry queue.
func (p *Processor) popRetryQueue() (*WorkItem, *WorkType) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.retryQueue) == 0 {
		return nil, nil
	}

	item := p.retryQueue[0]
	p.retryQueue = p.retryQueue[1:]

	wt := p.registry.Get(item.TypeID)
	if wt == nil {
		return nil, nil
	}
	return item, wt
}
