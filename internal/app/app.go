// Package app implements the application layer for bench.
package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.trai.ch/bench/internal/core/domain"
	"go.trai.ch/bench/internal/core/ports"
	"go.trai.ch/bench/internal/engine/planner"
	"go.trai.ch/bench/internal/engine/query"
	"go.trai.ch/bench/internal/engine/registry"
	"go.trai.ch/bench/internal/engine/scheduler"
	"go.trai.ch/zerr"
)

// App coordinates the full submit/status/cancel/results lifecycle: it loads
// entities into the store, evaluates queries, builds the merged graph and
// hands it to the scheduler.
type App struct {
	store     *registry.Store
	evaluator *query.Evaluator
	builder   *planner.Builder
	scheduler *scheduler.Scheduler
	loader    ports.EntityLoader
	logger    ports.Logger

	mu   sync.Mutex
	runs map[string]*Run
	seq  int
}

// New creates a new App instance.
func New(
	store *registry.Store,
	evaluator *query.Evaluator,
	builder *planner.Builder,
	sched *scheduler.Scheduler,
	loader ports.EntityLoader,
	logger ports.Logger,
) *App {
	return &App{
		store:     store,
		evaluator: evaluator,
		builder:   builder,
		scheduler: sched,
		loader:    loader,
		logger:    logger,
		runs:      make(map[string]*Run),
	}
}

// RunOptions configure a submitted run.
type RunOptions struct {
	// Force bypasses the result cache; every unit is recomputed.
	Force bool
	// Parallelism bounds concurrently dispatched units. Zero means 1.
	Parallelism int
}

// LoadManifest loads the manifest at path and registers every declared entity.
func (a *App) LoadManifest(path string) error {
	entities, err := a.loader.Load(path)
	if err != nil {
		return zerr.Wrap(err, "failed to load manifest")
	}

	for _, e := range entities {
		if err := a.store.Register(e); err != nil {
			return err
		}
	}
	return nil
}

// Submit evaluates the query, builds the merged execution graph and starts it
// asynchronously, returning a run handle. Evaluation, planning and device
// feasibility errors abort before anything executes. A query selecting no
// instances yields an empty run that completes immediately.
func (a *App) Submit(ctx context.Context, pred domain.Expr, opts RunOptions) (*Run, error) {
	instances, err := a.evaluator.Instances(pred)
	if err != nil {
		return nil, err
	}
	if len(instances) == 0 {
		a.logger.Warn("query selected no instances")
	}

	graph, err := a.builder.Build(instances)
	if err != nil {
		return nil, err
	}

	exec, err := a.scheduler.Start(ctx, graph, a.store.Devices(), scheduler.Options{
		Parallelism: opts.Parallelism,
		Force:       opts.Force,
	})
	if err != nil {
		return nil, err
	}

	run := &Run{
		ID:        a.nextRunID(),
		Instances: len(instances),
		exec:      exec,
		done:      make(chan struct{}),
	}

	a.mu.Lock()
	a.runs[run.ID] = run
	a.mu.Unlock()

	go a.finish(run)
	return run, nil
}

// finish waits for the run and writes its results back to the entity store.
func (a *App) finish(run *Run) {
	err := run.exec.Wait()
	for _, r := range run.exec.Results() {
		a.store.RecordResult(r)
	}
	run.err = err
	close(run.done)
}

// Run submits the query and blocks until the run finishes, returning its
// summary. The error wraps ErrRunFailed when any unit failed.
func (a *App) Run(ctx context.Context, pred domain.Expr, opts RunOptions) (Summary, error) {
	run, err := a.Submit(ctx, pred, opts)
	if err != nil {
		return Summary{}, err
	}

	if err := run.Wait(); err != nil {
		return run.Summary(), zerr.Wrap(domain.ErrRunFailed, err.Error())
	}
	return run.Summary(), nil
}

// GetRun returns the run handle for an identifier.
func (a *App) GetRun(id string) (*Run, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	run, ok := a.runs[id]
	if !ok {
		return nil, zerr.With(zerr.Wrap(domain.ErrRunNotFound, "unknown run handle"), "run", id)
	}
	return run, nil
}

// Runs returns all submitted runs ordered by identifier.
func (a *App) Runs() []*Run {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]*Run, 0, len(a.runs))
	for _, r := range a.runs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (a *App) nextRunID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seq++
	return fmt.Sprintf("run-%04d", a.seq)
}

// RunState is the aggregate state of a run.
type RunState string

// Aggregate run states.
const (
	RunRunning   RunState = "Running"
	RunSucceeded RunState = "Succeeded"
	RunFailed    RunState = "Failed"
	RunCancelled RunState = "Cancelled"
)

// Run is the handle for one submitted query run.
type Run struct {
	// ID identifies the run within this process.
	ID string
	// Instances is the number of task instances the query selected.
	Instances int

	exec *scheduler.Execution
	err  error
	done chan struct{}
}

// Wait blocks until the run finishes and returns its aggregate error.
func (r *Run) Wait() error {
	<-r.done
	return r.err
}

// Cancel requests cooperative cancellation. Already-completed units and their
// cached results remain valid.
func (r *Run) Cancel() {
	r.exec.Cancel()
}

// State returns the aggregate run state.
func (r *Run) State() RunState {
	select {
	case <-r.done:
	default:
		return RunRunning
	}

	switch {
	case r.err == nil:
		return RunSucceeded
	case errors.Is(r.err, context.Canceled):
		return RunCancelled
	default:
		return RunFailed
	}
}

// UnitStatuses returns a snapshot of per-unit states.
func (r *Run) UnitStatuses() map[domain.Fingerprint]domain.UnitStatus {
	return r.exec.Statuses()
}

// Unit returns the graph unit for a fingerprint.
func (r *Run) Unit(fp domain.Fingerprint) (domain.Unit, bool) {
	return r.exec.Unit(fp)
}

// Results returns the results recorded so far in ascending fingerprint order.
func (r *Run) Results() []domain.Result {
	return r.exec.Results()
}

// Summary tallies a run's unit states.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Cancelled int
}

// Summary tallies the run's current unit states.
func (r *Run) Summary() Summary {
	var s Summary
	for _, st := range r.exec.Statuses() {
		s.Total++
		switch st {
		case domain.StatusSucceeded:
			s.Succeeded++
		case domain.StatusFailed:
			s.Failed++
		case domain.StatusSkippedCached:
			s.Skipped++
		case domain.StatusCancelled:
			s.Cancelled++
		}
	}
	return s
}
