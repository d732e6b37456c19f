// Package scheduler walks the merged graph in dependency order and dispatches
// ready units onto constrained devices.
package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.trai.ch/bench/internal/core/domain"
	"go.trai.ch/bench/internal/core/ports"
	"go.trai.ch/bench/internal/engine/cache"
	"go.trai.ch/zerr"
)

// Scheduler dispatches execution units to the external executor, consulting
// the result cache for skip decisions. It is stateless across runs; per-run
// state lives in the Execution it starts.
type Scheduler struct {
	executor ports.Executor
	cache    *cache.ResultCache
	tracer   ports.Tracer
	logger   ports.Logger
}

// New creates a Scheduler with the given collaborators.
func New(executor ports.Executor, resultCache *cache.ResultCache, tracer ports.Tracer, logger ports.Logger) *Scheduler {
	return &Scheduler{
		executor: executor,
		cache:    resultCache,
		tracer:   tracer,
		logger:   logger,
	}
}

// Options configure a single run.
type Options struct {
	// Parallelism bounds the number of concurrently dispatched units.
	Parallelism int
	// Force bypasses the result cache; every unit is recomputed and its
	// cache entry overwritten.
	Force bool
}

// Execution is one in-flight or finished run of a merged graph.
//
// The run loop is the sole mutator of the ready queue, the in-degree table
// and the device allocator. The status and result maps are guarded for the
// many concurrent readers behind Statuses/Results.
type Execution struct {
	s           *Scheduler
	graph       *domain.Graph
	allocator   *Allocator
	units       map[domain.Fingerprint]domain.Unit
	parallelism int
	force       bool

	ctx    context.Context
	cancel context.CancelFunc

	// Loop-owned state.
	inDegree  map[domain.Fingerprint]int
	ready     []domain.Fingerprint
	active    int
	resultsCh chan unitResult
	errs      error

	mu       sync.RWMutex
	statuses map[domain.Fingerprint]domain.UnitStatus
	results  map[domain.Fingerprint]domain.Result

	done chan struct{}
}

type unitResult struct {
	fp       domain.Fingerprint
	outcome  domain.Outcome
	err      error
	skipped  bool
	cached   *domain.Result
	alloc    *Allocation
	duration time.Duration
}

// Start begins executing the graph and returns immediately with a handle.
// The graph must already have passed validation; Start re-validates to keep
// the acyclicity invariant local.
func (s *Scheduler) Start(ctx context.Context, graph *domain.Graph, devices []domain.Device, opts Options) (*Execution, error) {
	if err := graph.Validate(); err != nil {
		return nil, err
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	e := &Execution{
		s:           s,
		graph:       graph,
		allocator:   NewAllocator(devices),
		units:       make(map[domain.Fingerprint]domain.Unit, graph.UnitCount()),
		parallelism: opts.Parallelism,
		force:       opts.Force,
		ctx:         ctx,
		cancel:      cancel,
		inDegree:    make(map[domain.Fingerprint]int, graph.UnitCount()),
		resultsCh:   make(chan unitResult, opts.Parallelism),
		statuses:    make(map[domain.Fingerprint]domain.UnitStatus, graph.UnitCount()),
		results:     make(map[domain.Fingerprint]domain.Result),
		done:        make(chan struct{}),
	}

	planned := make([]string, 0, graph.UnitCount())
	for unit := range graph.Walk() {
		e.units[unit.Fingerprint] = unit
		e.inDegree[unit.Fingerprint] = len(unit.Requires)
		e.statuses[unit.Fingerprint] = domain.StatusPending
		planned = append(planned, unit.Name)
	}
	for fp, degree := range e.inDegree {
		if degree == 0 {
			e.pushReady(fp)
		}
	}

	s.tracer.EmitPlan(ctx, planned)

	go e.loop()
	return e, nil
}

// Wait blocks until the run finishes and returns its aggregate error.
func (e *Execution) Wait() error {
	<-e.done
	return e.errs
}

// Cancel requests cooperative cancellation. Pending and ready units become
// Cancelled; in-flight dispatches are cancelled through their context and are
// not cached. Already-succeeded units and their cached results remain valid.
func (e *Execution) Cancel() {
	e.cancel()
}

// Statuses returns a snapshot of per-unit states.
func (e *Execution) Statuses() map[domain.Fingerprint]domain.UnitStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[domain.Fingerprint]domain.UnitStatus, len(e.statuses))
	for fp, st := range e.statuses {
		out[fp] = st
	}
	return out
}

// Results returns the results recorded so far, in ascending fingerprint order.
func (e *Execution) Results() []domain.Result {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]domain.Result, 0, len(e.results))
	for _, r := range e.results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Fingerprint < out[j].Fingerprint })
	return out
}

// Unit returns the graph unit for a fingerprint.
func (e *Execution) Unit(fp domain.Fingerprint) (domain.Unit, bool) {
	u, ok := e.units[fp]
	return u, ok
}

func (e *Execution) loop() {
	defer close(e.done)
	defer e.cancel()

	for !e.isDone() {
		if e.ctx.Err() != nil {
			e.drainCancelled()
			break
		}

		e.schedule()

		if e.isDone() {
			break
		}

		if e.active == 0 && len(e.ready) > 0 {
			// Nothing in flight will ever free capacity for the remaining
			// ready units, so their requirements are unsatisfiable.
			e.failUnschedulable()
			continue
		}

		select {
		case res := <-e.resultsCh:
			e.handleResult(res)
		case <-e.ctx.Done():
		}
	}

	if e.ctx.Err() != nil {
		e.errs = errors.Join(e.errs, e.ctx.Err())
	}
}

// drainCancelled marks everything not yet dispatched as Cancelled and waits
// for in-flight units to come back.
func (e *Execution) drainCancelled() {
	e.markPendingCancelled()
	for e.active > 0 {
		e.handleResult(<-e.resultsCh)
	}
}

func (e *Execution) markPendingCancelled() {
	e.mu.Lock()
	for fp, st := range e.statuses {
		if !st.Terminal() && st != domain.StatusDispatched {
			e.statuses[fp] = domain.StatusCancelled
		}
	}
	e.mu.Unlock()
	e.ready = nil
}

func (e *Execution) isDone() bool {
	return e.active == 0 && len(e.ready) == 0
}

// schedule dispatches as many ready units as parallelism and device capacity
// admit. The ready queue is fingerprint-ascending, so dispatch order among
// simultaneously ready, resource-eligible units is deterministic; a unit
// whose device is busy is passed over, not failed.
func (e *Execution) schedule() {
	i := 0
	for i < len(e.ready) && e.active < e.parallelism && e.ctx.Err() == nil {
		fp := e.ready[i]
		unit := e.units[fp]

		var alloc *Allocation
		if unit.Requirement != nil {
			a, ok := e.allocator.TryAcquire(*unit.Requirement)
			if !ok {
				i++
				continue
			}
			alloc = a
		}

		e.ready = append(e.ready[:i], e.ready[i+1:]...)
		e.active++
		e.setStatus(fp, domain.StatusDispatched)

		go e.runUnit(unit, alloc)
	}
}

func (e *Execution) runUnit(unit domain.Unit, alloc *Allocation) {
	// Complete the span before sending the result so the loop never observes
	// a finished unit with an open span.
	res := func() unitResult {
		ctx, span := e.s.tracer.Start(e.ctx, unit.Name)
		defer span.End()

		cached, err := e.s.cache.Skippable(unit.Fingerprint, e.force)
		if err != nil {
			span.RecordError(err)
			return unitResult{fp: unit.Fingerprint, err: err, alloc: alloc}
		}
		if cached != nil {
			span.SetAttribute("bench.cached", true)
			return unitResult{fp: unit.Fingerprint, skipped: true, cached: cached, alloc: alloc}
		}

		started := time.Now()
		outcome, err := e.s.executor.Run(ctx, &unit)
		if err != nil {
			span.RecordError(err)
		}

		return unitResult{
			fp:       unit.Fingerprint,
			outcome:  outcome,
			err:      err,
			alloc:    alloc,
			duration: time.Since(started),
		}
	}()

	e.resultsCh <- res
}

func (e *Execution) handleResult(res unitResult) {
	e.active--
	res.alloc.Release()

	unit := e.units[res.fp]

	switch {
	case res.skipped:
		e.recordSkip(unit, res)
		e.unblockDependents(res.fp)
	case res.err != nil && e.ctx.Err() != nil && errors.Is(res.err, context.Canceled):
		// Cooperatively cancelled in flight. Not a failure, never cached.
		e.setStatus(res.fp, domain.StatusCancelled)
	case res.err != nil:
		e.recordFailure(unit, res)
		e.failDependents(res.fp)
	default:
		e.recordSuccess(unit, res)
		e.unblockDependents(res.fp)
	}
}

func (e *Execution) recordSkip(unit domain.Unit, res unitResult) {
	result := *res.cached
	result.Status = domain.ResultSkippedCached
	e.setResult(unit.Fingerprint, domain.StatusSkippedCached, result)
}

func (e *Execution) recordSuccess(unit domain.Unit, res unitResult) {
	result := domain.Result{
		Fingerprint: unit.Fingerprint,
		Unit:        unit.Name,
		Status:      domain.ResultSucceeded,
		Artifacts:   res.outcome.Artifacts,
		Metrics:     res.outcome.Metrics,
		Duration:    res.duration,
		Timestamp:   time.Now(),
	}
	if err := e.s.cache.Put(result); err != nil {
		// A cache write failure degrades incrementality, not correctness.
		e.s.logger.Error(err)
	}
	e.setResult(unit.Fingerprint, domain.StatusSucceeded, result)
}

func (e *Execution) recordFailure(unit domain.Unit, res unitResult) {
	result := domain.Result{
		Fingerprint: unit.Fingerprint,
		Unit:        unit.Name,
		Status:      domain.ResultFailed,
		Error:       res.err.Error(),
		Duration:    res.duration,
		Timestamp:   time.Now(),
	}
	// Failed results are recorded for diagnostics but the cache skip policy
	// never honors them, so the unit is re-attempted on the next run.
	if err := e.s.cache.Put(result); err != nil {
		e.s.logger.Error(err)
	}
	e.setResult(unit.Fingerprint, domain.StatusFailed, result)

	e.errs = errors.Join(e.errs, zerr.With(
		zerr.Wrap(res.err, "unit execution failed"),
		"unit", unit.Name,
	))
}

// unblockDependents moves dependents whose dependencies all succeeded or were
// skipped into the ready queue.
func (e *Execution) unblockDependents(fp domain.Fingerprint) {
	for _, dep := range e.graph.Dependents(fp) {
		e.inDegree[dep]--
		if e.inDegree[dep] == 0 && e.status(dep) == domain.StatusPending {
			e.pushReady(dep)
		}
	}
}

// failDependents propagates a failure downstream: every unit transitively
// depending on the failed unit ends in Failed without ever being dispatched.
// Independent branches of the merged graph are unaffected.
func (e *Execution) failDependents(fp domain.Fingerprint) {
	for _, dep := range e.graph.Dependents(fp) {
		if e.status(dep).Terminal() {
			continue
		}
		unit := e.units[dep]
		e.setResult(dep, domain.StatusFailed, domain.Result{
			Fingerprint: dep,
			Unit:        unit.Name,
			Status:      domain.ResultFailed,
			Error:       "upstream dependency failed",
			Timestamp:   time.Now(),
		})
		e.failDependents(dep)
	}
}

// failUnschedulable terminates ready units whose device requirement cannot be
// satisfied by any idle device. The planner rejects infeasible requirements up
// front, so this only fires for graphs started directly with a mismatched
// device pool.
func (e *Execution) failUnschedulable() {
	stuck := e.ready
	e.ready = nil
	for _, fp := range stuck {
		unit := e.units[fp]
		err := zerr.With(
			zerr.Wrap(domain.ErrDeviceUnavailable, "no device can admit unit"),
			"unit", unit.Name,
		)
		e.setResult(fp, domain.StatusFailed, domain.Result{
			Fingerprint: fp,
			Unit:        unit.Name,
			Status:      domain.ResultFailed,
			Error:       err.Error(),
			Timestamp:   time.Now(),
		})
		e.errs = errors.Join(e.errs, err)
		e.failDependents(fp)
	}
}

// pushReady inserts the fingerprint keeping the ready queue sorted ascending.
func (e *Execution) pushReady(fp domain.Fingerprint) {
	i := sort.Search(len(e.ready), func(i int) bool { return e.ready[i] >= fp })
	e.ready = append(e.ready, "")
	copy(e.ready[i+1:], e.ready[i:])
	e.ready[i] = fp
	e.setStatus(fp, domain.StatusReady)
}

func (e *Execution) setStatus(fp domain.Fingerprint, st domain.UnitStatus) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.statuses[fp] = st
}

func (e *Execution) status(fp domain.Fingerprint) domain.UnitStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.statuses[fp]
}

func (e *Execution) setResult(fp domain.Fingerprint, st domain.UnitStatus, r domain.Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.statuses[fp] = st
	e.results[fp] = r
}
