// Package query implements the declarative query evaluator: a materialized
// join over workloads, platforms and devices, filtered by a predicate and the
// compatibility rule.
package query

import (
	"sort"

	"go.trai.ch/bench/internal/core/domain"
	"go.trai.ch/bench/internal/engine/registry"
	"go.trai.ch/zerr"
)

// Instance is one concrete (workload, platform, device) combination selected
// by a query, together with its resolved parameters and device requirement.
type Instance struct {
	Fingerprint domain.Fingerprint
	Task        domain.Task
	Workload    domain.Workload
	Platform    domain.Platform
	Device      domain.Device
	Requirement domain.DeviceRequirement
	Params      map[string]string
}

// Evaluator compiles predicates into instance sets over an entity store.
type Evaluator struct {
	store *registry.Store
}

// New creates an Evaluator over the given store.
func New(store *registry.Store) *Evaluator {
	return &Evaluator{store: store}
}

// Instances evaluates the predicate and returns every valid instance,
// sorted by fingerprint ascending for reproducible downstream scheduling.
//
// A combination is valid when (i) the predicate matches its combined
// attributes and (ii) the compatibility rule holds: the platform's
// capabilities include the workload's operation kind and the device kind
// satisfies the workload's (and task's) device requirement. Incompatible
// combinations are excluded, never errors; a query matching nothing returns
// an empty set.
func (e *Evaluator) Instances(pred domain.Expr) ([]Instance, error) {
	if pred == nil {
		pred = domain.All()
	}

	tasks, err := e.expandTasks()
	if err != nil {
		return nil, err
	}

	platforms := e.store.Platforms()
	devices := e.store.Devices()

	seen := make(map[domain.Fingerprint]bool)
	var instances []Instance

	for _, task := range tasks {
		workload, err := e.lookupWorkload(task)
		if err != nil {
			return nil, err
		}

		candidates, err := e.candidatePlatforms(task, platforms)
		if err != nil {
			return nil, err
		}

		for _, platform := range candidates {
			if !platform.Supports(workload.Operation) {
				continue
			}

			for _, device := range devices {
				if !compatible(workload, task, device) {
					continue
				}

				inst := newInstance(task, workload, platform, device)
				if !pred.Eval(inst.attributes()) {
					continue
				}
				if seen[inst.Fingerprint] {
					continue
				}
				seen[inst.Fingerprint] = true
				instances = append(instances, inst)
			}
		}
	}

	sort.Slice(instances, func(i, j int) bool {
		return instances[i].Fingerprint < instances[j].Fingerprint
	})
	return instances, nil
}

// expandTasks returns the declared tasks plus a synthesized default task for
// every workload that has none, so a bare store still yields the full
// workload×platform×device cross product.
func (e *Evaluator) expandTasks() ([]domain.Task, error) {
	tasks := e.store.Tasks()

	declared := make(map[domain.InternedString]bool)
	for _, t := range tasks {
		declared[t.Workload] = true
	}

	for _, w := range e.store.Workloads() {
		if !declared[w.ID] {
			tasks = append(tasks, domain.Task{ID: w.ID, Workload: w.ID})
		}
	}
	return tasks, nil
}

func (e *Evaluator) lookupWorkload(task domain.Task) (domain.Workload, error) {
	entity, err := e.store.Lookup(domain.KindWorkload, task.Workload)
	if err != nil {
		return domain.Workload{}, zerr.With(
			zerr.Wrap(domain.ErrUnresolvedDependency, "task references unknown workload"),
			"task", task.ID.String(),
		)
	}
	return entity.(domain.Workload), nil
}

// candidatePlatforms honors a task's platform pin when present.
func (e *Evaluator) candidatePlatforms(task domain.Task, all []domain.Platform) ([]domain.Platform, error) {
	if task.Platform.String() == "" {
		return all, nil
	}

	entity, err := e.store.Lookup(domain.KindPlatform, task.Platform)
	if err != nil {
		return nil, zerr.With(
			zerr.Wrap(domain.ErrUnresolvedDependency, "task references unknown platform"),
			"task", task.ID.String(),
		)
	}
	return []domain.Platform{entity.(domain.Platform)}, nil
}

func compatible(workload domain.Workload, task domain.Task, device domain.Device) bool {
	if !workload.AcceptsDevice(device.Kind) {
		return false
	}
	if task.Requirement.Kind != "" && task.Requirement.Kind != device.Kind {
		return false
	}
	return true
}

func newInstance(task domain.Task, workload domain.Workload, platform domain.Platform, device domain.Device) Instance {
	req := task.Requirement
	req.Kind = device.Kind
	if req.Slots <= 0 {
		req.Slots = 1
	}

	params := make(map[string]string, len(workload.Params)+len(task.Params))
	for k, v := range workload.Params {
		params[k] = v
	}
	for k, v := range task.Params {
		params[k] = v
	}

	inst := Instance{
		Task:        task,
		Workload:    workload,
		Platform:    platform,
		Device:      device,
		Requirement: req,
		Params:      params,
	}
	inst.Fingerprint = inst.fingerprint()
	return inst
}

// fingerprint hashes the instance's full input state. The task identifier is
// deliberately excluded: two tasks binding the same workload, parameters,
// platform and device describe the same experiment.
func (i Instance) fingerprint() domain.Fingerprint {
	return domain.NewDigest().
		Field("kind", "instance").
		Field("workload", i.Workload.ID.String()).
		Field("operation", i.Workload.Operation).
		StringMap("params", i.Params).
		Field("platform", i.Platform.ID.String()).
		Field("platform_version", i.Platform.Version).
		Field("device", i.Device.ID.String()).
		Field("requirement", i.Requirement.Descriptor()).
		Sum()
}

// attributes is the combined attribute map the predicate is evaluated over.
// Each entity contributes prefixed attributes; the bare workload/platform/
// device/task keys alias the respective identifiers.
func (i Instance) attributes() map[string]any {
	attrs := make(map[string]any)
	for k, v := range i.Workload.Attributes() {
		attrs["workload."+k] = v
	}
	for k, v := range i.Platform.Attributes() {
		attrs["platform."+k] = v
	}
	for k, v := range i.Device.Attributes() {
		attrs["device."+k] = v
	}
	for k, v := range i.Task.Attributes() {
		attrs["task."+k] = v
	}
	attrs["workload"] = i.Workload.ID.String()
	attrs["platform"] = i.Platform.ID.String()
	attrs["device"] = i.Device.ID.String()
	attrs["task"] = i.Task.ID.String()
	return attrs
}
