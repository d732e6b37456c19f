// Package planner expands selected task instances into the merged,
// deduplicated execution graph.
package planner

import (
	"go.trai.ch/bench/internal/core/domain"
	"go.trai.ch/bench/internal/engine/query"
	"go.trai.ch/bench/internal/engine/registry"
	"go.trai.ch/zerr"
)

// Builder derives execution units from task instances and their transitive
// data/model dependencies.
type Builder struct {
	store *registry.Store
}

// New creates a Builder over the given store.
func New(store *registry.Store) *Builder {
	return &Builder{store: store}
}

// Build expands each instance into its pipeline of execution units
// (resolve-data* -> resolve-model* -> load-runtime -> execute -> persist) and
// merges the pipelines on unit fingerprints. It fails with
// ErrUnresolvedDependency when a referenced entity is missing, with
// ErrDeviceUnavailable when an instance's device requirement can never be
// satisfied, and with ErrCyclicDependency when the merged graph contains a
// cycle. All of these abort before any execution starts.
func (b *Builder) Build(instances []query.Instance) (*domain.Graph, error) {
	g := domain.NewGraph()

	for _, inst := range instances {
		if err := b.checkDeviceFeasible(inst.Requirement); err != nil {
			return nil, err
		}
		if err := b.addPipeline(g, inst); err != nil {
			return nil, err
		}
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func (b *Builder) addPipeline(g *domain.Graph, inst query.Instance) error {
	var inputs []domain.Fingerprint

	for _, dataID := range inst.Workload.Data {
		fp, err := b.addDataUnits(g, dataID, nil)
		if err != nil {
			return err
		}
		inputs = append(inputs, fp)
	}

	for _, modelID := range inst.Workload.Models {
		fp, err := b.addModelUnits(g, modelID, nil)
		if err != nil {
			return err
		}
		inputs = append(inputs, fp)
	}

	runtimeFP, err := addUnit(g, runtimeUnit(inst.Platform))
	if err != nil {
		return err
	}

	executeFP, err := addUnit(g, executeUnit(inst, append(inputs, runtimeFP)))
	if err != nil {
		return err
	}

	_, err = addUnit(g, persistUnit(inst, executeFP))
	return err
}

// addDataUnits adds the resolve unit for a data entity plus the resolve units
// of everything that generates it. visiting guards direct self-recursion;
// mutual cycles survive construction and are rejected by graph validation.
func (b *Builder) addDataUnits(g *domain.Graph, id domain.InternedString, visiting map[domain.InternedString]bool) (domain.Fingerprint, error) {
	if visiting == nil {
		visiting = make(map[domain.InternedString]bool)
	}

	entity, err := b.store.Lookup(domain.KindData, id)
	if err != nil {
		return "", zerr.With(zerr.Wrap(domain.ErrUnresolvedDependency, "data not registered"), "data", id.String())
	}
	data := entity.(domain.Data)

	unit := dataUnit(data)
	if visiting[id] {
		// Already being expanded higher up this chain; just return the
		// fingerprint so the requiring unit gets its edge.
		return unit.Fingerprint, nil
	}
	visiting[id] = true
	defer delete(visiting, id)

	for _, ref := range data.GeneratedBy {
		var depFP domain.Fingerprint
		switch ref.Kind {
		case domain.KindModel:
			depFP, err = b.addModelUnits(g, ref.ID, visiting)
		case domain.KindData:
			depFP, err = b.addDataUnits(g, ref.ID, visiting)
		default:
			err = zerr.With(zerr.Wrap(domain.ErrUnresolvedDependency, "unsupported generator kind"), "kind", string(ref.Kind))
		}
		if err != nil {
			return "", err
		}
		unit.Requires = append(unit.Requires, depFP)
	}

	return addUnit(g, unit)
}

func (b *Builder) addModelUnits(g *domain.Graph, id domain.InternedString, visiting map[domain.InternedString]bool) (domain.Fingerprint, error) {
	if visiting == nil {
		visiting = make(map[domain.InternedString]bool)
	}

	entity, err := b.store.Lookup(domain.KindModel, id)
	if err != nil {
		return "", zerr.With(zerr.Wrap(domain.ErrUnresolvedDependency, "model not registered"), "model", id.String())
	}
	model := entity.(domain.Model)

	unit := modelUnit(model)
	if visiting[id] {
		return unit.Fingerprint, nil
	}
	visiting[id] = true
	defer delete(visiting, id)

	if model.Data.String() != "" {
		depFP, err := b.addDataUnits(g, model.Data, visiting)
		if err != nil {
			return "", err
		}
		unit.Requires = append(unit.Requires, depFP)
	}

	return addUnit(g, unit)
}

// checkDeviceFeasible raises the configuration-time DeviceUnavailable error
// when no registered device can ever satisfy the requirement. Transient
// busyness is not checked here; that only delays dispatch.
func (b *Builder) checkDeviceFeasible(req domain.DeviceRequirement) error {
	for _, d := range b.store.Devices() {
		if DeviceSatisfies(d, req) {
			return nil
		}
	}
	return zerr.With(
		zerr.Wrap(domain.ErrDeviceUnavailable, "no registered device satisfies requirement"),
		"requirement", req.Descriptor(),
	)
}

// DeviceSatisfies reports whether the device could ever admit a dispatch of
// the requirement. Exclusive devices admit exactly one concurrent dispatch;
// shared devices admit up to their capacity count.
func DeviceSatisfies(d domain.Device, req domain.DeviceRequirement) bool {
	if d.Kind != req.Kind {
		return false
	}
	if d.Exclusive || req.Exclusive {
		// An exclusive dispatch takes the whole device, so slot count is moot.
		return true
	}
	return req.Slots <= max(d.Capacity, 1)
}

func addUnit(g *domain.Graph, u domain.Unit) (domain.Fingerprint, error) {
	if err := g.AddUnit(&u); err != nil {
		return "", err
	}
	return u.Fingerprint, nil
}

// Unit constructors. Each fingerprint is a canonical hash over the unit kind
// and the definition fingerprints of the entities it consumes, which is what
// lets identical sub-steps merge across the experiment matrix.

func dataUnit(data domain.Data) domain.Unit {
	fp := domain.NewDigest().
		Field("unit", string(domain.UnitResolveData)).
		Field("data", string(data.Fingerprint())).
		Sum()
	return domain.Unit{
		Fingerprint: fp,
		Kind:        domain.UnitResolveData,
		Name:        "resolve-data " + data.ID.String(),
		Data:        data.ID,
		Source:      data.Source,
	}
}

func modelUnit(model domain.Model) domain.Unit {
	fp := domain.NewDigest().
		Field("unit", string(domain.UnitResolveModel)).
		Field("model", string(model.Fingerprint())).
		Sum()
	return domain.Unit{
		Fingerprint: fp,
		Kind:        domain.UnitResolveModel,
		Name:        "resolve-model " + model.ID.String(),
		Model:       model.ID,
		Data:        model.Data,
	}
}

func runtimeUnit(platform domain.Platform) domain.Unit {
	fp := domain.NewDigest().
		Field("unit", string(domain.UnitLoadRuntime)).
		Field("platform", platform.ID.String()).
		Field("version", platform.Version).
		Sum()
	return domain.Unit{
		Fingerprint: fp,
		Kind:        domain.UnitLoadRuntime,
		Name:        "load-runtime " + platform.ID.String(),
		Platform:    platform.ID,
	}
}

// executeUnit hashes the unit kind, the consumed input fingerprints, the
// platform identifier and version, the device-requirement descriptor and the
// task parameters. The concrete device identifier is deliberately excluded:
// interchangeable devices of the same kind share one benchmark execution.
// The platform version is included, so a platform upgrade invalidates every
// cached result for that platform.
func executeUnit(inst query.Instance, requires []domain.Fingerprint) domain.Unit {
	req := inst.Requirement
	fp := domain.NewDigest().
		Field("unit", string(domain.UnitExecuteWorkload)).
		Field("workload", inst.Workload.ID.String()).
		Field("operation", inst.Workload.Operation).
		Fingerprints("inputs", requires).
		Field("platform", inst.Platform.ID.String()).
		Field("platform_version", inst.Platform.Version).
		Field("requirement", req.Descriptor()).
		StringMap("params", inst.Params).
		Sum()
	return domain.Unit{
		Fingerprint: fp,
		Kind:        domain.UnitExecuteWorkload,
		Name:        "execute " + inst.Workload.ID.String() + "@" + inst.Platform.ID.String() + "/" + string(req.Kind),
		Requires:    requires,
		Workload:    inst.Workload.ID,
		Platform:    inst.Platform.ID,
		Task:        inst.Task.ID,
		Operation:   inst.Workload.Operation,
		Params:      inst.Params,
		Requirement: &req,
	}
}

func persistUnit(inst query.Instance, executeFP domain.Fingerprint) domain.Unit {
	fp := domain.NewDigest().
		Field("unit", string(domain.UnitPersistResult)).
		Field("execute", string(executeFP)).
		Sum()
	return domain.Unit{
		Fingerprint: fp,
		Kind:        domain.UnitPersistResult,
		Name:        "persist " + inst.Workload.ID.String() + "@" + inst.Platform.ID.String(),
		Requires:    []domain.Fingerprint{executeFP},
		Workload:    inst.Workload.ID,
		Platform:    inst.Platform.ID,
	}
}
