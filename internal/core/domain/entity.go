// Package domain contains the core domain model for the benchmark matrix
// engine: declared entities, query expressions, execution units and the
// merged dependency graph.
package domain

import (
	"slices"
	"strconv"
)

// Kind identifies the type of a declared entity.
type Kind string

const (
	// KindTask is a declared parameter binding for a workload.
	KindTask Kind = "task"
	// KindData is a data artifact consumed by workloads.
	KindData Kind = "data"
	// KindModel is a typed data variant with structural parameters.
	KindModel Kind = "model"
	// KindWorkload is an operation to benchmark.
	KindWorkload Kind = "workload"
	// KindPlatform is a runtime that can execute workload operations.
	KindPlatform Kind = "platform"
	// KindDevice is a hardware resource units are dispatched onto.
	KindDevice Kind = "device"
)

// Ref is a typed reference to another declared entity.
type Ref struct {
	Kind Kind
	ID   InternedString
}

// Entity is a declared record held by the entity store. Entities are
// immutable once registered; re-registration of an identical definition is
// detected by comparing definition fingerprints.
type Entity interface {
	EntityID() InternedString
	EntityKind() Kind
	// Attributes exposes the fields the query evaluator may compare against.
	Attributes() map[string]any
	// Fingerprint is a stable hash of the full definition.
	Fingerprint() Fingerprint
}

// DeviceKind classifies a device.
type DeviceKind string

const (
	// DeviceGPU is a GPU device.
	DeviceGPU DeviceKind = "gpu"
	// DeviceCPU is a CPU device.
	DeviceCPU DeviceKind = "cpu"
	// DeviceOther is any other accelerator or host resource.
	DeviceOther DeviceKind = "other"
)

// DeviceRequirement describes what a unit needs from a device.
// Slots is the number of concurrent capacity slots consumed; an exclusive
// requirement admits no co-tenants regardless of remaining capacity.
type DeviceRequirement struct {
	Kind      DeviceKind
	Slots     int64
	Exclusive bool
}

// Descriptor returns the canonical string form used in fingerprints.
func (r DeviceRequirement) Descriptor() string {
	return string(r.Kind) + "/" + strconv.FormatInt(r.Slots, 10) + "/" + strconv.FormatBool(r.Exclusive)
}

// Workload is an operation to benchmark together with its required inputs.
type Workload struct {
	ID        InternedString
	Operation string
	Params    map[string]string
	// Data and Models reference the artifacts the workload consumes.
	Data   []InternedString
	Models []InternedString
	// DeviceKinds restricts which device kinds can run this workload.
	// Empty means any kind is acceptable.
	DeviceKinds []DeviceKind
}

// EntityID implements Entity.
func (w Workload) EntityID() InternedString { return w.ID }

// EntityKind implements Entity.
func (w Workload) EntityKind() Kind { return KindWorkload }

// AcceptsDevice reports whether the workload can run on the given device kind.
func (w Workload) AcceptsDevice(kind DeviceKind) bool {
	if len(w.DeviceKinds) == 0 {
		return true
	}
	return slices.Contains(w.DeviceKinds, kind)
}

// Attributes implements Entity.
func (w Workload) Attributes() map[string]any {
	attrs := map[string]any{
		"id":        w.ID.String(),
		"operation": w.Operation,
	}
	for k, v := range w.Params {
		attrs["param."+k] = v
	}
	return attrs
}

// Fingerprint implements Entity.
func (w Workload) Fingerprint() Fingerprint {
	kinds := make([]string, len(w.DeviceKinds))
	for i, k := range w.DeviceKinds {
		kinds[i] = string(k)
	}
	return NewDigest().
		Field("kind", string(KindWorkload)).
		Field("id", w.ID.String()).
		Field("operation", w.Operation).
		StringMap("params", w.Params).
		SortedStrings("data", internedStrings(w.Data)).
		SortedStrings("models", internedStrings(w.Models)).
		SortedStrings("device_kinds", kinds).
		Sum()
}

// Platform is a runtime with a capability set and a version.
type Platform struct {
	ID           InternedString
	Capabilities []string
	Version      string
}

// EntityID implements Entity.
func (p Platform) EntityID() InternedString { return p.ID }

// EntityKind implements Entity.
func (p Platform) EntityKind() Kind { return KindPlatform }

// Supports reports whether the platform can execute the given operation kind.
func (p Platform) Supports(operation string) bool {
	return slices.Contains(p.Capabilities, operation)
}

// Attributes implements Entity.
func (p Platform) Attributes() map[string]any {
	return map[string]any{
		"id":      p.ID.String(),
		"version": p.Version,
	}
}

// Fingerprint implements Entity.
func (p Platform) Fingerprint() Fingerprint {
	return NewDigest().
		Field("kind", string(KindPlatform)).
		Field("id", p.ID.String()).
		Field("version", p.Version).
		SortedStrings("capabilities", p.Capabilities).
		Sum()
}

// Device is a hardware resource descriptor. Allocation state is not part of
// the entity; it is owned solely by the execution scheduler.
type Device struct {
	ID        InternedString
	Kind      DeviceKind
	Capacity  int64
	Exclusive bool
}

// EntityID implements Entity.
func (d Device) EntityID() InternedString { return d.ID }

// EntityKind implements Entity.
func (d Device) EntityKind() Kind { return KindDevice }

// Attributes implements Entity.
func (d Device) Attributes() map[string]any {
	return map[string]any{
		"id":        d.ID.String(),
		"kind":      string(d.Kind),
		"capacity":  d.Capacity,
		"exclusive": d.Exclusive,
	}
}

// Fingerprint implements Entity.
func (d Device) Fingerprint() Fingerprint {
	return NewDigest().
		Field("kind", string(KindDevice)).
		Field("id", d.ID.String()).
		Field("device_kind", string(d.Kind)).
		Field("capacity", strconv.FormatInt(d.Capacity, 10)).
		Field("exclusive", strconv.FormatBool(d.Exclusive)).
		Sum()
}

// Data is a data artifact with a content fingerprint. Content is the hash of
// the source bytes when the source is materialized, or of the generation
// recipe otherwise, and must be stable across process restarts.
type Data struct {
	ID     InternedString
	Source string
	Recipe string
	// GeneratedBy references entities whose resolution must precede this
	// data's resolution (e.g. a model that produces it).
	GeneratedBy []Ref
	Content     Fingerprint
}

// EntityID implements Entity.
func (d Data) EntityID() InternedString { return d.ID }

// EntityKind implements Entity.
func (d Data) EntityKind() Kind { return KindData }

// Attributes implements Entity.
func (d Data) Attributes() map[string]any {
	return map[string]any{
		"id":     d.ID.String(),
		"source": d.Source,
	}
}

// Fingerprint implements Entity.
func (d Data) Fingerprint() Fingerprint {
	refs := make([]string, len(d.GeneratedBy))
	for i, ref := range d.GeneratedBy {
		refs[i] = string(ref.Kind) + ":" + ref.ID.String()
	}
	return NewDigest().
		Field("kind", string(KindData)).
		Field("id", d.ID.String()).
		Field("source", d.Source).
		Field("recipe", d.Recipe).
		Field("content", string(d.Content)).
		SortedStrings("generated_by", refs).
		Sum()
}

// Model is a typed data variant: a weights artifact plus structural parameters.
type Model struct {
	ID     InternedString
	Data   InternedString
	Params map[string]string
}

// EntityID implements Entity.
func (m Model) EntityID() InternedString { return m.ID }

// EntityKind implements Entity.
func (m Model) EntityKind() Kind { return KindModel }

// Attributes implements Entity.
func (m Model) Attributes() map[string]any {
	return map[string]any{
		"id":   m.ID.String(),
		"data": m.Data.String(),
	}
}

// Fingerprint implements Entity.
func (m Model) Fingerprint() Fingerprint {
	return NewDigest().
		Field("kind", string(KindModel)).
		Field("id", m.ID.String()).
		Field("data", m.Data.String()).
		StringMap("params", m.Params).
		Sum()
}

// Task binds a workload to a parameter set and a device requirement.
// Platform optionally pins the task to one platform; when empty the query
// evaluator expands the task over every compatible platform.
type Task struct {
	ID          InternedString
	Workload    InternedString
	Platform    InternedString
	Requirement DeviceRequirement
	Params      map[string]string
}

// EntityID implements Entity.
func (t Task) EntityID() InternedString { return t.ID }

// EntityKind implements Entity.
func (t Task) EntityKind() Kind { return KindTask }

// Attributes implements Entity.
func (t Task) Attributes() map[string]any {
	attrs := map[string]any{
		"id":       t.ID.String(),
		"workload": t.Workload.String(),
		"platform": t.Platform.String(),
	}
	for k, v := range t.Params {
		attrs["param."+k] = v
	}
	return attrs
}

// Fingerprint implements Entity.
func (t Task) Fingerprint() Fingerprint {
	return NewDigest().
		Field("kind", string(KindTask)).
		Field("id", t.ID.String()).
		Field("workload", t.Workload.String()).
		Field("platform", t.Platform.String()).
		Field("requirement", t.Requirement.Descriptor()).
		StringMap("params", t.Params).
		Sum()
}

func internedStrings(in []InternedString) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = s.String()
	}
	return out
}
