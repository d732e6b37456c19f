package domain

// UnitKind identifies a pipeline stage within a task instance.
type UnitKind string

const (
	// UnitResolveData materializes and verifies a data artifact.
	UnitResolveData UnitKind = "resolve-data"
	// UnitResolveModel materializes a model's weights and parameters.
	UnitResolveModel UnitKind = "resolve-model"
	// UnitLoadRuntime prepares a platform runtime.
	UnitLoadRuntime UnitKind = "load-runtime"
	// UnitExecuteWorkload runs the benchmark itself.
	UnitExecuteWorkload UnitKind = "execute-workload"
	// UnitPersistResult writes the benchmark outcome back.
	UnitPersistResult UnitKind = "persist-result"
)

// UnitStatus is the scheduler-side lifecycle state of a unit.
type UnitStatus string

const (
	// StatusPending indicates the unit is waiting on dependencies.
	StatusPending UnitStatus = "Pending"
	// StatusReady indicates all dependencies succeeded or were skipped.
	StatusReady UnitStatus = "Ready"
	// StatusDispatched indicates the unit is running on the executor.
	StatusDispatched UnitStatus = "Dispatched"
	// StatusSucceeded indicates the unit completed successfully.
	StatusSucceeded UnitStatus = "Succeeded"
	// StatusFailed indicates the unit failed, directly or via a failed dependency.
	StatusFailed UnitStatus = "Failed"
	// StatusSkippedCached indicates the unit was skipped on a cache hit.
	StatusSkippedCached UnitStatus = "Skipped-Cached"
	// StatusCancelled indicates the run was cancelled before the unit finished.
	StatusCancelled UnitStatus = "Cancelled"
)

// Terminal reports whether the status is a terminal state.
func (s UnitStatus) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusSkippedCached, StatusCancelled:
		return true
	default:
		return false
	}
}

// Unit is one node of the merged execution graph. Its fingerprint is a stable
// hash over the unit kind, the fingerprints of the data/model artifacts it
// consumes, the platform identifier and version, the device requirement and
// the task parameters, so identical sub-steps across task instances share one
// node.
type Unit struct {
	Fingerprint Fingerprint
	Kind        UnitKind
	Name        string
	Requires    []Fingerprint

	// Entity references, populated per kind.
	Workload InternedString
	Platform InternedString
	Device   InternedString
	Data     InternedString
	Model    InternedString
	Task     InternedString

	// Operation and Params describe the benchmark invocation for
	// execute-workload units.
	Operation string
	Params    map[string]string
	// Source is the data source descriptor for resolve-data units.
	Source string
	// Requirement is non-nil for units that occupy a device.
	Requirement *DeviceRequirement
}
