package domain

import "go.trai.ch/zerr"

var (
	// ErrDuplicateIdentifier is returned when an entity is registered under an
	// identifier that already exists with a conflicting definition.
	ErrDuplicateIdentifier = zerr.New("duplicate identifier")

	// ErrNotFound is returned when a requested entity does not exist in the store.
	ErrNotFound = zerr.New("entity not found")

	// ErrUnresolvedDependency is returned when a referenced Data, Model,
	// Workload or Platform identifier is absent from the entity store.
	ErrUnresolvedDependency = zerr.New("unresolved dependency")

	// ErrCyclicDependency is returned when the merged unit graph contains a cycle.
	ErrCyclicDependency = zerr.New("cyclic dependency")

	// ErrDeviceUnavailable is returned when no device can ever satisfy a unit's
	// requirement, as opposed to transient busyness.
	ErrDeviceUnavailable = zerr.New("device unavailable")

	// ErrUnitAlreadyExists is returned when two distinct unit definitions
	// collide on the same fingerprint.
	ErrUnitAlreadyExists = zerr.New("unit already exists")

	// ErrRunNotFound is returned when a run handle references an unknown run.
	ErrRunNotFound = zerr.New("run not found")

	// ErrRunFailed is returned by a run that finished with failed units.
	ErrRunFailed = zerr.New("run finished with failures")
)
