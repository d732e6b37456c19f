package domain

import "time"

// ResultStatus is the terminal outcome recorded for an execution unit.
type ResultStatus string

const (
	// ResultSucceeded indicates the unit's external run completed successfully.
	ResultSucceeded ResultStatus = "Succeeded"
	// ResultFailed indicates the unit's external run failed.
	ResultFailed ResultStatus = "Failed"
	// ResultSkippedCached indicates the unit was skipped because a cached
	// Succeeded result existed for its fingerprint.
	ResultSkippedCached ResultStatus = "Skipped-Cached"
)

// Outcome is what the external executor reports for a dispatched unit.
type Outcome struct {
	Artifacts map[string]string
	Metrics   map[string]float64
}

// Result is the recorded outcome of an execution unit, keyed by the unit's
// fingerprint. Results are never mutated after creation; a re-run produces a
// new Result which may overwrite the cache entry for the same fingerprint.
type Result struct {
	Fingerprint Fingerprint        `json:"fingerprint"`
	Unit        string             `json:"unit,omitzero"`
	Status      ResultStatus       `json:"status"`
	Artifacts   map[string]string  `json:"artifacts,omitzero"`
	Metrics     map[string]float64 `json:"metrics,omitzero"`
	Error       string             `json:"error,omitzero"`
	Duration    time.Duration      `json:"duration,omitzero"`
	Timestamp   time.Time          `json:"timestamp,omitzero"`
}
