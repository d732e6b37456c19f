package ports

import "go.trai.ch/bench/internal/core/domain"

// ResultStore persists results keyed by unit fingerprint. The result cache is
// layered on top of this; the engine only requires get/put/list semantics,
// not a specific storage technology.
//
//go:generate go run go.uber.org/mock/mockgen -source=result_store.go -destination=mocks/mock_result_store.go -package=mocks
type ResultStore interface {
	// Get retrieves the result for a fingerprint.
	// Returns nil, nil on a miss.
	Get(fp domain.Fingerprint) (*domain.Result, error)

	// Put stores the result, overwriting any previous entry for the same
	// fingerprint.
	Put(result domain.Result) error

	// List returns all stored results in ascending fingerprint order.
	List() ([]domain.Result, error)
}
