// Package ports defines the core interfaces for the application.
package ports

import (
	"context"

	"go.trai.ch/bench/internal/core/domain"
)

// Executor is the external collaborator that actually runs an execution unit.
// The engine treats it as opaque: it only requires that the call eventually
// returns, and that a non-nil error carries a diagnostic message for the
// Failed result.
//
//go:generate go run go.uber.org/mock/mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Run executes the given unit descriptor and blocks until it completes
	// or ctx is cancelled.
	Run(ctx context.Context, unit *domain.Unit) (domain.Outcome, error)
}
