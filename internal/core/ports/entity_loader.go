package ports

import "go.trai.ch/bench/internal/core/domain"

// EntityLoader supplies validated entity records to the entity store at
// startup. The engine never parses raw configuration itself.
//
//go:generate go run go.uber.org/mock/mockgen -source=entity_loader.go -destination=mocks/mock_entity_loader.go -package=mocks
type EntityLoader interface {
	// Load reads the manifest at the given path and returns the declared
	// entities in declaration order.
	Load(path string) ([]domain.Entity, error)
}
