// Package registry implements the in-memory entity store.
package registry

import (
	"iter"
	"sort"
	"sync"

	"go.trai.ch/bench/internal/core/domain"
	"go.trai.ch/zerr"
)

// Store holds declared entity records and completed run results. It is
// read-mostly during a run: registration happens at startup, results are
// written back as units finish.
type Store struct {
	mu       sync.RWMutex
	entities map[domain.Kind]map[domain.InternedString]domain.Entity
	// order preserves registration order per kind so Filter is deterministic.
	order   map[domain.Kind][]domain.InternedString
	results []domain.Result
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		entities: make(map[domain.Kind]map[domain.InternedString]domain.Entity),
		order:    make(map[domain.Kind][]domain.InternedString),
	}
}

// Register adds an entity to the store. Re-registering an identical
// definition is a no-op; registering a conflicting definition under an
// existing identifier fails with ErrDuplicateIdentifier. Definitions are
// compared by fingerprint.
func (s *Store) Register(e domain.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kind := e.EntityKind()
	byID, ok := s.entities[kind]
	if !ok {
		byID = make(map[domain.InternedString]domain.Entity)
		s.entities[kind] = byID
	}

	if existing, exists := byID[e.EntityID()]; exists {
		if existing.Fingerprint() == e.Fingerprint() {
			return nil
		}
		return zerr.With(
			zerr.With(
				zerr.Wrap(domain.ErrDuplicateIdentifier, "conflicting redefinition"),
				"kind", string(kind),
			),
			"id", e.EntityID().String(),
		)
	}

	byID[e.EntityID()] = e
	s.order[kind] = append(s.order[kind], e.EntityID())
	return nil
}

// Lookup returns the entity with the given kind and identifier.
func (s *Store) Lookup(kind domain.Kind, id domain.InternedString) (domain.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entities[kind][id]
	if !ok {
		return nil, zerr.With(
			zerr.With(
				zerr.Wrap(domain.ErrNotFound, "lookup failed"),
				"kind", string(kind),
			),
			"id", id.String(),
		)
	}
	return e, nil
}

// Filter returns a restartable iterator over entities of the given kind
// matching the predicate, in registration order. A nil predicate matches
// everything.
func (s *Store) Filter(kind domain.Kind, pred domain.Expr) iter.Seq[domain.Entity] {
	return func(yield func(domain.Entity) bool) {
		for _, e := range s.snapshot(kind) {
			if pred != nil && !pred.Eval(e.Attributes()) {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// snapshot copies the entities of one kind under the read lock so the
// iterator never observes a concurrent registration mid-walk.
func (s *Store) snapshot(kind domain.Kind) []domain.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Entity, 0, len(s.order[kind]))
	for _, id := range s.order[kind] {
		out = append(out, s.entities[kind][id])
	}
	return out
}

// Workloads returns all registered workloads in registration order.
func (s *Store) Workloads() []domain.Workload {
	out := make([]domain.Workload, 0)
	for e := range s.Filter(domain.KindWorkload, nil) {
		out = append(out, e.(domain.Workload))
	}
	return out
}

// Platforms returns all registered platforms in registration order.
func (s *Store) Platforms() []domain.Platform {
	out := make([]domain.Platform, 0)
	for e := range s.Filter(domain.KindPlatform, nil) {
		out = append(out, e.(domain.Platform))
	}
	return out
}

// Devices returns all registered devices in registration order.
func (s *Store) Devices() []domain.Device {
	out := make([]domain.Device, 0)
	for e := range s.Filter(domain.KindDevice, nil) {
		out = append(out, e.(domain.Device))
	}
	return out
}

// Tasks returns all registered tasks in registration order.
func (s *Store) Tasks() []domain.Task {
	out := make([]domain.Task, 0)
	for e := range s.Filter(domain.KindTask, nil) {
		out = append(out, e.(domain.Task))
	}
	return out
}

// RecordResult writes a completed result back to the store.
func (s *Store) RecordResult(r domain.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
}

// Results returns recorded results in ascending fingerprint order.
func (s *Store) Results() []domain.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Result, len(s.results))
	copy(out, s.results)
	sort.Slice(out, func(i, j int) bool { return out[i].Fingerprint < out[j].Fingerprint })
	return out
}
