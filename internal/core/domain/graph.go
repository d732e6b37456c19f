package domain

import (
	"iter"
	"sort"

	"go.trai.ch/zerr"
)

// Graph is the merged, deduplicated DAG of execution units. Units are keyed
// by fingerprint; adding a unit whose fingerprint already exists merges into
// the existing node.
type Graph struct {
	units          map[Fingerprint]Unit
	dependents     map[Fingerprint][]Fingerprint
	executionOrder []Fingerprint
}

// NewGraph creates a new empty Graph.
func NewGraph() *Graph {
	return &Graph{
		units:      make(map[Fingerprint]Unit),
		dependents: make(map[Fingerprint][]Fingerprint),
	}
}

// AddUnit adds a unit to the graph, merging on fingerprint. Two units with
// the same fingerprint are by construction the same input state, so the merge
// is a no-op; a kind mismatch on an existing fingerprint indicates a
// programming error and is rejected.
func (g *Graph) AddUnit(u *Unit) error {
	if existing, ok := g.units[u.Fingerprint]; ok {
		if existing.Kind != u.Kind {
			return zerr.With(
				zerr.Wrap(ErrUnitAlreadyExists, "kind mismatch on fingerprint"),
				"fingerprint", string(u.Fingerprint),
			)
		}
		return nil
	}
	g.units[u.Fingerprint] = *u
	return nil
}

// GetUnit returns the unit with the given fingerprint.
func (g *Graph) GetUnit(fp Fingerprint) (Unit, bool) {
	u, ok := g.units[fp]
	return u, ok
}

// UnitCount returns the number of units in the graph.
func (g *Graph) UnitCount() int {
	return len(g.units)
}

// Validate checks that every required fingerprint exists and that the graph
// is acyclic, using a depth-first topological sort. On success it populates
// the execution order and the dependents index.
func (g *Graph) Validate() error {
	g.executionOrder = make([]Fingerprint, 0, len(g.units))
	g.dependents = make(map[Fingerprint][]Fingerprint, len(g.units))

	visited := make(map[Fingerprint]int) // 0: unvisited, 1: visiting, 2: visited
	var path []Fingerprint

	var visit func(fp Fingerprint) error
	visit = func(fp Fingerprint) error {
		visited[fp] = 1
		path = append(path, fp)

		unit, exists := g.units[fp]
		if !exists {
			return zerr.With(
				zerr.Wrap(ErrUnresolvedDependency, "required unit missing from graph"),
				"fingerprint", string(fp),
			)
		}

		for _, dep := range unit.Requires {
			if visited[dep] == 1 {
				return g.buildCycleError(path, dep)
			}
			if visited[dep] == 0 {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		visited[fp] = 2
		path = path[:len(path)-1]
		g.executionOrder = append(g.executionOrder, fp)
		return nil
	}

	// Visit roots in sorted fingerprint order so the execution order, and
	// therefore everything downstream of it, is reproducible.
	for _, fp := range g.sortedFingerprints() {
		if visited[fp] == 0 {
			if err := visit(fp); err != nil {
				return err
			}
		}
	}

	for fp, unit := range g.units {
		for _, dep := range unit.Requires {
			g.dependents[dep] = append(g.dependents[dep], fp)
		}
	}
	for dep := range g.dependents {
		sort.Slice(g.dependents[dep], func(i, j int) bool {
			return g.dependents[dep][i] < g.dependents[dep][j]
		})
	}

	return nil
}

// buildCycleError constructs an error carrying the cycle path as metadata.
func (g *Graph) buildCycleError(path []Fingerprint, dep Fingerprint) error {
	startIdx := 0
	for i, node := range path {
		if node == dep {
			startIdx = i
			break
		}
	}

	cyclePath := ""
	for i := startIdx; i < len(path); i++ {
		cyclePath += g.unitName(path[i]) + " -> "
	}
	cyclePath += g.unitName(dep)

	return zerr.With(zerr.Wrap(ErrCyclicDependency, "unit graph is not acyclic"), "cycle", cyclePath)
}

func (g *Graph) unitName(fp Fingerprint) string {
	if u, ok := g.units[fp]; ok && u.Name != "" {
		return u.Name
	}
	return string(fp)
}

// Dependents returns the fingerprints of units that directly require the
// given unit, in ascending fingerprint order. Valid after Validate.
func (g *Graph) Dependents(fp Fingerprint) []Fingerprint {
	return g.dependents[fp]
}

// Walk returns an iterator yielding units in execution order.
// It assumes Validate() has been called and returned nil.
func (g *Graph) Walk() iter.Seq[Unit] {
	return func(yield func(Unit) bool) {
		for _, fp := range g.executionOrder {
			if !yield(g.units[fp]) {
				return
			}
		}
	}
}

func (g *Graph) sortedFingerprints() []Fingerprint {
	fps := make([]Fingerprint, 0, len(g.units))
	for fp := range g.units {
		fps = append(fps, fp)
	}
	sort.Slice(fps, func(i, j int) bool { return fps[i] < fps[j] })
	return fps
}
