package planner

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/bench/internal/engine/registry"
)

// NodeID is the unique identifier for the graph builder Graft node.
const NodeID graft.ID = "engine.planner"

func init() {
	graft.Register(graft.Node[*Builder]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{registry.NodeID},
		Run: func(ctx context.Context) (*Builder, error) {
			store, err := graft.Dep[*registry.Store](ctx)
			if err != nil {
				return nil, err
			}
			return New(store), nil
		},
	})
}
