package query

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/bench/internal/engine/registry"
)

// NodeID is the unique identifier for the query evaluator Graft node.
const NodeID graft.ID = "engine.query"

func init() {
	graft.Register(graft.Node[*Evaluator]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{registry.NodeID},
		Run: func(ctx context.Context) (*Evaluator, error) {
			store, err := graft.Dep[*registry.Store](ctx)
			if err != nil {
				return nil, err
			}
			return New(store), nil
		},
	})
}
