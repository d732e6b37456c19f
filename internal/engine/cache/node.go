package cache

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/bench/internal/adapters/cas" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/bench/internal/core/ports"
)

// NodeID is the unique identifier for the result cache Graft node.
const NodeID graft.ID = "engine.cache"

func init() {
	graft.Register(graft.Node[*ResultCache]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{cas.NodeID},
		Run: func(ctx context.Context) (*ResultCache, error) {
			store, err := graft.Dep[ports.ResultStore](ctx)
			if err != nil {
				return nil, err
			}
			return New(store), nil
		},
	})
}
