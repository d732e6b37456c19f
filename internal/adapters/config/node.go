package config

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/bench/internal/adapters/fs"
	"go.trai.ch/bench/internal/core/ports"
)

// NodeID is the unique identifier for the entity loader Graft node.
const NodeID graft.ID = "adapter.entity_loader"

func init() {
	graft.Register(graft.Node[ports.EntityLoader]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{fs.HasherNodeID},
		Run: func(ctx context.Context) (ports.EntityLoader, error) {
			hasher, err := graft.Dep[*fs.Hasher](ctx)
			if err != nil {
				return nil, err
			}
			return NewLoader(hasher), nil
		},
	})
}
