package cas

import (
	"context"
	"os"
	"path/filepath"

	"github.com/grindlemire/graft"
	"go.trai.ch/bench/internal/core/ports"
)

// NodeID is the unique identifier for the result store Graft node.
const NodeID graft.ID = "adapter.result_store"

// DefaultStatePath is the on-disk location of the result store, relative to
// the working directory.
const DefaultStatePath = ".bench/results.json"

func init() {
	graft.Register(graft.Node[ports.ResultStore]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.ResultStore, error) {
			cwd, err := os.Getwd()
			if err != nil {
				return nil, err
			}
			return NewStore(filepath.Join(cwd, DefaultStatePath))
		},
	})
}
