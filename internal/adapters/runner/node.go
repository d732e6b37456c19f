package runner

import (
	"context"
	"os"
	"strings"

	"github.com/grindlemire/graft"
	"go.trai.ch/bench/internal/adapters/logger"
	"go.trai.ch/bench/internal/core/ports"
)

// NodeID is the unique identifier for the executor Graft node.
const NodeID graft.ID = "adapter.runner"

// DefaultCommand is invoked for execute units when BENCH_RUNNER is unset.
const DefaultCommand = "bench-runner"

func init() {
	graft.Register(graft.Node[ports.Executor]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.Executor, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewRunner(log, commandFromEnv()), nil
		},
	})
}

func commandFromEnv() []string {
	if raw := os.Getenv("BENCH_RUNNER"); raw != "" {
		return strings.Fields(raw)
	}
	return []string{DefaultCommand}
}
