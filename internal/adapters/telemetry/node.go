package telemetry

import (
	"context"
	"os"

	"github.com/grindlemire/graft"
	"go.trai.ch/bench/internal/adapters/telemetry/progrock"
	"go.trai.ch/bench/internal/core/ports"
)

// TracerNodeID is the unique identifier for the tracer adapter Graft node.
const TracerNodeID graft.ID = "adapter.telemetry"

func init() {
	graft.Register(graft.Node[ports.Tracer]{
		ID:        TracerNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Tracer, error) {
			// BENCH_PROGRESS switches to the interactive progress tape;
			// the default OTel tracer is a no-op until a provider is set.
			if os.Getenv("BENCH_PROGRESS") != "" {
				return progrock.New(), nil
			}
			return NewOTelTracer("bench"), nil
		},
	})
}
