package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/bench/internal/adapters/cas"    //nolint:depguard // Wired in app layer
	"go.trai.ch/bench/internal/adapters/config" //nolint:depguard // Wired in app layer
	"go.trai.ch/bench/internal/adapters/logger" //nolint:depguard // Wired in app layer
	"go.trai.ch/bench/internal/core/ports"
	"go.trai.ch/bench/internal/engine/planner"
	"go.trai.ch/bench/internal/engine/query"
	"go.trai.ch/bench/internal/engine/registry"
	"go.trai.ch/bench/internal/engine/scheduler"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			registry.NodeID,
			query.NodeID,
			planner.NodeID,
			scheduler.NodeID,
			config.NodeID,
			logger.NodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
			cas.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			application, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			results, err := graft.Dep[ports.ResultStore](ctx)
			if err != nil {
				return nil, err
			}

			return NewComponents(application, log, results), nil
		},
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	store, err := graft.Dep[*registry.Store](ctx)
	if err != nil {
		return nil, err
	}

	evaluator, err := graft.Dep[*query.Evaluator](ctx)
	if err != nil {
		return nil, err
	}

	builder, err := graft.Dep[*planner.Builder](ctx)
	if err != nil {
		return nil, err
	}

	sched, err := graft.Dep[*scheduler.Scheduler](ctx)
	if err != nil {
		return nil, err
	}

	loader, err := graft.Dep[ports.EntityLoader](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	return New(store, evaluator, builder, sched, loader, log), nil
}
