// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/bench/internal/adapters/cas"
	_ "go.trai.ch/bench/internal/adapters/config"
	_ "go.trai.ch/bench/internal/adapters/fs"
	_ "go.trai.ch/bench/internal/adapters/logger"
	_ "go.trai.ch/bench/internal/adapters/runner"
	_ "go.trai.ch/bench/internal/adapters/telemetry"
	// Register app and engine nodes.
	_ "go.trai.ch/bench/internal/app"
	_ "go.trai.ch/bench/internal/engine/cache"
	_ "go.trai.ch/bench/internal/engine/planner"
	_ "go.trai.ch/bench/internal/engine/query"
	_ "go.trai.ch/bench/internal/engine/registry"
	_ "go.trai.ch/bench/internal/engine/scheduler"
)
