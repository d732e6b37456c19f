package app

import (
	"go.trai.ch/bench/internal/core/ports"
)

// Components contains all the initialized application components.
// This struct provides controlled access to components needed by the CLI layer.
type Components struct {
	App     *App
	Logger  ports.Logger
	Results ports.ResultStore
}

// NewComponents creates a new Components struct from dependencies.
func NewComponents(app *App, logger ports.Logger, results ports.ResultStore) *Components {
	return &Components{
		App:     app,
		Logger:  logger,
		Results: results,
	}
}
