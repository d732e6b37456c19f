package ports

import (
	"context"
	"io"
)

// Tracer is the entry point for creating spans around runs and units.
type Tracer interface {
	// Start creates a new span.
	Start(ctx context.Context, name string, opts ...SpanOption) (context.Context, Span)
	// EmitPlan signals that a set of units is planned for execution.
	EmitPlan(ctx context.Context, unitNames []string)
}

// Span represents a unit of work.
type Span interface {
	io.Writer
	// End completes the span.
	End()
	// RecordError records an error for the span.
	RecordError(err error)
	// SetAttribute adds a key-value pair to the span.
	SetAttribute(key string, value any)
}

// SpanConfig holds configuration for a starting span.
type SpanConfig struct {
	// Cached marks the span as representing skipped, cache-served work.
	Cached bool
}

// SpanOption is a functional option for configuring a span.
type SpanOption func(*SpanConfig)

// WithCached marks the span as cache-served.
func WithCached() SpanOption {
	return func(c *SpanConfig) { c.Cached = true }
}
