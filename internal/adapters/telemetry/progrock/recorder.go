// Package progrock provides a progress-UI implementation of the tracer port.
package progrock

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/opencontainers/go-digest"
	"github.com/vito/progrock"
	"go.trai.ch/bench/internal/core/ports"
)

// Recorder implements ports.Tracer on a progrock tape, rendering each unit as
// a vertex with live output.
type Recorder struct {
	w   progrock.Writer
	rec *progrock.Recorder
}

// New creates a new Recorder with a default tape.
func New() ports.Tracer {
	tape := progrock.NewTape()
	return NewRecorder(tape)
}

// NewRecorder creates a new Recorder with the given writer.
func NewRecorder(w progrock.Writer) *Recorder {
	rec := progrock.NewRecorder(w)
	return &Recorder{
		w:   w,
		rec: rec,
	}
}

// Start begins recording a new vertex for the named unit.
func (r *Recorder) Start(ctx context.Context, name string, opts ...ports.SpanOption) (context.Context, ports.Span) {
	cfg := &ports.SpanConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	d := digest.FromString(name)
	v := r.rec.Vertex(d, name)
	if cfg.Cached {
		v.Cached()
	}
	return ctx, &Vertex{vertex: v}
}

// EmitPlan renders the planned unit names as a single completed vertex so the
// full shape of the run is visible before anything executes.
func (r *Recorder) EmitPlan(_ context.Context, unitNames []string) {
	d := digest.FromString("plan:" + strings.Join(unitNames, ","))
	v := r.rec.Vertex(d, "plan")
	for _, name := range unitNames {
		_, _ = v.Stdout().Write([]byte(name + "\n"))
	}
	v.Done(nil)
}

// Close flushes and closes the recording session.
func (r *Recorder) Close() error {
	if c, ok := r.w.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// Vertex implements ports.Span wrapping *progrock.VertexRecorder.
type Vertex struct {
	vertex *progrock.VertexRecorder

	mu  sync.Mutex
	err error
}

// Write streams output onto the vertex.
func (v *Vertex) Write(p []byte) (n int, err error) {
	return v.vertex.Stdout().Write(p)
}

// RecordError marks the vertex as failed when it completes.
func (v *Vertex) RecordError(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.err = err
}

// SetAttribute renders the key-value pair onto the vertex output.
func (v *Vertex) SetAttribute(key string, value any) {
	_, _ = v.vertex.Stdout().Write(fmtAttr(key, value))
}

// End completes the vertex, carrying any recorded error.
func (v *Vertex) End() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.vertex.Done(v.err)
}

func fmtAttr(key string, value any) []byte {
	return []byte(fmt.Sprintf("%s=%v\n", key, value))
}
