// Package progrock records build progress on a progrock tape.
package progrock

import (
	"context"
	"strings"
	"sync"

	"github.com/opencontainers/go-digest"
	"github.com/vito/progrock"
	"go.trai.ch/mbuild/internal/core/ports"
)

var _ ports.Telemetry = (*Recorder)(nil)

// Recorder implements ports.Telemetry using progrock. Tasks named
// "kind:App/..." are recorded under one group per application.
type Recorder struct {
	w    progrock.Writer
	root *progrock.Recorder

	mu     sync.Mutex
	groups map[string]*progrock.Recorder
}

// New creates a new Recorder writing to an in-memory tape.
func New() *Recorder {
	return NewRecorder(progrock.NewTape())
}

// NewRecorder creates a new Recorder with the given writer.
func NewRecorder(w progrock.Writer) *Recorder {
	return &Recorder{
		w:      w,
		root:   progrock.NewRecorder(w),
		groups: make(map[string]*progrock.Recorder),
	}
}

// Record starts a vertex for a task. The vertex digest is derived from the
// full name, so task names must be unique within a build.
func (r *Recorder) Record(ctx context.Context, name string) (context.Context, ports.Vertex) {
	app, label := SplitTaskName(name)
	v := r.group(app).Vertex(digest.FromString(name), label)
	vertex := &Vertex{vertex: v}
	return ports.ContextWithVertex(ctx, vertex), vertex
}

func (r *Recorder) group(app string) *progrock.Recorder {
	if app == "" {
		return r.root
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[app]
	if !ok {
		g = r.root.WithGroup(app)
		r.groups[app] = g
	}
	return g
}

// Close completes the application groups and closes the underlying writer.
func (r *Recorder) Close() error {
	r.mu.Lock()
	for _, g := range r.groups {
		g.Complete()
	}
	r.mu.Unlock()

	if c, ok := r.w.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// SplitTaskName returns the application of a "kind:App/rest" task name and
// the label shown under its group ("kind rest"). Names without an
// application return an empty app and the name unchanged.
func SplitTaskName(name string) (app, label string) {
	kind, rest, ok := strings.Cut(name, ":")
	if !ok {
		return "", name
	}
	app, tail, _ := strings.Cut(rest, "/")
	if app == "" {
		return "", name
	}
	if tail == "" {
		return app, kind
	}
	return app, kind + " " + tail
}
