package progrock

import (
	"fmt"
	"io"

	"github.com/vito/progrock"
	"go.trai.ch/mbuild/internal/core/domain"
	"go.trai.ch/mbuild/internal/core/ports"
)

var _ ports.Vertex = (*Vertex)(nil)

// Vertex is one task on the tape.
type Vertex struct {
	vertex *progrock.VertexRecorder
}

func (v *Vertex) Stdout() io.Writer {
	return v.vertex.Stdout()
}

func (v *Vertex) Stderr() io.Writer {
	return v.vertex.Stderr()
}

// Log writes msg to the vertex output. Warnings and errors go to stderr and
// carry their level so classified tool output reads like the tool's own.
func (v *Vertex) Log(level domain.LogLevel, msg string) {
	if level < domain.LogLevelWarn {
		_, _ = fmt.Fprintln(v.vertex.Stdout(), msg)
		return
	}
	_, _ = fmt.Fprintf(v.vertex.Stderr(), "%s: %s\n", level.String(), msg)
}

func (v *Vertex) Complete(err error) {
	v.vertex.Done(err)
}

func (v *Vertex) Cached() {
	v.vertex.Cached()
}
