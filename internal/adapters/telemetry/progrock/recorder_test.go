package progrock_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/mbuild/internal/adapters/telemetry/progrock"
	"go.trai.ch/mbuild/internal/core/domain"
	"go.trai.ch/mbuild/internal/core/ports"
)

func TestRecorder_Record(t *testing.T) {
	recorder := progrock.New()

	ctx, vertex := recorder.Record(context.Background(), "link:App/arm64/App")
	assert.Same(t, vertex, ports.VertexFromContext(ctx))

	_, err := vertex.Stdout().Write([]byte("ld: warning: something\n"))
	require.NoError(t, err)
	_, err = vertex.Stderr().Write([]byte("ld: error\n"))
	require.NoError(t, err)
	vertex.Log(domain.LogLevelInfo, "info msg")
	vertex.Log(domain.LogLevelError, "error msg")
	vertex.Complete(errors.New("link failed"))

	_, cached := recorder.Record(context.Background(), "copy:Widget/Shared.dll")
	cached.Cached()
	cached.Complete(nil)

	_, loose := recorder.Record(context.Background(), "prepare")
	loose.Complete(nil)

	require.NoError(t, recorder.Close())
}

func TestSplitTaskName(t *testing.T) {
	tests := []struct {
		name  string
		app   string
		label string
	}{
		{"link:App/arm64/App", "App", "link arm64/App"},
		{"lipo:App/App", "App", "lipo App"},
		{"strip:App", "App", "strip"},
		{"prepare", "", "prepare"},
		{"odd:/x", "", "odd:/x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, label := progrock.SplitTaskName(tt.name)
			assert.Equal(t, tt.app, app)
			assert.Equal(t, tt.label, label)
		})
	}
}
