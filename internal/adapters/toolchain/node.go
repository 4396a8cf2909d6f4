package toolchain

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/mbuild/internal/adapters/logger"
	"go.trai.ch/mbuild/internal/adapters/shell"
	"go.trai.ch/mbuild/internal/core/domain"
	"go.trai.ch/mbuild/internal/core/ports"
)

// NodeID is the unique identifier for the toolchain factory Graft node.
const NodeID graft.ID = "adapter.toolchain"

// Factory builds the per-build toolchain adapters. The toolchain paths are
// only known once the build description has been loaded.
type Factory struct {
	runner ports.ProcessRunner
	logger ports.Logger
}

// NewFactory creates a Factory.
func NewFactory(runner ports.ProcessRunner, log ports.Logger) *Factory {
	return &Factory{runner: runner, logger: log}
}

// Executor returns a task executor for the build described by bctx.
func (f *Factory) Executor(bctx domain.BuildContext, symbols *domain.SymbolTable) ports.TaskExecutor {
	return NewExecutor(f.runner, f.logger, bctx, symbols)
}

// Tools returns the native binary tools for tc.
func (f *Factory) Tools(tc domain.Toolchain) ports.NativeTools {
	return NewTools(f.runner, tc)
}

func init() {
	graft.Register(graft.Node[*Factory]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{shell.NodeID, logger.NodeID},
		Run: func(ctx context.Context) (*Factory, error) {
			runner, err := graft.Dep[ports.ProcessRunner](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[*logger.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewFactory(runner, log), nil
		},
	})
}
