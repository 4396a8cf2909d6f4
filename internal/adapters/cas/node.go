package cas

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/mbuild/internal/core/ports"
)

// NodeID is the unique identifier for the cache provider Graft node.
const NodeID graft.ID = "adapter.cache_provider"

func init() {
	graft.Register(graft.Node[ports.CacheProvider]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.CacheProvider, error) {
			return NewProvider(), nil
		},
	})
}
