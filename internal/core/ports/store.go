package ports

import "go.trai.ch/mbuild/internal/core/domain"

// BuildInfoStore defines the interface for storing and retrieving build information.
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type BuildInfoStore interface {
	// Get retrieves the build info for a given task name.
	// Returns nil, nil if not found.
	Get(taskName string) (*domain.BuildInfo, error)

	// Put stores the build info.
	Put(info domain.BuildInfo) error
}

// CacheProvider opens the on-disk cache of a build.
type CacheProvider interface {
	// Prepare checks the manifest in dir against the configuration fingerprint.
	// When it does not match, the whole directory is cleared and a warning
	// diagnostic describing the invalidation is returned.
	Prepare(dir string, fingerprint []byte) (BuildInfoStore, *domain.Diagnostic, error)
}
