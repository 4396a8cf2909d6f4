package ports

import "go.trai.ch/mbuild/internal/core/domain"

// ConfigLoader defines the interface for loading the build description.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load reads the build description at path.
	Load(path string) (*domain.Build, error)
}
