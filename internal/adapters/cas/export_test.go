package cas

import (
	"path/filepath"

	"go.trai.ch/mbuild/internal/core/domain"
)

// ReadManifest exposes the stored manifest of dir to tests.
func ReadManifest(dir string) (*domain.BuildManifest, error) {
	return readManifest(filepath.Join(dir, ManifestFile))
}
