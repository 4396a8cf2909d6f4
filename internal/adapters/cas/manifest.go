package cas

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/opencontainers/go-digest"
	"go.trai.ch/mbuild/internal/core/domain"
	"go.trai.ch/mbuild/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	// ManifestFile is the name of the build-configuration manifest in the cache root.
	ManifestFile = "build-manifest.json"
	// StoreFile is the name of the per-task build info store in the cache root.
	StoreFile = "build-info.json"
)

var _ ports.CacheProvider = (*Provider)(nil)

// Provider opens build caches. An existing cache is only reused when its
// manifest was written for the same configuration; anything else clears the
// whole directory, because no partial invalidation is safe. A non-empty
// directory without a manifest was not created by mbuild and is refused.
type Provider struct {
	now func() time.Time
}

// NewProvider creates a new Provider.
func NewProvider() *Provider {
	return &Provider{now: time.Now}
}

// ConfigDigest returns the digest recorded for a configuration fingerprint.
func ConfigDigest(fingerprint []byte) string {
	return digest.FromBytes(fingerprint).String()
}

// Prepare implements ports.CacheProvider.
func (p *Provider) Prepare(dir string, fingerprint []byte) (ports.BuildInfoStore, *domain.Diagnostic, error) {
	want := ConfigDigest(fingerprint)
	manifestPath := filepath.Join(dir, ManifestFile)

	reason, err := p.staleReason(dir, manifestPath, want)
	if err != nil {
		return nil, nil, err
	}
	var warning *domain.Diagnostic
	if reason != "" {
		if err := os.RemoveAll(dir); err != nil {
			return nil, nil, zerr.With(zerr.Wrap(err, domain.ErrCacheInvalidationFailed.Error()), "dir", dir)
		}
		warning = domain.Warningf(domain.CodeCacheInvalidated, reason, dir)
	}

	if err := p.writeManifest(manifestPath, want); err != nil {
		return nil, warning, err
	}

	store, err := NewStore(filepath.Join(dir, StoreFile))
	if err != nil {
		return nil, warning, err
	}
	return store, warning, nil
}

// staleReason explains why the cache in dir cannot be trusted, or returns ""
// when it can (including when there is nothing cached yet).
func (p *Provider) staleReason(dir, manifestPath, want string) (string, error) {
	m, err := readManifest(manifestPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		entries, readErr := os.ReadDir(dir)
		if readErr != nil || len(entries) == 0 {
			return "", nil
		}
		return "", domain.Errorf(domain.CodeInvalidConfiguration,
			fmt.Sprintf("the cache directory '%s' is not empty and has no %s; use an empty directory or one created by mbuild",
				dir, ManifestFile))
	case errors.Is(err, errCorruptManifest):
		return "the build manifest is corrupt", nil
	case err != nil:
		return "the build manifest could not be read", nil
	}

	switch {
	case m.Version != domain.ManifestVersion:
		return fmt.Sprintf("the cache layout of build %s is outdated", m.BuildID), nil
	case m.ConfigDigest != want:
		return fmt.Sprintf("configuration digest changed since build %s", m.BuildID), nil
	default:
		return "", nil
	}
}

func (p *Provider) writeManifest(path, configDigest string) error {
	m := domain.BuildManifest{
		Version:      domain.ManifestVersion,
		ConfigDigest: configDigest,
		BuildID:      uuid.NewString(),
		Timestamp:    p.now().UTC(),
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return domain.Errorf(domain.CodeManifestFailure, path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return domain.Errorf(domain.CodeManifestFailure, path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // Manifest is not sensitive
		return domain.Errorf(domain.CodeManifestFailure, path, err)
	}
	return nil
}

var errCorruptManifest = errors.New("corrupt build manifest")

// readManifest loads the manifest at path. A missing file keeps fs.ErrNotExist
// in the chain.
func readManifest(path string) (*domain.BuildManifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is built from the cache root
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "path", path)
	}
	var m domain.BuildManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, zerr.With(zerr.Wrap(errors.Join(errCorruptManifest, err), domain.ErrStoreReadFailed.Error()), "path", path)
	}
	return &m, nil
}
