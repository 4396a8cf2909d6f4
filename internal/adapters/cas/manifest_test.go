package cas_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/mbuild/internal/adapters/cas"
	"go.trai.ch/mbuild/internal/core/domain"
)

func TestProvider_FreshCache(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")

	store, warning, err := cas.NewProvider().Prepare(dir, []byte("config-a"))
	require.NoError(t, err)
	assert.Nil(t, warning)
	require.NotNil(t, store)

	m, err := cas.ReadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, domain.ManifestVersion, m.Version)
	assert.Equal(t, cas.ConfigDigest([]byte("config-a")), m.ConfigDigest)
	assert.NotEmpty(t, m.BuildID)
}

func TestProvider_SameConfigKeepsCache(t *testing.T) {
	dir := t.TempDir()
	provider := cas.NewProvider()

	store, _, err := provider.Prepare(dir, []byte("config-a"))
	require.NoError(t, err)
	require.NoError(t, store.Put(domain.BuildInfo{TaskName: "link", InputHash: "h"}))
	artifact := filepath.Join(dir, "App", "arm64", "main.o")
	require.NoError(t, os.MkdirAll(filepath.Dir(artifact), 0o750))
	require.NoError(t, os.WriteFile(artifact, []byte("obj"), 0o600))

	store, warning, err := provider.Prepare(dir, []byte("config-a"))
	require.NoError(t, err)
	assert.Nil(t, warning)
	assert.FileExists(t, artifact)

	info, err := store.Get("link")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "h", info.InputHash)
}

func TestProvider_ChangedConfigClearsEverything(t *testing.T) {
	dir := t.TempDir()
	provider := cas.NewProvider()

	store, _, err := provider.Prepare(dir, []byte("config-a"))
	require.NoError(t, err)
	require.NoError(t, store.Put(domain.BuildInfo{TaskName: "link", InputHash: "h"}))
	artifact := filepath.Join(dir, "App", "arm64", "main.o")
	require.NoError(t, os.MkdirAll(filepath.Dir(artifact), 0o750))
	require.NoError(t, os.WriteFile(artifact, []byte("obj"), 0o600))

	store, warning, err := provider.Prepare(dir, []byte("config-b"))
	require.NoError(t, err)
	require.NotNil(t, warning)
	assert.Equal(t, domain.CodeCacheInvalidated, warning.Code)
	assert.Equal(t, domain.SeverityWarning, warning.Severity)
	assert.Contains(t, warning.Message, "digest changed")
	assert.NoFileExists(t, artifact)

	info, err := store.Get("link")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestProvider_UnmanagedDirectoryIsRefused(t *testing.T) {
	dir := t.TempDir()
	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("keep me"), 0o600))

	store, warning, err := cas.NewProvider().Prepare(dir, []byte("config-a"))
	require.Error(t, err)
	assert.Nil(t, store)
	assert.Nil(t, warning)
	assert.Equal(t, domain.ExitConfiguration, domain.ExitCode(err))
	assert.Contains(t, err.Error(), "not empty")

	assert.FileExists(t, notes)
	assert.NoFileExists(t, filepath.Join(dir, cas.ManifestFile))
}

func TestProvider_WarningNamesPreviousBuild(t *testing.T) {
	dir := t.TempDir()
	provider := cas.NewProvider()

	_, _, err := provider.Prepare(dir, []byte("config-a"))
	require.NoError(t, err)
	previous, err := cas.ReadManifest(dir)
	require.NoError(t, err)

	_, warning, err := provider.Prepare(dir, []byte("config-b"))
	require.NoError(t, err)
	require.NotNil(t, warning)
	assert.Contains(t, warning.Message, previous.BuildID)

	current, err := cas.ReadManifest(dir)
	require.NoError(t, err)
	assert.NotEqual(t, previous.BuildID, current.BuildID)
}

func TestProvider_CorruptManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, cas.ManifestFile), []byte("garbage"), 0o600))

	_, warning, err := cas.NewProvider().Prepare(dir, []byte("config-a"))
	require.NoError(t, err)
	require.NotNil(t, warning)
	assert.Contains(t, warning.Message, "corrupt")
}
