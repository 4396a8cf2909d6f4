package fs_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/mbuild/internal/adapters/fs"
)

type oracleFixture struct {
	source string
	target string
	base   time.Time
}

// newOracleFixture creates a source that is one minute older than its target.
func newOracleFixture(t *testing.T) oracleFixture {
	t.Helper()
	dir := t.TempDir()
	f := oracleFixture{
		source: filepath.Join(dir, "Foo.dll"),
		target: filepath.Join(dir, "arm64", "Foo.o"),
		base:   time.Now().Add(-time.Hour).Truncate(time.Second),
	}
	writeFile(t, f.source, "managed")
	writeFile(t, f.target, "native")
	setMTime(t, f.source, f.base)
	setMTime(t, f.target, f.base.Add(time.Minute))
	return f
}

func TestOracle_IsUpToDate(t *testing.T) {
	f := newOracleFixture(t)
	oracle := fs.NewOracle(fs.NewWalker(), false)

	assert.True(t, oracle.IsUpToDate([]string{f.source}, f.target))
	assert.True(t, oracle.IsUpToDate([]string{f.source}, f.target), "repeated query gives the same answer")
	assert.True(t, oracle.IsUpToDate(nil, f.target))
}

func TestOracle_EqualTimestampsAreCurrent(t *testing.T) {
	f := newOracleFixture(t)
	setMTime(t, f.source, f.base.Add(time.Minute))

	assert.True(t, fs.NewOracle(fs.NewWalker(), false).IsUpToDate([]string{f.source}, f.target))
}

func TestOracle_TouchedSourceFlipsResult(t *testing.T) {
	f := newOracleFixture(t)
	oracle := fs.NewOracle(fs.NewWalker(), false)
	require.True(t, oracle.IsUpToDate([]string{f.source}, f.target))

	setMTime(t, f.source, f.base.Add(2*time.Minute))

	assert.False(t, oracle.IsUpToDate([]string{f.source}, f.target))
}

func TestOracle_MissingTarget(t *testing.T) {
	f := newOracleFixture(t)
	require.NoError(t, os.Remove(f.target))

	assert.False(t, fs.NewOracle(fs.NewWalker(), false).IsUpToDate([]string{f.source}, f.target))
}

func TestOracle_MissingSource(t *testing.T) {
	f := newOracleFixture(t)

	assert.False(t, fs.NewOracle(fs.NewWalker(), false).IsUpToDate([]string{f.source + ".gone"}, f.target))
}

func TestOracle_ForceAlwaysStale(t *testing.T) {
	f := newOracleFixture(t)
	oracle := fs.NewOracle(fs.NewWalker(), true)

	assert.False(t, oracle.IsUpToDate([]string{f.source}, f.target))
	assert.False(t, oracle.IsUpToDate(nil, f.target))
}

func TestOracle_StampOverridesTarget(t *testing.T) {
	f := newOracleFixture(t)
	oracle := fs.NewOracle(fs.NewWalker(), false)
	setMTime(t, f.source, f.base.Add(2*time.Minute))
	require.False(t, oracle.IsUpToDate([]string{f.source}, f.target))

	require.NoError(t, oracle.MarkCurrent(f.target))

	assert.True(t, oracle.IsUpToDate([]string{f.source}, f.target))
	assert.FileExists(t, f.target+fs.StampSuffix)

	// An older stamp is ignored.
	setMTime(t, f.target+fs.StampSuffix, f.base)
	assert.False(t, oracle.IsUpToDate([]string{f.source}, f.target))
}

func TestOracle_ContentFallback(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src", "Foo.dll")
	dst := filepath.Join(dir, "bundle", "Foo.dll")
	writeFile(t, src, "identical")
	writeFile(t, dst, "identical")
	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	setMTime(t, dst, base)
	setMTime(t, src, base.Add(time.Minute))

	walker := fs.NewWalker()
	assert.False(t, fs.NewOracle(walker, false).IsUpToDate([]string{src}, dst))

	withContent := fs.NewOracle(walker, false, fs.WithContentFallback(fs.NewHasher(walker)))
	assert.True(t, withContent.IsUpToDate([]string{src}, dst))

	writeFile(t, src, "different")
	setMTime(t, src, base.Add(2*time.Minute))
	assert.False(t, withContent.IsUpToDate([]string{src}, dst))

	forced := fs.NewOracle(walker, true, fs.WithContentFallback(fs.NewHasher(walker)))
	assert.False(t, forced.IsUpToDate([]string{src}, dst))
}

func TestOracle_DirectoryTarget(t *testing.T) {
	dir := t.TempDir()
	fw := filepath.Join(dir, "Foo.framework")
	bin := filepath.Join(dir, "libFoo.dylib")
	writeFile(t, filepath.Join(fw, "Foo"), "binary")
	writeFile(t, bin, "binary")
	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	setMTime(t, bin, base)
	setMTime(t, filepath.Join(fw, "Foo"), base.Add(time.Minute))
	setMTime(t, fw, base)

	oracle := fs.NewOracle(fs.NewWalker(), false)
	assert.True(t, oracle.IsUpToDate([]string{bin}, fw), "newest file inside the directory counts")
}
