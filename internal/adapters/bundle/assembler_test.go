package bundle_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/mbuild/internal/adapters/bundle"
	"go.trai.ch/mbuild/internal/adapters/fs"
	"go.trai.ch/mbuild/internal/core/domain"
	"go.trai.ch/mbuild/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
	"howett.net/plist"
)

type fixture struct {
	dir    string
	app    string
	oracle *mocks.MockUpToDateChecker
	tools  *mocks.MockNativeTools
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	dir := t.TempDir()
	return &fixture{
		dir:    dir,
		app:    filepath.Join(dir, "App.app"),
		oracle: mocks.NewMockUpToDateChecker(ctrl),
		tools:  mocks.NewMockNativeTools(ctrl),
	}
}

func (f *fixture) assembler(policy domain.BundlePolicy) *bundle.Assembler {
	return bundle.NewAssembler(f.oracle, fs.NewHasher(fs.NewWalker()), f.tools, policy, 2)
}

func (f *fixture) write(t *testing.T, rel, content string) string {
	t.Helper()
	path := filepath.Join(f.dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func codes(err error) []domain.Code {
	var out []domain.Code
	for _, d := range domain.CollectDiagnostics(err) {
		out = append(out, d.Code)
	}
	return out
}

func TestAssemble_SingleFileCopied(t *testing.T) {
	f := newFixture(t)
	src := f.write(t, "cache/App.exe", "managed")
	dst := filepath.Join(f.app, "App.exe")
	f.oracle.EXPECT().IsUpToDate([]string{src}, dst).Return(false)

	err := f.assembler(domain.BundlePolicy{}).Assemble(context.Background(), f.app,
		[]domain.BundleFileInfo{{Destination: "App.exe", Sources: []string{src}}})
	require.NoError(t, err)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "managed", string(got))
}

func TestAssemble_CurrentFileSkipped(t *testing.T) {
	f := newFixture(t)
	src := f.write(t, "cache/App.exe", "managed")
	f.oracle.EXPECT().IsUpToDate([]string{src}, filepath.Join(f.app, "App.exe")).Return(true)

	err := f.assembler(domain.BundlePolicy{}).Assemble(context.Background(), f.app,
		[]domain.BundleFileInfo{{Destination: "App.exe", Sources: []string{src}}})
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(f.app, "App.exe"))
}

func TestAssemble_PerArchitectureFilesMerged(t *testing.T) {
	f := newFixture(t)
	armv7 := f.write(t, "cache/armv7/libFoo.dylib", "v7")
	arm64 := f.write(t, "cache/arm64/libFoo.dylib", "64")
	dst := filepath.Join(f.app, "libFoo.dylib")

	f.oracle.EXPECT().IsUpToDate([]string{armv7, arm64}, dst).Return(false)
	f.tools.EXPECT().CreateFat(gomock.Any(), dst, []string{armv7, arm64}).Return(nil)

	err := f.assembler(domain.BundlePolicy{}).Assemble(context.Background(), f.app,
		[]domain.BundleFileInfo{{Destination: "libFoo.dylib", Sources: []string{armv7, arm64}}})
	require.NoError(t, err)
	assert.DirExists(t, f.app)
}

func TestAssemble_FrameworkTrimmedAndStripped(t *testing.T) {
	f := newFixture(t)
	a := f.write(t, "vendor/a/Charts.framework/Charts", "fat")
	f.write(t, "vendor/a/Charts.framework/Info.plist", "info")
	b := f.write(t, "vendor/b/Charts.framework/Charts", "fat")
	f.write(t, "vendor/b/Charts.framework/Info.plist", "info")
	binary := filepath.Join(f.app, "Frameworks", "Charts.framework", "Charts")

	f.oracle.EXPECT().IsUpToDate([]string{filepath.Dir(a), filepath.Dir(b)}, filepath.Dir(binary)).Return(false)
	f.tools.EXPECT().Archs(gomock.Any(), binary).Return([]string{"armv7", "arm64", "x86_64"}, nil)
	f.tools.EXPECT().Thin(gomock.Any(), binary, []string{"arm64"}).Return(nil)
	f.tools.EXPECT().StripBitcode(gomock.Any(), binary).Return(nil)

	policy := domain.BundlePolicy{StripBitcode: true, TrimArchitectures: true}
	err := f.assembler(policy).Assemble(context.Background(), f.app, []domain.BundleFileInfo{{
		Destination: filepath.Join("Frameworks", "Charts.framework"),
		Sources:     []string{filepath.Dir(a), filepath.Dir(b)},
		ABIs:        []domain.ABI{domain.ABIArm64},
	}})
	require.NoError(t, err)

	got, err := os.ReadFile(binary)
	require.NoError(t, err)
	assert.Equal(t, "fat", string(got))
}

func TestAssemble_FrameworkAlreadyThin(t *testing.T) {
	f := newFixture(t)
	src := f.write(t, "vendor/Charts.framework/Charts", "thin")
	binary := filepath.Join(f.app, "Frameworks", "Charts.framework", "Charts")

	f.oracle.EXPECT().IsUpToDate([]string{filepath.Dir(src)}, filepath.Dir(binary)).Return(false)
	f.tools.EXPECT().Archs(gomock.Any(), binary).Return([]string{"arm64"}, nil)

	err := f.assembler(domain.BundlePolicy{TrimArchitectures: true}).Assemble(context.Background(), f.app,
		[]domain.BundleFileInfo{{
			Destination: filepath.Join("Frameworks", "Charts.framework"),
			Sources:     []string{filepath.Dir(src)},
			ABIs:        []domain.ABI{domain.ABIArm64},
		}})
	require.NoError(t, err)
}

func TestAssemble_CurrentFrameworkSkipped(t *testing.T) {
	f := newFixture(t)
	src := f.write(t, "vendor/Charts.framework/Charts", "fat")
	dst := filepath.Join(f.app, "Frameworks", "Charts.framework")
	f.oracle.EXPECT().IsUpToDate([]string{filepath.Dir(src)}, dst).Return(true)

	policy := domain.BundlePolicy{StripBitcode: true, TrimArchitectures: true}
	err := f.assembler(policy).Assemble(context.Background(), f.app, []domain.BundleFileInfo{{
		Destination: filepath.Join("Frameworks", "Charts.framework"),
		Sources:     []string{filepath.Dir(src)},
		ABIs:        []domain.ABI{domain.ABIArm64},
	}})
	require.NoError(t, err)
	assert.NoDirExists(t, dst)
}

func TestAssemble_SecondPassRunsNoTools(t *testing.T) {
	f := newFixture(t)
	charts := f.write(t, "vendor/Charts.framework/Charts", "fat")
	f.write(t, "vendor/Charts.framework/Info.plist", "info")
	armv7 := f.write(t, "cache/armv7/Shared.framework/Shared", "v7")
	arm64 := f.write(t, "cache/arm64/Shared.framework/Shared", "64")
	binary := filepath.Join(f.app, "Frameworks", "Charts.framework", "Charts")
	shared := filepath.Join(f.app, "Frameworks", "Shared.framework", "Shared")

	// Only the first pass may touch the installed binaries.
	f.tools.EXPECT().Archs(gomock.Any(), binary).Return([]string{"armv7", "arm64", "x86_64"}, nil)
	f.tools.EXPECT().Thin(gomock.Any(), binary, []string{"armv7", "arm64"}).
		DoAndReturn(func(context.Context, string, []string) error {
			return os.WriteFile(binary, []byte("thin"), 0o600)
		})
	f.tools.EXPECT().StripBitcode(gomock.Any(), binary).Return(nil)
	f.tools.EXPECT().CreateFat(gomock.Any(), shared, []string{armv7, arm64}).
		DoAndReturn(func(_ context.Context, output string, _ []string) error {
			return os.WriteFile(output, []byte("fat"), 0o600)
		})

	hasher := fs.NewHasher(fs.NewWalker())
	oracle := fs.NewOracle(fs.NewWalker(), false, fs.WithContentFallback(hasher))
	policy := domain.BundlePolicy{StripBitcode: true, TrimArchitectures: true}
	entries := []domain.BundleFileInfo{
		{
			Destination: filepath.Join("Frameworks", "Charts.framework"),
			Sources:     []string{filepath.Dir(charts)},
			ABIs:        []domain.ABI{domain.ABIArmv7, domain.ABIArm64},
		},
		{
			Destination:      filepath.Join("Frameworks", "Shared.framework"),
			Sources:          []string{armv7, arm64},
			DylibToFramework: true,
			BundleID:         "com.example.app.frameworks.Shared",
			ExecutableName:   "Shared",
			MinOS:            "12.0",
			Platform:         domain.PlatformDevice,
		},
	}

	for range 2 {
		err := bundle.NewAssembler(oracle, hasher, f.tools, policy, 2).Assemble(context.Background(), f.app, entries)
		require.NoError(t, err)
	}

	got, err := os.ReadFile(binary)
	require.NoError(t, err)
	assert.Equal(t, "thin", string(got))
	assert.FileExists(t, filepath.Join(f.app, "Frameworks", "Shared.framework", "Info.plist"))
}

func TestAssemble_ConflictingFrameworks(t *testing.T) {
	f := newFixture(t)
	a := f.write(t, "vendor/a/Charts.framework/Charts", "one")
	b := f.write(t, "vendor/b/Charts.framework/Charts", "two")

	err := f.assembler(domain.BundlePolicy{}).Assemble(context.Background(), f.app, []domain.BundleFileInfo{{
		Destination: filepath.Join("Frameworks", "Charts.framework"),
		Sources:     []string{filepath.Dir(a), filepath.Dir(b)},
	}})
	require.Error(t, err)
	assert.Equal(t, []domain.Code{domain.CodeConflictingFrameworks}, codes(err))
	assert.ErrorContains(t, err, filepath.Dir(a))
	assert.ErrorContains(t, err, filepath.Dir(b))
	assert.NoDirExists(t, filepath.Join(f.app, "Frameworks", "Charts.framework"))
}

func TestAssemble_DylibPromotedToFramework(t *testing.T) {
	f := newFixture(t)
	src := f.write(t, "cache/arm64/Shared.framework/Shared", "dylib")
	dir := filepath.Join(f.app, "Frameworks", "Shared.framework")
	f.oracle.EXPECT().IsUpToDate([]string{src}, filepath.Join(dir, "Shared")).Return(false)

	err := f.assembler(domain.BundlePolicy{}).Assemble(context.Background(), f.app, []domain.BundleFileInfo{{
		Destination:      filepath.Join("Frameworks", "Shared.framework"),
		Sources:          []string{src},
		DylibToFramework: true,
		BundleID:         "com.example.app.frameworks.Shared",
		ExecutableName:   "Shared",
		MinOS:            "12.0",
		Platform:         domain.PlatformDevice,
	}})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "Shared"))

	data, err := os.ReadFile(filepath.Join(dir, "Info.plist"))
	require.NoError(t, err)
	var info map[string]any
	_, err = plist.Unmarshal(data, &info)
	require.NoError(t, err)
	assert.Equal(t, "Shared", info["CFBundleExecutable"])
	assert.Equal(t, "com.example.app.frameworks.Shared", info["CFBundleIdentifier"])
	assert.Equal(t, "FMWK", info["CFBundlePackageType"])
	assert.Equal(t, "12.0", info["MinimumOSVersion"])
	assert.Equal(t, []any{"iPhoneOS"}, info["CFBundleSupportedPlatforms"])
}

func TestAssemble_FailuresAreCollected(t *testing.T) {
	f := newFixture(t)
	ok := f.write(t, "cache/App.exe", "managed")
	missing := filepath.Join(f.dir, "cache", "Missing.dll")
	f.oracle.EXPECT().IsUpToDate([]string{ok}, filepath.Join(f.app, "App.exe")).Return(false)

	err := f.assembler(domain.BundlePolicy{}).Assemble(context.Background(), f.app, []domain.BundleFileInfo{
		{Destination: "App.exe", Sources: []string{ok}},
		{Destination: "Missing.dll", Sources: []string{missing}},
	})
	require.Error(t, err)
	assert.Equal(t, []domain.Code{domain.CodeBundleIO}, codes(err))
	assert.ErrorContains(t, err, missing)
	assert.FileExists(t, filepath.Join(f.app, "App.exe"))
}
