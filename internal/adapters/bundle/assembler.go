// Package bundle materializes build outputs into application bundles.
package bundle

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.trai.ch/mbuild/internal/adapters/fs"
	"go.trai.ch/mbuild/internal/core/domain"
	"go.trai.ch/mbuild/internal/core/ports"
	"golang.org/x/sync/errgroup"
	"howett.net/plist"
)

const defaultParallelism = 4

// Assembler copies and merges bundle entries into an application directory.
type Assembler struct {
	oracle      ports.UpToDateChecker
	hasher      ports.Hasher
	tools       ports.NativeTools
	policy      domain.BundlePolicy
	parallelism int
}

// NewAssembler creates an Assembler. A parallelism below one uses a small default.
func NewAssembler(
	oracle ports.UpToDateChecker,
	hasher ports.Hasher,
	tools ports.NativeTools,
	policy domain.BundlePolicy,
	parallelism int,
) *Assembler {
	if parallelism < 1 {
		parallelism = defaultParallelism
	}
	return &Assembler{
		oracle:      oracle,
		hasher:      hasher,
		tools:       tools,
		policy:      policy,
		parallelism: parallelism,
	}
}

// Assemble materializes entries below dir. A failing entry does not stop
// the others; all failures are returned joined.
func (a *Assembler) Assemble(ctx context.Context, dir string, entries []domain.BundleFileInfo) error {
	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	g.SetLimit(a.parallelism)

	for _, entry := range entries {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if err := a.assemble(ctx, dir, entry); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *Assembler) assemble(ctx context.Context, dir string, entry domain.BundleFileInfo) error {
	if len(entry.Sources) == 0 {
		return nil
	}
	dst := filepath.Join(dir, entry.Destination)

	if entry.DylibToFramework {
		return a.promote(ctx, dst, entry)
	}

	isDir, err := allDirectories(entry.Sources)
	if err != nil {
		return ioError(entry.Sources[0], dst, err)
	}
	if isDir {
		return a.directory(ctx, dst, entry)
	}
	return a.flat(ctx, dst, entry.Sources)
}

// directory installs a framework bundle. Content-identical candidates
// collapse into one; anything else is a conflict. An installed copy newer
// than every candidate is left alone, including its thinned binary.
func (a *Assembler) directory(ctx context.Context, dst string, entry domain.BundleFileInfo) error {
	unique, err := a.distinct(entry.Sources)
	if err != nil {
		return ioError(entry.Sources[0], dst, err)
	}
	if len(unique) > 1 {
		return domain.Errorf(domain.CodeConflictingFrameworks,
			filepath.Base(entry.Destination), "'"+strings.Join(entry.Sources, "', '")+"'")
	}

	if a.oracle.IsUpToDate(entry.Sources, dst) {
		return nil
	}
	src := unique[0]
	if err := fs.CopyPath(src, dst); err != nil {
		return ioError(src, dst, err)
	}

	binary := filepath.Join(dst, strings.TrimSuffix(filepath.Base(dst), filepath.Ext(dst)))
	if _, err := os.Stat(binary); err != nil {
		// Resource-only bundles have nothing to post-process.
		return nil
	}
	if a.policy.TrimArchitectures && len(entry.ABIs) > 0 {
		if err := a.trim(ctx, binary, entry.ABIs); err != nil {
			return err
		}
	}
	if a.policy.StripBitcode {
		return a.tools.StripBitcode(ctx, binary)
	}
	return nil
}

func (a *Assembler) distinct(sources []string) ([]string, error) {
	var unique []string
	for _, src := range sources {
		dup := false
		for _, u := range unique {
			eq, err := a.hasher.FilesEqual(u, src)
			if err != nil {
				return nil, err
			}
			if eq {
				dup = true
				break
			}
		}
		if !dup {
			unique = append(unique, src)
		}
	}
	return unique, nil
}

// trim drops every slice of binary that was not built for one of abis.
func (a *Assembler) trim(ctx context.Context, binary string, abis []domain.ABI) error {
	present, err := a.tools.Archs(ctx, binary)
	if err != nil {
		return err
	}
	var keep []string
	for _, arch := range present {
		if slices.ContainsFunc(abis, func(abi domain.ABI) bool { return abi.ArchName() == arch }) {
			keep = append(keep, arch)
		}
	}
	if len(keep) == 0 || len(keep) == len(present) {
		return nil
	}
	return a.tools.Thin(ctx, binary, keep)
}

// flat copies a single file or merges per-architecture files into a fat
// binary, unless dst is already current.
func (a *Assembler) flat(ctx context.Context, dst string, sources []string) error {
	if a.oracle.IsUpToDate(sources, dst) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return ioError(sources[0], dst, err)
	}
	if len(sources) == 1 {
		if err := fs.CopyPath(sources[0], dst); err != nil {
			return ioError(sources[0], dst, err)
		}
		return nil
	}
	return a.tools.CreateFat(ctx, dst, sources)
}

// promote wraps a dynamic library into a framework bundle.
func (a *Assembler) promote(ctx context.Context, dst string, entry domain.BundleFileInfo) error {
	name := entry.ExecutableName
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(dst), filepath.Ext(dst))
	}
	if err := a.flat(ctx, filepath.Join(dst, name), entry.Sources); err != nil {
		return err
	}
	info := filepath.Join(dst, "Info.plist")
	if err := writeInfoPlist(info, entry, name); err != nil {
		return ioError(entry.Sources[0], info, err)
	}
	return nil
}

type infoPlist struct {
	DevelopmentRegion     string   `plist:"CFBundleDevelopmentRegion"`
	Executable            string   `plist:"CFBundleExecutable"`
	Identifier            string   `plist:"CFBundleIdentifier"`
	InfoDictionaryVersion string   `plist:"CFBundleInfoDictionaryVersion"`
	Name                  string   `plist:"CFBundleName"`
	PackageType           string   `plist:"CFBundlePackageType"`
	ShortVersion          string   `plist:"CFBundleShortVersionString"`
	SupportedPlatforms    []string `plist:"CFBundleSupportedPlatforms"`
	Version               string   `plist:"CFBundleVersion"`
	MinimumOSVersion      string   `plist:"MinimumOSVersion,omitempty"`
}

// writeInfoPlist writes the framework descriptor. An unchanged file is left
// alone so its timestamp stays put.
func writeInfoPlist(path string, entry domain.BundleFileInfo, executable string) error {
	data, err := plist.MarshalIndent(infoPlist{
		DevelopmentRegion:     "en",
		Executable:            executable,
		Identifier:            entry.BundleID,
		InfoDictionaryVersion: "6.0",
		Name:                  executable,
		PackageType:           "FMWK",
		ShortVersion:          "1.0",
		SupportedPlatforms:    []string{entry.Platform.String()},
		Version:               "1.0",
		MinimumOSVersion:      entry.MinOS,
	}, plist.XMLFormat, "\t")
	if err != nil {
		return err
	}
	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, data) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644) //nolint:gosec // Info.plist is read by the OS loader
}

func allDirectories(paths []string) (bool, error) {
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return false, err
		}
		if !info.IsDir() {
			return false, nil
		}
	}
	return true, nil
}

func ioError(src, dst string, err error) error {
	return domain.Errorf(domain.CodeBundleIO, src, dst, err.Error())
}
