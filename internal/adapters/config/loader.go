// Package config provides the build description loader for mbuild.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"go.trai.ch/mbuild/internal/adapters/fs"
	"go.trai.ch/mbuild/internal/core/domain"
	"go.trai.ch/mbuild/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger   ports.Logger
	resolver *fs.Resolver
}

// NewLoader creates a new Loader with the given logger and glob resolver.
func NewLoader(logger ports.Logger, resolver *fs.Resolver) *Loader {
	return &Loader{Logger: logger, resolver: resolver}
}

// Load reads the build description at path. Relative paths inside the file
// are resolved against the file's directory.
func (l *Loader) Load(path string) (*domain.Build, error) {
	var file Buildfile
	if err := readAndUnmarshalYAML(path, &file); err != nil {
		return nil, err
	}
	root := filepath.Dir(path)

	ctx, err := l.buildContext(root, &file)
	if err != nil {
		return nil, err
	}

	container, err := l.application(root, &file.App, domain.KindContainer, ctx.Platform)
	if err != nil {
		return nil, zerr.With(err, "application", file.App.Name)
	}
	if ctx.CacheDir == "" {
		ctx.CacheDir = filepath.Join(xdg.CacheHome, "mbuild", container.Name)
	}

	build := &domain.Build{Context: ctx, Container: *container}
	names := map[string]bool{container.Name: true}
	for i := range file.Extensions {
		dto := &file.Extensions[i]
		ext, err := l.extension(root, dto, container.Name, ctx.Platform)
		if err != nil {
			return nil, zerr.With(err, "application", dto.Name)
		}
		if names[ext.Name] {
			return nil, invalid("the application name '%s' is used more than once", ext.Name)
		}
		names[ext.Name] = true
		build.Container.Extensions = append(build.Container.Extensions, ext.Name)
		build.Extensions = append(build.Extensions, *ext)
	}

	if ctx.SymbolsFile != "" {
		symbols, err := LoadSymbols(ctx.SymbolsFile)
		if err != nil {
			return nil, err
		}
		build.Symbols = symbols
	}
	return build, nil
}

func (l *Loader) buildContext(root string, file *Buildfile) (domain.BuildContext, error) {
	platform, err := parsePlatform(file.Platform)
	if err != nil {
		return domain.BuildContext{}, err
	}
	if file.Parallel < 0 {
		return domain.BuildContext{}, invalid("parallel must not be negative, got %d", file.Parallel)
	}

	tc := file.Toolchain
	env, err := loadEnv(root, tc.EnvFile, tc.Env)
	if err != nil {
		return domain.BuildContext{}, err
	}

	return domain.BuildContext{
		CacheDir:    resolvePath(root, file.Cache),
		Parallelism: file.Parallel,
		Platform:    platform,
		SdkRoot:     resolvePath(root, file.SDK),
		SymbolsFile: resolvePath(root, file.Symbols),
		Bundle: domain.BundlePolicy{
			StripBitcode:      file.Bundle.StripBitcode,
			TrimArchitectures: file.Bundle.TrimArchitectures,
		},
		Toolchain: domain.Toolchain{
			Clang:        resolveTool(root, tc.Clang),
			Lipo:         resolveTool(root, tc.Lipo),
			Strip:        resolveTool(root, tc.Strip),
			Dsymutil:     resolveTool(root, tc.Dsymutil),
			AOT:          resolveTool(root, tc.AOT),
			BitcodeStrip: resolveTool(root, tc.BitcodeStrip),
			Getconf:      resolveTool(root, tc.Getconf),
			Env:          env,
		},
	}, nil
}

// loadEnv merges the env file under the inline variables of the toolchain.
func loadEnv(root, envFile string, inline map[string]string) (map[string]string, error) {
	env := make(map[string]string, len(inline))
	if envFile != "" {
		path := resolvePath(root, envFile)
		vars, err := godotenv.Read(path)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(invalid("cannot read the env file '%s'", path), err.Error()), "env_file", path)
		}
		for k, v := range vars {
			env[k] = v
		}
	}
	for k, v := range inline {
		env[k] = v
	}
	if len(env) == 0 {
		return nil, nil
	}
	return env, nil
}

func (l *Loader) extension(
	root string,
	dto *ExtensionDTO,
	container string,
	platform domain.Platform,
) (*domain.Application, error) {
	kind, err := domain.ParseApplicationKind(dto.Kind)
	if err != nil {
		return nil, invalid("unknown application kind '%s'", dto.Kind)
	}
	if kind == domain.KindContainer {
		kind = domain.KindAppExtension
	}
	if dto.Container != "" && dto.Container != container {
		l.Logger.Warn(fmt.Sprintf("extension '%s' names the container '%s', but the app is '%s'",
			dto.Name, dto.Container, container))
	}

	app, err := l.application(root, &dto.ApplicationDTO, kind, platform)
	if err != nil {
		return nil, err
	}
	app.Container = container
	return app, nil
}

func (l *Loader) application(
	root string,
	dto *ApplicationDTO,
	kind domain.ApplicationKind,
	platform domain.Platform,
) (*domain.Application, error) {
	if err := validateName(dto.Name); err != nil {
		return nil, err
	}

	profile, err := buildProfile(&dto.Profile, platform)
	if err != nil {
		return nil, err
	}

	sources, err := l.resolve(root, dto.Sources)
	if err != nil {
		return nil, err
	}
	frameworks, err := l.resolve(root, dto.Frameworks)
	if err != nil {
		return nil, err
	}

	assemblies := make([]domain.Assembly, 0, len(dto.Assemblies))
	seen := make(map[string]bool, len(dto.Assemblies))
	for _, a := range dto.Assemblies {
		if a.Name == "" {
			a.Name = filepath.Base(a.Path)
		}
		if a.Path == "" {
			return nil, invalid("the assembly '%s' has no path", a.Name)
		}
		if seen[a.Name] {
			return nil, invalid("the assembly '%s' is listed more than once", a.Name)
		}
		seen[a.Name] = true

		var archPaths map[string]string
		for arch, p := range a.ArchPaths {
			if archPaths == nil {
				archPaths = make(map[string]string, len(a.ArchPaths))
			}
			archPaths[arch] = resolvePath(root, p)
		}
		assemblies = append(assemblies, domain.Assembly{
			Name:      a.Name,
			Path:      resolvePath(root, a.Path),
			ArchPaths: archPaths,
			SDK:       a.SDK,
			Linked:    a.Linked,
		})
	}

	return &domain.Application{
		Name:          dto.Name,
		BundleID:      dto.BundleID,
		BundleDir:     resolvePath(root, dto.BundleDir),
		Kind:          kind,
		Profile:       profile,
		Assemblies:    assemblies,
		NativeSources: sources,
		Frameworks:    frameworks,
	}, nil
}

func (l *Loader) resolve(root string, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	paths, err := l.resolver.Expand(patterns, root)
	if err != nil {
		return nil, zerr.Wrap(invalid("cannot resolve %s: %s", strings.Join(patterns, ", "), err.Error()),
			domain.ErrConfigParseFailed.Error())
	}
	return paths, nil
}

func buildProfile(dto *ProfileDTO, platform domain.Platform) (domain.BuildProfile, error) {
	abis, err := parseABIs(dto.ABIs)
	if err != nil {
		return domain.BuildProfile{}, err
	}
	bitcode, err := domain.ParseBitcodeMode(dto.Bitcode)
	if err != nil {
		return domain.BuildProfile{}, invalid("unknown bitcode mode '%s'", dto.Bitcode)
	}
	link, err := domain.ParseLinkMode(dto.LinkMode)
	if err != nil {
		return domain.BuildProfile{}, invalid("unknown link mode '%s'", dto.LinkMode)
	}
	targets, err := domain.ParseBuildTargets(dto.BuildTargets)
	if err != nil {
		return domain.BuildProfile{}, err
	}

	var interpreter domain.Interpreter
	if dto.Interpreter != nil {
		interpreter = domain.Interpreter{Enabled: true, Assemblies: *dto.Interpreter}
	}

	return domain.BuildProfile{
		ABIs:                abis,
		Bitcode:             bitcode,
		LinkMode:            link,
		LinkSkip:            dto.LinkSkip,
		LinkerDefinitions:   dto.LinkerDefinitions,
		StripSymbols:        dto.Strip,
		DebugSymbols:        dto.DebugSymbols,
		Interpreter:         interpreter,
		AOTArgs:             dto.AOTArgs,
		AOTOtherArgs:        dto.AOTOtherArgs,
		LLVM:                dto.LLVM,
		I18N:                dto.I18N,
		Optimizations:       dto.Optimizations,
		MinOS:               dto.MinOS,
		CodeSharingDisabled: dto.DisableCodeSharing,
		BuildTargets:        targets,
		FastRelaunch:        dto.FastRelaunch,
		Platform:            platform,
	}, nil
}

// parseABIs reports the offending value as a configuration diagnostic.
func parseABIs(values []string) ([]domain.ABI, error) {
	if len(values) == 0 {
		return nil, invalid("at least one architecture is required")
	}
	for _, v := range values {
		if _, err := domain.ParseABI(v); err != nil {
			return nil, zerr.Wrap(domain.Errorf(domain.CodeInvalidABI, v), err.Error())
		}
	}
	abis, err := domain.ParseABIs(values)
	if err != nil {
		return nil, zerr.Wrap(invalid("an architecture is listed twice in '%s'", strings.Join(values, ", ")), err.Error())
	}
	return abis, nil
}

func parsePlatform(s string) (domain.Platform, error) {
	switch strings.ToLower(s) {
	case "", "device", "iphoneos":
		return domain.PlatformDevice, nil
	case "simulator", "iphonesimulator":
		return domain.PlatformSimulator, nil
	default:
		return 0, invalid("unknown platform '%s'", s)
	}
}

// LoadSymbols reads a symbol table file.
func LoadSymbols(path string) (*domain.SymbolTable, error) {
	var file SymbolFile
	if err := readAndUnmarshalYAML(path, &file); err != nil {
		return nil, err
	}
	symbols := make([]domain.Symbol, 0, len(file.Symbols))
	for _, s := range file.Symbols {
		kind, err := parseSymbolKind(s.Kind)
		if err != nil {
			return nil, zerr.With(err, "symbol", s.Name)
		}
		symbols = append(symbols, domain.Symbol{Name: s.Name, Kind: kind, Type: s.Type, Member: s.Member})
	}
	return domain.NewSymbolTable(symbols), nil
}

func parseSymbolKind(s string) (domain.SymbolKind, error) {
	switch strings.ToLower(s) {
	case "", "function":
		return domain.SymbolFunction, nil
	case "objc-class", "class":
		return domain.SymbolObjCClass, nil
	case "field":
		return domain.SymbolField, nil
	default:
		return 0, invalid("unknown symbol kind '%s'", s)
	}
}

// readAndUnmarshalYAML reads a YAML file and unmarshals it into the target struct.
func readAndUnmarshalYAML[T any](configPath string, target *T) error {
	// #nosec G304 -- configPath is provided by the user
	data, err := os.ReadFile(configPath)
	if err != nil {
		return zerr.With(zerr.Wrap(invalid("%s", err.Error()), domain.ErrConfigReadFailed.Error()), "path", configPath)
	}
	if err := yaml.Unmarshal(data, target); err != nil {
		return zerr.With(zerr.Wrap(invalid("%s", err.Error()), domain.ErrConfigParseFailed.Error()), "path", configPath)
	}
	return nil
}

// validateName rejects names that cannot be used as task name segments.
func validateName(name string) error {
	if name == "" {
		return invalid("every application needs a name")
	}
	if strings.ContainsAny(name, ":/") || slices.Contains([]string{".", ".."}, name) {
		return invalid("the application name '%s' contains invalid characters", name)
	}
	return nil
}

func resolvePath(root, p string) string {
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Clean(filepath.Join(root, p))
}

// resolveTool keeps bare tool names for PATH lookup.
func resolveTool(root, p string) string {
	if p == "" || !strings.ContainsRune(p, filepath.Separator) {
		return p
	}
	return resolvePath(root, p)
}

func invalid(format string, args ...any) *domain.Diagnostic {
	return domain.Errorf(domain.CodeInvalidConfiguration, fmt.Sprintf(format, args...))
}
