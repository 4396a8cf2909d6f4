// Package app implements the application layer for mbuild.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"runtime"
	"time"

	"go.trai.ch/mbuild/internal/adapters/bundle" //nolint:depguard // Wired in app layer
	"go.trai.ch/mbuild/internal/adapters/fs"     //nolint:depguard // Wired in app layer
	"go.trai.ch/mbuild/internal/core/domain"
	"go.trai.ch/mbuild/internal/core/ports"
	"go.trai.ch/mbuild/internal/engine/assigner"
	"go.trai.ch/mbuild/internal/engine/planner"
	"go.trai.ch/mbuild/internal/engine/scheduler"
	"go.trai.ch/mbuild/internal/engine/sharing"
	"go.trai.ch/zerr"
)

// Toolchain creates the adapters that depend on the loaded build.
type Toolchain interface {
	Executor(bctx domain.BuildContext, symbols *domain.SymbolTable) ports.TaskExecutor
	Tools(tc domain.Toolchain) ports.NativeTools
}

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	logger       ports.Logger
	telemetry    ports.Telemetry
	cache        ports.CacheProvider
	walker       *fs.Walker
	hasher       *fs.Hasher
	scheduler    *scheduler.Scheduler
	toolchain    Toolchain
	analyzer     *sharing.Analyzer
	planner      *planner.Planner
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	log ports.Logger,
	telemetry ports.Telemetry,
	cache ports.CacheProvider,
	walker *fs.Walker,
	hasher *fs.Hasher,
	sched *scheduler.Scheduler,
	toolchain Toolchain,
) *App {
	return &App{
		configLoader: loader,
		logger:       log,
		telemetry:    telemetry,
		cache:        cache,
		walker:       walker,
		hasher:       hasher,
		scheduler:    sched,
		toolchain:    toolchain,
		analyzer:     sharing.NewAnalyzer(hasher),
		planner:      planner.New(),
	}
}

// RunOptions are the command line overrides of the build description.
type RunOptions struct {
	ConfigPath   string
	CacheDir     string
	Force        bool
	ABIs         []string
	LinkMode     string
	Bitcode      string
	BuildTargets []string
	Parallelism  int
	FastRelaunch bool
}

// Build runs a complete build: every task of the plan, then bundle assembly.
// Nothing is copied into a bundle unless every task succeeded.
func (a *App) Build(ctx context.Context, opts RunOptions) (*scheduler.Report, error) {
	build, plan, err := a.prepare(opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = a.telemetry.Close()
	}()

	bctx := build.Context
	store, warning, err := a.cache.Prepare(bctx.CacheDir, fingerprint(build))
	if warning != nil {
		a.logger.Warn(warning.String())
	}
	if err != nil {
		return nil, zerr.Wrap(err, "failed to prepare build cache")
	}

	oracle := fs.NewOracle(a.walker, bctx.Force, fs.WithContentFallback(a.hasher))
	report, err := a.scheduler.Run(ctx, plan.Graph, scheduler.Options{
		Executor:    a.toolchain.Executor(bctx, build.Symbols),
		Oracle:      oracle,
		Store:       store,
		Parallelism: bctx.Parallelism,
		Force:       bctx.Force,
	})
	if err != nil {
		return report, zerr.Wrap(err, domain.ErrBuildExecutionFailed.Error())
	}

	// A cleared cache means the inputs changed in ways timestamps may not
	// show, such as a different ABI set, so bundles are rebuilt too.
	bundleOracle := oracle
	if warning != nil {
		bundleOracle = fs.NewOracle(a.walker, true)
	}
	assembler := bundle.NewAssembler(
		bundleOracle, a.hasher, a.toolchain.Tools(bctx.Toolchain), bctx.Bundle, bctx.Parallelism)
	var errs []error
	for _, app := range build.Applications() {
		entries := plan.Bundles[app.Name]
		if len(entries) == 0 {
			continue
		}
		if err := assembler.Assemble(ctx, bundleDir(build, app), entries); err != nil {
			errs = append(errs, zerr.With(err, "application", app.Name))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return report, zerr.Wrap(err, domain.ErrBuildExecutionFailed.Error())
	}

	a.logger.Info(summary(report))
	return report, nil
}

// Graph writes the planned task graph as an edge list without running anything.
func (a *App) Graph(_ context.Context, opts RunOptions, w io.Writer) error {
	_, plan, err := a.prepare(opts)
	if err != nil {
		return err
	}
	return plan.Graph.WriteEdgeList(w)
}

// prepare loads the build description and turns it into a plan. Every
// configuration problem is found here, before any tool runs.
func (a *App) prepare(opts RunOptions) (*domain.Build, *planner.Plan, error) {
	build, err := a.configLoader.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, zerr.Wrap(err, "failed to load configuration")
	}
	if err := applyOverrides(build, opts); err != nil {
		return nil, nil, err
	}

	var errs []error
	for _, app := range build.Applications() {
		res, err := assigner.Assign(app.Assemblies, app.Profile.BuildTargets, app.Profile.FastRelaunch)
		for _, w := range res.Warnings {
			a.logger.Warn(w.String())
		}
		if err != nil {
			errs = append(errs, zerr.With(err, "application", app.Name))
			continue
		}
		app.Units = res.Units
	}
	if err := errors.Join(errs...); err != nil {
		return nil, nil, err
	}

	decisions := a.analyzer.Analyze(&build.Container, build.Applications()[1:])
	for i, d := range decisions {
		build.Extensions[i].SharesCode = d.Shared
	}
	for _, w := range sharing.Warnings(decisions) {
		a.logger.Warn(w.String())
	}

	plan, err := a.planner.Plan(build)
	if err != nil {
		return nil, nil, err
	}
	return build, plan, nil
}

// applyOverrides replaces build description settings with command line values.
// abiError names the first value that is not an architecture, or falls back
// to err for lists that fail as a whole.
func abiError(values []string, err error) *domain.Diagnostic {
	for _, v := range values {
		if _, perr := domain.ParseABI(v); perr != nil {
			return domain.Errorf(domain.CodeInvalidABI, v)
		}
	}
	return domain.Errorf(domain.CodeInvalidConfiguration, err.Error())
}

func applyOverrides(build *domain.Build, opts RunOptions) error {
	var (
		abis    []domain.ABI
		link    domain.LinkMode
		bitcode domain.BitcodeMode
		targets map[string]domain.BuildTarget
		err     error
	)
	if len(opts.ABIs) > 0 {
		if abis, err = domain.ParseABIs(opts.ABIs); err != nil {
			return zerr.Wrap(abiError(opts.ABIs, err), "invalid --abi")
		}
	}
	if opts.LinkMode != "" {
		if link, err = domain.ParseLinkMode(opts.LinkMode); err != nil {
			return zerr.Wrap(domain.Errorf(domain.CodeInvalidConfiguration, err.Error()), "invalid --link-mode")
		}
	}
	if opts.Bitcode != "" {
		if bitcode, err = domain.ParseBitcodeMode(opts.Bitcode); err != nil {
			return zerr.Wrap(domain.Errorf(domain.CodeInvalidConfiguration, err.Error()), "invalid --bitcode")
		}
	}
	if len(opts.BuildTargets) > 0 {
		if targets, err = domain.ParseBuildTargets(opts.BuildTargets); err != nil {
			return err
		}
	}

	bctx := &build.Context
	if opts.CacheDir != "" {
		bctx.CacheDir = opts.CacheDir
	}
	bctx.Force = bctx.Force || opts.Force
	if opts.Parallelism > 0 {
		bctx.Parallelism = opts.Parallelism
	}
	if bctx.Parallelism <= 0 {
		bctx.Parallelism = runtime.NumCPU()
	}

	for _, app := range build.Applications() {
		p := &app.Profile
		if abis != nil {
			p.ABIs = abis
		}
		if opts.LinkMode != "" {
			p.LinkMode = link
		}
		if opts.Bitcode != "" {
			p.Bitcode = bitcode
		}
		if targets != nil {
			merged := make(map[string]domain.BuildTarget, len(p.BuildTargets)+len(targets))
			maps.Copy(merged, p.BuildTargets)
			maps.Copy(merged, targets)
			p.BuildTargets = merged
		}
		p.FastRelaunch = p.FastRelaunch || opts.FastRelaunch
	}
	return nil
}

// fingerprint captures every setting that affects generated code. A change
// invalidates the whole cache.
func fingerprint(build *domain.Build) []byte {
	type appPrint struct {
		Name    string
		Kind    string
		Profile domain.BuildProfile
		Units   []domain.CompilationUnit
		Shares  bool
	}
	fp := struct {
		Toolchain domain.Toolchain
		SDK       string
		Platform  string
		Apps      []appPrint
	}{
		Toolchain: build.Context.Toolchain,
		SDK:       build.Context.SdkRoot,
		Platform:  build.Context.Platform.String(),
	}
	for _, app := range build.Applications() {
		fp.Apps = append(fp.Apps, appPrint{
			Name:    app.Name,
			Kind:    app.Kind.String(),
			Profile: app.Profile,
			Units:   app.Units,
			Shares:  app.SharesCode,
		})
	}
	// Every field is a plain value; Marshal cannot fail.
	data, _ := json.Marshal(fp)
	return data
}

// bundleDir returns where app is assembled. Extensions default to the
// container's PlugIns (or Watch) directory.
func bundleDir(build *domain.Build, app *domain.Application) string {
	if app.BundleDir != "" {
		return app.BundleDir
	}
	if !app.IsExtension() {
		return filepath.Join(build.Context.CacheDir, "bundles", app.Name+".app")
	}
	container := bundleDir(build, &build.Container)
	if app.Kind == domain.KindWatchExtension {
		return filepath.Join(container, "Watch", app.Name+".app")
	}
	return filepath.Join(container, "PlugIns", app.Name+".appex")
}

func summary(r *scheduler.Report) string {
	return fmt.Sprintf("%d tasks: %d executed, %d up to date in %s",
		len(r.Statuses),
		r.Count(domain.TaskStatusCompleted),
		r.Count(domain.TaskStatusUpToDate),
		r.Duration.Round(time.Millisecond))
}
