// Package planner turns a loaded build into a task graph and the list of
// files every bundle receives.
package planner

import (
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/mbuild/internal/core/domain"
)

// Plan is the full work of one build.
type Plan struct {
	Graph *domain.Graph
	// Bundles maps an application name to the files of its bundle, sorted
	// by destination.
	Bundles map[string][]domain.BundleFileInfo
}

// Planner builds plans. It is stateless.
type Planner struct{}

// New creates a Planner.
func New() *Planner {
	return &Planner{}
}

// archOutputs are the objects built for one application and ABI.
type archOutputs struct {
	dir string
	// aot maps an assembly name to its AOT object.
	aot map[string]string
	// units maps a dynamic unit name to its per-architecture artifact.
	units      map[string]string
	executable string
	link       domain.InternedString
}

type planState struct {
	build   *domain.Build
	tools   domain.Toolchain
	graph   *domain.Graph
	bundles map[string]map[string]*domain.BundleFileInfo
	// outputs keeps per-ABI results by application and architecture name.
	outputs map[string]map[string]*archOutputs
}

// Plan creates the task graph for build. Compilation units must have been
// assigned and sharing decided. The container is planned first so shared
// extensions can link against its objects.
func (p *Planner) Plan(build *domain.Build) (*Plan, error) {
	st := &planState{
		build:   build,
		tools:   build.Context.Toolchain.WithDefaults(),
		graph:   domain.NewGraph(),
		bundles: make(map[string]map[string]*domain.BundleFileInfo),
		outputs: make(map[string]map[string]*archOutputs),
	}

	for _, app := range build.Applications() {
		if err := st.planApp(app); err != nil {
			return nil, err
		}
	}
	if err := st.graph.Validate(); err != nil {
		return nil, err
	}

	plan := &Plan{Graph: st.graph, Bundles: make(map[string][]domain.BundleFileInfo, len(st.bundles))}
	for app, entries := range st.bundles {
		for _, dest := range slices.Sorted(maps.Keys(entries)) {
			plan.Bundles[app] = append(plan.Bundles[app], *entries[dest])
		}
	}
	return plan, nil
}

func (st *planState) planApp(app *domain.Application) error {
	st.outputs[app.Name] = make(map[string]*archOutputs)

	var links []domain.InternedString
	var perArch []string
	for _, abi := range app.Profile.ABIs {
		out, err := st.planArch(app, abi)
		if err != nil {
			return err
		}
		st.outputs[app.Name][abi.ArchName()] = out
		links = append(links, out.link)
		perArch = append(perArch, out.executable)
	}
	if len(perArch) == 0 {
		return nil
	}

	appDir := filepath.Join(st.build.Context.CacheDir, app.Name)
	executable := perArch[0]
	if len(perArch) > 1 {
		executable = filepath.Join(appDir, app.ExecutableName())
		err := st.add(&domain.Task{
			Name:         taskName(domain.KindLipo, app.Name, "", app.ExecutableName()),
			Kind:         domain.KindLipo,
			Inputs:       domain.Intern(perArch...),
			Outputs:      domain.Intern(executable),
			Dependencies: links,
			Command:      slices.Concat([]string{st.tools.Lipo, "-create"}, perArch, []string{"-output", executable}),
			App:          app.Name,
		})
		if err != nil {
			return err
		}
	}

	var dsym domain.InternedString
	if app.Profile.DebugSymbols {
		dsymDir := filepath.Join(appDir, app.ExecutableName()+".dSYM")
		dsym = taskName(domain.KindDsym, app.Name, "", app.ExecutableName())
		err := st.add(&domain.Task{
			Name:    dsym,
			Kind:    domain.KindDsym,
			Inputs:  domain.Intern(executable),
			Outputs: domain.Intern(dsymDir),
			Command: []string{st.tools.Dsymutil, executable, "-o", dsymDir},
			App:     app.Name,
		})
		if err != nil {
			return err
		}
	}

	if app.Profile.StripSymbols {
		stripped := filepath.Join(appDir, "stripped", app.ExecutableName())
		task := &domain.Task{
			Name:    taskName(domain.KindStrip, app.Name, "", app.ExecutableName()),
			Kind:    domain.KindStrip,
			Inputs:  domain.Intern(executable),
			Outputs: domain.Intern(stripped),
			Command: []string{st.tools.Strip, "-x", executable, "-o", stripped},
			App:     app.Name,
		}
		if app.Profile.DebugSymbols {
			// Symbols must be extracted before they are removed.
			task.Dependencies = []domain.InternedString{dsym}
		}
		if err := st.add(task); err != nil {
			return err
		}
		executable = stripped
	}

	st.bundleFiles(app, executable)
	return nil
}

func (st *planState) planArch(app *domain.Application, abi domain.ABI) (*archOutputs, error) {
	arch := abi.ArchName()
	out := &archOutputs{
		dir:   filepath.Join(st.build.Context.CacheDir, app.Name, arch),
		aot:   make(map[string]string),
		units: make(map[string]string),
	}
	shared := st.sharedOutputs(app, abi)

	var objects []string
	names := sourceNames(app.NativeSources)
	for _, src := range app.NativeSources {
		name, ok := names[src]
		if !ok {
			continue
		}
		delete(names, src)
		obj := filepath.Join(out.dir, strings.TrimSuffix(name, filepath.Ext(name))+".o")
		cmd := []string{st.tools.Clang, "-arch", arch}
		cmd = append(cmd, st.codegenFlags(app, abi)...)
		cmd = append(cmd, "-c", src, "-o", obj)
		err := st.add(&domain.Task{
			Name:       taskName(domain.KindCompile, app.Name, arch, name),
			Kind:       domain.KindCompile,
			Inputs:     domain.Intern(src),
			Outputs:    domain.Intern(obj),
			Command:    cmd,
			WorkingDir: domain.NewInternedString(st.build.Context.CacheDir),
			App:        app.Name,
			ABI:        abi,
		})
		if err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}

	for _, asm := range app.Assemblies {
		if isInterpreted(app.Profile.Interpreter, asm) {
			continue
		}
		if shared != nil {
			if obj, ok := shared.aot[asm.Name]; ok {
				out.aot[asm.Name] = obj
				continue
			}
		}
		obj := filepath.Join(out.dir, asm.Name+".o")
		if err := st.add(st.aotTask(app, abi, asm, obj)); err != nil {
			return nil, err
		}
		out.aot[asm.Name] = obj
	}

	for _, unit := range app.Units {
		if unit.Kind == domain.TargetStaticObject {
			for _, m := range unit.Members {
				if obj, ok := out.aot[m]; ok {
					objects = append(objects, obj)
				}
			}
			continue
		}
		if shared != nil {
			if artifact, ok := shared.units[unit.Name]; ok {
				out.units[unit.Name] = artifact
				objects = append(objects, artifact)
				continue
			}
		}
		artifact, err := st.linkUnit(app, abi, unit, out)
		if err != nil {
			return nil, err
		}
		out.units[unit.Name] = artifact
		objects = append(objects, artifact)
	}

	out.executable = filepath.Join(out.dir, app.ExecutableName())
	out.link = taskName(domain.KindLink, app.Name, arch, app.ExecutableName())
	cmd := []string{st.tools.Clang, "-arch", arch}
	cmd = append(cmd, st.codegenFlags(app, abi)...)
	cmd = append(cmd, objects...)
	for _, fw := range app.Frameworks {
		cmd = append(cmd, "-F", filepath.Dir(fw), "-framework", frameworkName(fw))
	}
	cmd = append(cmd, "-o", out.executable)

	return out, st.add(&domain.Task{
		Name:              out.link,
		Kind:              domain.KindLink,
		Inputs:            domain.Intern(objects...),
		Outputs:           domain.Intern(out.executable),
		ExtraDependencies: domain.Intern(app.Frameworks...),
		Command:           cmd,
		WorkingDir:        domain.NewInternedString(st.build.Context.CacheDir),
		App:               app.Name,
		ABI:               abi,
		Unit:              app.ExecutableName(),
	})
}

// sourceNames gives every native source the file name its object and task
// are named after. Sources whose objects would share a name get a suffix
// derived from their full path.
func sourceNames(sources []string) map[string]string {
	stem := func(src string) string {
		return strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	}
	seen := make(map[string]map[string]bool, len(sources))
	for _, src := range sources {
		if seen[stem(src)] == nil {
			seen[stem(src)] = make(map[string]bool)
		}
		seen[stem(src)][src] = true
	}

	names := make(map[string]string, len(sources))
	for _, src := range sources {
		if len(seen[stem(src)]) == 1 {
			names[src] = filepath.Base(src)
			continue
		}
		names[src] = fmt.Sprintf("%s-%08x%s", stem(src), uint32(xxhash.Sum64String(src)), filepath.Ext(src))
	}
	return names
}

// sharedOutputs returns the container's outputs for abi when app is an
// extension reusing them.
func (st *planState) sharedOutputs(app *domain.Application, abi domain.ABI) *archOutputs {
	if !app.IsExtension() || !app.SharesCode {
		return nil
	}
	byArch, ok := st.outputs[app.Container]
	if !ok {
		return nil
	}
	return byArch[abi.ArchName()]
}

func (st *planState) aotTask(app *domain.Application, abi domain.ABI, asm domain.Assembly, obj string) *domain.Task {
	opts := []string{"mtriple=" + triple(abi), "outfile=" + obj}
	if app.Profile.LLVM || abi&domain.ABILLVM != 0 {
		opts = append(opts, "llvm")
	}
	opts = append(opts, app.Profile.AOTArgs...)

	cmd := []string{st.tools.AOT, "--aot=" + strings.Join(opts, ",")}
	cmd = append(cmd, app.Profile.AOTOtherArgs...)
	cmd = append(cmd, asm.PathFor(abi))

	return &domain.Task{
		Name:       taskName(domain.KindAOT, app.Name, abi.ArchName(), asm.Name),
		Kind:       domain.KindAOT,
		Inputs:     domain.Intern(asm.PathFor(abi)),
		Outputs:    domain.Intern(obj),
		Command:    cmd,
		WorkingDir: domain.NewInternedString(st.build.Context.CacheDir),
		App:        app.Name,
		ABI:        abi,
		Unit:       asm.Name,
	}
}

func (st *planState) linkUnit(
	app *domain.Application,
	abi domain.ABI,
	unit domain.CompilationUnit,
	out *archOutputs,
) (string, error) {
	var objects []string
	for _, m := range unit.Members {
		if obj, ok := out.aot[m]; ok {
			objects = append(objects, obj)
		}
	}

	artifact := filepath.Join(out.dir, unit.ArtifactName())
	installName := "@rpath/" + unit.ArtifactName()
	if unit.Kind == domain.TargetFramework {
		artifact = filepath.Join(out.dir, unit.Name+".framework", unit.Name)
		installName = "@rpath/" + unit.Name + ".framework/" + unit.Name
	}

	cmd := []string{st.tools.Clang, "-arch", abi.ArchName(), "-dynamiclib", "-install_name", installName}
	cmd = append(cmd, st.codegenFlags(app, abi)...)
	cmd = append(cmd, objects...)
	cmd = append(cmd, "-o", artifact)

	file := unit.ArtifactName()
	if unit.Kind == domain.TargetFramework {
		file = unit.Name + ".framework"
	}
	return artifact, st.add(&domain.Task{
		Name:       taskName(domain.KindLink, app.Name, abi.ArchName(), file),
		Kind:       domain.KindLink,
		Inputs:     domain.Intern(objects...),
		Outputs:    domain.Intern(artifact),
		Command:    cmd,
		WorkingDir: domain.NewInternedString(st.build.Context.CacheDir),
		App:        app.Name,
		ABI:        abi,
		Unit:       unit.Name,
	})
}

func (st *planState) codegenFlags(app *domain.Application, abi domain.ABI) []string {
	var flags []string
	if v := app.Profile.MinOS; v != "" {
		if st.build.Context.Platform == domain.PlatformSimulator || abi.IsSimulator() {
			flags = append(flags, "-mios-simulator-version-min="+v)
		} else {
			flags = append(flags, "-miphoneos-version-min="+v)
		}
	}
	switch app.Profile.Bitcode {
	case domain.BitcodeFull:
		flags = append(flags, "-fembed-bitcode")
	case domain.BitcodeMarker:
		flags = append(flags, "-fembed-bitcode-marker")
	case domain.BitcodeNone:
	}
	if sdk := st.build.Context.SdkRoot; sdk != "" {
		flags = append(flags, "-isysroot", sdk)
	}
	return flags
}

// bundleFiles records what app's bundle receives. A shared extension's
// dynamic units and frameworks live in the container's bundle.
func (st *planState) bundleFiles(app *domain.Application, executable string) {
	st.addEntry(app.Name, domain.BundleFileInfo{
		Destination: app.ExecutableName(),
		Sources:     []string{executable},
	})
	for _, asm := range app.Assemblies {
		st.addEntry(app.Name, domain.BundleFileInfo{Destination: asm.Name, Sources: []string{asm.Path}})
	}

	host := app.Name
	if app.IsExtension() && app.SharesCode {
		host = app.Container
	}
	for _, fw := range app.Frameworks {
		st.addEntry(host, domain.BundleFileInfo{
			Destination: filepath.Join("Frameworks", filepath.Base(fw)),
			Sources:     []string{fw},
			ABIs:        app.Profile.ABIs,
		})
	}

	for _, unit := range app.Units {
		if unit.Kind == domain.TargetStaticObject {
			continue
		}
		var sources []string
		for _, abi := range app.Profile.ABIs {
			if out := st.outputs[app.Name][abi.ArchName()]; out != nil {
				sources = append(sources, out.units[unit.Name])
			}
		}
		entry := domain.BundleFileInfo{Destination: unit.ArtifactName(), Sources: sources}
		if unit.Kind == domain.TargetFramework {
			entry = domain.BundleFileInfo{
				Destination:      filepath.Join("Frameworks", unit.Name+".framework"),
				Sources:          sources,
				DylibToFramework: true,
				BundleID:         frameworkBundleID(st.build.Container.BundleID, unit.Name),
				ExecutableName:   unit.Name,
				MinOS:            app.Profile.MinOS,
				Platform:         st.build.Context.Platform,
				ABIs:             app.Profile.ABIs,
			}
		}
		st.addEntry(host, entry)
	}
}

// addEntry merges entries with the same destination. Different sources for
// one destination are resolved by the bundle assembler.
func (st *planState) addEntry(app string, entry domain.BundleFileInfo) {
	entries, ok := st.bundles[app]
	if !ok {
		entries = make(map[string]*domain.BundleFileInfo)
		st.bundles[app] = entries
	}
	existing, ok := entries[entry.Destination]
	if !ok {
		e := entry
		entries[entry.Destination] = &e
		return
	}
	for _, src := range entry.Sources {
		if !slices.Contains(existing.Sources, src) {
			existing.Sources = append(existing.Sources, src)
		}
	}
}

func (st *planState) add(task *domain.Task) error {
	return st.graph.AddTask(task)
}

func taskName(kind domain.TaskKind, app, arch, file string) domain.InternedString {
	parts := []string{app}
	if arch != "" {
		parts = append(parts, arch)
	}
	parts = append(parts, file)
	return domain.NewInternedString(kind.String() + ":" + strings.Join(parts, "/"))
}

// isInterpreted reports whether asm runs in the interpreter instead of
// being compiled ahead of time. Entries prefixed with "-" exclude.
func isInterpreted(in domain.Interpreter, asm domain.Assembly) bool {
	if !in.Enabled {
		return false
	}
	included := false
	positives := 0
	for _, entry := range in.Assemblies {
		name, excluded := strings.CutPrefix(entry, "-")
		matches := name == asm.Name || name == asm.BaseName()
		if excluded {
			if matches {
				return false
			}
			continue
		}
		positives++
		if matches || name == "all" {
			included = true
		}
	}
	return positives == 0 || included
}

func triple(abi domain.ABI) string {
	switch abi.Arch() {
	case domain.ABIArm64, domain.ABIArm64e:
		return "arm64-ios"
	case domain.ABIArm6432:
		return "arm64_32-watchos"
	case domain.ABIArmv7k:
		return "armv7k-watchos"
	case domain.ABIi386:
		return "i386-apple-ios-simulator"
	case domain.ABIx8664:
		return "x86_64-apple-ios-simulator"
	default:
		return abi.ArchName() + "-ios"
	}
}

func frameworkName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".framework")
}

func frameworkBundleID(appID, unit string) string {
	if appID == "" {
		return "com.mbuild." + unit
	}
	return appID + ".frameworks." + unit
}
