// Package sharing decides whether app extensions can reuse the native code
// built for their container.
package sharing

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.trai.ch/mbuild/internal/core/domain"
	"go.trai.ch/mbuild/internal/core/ports"
	"golang.org/x/mod/semver"
)

// MinimumOS is the deployment target below which extensions cannot load
// frameworks from their container.
const MinimumOS = "8.0"

// Dimensions reported in decisions, in evaluation order.
const (
	DimensionDisabled      = "code sharing"
	DimensionMinOS         = "minimum OS version"
	DimensionI18NSupport   = "i18n support"
	DimensionBitcode       = "bitcode mode"
	DimensionBuildTargets  = "assembly build targets"
	DimensionI18N          = "i18n assemblies"
	DimensionAOTArgs       = "AOT arguments"
	DimensionLLVM          = "LLVM"
	DimensionLinkMode      = "link mode"
	DimensionInterpreter   = "interpreter"
	DimensionABI           = "architectures"
	DimensionOptimizations = "optimizations"
	DimensionAssembly      = "assembly"
)

var setOpts = cmp.Options{
	cmpopts.EquateEmpty(),
	cmpopts.SortSlices(func(a, b string) bool { return a < b }),
}

// Analyzer evaluates the sharing predicates.
type Analyzer struct {
	hasher ports.Hasher
}

// NewAnalyzer creates an analyzer comparing same-named assemblies with hasher.
func NewAnalyzer(hasher ports.Hasher) *Analyzer {
	return &Analyzer{hasher: hasher}
}

// mismatch is a failed predicate.
type mismatch struct {
	dimension      string
	containerValue string
	extensionValue string
	reason         string
}

type predicate func(a *Analyzer, container, ext *domain.Application) *mismatch

// predicates run in this exact order and the first failure is the one
// reported. Reordering changes which warning users see.
var predicates = []predicate{
	checkDisabled,
	checkMinOS,
	checkI18NSupport,
	checkBitcode,
	checkBuildTargets,
	checkI18N,
	checkAOTArgs,
	checkLLVM,
	checkLinkMode,
	checkInterpreter,
	checkABIs,
	checkOptimizations,
	checkAssemblies,
}

// Analyze returns one decision per extension, in order. Watch extensions are
// exempt and never shared.
func (a *Analyzer) Analyze(container *domain.Application, extensions []*domain.Application) []domain.SharingDecision {
	decisions := make([]domain.SharingDecision, 0, len(extensions))
	for _, ext := range extensions {
		d := domain.SharingDecision{Extension: ext.Name}
		if ext.Kind == domain.KindWatchExtension {
			d.Exempt = true
			decisions = append(decisions, d)
			continue
		}

		d.Shared = true
		for _, check := range predicates {
			if m := check(a, container, ext); m != nil {
				d.Shared = false
				d.Dimension = m.dimension
				d.ContainerValue = m.containerValue
				d.ExtensionValue = m.extensionValue
				d.Reason = m.reason
				break
			}
		}
		decisions = append(decisions, d)
	}
	return decisions
}

// Warnings returns an MB0113 warning for every extension that could have
// shared code but did not.
func Warnings(decisions []domain.SharingDecision) []*domain.Diagnostic {
	var out []*domain.Diagnostic
	for _, d := range decisions {
		if d.Shared || d.Exempt {
			continue
		}
		out = append(out, domain.Warningf(domain.CodeCodeSharingDisabled, d.Extension, d.Reason))
	}
	return out
}

func differs(dimension, containerValue, extensionValue string) *mismatch {
	return &mismatch{
		dimension:      dimension,
		containerValue: containerValue,
		extensionValue: extensionValue,
		reason: fmt.Sprintf("the %s differs between the container (%s) and the extension (%s)",
			dimension, containerValue, extensionValue),
	}
}

func checkDisabled(_ *Analyzer, container, ext *domain.Application) *mismatch {
	c, e := container.Profile.CodeSharingDisabled, ext.Profile.CodeSharingDisabled
	if !c && !e {
		return nil
	}
	side := "extension"
	if c {
		side = "container"
	}
	return &mismatch{
		dimension:      DimensionDisabled,
		containerValue: enabled(!c),
		extensionValue: enabled(!e),
		reason:         "code sharing has been disabled in the " + side,
	}
}

func checkMinOS(_ *Analyzer, container, ext *domain.Application) *mismatch {
	for _, app := range []*domain.Application{container, ext} {
		if v := app.Profile.MinOS; v != "" && compareOS(v, MinimumOS) < 0 {
			side := "extension"
			if app == container {
				side = "container"
			}
			return &mismatch{
				dimension:      DimensionMinOS,
				containerValue: orNone(container.Profile.MinOS),
				extensionValue: orNone(ext.Profile.MinOS),
				reason: fmt.Sprintf("the %s's deployment target is earlier than %s (it's %s)",
					side, MinimumOS, v),
			}
		}
	}
	return nil
}

func checkI18NSupport(_ *Analyzer, container, ext *domain.Application) *mismatch {
	for _, app := range []*domain.Application{container, ext} {
		for _, name := range app.Profile.I18N {
			if !slices.Contains(domain.KnownI18N, strings.ToLower(name)) {
				return &mismatch{
					dimension:      DimensionI18NSupport,
					containerValue: joinSet(container.Profile.I18N),
					extensionValue: joinSet(ext.Profile.I18N),
					reason:         fmt.Sprintf("the %s includes the unsupported I18N collection '%s'", app.Name, name),
				}
			}
		}
	}
	return nil
}

func checkBitcode(_ *Analyzer, container, ext *domain.Application) *mismatch {
	if c, e := container.Profile.Bitcode, ext.Profile.Bitcode; c != e {
		return differs(DimensionBitcode, c.String(), e.String())
	}
	return nil
}

func checkBuildTargets(_ *Analyzer, container, ext *domain.Application) *mismatch {
	c, e := container.Profile.BuildTargets, ext.Profile.BuildTargets
	if cmp.Equal(c, e, cmpopts.EquateEmpty()) {
		return nil
	}
	return differs(DimensionBuildTargets, formatTargets(c), formatTargets(e))
}

func checkI18N(_ *Analyzer, container, ext *domain.Application) *mismatch {
	c, e := container.Profile.I18N, ext.Profile.I18N
	if cmp.Equal(c, e, setOpts) {
		return nil
	}
	return differs(DimensionI18N, joinSet(c), joinSet(e))
}

func checkAOTArgs(_ *Analyzer, container, ext *domain.Application) *mismatch {
	cp, ep := container.Profile, ext.Profile
	if !cmp.Equal(cp.AOTArgs, ep.AOTArgs, cmpopts.EquateEmpty()) {
		return differs(DimensionAOTArgs, joinList(cp.AOTArgs), joinList(ep.AOTArgs))
	}
	if !cmp.Equal(cp.AOTOtherArgs, ep.AOTOtherArgs, cmpopts.EquateEmpty()) {
		return differs(DimensionAOTArgs, joinList(cp.AOTOtherArgs), joinList(ep.AOTOtherArgs))
	}
	return nil
}

func checkLLVM(_ *Analyzer, container, ext *domain.Application) *mismatch {
	if c, e := container.Profile.LLVM, ext.Profile.LLVM; c != e {
		return differs(DimensionLLVM, enabled(c), enabled(e))
	}
	return nil
}

func checkLinkMode(_ *Analyzer, container, ext *domain.Application) *mismatch {
	cp, ep := container.Profile, ext.Profile
	if cp.LinkMode != ep.LinkMode {
		return differs(DimensionLinkMode, cp.LinkMode.String(), ep.LinkMode.String())
	}
	if cp.LinkMode == domain.LinkNone {
		return nil
	}
	if !cmp.Equal(cp.LinkSkip, ep.LinkSkip, setOpts) {
		return differs(DimensionLinkMode, "skip "+joinSet(cp.LinkSkip), "skip "+joinSet(ep.LinkSkip))
	}
	if len(cp.LinkerDefinitions) > 0 || len(ep.LinkerDefinitions) > 0 {
		return &mismatch{
			dimension:      DimensionLinkMode,
			containerValue: joinList(cp.LinkerDefinitions),
			extensionValue: joinList(ep.LinkerDefinitions),
			reason:         "custom linker definitions are in use",
		}
	}
	return nil
}

func checkInterpreter(_ *Analyzer, container, ext *domain.Application) *mismatch {
	c, e := container.Profile.Interpreter, ext.Profile.Interpreter
	if c.Enabled != e.Enabled {
		return differs(DimensionInterpreter, enabled(c.Enabled), enabled(e.Enabled))
	}
	if c.Enabled && !cmp.Equal(c.Assemblies, e.Assemblies, setOpts) {
		return differs(DimensionInterpreter, joinSet(c.Assemblies), joinSet(e.Assemblies))
	}
	return nil
}

func checkABIs(_ *Analyzer, container, ext *domain.Application) *mismatch {
	for _, want := range ext.Profile.ABIs {
		covered := slices.ContainsFunc(container.Profile.ABIs, func(have domain.ABI) bool {
			return have.Covers(want)
		})
		if covered {
			continue
		}
		return &mismatch{
			dimension:      DimensionABI,
			containerValue: domain.FormatABIs(container.Profile.ABIs),
			extensionValue: domain.FormatABIs(ext.Profile.ABIs),
			reason: fmt.Sprintf("the container does not build for %s, which the extension requires (container: %s, extension: %s)",
				want, domain.FormatABIs(container.Profile.ABIs), domain.FormatABIs(ext.Profile.ABIs)),
		}
	}
	return nil
}

func checkOptimizations(_ *Analyzer, container, ext *domain.Application) *mismatch {
	c, e := container.Profile.Optimizations, ext.Profile.Optimizations
	if cmp.Equal(c, e, cmpopts.EquateEmpty()) {
		return nil
	}
	return differs(DimensionOptimizations, formatOptimizations(c), formatOptimizations(e))
}

func checkAssemblies(a *Analyzer, container, ext *domain.Application) *mismatch {
	for _, asm := range ext.Assemblies {
		other, ok := container.FindAssembly(asm.Name)
		if !ok || other.Path == asm.Path {
			continue
		}
		if a.hasher != nil {
			if equal, err := a.hasher.FilesEqual(other.Path, asm.Path); err == nil && equal {
				continue
			}
		}
		return &mismatch{
			dimension:      DimensionAssembly,
			containerValue: other.Path,
			extensionValue: asm.Path,
			reason: fmt.Sprintf("the container references the assembly '%s' from '%s', while the extension references a different version from '%s'",
				asm.Name, other.Path, asm.Path),
		}
	}
	return nil
}

// compareOS compares dotted OS versions like "11.0" and "8".
func compareOS(a, b string) int {
	return semver.Compare(canonicalOS(a), canonicalOS(b))
}

// canonicalOS maps an OS version onto semver. Components past the patch
// level, as in "12.4.1.2", do not take part in the comparison.
func canonicalOS(v string) string {
	parts := strings.Split(strings.TrimPrefix(v, "v"), ".")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	return semver.Canonical("v" + strings.Join(parts, "."))
}

func enabled(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func joinList(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	return strings.Join(values, " ")
}

func joinSet(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return strings.Join(sorted, ", ")
}

func formatTargets(targets map[string]domain.BuildTarget) string {
	if len(targets) == 0 {
		return "none"
	}
	out := make([]string, 0, len(targets))
	for _, key := range slices.Sorted(maps.Keys(targets)) {
		out = append(out, targets[key].String())
	}
	return strings.Join(out, ", ")
}

func formatOptimizations(opts map[string]bool) string {
	if len(opts) == 0 {
		return "none"
	}
	out := make([]string, 0, len(opts))
	for _, key := range slices.Sorted(maps.Keys(opts)) {
		prefix := "+"
		if !opts[key] {
			prefix = "-"
		}
		out = append(out, prefix+key)
	}
	return strings.Join(out, ",")
}
