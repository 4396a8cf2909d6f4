// Package assigner decides which native compilation unit every assembly of
// an application is built into.
package assigner

import (
	"errors"
	"slices"
	"strings"

	"go.trai.ch/mbuild/internal/core/domain"
)

// Result is the outcome of an assignment.
type Result struct {
	Units []domain.CompilationUnit
	// Warnings are non-fatal notices such as the fast relaunch downgrade.
	Warnings []*domain.Diagnostic
}

type assignment struct {
	assembly string
	kind     domain.BuildTargetKind
	unit     string
}

// Assign maps every assembly to a compilation unit. For each assembly an
// override naming it wins over the @sdk default (SDK assemblies only), which
// wins over the @all default. Without any default an assembly becomes its own
// static object.
//
// All configuration problems are reported together: overrides that match no
// assembly, units whose members resolved to different kinds, and static
// objects with more than one member.
func Assign(assemblies []domain.Assembly, targets map[string]domain.BuildTarget, fastRelaunch bool) (Result, error) {
	var res Result

	if fastRelaunch {
		if requested := richTargets(targets); len(requested) > 0 {
			res.Warnings = append(res.Warnings,
				domain.Warningf(domain.CodeFastRelaunchDowngrade, strings.Join(requested, ", ")))
		}
		targets = nil
	}

	var errs []error
	used := make(map[string]bool, len(targets))
	assignments := make([]assignment, 0, len(assemblies))
	for _, asm := range assemblies {
		bt, key := resolve(asm, targets)
		if key != "" {
			used[key] = true
		}
		name := bt.Name
		if name == "" {
			name = asm.BaseName()
		}
		assignments = append(assignments, assignment{assembly: asm.Name, kind: bt.Kind, unit: name})
	}

	for _, key := range sortedKeys(targets) {
		if key == domain.BuildTargetAll || key == domain.BuildTargetSDK || used[key] {
			continue
		}
		errs = append(errs, domain.Errorf(domain.CodeUnmatchedBuildTarget, key))
	}

	units, groupErrs := group(assignments)
	errs = append(errs, groupErrs...)
	if len(errs) > 0 {
		return res, errors.Join(errs...)
	}

	res.Units = units
	return res, nil
}

// resolve picks the target for asm and returns the key of the override used.
func resolve(asm domain.Assembly, targets map[string]domain.BuildTarget) (domain.BuildTarget, string) {
	for _, key := range []string{asm.Name, asm.BaseName()} {
		if bt, ok := targets[key]; ok {
			return bt, key
		}
	}
	if asm.SDK {
		if bt, ok := targets[domain.BuildTargetSDK]; ok {
			return bt, domain.BuildTargetSDK
		}
	}
	if bt, ok := targets[domain.BuildTargetAll]; ok {
		return bt, domain.BuildTargetAll
	}
	return domain.BuildTarget{Kind: domain.TargetStaticObject}, ""
}

func group(assignments []assignment) ([]domain.CompilationUnit, []error) {
	var units []domain.CompilationUnit
	index := make(map[string]int)
	first := make(map[string]assignment)
	var errs []error

	for _, a := range assignments {
		i, ok := index[a.unit]
		if !ok {
			index[a.unit] = len(units)
			first[a.unit] = a
			units = append(units, domain.CompilationUnit{Name: a.unit, Kind: a.kind, Members: []string{a.assembly}})
			continue
		}
		if f := first[a.unit]; f.kind != a.kind {
			errs = append(errs, domain.Errorf(domain.CodeMixedTargetKinds,
				f.assembly, a.assembly, a.unit, f.kind, a.kind))
			continue
		}
		units[i].Members = append(units[i].Members, a.assembly)
	}

	for _, u := range units {
		if u.Kind == domain.TargetStaticObject && len(u.Members) > 1 {
			errs = append(errs, domain.Errorf(domain.CodeStaticObjectMembers, u.Name, strings.Join(u.Members, "', '")))
		}
	}
	return units, errs
}

// richTargets lists the overrides asking for anything but a static object.
func richTargets(targets map[string]domain.BuildTarget) []string {
	var out []string
	for _, key := range sortedKeys(targets) {
		if bt := targets[key]; bt.Kind != domain.TargetStaticObject {
			out = append(out, bt.String())
		}
	}
	return out
}

func sortedKeys(targets map[string]domain.BuildTarget) []string {
	keys := make([]string, 0, len(targets))
	for k := range targets {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
