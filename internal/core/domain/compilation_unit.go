package domain

import (
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// BuildTargetKind is the native artifact an assembly is compiled into.
type BuildTargetKind int

const (
	// TargetStaticObject links the assembly's code into the executable.
	TargetStaticObject BuildTargetKind = iota
	// TargetDynamicLibrary builds a lib<name>.dylib.
	TargetDynamicLibrary
	// TargetFramework builds <name>.framework.
	TargetFramework
)

// String returns the name accepted by ParseBuildTargetKind.
func (k BuildTargetKind) String() string {
	switch k {
	case TargetStaticObject:
		return "staticobject"
	case TargetDynamicLibrary:
		return "dynamiclibrary"
	case TargetFramework:
		return "framework"
	default:
		return "unknown"
	}
}

// ParseBuildTargetKind parses "staticobject", "dynamiclibrary" or "framework".
func ParseBuildTargetKind(s string) (BuildTargetKind, error) {
	switch strings.ToLower(s) {
	case "staticobject":
		return TargetStaticObject, nil
	case "dynamiclibrary":
		return TargetDynamicLibrary, nil
	case "framework":
		return TargetFramework, nil
	default:
		return 0, zerr.With(ErrInvalidBuildTarget, "kind", s)
	}
}

// Reserved override names.
const (
	BuildTargetAll = "@all"
	BuildTargetSDK = "@sdk"
)

// BuildTarget is one "assembly=kind[=name]" override.
type BuildTarget struct {
	Assembly string
	Kind     BuildTargetKind
	// Name is the compilation unit name; empty means "derive from the assembly".
	Name string
}

// String renders the override in the syntax ParseBuildTarget accepts.
func (t BuildTarget) String() string {
	s := t.Assembly + "=" + t.Kind.String()
	if t.Name != "" {
		s += "=" + t.Name
	}
	return s
}

// ParseBuildTarget parses "assembly=kind[=name]".
func ParseBuildTarget(s string) (BuildTarget, error) {
	parts := strings.Split(s, "=")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" {
		return BuildTarget{}, Errorf(CodeInvalidBuildTarget, s, "expected assembly=kind[=name]")
	}
	kind, err := ParseBuildTargetKind(parts[1])
	if err != nil {
		return BuildTarget{}, Errorf(CodeInvalidBuildTarget, s,
			"the kind must be one of staticobject, dynamiclibrary or framework")
	}
	bt := BuildTarget{Assembly: parts[0], Kind: kind}
	if len(parts) == 3 {
		if parts[2] == "" {
			return BuildTarget{}, Errorf(CodeInvalidBuildTarget, s, "the name cannot be empty")
		}
		bt.Name = parts[2]
	}
	return bt, nil
}

// ParseBuildTargets parses a list of overrides; a later entry for the same
// assembly replaces an earlier one.
func ParseBuildTargets(values []string) (map[string]BuildTarget, error) {
	out := make(map[string]BuildTarget, len(values))
	for _, v := range values {
		bt, err := ParseBuildTarget(v)
		if err != nil {
			return nil, err
		}
		out[bt.Assembly] = bt
	}
	return out, nil
}

// CompilationUnit is a named group of assemblies built into one native artifact.
// All members share Kind, and a static object has exactly one member.
type CompilationUnit struct {
	Name    string
	Kind    BuildTargetKind
	Members []string
}

// HasMember reports whether the assembly belongs to the unit.
func (u CompilationUnit) HasMember(assembly string) bool {
	return slices.Contains(u.Members, assembly)
}

// ArtifactName is the file name of the unit's native output.
func (u CompilationUnit) ArtifactName() string {
	switch u.Kind {
	case TargetDynamicLibrary:
		return "lib" + u.Name + ".dylib"
	case TargetFramework:
		return u.Name
	default:
		return u.Name + ".o"
	}
}

// UnitFor returns the unit an assembly was assigned to.
func UnitFor(units []CompilationUnit, assembly string) (CompilationUnit, bool) {
	for _, u := range units {
		if u.HasMember(assembly) {
			return u, true
		}
	}
	return CompilationUnit{}, false
}
