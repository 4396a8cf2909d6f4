package domain

import (
	"path/filepath"
	"strings"
)

// Assembly is a resolved managed assembly handed over by the assembly
// resolution collaborator.
type Assembly struct {
	// Name is the identity used for matching, e.g. "Foo.dll".
	Name string
	// Path is the architecture-neutral file.
	Path string
	// ArchPaths holds per-architecture files keyed by ABI arch name (e.g. "arm64")
	// when the managed linker produced different output per architecture.
	ArchPaths map[string]string
	// SDK marks platform assemblies shipped with the SDK.
	SDK bool
	// Linked is true when the file was produced by the managed linker rather
	// than being the original input.
	Linked bool
}

// PathFor returns the file to use when building for abi.
func (a Assembly) PathFor(abi ABI) string {
	if p, ok := a.ArchPaths[abi.ArchName()]; ok {
		return p
	}
	return a.Path
}

// BaseName returns the assembly name without its extension ("Foo.dll" -> "Foo").
func (a Assembly) BaseName() string {
	return AssemblyBaseName(a.Name)
}

// AssemblyBaseName strips .dll/.exe from an assembly name.
func AssemblyBaseName(name string) string {
	ext := filepath.Ext(name)
	switch strings.ToLower(ext) {
	case ".dll", ".exe":
		return strings.TrimSuffix(name, ext)
	default:
		return name
	}
}
