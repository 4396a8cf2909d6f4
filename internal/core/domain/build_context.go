package domain

// Toolchain holds the paths of the native tools used by drivers.
type Toolchain struct {
	Clang        string
	Lipo         string
	Strip        string
	Dsymutil     string
	AOT          string
	BitcodeStrip string
	Getconf      string
	// Env is added to the environment of every tool invocation.
	Env map[string]string
}

// WithDefaults fills every unset tool path with the tool's plain name,
// leaving PATH lookup to the process runner.
func (t Toolchain) WithDefaults() Toolchain {
	set := func(p *string, name string) {
		if *p == "" {
			*p = name
		}
	}
	set(&t.Clang, "clang")
	set(&t.Lipo, "lipo")
	set(&t.Strip, "strip")
	set(&t.Dsymutil, "dsymutil")
	set(&t.AOT, "mono-aot")
	set(&t.BitcodeStrip, "bitcode_strip")
	set(&t.Getconf, "getconf")
	return t
}

// BuildContext carries settings that are shared by every application in a build.
type BuildContext struct {
	CacheDir    string
	Force       bool
	Parallelism int
	Platform    Platform
	SdkRoot     string
	Toolchain   Toolchain
	// SymbolsFile maps native symbols to the managed members referencing them.
	SymbolsFile string
	Bundle      BundlePolicy
}

// Build is a loaded build description: the container, its extensions and
// the build-wide context.
type Build struct {
	Context    BuildContext
	Container  Application
	Extensions []Application
	Symbols    *SymbolTable
}

// Applications returns the container followed by its extensions.
func (b *Build) Applications() []*Application {
	apps := make([]*Application, 0, 1+len(b.Extensions))
	apps = append(apps, &b.Container)
	for i := range b.Extensions {
		apps = append(apps, &b.Extensions[i])
	}
	return apps
}
