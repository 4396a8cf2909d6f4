package config

// DefaultFileName is the build description looked up when no path is given.
const DefaultFileName = "mbuild.yaml"

// Buildfile represents the structure of the mbuild.yaml configuration file.
type Buildfile struct {
	Cache      string         `yaml:"cache"`
	Parallel   int            `yaml:"parallel"`
	Platform   string         `yaml:"platform"`
	SDK        string         `yaml:"sdk"`
	Symbols    string         `yaml:"symbols"`
	Toolchain  ToolchainDTO   `yaml:"toolchain"`
	Bundle     BundleDTO      `yaml:"bundle"`
	App        ApplicationDTO `yaml:"app"`
	Extensions []ExtensionDTO `yaml:"extensions"`
}

// ToolchainDTO holds tool path overrides.
type ToolchainDTO struct {
	Clang        string            `yaml:"clang"`
	Lipo         string            `yaml:"lipo"`
	Strip        string            `yaml:"strip"`
	Dsymutil     string            `yaml:"dsymutil"`
	AOT          string            `yaml:"aot"`
	BitcodeStrip string            `yaml:"bitcode_strip"`
	Getconf      string            `yaml:"getconf"`
	EnvFile      string            `yaml:"env_file"`
	Env          map[string]string `yaml:"env"`
}

// BundleDTO controls framework post-processing.
type BundleDTO struct {
	StripBitcode      bool `yaml:"strip_bitcode"`
	TrimArchitectures bool `yaml:"trim_architectures"`
}

// ApplicationDTO describes the container or an extension.
type ApplicationDTO struct {
	Name       string        `yaml:"name"`
	BundleID   string        `yaml:"bundle_id"`
	BundleDir  string        `yaml:"bundle_dir"`
	Sources    []string      `yaml:"sources"`
	Frameworks []string      `yaml:"frameworks"`
	Assemblies []AssemblyDTO `yaml:"assemblies"`
	Profile    ProfileDTO    `yaml:"profile"`
}

// ExtensionDTO is an application embedded in the container.
type ExtensionDTO struct {
	ApplicationDTO `yaml:",inline"`
	Kind           string `yaml:"kind"`
	// Container is optional and must name the app when set.
	Container string `yaml:"container"`
}

// AssemblyDTO is one resolved managed assembly.
type AssemblyDTO struct {
	Name      string            `yaml:"name"`
	Path      string            `yaml:"path"`
	ArchPaths map[string]string `yaml:"arch_paths"`
	SDK       bool              `yaml:"sdk"`
	Linked    bool              `yaml:"linked"`
}

// ProfileDTO holds the build-affecting settings of one application.
type ProfileDTO struct {
	ABIs               []string        `yaml:"abis"`
	Bitcode            string          `yaml:"bitcode"`
	LinkMode           string          `yaml:"link_mode"`
	LinkSkip           []string        `yaml:"link_skip"`
	LinkerDefinitions  []string        `yaml:"linker_definitions"`
	Strip              bool            `yaml:"strip"`
	DebugSymbols       bool            `yaml:"debug_symbols"`
	Interpreter        *[]string       `yaml:"interpreter"`
	AOTArgs            []string        `yaml:"aot_args"`
	AOTOtherArgs       []string        `yaml:"aot_other_args"`
	LLVM               bool            `yaml:"llvm"`
	I18N               []string        `yaml:"i18n"`
	Optimizations      map[string]bool `yaml:"optimizations"`
	MinOS              string          `yaml:"min_os"`
	DisableCodeSharing bool            `yaml:"disable_code_sharing"`
	BuildTargets       []string        `yaml:"build_targets"`
	FastRelaunch       bool            `yaml:"fast_relaunch"`
}

// SymbolFile is the symbol table written by the registrar.
type SymbolFile struct {
	Symbols []SymbolDTO `yaml:"symbols"`
}

// SymbolDTO is one native symbol and the managed member requiring it.
type SymbolDTO struct {
	Name   string `yaml:"name"`
	Kind   string `yaml:"kind"`
	Type   string `yaml:"type"`
	Member string `yaml:"member"`
}
