package domain

import (
	"strings"

	"go.trai.ch/zerr"
)

// BitcodeMode controls whether bitcode is embedded in native output.
type BitcodeMode int

const (
	BitcodeNone BitcodeMode = iota
	BitcodeMarker
	BitcodeFull
)

// String returns the configuration name of the mode.
func (m BitcodeMode) String() string {
	switch m {
	case BitcodeMarker:
		return "marker"
	case BitcodeFull:
		return "full"
	default:
		return "none"
	}
}

// ParseBitcodeMode parses "none", "marker" or "full". The empty string is "none".
func ParseBitcodeMode(s string) (BitcodeMode, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return BitcodeNone, nil
	case "marker":
		return BitcodeMarker, nil
	case "full":
		return BitcodeFull, nil
	default:
		return 0, zerr.With(zerr.New("invalid bitcode mode"), "bitcode", s)
	}
}

// LinkMode controls how aggressively the managed linker trims assemblies.
type LinkMode int

const (
	LinkNone LinkMode = iota
	LinkSDKOnly
	LinkFull
)

// String returns the configuration name of the mode.
func (m LinkMode) String() string {
	switch m {
	case LinkSDKOnly:
		return "sdk"
	case LinkFull:
		return "full"
	default:
		return "none"
	}
}

// ParseLinkMode parses "none", "sdk" or "full". The empty string is "sdk".
func ParseLinkMode(s string) (LinkMode, error) {
	switch strings.ToLower(s) {
	case "none":
		return LinkNone, nil
	case "", "sdk", "sdkonly":
		return LinkSDKOnly, nil
	case "full":
		return LinkFull, nil
	default:
		return 0, zerr.With(zerr.New("invalid link mode"), "link", s)
	}
}

// Platform is the device family the build targets.
type Platform int

const (
	PlatformDevice Platform = iota
	PlatformSimulator
)

// String returns the platform name used in Info.plist files.
func (p Platform) String() string {
	if p == PlatformSimulator {
		return "iPhoneSimulator"
	}
	return "iPhoneOS"
}

// KnownI18N lists the internationalization collections that can be bundled.
var KnownI18N = []string{"cjk", "mideast", "other", "rare", "west"}

// Interpreter configures the managed interpreter.
type Interpreter struct {
	Enabled bool
	// Assemblies lists what is interpreted; empty with Enabled means everything.
	// Entries prefixed with "-" are excluded from interpretation.
	Assemblies []string
}

// BuildProfile is the per-application configuration that drives every stage.
type BuildProfile struct {
	ABIs              []ABI
	Bitcode           BitcodeMode
	LinkMode          LinkMode
	LinkSkip          []string
	LinkerDefinitions []string
	StripSymbols      bool
	DebugSymbols      bool
	Interpreter       Interpreter
	AOTArgs           []string
	AOTOtherArgs      []string
	LLVM              bool
	I18N              []string
	// Optimizations maps optimization names to their on/off state.
	Optimizations map[string]bool
	// MinOS is the minimum OS version, e.g. "11.0".
	MinOS               string
	CodeSharingDisabled bool
	// BuildTargets are the parsed assembly build target overrides keyed by assembly.
	BuildTargets map[string]BuildTarget
	FastRelaunch bool
	Platform     Platform
}

// HasABI reports whether the profile builds for an ABI with the same architecture.
func (p *BuildProfile) HasABI(arch ABI) bool {
	for _, a := range p.ABIs {
		if a.Arch() == arch.Arch() {
			return true
		}
	}
	return false
}

// ApplicationKind distinguishes containers from the extensions they embed.
type ApplicationKind int

const (
	KindContainer ApplicationKind = iota
	KindAppExtension
	KindWatchExtension
)

// String returns the kind name.
func (k ApplicationKind) String() string {
	switch k {
	case KindAppExtension:
		return "app-extension"
	case KindWatchExtension:
		return "watch-extension"
	default:
		return "container"
	}
}

// ParseApplicationKind parses "container", "app-extension" or "watch-extension".
func ParseApplicationKind(s string) (ApplicationKind, error) {
	switch strings.ToLower(s) {
	case "", "container", "app":
		return KindContainer, nil
	case "app-extension", "extension":
		return KindAppExtension, nil
	case "watch-extension", "watch":
		return KindWatchExtension, nil
	default:
		return 0, zerr.With(zerr.New("invalid application kind"), "kind", s)
	}
}

// Application is one bundle being built: the container app or an extension.
type Application struct {
	Name      string
	BundleID  string
	BundleDir string
	Kind      ApplicationKind
	// Container is the name of the owning container for extensions. It is a
	// lookup key only.
	Container string
	// Extensions lists the names of the extensions a container embeds.
	Extensions []string
	Profile    BuildProfile
	// Assemblies are the resolved managed inputs. The first one is the entry assembly.
	Assemblies []Assembly
	// NativeSources are C/Objective-C files compiled into the executable.
	NativeSources []string
	// Frameworks are third-party frameworks embedded into the bundle.
	Frameworks []string
	// Units is filled by the assignor.
	Units []CompilationUnit
	// SharesCode is set when the analyzer let this extension reuse the container's code.
	SharesCode bool
}

// IsExtension reports whether the application is embedded in a container.
func (a *Application) IsExtension() bool {
	return a.Kind != KindContainer
}

// ExecutableName is the name of the main binary inside the bundle.
func (a *Application) ExecutableName() string {
	return a.Name
}

// FindAssembly looks up an assembly by name.
func (a *Application) FindAssembly(name string) (Assembly, bool) {
	for _, asm := range a.Assemblies {
		if asm.Name == name {
			return asm, true
		}
	}
	return Assembly{}, false
}
