package domain

import "fmt"

// Code is a stable diagnostic number. IDEs and CI log scrapers key on these values,
// so a code is never renumbered or reused for a different meaning.
type Code int

const (
	CodeMixedTargetKinds      Code = 102
	CodeStaticObjectMembers   Code = 103
	CodeUnmatchedBuildTarget  Code = 108
	CodeInvalidBuildTarget    Code = 109
	CodeFastRelaunchDowngrade Code = 110
	CodeCodeSharingDisabled   Code = 113
	CodeTaskGraphCycle        Code = 120
	CodeDuplicateTaskOutput   Code = 121
	CodeInvalidConfiguration  Code = 122
	CodeInvalidABI            Code = 123
	CodeMissingTaskDependency Code = 124

	CodeConflictingFrameworks Code = 1035
	CodeBundleIO              Code = 1040

	CodeAOTFailed Code = 3001

	CodeToolNotFound          Code = 5101
	CodeCompileFailed         Code = 5106
	CodeLinkFailed            Code = 5202
	CodeLinkWarning           Code = 5203
	CodeLinkError             Code = 5209
	CodeUndefinedSymbol       Code = 5210
	CodeUndefinedObjCClass    Code = 5211
	CodeDuplicateSymbol       Code = 5212
	CodeDuplicateSymbolSite   Code = 5213
	CodeUndefinedManagedRef   Code = 5214
	CodeWrongArchitectureFile Code = 5215
	CodeCommandLineTooLong    Code = 5217
	CodeLipoFailed            Code = 5301
	CodeStripFailed           Code = 5304
	CodeDsymutilFailed        Code = 5305
	CodeBitcodeStripFailed    Code = 5306

	CodeCacheInvalidated Code = 8001
	CodeManifestFailure  Code = 8002
)

type codeInfo struct {
	class    ErrorClass
	template string
}

var codeTable = map[Code]codeInfo{
	CodeMixedTargetKinds: {ClassConfiguration,
		"The assemblies '%s' and '%s' have the same target name ('%s'), but different targets ('%s' and '%s')."},
	CodeStaticObjectMembers: {ClassConfiguration,
		"The static object '%s' contains more than one assembly ('%s'), but each static object must correspond with exactly one assembly."},
	CodeUnmatchedBuildTarget: {ClassConfiguration,
		"The assembly build target '%s' did not match any assemblies."},
	CodeInvalidBuildTarget: {ClassConfiguration,
		"Invalid build target '%s': %s."},
	CodeFastRelaunchDowngrade: {ClassConfiguration,
		"Fast relaunch builds every assembly as a static object; the requested build targets (%s) are ignored."},
	CodeCodeSharingDisabled: {ClassConfiguration,
		"Native code sharing has been disabled for the extension '%s' because %s."},
	CodeTaskGraphCycle: {ClassConfiguration,
		"The build task graph contains a cycle: %s."},
	CodeDuplicateTaskOutput: {ClassConfiguration,
		"The tasks '%s' and '%s' both declare the output '%s'."},
	CodeInvalidConfiguration: {ClassConfiguration,
		"Invalid build configuration: %s."},
	CodeInvalidABI: {ClassConfiguration,
		"Invalid architecture '%s'."},
	CodeMissingTaskDependency: {ClassConfiguration,
		"The task '%s' depends on the unknown task '%s'."},
	CodeConflictingFrameworks: {ClassConfiguration,
		"Cannot merge the framework '%s' into the app bundle, because it comes from different sources: %s."},
	CodeBundleIO: {ClassIO,
		"Could not copy '%s' to '%s': %s."},
	CodeAOTFailed: {ClassToolchain,
		"AOT compilation of '%s' for %s failed (exit code %d)."},
	CodeToolNotFound: {ClassToolchain,
		"The native tool '%s' could not be found."},
	CodeCompileFailed: {ClassToolchain,
		"Could not compile the file '%s' (exit code %d): %s"},
	CodeLinkFailed: {ClassToolchain,
		"Native linking failed for '%s' (exit code %d). Please review the build log."},
	CodeLinkWarning: {ClassToolchain,
		"Native linking warning: %s"},
	CodeLinkError: {ClassToolchain,
		"Native linking error: %s"},
	CodeUndefinedSymbol: {ClassToolchain,
		"Native linking failed, undefined symbol: %s. Please verify that all the necessary frameworks have been referenced and native libraries are properly linked in."},
	CodeUndefinedObjCClass: {ClassToolchain,
		"Native linking failed, undefined Objective-C class: %s. The symbol '%s' could not be found in any of the libraries or frameworks linked with your application."},
	CodeDuplicateSymbol: {ClassToolchain,
		"Native linking failed, duplicate symbol: '%s'."},
	CodeDuplicateSymbolSite: {ClassToolchain,
		"Duplicate symbol in: %s (Location related to previous error)"},
	CodeUndefinedManagedRef: {ClassToolchain,
		"Native linking failed, undefined symbol: %s. This symbol was referenced by the managed member %s.%s. Please verify that all the necessary frameworks have been referenced and native libraries linked."},
	CodeWrongArchitectureFile: {ClassToolchain,
		"The linked input '%s' was built for a different architecture and was ignored by the linker."},
	CodeCommandLineTooLong: {ClassToolchain,
		"Native linking possibly failed because the linker command line was too long (%d characters, the system limit is %d)."},
	CodeLipoFailed: {ClassToolchain,
		"Failed to create the fat binary '%s' (exit code %d): %s"},
	CodeStripFailed: {ClassToolchain,
		"Failed to strip the binary '%s' (exit code %d): %s"},
	CodeDsymutilFailed: {ClassToolchain,
		"Failed to generate debug symbols for '%s' (exit code %d): %s"},
	CodeBitcodeStripFailed: {ClassToolchain,
		"Failed to remove bitcode from '%s' (exit code %d): %s"},
	CodeCacheInvalidated: {ClassInternal,
		"The build configuration changed (%s); the build cache in '%s' was cleared."},
	CodeManifestFailure: {ClassIO,
		"Could not access the build manifest '%s': %s."},
}

func (c Code) info() codeInfo {
	if info, ok := codeTable[c]; ok {
		return info
	}
	return codeInfo{class: ClassInternal, template: "%v"}
}

// String renders the code as it appears in logs, e.g. "MB0113".
func (c Code) String() string {
	return fmt.Sprintf("MB%04d", int(c))
}
