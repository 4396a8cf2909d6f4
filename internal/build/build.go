// Package build holds build-time information.
package build

var (
	// Version is the application version.
	// It defaults to "dev" and can be overwritten by linker flags.
	Version = "dev"
	// Commit is the source revision, set by linker flags.
	Commit = "none"
	// Date is the build date, set by linker flags.
	Date = "unknown"
)
