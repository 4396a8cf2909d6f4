package domain

// BundleFileInfo describes one destination inside an app bundle.
type BundleFileInfo struct {
	// Destination is relative to the bundle directory.
	Destination string
	// Sources are the files or directories merged into Destination.
	// More than one flat file means a fat binary is created.
	Sources []string
	// DylibToFramework marks a dynamic library promoted into a framework;
	// an Info.plist is generated next to the binary.
	DylibToFramework bool
	BundleID         string
	ExecutableName   string
	MinOS            string
	Platform         Platform
	// Frameworks under Destination are trimmed to these architectures when set.
	ABIs []ABI
}

// BundlePolicy controls how directories are post-processed when merged.
type BundlePolicy struct {
	// StripBitcode removes bitcode from framework binaries.
	StripBitcode bool
	// TrimArchitectures drops slices not in the built ABIs.
	TrimArchitectures bool
}
