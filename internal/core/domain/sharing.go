package domain

// SharingDecision records whether an extension reuses the container's native
// code and, when it does not, the first dimension that differed.
type SharingDecision struct {
	Extension string
	Shared    bool
	// Exempt is set for extensions that never participate (watch extensions).
	Exempt bool
	// Dimension names the first configuration dimension that differed.
	Dimension      string
	ContainerValue string
	ExtensionValue string
	// Reason is the full sentence used in the MB0113 warning.
	Reason string
}
