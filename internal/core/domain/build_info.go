package domain

import "time"

// BuildInfo records the content fingerprint a task was last run with.
type BuildInfo struct {
	TaskName   string    `json:"task_name,omitzero"`
	InputHash  string    `json:"input_hash,omitzero"`
	OutputHash string    `json:"output_hash,omitzero"`
	Timestamp  time.Time `json:"timestamp,omitzero"`
}

// BuildManifest is stored at the cache root. A cache whose manifest does not
// match the current configuration is thrown away.
type BuildManifest struct {
	Version      int       `json:"version"`
	ConfigDigest string    `json:"config_digest"`
	BuildID      string    `json:"build_id"`
	Timestamp    time.Time `json:"timestamp"`
}

// ManifestVersion is bumped whenever cached artifacts change layout.
const ManifestVersion = 1
