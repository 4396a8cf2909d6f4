package ports

import "go.trai.ch/mbuild/internal/core/domain"

// Hasher defines the interface for computing content hashes.
//
//go:generate mockgen -source=hasher.go -destination=mocks/mock_hasher.go -package=mocks
type Hasher interface {
	// ComputeInputHash hashes the task definition and the content of its inputs.
	ComputeInputHash(task *domain.Task) (string, error)

	// ComputeOutputHash hashes the content of the given outputs.
	ComputeOutputHash(outputs []string) (string, error)

	// FilesEqual reports whether two files or directories have identical content.
	FilesEqual(a, b string) (bool, error)
}
