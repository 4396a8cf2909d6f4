package ports

import (
	"context"

	"go.trai.ch/mbuild/internal/core/domain"
)

// ProcessRunner spawns subprocesses.
//
//go:generate go run go.uber.org/mock/mockgen -source=process.go -destination=mocks/mock_process.go -package=mocks
type ProcessRunner interface {
	// Run executes cmd and waits for it. A non-zero exit status is reported
	// through the result, not the error; the error is reserved for processes
	// that could not be started.
	Run(ctx context.Context, cmd domain.Command) (domain.ProcessResult, error)
}
