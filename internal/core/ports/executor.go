// Package ports defines the core interfaces for the application.
package ports

import (
	"context"

	"go.trai.ch/mbuild/internal/core/domain"
)

// TaskExecutor runs the work of a single task.
//
//go:generate go run go.uber.org/mock/mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type TaskExecutor interface {
	// Execute runs the given task. Tool output is streamed to the telemetry
	// vertex found in ctx, if any.
	//
	// It returns an error if the task execution fails. Fatal failures carry a
	// fatal diagnostic (see domain.IsFatal).
	Execute(ctx context.Context, task *domain.Task) error
}
