package domain

import "strings"

// TaskStatus is the lifecycle state of a task during a build.
type TaskStatus string

const (
	// TaskStatusPending means the task waits for its dependencies.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusRunning means the task is executing.
	TaskStatusRunning TaskStatus = "running"
	// TaskStatusCompleted means the task executed successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed means the task executed and failed.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusUpToDate means the oracle found every output current and the task did not run.
	TaskStatusUpToDate TaskStatus = "up-to-date"
	// TaskStatusBlocked means a dependency failed so the task never ran.
	TaskStatusBlocked TaskStatus = "blocked"
)

// IsTerminal reports whether the task will not change state again.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusUpToDate, TaskStatusBlocked:
		return true
	default:
		return false
	}
}

// Succeeded reports whether dependents may run after a task in this state.
func (s TaskStatus) Succeeded() bool {
	return s == TaskStatusCompleted || s == TaskStatusUpToDate
}

// NormalizeTaskStatus converts a string to a TaskStatus, defaulting to pending.
func NormalizeTaskStatus(s string) TaskStatus {
	switch st := TaskStatus(strings.ToLower(s)); st {
	case TaskStatusPending, TaskStatusRunning, TaskStatusCompleted,
		TaskStatusFailed, TaskStatusUpToDate, TaskStatusBlocked:
		return st
	default:
		return TaskStatusPending
	}
}

// LogLevel represents the severity of a log message, mirroring the standard slog levels.
type LogLevel int

const (
	LogLevelDebug LogLevel = -4
	LogLevelInfo  LogLevel = 0
	LogLevelWarn  LogLevel = 4
	LogLevelError LogLevel = 8
)

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// LevelFor maps a diagnostic severity to the log level it is reported at.
func LevelFor(s Severity) LogLevel {
	if s == SeverityWarning {
		return LogLevelWarn
	}
	return LogLevelError
}
