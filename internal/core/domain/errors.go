package domain

import "go.trai.ch/zerr"

var (
	// ErrTaskAlreadyExists is returned when attempting to add a task with a name that already exists.
	ErrTaskAlreadyExists = zerr.New("task already exists")

	// ErrDuplicateOutput is returned when two tasks declare the same output path.
	ErrDuplicateOutput = zerr.New("output declared by more than one task")

	// ErrMissingDependency is returned when a task references a dependency that doesn't exist in the graph.
	ErrMissingDependency = zerr.New("missing dependency")

	// ErrCycleDetected is returned when a cycle is detected in the task dependency graph.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrTaskNotFound is returned when a requested task is not found in the graph.
	ErrTaskNotFound = zerr.New("task not found")

	// ErrInvalidABI is returned when an architecture string cannot be parsed.
	ErrInvalidABI = zerr.New("invalid ABI")

	// ErrInvalidBuildTarget is returned when an assembly build target cannot be parsed.
	ErrInvalidBuildTarget = zerr.New("invalid assembly build target")

	// ErrToolNotFound is returned when a native tool cannot be located. It is always fatal.
	ErrToolNotFound = zerr.New("native tool not found")

	// ErrTaskExecutionFailed is returned when a task execution fails.
	ErrTaskExecutionFailed = zerr.New("task execution failed")

	// ErrTaskBlocked is returned for tasks that never ran because a dependency failed.
	ErrTaskBlocked = zerr.New("dependency failed")

	// ErrBuildExecutionFailed is returned when the build execution fails.
	ErrBuildExecutionFailed = zerr.New("build execution failed")

	// ErrUnknownTaskKind is returned when no handler is registered for a task kind.
	ErrUnknownTaskKind = zerr.New("unknown task kind")

	// ErrEmptyCommand is returned for process tasks without a command.
	ErrEmptyCommand = zerr.New("task has no command")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrStoreReadFailed is returned when the build info cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read build info")

	// ErrStoreWriteFailed is returned when the build info cannot be written.
	ErrStoreWriteFailed = zerr.New("failed to write build info")

	// ErrCacheInvalidationFailed is returned when the cache directory cannot be cleared.
	ErrCacheInvalidationFailed = zerr.New("failed to clear build cache")

	// ErrFileOpenFailed is returned when a file cannot be opened.
	ErrFileOpenFailed = zerr.New("failed to open file")

	// ErrFileHashFailed is returned when hashing a file fails.
	ErrFileHashFailed = zerr.New("failed to hash file content")

	// ErrPathStatFailed is returned when stating a path fails.
	ErrPathStatFailed = zerr.New("failed to stat path")

	// ErrInputHashComputationFailed is returned when input hash computation fails.
	ErrInputHashComputationFailed = zerr.New("failed to compute input hash")

	// ErrFileCopyFailed is returned when a file or directory cannot be copied.
	ErrFileCopyFailed = zerr.New("failed to copy path")

	// ErrProcessStartFailed is returned when a subprocess cannot be started.
	ErrProcessStartFailed = zerr.New("failed to start process")
)
