package domain

// TaskKind is the closed set of build step kinds. Executors dispatch on it
// through a single handler table.
type TaskKind int

const (
	// KindCompile compiles a native source file into an object file.
	KindCompile TaskKind = iota
	// KindAOT compiles a managed assembly ahead of time into an object file.
	KindAOT
	// KindLink links objects into an executable, dynamic library or framework binary.
	KindLink
	// KindLipo merges per-architecture binaries into one fat binary.
	KindLipo
	// KindCopy copies a file in-process.
	KindCopy
	// KindStrip removes symbols from a binary.
	KindStrip
	// KindDsym extracts debug symbols from a binary.
	KindDsym
)

var taskKindNames = [...]string{
	KindCompile: "compile",
	KindAOT:     "aot",
	KindLink:    "link",
	KindLipo:    "lipo",
	KindCopy:    "copy",
	KindStrip:   "strip",
	KindDsym:    "dsym",
}

// String returns the kind's name.
func (k TaskKind) String() string {
	if int(k) < len(taskKindNames) {
		return taskKindNames[k]
	}
	return "unknown"
}

// Mode returns how a task of this kind executes.
func (k TaskKind) Mode() ExecMode {
	if k == KindCopy {
		return ModeSync
	}
	return ModeProcess
}

// ExecMode says whether a task runs in-process or awaits a child process.
type ExecMode int

const (
	// ModeSync tasks do their work on the calling goroutine.
	ModeSync ExecMode = iota
	// ModeProcess tasks spawn a subprocess and wait for it.
	ModeProcess
)

// Task represents a unit of work in the build system.
// It uses InternedString for fields that are frequently repeated to save memory.
// Inputs and Outputs are fully determined when the task is created.
type Task struct {
	Name InternedString
	Kind TaskKind

	Inputs  []InternedString
	Outputs []InternedString
	// ExtraDependencies affect staleness without being passed to the tool.
	ExtraDependencies []InternedString
	// Dependencies are explicit edges on top of those derived from inputs and outputs.
	Dependencies []InternedString

	// Command is the full argument vector; Command[0] is the tool.
	Command    []string
	WorkingDir InternedString

	// App is the name of the application this task builds for.
	App string
	// ABI is the architecture this task targets; ABINone for architecture-neutral tasks.
	ABI ABI
	// Unit is the compilation unit or artifact name this task produces.
	Unit string
}

// Sources returns the paths whose timestamps decide whether the task is stale.
func (t *Task) Sources() []string {
	out := make([]string, 0, len(t.Inputs)+len(t.ExtraDependencies))
	for _, in := range t.Inputs {
		out = append(out, in.String())
	}
	for _, dep := range t.ExtraDependencies {
		out = append(out, dep.String())
	}
	return out
}

// OutputPaths returns the declared outputs as plain strings.
func (t *Task) OutputPaths() []string {
	return Strings(t.Outputs)
}

// InputPaths returns the declared inputs as plain strings.
func (t *Task) InputPaths() []string {
	return Strings(t.Inputs)
}
