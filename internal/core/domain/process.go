package domain

import "strings"

// Command is a subprocess invocation.
type Command struct {
	Path string
	Args []string
	Env  map[string]string
	Dir  string
}

// Line renders the command as a single shell-like line.
func (c Command) Line() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// Length is the number of bytes the command line occupies, used to
// compare against the system argument limit.
func (c Command) Length() int {
	n := len(c.Path)
	for _, a := range c.Args {
		n += 1 + len(a)
	}
	return n
}

// ProcessResult is the outcome of a finished subprocess.
type ProcessResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	// Combined interleaves stdout and stderr in arrival order.
	Combined string
}

// Succeeded reports whether the process exited with status zero.
func (r ProcessResult) Succeeded() bool {
	return r.ExitCode == 0
}
