package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Severity is how bad a diagnostic is.
type Severity int

const (
	// SeverityWarning never fails the build.
	SeverityWarning Severity = iota
	// SeverityError fails the branch of the graph that produced it.
	SeverityError
	// SeverityFatal aborts the whole build immediately.
	SeverityFatal
)

// String returns the lowercase name used in rendered diagnostics.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "error"
	}
}

// ErrorClass groups diagnostics by who has to act on them.
type ErrorClass int

const (
	// ClassConfiguration covers contradictory or invalid build settings.
	ClassConfiguration ErrorClass = iota
	// ClassToolchain covers missing tools and failing subprocesses.
	ClassToolchain
	// ClassIO covers filesystem failures.
	ClassIO
	// ClassInternal covers everything that indicates a bug.
	ClassInternal
)

// Diagnostic is a user-facing message with a stable numeric code.
// It implements error so it can travel through zerr chains and errors.Join.
type Diagnostic struct {
	Code     Code
	Severity Severity
	Class    ErrorClass
	Message  string
	// Children are follow-on diagnostics (e.g. every site of a duplicate symbol).
	Children []*Diagnostic
}

// NewDiagnostic renders the template registered for code with args.
func NewDiagnostic(code Code, severity Severity, args ...any) *Diagnostic {
	info := code.info()
	return &Diagnostic{
		Code:     code,
		Severity: severity,
		Class:    info.class,
		Message:  fmt.Sprintf(info.template, args...),
	}
}

// Errorf builds an error-severity diagnostic.
func Errorf(code Code, args ...any) *Diagnostic {
	return NewDiagnostic(code, SeverityError, args...)
}

// Warningf builds a warning-severity diagnostic.
func Warningf(code Code, args ...any) *Diagnostic {
	return NewDiagnostic(code, SeverityWarning, args...)
}

// Fatalf builds a fatal-severity diagnostic.
func Fatalf(code Code, args ...any) *Diagnostic {
	return NewDiagnostic(code, SeverityFatal, args...)
}

// WithChild appends a follow-on diagnostic and returns d.
func (d *Diagnostic) WithChild(child *Diagnostic) *Diagnostic {
	d.Children = append(d.Children, child)
	return d
}

// Error renders the diagnostic and its follow-ons, one per line.
func (d *Diagnostic) Error() string {
	var b strings.Builder
	b.WriteString(d.String())
	for _, c := range d.Children {
		b.WriteString("\n\t")
		b.WriteString(c.String())
	}
	return b.String()
}

// String renders only this diagnostic, e.g. "error MB5210: Native linking failed, ...".
func (d *Diagnostic) String() string {
	return fmt.Sprintf("%s %s: %s", d.Severity, d.Code, d.Message)
}

// IsFatal reports whether err carries a fatal diagnostic or a fatal sentinel.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	for _, d := range CollectDiagnostics(err) {
		if d.Severity == SeverityFatal {
			return true
		}
	}
	return errors.Is(err, ErrToolNotFound)
}

// CollectDiagnostics flattens every Diagnostic reachable from err, following both
// single-cause wrapping and errors.Join trees.
func CollectDiagnostics(err error) []*Diagnostic {
	var out []*Diagnostic
	var walk func(e error)
	walk = func(e error) {
		if e == nil {
			return
		}
		if d, ok := e.(*Diagnostic); ok {
			out = append(out, d)
			return
		}
		switch x := e.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range x.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(x.Unwrap())
		}
	}
	walk(err)
	return out
}

// TaskError ties a failure to the task that produced it.
// The scheduler wraps every failed task in one, which makes independent
// failures countable after they have been joined.
type TaskError struct {
	Task string
	Err  error
}

// Error implements error.
func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s: %v", e.Task, e.Err)
}

// Unwrap returns the task's own error.
func (e *TaskError) Unwrap() error {
	return e.Err
}

// Exit codes of the process contract.
const (
	ExitSuccess       = 0
	ExitConfiguration = 1
	ExitToolchain     = 2
	ExitAggregate     = 3
)

// ExitCode maps an error returned by a build to the process exit contract.
// Configuration problems win over everything else, several independent failures
// are reported as an aggregate, and a single toolchain or I/O failure is an
// environment error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	diags := CollectDiagnostics(err)
	for _, d := range diags {
		if d.Severity != SeverityWarning && d.Class == ClassConfiguration {
			return ExitConfiguration
		}
	}

	if countFailures(err) > 1 {
		return ExitAggregate
	}
	for _, d := range diags {
		if d.Severity != SeverityWarning && d.Class != ClassInternal {
			return ExitToolchain
		}
	}
	return ExitAggregate
}

// countFailures counts task failures and loose diagnostics in an error tree.
func countFailures(err error) int {
	switch x := err.(type) {
	case nil:
		return 0
	case *TaskError, *Diagnostic:
		return 1
	case interface{ Unwrap() []error }:
		n := 0
		for _, inner := range x.Unwrap() {
			n += countFailures(inner)
		}
		return n
	case interface{ Unwrap() error }:
		if inner := x.Unwrap(); inner != nil {
			return countFailures(inner)
		}
		return 1
	default:
		return 1
	}
}
