// Package toolchain drives the native compiler, linker and binary tools and
// turns their output into coded diagnostics.
package toolchain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/mbuild/internal/adapters/fs"
	"go.trai.ch/mbuild/internal/core/domain"
	"go.trai.ch/mbuild/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.TaskExecutor = (*Executor)(nil)

// handler executes one kind of task and returns the diagnostics it produced.
// The error is reserved for failures that are not diagnostics, such as a
// missing tool.
type handler func(ctx context.Context, task *domain.Task) ([]*domain.Diagnostic, error)

// Executor implements ports.TaskExecutor with one handler per task kind.
type Executor struct {
	runner     ports.ProcessRunner
	logger     ports.Logger
	tools      domain.Toolchain
	classifier *Classifier
	handlers   map[domain.TaskKind]handler
}

// NewExecutor creates an executor for the build described by bctx.
func NewExecutor(
	runner ports.ProcessRunner,
	logger ports.Logger,
	bctx domain.BuildContext,
	symbols *domain.SymbolTable,
) *Executor {
	e := &Executor{
		runner:     runner,
		logger:     logger,
		tools:      bctx.Toolchain.WithDefaults(),
		classifier: &Classifier{CacheDir: bctx.CacheDir, Symbols: symbols},
	}
	e.handlers = map[domain.TaskKind]handler{
		domain.KindCompile: e.compile,
		domain.KindAOT:     e.aot,
		domain.KindLink:    e.link,
		domain.KindLipo:    e.simple(domain.CodeLipoFailed),
		domain.KindCopy:    e.copy,
		domain.KindStrip:   e.simple(domain.CodeStripFailed),
		domain.KindDsym:    e.simple(domain.CodeDsymutilFailed),
	}
	return e
}

// Execute runs task. Warnings are logged and reported to the task's vertex;
// error diagnostics are joined into the returned error.
func (e *Executor) Execute(ctx context.Context, task *domain.Task) error {
	h, ok := e.handlers[task.Kind]
	if !ok {
		return zerr.With(domain.ErrUnknownTaskKind, "kind", task.Kind.String())
	}

	for _, out := range task.Outputs {
		if err := os.MkdirAll(filepath.Dir(out.String()), 0o750); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to create output directory"), "output", out.String())
		}
	}

	diags, err := h(ctx, task)
	if err != nil {
		return err
	}
	return e.report(ctx, diags)
}

func (e *Executor) report(ctx context.Context, diags []*domain.Diagnostic) error {
	vertex := ports.VertexFromContext(ctx)
	var errs []error
	for _, d := range diags {
		if vertex != nil {
			vertex.Log(domain.LevelFor(d.Severity), d.String())
		}
		if d.Severity == domain.SeverityWarning {
			e.logger.Warn(d.String())
			continue
		}
		errs = append(errs, d)
	}
	return errors.Join(errs...)
}

func (e *Executor) command(task *domain.Task) (domain.Command, error) {
	if len(task.Command) == 0 {
		return domain.Command{}, zerr.With(domain.ErrEmptyCommand, "task", task.Name.String())
	}
	return domain.Command{
		Path: task.Command[0],
		Args: task.Command[1:],
		Env:  e.tools.Env,
		Dir:  task.WorkingDir.String(),
	}, nil
}

func (e *Executor) run(ctx context.Context, task *domain.Task) (domain.ProcessResult, error) {
	cmd, err := e.command(task)
	if err != nil {
		return domain.ProcessResult{}, err
	}
	return e.runner.Run(ctx, cmd)
}

func (e *Executor) compile(ctx context.Context, task *domain.Task) ([]*domain.Diagnostic, error) {
	res, err := e.run(ctx, task)
	if err != nil {
		return nil, err
	}
	if res.Succeeded() {
		return nil, nil
	}
	return []*domain.Diagnostic{
		domain.Errorf(domain.CodeCompileFailed, firstOf(task.InputPaths()), res.ExitCode, summarize(res.Combined)),
	}, nil
}

func (e *Executor) aot(ctx context.Context, task *domain.Task) ([]*domain.Diagnostic, error) {
	res, err := e.run(ctx, task)
	if err != nil {
		return nil, err
	}
	if res.Succeeded() {
		return nil, nil
	}
	return []*domain.Diagnostic{
		domain.Errorf(domain.CodeAOTFailed, filepath.Base(firstOf(task.InputPaths())), task.ABI.String(), res.ExitCode),
	}, nil
}

func (e *Executor) link(ctx context.Context, task *domain.Task) ([]*domain.Diagnostic, error) {
	cmd, err := e.command(task)
	if err != nil {
		return nil, err
	}
	target := firstOf(task.OutputPaths())

	res, err := e.runner.Run(ctx, cmd)
	if err != nil {
		if !argLimitSuspected(res, err) {
			return nil, err
		}
		var diags []*domain.Diagnostic
		if d := e.checkArgLimit(ctx, cmd); d != nil {
			diags = append(diags, d)
		}
		return append(diags, domain.Errorf(domain.CodeLinkFailed, target, -1)), nil
	}

	diags := e.classifier.Classify(res.Combined, target, res.ExitCode)
	if argLimitSuspected(res, nil) {
		if d := e.checkArgLimit(ctx, cmd); d != nil {
			diags = append(diags, d)
		}
	}
	return diags, nil
}

// simple handles tools whose failure is reported as a single diagnostic
// naming the task's primary output.
func (e *Executor) simple(code domain.Code) handler {
	return func(ctx context.Context, task *domain.Task) ([]*domain.Diagnostic, error) {
		res, err := e.run(ctx, task)
		if err != nil {
			return nil, err
		}
		if res.Succeeded() {
			return nil, nil
		}
		return []*domain.Diagnostic{
			domain.Errorf(code, firstOf(task.OutputPaths()), res.ExitCode, summarize(res.Combined)),
		}, nil
	}
}

func (e *Executor) copy(_ context.Context, task *domain.Task) ([]*domain.Diagnostic, error) {
	src, dst := firstOf(task.InputPaths()), firstOf(task.OutputPaths())
	if err := fs.CopyPath(src, dst); err != nil {
		return []*domain.Diagnostic{domain.Errorf(domain.CodeBundleIO, src, dst, err.Error())}, nil
	}
	return nil, nil
}

func firstOf(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	return paths[0]
}

// summarize returns the first non-empty line of tool output.
func summarize(output string) string {
	for line := range strings.Lines(output) {
		if s := strings.TrimSpace(line); s != "" {
			return s
		}
	}
	return "no output"
}
