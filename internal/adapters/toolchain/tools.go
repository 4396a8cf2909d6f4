package toolchain

import (
	"context"
	"strings"

	"go.trai.ch/mbuild/internal/core/domain"
	"go.trai.ch/mbuild/internal/core/ports"
)

var _ ports.NativeTools = (*Tools)(nil)

// Tools implements ports.NativeTools on top of lipo and bitcode_strip.
type Tools struct {
	runner ports.ProcessRunner
	tc     domain.Toolchain
}

// NewTools creates native tools using the given toolchain paths.
func NewTools(runner ports.ProcessRunner, tc domain.Toolchain) *Tools {
	return &Tools{runner: runner, tc: tc.WithDefaults()}
}

// Archs lists the architecture slices of path.
func (t *Tools) Archs(ctx context.Context, path string) ([]string, error) {
	res, err := t.exec(ctx, t.tc.Lipo, domain.CodeLipoFailed, path, path, "-archs")
	if err != nil {
		return nil, err
	}
	return strings.Fields(res.Stdout), nil
}

// Thin rewrites path in place so that it only contains archs.
func (t *Tools) Thin(ctx context.Context, path string, archs []string) error {
	args := []string{path}
	if len(archs) == 1 {
		args = append(args, "-thin", archs[0])
	} else {
		for _, a := range archs {
			args = append(args, "-extract", a)
		}
	}
	args = append(args, "-output", path)
	_, err := t.exec(ctx, t.tc.Lipo, domain.CodeLipoFailed, path, args...)
	return err
}

// CreateFat merges per-architecture inputs into output.
func (t *Tools) CreateFat(ctx context.Context, output string, inputs []string) error {
	args := append([]string{"-create"}, inputs...)
	args = append(args, "-output", output)
	_, err := t.exec(ctx, t.tc.Lipo, domain.CodeLipoFailed, output, args...)
	return err
}

// StripBitcode removes embedded bitcode from path in place.
func (t *Tools) StripBitcode(ctx context.Context, path string) error {
	_, err := t.exec(ctx, t.tc.BitcodeStrip, domain.CodeBitcodeStripFailed, path, path, "-r", "-o", path)
	return err
}

func (t *Tools) exec(
	ctx context.Context,
	tool string,
	code domain.Code,
	subject string,
	args ...string,
) (domain.ProcessResult, error) {
	res, err := t.runner.Run(ctx, domain.Command{Path: tool, Args: args, Env: t.tc.Env})
	if err != nil {
		return res, err
	}
	if !res.Succeeded() {
		return res, domain.Errorf(code, subject, res.ExitCode, summarize(res.Combined))
	}
	return res, nil
}
