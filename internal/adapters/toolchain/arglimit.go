package toolchain

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"syscall"

	"go.trai.ch/mbuild/internal/core/domain"
)

// exitCannotExecute is the shell status for a command that was found but could
// not be executed, which is what an oversized argument list turns into when
// the linker is invoked through a driver.
const exitCannotExecute = 126

// argLimitThreshold is the share of ARG_MAX above which a command line is
// considered the likely cause of the failure.
const argLimitThreshold = 0.9

// argLimitSuspected reports whether a result or start error looks like the
// kernel rejected the argument list.
func argLimitSuspected(res domain.ProcessResult, startErr error) bool {
	if startErr != nil {
		return errors.Is(startErr, syscall.E2BIG)
	}
	return res.ExitCode == exitCannotExecute
}

// checkArgLimit queries the system argument limit and returns a diagnostic
// when cmd is close to or over it. It returns nil when the limit cannot be
// determined or the command is comfortably below it.
func (e *Executor) checkArgLimit(ctx context.Context, cmd domain.Command) *domain.Diagnostic {
	res, err := e.runner.Run(ctx, domain.Command{
		Path: e.tools.Getconf,
		Args: []string{"ARG_MAX"},
		Env:  e.tools.Env,
	})
	if err != nil || !res.Succeeded() {
		return nil
	}

	limit, err := strconv.Atoi(strings.TrimSpace(res.Stdout))
	if err != nil || limit <= 0 {
		return nil
	}

	length := cmd.Length()
	if float64(length) < float64(limit)*argLimitThreshold {
		return nil
	}
	return domain.Errorf(domain.CodeCommandLineTooLong, length, limit)
}
