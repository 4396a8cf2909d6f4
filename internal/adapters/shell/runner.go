// Package shell provides the subprocess runner adapter.
package shell

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.trai.ch/mbuild/internal/core/domain"
	"go.trai.ch/mbuild/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

var _ ports.ProcessRunner = (*Runner)(nil)

// Runner implements ports.ProcessRunner using os/exec.
type Runner struct {
	environ func() []string
}

// NewRunner creates a new Runner inheriting the process environment.
func NewRunner() *Runner {
	return &Runner{environ: os.Environ}
}

// Run executes cmd. Stdout and stderr are drained by one goroutine each into
// a shared buffer, and both readers are joined before the process is waited
// for. Output is mirrored to the telemetry vertex in ctx, if any.
func (r *Runner) Run(ctx context.Context, cmd domain.Command) (domain.ProcessResult, error) {
	env := resolveEnvironment(r.environ(), cmd.Env)

	executable, err := resolveExecutable(cmd.Path, env)
	if err != nil {
		return domain.ProcessResult{}, zerr.With(
			zerr.Wrap(domain.Fatalf(domain.CodeToolNotFound, cmd.Path), domain.ErrToolNotFound.Error()),
			"tool", cmd.Path,
		)
	}

	c := exec.CommandContext(ctx, executable, cmd.Args...) //nolint:gosec // commands are built by the planner
	c.Args[0] = cmd.Path
	c.Dir = cmd.Dir
	c.Env = env

	stdout, err := c.StdoutPipe()
	if err != nil {
		return domain.ProcessResult{}, zerr.Wrap(err, domain.ErrProcessStartFailed.Error())
	}
	stderr, err := c.StderrPipe()
	if err != nil {
		return domain.ProcessResult{}, zerr.Wrap(err, domain.ErrProcessStartFailed.Error())
	}

	if err := c.Start(); err != nil {
		return domain.ProcessResult{}, zerr.With(zerr.Wrap(err, domain.ErrProcessStartFailed.Error()), "tool", cmd.Path)
	}

	var outMirror, errMirror io.Writer
	if v := ports.VertexFromContext(ctx); v != nil {
		outMirror, errMirror = v.Stdout(), v.Stderr()
	}

	var (
		mu       sync.Mutex
		combined bytes.Buffer
		outBuf   bytes.Buffer
		errBuf   bytes.Buffer
	)
	var g errgroup.Group
	g.Go(func() error { return drain(stdout, &mu, &combined, &outBuf, outMirror) })
	g.Go(func() error { return drain(stderr, &mu, &combined, &errBuf, errMirror) })
	readErr := g.Wait()
	waitErr := c.Wait()

	result := domain.ProcessResult{
		Stdout:   outBuf.String(),
		Stderr:   errBuf.String(),
		Combined: combined.String(),
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return result, zerr.With(zerr.Wrap(waitErr, domain.ErrProcessStartFailed.Error()), "tool", cmd.Path)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		result.ExitCode = exitErr.ExitCode()
	}
	if readErr != nil {
		return result, zerr.Wrap(readErr, "failed to read process output")
	}
	return result, nil
}

// drain copies r line by line into combined and own, holding mu for the
// shared buffer so lines from both streams never interleave mid-line.
func drain(r io.Reader, mu *sync.Mutex, combined, own *bytes.Buffer, mirror io.Writer) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			mu.Lock()
			combined.WriteString(line)
			mu.Unlock()
			own.WriteString(line)
			if mirror != nil {
				_, _ = io.WriteString(mirror, line)
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// resolveEnvironment merges the system environment with tool overrides,
// overrides winning. The result is sorted for reproducible invocations.
func resolveEnvironment(sysEnv []string, overrides map[string]string) []string {
	envMap := make(map[string]string, len(sysEnv)+len(overrides))
	for _, entry := range sysEnv {
		if k, v, ok := strings.Cut(entry, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range overrides {
		envMap[k] = v
	}

	result := make([]string, 0, len(envMap))
	for k, v := range envMap {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)
	return result
}

func resolveExecutable(name string, env []string) (string, error) {
	if strings.ContainsRune(name, filepath.Separator) {
		if err := findExecutable(name); err != nil {
			return "", exec.ErrNotFound
		}
		return name, nil
	}
	return lookPath(name, env)
}

// lookPath searches for an executable in the directories named by PATH in env.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if strings.HasPrefix(e, "PATH=") {
			path = strings.TrimPrefix(e, "PATH=")
			break
		}
	}

	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		candidate := filepath.Join(dir, file)
		if err := findExecutable(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}
