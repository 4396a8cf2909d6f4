package shell_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/mbuild/internal/adapters/shell"
	"go.trai.ch/mbuild/internal/core/domain"
	"go.trai.ch/mbuild/internal/core/ports"
	"go.trai.ch/mbuild/internal/core/ports/mocks"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRunner_CapturesBothStreams(t *testing.T) {
	res, err := shell.NewRunner().Run(context.Background(), domain.Command{
		Path: "sh",
		Args: []string{"-c", "echo out1; echo err1 >&2; echo out2"},
		Dir:  t.TempDir(),
	})
	require.NoError(t, err)

	assert.Equal(t, 0, res.ExitCode)
	assert.True(t, res.Succeeded())
	assert.Equal(t, "out1\nout2\n", res.Stdout)
	assert.Equal(t, "err1\n", res.Stderr)
	for _, line := range []string{"out1\n", "out2\n", "err1\n"} {
		assert.Contains(t, res.Combined, line)
	}
	assert.Len(t, res.Combined, len("out1\nout2\nerr1\n"))
}

func TestRunner_FragmentedOutput(t *testing.T) {
	res, err := shell.NewRunner().Run(context.Background(), domain.Command{
		Path: "sh",
		Args: []string{"-c", "printf part1; sleep 0.1; echo part2; printf tail"},
	})
	require.NoError(t, err)
	assert.Equal(t, "part1part2\ntail", res.Stdout)
}

func TestRunner_NonZeroExit(t *testing.T) {
	res, err := shell.NewRunner().Run(context.Background(), domain.Command{
		Path: "sh",
		Args: []string{"-c", "echo 'ld: something' >&2; exit 42"},
	})
	require.NoError(t, err, "a non-zero exit is reported through the result")
	assert.Equal(t, 42, res.ExitCode)
	assert.Equal(t, "ld: something\n", res.Combined)
}

func TestRunner_Environment(t *testing.T) {
	res, err := shell.NewRunner().Run(context.Background(), domain.Command{
		Path: "sh",
		Args: []string{"-c", "echo $MBUILD_TEST_VAR"},
		Env:  map[string]string{"MBUILD_TEST_VAR": "test-value-123"},
	})
	require.NoError(t, err)
	assert.Equal(t, "test-value-123\n", res.Stdout)
}

func TestRunner_ToolNotFoundIsFatal(t *testing.T) {
	_, err := shell.NewRunner().Run(context.Background(), domain.Command{Path: "nonexistent-tool-xyz123"})
	require.Error(t, err)
	assert.True(t, domain.IsFatal(err))

	diags := domain.CollectDiagnostics(err)
	require.Len(t, diags, 1)
	assert.Equal(t, domain.CodeToolNotFound, diags[0].Code)
	assert.Equal(t, domain.ExitToolchain, domain.ExitCode(err))

	_, err = shell.NewRunner().Run(context.Background(), domain.Command{Path: "/nonexistent/dir/clang"})
	assert.True(t, domain.IsFatal(err))
}

func TestRunner_AbsolutePathTool(t *testing.T) {
	dir := t.TempDir()
	tool := filepath.Join(dir, "fake-lipo")
	require.NoError(t, os.WriteFile(tool, []byte("#!/bin/sh\necho \"$@\"\n"), 0o700)) //nolint:gosec // Test requires executable file

	res, err := shell.NewRunner().Run(context.Background(), domain.Command{
		Path: tool,
		Args: []string{"-create", "a", "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, "-create a b\n", res.Stdout)
}

func TestRunner_MirrorsToVertex(t *testing.T) {
	ctrl := gomock.NewController(t)
	vertex := mocks.NewMockVertex(ctrl)

	var stdoutBuf, stderrBuf bytes.Buffer
	vertex.EXPECT().Stdout().Return(&stdoutBuf).AnyTimes()
	vertex.EXPECT().Stderr().Return(&stderrBuf).AnyTimes()

	ctx := ports.ContextWithVertex(context.Background(), vertex)
	_, err := shell.NewRunner().Run(ctx, domain.Command{
		Path: "sh",
		Args: []string{"-c", "echo hello to stdout; echo hello to stderr >&2"},
	})
	require.NoError(t, err)

	assert.Equal(t, "hello to stdout\n", stdoutBuf.String())
	assert.Equal(t, "hello to stderr\n", stderrBuf.String())
}

func TestRunner_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := shell.NewRunner().Run(ctx, domain.Command{Path: "sh", Args: []string{"-c", "sleep 5"}})
	assert.Error(t, err)
}

func TestResolveEnvironment(t *testing.T) {
	env := shell.ResolveEnvironment(
		[]string{"PATH=/usr/bin", "HOME=/home/dev", "DEVELOPER_DIR=/old"},
		map[string]string{"DEVELOPER_DIR": "/Applications/Xcode.app"},
	)

	assert.Equal(t, []string{"DEVELOPER_DIR=/Applications/Xcode.app", "HOME=/home/dev", "PATH=/usr/bin"}, env)
}

func TestLookPath(t *testing.T) {
	dir := t.TempDir()
	tool := filepath.Join(dir, "xcrun")
	require.NoError(t, os.WriteFile(tool, []byte("#!/bin/sh\n"), 0o700)) //nolint:gosec // Test requires executable file
	plain := filepath.Join(dir, "notexec")
	require.NoError(t, os.WriteFile(plain, []byte("data"), 0o600))

	got, err := shell.LookPath("xcrun", []string{"PATH=" + strings.Join([]string{"/nonexistent", dir}, string(os.PathListSeparator))})
	require.NoError(t, err)
	assert.Equal(t, tool, got)

	_, err = shell.LookPath("notexec", []string{"PATH=" + dir})
	assert.Error(t, err)

	_, err = shell.LookPath("xcrun", nil)
	assert.Error(t, err)
}
