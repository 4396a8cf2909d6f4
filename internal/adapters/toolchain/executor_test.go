package toolchain_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/mbuild/internal/adapters/toolchain"
	"go.trai.ch/mbuild/internal/core/domain"
	"go.trai.ch/mbuild/internal/core/ports"
	"go.trai.ch/mbuild/internal/core/ports/mocks"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

type executorMocks struct {
	runner *mocks.MockProcessRunner
	logger *mocks.MockLogger
}

func newTestExecutor(t *testing.T, cacheDir string) (*toolchain.Executor, executorMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := executorMocks{
		runner: mocks.NewMockProcessRunner(ctrl),
		logger: mocks.NewMockLogger(ctrl),
	}
	bctx := domain.BuildContext{
		CacheDir:  cacheDir,
		Toolchain: domain.Toolchain{Env: map[string]string{"DEVELOPER_DIR": "/xcode"}},
	}
	return toolchain.NewExecutor(m.runner, m.logger, bctx, nil), m
}

func task(kind domain.TaskKind, inputs, outputs []string, command ...string) *domain.Task {
	return &domain.Task{
		Name:    domain.NewInternedString(kind.String() + ":" + strings.Join(outputs, ",")),
		Kind:    kind,
		Inputs:  domain.Intern(inputs...),
		Outputs: domain.Intern(outputs...),
		Command: command,
	}
}

func TestExecutor_CompileSuccess(t *testing.T) {
	dir := t.TempDir()
	exec, m := newTestExecutor(t, dir)
	obj := filepath.Join(dir, "arm64", "main.o")

	m.runner.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, cmd domain.Command) (domain.ProcessResult, error) {
			assert.Equal(t, "clang", cmd.Path)
			assert.Equal(t, []string{"-c", "main.m", "-o", obj}, cmd.Args)
			assert.Equal(t, "/xcode", cmd.Env["DEVELOPER_DIR"])
			return domain.ProcessResult{}, nil
		})

	err := exec.Execute(context.Background(), task(domain.KindCompile, []string{"main.m"}, []string{obj},
		"clang", "-c", "main.m", "-o", obj))
	require.NoError(t, err)
	assert.DirExists(t, filepath.Dir(obj), "output directories are created before the tool runs")
}

func TestExecutor_CompileFailure(t *testing.T) {
	dir := t.TempDir()
	exec, m := newTestExecutor(t, dir)

	m.runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(domain.ProcessResult{
		ExitCode: 1,
		Combined: "\nmain.m:3:1: error: expected ';'\n",
	}, nil)

	err := exec.Execute(context.Background(), task(domain.KindCompile, []string{"main.m"},
		[]string{filepath.Join(dir, "main.o")}, "clang"))
	require.Error(t, err)

	diags := domain.CollectDiagnostics(err)
	require.Len(t, diags, 1)
	assert.Equal(t, domain.CodeCompileFailed, diags[0].Code)
	assert.Contains(t, diags[0].Message, "main.m:3:1: error: expected ';'")
	assert.Equal(t, domain.ExitToolchain, domain.ExitCode(err))
}

func TestExecutor_AOTFailure(t *testing.T) {
	dir := t.TempDir()
	exec, m := newTestExecutor(t, dir)

	m.runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(domain.ProcessResult{ExitCode: 134}, nil)

	tk := task(domain.KindAOT, []string{"/asm/Foo.dll"}, []string{filepath.Join(dir, "Foo.dll.o")}, "mono-aot")
	tk.ABI = domain.ABIArm64
	err := exec.Execute(context.Background(), tk)

	diags := domain.CollectDiagnostics(err)
	require.Len(t, diags, 1)
	assert.Equal(t, domain.CodeAOTFailed, diags[0].Code)
	assert.Equal(t, "AOT compilation of 'Foo.dll' for arm64 failed (exit code 134).", diags[0].Message)
}

func TestExecutor_LinkWarningsAreLogged(t *testing.T) {
	dir := t.TempDir()
	exec, m := newTestExecutor(t, dir)
	ctrl := gomock.NewController(t)
	vertex := mocks.NewMockVertex(ctrl)

	m.runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(domain.ProcessResult{
		Combined: "ld: warning: ignoring file /vendor/libx.a, building for iOS-arm64 but attempting to link with file built for macOS-x86_64\n",
	}, nil)
	m.logger.EXPECT().Warn(gomock.Any()).Do(func(msg string) {
		assert.Contains(t, msg, "MB5215")
	})
	vertex.EXPECT().Log(domain.LogLevelWarn, gomock.Any())

	ctx := ports.ContextWithVertex(context.Background(), vertex)
	err := exec.Execute(ctx, task(domain.KindLink, []string{filepath.Join(dir, "main.o")},
		[]string{filepath.Join(dir, "App")}, "clang"))
	require.NoError(t, err)
}

func TestExecutor_LinkUndefinedObjCClass(t *testing.T) {
	dir := t.TempDir()
	exec, m := newTestExecutor(t, dir)

	m.runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(domain.ProcessResult{
		ExitCode: 1,
		Combined: "Undefined symbols for architecture arm64:\n" +
			"  \"_OBJC_CLASS_$_Foo\", referenced from:\n" +
			"      objc-class-ref in main.o\n" +
			"ld: symbol(s) not found for architecture arm64\n",
	}, nil)

	err := exec.Execute(context.Background(), task(domain.KindLink, nil, []string{filepath.Join(dir, "App")}, "clang"))
	diags := domain.CollectDiagnostics(err)
	require.Len(t, diags, 1)
	assert.Equal(t, domain.CodeUndefinedObjCClass, diags[0].Code)
	assert.Contains(t, diags[0].Message, "Foo")
}

func TestExecutor_LinkArgumentLimit(t *testing.T) {
	dir := t.TempDir()
	exec, m := newTestExecutor(t, dir)

	longArg := strings.Repeat("x", 950)
	gomock.InOrder(
		m.runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(domain.ProcessResult{ExitCode: 126}, nil),
		m.runner.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, cmd domain.Command) (domain.ProcessResult, error) {
				assert.Equal(t, "getconf", cmd.Path)
				assert.Equal(t, []string{"ARG_MAX"}, cmd.Args)
				return domain.ProcessResult{Stdout: "1000\n"}, nil
			}),
	)

	err := exec.Execute(context.Background(), task(domain.KindLink, nil, []string{filepath.Join(dir, "App")}, "clang", longArg))
	codes := diagnosticCodes(domain.CollectDiagnostics(err))
	assert.Equal(t, []domain.Code{domain.CodeLinkFailed, domain.CodeCommandLineTooLong}, codes)
}

func TestExecutor_LinkArgumentListTooLongAtStart(t *testing.T) {
	dir := t.TempDir()
	exec, m := newTestExecutor(t, dir)

	gomock.InOrder(
		m.runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(domain.ProcessResult{},
			zerr.Wrap(&os.PathError{Op: "fork/exec", Path: "clang", Err: syscall.E2BIG}, domain.ErrProcessStartFailed.Error())),
		m.runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(domain.ProcessResult{Stdout: "10\n"}, nil),
	)

	err := exec.Execute(context.Background(), task(domain.KindLink, nil, []string{filepath.Join(dir, "App")}, "clang", "a.o", "b.o"))
	codes := diagnosticCodes(domain.CollectDiagnostics(err))
	assert.Equal(t, []domain.Code{domain.CodeCommandLineTooLong, domain.CodeLinkFailed}, codes)
}

func TestExecutor_ToolNotFoundIsFatal(t *testing.T) {
	dir := t.TempDir()
	exec, m := newTestExecutor(t, dir)

	m.runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(domain.ProcessResult{},
		domain.Fatalf(domain.CodeToolNotFound, "lipo"))

	err := exec.Execute(context.Background(), task(domain.KindLipo, nil, []string{filepath.Join(dir, "App")}, "lipo"))
	require.Error(t, err)
	assert.True(t, domain.IsFatal(err))
}

func TestExecutor_SimpleToolFailures(t *testing.T) {
	cases := []struct {
		kind domain.TaskKind
		code domain.Code
	}{
		{domain.KindLipo, domain.CodeLipoFailed},
		{domain.KindStrip, domain.CodeStripFailed},
		{domain.KindDsym, domain.CodeDsymutilFailed},
	}
	for _, tc := range cases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			dir := t.TempDir()
			exec, m := newTestExecutor(t, dir)
			out := filepath.Join(dir, "App")

			m.runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(domain.ProcessResult{
				ExitCode: 1,
				Combined: "fatal error: can't open input file\n",
			}, nil)

			err := exec.Execute(context.Background(), task(tc.kind, nil, []string{out}, tc.kind.String()))
			diags := domain.CollectDiagnostics(err)
			require.Len(t, diags, 1)
			assert.Equal(t, tc.code, diags[0].Code)
			assert.Contains(t, diags[0].Message, out)
		})
	}
}

func TestExecutor_Copy(t *testing.T) {
	dir := t.TempDir()
	exec, _ := newTestExecutor(t, dir)

	src := filepath.Join(dir, "Foo.dll")
	dst := filepath.Join(dir, "App.app", "Foo.dll")
	require.NoError(t, os.WriteFile(src, []byte("assembly"), 0o600))

	require.NoError(t, exec.Execute(context.Background(), task(domain.KindCopy, []string{src}, []string{dst})))
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "assembly", string(got))

	err = exec.Execute(context.Background(), task(domain.KindCopy, []string{filepath.Join(dir, "missing")}, []string{dst}))
	diags := domain.CollectDiagnostics(err)
	require.Len(t, diags, 1)
	assert.Equal(t, domain.CodeBundleIO, diags[0].Code)
}

func TestExecutor_EmptyCommand(t *testing.T) {
	dir := t.TempDir()
	exec, _ := newTestExecutor(t, dir)

	err := exec.Execute(context.Background(), task(domain.KindStrip, nil, []string{filepath.Join(dir, "App")}))
	require.ErrorContains(t, err, "task has no command")
}

func diagnosticCodes(diags []*domain.Diagnostic) []domain.Code {
	codes := make([]domain.Code, len(diags))
	for i, d := range diags {
		codes[i] = d.Code
	}
	return codes
}
