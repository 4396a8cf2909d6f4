package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/mbuild/internal/adapters/logger"
	"go.trai.ch/mbuild/internal/core/domain"
	"go.trai.ch/zerr"
)

func newTestLogger(t *testing.T, jsonMode bool) (*logger.Logger, *bytes.Buffer) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer
	l := logger.New()
	l.SetOutput(&buf)
	l.SetJSON(jsonMode)
	return l, &buf
}

func TestLogger_InfoWarn(t *testing.T) {
	l, buf := newTestLogger(t, false)

	l.Info("building App")
	l.Warn("warning MB0113: Native code sharing has been disabled")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "building App", lines[0])
	assert.Equal(t, "warning MB0113: Native code sharing has been disabled", lines[1])
}

func TestLogger_ErrorHierarchy(t *testing.T) {
	l, buf := newTestLogger(t, false)

	diag := domain.Errorf(domain.CodeUndefinedSymbol, "_foo")
	l.Error(zerr.Wrap(&domain.TaskError{Task: "link:App:arm64", Err: diag}, "build failed"))

	out := buf.String()
	assert.Contains(t, out, "Error: build failed")
	assert.Contains(t, out, "Caused by:")
	assert.Contains(t, out, "-> task link:App:arm64")
	assert.Contains(t, out, "-> error MB5210: Native linking failed, undefined symbol: _foo.")
}

func TestLogger_ErrorJoinedIsSplit(t *testing.T) {
	l, buf := newTestLogger(t, false)

	l.Error(errors.Join(errors.New("first"), errors.New("second")))

	assert.Equal(t, 2, strings.Count(buf.String(), "Error: "))
}

func TestLogger_ErrorNil(t *testing.T) {
	l, buf := newTestLogger(t, false)
	l.Error(nil)
	assert.Empty(t, buf.String())
}

func TestLogger_JSON(t *testing.T) {
	l, buf := newTestLogger(t, true)

	l.Error(domain.Errorf(domain.CodeLipoFailed, "App", 1, "bad"))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "ERROR", record["level"])
	assert.Equal(t, []any{"MB5301"}, record["codes"])
}

func TestCollectErrorEntries(t *testing.T) {
	err := zerr.Wrap(zerr.Wrap(errors.New("root cause"), "middle layer"), "outer layer")

	assert.Equal(t, []string{"outer layer", "middle layer", "root cause"}, logger.CollectErrorEntries(err))
}

func TestFormatErrorEntries(t *testing.T) {
	got := logger.FormatErrorEntries([]string{"outer", "inner\nsecond line"})

	assert.Equal(t, "Error: outer\n  Caused by:\n    -> inner\n       second line", got)
}
