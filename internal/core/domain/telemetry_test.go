package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/mbuild/internal/core/domain"
)

func TestTaskStatus(t *testing.T) {
	tests := []struct {
		name       string
		status     domain.TaskStatus
		isTerminal bool
		succeeded  bool
	}{
		{"Pending", domain.TaskStatusPending, false, false},
		{"Running", domain.TaskStatusRunning, false, false},
		{"Completed", domain.TaskStatusCompleted, true, true},
		{"Failed", domain.TaskStatusFailed, true, false},
		{"UpToDate", domain.TaskStatusUpToDate, true, true},
		{"Blocked", domain.TaskStatusBlocked, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.isTerminal, tt.status.IsTerminal())
			assert.Equal(t, tt.succeeded, tt.status.Succeeded())
		})
	}
}

func TestNormalizeTaskStatus(t *testing.T) {
	tests := []struct {
		input    string
		expected domain.TaskStatus
	}{
		{"pending", domain.TaskStatusPending},
		{"RUNNING", domain.TaskStatusRunning},
		{"up-to-date", domain.TaskStatusUpToDate},
		{"blocked", domain.TaskStatusBlocked},
		{"unknown", domain.TaskStatusPending},
		{"", domain.TaskStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, domain.NormalizeTaskStatus(tt.input))
		})
	}
}

func TestLogLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", domain.LogLevelDebug.String())
	assert.Equal(t, "WARN", domain.LogLevelWarn.String())
	assert.Equal(t, "ERROR", domain.LogLevelError.String())
	assert.Equal(t, "INFO", domain.LogLevel(999).String())
	assert.Equal(t, domain.LogLevelWarn, domain.LevelFor(domain.SeverityWarning))
	assert.Equal(t, domain.LogLevelError, domain.LevelFor(domain.SeverityFatal))
}
