// Package logger implements a logging adapter using log/slog.
package logger

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"go.trai.ch/mbuild/internal/core/domain"
	"go.trai.ch/mbuild/internal/core/ports"
)

// messager describes an error that can report its own message without the
// chain, as zerr.Error does.
type messager interface {
	Message() string
}

var _ ports.Logger = (*Logger)(nil)

// Logger implements ports.Logger using log/slog.
type Logger struct {
	logger   *slog.Logger
	mu       sync.RWMutex
	jsonMode bool
	output   io.Writer
}

// New creates a new Logger writing human-readable lines to stderr.
func New() *Logger {
	l := &Logger{}
	l.SetOutput(os.Stderr)
	return l
}

// SetOutput updates the logger's output destination, keeping the JSON mode.
// A nil writer means stderr.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if w == nil {
		w = os.Stderr
	}
	l.output = w
	l.rebuild()
}

// SetJSON switches between JSON and pretty logging.
func (l *Logger) SetJSON(enable bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.jsonMode = enable
	l.rebuild()
}

func (l *Logger) rebuild() {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if l.jsonMode {
		l.logger = slog.New(slog.NewJSONHandler(l.output, opts))
		return
	}
	l.logger = slog.New(NewPrettyHandler(l.output, opts))
}

// Info logs an informational message.
func (l *Logger) Info(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Info(msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Warn(msg)
}

// Error logs err. Joined errors are logged one record per independent failure.
func (l *Logger) Error(err error) {
	if err == nil {
		return
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, branch := range splitJoined(err) {
		if l.jsonMode {
			attrs := []any{"error", branch.Error()}
			if codes := diagnosticCodes(branch); len(codes) > 0 {
				attrs = append(attrs, "codes", codes)
			}
			l.logger.Error("build failed", attrs...)
			continue
		}
		l.logger.Error(formatErrorEntries(collectErrorEntries(branch)))
	}
}

// splitJoined flattens errors.Join trees into their leaves.
func splitJoined(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, inner := range joined.Unwrap() {
			out = append(out, splitJoined(inner)...)
		}
		return out
	}
	return []error{err}
}

func diagnosticCodes(err error) []string {
	var codes []string
	for _, d := range domain.CollectDiagnostics(err) {
		codes = append(codes, d.Code.String())
	}
	return codes
}

// collectErrorEntries walks a single-cause error chain and returns the message
// of each layer. A diagnostic ends the chain with its full rendering.
func collectErrorEntries(err error) []string {
	var messages []string
	for current := err; current != nil; {
		switch x := current.(type) {
		case *domain.Diagnostic:
			return append(messages, x.Error())
		case *domain.TaskError:
			messages = append(messages, "task "+x.Task)
			current = x.Err
		case messager:
			messages = append(messages, x.Message())
			current = errors.Unwrap(current)
		case interface{ Unwrap() []error }:
			for _, inner := range x.Unwrap() {
				messages = append(messages, collectErrorEntries(inner)...)
			}
			return messages
		default:
			return append(messages, current.Error())
		}
	}
	return messages
}

// formatErrorEntries renders messages as "Error:" followed by indented causes.
func formatErrorEntries(messages []string) string {
	var lines []string
	for i, msg := range messages {
		parts := strings.Split(msg, "\n")
		if i == 0 {
			lines = append(lines, "Error: "+parts[0])
			for _, p := range parts[1:] {
				lines = append(lines, "       "+p)
			}
			continue
		}
		if i == 1 {
			lines = append(lines, "  Caused by:")
		}
		lines = append(lines, "    -> "+parts[0])
		for _, p := range parts[1:] {
			lines = append(lines, "       "+p)
		}
	}
	return strings.Join(lines, "\n")
}
