package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/muesli/termenv"
)

var levelColors = map[slog.Level]string{
	slog.LevelDebug: "#98A2B3",
	slog.LevelInfo:  "#667085",
	slog.LevelWarn:  "#F59E0B",
	slog.LevelError: "#D93025",
}

// PrettyHandler writes one colored block per record. Attributes are appended
// to the first line so multi-line diagnostics keep their layout.
type PrettyHandler struct {
	out   *termenv.Output
	level slog.Leveler
	attrs []slog.Attr
	group string
}

// NewPrettyHandler creates a PrettyHandler writing to w. NO_COLOR disables colors.
func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	if w == nil {
		w = os.Stderr
	}

	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}

	profile := termenv.EnvColorProfile()
	if os.Getenv("NO_COLOR") != "" {
		profile = termenv.Ascii
	}

	return &PrettyHandler{
		out:   termenv.NewOutput(w, termenv.WithProfile(profile), termenv.WithTTY(true)),
		level: level,
	}
}

func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

//nolint:gocritic // slog.Handler requires slog.Record by value
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	tail := make([]string, 0, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		tail = append(tail, formatAttr(a.Key, a))
	}
	r.Attrs(func(a slog.Attr) bool {
		tail = append(tail, formatAttr(h.qualify(a.Key), a))
		return true
	})

	first, rest, _ := strings.Cut(r.Message, "\n")
	if len(tail) > 0 {
		first += " " + strings.Join(tail, " ")
	}
	text := first
	if rest != "" {
		text += "\n" + rest
	}

	styled := h.out.String(text).Foreground(h.out.Color(colorFor(r.Level)))
	_, err := h.out.WriteString(styled.String() + "\n")
	return err
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, slog.Attr{Key: h.qualify(a.Key), Value: a.Value})
	}
	return &clone
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.group = h.qualify(name)
	return &clone
}

func (h *PrettyHandler) qualify(key string) string {
	if h.group == "" {
		return key
	}
	return h.group + "." + key
}

func formatAttr(key string, a slog.Attr) string {
	return key + "=" + a.Value.String()
}

func colorFor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return levelColors[slog.LevelError]
	case level >= slog.LevelWarn:
		return levelColors[slog.LevelWarn]
	case level >= slog.LevelInfo:
		return levelColors[slog.LevelInfo]
	default:
		return levelColors[slog.LevelDebug]
	}
}
