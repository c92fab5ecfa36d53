package logger

import (
	"bytes"
	"io"
	"log/slog"
)

// ColorTextHandler is a slog.TextHandler whose level field is wrapped in ANSI
// color codes. Coloring happens on the encoded line because the text handler
// would otherwise quote escape sequences placed in the record.
type ColorTextHandler struct {
	*slog.TextHandler
}

// NewColorTextHandler creates a new ColorTextHandler
func NewColorTextHandler(w io.Writer, opts *slog.HandlerOptions, showTime bool) *ColorTextHandler {
	o := slog.HandlerOptions{}
	if opts != nil {
		o = *opts
	}
	if !showTime {
		next := o.ReplaceAttr
		o.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			if next != nil {
				return next(groups, a)
			}
			return a
		}
	}
	return &ColorTextHandler{TextHandler: slog.NewTextHandler(colorWriter{w: w}, &o)}
}

type colorWriter struct {
	w io.Writer
}

// Write receives one encoded record per call.
func (cw colorWriter) Write(p []byte) (int, error) {
	if _, err := cw.w.Write(colorize(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

var levelKey = []byte("level=")

func colorize(line []byte) []byte {
	i := bytes.Index(line, levelKey)
	if i < 0 || (i > 0 && line[i-1] != ' ') {
		return line
	}
	start := i + len(levelKey)
	end := start
	for end < len(line) && line[end] != ' ' && line[end] != '\n' {
		end++
	}
	code := levelColor(string(line[start:end]))
	out := make([]byte, 0, len(line)+len(code)+4)
	out = append(out, line[:start]...)
	out = append(out, code...)
	out = append(out, line[start:end]...)
	out = append(out, "\033[0m"...)
	out = append(out, line[end:]...)
	return out
}

func levelColor(level string) string {
	switch {
	case len(level) >= 5 && level[:5] == "ERROR":
		return "\033[31m" // Red
	case len(level) >= 4 && level[:4] == "WARN":
		return "\033[33m" // Yellow
	case len(level) >= 4 && level[:4] == "INFO":
		return "\033[32m" // Green
	case len(level) >= 5 && level[:5] == "DEBUG":
		return "\033[36m" // Cyan
	default:
		return "\033[0m"
	}
}
