package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// LogFileName is the log file created under the configured log directory.
const LogFileName = "ecotermo.log"

// logSink is one destination of the handler with its minimum level.
type logSink struct {
	w   io.Writer
	min slog.Level
}

// ecoHandler is a slog.Handler that formats log records as:
//
//	<timestamp>\t<level>\t<opID>\t<message>\t<key=value ...>
//
// Each line goes to every sink whose minimum level it meets.
type ecoHandler struct {
	sinks []logSink
	opID  string
	attrs []slog.Attr
}

func (h *ecoHandler) Enabled(_ context.Context, level slog.Level) bool {
	for _, s := range h.sinks {
		if level >= s.min {
			return true
		}
	}
	return false
}

func (h *ecoHandler) Handle(_ context.Context, r slog.Record) error {
	var line bytes.Buffer
	fmt.Fprintf(&line, "%s\t%s\t%s\t%s", r.Time.UTC().Format("2006-01-02T15:04:05Z"), r.Level, h.opID, r.Message)

	for _, a := range h.attrs {
		fmt.Fprintf(&line, "\t%s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&line, "\t%s=%v", a.Key, a.Value)
		return true
	})
	line.WriteByte('\n')

	for _, s := range h.sinks {
		if r.Level < s.min {
			continue
		}
		if _, err := s.w.Write(line.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

func (h *ecoHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ecoHandler{
		sinks: h.sinks,
		opID:  h.opID,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *ecoHandler) WithGroup(string) slog.Handler { return h }

// newLogger creates a structured logger that writes every level to
// logDir/ecotermo.log and warnings and errors to console.
// It returns the slog.Logger, the open log file (for cleanup), and any error.
func newLogger(logDir string, opID string, console io.Writer) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	logPath := filepath.Join(logDir, LogFileName)
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	sinks := []logSink{{w: f, min: slog.LevelDebug}}
	if console != nil {
		sinks = append(sinks, logSink{w: console, min: slog.LevelWarn})
	}
	return slog.New(&ecoHandler{sinks: sinks, opID: opID}), f, nil
}

// slogAdapter wraps *slog.Logger to satisfy the eco.Logger interface.
type slogAdapter struct {
	l *slog.Logger
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }
