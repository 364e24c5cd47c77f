package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestEcoHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		opID    string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			opID:    "20240615T143045Z",
			level:   slog.LevelInfo,
			message: "import complete",
			want:    "2024-06-15T14:30:45Z\tINFO\t20240615T143045Z\timport complete\n",
		},
		{
			name:    "debug level",
			opID:    "op-456",
			level:   slog.LevelDebug,
			message: "records loaded",
			want:    "2024-06-15T14:30:45Z\tDEBUG\top-456\trecords loaded\n",
		},
		{
			name:    "with record attrs",
			opID:    "op-789",
			level:   slog.LevelInfo,
			message: "asset saved",
			attrs:   []slog.Attr{slog.String("tag", "TC-1"), slog.Int("days", 9)},
			want:    "2024-06-15T14:30:45Z\tINFO\top-789\tasset saved\ttag=TC-1\tdays=9\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &ecoHandler{sinks: []logSink{{w: &buf, min: slog.LevelDebug}}, opID: tt.opID}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			r.AddAttrs(tt.attrs...)

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestEcoHandler_SinkLevels(t *testing.T) {
	var file, console bytes.Buffer
	logger := slog.New(&ecoHandler{
		sinks: []logSink{{w: &file, min: slog.LevelDebug}, {w: &console, min: slog.LevelWarn}},
		opID:  "op-1",
	})

	logger.Debug("records loaded")
	logger.Info("import complete")
	logger.Warn("pre-import snapshot failed")

	if n := strings.Count(file.String(), "\n"); n != 3 {
		t.Errorf("file got %d lines, want 3:\n%s", n, file.String())
	}
	if got := console.String(); strings.Count(got, "\n") != 1 || !strings.Contains(got, "WARN") {
		t.Errorf("console = %q, want only the warning", got)
	}
}

func TestEcoHandler_Enabled(t *testing.T) {
	h := &ecoHandler{sinks: []logSink{{w: &bytes.Buffer{}, min: slog.LevelInfo}}}
	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Enabled(DEBUG) = true below every sink minimum")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("Enabled(ERROR) = false")
	}
}

func TestEcoHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &ecoHandler{sinks: []logSink{{w: &buf}}, opID: "op-1", attrs: []slog.Attr{slog.String("a", "1")}}

	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "vault")}).(*ecoHandler)
	if len(h.attrs) != 1 || len(h2.attrs) != 2 {
		t.Errorf("attrs original=%d derived=%d, want 1 and 2", len(h.attrs), len(h2.attrs))
	}

	r := slog.NewRecord(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), slog.LevelInfo, "upload", 0)
	r.AddAttrs(slog.String("checksum", "abc"))
	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if got := buf.String(); !strings.Contains(got, "component=vault") || !strings.Contains(got, "checksum=abc") {
		t.Errorf("Handle() output = %q, want pre-set and record attrs", got)
	}
}

func TestNewLogger(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	logger, f, err := newLogger(filepath.Join(dir, "log"), "test-op", &console)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	logger.Info("hello")
	f.Close()

	data, err := os.ReadFile(filepath.Join(dir, "log", LogFileName))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "\ttest-op\thello") {
		t.Errorf("log file = %q, want the info line", data)
	}
	if console.Len() != 0 {
		t.Errorf("console = %q, want nothing below WARN", console.String())
	}
}
