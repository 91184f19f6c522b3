package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestNewLoggerLevel(t *testing.T) {
	tests := []struct {
		level log.Level
		debug bool
	}{
		{log.InfoLevel, false},
		{log.DebugLevel, true},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		l := newLogger(&buf, tt.level)
		l.Debug("block read")
		if got := strings.Contains(buf.String(), "block read"); got != tt.debug {
			t.Errorf("level %v: debug written = %v, want %v", tt.level, got, tt.debug)
		}
		l.Info("manifest")
		if !strings.Contains(buf.String(), "manifest") {
			t.Errorf("level %v: info line missing", tt.level)
		}
	}
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	p := newProgress(newLogger(&buf, log.InfoLevel))
	p.done("Loaded 2 sources")

	out := buf.String()
	if !strings.Contains(out, "Loaded 2 sources (") || !strings.Contains(out, "s)") {
		t.Errorf("done() = %q", out)
	}
}

func TestLoggerFromContext(t *testing.T) {
	fallback := log.New(&bytes.Buffer{})
	stored := log.New(&bytes.Buffer{})

	if got := loggerFromContext(context.Background(), fallback); got != fallback {
		t.Error("empty context should give the fallback")
	}
	ctx := withLogger(context.Background(), stored)
	if got := loggerFromContext(ctx, fallback); got != stored {
		t.Error("stored logger not returned")
	}
}

func TestOpenLogFile(t *testing.T) {
	cfg := defaultConfig()
	cfg.LogFile = filepath.Join(t.TempDir(), "logs", "cosem.log")

	w, err := openLogFile(cfg)
	if err != nil {
		t.Fatalf("openLogFile() error: %v", err)
	}
	newLogger(w, log.InfoLevel).Info("loaded", "dataset", "jrc_hela-2")
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	data, err := os.ReadFile(cfg.LogFile)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "jrc_hela-2") {
		t.Errorf("log file = %q", data)
	}
}

func TestLogHooks(t *testing.T) {
	var base, scoped bytes.Buffer
	h := logHooks{logger: newLogger(&base, log.DebugLevel)}
	bg := context.Background()

	h.OnLoadStart(bg, "jrc_hela-2", []string{"mito_seg"})
	h.OnSourceSkipped(bg, "jrc_hela-2", "mito_mesh", errors.New("unsupported"))
	h.OnLoadComplete(bg, "jrc_hela-2", 1, time.Second, nil)
	h.OnRasterize(bg, 2, 9, time.Millisecond, nil)
	h.OnCacheMiss(bg, "catalog")
	h.OnCacheSet(bg, "catalog", 2048)
	h.OnResponse(bg, "GET", "example.org", "/api/index.json", 200, time.Millisecond)

	out := base.String()
	for _, want := range []string{"load start", "source skipped", "mito_mesh", "load complete",
		"rasterize", "cache miss", "2.0 kB", "/api/index.json"} {
		if !strings.Contains(out, want) {
			t.Errorf("hook output lacks %q:\n%s", want, out)
		}
	}

	ctx := withLogger(bg, newLogger(&scoped, log.DebugLevel))
	h.OnCacheHit(ctx, "catalog")
	if !strings.Contains(scoped.String(), "cache hit") || strings.Contains(base.String(), "cache hit") {
		t.Error("hook did not use the context logger")
	}
}
