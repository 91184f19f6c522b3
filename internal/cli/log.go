// Package cli implements the cosem command-line interface.
//
// This package provides commands for browsing the dataset catalog, loading
// views and preset samples into PNG projections, rasterizing line segments,
// and serving the catalog over HTTP. The CLI is built using cobra and logs
// through charmbracelet/log.
//
// # Commands
//
// The main commands are:
//   - datasets, info, views, thumbnail: browse the catalog
//   - load, sample: read voxel data and write projections
//   - lines: rasterize segments into a grid
//   - serve: run the HTTP API
//   - cache: manage the response cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. When
// log_file is set in config.toml, log lines are also written to a rotating
// file.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/natefinch/lumberjack"

	"github.com/microsim/cosem/pkg/observability"
)

// newLogger returns a logger stamping lines with "HH:MM:SS.cc".
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// openLogFile returns a size- and age-rotated writer for cfg.LogFile.
func openLogFile(cfg *Config) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return nil, err
	}
	return &lumberjack.Logger{
		Filename: cfg.LogFile,
		MaxSize:  cfg.MaxLogSize, // megabytes
		MaxAge:   cfg.MaxLogAge,  // days
	}, nil
}

// progress logs how long a command step took.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time, e.g. "Loaded 2 sources (1.234s)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger stored by withLogger, or fallback.
func loggerFromContext(ctx context.Context, fallback *log.Logger) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return fallback
}

// logHooks reports library events at debug level, on the command's logger
// when the event carries one.
type logHooks struct {
	logger *log.Logger
}

func (h logHooks) at(ctx context.Context) *log.Logger { return loggerFromContext(ctx, h.logger) }

func (h logHooks) OnLoadStart(ctx context.Context, dataset string, sources []string) {
	h.at(ctx).Debug("load start", "dataset", dataset, "sources", sources)
}

func (h logHooks) OnLoadComplete(ctx context.Context, dataset string, loaded int, d time.Duration, err error) {
	if err != nil {
		h.at(ctx).Debug("load failed", "dataset", dataset, "duration", d, "err", err)
		return
	}
	h.at(ctx).Debug("load complete", "dataset", dataset, "loaded", loaded, "duration", d)
}

func (h logHooks) OnSourceSkipped(ctx context.Context, dataset, source string, err error) {
	h.at(ctx).Debug("source skipped", "dataset", dataset, "source", source, "err", err)
}

func (h logHooks) OnRasterize(ctx context.Context, segments, marked int, d time.Duration, err error) {
	h.at(ctx).Debug("rasterize", "segments", segments, "marked", marked, "duration", d, "err", err)
}

func (h logHooks) OnCacheHit(ctx context.Context, namespace string) {
	h.at(ctx).Debug("cache hit", "ns", namespace)
}

func (h logHooks) OnCacheMiss(ctx context.Context, namespace string) {
	h.at(ctx).Debug("cache miss", "ns", namespace)
}

func (h logHooks) OnCacheSet(ctx context.Context, namespace string, size int) {
	h.at(ctx).Debug("cache set", "ns", namespace, "size", humanize.Bytes(uint64(size)))
}

func (h logHooks) OnRequest(ctx context.Context, method, host, path string) {}

func (h logHooks) OnResponse(ctx context.Context, method, host, path string, status int, d time.Duration) {
	h.at(ctx).Debug("http", "method", method, "host", host, "path", path, "status", status, "duration", d)
}

func (h logHooks) OnError(ctx context.Context, method, host, path string, err error) {
	h.at(ctx).Debug("http failed", "method", method, "host", host, "path", path, "err", err)
}

var (
	_ observability.LoadHooks  = logHooks{}
	_ observability.CacheHooks = logHooks{}
	_ observability.HTTPHooks  = logHooks{}
)
