// Package log holds the process-wide structured logger for wfsync.
//
// Diagnostics go to stderr through log/slog. User-facing progress lines are
// printed to stdout by the commands and never pass through here.
package log

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
)

var (
	logger atomic.Pointer[slog.Logger]
	level  = new(slog.LevelVar)

	// mu guards output and asJSON while the handler is rebuilt.
	mu     sync.Mutex
	output io.Writer = os.Stderr
	asJSON bool
)

func init() {
	level.Set(slog.LevelWarn)
	SetOutput(os.Stderr)
}

// SetJSON switches between logfmt-style text and JSON lines, for CI logs
// that are parsed afterwards.
func SetJSON(on bool) {
	mu.Lock()
	defer mu.Unlock()
	asJSON = on
	rebuild()
}

// SetVerbose switches between debug and the default warn level.
func SetVerbose(verbose bool) {
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelWarn)
	}
}

// SetQuiet drops everything below error.
func SetQuiet(quiet bool) {
	if quiet {
		level.Set(slog.LevelError)
	}
}

// SetOutput redirects log output, mostly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	rebuild()
}

func rebuild() {
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(output, opts)
	if asJSON {
		h = slog.NewJSONHandler(output, opts)
	}
	logger.Store(slog.New(h))
}

func Debug(msg string, args ...any) {
	logger.Load().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	logger.Load().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	logger.Load().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	logger.Load().Error(msg, args...)
}

// With returns a child logger carrying the given attributes.
func With(args ...any) *slog.Logger {
	return logger.Load().With(args...)
}
