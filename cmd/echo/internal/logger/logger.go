package logger

import (
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

var defaultLogger atomic.Pointer[slog.Logger]

// Init installs the global logger writing to w. debug enables debug level
// logging with source locations.
func Init(w io.Writer, debug bool) {
	l := New(w, debug)
	defaultLogger.Store(l)
	slog.SetDefault(l)
}

// New builds a text logger writing one line per event to w.
func New(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
		// Add source file information if in debug mode
		AddSource: debug,
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// Default returns the global logger. Before Init it is an Info level
// logger on stdout.
func Default() *slog.Logger {
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	defaultLogger.CompareAndSwap(nil, New(os.Stdout, false))
	return defaultLogger.Load()
}

// Debug logs at Debug level.
func Debug(msg string, args ...any) {
	Default().Debug(msg, args...)
}

// Info logs at Info level.
func Info(msg string, args ...any) {
	Default().Info(msg, args...)
}

// Warn logs at Warn level.
func Warn(msg string, args ...any) {
	Default().Warn(msg, args...)
}

// Fatal logs at Error level and then exits.
func Fatal(msg string, args ...any) {
	Default().Error(msg, args...)
	os.Exit(1)
}
