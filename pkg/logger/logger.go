package logger

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	mu  sync.RWMutex
	log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
)

// Init configures the process-wide logger. The development environment gets
// human-readable text at debug level, every other environment JSON at info.
func Init(env string) {
	InitWithWriter(env, os.Stderr)
}

func InitWithWriter(env string, w io.Writer) {
	var h slog.Handler
	if env == "development" {
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	}

	mu.Lock()
	log = slog.New(h)
	mu.Unlock()
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

func Debug(msg string, args ...any) { current().Debug(msg, args...) }
func Info(msg string, args ...any)  { current().Info(msg, args...) }
func Warn(msg string, args ...any)  { current().Warn(msg, args...) }
func Error(msg string, args ...any) { current().Error(msg, args...) }

// Fatal logs at error level and exits.
func Fatal(msg string, args ...any) {
	current().Error(msg, args...)
	os.Exit(1)
}

// With returns a logger carrying the given attributes, for per-job context.
func With(args ...any) *slog.Logger {
	return current().With(args...)
}
