package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	slogmulti "github.com/samber/slog-multi"
)

var (
	levelVar   slog.LevelVar
	loggerMu   sync.RWMutex
	baseLogger *slog.Logger
)

func init() {
	levelVar.Set(slog.LevelInfo)
	baseLogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: &levelVar}))
}

// Init configures the process logger. Production environments log JSON,
// everything else logs text. When extra writers are given, records fan out
// to all of them.
func Init(env, level string, extra ...io.Writer) {
	SetLevel(level)

	opts := &slog.HandlerOptions{Level: &levelVar}
	handlers := []slog.Handler{newHandler(env, os.Stdout, opts)}
	for _, w := range extra {
		if w == nil {
			continue
		}
		handlers = append(handlers, slog.NewJSONHandler(w, opts))
	}

	var l *slog.Logger
	if len(handlers) == 1 {
		l = slog.New(handlers[0])
	} else {
		l = slog.New(slogmulti.Fanout(handlers...))
	}

	loggerMu.Lock()
	baseLogger = l
	loggerMu.Unlock()
	slog.SetDefault(l)
}

func newHandler(env string, w io.Writer, opts *slog.HandlerOptions) slog.Handler {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod":
		return slog.NewJSONHandler(w, opts)
	default:
		return slog.NewTextHandler(w, opts)
	}
}

// SetOutput replaces the destination of the process logger, mostly for tests.
func SetOutput(w io.Writer) {
	l := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: &levelVar}))
	loggerMu.Lock()
	baseLogger = l
	loggerMu.Unlock()
}

func SetLevel(level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "warn", "warning":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	default:
		levelVar.Set(slog.LevelInfo)
	}
}

func active() *slog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return baseLogger
}

func Debug(msg string, args ...any) {
	active().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	active().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	active().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	active().Error(msg, args...)
}

// Fatal logs at error level and exits the process.
func Fatal(msg string, args ...any) {
	active().Error(msg, args...)
	os.Exit(1)
}
