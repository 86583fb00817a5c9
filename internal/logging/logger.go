// Package logging provides structured JSON logging for ghost, one log file
// per process invocation under .ghost/logs/<pid>-<unixnano>.log. Hook
// processes are short-lived and many can run concurrently for the same
// session, so a PID-plus-timestamp filename avoids collisions that a
// session-keyed filename would invite.
//
//	if err := logging.Init(repoRoot); err != nil { ... }
//	defer logging.Close()
//
//	ctx = logging.WithComponent(context.Background(), "hooks")
//	ctx = logging.WithSession(ctx, sessionID)
//	logging.Info(ctx, "session-start", slog.String("branch", branch))
package logging

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ghostctl/ghost/internal/paths"
)

// LevelEnvVar overrides the configured log level for this process.
const LevelEnvVar = "GHOST_LOG_LEVEL"

var (
	mu        sync.RWMutex
	logger    *slog.Logger
	logFile   *os.File
	bufWriter *bufio.Writer
	levelFunc func() string // optional settings-provided fallback, set by SetLevelGetter
)

// SetLevelGetter installs a fallback used when GHOST_LOG_LEVEL is unset,
// letting settings.json supply a default level without logging importing
// the config package.
func SetLevelGetter(getter func() string) {
	mu.Lock()
	defer mu.Unlock()
	levelFunc = getter
}

// Init opens a fresh .ghost/logs/<pid>-<unixnano>.log for JSON logging for
// the remainder of the process. On any failure to create the log directory
// or file it falls back to stderr rather than erroring — logging itself
// must never be what breaks a hook.
func Init(repoRoot string) error {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()

	level := parseLevel(resolveLevel())

	dir := paths.Abs(repoRoot, paths.LogsDir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		logger = newLogger(os.Stderr, level)
		return nil
	}

	name := fmt.Sprintf("%d-%d.log", os.Getpid(), time.Now().UnixNano())
	f, err := os.OpenFile(dir+"/"+name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		logger = newLogger(os.Stderr, level)
		return nil
	}

	logFile = f
	bufWriter = bufio.NewWriterSize(f, 8192)
	logger = newLogger(bufWriter, level)
	return nil
}

func resolveLevel() string {
	if v := os.Getenv(LevelEnvVar); v != "" {
		return v
	}
	if levelFunc != nil {
		return levelFunc()
	}
	return ""
}

// Close flushes and closes the current log file. Safe to call repeatedly
// and safe to call when Init was never called.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
}

func closeLocked() {
	if bufWriter != nil {
		_ = bufWriter.Flush()
		bufWriter = nil
	}
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func parseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func activeLogger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// Debug logs at DEBUG, pulling session/component/agent fields from ctx.
func Debug(ctx context.Context, msg string, attrs ...any) { log(ctx, slog.LevelDebug, msg, attrs...) }

// Info logs at INFO, pulling session/component/agent fields from ctx.
func Info(ctx context.Context, msg string, attrs ...any) { log(ctx, slog.LevelInfo, msg, attrs...) }

// Warn logs at WARN, pulling session/component/agent fields from ctx.
func Warn(ctx context.Context, msg string, attrs ...any) { log(ctx, slog.LevelWarn, msg, attrs...) }

// Error logs at ERROR, pulling session/component/agent fields from ctx.
func Error(ctx context.Context, msg string, attrs ...any) { log(ctx, slog.LevelError, msg, attrs...) }

func log(ctx context.Context, level slog.Level, msg string, attrs ...any) {
	l := activeLogger()

	var all []any
	if id := SessionID(ctx); id != "" {
		all = append(all, slog.String("session_id", id))
	}
	if v := ParentSessionID(ctx); v != "" {
		all = append(all, slog.String("parent_session_id", v))
	}
	if v := ToolCallID(ctx); v != "" {
		all = append(all, slog.String("tool_call_id", v))
	}
	if v := Component(ctx); v != "" {
		all = append(all, slog.String("component", v))
	}
	if v := Agent(ctx); v != "" {
		all = append(all, slog.String("agent", v))
	}
	all = append(all, attrs...)

	l.Log(nil, level, msg, all...) //nolint:staticcheck // values already pulled from ctx above
}
