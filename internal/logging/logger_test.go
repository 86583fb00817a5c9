package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostctl/ghost/internal/testutil"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"nonsense", slog.LevelInfo},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, parseLevel(tc.in))
	}
}

func logFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(dir, ".ghost/logs"))
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestInit_CreatesLogDirectoryAndFile(t *testing.T) {
	dir := t.TempDir()
	testutil.InitRepo(t, dir)
	t.Cleanup(Close)

	require.NoError(t, Init(dir))
	names := logFiles(t, dir)
	require.Len(t, names, 1)
	assert.True(t, strings.HasSuffix(names[0], ".log"))
}

func TestInit_SeparateInvocationsGetSeparateFiles(t *testing.T) {
	dir := t.TempDir()
	testutil.InitRepo(t, dir)
	t.Cleanup(Close)

	require.NoError(t, Init(dir))
	Close()
	time.Sleep(time.Millisecond)
	require.NoError(t, Init(dir))
	Close()

	names := logFiles(t, dir)
	assert.Len(t, names, 2)
	assert.NotEqual(t, names[0], names[1])
}

func TestLog_WritesJSONLineWithContextFields(t *testing.T) {
	dir := t.TempDir()
	testutil.InitRepo(t, dir)
	t.Cleanup(Close)
	require.NoError(t, Init(dir))

	ctx := WithComponent(context.Background(), "hooks")
	ctx = WithAgent(ctx, "claude-code")
	ctx = WithSession(ctx, "2026-07-30-0a1b2c3d")
	Info(ctx, "session-start", slog.String("hook", "session-start"))
	Close()

	names := logFiles(t, dir)
	require.Len(t, names, 1)
	data, err := os.ReadFile(filepath.Join(dir, ".ghost/logs", names[0]))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "session-start", entry["msg"])
	assert.Equal(t, "2026-07-30-0a1b2c3d", entry["session_id"])
	assert.Equal(t, "hooks", entry["component"])
	assert.Equal(t, "claude-code", entry["agent"])
	assert.Equal(t, "session-start", entry["hook"])
}

func TestInit_FallsBackToStderrWhenDirUnwritable(t *testing.T) {
	dir := t.TempDir()
	testutil.InitRepo(t, dir)
	t.Cleanup(Close)

	// A file where .ghost/logs would need to be a directory forces the
	// MkdirAll fallback path without erroring the caller.
	require.NoError(t, os.WriteFile(dir+"/.ghost", []byte("not a dir"), 0o600))
	assert.NoError(t, Init(dir))
}

func TestContextHelpers_RoundTrip(t *testing.T) {
	ctx := context.Background()
	ctx = WithSession(ctx, "outer")
	ctx = WithSession(ctx, "inner")
	ctx = WithToolCall(ctx, "tc-1")
	ctx = WithComponent(ctx, "finalizer")
	ctx = WithAgent(ctx, "cursor")

	assert.Equal(t, "inner", SessionID(ctx))
	assert.Equal(t, "outer", ParentSessionID(ctx))
	assert.Equal(t, "tc-1", ToolCallID(ctx))
	assert.Equal(t, "finalizer", Component(ctx))
	assert.Equal(t, "cursor", Agent(ctx))
}
