package finalizer

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ghostctl/ghost/internal/paths"
)

const (
	backgroundLogMaxBytes = 50 * 1024
	backgroundLogMaxLines = 200
)

// backgroundLogger appends plain-text lines to .ghost/.background.log,
// rotating (keeping the last backgroundLogMaxLines) once the file
// crosses backgroundLogMaxBytes. It is deliberately flat text rather
// than the JSON structured logger — this log exists for a human to
// `tail` after the fact, not for machine consumption.
type backgroundLogger struct {
	path string
}

func newBackgroundLogger(repoRoot string) *backgroundLogger {
	return &backgroundLogger{path: paths.Abs(repoRoot, paths.BackgroundLogFile)}
}

func (l *backgroundLogger) logf(format string, args ...any) {
	line := fmt.Sprintf("%s %s\n", time.Now().UTC().Format(time.RFC3339), fmt.Sprintf(format, args...))

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return
	}
	_, _ = f.WriteString(line)
	_ = f.Close()

	l.rotateIfNeeded()
}

func (l *backgroundLogger) rotateIfNeeded() {
	info, err := os.Stat(l.path)
	if err != nil || info.Size() < backgroundLogMaxBytes {
		return
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		return
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) <= backgroundLogMaxLines {
		return
	}
	kept := strings.Join(lines[len(lines)-backgroundLogMaxLines:], "\n") + "\n"
	_ = os.WriteFile(l.path, []byte(kept), 0o600)
}

// step runs fn, recovering from any panic and logging either outcome.
// Best-effort per spec §4.8: no step is retried, and a step's failure
// never prevents later steps from running.
func (l *backgroundLogger) step(name string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			l.logf("%s: panic: %v", name, r)
		}
	}()

	if err := fn(); err != nil {
		l.logf("%s: error: %v", name, err)
		return
	}
	l.logf("%s: ok", name)
}
