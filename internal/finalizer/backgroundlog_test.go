package finalizer

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostctl/ghost/internal/testutil"
)

func TestBackgroundLogger_StepLogsOkAndError(t *testing.T) {
	dir := t.TempDir()
	l := newBackgroundLogger(dir)

	l.step("good-step", func() error { return nil })
	l.step("bad-step", func() error { return errors.New("boom") })

	content := testutil.ReadFile(t, dir, ".ghost/.background.log")
	assert.Contains(t, content, "good-step: ok")
	assert.Contains(t, content, "bad-step: error: boom")
}

func TestBackgroundLogger_StepRecoversPanic(t *testing.T) {
	dir := t.TempDir()
	l := newBackgroundLogger(dir)

	assert.NotPanics(t, func() {
		l.step("panicky-step", func() error { panic("kaboom") })
	})

	content := testutil.ReadFile(t, dir, ".ghost/.background.log")
	assert.Contains(t, content, "panicky-step: panic: kaboom")
}

func TestBackgroundLogger_RotatesWhenOversized(t *testing.T) {
	dir := t.TempDir()
	l := newBackgroundLogger(dir)

	for i := 0; i < 300; i++ {
		l.logf(strings.Repeat("x", 200))
	}

	content := testutil.ReadFile(t, dir, ".ghost/.background.log")
	require.Less(t, len(content), backgroundLogMaxBytes)
}
