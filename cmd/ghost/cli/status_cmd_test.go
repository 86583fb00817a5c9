package cli

import (
	"testing"

	"github.com/ghostctl/ghost/internal/paths"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStatus_NotEnabled(t *testing.T) {
	newTestRepo(t)

	stdout, _, err := runCmd(t, newStatusCmd())
	require.NoError(t, err)
	assert.Contains(t, stdout, "not enabled")
}

func TestRunStatus_ReportsActiveSessionAndCompletedCount(t *testing.T) {
	root := newTestRepo(t)
	require.NoError(t, paths.WriteCurrentSession(root, "2026-07-01-aaaaaaaa"))
	writeCompletedSession(t, root, "2026-07-02-bbbbbbbb", "body")

	stdout, _, err := runCmd(t, newStatusCmd())
	require.NoError(t, err)
	assert.Contains(t, stdout, "active session: 2026-07-01-aaaaaaaa")
	assert.Contains(t, stdout, "completed sessions: 1")
	assert.Contains(t, stdout, "background finalizer: idle")
}
