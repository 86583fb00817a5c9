package cli

import (
	"strings"
	"testing"

	"github.com/ghostctl/ghost/internal/hooks"
	"github.com/ghostctl/ghost/internal/paths"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHookCmd_SessionStartAlwaysExitsCleanly(t *testing.T) {
	root := newTestRepo(t)

	cmd := newHookCmd(hooks.SessionStart)
	cmd.SetIn(strings.NewReader(`{"session_id":"agent-session-1"}`))
	_, _, err := runCmd(t, cmd)
	require.NoError(t, err)

	current, err := paths.ReadCurrentSession(root)
	require.NoError(t, err)
	assert.NotEmpty(t, current)
}

func TestNewHookCmd_UnrecognizedCommandStillExitsCleanly(t *testing.T) {
	newTestRepo(t)

	cmd := newHookCmd("not-a-real-hook")
	cmd.SetIn(strings.NewReader(`{}`))
	_, stderr, err := runCmd(t, cmd)
	require.NoError(t, err)
	assert.Contains(t, stderr, "unrecognized hook command")
}
