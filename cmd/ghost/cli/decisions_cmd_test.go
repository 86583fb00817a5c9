package cli

import (
	"testing"

	"github.com/ghostctl/ghost/internal/knowledge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunDecisions_ListsRecordedEntries(t *testing.T) {
	root := newTestRepo(t)

	require.NoError(t, knowledge.AppendDecision(root, knowledge.Entry{
		Title:       "Use go-git over shelling out",
		Description: "Avoids a hard dependency on the git binary being on PATH.",
		SessionID:   "2026-07-01-aaaaaaaa",
		Area:        "scm",
		Date:        "2026-07-01",
	}))

	stdout, _, err := runCmd(t, newDecisionsCmd())
	require.NoError(t, err)
	assert.Contains(t, stdout, "Use go-git over shelling out")
	assert.Contains(t, stdout, "2026-07-01")
}

func TestRunDecisions_NoneRecorded(t *testing.T) {
	newTestRepo(t)

	stdout, _, err := runCmd(t, newDecisionsCmd())
	require.NoError(t, err)
	assert.Contains(t, stdout, "no decisions recorded")
}

func TestRunDecisions_FiltersByTag(t *testing.T) {
	root := newTestRepo(t)
	writeCompletedSession(t, root, "2026-07-01-aaaaaaaa", "transcript body")
	writeCompletedSession(t, root, "2026-07-02-bbbbbbbb", "transcript body")

	require.NoError(t, knowledge.AppendDecision(root, knowledge.Entry{
		Title:     "Tagged decision",
		SessionID: "2026-07-01-aaaaaaaa",
	}))
	require.NoError(t, knowledge.AppendDecision(root, knowledge.Entry{
		Title:     "Untagged decision",
		SessionID: "2026-07-02-bbbbbbbb",
	}))
	require.NoError(t, knowledge.AddTags(root, "2026-07-01-aaaaaaaa", []string{"infra"}))

	cmd := newDecisionsCmd()
	stdout, _, err := runCmd(t, cmd, "--tag", "infra")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Tagged decision")
	assert.NotContains(t, stdout, "Untagged decision")
}
