package cli

import (
	"testing"

	"github.com/ghostctl/ghost/internal/knowledge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMistake_RecordsEntry(t *testing.T) {
	root := newTestRepo(t)

	_, _, err := runCmd(t, newMistakeCmd(), "Forgot to close the response body. Leaked a file descriptor under load.")
	require.NoError(t, err)

	entries, err := knowledge.LoadMistakes(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Forgot to close the response body", entries[0].Title)
	assert.Contains(t, entries[0].Description, "Leaked a file descriptor")
}

func TestRunMistake_RequiresArgument(t *testing.T) {
	_, _, err := runCmd(t, newMistakeCmd())
	assert.Error(t, err)
}

func TestSplitMistakeText_ShortTextHasNoDescription(t *testing.T) {
	title, desc := splitMistakeText("too short")
	assert.Equal(t, "too short", title)
	assert.Empty(t, desc)
}
