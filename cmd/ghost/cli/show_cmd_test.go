package cli

import (
	"context"
	"testing"

	"github.com/ghostctl/ghost/internal/scm"
	"github.com/ghostctl/ghost/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunShow_PrintsAttachedNote(t *testing.T) {
	root := newTestRepo(t)
	head := testutil.HeadHash(t, root)

	require.NoError(t, scm.Open(root).AddNote(context.Background(), head, []byte("## Summary\nFixed the login bug.")))

	stdout, _, err := runCmd(t, newShowCmd(), head)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Fixed the login bug")
}

func TestRunShow_NoNoteAttached(t *testing.T) {
	root := newTestRepo(t)
	head := testutil.HeadHash(t, root)

	_, _, err := runCmd(t, newShowCmd(), head)
	assert.Error(t, err)
}
