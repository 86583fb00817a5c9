package cli

import (
	"os"
	"testing"

	"github.com/ghostctl/ghost/internal/paths"
	"github.com/ghostctl/ghost/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunReindex_FailsGracefullyWithoutSearchEngine(t *testing.T) {
	newTestRepo(t)

	_, _, err := runCmd(t, newReindexCmd())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "reindex")
}

func TestRunValidate_NoIssues(t *testing.T) {
	root := newTestRepo(t)
	writeCompletedSession(t, root, "2026-07-01-aaaaaaaa", "body")

	stdout, _, err := runCmd(t, newValidateCmd())
	require.NoError(t, err)
	assert.Contains(t, stdout, "no issues found")
}

func TestRunValidate_ReportsNonCanonicalFrontmatter(t *testing.T) {
	root := newTestRepo(t)
	require.NoError(t, os.MkdirAll(paths.Abs(root, paths.CompletedDir), 0o750))
	rel := paths.CompletedDir + "/2026-07-01-aaaaaaaa.md"
	raw := "---\nid: 2026-07-01-aaaaaaaa\nstarted: 2026-07-01T00:00:00Z\ntags: not-a-sequence\n---\n\nbody\n"
	testutil.WriteFile(t, root, rel, raw)

	stdout, _, err := runCmd(t, newValidateCmd())
	require.NoError(t, err)
	assert.Contains(t, stdout, "non-canonical frontmatter")
	assert.Contains(t, stdout, "issue(s) found")
}

func TestRunValidate_FixRewritesCanonicalForm(t *testing.T) {
	root := newTestRepo(t)
	require.NoError(t, os.MkdirAll(paths.Abs(root, paths.CompletedDir), 0o750))
	rel := paths.CompletedDir + "/2026-07-01-aaaaaaaa.md"
	raw := "---\nid: 2026-07-01-aaaaaaaa\nstarted: 2026-07-01T00:00:00Z\ntags: not-a-sequence\n---\n\nbody\n"
	testutil.WriteFile(t, root, rel, raw)

	_, _, err := runCmd(t, newValidateCmd(), "-f")
	require.NoError(t, err)

	fixed := testutil.ReadFile(t, root, rel)
	assert.NotContains(t, fixed, "tags: not-a-sequence")
}

func TestRunValidate_RepairsNonArrayTagIndexValues(t *testing.T) {
	root := newTestRepo(t)
	testutil.WriteFile(t, root, paths.TagsFile, `{"good": ["2026-07-01-aaaaaaaa"], "bad": "not-an-array"}`)

	stdout, _, err := runCmd(t, newValidateCmd(), "-f")
	require.NoError(t, err)
	assert.Contains(t, stdout, `tag "bad"`)

	fixed := testutil.ReadFile(t, root, paths.TagsFile)
	assert.Contains(t, fixed, "good")
	assert.NotContains(t, fixed, "not-an-array")
}

func TestRunUpdate_RefreshesInstallation(t *testing.T) {
	root := newTestRepo(t)

	stdout, _, err := runCmd(t, newUpdateCmd())
	require.NoError(t, err)
	assert.Contains(t, stdout, "installation refreshed")
	assert.True(t, testutil.FileExists(root, ".git/hooks/post-commit"))
}
