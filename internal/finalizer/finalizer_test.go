package finalizer

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostctl/ghost/internal/paths"
	"github.com/ghostctl/ghost/internal/session"
	"github.com/ghostctl/ghost/internal/testutil"
)

func TestExtractModifiedFiles_DedupesAndCapsAtFive(t *testing.T) {
	body := `
- Modified: a.go
- Modified: b.go
- Modified: a.go
- Modified: c.go
- Modified: d.go
- Modified: e.go
- Modified: f.go
`
	files := extractModifiedFiles(body)
	assert.Len(t, files, 5)
	assert.Equal(t, []string{"a.go", "b.go", "c.go", "d.go", "e.go"}, files)
}

func TestSetSkipKnowledge_RewritesFrontmatter(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/session.md"
	fm := session.Frontmatter{ID: "2026-07-30-abcd1234"}
	require.NoError(t, os.WriteFile(path, []byte(session.Format(fm, "body text")), 0o600))

	parsedFM, body := session.Split(string(testutil.ReadFile(t, dir, "session.md")))
	require.NoError(t, setSkipKnowledge(path, parsedFM, body))

	gotFM, gotBody := session.Split(testutil.ReadFile(t, dir, "session.md"))
	assert.True(t, gotFM.SkipKnowledge)
	assert.Equal(t, "body text", gotBody)
}

func TestRun_BestEffortCompletesWithoutExternalEngines(t *testing.T) {
	dir := t.TempDir()
	testutil.InitRepo(t, dir)
	testutil.WriteFile(t, dir, "README.md", "hello\n")
	testutil.CommitAll(t, dir, "initial commit")

	fm := session.Frontmatter{ID: "2026-07-30-abcd1234"}
	body := "## Prompt 1 <!-- ph:aaaaaaaa -->\n> do the thing\n\n- Modified: main.go\n"
	content := session.Format(fm, body)

	completedDir := paths.Abs(dir, paths.CompletedDir)
	require.NoError(t, os.MkdirAll(completedDir, 0o750))
	transcriptPath := completedDir + "/2026-07-30-abcd1234.md"
	require.NoError(t, os.WriteFile(transcriptPath, []byte(content), 0o600))

	err := Run(context.Background(), dir, transcriptPath, "2026-07-30-abcd1234")
	require.NoError(t, err)

	assert.False(t, testutil.FileExists(dir, paths.BackgroundPIDFile))
	assert.True(t, testutil.FileExists(dir, paths.BackgroundLogFile))
}
