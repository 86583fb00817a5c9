package cli

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/ghostctl/ghost/internal/paths"
	"github.com/ghostctl/ghost/internal/session"
	"github.com/ghostctl/ghost/internal/testutil"
	"github.com/spf13/cobra"
)

// newTestRepo initializes a git repository, chdirs the test into it, and
// clears the cached repo root so paths.RepoRoot() resolves freshly.
func newTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutil.InitRepo(t, dir)
	testutil.WriteFile(t, dir, "README.md", "hello\n")
	testutil.CommitAll(t, dir, "initial commit")
	t.Chdir(dir)
	paths.ClearRepoRootCache()
	t.Cleanup(paths.ClearRepoRootCache)
	return dir
}

// writeCompletedSession writes a minimal completed session transcript under
// .ghost/completed, so code that expects a transcript to back a session id
// (AddTags, resume, knowledge build) has something to operate on.
func writeCompletedSession(t *testing.T, root, id, body string) {
	t.Helper()
	fm := session.Frontmatter{ID: id, Started: time.Now()}
	doc := session.Format(fm, body)
	path := paths.CompletedSessionPath(root, id)
	if err := os.MkdirAll(paths.Abs(root, paths.CompletedDir), 0o750); err != nil {
		t.Fatalf("mkdir completed dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write completed session %s: %v", id, err)
	}
}

// runCmd executes a cobra command with args, capturing stdout/stderr.
func runCmd(t *testing.T, cmd *cobra.Command, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}
