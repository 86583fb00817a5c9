package scm

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostctl/ghost/internal/testutil"
)

func tagHead(t *testing.T, dir, tag string) {
	t.Helper()
	cmd := exec.Command("git", "tag", tag)
	cmd.Dir = dir
	require.NoError(t, cmd.Run())
}

func setupRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutil.InitRepo(t, dir)
	testutil.WriteFile(t, dir, "README.md", "hello\n")
	testutil.CommitAll(t, dir, "initial commit")
	return dir
}

func TestCurrentBranchAndHEAD(t *testing.T) {
	dir := setupRepo(t)
	a := Open(dir)

	head, ok, err := a.HEAD()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, testutil.HeadHash(t, dir), head)

	branch, ok, err := a.CurrentBranch()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, branch)
}

func TestBranchExistsLocally(t *testing.T) {
	dir := setupRepo(t)
	a := Open(dir)

	branch, _, err := a.CurrentBranch()
	require.NoError(t, err)

	exists, err := a.BranchExistsLocally(branch)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = a.BranchExistsLocally("does-not-exist")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestWriteFiles_CreatesOrphanBranchThenAppends(t *testing.T) {
	dir := setupRepo(t)
	a := Open(dir)

	err := a.WriteFiles("Test User", "test@example.com", "seed knowledge", KnowledgeBranch, map[string][]byte{
		"knowledge.md": []byte("# Knowledge\n"),
	})
	require.NoError(t, err)

	content, ok, err := a.ReadBlob(KnowledgeBranch, "knowledge.md")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "# Knowledge\n", string(content))

	// A second write must not disturb the default branch and must carry
	// forward files not touched by this write.
	err = a.WriteFiles("Test User", "test@example.com", "add mistakes", KnowledgeBranch, map[string][]byte{
		"mistakes.md": []byte("# Mistakes\n"),
	})
	require.NoError(t, err)

	content, ok, err = a.ReadBlob(KnowledgeBranch, "knowledge.md")
	require.NoError(t, err)
	require.True(t, ok, "earlier file must survive a later write to a different path")
	assert.Equal(t, "# Knowledge\n", string(content))

	content, ok, err = a.ReadBlob(KnowledgeBranch, "mistakes.md")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "# Mistakes\n", string(content))

	defaultBranch, _, err := a.CurrentBranch()
	require.NoError(t, err)
	assert.NotEqual(t, KnowledgeBranch, defaultBranch)
	exists, err := a.BranchExistsLocally(defaultBranch)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestReadBlob_MissingRefOrPath(t *testing.T) {
	dir := setupRepo(t)
	a := Open(dir)

	_, ok, err := a.ReadBlob("no-such-branch", "knowledge.md")
	require.NoError(t, err)
	assert.False(t, ok)

	err = a.WriteFiles("Test User", "test@example.com", "seed", KnowledgeBranch, map[string][]byte{
		"knowledge.md": []byte("x"),
	})
	require.NoError(t, err)

	_, ok, err = a.ReadBlob(KnowledgeBranch, "missing.md")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAddNoteAndShowNote(t *testing.T) {
	dir := setupRepo(t)
	a := Open(dir)
	ctx := context.Background()

	head, _, err := a.HEAD()
	require.NoError(t, err)

	_, ok, err := a.ShowNote(ctx, head)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.AddNote(ctx, head, []byte("session note")))

	content, ok, err := a.ShowNote(ctx, head)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, content, "session note")
}

func TestHasUncommittedChanges(t *testing.T) {
	dir := setupRepo(t)
	a := Open(dir)
	ctx := context.Background()

	dirty, err := a.HasUncommittedChanges(ctx)
	require.NoError(t, err)
	assert.False(t, dirty)

	testutil.WriteFile(t, dir, "new.txt", "x")
	dirty, err = a.HasUncommittedChanges(ctx)
	require.NoError(t, err)
	assert.True(t, dirty)
}

func TestLatestTag_NoTags(t *testing.T) {
	dir := setupRepo(t)
	a := Open(dir)

	_, ok, err := a.LatestTag()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLatestTag_PicksHighestSemver(t *testing.T) {
	dir := setupRepo(t)
	tagHead(t, dir, "v0.9.0")
	tagHead(t, dir, "v1.2.0")
	tagHead(t, dir, "v1.1.0")
	a := Open(dir)

	tag, ok, err := a.LatestTag()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v1.2.0", tag)
}
