package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostctl/ghost/internal/paths"
	"github.com/ghostctl/ghost/internal/scm"
	"github.com/ghostctl/ghost/internal/testutil"
)

func setupRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutil.InitRepo(t, dir)
	testutil.WriteFile(t, dir, "README.md", "hello\n")
	testutil.CommitAll(t, dir, "initial commit")
	return dir
}

func TestInit_CreatesOrphanBranchWhenAbsent(t *testing.T) {
	dir := setupRepo(t)
	require.NoError(t, Init(context.Background(), dir))

	ok, err := scm.Open(dir).BranchExistsLocally(Branch)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInit_NoOpWhenBranchAlreadyExists(t *testing.T) {
	dir := setupRepo(t)
	require.NoError(t, Init(context.Background(), dir))
	require.NoError(t, Init(context.Background(), dir))
}

func TestPush_SkipsEmptyLocalFiles(t *testing.T) {
	dir := setupRepo(t)
	require.NoError(t, Init(context.Background(), dir))
	require.NoError(t, Push(context.Background(), dir))

	adapter := scm.Open(dir)
	_, ok, err := adapter.ReadBlob(Branch, KnowledgeFile)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPush_MergesLocalContentOntoBranch(t *testing.T) {
	dir := setupRepo(t)
	require.NoError(t, Init(context.Background(), dir))
	testutil.WriteFile(t, dir, paths.KnowledgeFile, "learned something new\n")

	require.NoError(t, Push(context.Background(), dir))

	adapter := scm.Open(dir)
	content, ok, err := adapter.ReadBlob(Branch, KnowledgeFile)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, string(content), "learned something new")
}

func TestPull_MergesBranchContentIntoLocalFile(t *testing.T) {
	dir := setupRepo(t)
	require.NoError(t, Init(context.Background(), dir))
	testutil.WriteFile(t, dir, paths.KnowledgeFile, "local knowledge\n")
	require.NoError(t, Push(context.Background(), dir))

	// Simulate a second clone that never wrote locally.
	dir2 := setupRepo(t)
	adapter2 := scm.Open(dir2)
	require.NoError(t, adapter2.WriteFiles("ghost", "ghost@localhost", "seed", Branch, map[string][]byte{
		KnowledgeFile: []byte("shared knowledge\n"),
		MistakesFile:  {},
		DecisionsFile: {},
		TagsFile:      []byte("{}\n"),
	}))

	require.NoError(t, Pull(context.Background(), dir2))
	assert.Equal(t, "shared knowledge\n", testutil.ReadFile(t, dir2, paths.KnowledgeFile))
}

func TestShouldPull_RateLimitsByLastSyncTimestamp(t *testing.T) {
	dir := setupRepo(t)
	assert.True(t, ShouldPull(dir, 5*time.Minute))

	require.NoError(t, recordSyncTime(dir))
	assert.False(t, ShouldPull(dir, 5*time.Minute))
	assert.True(t, ShouldPull(dir, 0))
}
