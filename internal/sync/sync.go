package sync

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ghostctl/ghost/internal/paths"
	"github.com/ghostctl/ghost/internal/scm"
)

const (
	authorName  = "ghost"
	authorEmail = "ghost@localhost"
)

func localPaths(repoRoot string) map[string]string {
	return map[string]string{
		KnowledgeFile: paths.Abs(repoRoot, paths.KnowledgeFile),
		MistakesFile:  paths.Abs(repoRoot, paths.MistakesFile),
		DecisionsFile: paths.Abs(repoRoot, paths.DecisionsFile),
		TagsFile:      paths.Abs(repoRoot, paths.TagsFile),
	}
}

// Init ensures the orphan branch exists locally: if it's already there,
// done; else fetch it from the remote if one carries it; else create it
// fresh via the SCM adapter's plumbing.
func Init(ctx context.Context, repoRoot string) error {
	adapter := scm.Open(repoRoot)

	if ok, err := adapter.BranchExistsLocally(Branch); err == nil && ok {
		return nil
	}

	if ok, err := adapter.BranchExistsOnRemote(Branch); err == nil && ok {
		if err := adapter.Fetch(ctx, Branch); err == nil {
			return nil
		}
	}

	return adapter.WriteFiles(authorName, authorEmail, "ghost: initialize knowledge branch", Branch, map[string][]byte{
		KnowledgeFile: {},
		MistakesFile:  {},
		DecisionsFile: {},
		TagsFile:      []byte("{}\n"),
	})
}

// ShouldPull reports whether enough time has passed since the last
// recorded sync to justify another remote fetch, per the rate limit in
// .last-sync.
func ShouldPull(repoRoot string, interval time.Duration) bool {
	data, err := os.ReadFile(paths.Abs(repoRoot, paths.LastSyncFile))
	if err != nil {
		return true
	}
	sec, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return true
	}
	return time.Since(time.Unix(sec, 0)) >= interval
}

func recordSyncTime(repoRoot string) error {
	if err := os.MkdirAll(dirOf(paths.Abs(repoRoot, paths.LastSyncFile)), 0o750); err != nil {
		return err
	}
	return os.WriteFile(paths.Abs(repoRoot, paths.LastSyncFile), []byte(strconv.FormatInt(time.Now().Unix(), 10)), 0o600)
}

// Pull fetches the branch (rate-limited by ShouldPull at the caller's
// discretion) and merges each of the four blobs into the local file,
// writing back only when the merge changed content.
func Pull(ctx context.Context, repoRoot string) error {
	adapter := scm.Open(repoRoot)
	_ = adapter.Fetch(ctx, Branch)

	for name, local := range localPaths(repoRoot) {
		remote, ok, err := adapter.ReadBlob(Branch, name)
		if err != nil || !ok {
			continue
		}
		localData, _ := os.ReadFile(local)
		merged, err := mergeFile(name, localData, remote)
		if err != nil {
			continue
		}
		if string(merged) == string(localData) {
			continue
		}
		_ = os.MkdirAll(dirOf(local), 0o750)
		_ = os.WriteFile(local, merged, 0o600)
	}

	return recordSyncTime(repoRoot)
}

// Push merges each local file with the branch's current blob, commits the
// result, advances the branch ref, and — if a remote exists — pushes it.
// Files with empty local content are skipped entirely (spec §4.10): there
// is nothing to contribute.
func Push(ctx context.Context, repoRoot string) error {
	adapter := scm.Open(repoRoot)

	files := map[string][]byte{}
	for name, local := range localPaths(repoRoot) {
		localData, err := os.ReadFile(local)
		if err != nil || len(strings.TrimSpace(string(localData))) == 0 {
			continue
		}
		remote, ok, _ := adapter.ReadBlob(Branch, name)
		if !ok {
			remote = nil
		}
		merged, err := mergeFile(name, localData, remote)
		if err != nil {
			continue
		}
		files[name] = merged
	}
	if len(files) == 0 {
		return nil
	}

	if err := adapter.WriteFiles(authorName, authorEmail, "ghost: sync knowledge", Branch, files); err != nil {
		return err
	}

	_ = adapter.Push(ctx, Branch)

	return recordSyncTime(repoRoot)
}

func mergeFile(name string, local, remote []byte) ([]byte, error) {
	switch name {
	case TagsFile:
		return mergeTags(local, remote)
	case MistakesFile, DecisionsFile:
		return []byte(mergeEntries(string(local), string(remote))), nil
	default:
		return []byte(mergeFreeform(string(local), string(remote))), nil
	}
}

func dirOf(p string) string {
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return "."
	}
	return p[:i]
}
