// Package scm wraps the git operations ghost needs: a hybrid of in-process
// go-git calls for read-heavy, auth-free operations and `git` CLI
// subprocesses for anything that needs credential-helper support or that
// go-git v5 is known to mishandle (fetch, push, checkout).
package scm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"golang.org/x/mod/semver"
)

// NotesRef is the dedicated notes ref session checkpoints are attached to.
const NotesRef = "ghost-sessions"

// KnowledgeBranch is the orphan branch shared knowledge is synced through.
const KnowledgeBranch = "ghost/knowledge"

// HookTimeout bounds any SCM call made from a hook process (spec §5: hooks
// must never block the hosting agent noticeably).
const HookTimeout = 3 * time.Second

// NetworkTimeout bounds fetch/push calls made from the background finalizer
// or explicit sync commands, mirroring the teacher's FetchAndCheckoutRemoteBranch
// constant.
const NetworkTimeout = 2 * time.Minute

// Adapter is the sole entry point for repository interaction. Every method
// returns ok=false instead of an error for "not present" outcomes (missing
// remote, branch, note, blob) so callers on the hook-time path can treat
// absence as a plain boolean rather than unwinding an error.
type Adapter struct {
	root string
}

// Open opens the repository rooted at root. It does not validate root is a
// git repository eagerly; go-git calls below surface that lazily.
func Open(root string) *Adapter {
	return &Adapter{root: root}
}

func (a *Adapter) repo() (*git.Repository, error) {
	repo, err := git.PlainOpen(a.root)
	if err != nil {
		return nil, fmt.Errorf("open repository at %s: %w", a.root, err)
	}
	return repo, nil
}

func (a *Adapter) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = a.root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(stderr.String()), err)
	}
	return stdout.String(), nil
}

// CurrentBranch returns the checked-out branch name. ok is false in a
// detached-HEAD state.
func (a *Adapter) CurrentBranch() (branch string, ok bool, err error) {
	repo, err := a.repo()
	if err != nil {
		return "", false, err
	}
	head, err := repo.Head()
	if err != nil {
		return "", false, nil
	}
	if !head.Name().IsBranch() {
		return "", false, nil
	}
	return head.Name().Short(), true, nil
}

// HEAD returns the full hex hash of HEAD.
func (a *Adapter) HEAD() (sha string, ok bool, err error) {
	repo, err := a.repo()
	if err != nil {
		return "", false, err
	}
	head, err := repo.Head()
	if err != nil {
		return "", false, nil
	}
	return head.Hash().String(), true, nil
}

// LatestTag returns the highest tag, by semver ordering, among all tags
// this clone has (reachability from HEAD is not checked), so callers can
// compare an installed binary's version against the repo's tags without
// reaching out to any remote. Returns ok=false if the repo has no tags.
func (a *Adapter) LatestTag() (tag string, ok bool, err error) {
	repo, err := a.repo()
	if err != nil {
		return "", false, err
	}
	tags, err := repo.Tags()
	if err != nil {
		return "", false, fmt.Errorf("listing tags: %w", err)
	}
	var names []string
	if err := tags.ForEach(func(ref *plumbing.Reference) error {
		names = append(names, ref.Name().Short())
		return nil
	}); err != nil {
		return "", false, fmt.Errorf("walking tags: %w", err)
	}
	if len(names) == 0 {
		return "", false, nil
	}
	sort.Slice(names, func(i, j int) bool {
		return semver.Compare(canonicalSemver(names[i]), canonicalSemver(names[j])) < 0
	})
	return names[len(names)-1], true, nil
}

// canonicalSemver coerces a bare "v1.2.3"-or-"1.2.3" tag into the leading-"v"
// form golang.org/x/mod/semver requires for comparison.
func canonicalSemver(tag string) string {
	if strings.HasPrefix(tag, "v") {
		return tag
	}
	return "v" + tag
}

// DiffStat returns a `git diff --stat` summary of the current worktree
// against HEAD. Shells out: go-git's diffing of a dirty worktree against
// gitignore rules is unreliable (same reasoning the teacher applies to
// HasUncommittedChanges).
func (a *Adapter) DiffStat(ctx context.Context) (stat string, ok bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, HookTimeout)
	defer cancel()
	out, err := a.git(ctx, "diff", "--stat", "HEAD")
	if err != nil {
		return "", false, nil
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", false, nil
	}
	return out, true, nil
}

// HasUncommittedChanges reports whether the worktree has staged, unstaged,
// or untracked changes. Shells out for the same gitignore reason as DiffStat.
func (a *Adapter) HasUncommittedChanges(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, HookTimeout)
	defer cancel()
	out, err := a.git(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// BranchExistsLocally reports whether a local branch ref exists.
func (a *Adapter) BranchExistsLocally(branch string) (bool, error) {
	repo, err := a.repo()
	if err != nil {
		return false, err
	}
	_, err = repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// BranchExistsOnRemote reports whether origin/<branch> is tracked locally
// (i.e. has been fetched at least once).
func (a *Adapter) BranchExistsOnRemote(branch string) (bool, error) {
	repo, err := a.repo()
	if err != nil {
		return false, err
	}
	_, err = repo.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// SetConfig sets a repository-local git config value. Shells out: go-git's
// config writer doesn't round-trip every format `git config` accepts.
func (a *Adapter) SetConfig(ctx context.Context, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, HookTimeout)
	defer cancel()
	_, err := a.git(ctx, "config", key, value)
	return err
}

// ConfigValue reads a git config value, returning ok=false if unset.
func (a *Adapter) ConfigValue(ctx context.Context, key string) (value string, ok bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, HookTimeout)
	defer cancel()
	out, err := a.git(ctx, "config", "--get", key)
	if err != nil {
		return "", false, nil
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", false, nil
	}
	return out, true, nil
}

// AddNote attaches content to commitSHA on NotesRef, overwriting any
// existing note for that commit (`git notes ... -f`).
func (a *Adapter) AddNote(ctx context.Context, commitSHA string, content []byte) error {
	ctx, cancel := context.WithTimeout(ctx, HookTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, "git", "notes", "--ref", NotesRef, "add", "-f", "-F", "-", commitSHA)
	cmd.Dir = a.root
	cmd.Stdin = bytes.NewReader(content)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git notes add: %s: %w", strings.TrimSpace(stderr.String()), err)
	}
	return nil
}

// ShowNote reads the note attached to commitSHA on NotesRef. ok is false if
// no note exists.
func (a *Adapter) ShowNote(ctx context.Context, commitSHA string) (content string, ok bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, HookTimeout)
	defer cancel()
	out, err := a.git(ctx, "notes", "--ref", NotesRef, "show", commitSHA)
	if err != nil {
		return "", false, nil
	}
	return out, true, nil
}

// DeleteNotesRef removes the entire notes ref, used by `ghost reset`. A
// missing ref is not an error: reset is idempotent.
func (a *Adapter) DeleteNotesRef(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, HookTimeout)
	defer cancel()
	if _, err := a.git(ctx, "update-ref", "-d", "refs/notes/"+NotesRef); err != nil {
		return nil
	}
	return nil
}

// Fetch fetches branch from origin into refs/remotes/origin/<branch>, and
// creates/updates a local tracking branch of the same name. Shells out for
// fetch because go-git doesn't use credential helpers (teacher:
// FetchAndCheckoutRemoteBranch / FetchMetadataBranch).
func (a *Adapter) Fetch(ctx context.Context, branch string) error {
	ctx, cancel := context.WithTimeout(ctx, NetworkTimeout)
	defer cancel()
	refSpec := fmt.Sprintf("+refs/heads/%s:refs/remotes/origin/%s", branch, branch)
	if _, err := a.git(ctx, "fetch", "origin", refSpec); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return errors.New("fetch timed out")
		}
		return err
	}

	repo, err := a.repo()
	if err != nil {
		return err
	}
	remoteRef, err := repo.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
	if err != nil {
		return fmt.Errorf("branch %q not found on origin after fetch: %w", branch, err)
	}
	localRef := plumbing.NewHashReference(plumbing.NewBranchReferenceName(branch), remoteRef.Hash())
	return repo.Storer.SetReference(localRef)
}

// Push pushes a local branch to origin. Shells out for the same
// credential-helper reason as Fetch.
func (a *Adapter) Push(ctx context.Context, branch string) error {
	ctx, cancel := context.WithTimeout(ctx, NetworkTimeout)
	defer cancel()
	_, err := a.git(ctx, "push", "origin", branch+":"+branch)
	return err
}

// ReadBlob reads the content at <ref>:<path>, e.g. ReadBlob("ghost/knowledge", "knowledge.md").
// ok is false if the ref or path doesn't exist.
func (a *Adapter) ReadBlob(ref, path string) (content []byte, ok bool, err error) {
	repo, err := a.repo()
	if err != nil {
		return nil, false, err
	}
	branchRef, err := repo.Reference(plumbing.NewBranchReferenceName(ref), true)
	if err != nil {
		return nil, false, nil
	}
	commit, err := repo.CommitObject(branchRef.Hash())
	if err != nil {
		return nil, false, nil
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, false, nil
	}
	file, err := tree.File(path)
	if err != nil {
		return nil, false, nil
	}
	contents, err := file.Contents()
	if err != nil {
		return nil, false, nil
	}
	return []byte(contents), true, nil
}

// WriteFiles commits files (path -> content) onto branch without touching
// the worktree or index, creating the branch as an orphan if it doesn't yet
// exist. Grounded directly on the teacher's checkpoint/committed.go
// ensureSessionsBranch/BuildTreeFromEntries/createCommit trio: construct
// blobs and a tree entirely through go-git's object store, then advance (or
// create) the branch ref to a new commit whose sole parent is the branch's
// previous tip.
func (a *Adapter) WriteFiles(authorName, authorEmail, message, branch string, files map[string][]byte) error {
	repo, err := a.repo()
	if err != nil {
		return err
	}

	refName := plumbing.NewBranchReferenceName(branch)
	entries := make(map[string]object.TreeEntry)
	var parentHash plumbing.Hash

	if ref, err := repo.Reference(refName, true); err == nil {
		parentHash = ref.Hash()
		commit, err := repo.CommitObject(ref.Hash())
		if err != nil {
			return fmt.Errorf("read %s tip commit: %w", branch, err)
		}
		tree, err := commit.Tree()
		if err != nil {
			return fmt.Errorf("read %s tip tree: %w", branch, err)
		}
		if err := flattenTree(repo, tree, "", entries); err != nil {
			return err
		}
	}

	for path, content := range files {
		hash, err := createBlob(repo, content)
		if err != nil {
			return fmt.Errorf("create blob for %s: %w", path, err)
		}
		entries[path] = object.TreeEntry{Name: path, Mode: filemode.Regular, Hash: hash}
	}

	treeHash, err := buildTreeFromEntries(repo, entries)
	if err != nil {
		return fmt.Errorf("build tree for %s: %w", branch, err)
	}

	commitHash, err := createCommit(repo, treeHash, parentHash, message, authorName, authorEmail)
	if err != nil {
		return fmt.Errorf("create commit on %s: %w", branch, err)
	}

	newRef := plumbing.NewHashReference(refName, commitHash)
	if err := repo.Storer.SetReference(newRef); err != nil {
		return fmt.Errorf("advance %s ref: %w", branch, err)
	}
	return nil
}

// CommitsTouchingFileSince returns the count of commits on HEAD's history
// that touched path since sinceDate (YYYY-MM-DD), used by the relevance
// scorer's staleness probe. Shells out: walking blame/log history file-by-file
// through go-git's commit iterator is materially slower than `git log`
// delegating to native history-simplification.
func (a *Adapter) CommitsTouchingFileSince(ctx context.Context, path, sinceDate string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, HookTimeout)
	defer cancel()
	out, err := a.git(ctx, "log", "--since", sinceDate, "--oneline", "--", path)
	if err != nil {
		return 0, nil
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return 0, nil
	}
	return len(strings.Split(out, "\n")), nil
}

func createBlob(repo *git.Repository, content []byte) (plumbing.Hash, error) {
	obj := repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(content)))
	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if _, err := w.Write(content); err != nil {
		_ = w.Close()
		return plumbing.ZeroHash, err
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, err
	}
	return repo.Storer.SetEncodedObject(obj)
}

func createCommit(repo *git.Repository, treeHash, parentHash plumbing.Hash, message, authorName, authorEmail string) (plumbing.Hash, error) {
	sig := object.Signature{Name: authorName, Email: authorEmail, When: time.Now()}
	commit := &object.Commit{
		TreeHash:  treeHash,
		Author:    sig,
		Committer: sig,
		Message:   message,
	}
	if parentHash != plumbing.ZeroHash {
		commit.ParentHashes = []plumbing.Hash{parentHash}
	}
	obj := repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return plumbing.ZeroHash, err
	}
	return repo.Storer.SetEncodedObject(obj)
}

func flattenTree(repo *git.Repository, tree *object.Tree, prefix string, entries map[string]object.TreeEntry) error {
	for _, entry := range tree.Entries {
		fullPath := entry.Name
		if prefix != "" {
			fullPath = prefix + "/" + entry.Name
		}
		if entry.Mode == filemode.Dir {
			subtree, err := repo.TreeObject(entry.Hash)
			if err != nil {
				return fmt.Errorf("read subtree %s: %w", fullPath, err)
			}
			if err := flattenTree(repo, subtree, fullPath, entries); err != nil {
				return err
			}
			continue
		}
		entries[fullPath] = object.TreeEntry{Name: fullPath, Mode: entry.Mode, Hash: entry.Hash}
	}
	return nil
}

type treeNode struct {
	children map[string]*treeNode
	files    []object.TreeEntry
}

func buildTreeFromEntries(repo *git.Repository, entries map[string]object.TreeEntry) (plumbing.Hash, error) {
	root := &treeNode{children: make(map[string]*treeNode)}
	for fullPath, entry := range entries {
		insertEntry(root, strings.Split(fullPath, "/"), entry)
	}
	return buildTreeObject(repo, root)
}

func insertEntry(node *treeNode, parts []string, entry object.TreeEntry) {
	if len(parts) == 1 {
		node.files = append(node.files, object.TreeEntry{Name: parts[0], Mode: entry.Mode, Hash: entry.Hash})
		return
	}
	name := parts[0]
	child, ok := node.children[name]
	if !ok {
		child = &treeNode{children: make(map[string]*treeNode)}
		node.children[name] = child
	}
	insertEntry(child, parts[1:], entry)
}

func buildTreeObject(repo *git.Repository, node *treeNode) (plumbing.Hash, error) {
	entries := append([]object.TreeEntry(nil), node.files...)
	for name, child := range node.children {
		hash, err := buildTreeObject(repo, child)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		entries = append(entries, object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: hash})
	}
	sortTreeEntries(entries)

	tree := &object.Tree{Entries: entries}
	obj := repo.Storer.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, err
	}
	return repo.Storer.SetEncodedObject(obj)
}

// sortTreeEntries sorts in git's canonical tree order: directories compare
// as if their name had a trailing slash.
func sortTreeEntries(entries []object.TreeEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].Name, entries[j].Name
		if entries[i].Mode == filemode.Dir {
			a += "/"
		}
		if entries[j].Mode == filemode.Dir {
			b += "/"
		}
		return a < b
	})
}
