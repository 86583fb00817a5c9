// Package session implements the Session Store: create/append/finalize
// operations over a session's markdown transcript, the session map that
// disambiguates concurrent external sessions, and the current-id marker
// used as a fallback by legacy single-session callers.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ghostctl/ghost/internal/paths"
	"github.com/ghostctl/ghost/internal/redact"
	"github.com/ghostctl/ghost/internal/scm"
)

var promptHeadingPattern = regexp.MustCompile(`(?m)^## Prompt (\d+) <!-- ph:([0-9a-f]{8}) -->`)

// hashPrompt returns the first 8 hex characters of a deterministic hash of
// text, used both to name a Prompt block and to detect consecutive
// duplicate submissions.
func hashPrompt(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:8]
}

// sessionMap is the external-agent-session-id -> internal-session-id mapping
// persisted at paths.SessionMapFile.
type sessionMap map[string]string

func readSessionMap(repoRoot string) (sessionMap, error) {
	data, err := os.ReadFile(paths.Abs(repoRoot, paths.SessionMapFile))
	if os.IsNotExist(err) {
		return sessionMap{}, nil
	}
	if err != nil {
		return nil, err
	}
	var m sessionMap
	if err := json.Unmarshal(data, &m); err != nil {
		// Degrade gracefully per spec §7: a corrupt map behaves as empty.
		return sessionMap{}, nil
	}
	if m == nil {
		m = sessionMap{}
	}
	return m, nil
}

func writeSessionMap(repoRoot string, m sessionMap) error {
	dir := paths.Abs(repoRoot, paths.ActiveDir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(paths.Abs(repoRoot, paths.SessionMapFile), data, 0o600)
}

// resolveInternalID finds the internal session id for an external agent
// session id. When agentSessionID is empty (legacy callers), it falls back
// to the current-id marker. ok is false when no live session can be
// resolved — callers must treat that as a silent no-op per spec §4.3
// failure semantics.
func resolveInternalID(repoRoot, agentSessionID string) (id string, ok bool, err error) {
	if agentSessionID == "" {
		current, err := paths.ReadCurrentSession(repoRoot)
		if err != nil {
			return "", false, err
		}
		return current, current != "", nil
	}
	m, err := readSessionMap(repoRoot)
	if err != nil {
		return "", false, err
	}
	id, ok = m[agentSessionID]
	return id, ok, nil
}

// Create starts a new session: generates an internal id, writes a
// frontmatter-only transcript under active/, records the current-id
// marker, and — if agentSessionID is non-empty — maps it to the new
// internal id in the session map.
func Create(repoRoot, agentSessionID string) (internalID string, err error) {
	id, err := paths.NewSessionID()
	if err != nil {
		return "", err
	}

	fm := Frontmatter{ID: id, Started: time.Now().UTC()}
	adapter := scm.Open(repoRoot)
	if branch, ok, _ := adapter.CurrentBranch(); ok {
		fm.Branch = branch
	}
	if head, ok, _ := adapter.HEAD(); ok {
		fm.BaseCommit = head
	}

	dir := paths.Abs(repoRoot, paths.ActiveDir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create active dir: %w", err)
	}
	if err := os.WriteFile(paths.ActiveSessionPath(repoRoot, id), []byte(Format(fm, "")), 0o600); err != nil {
		return "", fmt.Errorf("write session transcript: %w", err)
	}

	if err := paths.WriteCurrentSession(repoRoot, id); err != nil {
		return "", err
	}

	if agentSessionID != "" {
		m, err := readSessionMap(repoRoot)
		if err != nil {
			return "", err
		}
		m[agentSessionID] = id
		if err := writeSessionMap(repoRoot, m); err != nil {
			return "", err
		}
	}

	return id, nil
}

// appendToActive reads, mutates, and rewrites an active session file
// whole-file (open-append-close semantics at the call granularity, not a
// held file descriptor — safe against interleaving hook processes at line
// granularity per spec §4.3/§5).
func appendToActive(repoRoot, agentSessionID string, mutate func(body string) string) error {
	id, ok, err := resolveInternalID(repoRoot, agentSessionID)
	if err != nil || !ok {
		return err
	}
	p := paths.ActiveSessionPath(repoRoot, id)
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	fm, body := splitFrontmatter(string(data))
	newBody := mutate(body)
	return os.WriteFile(p, []byte(Format(fm, newBody)), 0o600)
}

// AppendPrompt appends a Prompt block, deduplicating consecutive identical
// submissions by comparing prompt-text hashes.
func AppendPrompt(repoRoot, agentSessionID, text string) error {
	return appendToActive(repoRoot, agentSessionID, func(body string) string {
		hash := hashPrompt(text)
		matches := promptHeadingPattern.FindAllStringSubmatch(body, -1)
		if len(matches) > 0 && matches[len(matches)-1][2] == hash {
			return body
		}
		n := len(matches) + 1
		block := fmt.Sprintf("## Prompt %d <!-- ph:%s -->\n> %s\n", n, hash, text)
		return appendBlock(body, block)
	})
}

// AppendFileModification appends a "- Modified: <rel>" line, normalizing an
// absolute path under repoRoot to a repo-relative one.
func AppendFileModification(repoRoot, agentSessionID, path string) error {
	rel := toRepoRelative(repoRoot, path)
	return appendToActive(repoRoot, agentSessionID, func(body string) string {
		return appendBlock(body, fmt.Sprintf("- Modified: %s\n", rel))
	})
}

// AppendTaskNote appends a "- Task: <text>" line.
func AppendTaskNote(repoRoot, agentSessionID, text string) error {
	return appendToActive(repoRoot, agentSessionID, func(body string) string {
		return appendBlock(body, fmt.Sprintf("- Task: %s\n", text))
	})
}

// AppendTurnDelimiter closes out a turn with a "---" line, a completion
// timestamp, and — when diffStat is non-empty — a fenced diff-stat block.
func AppendTurnDelimiter(repoRoot, agentSessionID, diffStat string) error {
	return appendToActive(repoRoot, agentSessionID, func(body string) string {
		block := fmt.Sprintf("\n---\n_turn completed: %s_\n", time.Now().UTC().Format(time.RFC3339))
		if strings.TrimSpace(diffStat) != "" {
			block += "```\n" + diffStat + "\n```\n"
		}
		return body + block
	})
}

func appendBlock(body, block string) string {
	if body != "" && !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	return body + block
}

func toRepoRelative(repoRoot, path string) string {
	if strings.HasPrefix(path, repoRoot+"/") {
		return strings.TrimPrefix(path, repoRoot+"/")
	}
	return path
}

// Result describes a finalized session for callers that need its on-disk
// location (the Background Finalizer's spawn arguments).
type Result struct {
	Path       string
	InternalID string
}

// Finalize runs the fast redactor over the transcript, writes the ended
// timestamp, moves the file from active/ to completed/, and clears the
// session map entry and current-id marker. ok is false when there is no
// live session to finalize (silent no-op per spec §4.3).
func Finalize(repoRoot, agentSessionID string) (res Result, ok bool, err error) {
	id, found, err := resolveInternalID(repoRoot, agentSessionID)
	if err != nil || !found {
		return Result{}, false, err
	}

	activePath := paths.ActiveSessionPath(repoRoot, id)
	data, err := os.ReadFile(activePath)
	if os.IsNotExist(err) {
		return Result{}, false, nil
	}
	if err != nil {
		return Result{}, false, err
	}

	fm, body := splitFrontmatter(string(data))
	ended := time.Now().UTC()
	fm.Ended = &ended
	redacted := redact.String(Format(fm, body))

	completedDir := paths.Abs(repoRoot, paths.CompletedDir)
	if err := os.MkdirAll(completedDir, 0o750); err != nil {
		return Result{}, false, err
	}
	completedPath := paths.CompletedSessionPath(repoRoot, id)
	if err := os.WriteFile(completedPath, []byte(redacted), 0o600); err != nil {
		return Result{}, false, err
	}
	if err := os.Remove(activePath); err != nil {
		return Result{}, false, err
	}

	if agentSessionID != "" {
		m, err := readSessionMap(repoRoot)
		if err == nil {
			delete(m, agentSessionID)
			_ = writeSessionMap(repoRoot, m)
		}
	}
	_ = paths.ClearCurrentSessionIfMatches(repoRoot, id)

	return Result{Path: completedPath, InternalID: id}, true, nil
}

// Checkpoint attaches the most recently completed session's transcript as a
// note on HEAD. Resolution prefers the current-id marker if it still names a
// completed session, else falls back to the lexicographically greatest
// filename under completed/ (the latest date, since ids are date-prefixed;
// ids from the same day order by their random suffix) — the Open Question
// tie-break recorded in DESIGN.md.
func Checkpoint(repoRoot string) error {
	adapter := scm.Open(repoRoot)
	head, ok, err := adapter.HEAD()
	if err != nil || !ok {
		return err
	}

	id, ok, err := mostRecentCompletedID(repoRoot)
	if err != nil || !ok {
		return err
	}

	content, err := os.ReadFile(paths.CompletedSessionPath(repoRoot, id))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), scm.HookTimeout)
	defer cancel()
	return adapter.AddNote(ctx, head, content)
}

func mostRecentCompletedID(repoRoot string) (string, bool, error) {
	if current, err := paths.ReadCurrentSession(repoRoot); err == nil && current != "" {
		if _, statErr := os.Stat(paths.CompletedSessionPath(repoRoot, current)); statErr == nil {
			return current, true, nil
		}
	}

	entries, err := os.ReadDir(paths.Abs(repoRoot, paths.CompletedDir))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".md"))
	}
	if len(ids) == 0 {
		return "", false, nil
	}
	sort.Strings(ids)
	return ids[len(ids)-1], true, nil
}
