// Package sync implements the Knowledge Sync subsystem: an orphan branch
// named ghost/knowledge holding knowledge.md, mistakes.md, decisions.md,
// and tags.json, pulled and pushed with per-file merge strategies so
// concurrent contributors never clobber each other's entries.
package sync

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/ghostctl/ghost/internal/knowledge"
)

// Branch is the dedicated orphan branch knowledge is shared through.
const Branch = "ghost/knowledge"

// Files are the four blobs the branch carries at its root.
const (
	KnowledgeFile = "knowledge.md"
	MistakesFile  = "mistakes.md"
	DecisionsFile = "decisions.md"
	TagsFile      = "tags.json"
)

// mergeFreeform implements knowledge.md's strategy: local wins unless it
// is empty or whitespace, in which case remote is used.
func mergeFreeform(local, remote string) string {
	if strings.TrimSpace(local) == "" {
		return remote
	}
	return local
}

// mergeEntries implements mistakes.md/decisions.md's strategy: parse both
// sides as knowledge entries, dedup by (lowercased title, lowercased
// description), structured entries first then legacy entries. If neither
// side produced any structured entry at all, fall back to blank-line-run
// block deduplication so free-text legacy files still merge sensibly.
func mergeEntries(local, remote string) string {
	localEntries := knowledge.ParseEntries(local)
	remoteEntries := knowledge.ParseEntries(remote)

	if !anyStructured(localEntries) && !anyStructured(remoteEntries) {
		return mergeBlocks(local, remote)
	}

	seen := map[string]bool{}
	var structured, legacy []knowledge.Entry
	addEntry := func(e knowledge.Entry) {
		key := strings.ToLower(e.Title) + "\x00" + strings.ToLower(e.Description)
		if seen[key] {
			return
		}
		seen[key] = true
		if e.Structured {
			structured = append(structured, e)
		} else {
			legacy = append(legacy, e)
		}
	}
	for _, e := range localEntries {
		addEntry(e)
	}
	for _, e := range remoteEntries {
		addEntry(e)
	}

	var b strings.Builder
	for _, e := range append(structured, legacy...) {
		b.WriteString(knowledge.FormatEntry(e))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func anyStructured(entries []knowledge.Entry) bool {
	for _, e := range entries {
		if e.Structured {
			return true
		}
	}
	return false
}

// mergeBlocks splits on blank-line runs and preserves first occurrence,
// for legacy free-text files with no parseable structured entry on
// either side.
func mergeBlocks(local, remote string) string {
	seen := map[string]bool{}
	var out []string
	for _, block := range splitBlocks(local + "\n\n" + remote) {
		trimmed := strings.TrimSpace(block)
		if trimmed == "" || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		out = append(out, trimmed)
	}
	return strings.Join(out, "\n\n") + "\n"
}

func splitBlocks(s string) []string {
	var blocks []string
	for _, b := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n\n") {
		blocks = append(blocks, b)
	}
	return blocks
}

// mergeTags implements tags.json's strategy: deep union, each tag's
// session-id set is the union of both sides.
func mergeTags(local, remote []byte) ([]byte, error) {
	l, err := parseTagIndex(local)
	if err != nil {
		return nil, err
	}
	r, err := parseTagIndex(remote)
	if err != nil {
		return nil, err
	}

	merged := map[string]map[string]bool{}
	for tag, ids := range l {
		set := merged[tag]
		if set == nil {
			set = map[string]bool{}
			merged[tag] = set
		}
		for _, id := range ids {
			set[id] = true
		}
	}
	for tag, ids := range r {
		set := merged[tag]
		if set == nil {
			set = map[string]bool{}
			merged[tag] = set
		}
		for _, id := range ids {
			set[id] = true
		}
	}

	out := map[string][]string{}
	for tag, set := range merged {
		var ids []string
		for id := range set {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		out[tag] = ids
	}
	return json.MarshalIndent(out, "", "  ")
}

func parseTagIndex(data []byte) (map[string][]string, error) {
	if len(data) == 0 {
		return map[string][]string{}, nil
	}
	var m map[string][]string
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string][]string{}, nil
	}
	if m == nil {
		m = map[string][]string{}
	}
	return m, nil
}
