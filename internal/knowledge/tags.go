package knowledge

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/ghostctl/ghost/internal/paths"
	"github.com/ghostctl/ghost/internal/session"
)

// TagIndex maps a tag to the set of internal session ids carrying it,
// persisted at paths.TagsFile as JSON. Keys are sorted on write so the file
// diffs cleanly.
type TagIndex map[string][]string

func readTagIndex(repoRoot string) (TagIndex, error) {
	data, err := os.ReadFile(paths.Abs(repoRoot, paths.TagsFile))
	if os.IsNotExist(err) {
		return TagIndex{}, nil
	}
	if err != nil {
		return nil, err
	}
	var idx TagIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		// Degrade gracefully per spec §7: a corrupt index behaves as empty.
		return TagIndex{}, nil
	}
	if idx == nil {
		idx = TagIndex{}
	}
	return idx, nil
}

func writeTagIndex(repoRoot string, idx TagIndex) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(paths.Abs(repoRoot, paths.TagsFile), data, 0o600)
}

func (idx TagIndex) add(sessionID string, tags []string) {
	for _, tag := range tags {
		ids := idx[tag]
		found := false
		for _, id := range ids {
			if id == sessionID {
				found = true
				break
			}
		}
		if !found {
			ids = append(ids, sessionID)
			sort.Strings(ids)
			idx[tag] = ids
		}
	}
}

// AddTags merges tags into a session's frontmatter tag sequence (preserving
// order, deduplicating) and into the repo-wide tag index. It locates the
// session's transcript under completed/ first, then active/ (a session may
// be tagged while still in progress), returning an error if neither exists.
func AddTags(repoRoot, sessionID string, tags []string) error {
	if len(tags) == 0 {
		return nil
	}

	path := paths.CompletedSessionPath(repoRoot, sessionID)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		path = paths.ActiveSessionPath(repoRoot, sessionID)
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return err
	}

	fm, body := session.Split(string(data))
	fm.Tags = session.MergeTags(fm.Tags, tags)
	if err := os.WriteFile(path, []byte(session.Format(fm, body)), 0o600); err != nil {
		return err
	}

	idx, err := readTagIndex(repoRoot)
	if err != nil {
		return err
	}
	idx.add(sessionID, tags)
	return writeTagIndex(repoRoot, idx)
}

// TagsForSession returns every tag currently indexed for sessionID, sorted.
func TagsForSession(repoRoot, sessionID string) ([]string, error) {
	idx, err := readTagIndex(repoRoot)
	if err != nil {
		return nil, err
	}
	var out []string
	for tag, ids := range idx {
		for _, id := range ids {
			if id == sessionID {
				out = append(out, tag)
				break
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// SessionsForTag returns every session id indexed under tag, sorted.
func SessionsForTag(repoRoot, tag string) ([]string, error) {
	idx, err := readTagIndex(repoRoot)
	if err != nil {
		return nil, err
	}
	ids := append([]string(nil), idx[tag]...)
	sort.Strings(ids)
	return ids, nil
}
