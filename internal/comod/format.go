package comod

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ghostctl/ghost/internal/knowledge"
)

// FormatEntries renders ranked entries for injection into a SessionStart
// context block: entries with a non-empty Rule are emitted first, under a
// dedicated warning heading, with the rule text verbatim; the remainder
// follow grouped by file (spec §4.6 "Rule precedence").
func FormatEntries(heading string, entries []knowledge.Entry) string {
	if len(entries) == 0 {
		return ""
	}

	var ruled, rest []knowledge.Entry
	for _, e := range entries {
		if e.Rule != "" {
			ruled = append(ruled, e)
		} else {
			rest = append(rest, e)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n", heading)

	if len(ruled) > 0 {
		b.WriteString("\n### Rules to follow\n")
		for _, e := range ruled {
			fmt.Fprintf(&b, "- **%s**: %s\n", e.Title, e.Rule)
		}
	}

	if len(rest) > 0 {
		b.WriteString("\n### By file\n")
		for _, group := range groupByFile(rest) {
			fmt.Fprintf(&b, "- %s: %s\n", group.file, group.title)
		}
	}

	return b.String()
}

type fileGroup struct {
	file  string
	title string
}

// groupByFile flattens entries into one row per (file, entry) pair, files
// sorted lexicographically, entries without files rendered under "general".
func groupByFile(entries []knowledge.Entry) []fileGroup {
	var groups []fileGroup
	for _, e := range entries {
		if len(e.Files) == 0 {
			groups = append(groups, fileGroup{file: "general", title: e.Title})
			continue
		}
		for _, f := range e.Files {
			groups = append(groups, fileGroup{file: f, title: e.Title})
		}
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].file < groups[j].file })
	return groups
}
