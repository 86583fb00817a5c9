// Package knowledge implements the Knowledge Store: dual-format
// (structured + legacy) parsing and emission of decision/mistake entries,
// area derivation, and the tag index.
package knowledge

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Entry is a knowledge entry for either a decision or a mistake.
type Entry struct {
	Title       string
	Description string
	SessionID   string
	CommitSHA   string
	Files       []string
	Area        string
	Date        string
	Tried       []string
	Rule        string

	// Structured reports whether this entry was parsed from a `### ` block
	// (true) or a legacy `- ` line (false). Legacy entries also carry a
	// non-empty Title, so callers that need to tell the two apart — e.g.
	// sync's merge ordering — must check this field, not Title.
	Structured bool
}

var (
	headingPattern  = regexp.MustCompile(`(?m)^### (.*)$`)
	metadataPattern = regexp.MustCompile(`<!--\s*(.*?)\s*-->`)
	legacyPattern   = regexp.MustCompile(`(?m)^- (.+)$`)
)

// codeRootPrefixes are stripped from the front of a file path before area
// derivation looks at the remaining first segment.
var codeRootPrefixes = map[string]bool{"src": true, "app": true, "lib": true}

// ParseEntries parses a knowledge file tolerating structured `### ` blocks
// and legacy `- ` lines interleaved in the same document.
func ParseEntries(content string) []Entry {
	var entries []Entry

	headingLocs := headingPattern.FindAllStringSubmatchIndex(content, -1)
	if len(headingLocs) == 0 {
		return parseLegacyRegion(content)
	}

	// Text before the first "### " heading is a legacy region.
	entries = append(entries, parseLegacyRegion(content[:headingLocs[0][0]])...)

	for i, loc := range headingLocs {
		blockEnd := len(content)
		if i+1 < len(headingLocs) {
			blockEnd = headingLocs[i+1][0]
		}
		title := strings.TrimSpace(content[loc[2]:loc[3]])
		block := content[loc[1]:blockEnd]
		entries = append(entries, parseStructuredBlock(title, block))
	}

	return entries
}

func parseLegacyRegion(region string) []Entry {
	var entries []Entry
	for _, m := range legacyPattern.FindAllStringSubmatch(region, -1) {
		entries = append(entries, Entry{Title: strings.TrimSpace(m[1])})
	}
	return entries
}

func parseStructuredBlock(title, block string) Entry {
	e := Entry{Title: title, Structured: true}

	meta := metadataPattern.FindStringSubmatch(block)
	description := block
	if meta != nil {
		description = block[:strings.Index(block, meta[0])]
		applyMetadata(&e, meta[1])
	}
	e.Description = strings.TrimSpace(description)
	return e
}

func applyMetadata(e *Entry, raw string) {
	for _, pair := range strings.Split(raw, "|") {
		key, value, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "session":
			e.SessionID = value
		case "commit":
			e.CommitSHA = value
		case "files":
			e.Files = splitCSV(value)
		case "area":
			e.Area = value
		case "date":
			e.Date = value
		case "tried":
			e.Tried = splitCSV(value)
		case "rule":
			e.Rule = value
		}
	}
}

func splitCSV(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// FormatEntry renders e as a structured markdown block. Keys `area` of
// value "general", empty `tried`, and empty `rule` are omitted, inverting
// ParseEntries.
func FormatEntry(e Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### %s\n", e.Title)
	if e.Description != "" {
		b.WriteString(e.Description)
		b.WriteString("\n")
	}
	b.WriteString("\n<!-- ")

	var parts []string
	if e.SessionID != "" {
		parts = append(parts, "session:"+e.SessionID)
	}
	if e.CommitSHA != "" {
		parts = append(parts, "commit:"+e.CommitSHA)
	}
	if len(e.Files) > 0 {
		parts = append(parts, "files:"+strings.Join(e.Files, ","))
	}
	if e.Area != "" && e.Area != "general" {
		parts = append(parts, "area:"+e.Area)
	}
	if e.Date != "" {
		parts = append(parts, "date:"+e.Date)
	}
	if len(e.Tried) > 0 {
		parts = append(parts, "tried:"+strings.Join(e.Tried, ","))
	}
	if e.Rule != "" {
		parts = append(parts, "rule:"+e.Rule)
	}
	b.WriteString(strings.Join(parts, " | "))
	b.WriteString(" -->\n")
	return b.String()
}

// DeriveArea derives an area name from a list of repo-relative paths:
// strip leading `src`/`app`/`lib` path-root prefixes and take the most
// common remaining first path segment. Empty input and root-level-only
// files (nothing left after stripping) yield "general".
func DeriveArea(files []string) string {
	counts := make(map[string]int)
	for _, f := range files {
		parts := strings.Split(f, "/")
		for len(parts) > 0 && codeRootPrefixes[parts[0]] {
			parts = parts[1:]
		}
		if len(parts) <= 1 {
			continue // root-level file: no directory segment to attribute.
		}
		counts[parts[0]]++
	}
	if len(counts) == 0 {
		return "general"
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	best, bestCount := keys[0], -1
	for _, k := range keys {
		if counts[k] > bestCount {
			best, bestCount = k, counts[k]
		}
	}
	return best
}

// IsJunkTitle reports whether a title should be dropped as not carrying any
// real knowledge (spec §4.8 step 4: empty, "none"/"n/a" variants, or too
// short).
var junkTitlePattern = regexp.MustCompile(`(?i)^\s*(none|n/a|no (significant|decisions|key|mistakes|errors|issues)?.*|nothing|not applicable)?\s*$`)

func IsJunkTitle(title string) bool {
	trimmed := strings.TrimSpace(title)
	if len(trimmed) < 4 {
		return true
	}
	return junkTitlePattern.MatchString(trimmed)
}
