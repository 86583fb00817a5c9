package session

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Frontmatter is the YAML-ish header block of a session transcript.
type Frontmatter struct {
	ID            string
	Branch        string
	BaseCommit    string
	Started       time.Time
	Ended         *time.Time
	Tags          []string
	SkipKnowledge bool
}

const frontmatterDelim = "---"

// splitFrontmatter splits a transcript into its frontmatter block and body.
// A document with no leading "---" delimiter pair is treated as having empty
// frontmatter and the whole document as body — parser failures degrade
// gracefully per spec §7 rather than raising.
func splitFrontmatter(doc string) (fm Frontmatter, body string) {
	lines := strings.Split(doc, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != frontmatterDelim {
		return Frontmatter{}, doc
	}
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == frontmatterDelim {
			end = i
			break
		}
	}
	if end < 0 {
		return Frontmatter{}, doc
	}
	fm = parseFrontmatterLines(lines[1:end])
	body = strings.Join(lines[end+1:], "\n")
	body = strings.TrimPrefix(body, "\n")
	return fm, body
}

func parseFrontmatterLines(lines []string) Frontmatter {
	var fm Frontmatter
	for _, line := range lines {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "id":
			fm.ID = value
		case "branch":
			fm.Branch = value
		case "base_commit":
			fm.BaseCommit = value
		case "started":
			if t, err := time.Parse(time.RFC3339, value); err == nil {
				fm.Started = t
			}
		case "ended":
			if t, err := time.Parse(time.RFC3339, value); err == nil {
				fm.Ended = &t
			}
		case "tags":
			fm.Tags = parseInlineList(value)
		case "skip_knowledge":
			if b, err := strconv.ParseBool(value); err == nil {
				fm.SkipKnowledge = b
			}
		}
	}
	return fm
}

func parseInlineList(value string) []string {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, "[")
	value = strings.TrimSuffix(value, "]")
	if strings.TrimSpace(value) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Split is the exported form of splitFrontmatter, used by other packages
// (the Knowledge Store's tagging operation) that need to rewrite a session
// transcript's frontmatter without duplicating its parser.
func Split(doc string) (Frontmatter, string) {
	return splitFrontmatter(doc)
}

// MergeTags is the exported form of mergeTags.
func MergeTags(existing, add []string) []string {
	return mergeTags(existing, add)
}

// Format renders the frontmatter block plus body back into a full document.
func Format(fm Frontmatter, body string) string {
	var b strings.Builder
	b.WriteString(frontmatterDelim + "\n")
	fmt.Fprintf(&b, "id: %s\n", fm.ID)
	if fm.Branch != "" {
		fmt.Fprintf(&b, "branch: %s\n", fm.Branch)
	}
	if fm.BaseCommit != "" {
		fmt.Fprintf(&b, "base_commit: %s\n", fm.BaseCommit)
	}
	fmt.Fprintf(&b, "started: %s\n", fm.Started.Format(time.RFC3339))
	if fm.Ended != nil {
		fmt.Fprintf(&b, "ended: %s\n", fm.Ended.Format(time.RFC3339))
	}
	if len(fm.Tags) > 0 {
		fmt.Fprintf(&b, "tags: [%s]\n", strings.Join(fm.Tags, ", "))
	}
	if fm.SkipKnowledge {
		b.WriteString("skip_knowledge: true\n")
	}
	b.WriteString(frontmatterDelim + "\n")
	if body != "" {
		b.WriteString("\n")
		b.WriteString(body)
	}
	return b.String()
}

// mergeTags appends tags into existing preserving order and deduplicating.
// Idempotent: mergeTags(a, mergeTags(a, b)) == mergeTags(a, b).
func mergeTags(existing, add []string) []string {
	seen := make(map[string]bool, len(existing))
	out := make([]string, 0, len(existing)+len(add))
	for _, t := range existing {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, t := range add {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
