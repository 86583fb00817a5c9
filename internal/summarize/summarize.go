// Package summarize parses the structured markdown a summarization engine
// returns for a session transcript, and invokes that engine as a
// subprocess. The document shape is fixed (spec §4.9): top-level `##`
// sections named Intent, Changes, Knowledge, Decisions, Strategies,
// Mistakes, Open Items, Relevance, Tags.
package summarize

import (
	"regexp"
	"strings"
)

var sectionPattern = regexp.MustCompile(`(?m)^## (.+?)\s*$`)

// Document is a parsed summary markdown document, sections keyed by name
// exactly as they appear after "## ".
type Document struct {
	Sections map[string]string
}

// Parse splits content on "## " headings into a Document. Unknown
// section names are kept (and simply ignored by callers that only look
// at the ones they know).
func Parse(content string) Document {
	doc := Document{Sections: map[string]string{}}

	locs := sectionPattern.FindAllStringSubmatchIndex(content, -1)
	for i, loc := range locs {
		name := content[loc[2]:loc[3]]
		bodyStart := loc[1]
		bodyEnd := len(content)
		if i+1 < len(locs) {
			bodyEnd = locs[i+1][0]
		}
		doc.Sections[strings.TrimSpace(name)] = strings.TrimSpace(content[bodyStart:bodyEnd])
	}
	return doc
}

// IsValid reports whether the document has both an Intent and a Tags
// section, the minimum spec requires to treat it as a real summary
// rather than engine noise.
func (d Document) IsValid() bool {
	_, hasIntent := d.Sections["Intent"]
	_, hasTags := d.Sections["Tags"]
	return hasIntent && hasTags
}

// Tags comma-splits the Tags section, trimming whitespace and dropping
// empty or comment-prefixed ("#...") entries.
func (d Document) Tags() []string {
	raw, ok := d.Sections["Tags"]
	if !ok {
		return nil
	}
	var tags []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" || strings.HasPrefix(part, "#") {
			continue
		}
		tags = append(tags, part)
	}
	return tags
}

// SkipKnowledge reports whether the Relevance section is a bare "skip"
// verdict (case-insensitive), signalling the finalizer should bypass
// knowledge extraction entirely.
func (d Document) SkipKnowledge() bool {
	body, ok := d.Sections["Relevance"]
	if !ok {
		return false
	}
	return skipPattern.MatchString(body)
}

var skipPattern = regexp.MustCompile(`(?i)^\s*skip\s*$`)

// nonePattern matches a section body that reduces to "nothing of note",
// in any of the variants spec §4.9 enumerates.
var nonePattern = regexp.MustCompile(`(?i)^\s*(none|n/a|nothing|not applicable|no (significant|decisions|key|mistakes|errors|issues)[\w\s]*)\s*\.?\s*$`)

// IsNone reports whether a section's body is one of the "nothing to
// report" variants and should be skipped rather than parsed into blocks.
func IsNone(body string) bool {
	return nonePattern.MatchString(strings.TrimSpace(body))
}

// blockHeadingPattern finds "**..." lines, which start a new block within a
// Decisions/Mistakes/Strategies/Knowledge section.
var blockHeadingPattern = regexp.MustCompile(`(?m)^\*\*`)

// Block is one bold-colon-titled item extracted from a Decisions,
// Mistakes, Strategies, or Knowledge section, with its trailing
// Files:/Tried:/Rule: metadata lines parsed out.
type Block struct {
	Text  string
	Files []string
	Tried []string
	Rule  string
}

var (
	filesLinePattern = regexp.MustCompile(`(?im)^\s*Files:\s*(.+)$`)
	triedLinePattern = regexp.MustCompile(`(?im)^\s*Tried:\s*(.+)$`)
	ruleLinePattern  = regexp.MustCompile(`(?im)^\s*Rule:\s*(.+)$`)
)

// Blocks splits a section body on lines starting "**" into Blocks. A
// body that reduces to a "none" variant yields nil, signalling the
// caller should skip the section entirely.
func Blocks(body string) []Block {
	body = strings.TrimSpace(body)
	if body == "" || IsNone(body) {
		return nil
	}

	starts := blockHeadingPattern.FindAllStringIndex(body, -1)
	if len(starts) == 0 {
		return []Block{parseBlock(body)}
	}

	var blocks []Block
	for i, s := range starts {
		end := len(body)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		blocks = append(blocks, parseBlock(strings.TrimSpace(body[s[0]:end])))
	}
	return blocks
}

func parseBlock(text string) Block {
	var b Block
	if m := filesLinePattern.FindStringSubmatch(text); m != nil {
		b.Files = splitCSV(m[1])
		text = filesLinePattern.ReplaceAllString(text, "")
	}
	if m := triedLinePattern.FindStringSubmatch(text); m != nil {
		b.Tried = splitCSV(m[1])
		text = triedLinePattern.ReplaceAllString(text, "")
	}
	if m := ruleLinePattern.FindStringSubmatch(text); m != nil {
		b.Rule = strings.TrimSpace(m[1])
		text = ruleLinePattern.ReplaceAllString(text, "")
	}
	b.Text = strings.TrimSpace(text)
	return b
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

// TitleAndDescription splits a block's bold-colon form, "**Title**:
// description", into its two parts. If the block doesn't match that
// shape, the whole text is returned as the description with an empty
// title.
func TitleAndDescription(text string) (title, description string) {
	text = strings.TrimPrefix(strings.TrimSpace(text), "**")
	idx := strings.Index(text, "**")
	if idx < 0 {
		return "", strings.TrimSpace(text)
	}
	title = strings.TrimSpace(text[:idx])
	rest := strings.TrimSpace(text[idx+2:])
	rest = strings.TrimPrefix(rest, ":")
	return title, strings.TrimSpace(rest)
}
