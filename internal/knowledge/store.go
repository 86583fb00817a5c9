package knowledge

import (
	"os"
	"strings"

	"github.com/ghostctl/ghost/internal/paths"
)

// LoadDecisions reads and parses decisions.md, tolerating a missing file.
func LoadDecisions(repoRoot string) ([]Entry, error) {
	return loadEntries(repoRoot, paths.DecisionsFile)
}

// LoadMistakes reads and parses mistakes.md, tolerating a missing file.
func LoadMistakes(repoRoot string) ([]Entry, error) {
	return loadEntries(repoRoot, paths.MistakesFile)
}

func loadEntries(repoRoot, rel string) ([]Entry, error) {
	data, err := os.ReadFile(paths.Abs(repoRoot, rel))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ParseEntries(string(data)), nil
}

// AppendDecision appends a structured decision entry to decisions.md,
// creating the file and its parent directory if necessary.
func AppendDecision(repoRoot string, e Entry) error {
	return appendEntry(repoRoot, paths.DecisionsFile, e)
}

// AppendMistake appends a structured mistake entry to mistakes.md.
func AppendMistake(repoRoot string, e Entry) error {
	return appendEntry(repoRoot, paths.MistakesFile, e)
}

func appendEntry(repoRoot, rel string, e Entry) error {
	if IsJunkTitle(e.Title) {
		return nil
	}
	if e.Area == "" {
		e.Area = DeriveArea(e.Files)
	}

	abs := paths.Abs(repoRoot, rel)
	if err := os.MkdirAll(dirOf(abs), 0o750); err != nil {
		return err
	}

	existing, err := os.ReadFile(abs)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	content := string(existing)
	if content != "" && !strings.HasSuffix(content, "\n\n") {
		if !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		content += "\n"
	}
	content += FormatEntry(e)
	return os.WriteFile(abs, []byte(content), 0o600)
}

func dirOf(p string) string {
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return "."
	}
	return p[:i]
}

// AppendKnowledge appends freeform text to knowledge.md, the one knowledge
// file without structured entries (spec §4.4/§4.10: knowledge.md merges
// local-wins-unless-empty rather than by structured-entry dedup).
func AppendKnowledge(repoRoot, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	abs := paths.Abs(repoRoot, paths.KnowledgeFile)
	if err := os.MkdirAll(dirOf(abs), 0o750); err != nil {
		return err
	}
	existing, err := os.ReadFile(abs)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	content := string(existing)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += text + "\n"
	return os.WriteFile(abs, []byte(content), 0o600)
}
