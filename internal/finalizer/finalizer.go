package finalizer

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ghostctl/ghost/internal/comod"
	"github.com/ghostctl/ghost/internal/config"
	"github.com/ghostctl/ghost/internal/knowledge"
	"github.com/ghostctl/ghost/internal/paths"
	"github.com/ghostctl/ghost/internal/redact"
	"github.com/ghostctl/ghost/internal/scm"
	"github.com/ghostctl/ghost/internal/search"
	"github.com/ghostctl/ghost/internal/session"
	"github.com/ghostctl/ghost/internal/summarize"
	"github.com/ghostctl/ghost/internal/sync"
)

var modifiedLinePattern = regexp.MustCompile(`(?m)^- Modified: (.+)$`)

// Run executes the nine-step best-effort pipeline (spec §4.8) against an
// already-completed transcript. Every step is independently recovered
// and logged to .background.log; no step blocks or retries, and nothing
// here can make the transcript itself any less durable than it already
// is in completed/.
func Run(ctx context.Context, repoRoot, transcriptPath, internalID string) error {
	log := newBackgroundLogger(repoRoot)

	if err := writePIDFile(repoRoot); err == nil {
		defer removePIDFile(repoRoot)
	}

	content, err := os.ReadFile(transcriptPath)
	if err != nil {
		log.logf("read transcript: error: %v", err)
		return err
	}
	fm, body := session.Split(string(content))
	modifiedFiles := extractModifiedFiles(body)

	var summaryOut string
	skipExtraction := false

	log.step("summarize", func() error {
		engine := summarize.Engine{}
		out, err := engine.Summarize(ctx, string(content))
		if err != nil {
			skipExtraction = true
			return err
		}
		summaryOut = out
		return nil
	})

	var doc summarize.Document
	skipKnowledge := false
	if !skipExtraction {
		log.step("parse-sections", func() error {
			doc = summarize.Parse(summaryOut)
			if !doc.IsValid() {
				skipExtraction = true
				return fmt.Errorf("summary missing required sections")
			}
			skipKnowledge = doc.SkipKnowledge()
			if skipKnowledge {
				if err := setSkipKnowledge(transcriptPath, fm, body); err != nil {
					return err
				}
			}
			if openItems, ok := doc.Sections["Open Items"]; ok && !summarize.IsNone(openItems) {
				if err := appendOpenItems(transcriptPath, openItems); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if !skipExtraction && !skipKnowledge {
		log.step("apply-tags", func() error {
			return knowledge.AddTags(repoRoot, internalID, doc.Tags())
		})

		log.step("write-decisions-and-mistakes", func() error {
			return writeKnowledgeEntries(repoRoot, doc, fm, internalID, modifiedFiles)
		})
	}

	log.step("auto-mistake", func() error {
		return applyAutoMistakes(repoRoot, body, fm, internalID)
	})

	log.step("deep-redaction", func() error {
		return deepRedact(transcriptPath)
	})

	log.step("attach-note", func() error {
		return attachNote(ctx, repoRoot, content)
	})

	log.step("index", func() error {
		return search.Adapter{}.Index(ctx, repoRoot, paths.Abs(repoRoot, paths.CompletedDir))
	})

	log.step("sync", func() error {
		return syncKnowledge(ctx, repoRoot)
	})

	return nil
}

func extractModifiedFiles(body string) []string {
	var files []string
	seen := map[string]bool{}
	for _, m := range modifiedLinePattern.FindAllStringSubmatch(body, -1) {
		f := strings.TrimSpace(m[1])
		if f != "" && !seen[f] {
			seen[f] = true
			files = append(files, f)
		}
	}
	if len(files) > 5 {
		files = files[:5]
	}
	return files
}

func setSkipKnowledge(transcriptPath string, fm session.Frontmatter, body string) error {
	fm.SkipKnowledge = true
	return os.WriteFile(transcriptPath, []byte(session.Format(fm, body)), 0o600)
}

// appendOpenItems records the extractor's Open Items section directly in
// the completed transcript, under its own "## Open Items" heading, so a
// later SessionStart on the same branch can find it with a plain
// summarize.Parse of the transcript body — no separate side-channel file.
func appendOpenItems(transcriptPath, openItems string) error {
	content, err := os.ReadFile(transcriptPath)
	if err != nil {
		return err
	}
	fm, body := session.Split(string(content))
	body = strings.TrimRight(body, "\n") + "\n\n## Open Items\n" + strings.TrimSpace(openItems) + "\n"
	return os.WriteFile(transcriptPath, []byte(session.Format(fm, body)), 0o600)
}

func writeKnowledgeEntries(repoRoot string, doc summarize.Document, fm session.Frontmatter, internalID string, modifiedFiles []string) error {
	date := paths.DateFromSessionID(internalID)

	write := func(sectionName string, appendEntry func(knowledge.Entry) error) error {
		for _, block := range summarize.Blocks(doc.Sections[sectionName]) {
			title, description := summarize.TitleAndDescription(block.Text)
			if knowledge.IsJunkTitle(title) {
				continue
			}
			files := block.Files
			if len(files) == 0 {
				files = modifiedFiles
			}
			entry := knowledge.Entry{
				Title:       title,
				Description: description,
				SessionID:   internalID,
				CommitSHA:   fm.BaseCommit,
				Files:       files,
				Area:        knowledge.DeriveArea(files),
				Date:        date,
				Tried:       block.Tried,
				Rule:        block.Rule,
			}
			if err := appendEntry(entry); err != nil {
				return err
			}
		}
		return nil
	}

	if err := write("Decisions", func(e knowledge.Entry) error { return knowledge.AppendDecision(repoRoot, e) }); err != nil {
		return err
	}
	return write("Mistakes", func(e knowledge.Entry) error { return knowledge.AppendMistake(repoRoot, e) })
}

func applyAutoMistakes(repoRoot, body string, fm session.Frontmatter, internalID string) error {
	corrected := comod.Corrections(body)
	if len(corrected) == 0 {
		return nil
	}
	date := paths.DateFromSessionID(internalID)
	for _, p := range corrected {
		files := []string{p}
		entry := knowledge.Entry{
			Title:       "Repeated correction on " + p,
			Description: "This file was modified, then modified again in an adjacent turn at least twice in one session — likely an approach that needed rework.",
			SessionID:   internalID,
			CommitSHA:   fm.BaseCommit,
			Files:       files,
			Area:        knowledge.DeriveArea(files),
			Date:        date,
		}
		if err := knowledge.AppendMistake(repoRoot, entry); err != nil {
			return err
		}
	}
	return nil
}

func deepRedact(transcriptPath string) error {
	data, err := os.ReadFile(transcriptPath)
	if err != nil {
		return err
	}
	redacted := redact.Bytes(data)
	if string(redacted) == string(data) {
		return nil
	}
	return os.WriteFile(transcriptPath, redacted, 0o600)
}

func attachNote(ctx context.Context, repoRoot string, content []byte) error {
	adapter := scm.Open(repoRoot)
	head, ok, err := adapter.HEAD()
	if err != nil || !ok {
		return err
	}
	return adapter.AddNote(ctx, head, content)
}

func syncKnowledge(ctx context.Context, repoRoot string) error {
	cfg, err := config.Load(repoRoot)
	if err != nil {
		return err
	}
	if err := sync.Init(ctx, repoRoot); err != nil {
		return err
	}
	interval := time.Duration(cfg.SyncIntervalSeconds) * time.Second
	if sync.ShouldPull(repoRoot, interval) {
		_ = sync.Pull(ctx, repoRoot)
	}
	return sync.Push(ctx, repoRoot)
}

func writePIDFile(repoRoot string) error {
	return os.WriteFile(paths.Abs(repoRoot, paths.BackgroundPIDFile), []byte(strconv.Itoa(os.Getpid())), 0o600)
}

func removePIDFile(repoRoot string) {
	_ = os.Remove(paths.Abs(repoRoot, paths.BackgroundPIDFile))
}
