package hooks

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ghostctl/ghost/internal/comod"
	"github.com/ghostctl/ghost/internal/knowledge"
	"github.com/ghostctl/ghost/internal/paths"
	"github.com/ghostctl/ghost/internal/scm"
	"github.com/ghostctl/ghost/internal/session"
	"github.com/ghostctl/ghost/internal/summarize"
)

// rankSize is how many mistakes and decisions each get in the injected
// context, mirroring the Relevance Scorer's usual top-k.
const rankSize = 5

// neighbourSize caps the co-modified-file review-candidate list.
const neighbourSize = 5

// continuityWindow bounds how recent a prior session's open items must be
// to surface in the continuity paragraph (spec §4.7: "within 24 hours").
const continuityWindow = 24 * time.Hour

// BuildContext is the exported form of buildContext, used by `ghost resume`
// to reproduce the same continuity block outside of a SessionStart hook.
// There's no session of its own being started, so nothing is excluded from
// the concurrent-session count.
func BuildContext(ctx context.Context, repoRoot string) string {
	return buildContext(ctx, repoRoot, "")
}

// buildContext assembles the SessionStart output block: an optional
// continuity paragraph, a concurrent-session warning, top-scored mistakes
// and decisions, a co-modified review-candidate list, and a standing
// briefing. Every sub-section is built independently and dropped silently
// on error, per spec §4.7 — a partial context beats a hook that fails the
// host agent's turn. selfID, when non-empty, names the session just
// created by this SessionStart call, excluded from its own concurrency
// count.
func buildContext(ctx context.Context, repoRoot, selfID string) string {
	var b strings.Builder

	if p := continuityParagraph(repoRoot); p != "" {
		b.WriteString(p)
		b.WriteString("\n\n")
	}

	if s := concurrentSessionNote(repoRoot, selfID); s != "" {
		b.WriteString(s)
		b.WriteString("\n\n")
	}

	if s := rankedMistakesAndDecisions(ctx, repoRoot); s != "" {
		b.WriteString(s)
		b.WriteString("\n")
	}

	if s := neighbourSection(repoRoot); s != "" {
		b.WriteString(s)
		b.WriteString("\n")
	}

	b.WriteString(standingBriefing(repoRoot))

	return b.String()
}

const defaultBriefing = "Remember to record decisions and mistakes as they happen with `ghost decisions` / `ghost mistake`, not at the end of the session.\n"

// standingBriefing returns the text `ghost brief` most recently set, or
// defaultBriefing if nothing has been set.
func standingBriefing(repoRoot string) string {
	data, err := os.ReadFile(paths.Abs(repoRoot, paths.BriefFile))
	if err != nil || strings.TrimSpace(string(data)) == "" {
		return defaultBriefing
	}
	return strings.TrimSpace(string(data)) + "\n"
}

// continuityParagraph looks for the most recent completed session on the
// current branch, ended within continuityWindow, whose transcript carries
// a non-"none" Open Items section, and renders a short reminder of it.
func continuityParagraph(repoRoot string) string {
	adapter := scm.Open(repoRoot)
	branch, ok, err := adapter.CurrentBranch()
	if err != nil || !ok {
		return ""
	}

	dir := paths.Abs(repoRoot, paths.CompletedDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}

	type candidate struct {
		ended     time.Time
		openItems string
	}
	var best *candidate

	now := time.Now()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		data, err := os.ReadFile(dir + "/" + e.Name())
		if err != nil {
			continue
		}
		fm, body := session.Split(string(data))
		if fm.Branch != branch || fm.Ended == nil {
			continue
		}
		if now.Sub(*fm.Ended) > continuityWindow {
			continue
		}
		doc := summarize.Parse(body)
		openItems, ok := doc.Sections["Open Items"]
		if !ok || summarize.IsNone(openItems) {
			continue
		}
		if best == nil || fm.Ended.After(best.ended) {
			best = &candidate{ended: *fm.Ended, openItems: openItems}
		}
	}

	if best == nil {
		return ""
	}
	return "## Continuing from last session\n" + strings.TrimSpace(best.openItems)
}

// concurrentSessionNote warns when other sessions are active in this repo
// at the same time as this one, generalizing the teacher's
// CountOtherActiveSessionsWithCheckpoints (which counted other live
// shadow-commit branches) to ghost's plain-transcript model: every live
// session has exactly one file under .ghost/active, so the count is just
// that directory's size, minus selfID's own entry if present.
func concurrentSessionNote(repoRoot, selfID string) string {
	dir := paths.Abs(repoRoot, paths.ActiveDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}

	var others int
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".md")
		if id == selfID {
			continue
		}
		others++
	}
	if others == 0 {
		return ""
	}

	noun := "session"
	if others > 1 {
		noun = "sessions"
	}
	return fmt.Sprintf("## Concurrent sessions\n%d other active %s detected in this repo. Expect interleaved changes in the working tree.", others, noun)
}

// rankedMistakesAndDecisions loads mistakes.md and decisions.md, ranks
// each against the current worktree's modified-file set via comod.Rank,
// and formats the top rankSize of each with rule precedence.
func rankedMistakesAndDecisions(ctx context.Context, repoRoot string) string {
	f := currentFileSet(repoRoot)
	g, err := comod.LoadOrBuild(repoRoot)
	if err != nil {
		g = comod.Graph{}
	}
	neighbours := comod.Neighbours(g, f, neighbourSize)
	area := knowledge.DeriveArea(f)
	now := time.Now()
	adapter := scm.Open(repoRoot)

	var b strings.Builder

	if mistakes, err := knowledge.LoadMistakes(repoRoot); err == nil {
		ranked := comod.Rank(ctx, mistakes, f, neighbours, area, now, adapter, rankSize)
		b.WriteString(comod.FormatEntries("Relevant mistakes", ranked))
	}

	if decisions, err := knowledge.LoadDecisions(repoRoot); err == nil {
		ranked := comod.Rank(ctx, decisions, f, neighbours, area, now, adapter, rankSize)
		b.WriteString(comod.FormatEntries("Relevant decisions", ranked))
	}

	return b.String()
}

// neighbourSection flags co-modified files not in the current change set
// as review candidates, using the same neighbour list the ranker uses for
// scoring (spec §4.7's "list of co-modified-neighbour files").
func neighbourSection(repoRoot string) string {
	f := currentFileSet(repoRoot)
	if len(f) == 0 {
		return ""
	}
	g, err := comod.LoadOrBuild(repoRoot)
	if err != nil {
		return ""
	}
	neighbours := comod.Neighbours(g, f, neighbourSize)
	if len(neighbours) == 0 {
		return ""
	}
	sort.Strings(neighbours)

	var b strings.Builder
	b.WriteString("## Review candidates\n")
	b.WriteString("These files are usually modified alongside your current changes:\n")
	for _, n := range neighbours {
		b.WriteString("- " + n + "\n")
	}
	return b.String()
}

// currentFileSet returns the worktree's uncommitted modified paths via
// `git diff --stat`, falling back to an empty set on any error — the
// ranker and neighbour lookup both degrade to their no-file-context
// behaviour when this is empty.
func currentFileSet(repoRoot string) []string {
	adapter := scm.Open(repoRoot)
	stat, ok, err := adapter.DiffStat(context.Background())
	if err != nil || !ok {
		return nil
	}
	return parseDiffStatPaths(stat)
}

func parseDiffStatPaths(stat string) []string {
	var files []string
	for _, line := range strings.Split(stat, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "file") && strings.Contains(line, "changed") {
			continue
		}
		idx := strings.Index(line, "|")
		if idx < 0 {
			continue
		}
		path := strings.TrimSpace(line[:idx])
		if path != "" {
			files = append(files, path)
		}
	}
	return files
}
