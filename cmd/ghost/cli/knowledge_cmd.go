package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ghostctl/ghost/internal/knowledge"
	"github.com/ghostctl/ghost/internal/paths"
	"github.com/ghostctl/ghost/internal/scm"
	"github.com/ghostctl/ghost/internal/session"
	"github.com/ghostctl/ghost/internal/summarize"
	"github.com/ghostctl/ghost/internal/sync"
	"github.com/spf13/cobra"
)

func newKnowledgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "knowledge",
		Short: "Build, inject, print, or diff the knowledge store",
	}

	cmd.AddCommand(newKnowledgeBuildCmd())
	cmd.AddCommand(newKnowledgeInjectCmd())
	cmd.AddCommand(newKnowledgeShowCmd())
	cmd.AddCommand(newKnowledgeDiffCmd())
	return cmd
}

func newKnowledgeBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Re-run knowledge extraction over every completed session",
		Long: `Re-summarizes every transcript under .ghost/completed and appends any
decisions, mistakes, and knowledge notes missing from the store. Sessions
already marked skip-knowledge are left alone.

Useful after a fresh --genesis import, or to repair the store after a
background finalizer failure.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runKnowledgeBuild(cmd)
		},
	}
}

func runKnowledgeBuild(cmd *cobra.Command) error {
	root, err := paths.RepoRoot()
	if err != nil {
		return errors.New("not a git repository")
	}

	dir := paths.Abs(root, paths.CompletedDir)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		fmt.Fprintln(cmd.OutOrStdout(), "no completed sessions.")
		return nil
	}
	if err != nil {
		return err
	}

	ctx := context.Background()
	engine := summarize.Engine{}
	w := cmd.OutOrStdout()

	built := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".md")
		transcriptPath := paths.CompletedSessionPath(root, id)

		content, err := os.ReadFile(transcriptPath)
		if err != nil {
			fmt.Fprintf(w, "%s: read failed: %v\n", id, err)
			continue
		}
		fm, _ := session.Split(string(content))
		if fm.SkipKnowledge {
			continue
		}

		out, err := engine.Summarize(ctx, string(content))
		if err != nil {
			fmt.Fprintf(w, "%s: summarize failed: %v\n", id, err)
			continue
		}
		doc := summarize.Parse(out)
		if !doc.IsValid() || doc.SkipKnowledge() {
			continue
		}

		if err := knowledge.AddTags(root, id, doc.Tags()); err != nil {
			fmt.Fprintf(w, "%s: tag failed: %v\n", id, err)
		}
		if err := buildEntries(root, doc, fm, id); err != nil {
			fmt.Fprintf(w, "%s: write entries failed: %v\n", id, err)
			continue
		}

		built++
	}

	fmt.Fprintf(w, "rebuilt knowledge from %d session(s).\n", built)
	return nil
}

func buildEntries(root string, doc summarize.Document, fm session.Frontmatter, id string) error {
	date := paths.DateFromSessionID(id)

	write := func(sectionName string, appendEntry func(knowledge.Entry) error) error {
		for _, block := range summarize.Blocks(doc.Sections[sectionName]) {
			title, description := summarize.TitleAndDescription(block.Text)
			if knowledge.IsJunkTitle(title) {
				continue
			}
			entry := knowledge.Entry{
				Title:       title,
				Description: description,
				SessionID:   id,
				CommitSHA:   fm.BaseCommit,
				Files:       block.Files,
				Area:        knowledge.DeriveArea(block.Files),
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

	if err := write("Decisions", func(e knowledge.Entry) error { return knowledge.AppendDecision(root, e) }); err != nil {
		return err
	}
	if err := write("Mistakes", func(e knowledge.Entry) error { return knowledge.AppendMistake(root, e) }); err != nil {
		return err
	}
	if k, ok := doc.Sections["Knowledge"]; ok && !summarize.IsNone(k) {
		if err := knowledge.AppendKnowledge(root, k); err != nil {
			return err
		}
	}
	return nil
}

const (
	injectMarkerStart = "<!-- ghost:knowledge:start -->"
	injectMarkerEnd   = "<!-- ghost:knowledge:end -->"
)

func newKnowledgeInjectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inject",
		Short: "Write knowledge.md into the agent-visible context file",
		Long: `Appends (or replaces, if already present) a marked block containing
knowledge.md's contents into ` + paths.InjectedContextFile + ` at the repository
root, so an agent reading that file at session start picks it up without
needing ghost's own SessionStart hook.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runKnowledgeInject(cmd)
		},
	}
}

func runKnowledgeInject(cmd *cobra.Command) error {
	root, err := paths.RepoRoot()
	if err != nil {
		return errors.New("not a git repository")
	}

	data, err := os.ReadFile(paths.Abs(root, paths.KnowledgeFile))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read knowledge.md: %w", err)
	}
	knowledgeText := strings.TrimSpace(string(data))

	block := injectMarkerStart + "\n" + knowledgeText + "\n" + injectMarkerEnd

	contextPath := paths.Abs(root, paths.InjectedContextFile)
	existing, err := os.ReadFile(contextPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read %s: %w", paths.InjectedContextFile, err)
	}

	updated := spliceInjectedBlock(string(existing), block)
	if err := os.WriteFile(contextPath, []byte(updated), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", paths.InjectedContextFile, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "injected knowledge into %s.\n", paths.InjectedContextFile)
	return nil
}

// spliceInjectedBlock replaces an existing marked block in place, or
// appends a new one, so repeated injection is idempotent rather than
// accumulating duplicate blocks.
func spliceInjectedBlock(existing, block string) string {
	start := strings.Index(existing, injectMarkerStart)
	end := strings.Index(existing, injectMarkerEnd)
	if start >= 0 && end > start {
		return existing[:start] + block + existing[end+len(injectMarkerEnd):]
	}
	if existing == "" {
		return block + "\n"
	}
	return strings.TrimRight(existing, "\n") + "\n\n" + block + "\n"
}

func newKnowledgeShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the knowledge store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runKnowledgeShow(cmd)
		},
	}
}

func runKnowledgeShow(cmd *cobra.Command) error {
	root, err := paths.RepoRoot()
	if err != nil {
		return errors.New("not a git repository")
	}

	w := cmd.OutOrStdout()

	data, err := os.ReadFile(paths.Abs(root, paths.KnowledgeFile))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if len(data) > 0 {
		fmt.Fprintln(w, "## knowledge.md")
		fmt.Fprintln(w, strings.TrimSpace(string(data)))
		fmt.Fprintln(w)
	}

	decisions, err := knowledge.LoadDecisions(root)
	if err != nil {
		return err
	}
	printEntries(w, "decisions.md", decisions)

	mistakes, err := knowledge.LoadMistakes(root)
	if err != nil {
		return err
	}
	printEntries(w, "mistakes.md", mistakes)

	return nil
}

func printEntries(w io.Writer, heading string, entries []knowledge.Entry) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(w, "## %s\n", heading)
	for _, e := range entries {
		fmt.Fprint(w, "### "+e.Title+"\n")
		if e.Description != "" {
			fmt.Fprintln(w, e.Description)
		}
		fmt.Fprintln(w)
	}
}

func newKnowledgeDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff",
		Short: "Diff local knowledge files against the shared ghost/knowledge branch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runKnowledgeDiff(cmd)
		},
	}
}

func runKnowledgeDiff(cmd *cobra.Command) error {
	root, err := paths.RepoRoot()
	if err != nil {
		return errors.New("not a git repository")
	}

	adapter := scm.Open(root)
	w := cmd.OutOrStdout()

	files := map[string]string{
		sync.KnowledgeFile: paths.KnowledgeFile,
		sync.MistakesFile:  paths.MistakesFile,
		sync.DecisionsFile: paths.DecisionsFile,
		sync.TagsFile:      paths.TagsFile,
	}

	anyDiff := false
	for branchName, localRel := range files {
		localData, err := os.ReadFile(paths.Abs(root, localRel))
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		remoteData, ok, err := adapter.ReadBlob(sync.Branch, branchName)
		if err != nil {
			return fmt.Errorf("read %s from %s: %w", branchName, sync.Branch, err)
		}
		if !ok {
			remoteData = nil
		}

		diff := sync.PreviewDiff(string(remoteData), string(localData))
		if diff == "" {
			continue
		}
		anyDiff = true
		fmt.Fprintf(w, "--- %s (%s)\n+++ %s (local)\n", branchName, sync.Branch, branchName)
		fmt.Fprint(w, diff)
		fmt.Fprintln(w)
	}

	if !anyDiff {
		fmt.Fprintln(w, "no differences.")
	}
	return nil
}
