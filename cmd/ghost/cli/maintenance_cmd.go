package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ghostctl/ghost/internal/paths"
	"github.com/ghostctl/ghost/internal/search"
	"github.com/ghostctl/ghost/internal/session"
	"github.com/ghostctl/ghost/internal/sync"
	"github.com/spf13/cobra"
)

func newReindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the external search engine's index over completed sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReindex(cmd)
		},
	}
}

func runReindex(cmd *cobra.Command) error {
	root, err := paths.RepoRoot()
	if err != nil {
		return errors.New("not a git repository")
	}

	if err := (search.Adapter{}).Index(context.Background(), root, paths.Abs(root, paths.CompletedDir)); err != nil {
		return fmt.Errorf("reindex: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "reindexed.")
	return nil
}

func newValidateCmd() *cobra.Command {
	var fix bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check session transcripts and the tag index for structural issues",
		Long: `Re-parses every session transcript's frontmatter and the tag index,
reporting anything that degraded silently (spec §7): a non-sequence
tags field, or a non-array value in tags.json.

Without -f, only reports. With -f, rewrites affected files to their
canonical form.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd, fix)
		},
	}

	cmd.Flags().BoolVarP(&fix, "fix", "f", false, "rewrite affected files")
	return cmd
}

func runValidate(cmd *cobra.Command, fix bool) error {
	root, err := paths.RepoRoot()
	if err != nil {
		return errors.New("not a git repository")
	}

	w := cmd.OutOrStdout()
	issues := 0

	for _, dir := range []string{paths.ActiveDir, paths.CompletedDir} {
		n, err := validateTranscripts(w, root, dir, fix)
		if err != nil {
			return err
		}
		issues += n
	}

	n, err := validateTagIndex(w, root, fix)
	if err != nil {
		return err
	}
	issues += n

	if issues == 0 {
		fmt.Fprintln(w, "no issues found.")
	} else if fix {
		fmt.Fprintf(w, "%d issue(s) fixed.\n", issues)
	} else {
		fmt.Fprintf(w, "%d issue(s) found; rerun with -f to fix.\n", issues)
	}
	return nil
}

// validateTranscripts round-trips every transcript under dir through
// Split/Format, which always re-renders tags as a canonical sequence
// regardless of how loosely the original was written. A transcript whose
// round-trip changes the bytes had a structural issue.
func validateTranscripts(w io.Writer, root, dir string, fix bool) (int, error) {
	entries, err := os.ReadDir(paths.Abs(root, dir))
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	issues := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		path := paths.Abs(root, dir) + "/" + e.Name()
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		fm, body := session.Split(string(data))
		canonical := session.Format(fm, body)
		if canonical == string(data) {
			continue
		}
		issues++
		fmt.Fprintf(w, "%s: non-canonical frontmatter\n", path)
		if fix {
			if err := os.WriteFile(path, []byte(canonical), 0o600); err != nil {
				return issues, err
			}
		}
	}
	return issues, nil
}

// validateTagIndex checks tags.json key-by-key: a whole-file unmarshal
// failure silently empties the entire index (knowledge.SessionsForTag's
// graceful-degradation contract), so this reads the raw JSON object and
// validates each value independently, dropping only the bad ones.
func validateTagIndex(w io.Writer, root string, fix bool) (int, error) {
	path := paths.Abs(root, paths.TagsFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		fmt.Fprintf(w, "%s: not a JSON object, cannot repair automatically\n", path)
		return 1, nil
	}

	issues := 0
	clean := map[string][]string{}
	for tag, value := range raw {
		var ids []string
		if err := json.Unmarshal(value, &ids); err != nil {
			issues++
			fmt.Fprintf(w, "%s: tag %q has a non-array value, dropping\n", path, tag)
			continue
		}
		clean[tag] = ids
	}

	if issues > 0 && fix {
		out, err := json.MarshalIndent(clean, "", "  ")
		if err != nil {
			return issues, err
		}
		if err := os.WriteFile(path, out, 0o600); err != nil {
			return issues, err
		}
	}
	return issues, nil
}

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Repair this repository's ghost installation against the current binary",
		Long: `Re-applies enable's wiring steps idempotently: hook config, the
post-commit script, and the knowledge branch. Useful after upgrading
the ghost binary, or if hook config was hand-edited out from under it.

This never reaches out to any external service: ghost has no update
server, and checking one is out of scope.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUpdate(cmd)
		},
	}
}

func runUpdate(cmd *cobra.Command) error {
	root, err := paths.RepoRoot()
	if err != nil {
		return errors.New("not a git repository")
	}

	if err := writeGhostHookConfig(root); err != nil {
		return fmt.Errorf("refresh hook config: %w", err)
	}
	if err := installPostCommitHook(root); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: could not refresh post-commit hook: %v\n", err)
	}
	if err := sync.Init(context.Background(), root); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: could not verify knowledge branch: %v\n", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "ghost %s installation refreshed.\n", Version)
	return nil
}
