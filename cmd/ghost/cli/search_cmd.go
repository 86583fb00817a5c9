package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ghostctl/ghost/internal/knowledge"
	"github.com/ghostctl/ghost/internal/paths"
	"github.com/ghostctl/ghost/internal/search"
	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	var tag string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Query the external semantic-search engine over completed sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args[0], tag)
		},
	}

	cmd.Flags().StringVar(&tag, "tag", "", "restrict results to sessions carrying this tag")
	return cmd
}

func runSearch(cmd *cobra.Command, query, tag string) error {
	root, err := paths.RepoRoot()
	if err != nil {
		return errors.New("not a git repository")
	}

	var allowed map[string]bool
	if tag != "" {
		ids, err := knowledge.SessionsForTag(root, tag)
		if err != nil {
			return fmt.Errorf("load tag index: %w", err)
		}
		allowed = make(map[string]bool, len(ids))
		for _, id := range ids {
			allowed[id] = true
		}
	}

	results, err := (search.Adapter{}).Query(context.Background(), root, query)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	shown := 0
	for _, r := range results {
		if allowed != nil && !allowed[sessionIDFromPath(r.Path)] {
			continue
		}
		fmt.Fprintf(w, "%.3f  %s\n", r.Score, r.Path)
		if r.Snippet != "" {
			fmt.Fprintf(w, "      %s\n", r.Snippet)
		}
		shown++
	}
	if shown == 0 {
		fmt.Fprintln(w, "no results.")
	}
	return nil
}

func sessionIDFromPath(p string) string {
	return strings.TrimSuffix(filepath.Base(p), ".md")
}
