package cli

import (
	"errors"
	"fmt"

	"github.com/ghostctl/ghost/internal/knowledge"
	"github.com/ghostctl/ghost/internal/paths"
	"github.com/spf13/cobra"
)

func newDecisionsCmd() *cobra.Command {
	var tag string

	cmd := &cobra.Command{
		Use:   "decisions",
		Short: "List recorded decisions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDecisions(cmd, tag)
		},
	}

	cmd.Flags().StringVar(&tag, "tag", "", "restrict to sessions carrying this tag")
	return cmd
}

func runDecisions(cmd *cobra.Command, tag string) error {
	root, err := paths.RepoRoot()
	if err != nil {
		return errors.New("not a git repository")
	}

	entries, err := knowledge.LoadDecisions(root)
	if err != nil {
		return fmt.Errorf("load decisions: %w", err)
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

	w := cmd.OutOrStdout()
	shown := 0
	for _, e := range entries {
		if allowed != nil && !allowed[e.SessionID] {
			continue
		}
		fmt.Fprintf(w, "### %s\n", e.Title)
		if e.Description != "" {
			fmt.Fprintln(w, e.Description)
		}
		if e.Date != "" {
			fmt.Fprintf(w, "(%s", e.Date)
			if e.Area != "" {
				fmt.Fprintf(w, ", %s", e.Area)
			}
			fmt.Fprintln(w, ")")
		}
		fmt.Fprintln(w)
		shown++
	}

	if shown == 0 {
		fmt.Fprintln(w, "no decisions recorded.")
	}
	return nil
}
