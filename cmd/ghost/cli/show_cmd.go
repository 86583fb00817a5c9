package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/ghostctl/ghost/internal/paths"
	"github.com/ghostctl/ghost/internal/scm"
	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <commit>",
		Short: "Print the session note attached to a commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, args[0])
		},
	}
}

func runShow(cmd *cobra.Command, commit string) error {
	root, err := paths.RepoRoot()
	if err != nil {
		return errors.New("not a git repository")
	}

	content, ok, err := scm.Open(root).ShowNote(context.Background(), commit)
	if err != nil {
		return fmt.Errorf("read note: %w", err)
	}
	if !ok {
		return fmt.Errorf("no session note attached to %s", commit)
	}

	fmt.Fprintln(cmd.OutOrStdout(), content)
	return nil
}
