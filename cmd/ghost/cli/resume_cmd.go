package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ghostctl/ghost/internal/hooks"
	"github.com/ghostctl/ghost/internal/paths"
	"github.com/spf13/cobra"
)

func newResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume [id]",
		Short: "Produce the continuity block for the current branch, or print a past session",
		Long: `Without an id, produces the same continuity block a SessionStart hook
would inject: open items from the last session on this branch, ranked
mistakes and decisions, review candidates, and the standing briefing.

With an id, prints that completed session's transcript in full, for
reviewing what it did before picking the work back up.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runResumeSession(cmd, args[0])
			}
			return runResumeContinuity(cmd)
		},
	}
}

func runResumeContinuity(cmd *cobra.Command) error {
	root, err := paths.RepoRoot()
	if err != nil {
		return errors.New("not a git repository")
	}

	out := hooks.BuildContext(context.Background(), root)
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}

func runResumeSession(cmd *cobra.Command, id string) error {
	root, err := paths.RepoRoot()
	if err != nil {
		return errors.New("not a git repository")
	}

	data, err := os.ReadFile(paths.CompletedSessionPath(root, id))
	if err != nil {
		return fmt.Errorf("no completed session %q", id)
	}

	fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(string(data), "\n"))
	return nil
}
