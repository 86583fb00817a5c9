package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/ghostctl/ghost/internal/paths"
	"github.com/ghostctl/ghost/internal/scm"
	"github.com/ghostctl/ghost/internal/search"
	"github.com/spf13/cobra"
)

func newResetCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Wipe ghost's session directory, notes ref, and search collection",
		Long: `Removes .ghost/active and .ghost/completed, deletes the notes ref
sessions were attached to, and deletes the external search collection.

knowledge.md, mistakes.md, decisions.md, and tags.json are left in place:
they're shared history, not per-session state.

Without --force, prompts for confirmation.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReset(cmd, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation")
	return cmd
}

func runReset(cmd *cobra.Command, force bool) error {
	root, err := paths.RepoRoot()
	if err != nil {
		return errors.New("not a git repository")
	}

	if !force {
		var confirmed bool
		formErr := newAccessibleForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Wipe session data?").
					Description("Removes .ghost/active, .ghost/completed, the notes ref, and the search collection").
					Value(&confirmed),
			),
		).Run()
		if formErr != nil {
			if errors.Is(formErr, huh.ErrUserAborted) {
				return nil
			}
			return fmt.Errorf("confirmation prompt failed: %w", formErr)
		}
		if !confirmed {
			return nil
		}
	}

	for _, dir := range []string{paths.ActiveDir, paths.CompletedDir} {
		if err := os.RemoveAll(paths.Abs(root, dir)); err != nil {
			return fmt.Errorf("remove %s: %w", dir, err)
		}
	}

	ctx := context.Background()
	if err := scm.Open(root).DeleteNotesRef(ctx); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: could not delete notes ref: %v\n", err)
	}

	if err := (search.Adapter{}).DeleteCollection(ctx, root); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: could not delete search collection: %v\n", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "ghost reset.")
	return nil
}
