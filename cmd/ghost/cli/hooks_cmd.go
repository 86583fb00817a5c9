package cli

import (
	"context"
	"fmt"

	"github.com/ghostctl/ghost/internal/finalizer"
	"github.com/ghostctl/ghost/internal/hooks"
	"github.com/spf13/cobra"
)

// hookCommands are the seven recognized hook event names, each wired
// directly to hooks.Run. Hooks always exit 0 (spec §6/§7): any error
// hooks.Run returns here is printed to stderr for diagnosability but
// never turned into a non-zero exit, since the contract forbids failing
// the host agent's turn.
var hookCommands = []string{
	hooks.SessionStart,
	hooks.SessionEnd,
	hooks.Prompt,
	hooks.Stop,
	hooks.PostWrite,
	hooks.PostTask,
	hooks.Checkpoint,
}

func newHookCmd(name string) *cobra.Command {
	return &cobra.Command{
		Use:    name,
		Hidden: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := hooks.Run(name, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
			}
			return nil
		},
	}
}

// newFinalizeCmd is the hidden re-entry point finalizer.Spawn invokes:
// "ghost __finalize <repoRoot> <transcriptPath> <internalID>". It is the
// only hook-adjacent command whose errors actually propagate to the exit
// code, since nothing is waiting on its stdout/stderr — a non-zero exit
// here only affects the detached finalizer subprocess's own exit status.
func newFinalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:    finalizer.FinalizeSubcommand + " <repoRoot> <transcriptPath> <internalID>",
		Hidden: true,
		Args:   cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return finalizer.Run(context.Background(), args[0], args[1], args[2])
		},
	}
}
