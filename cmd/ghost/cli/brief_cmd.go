package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ghostctl/ghost/internal/paths"
	"github.com/spf13/cobra"
)

func newBriefCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "brief <text>",
		Short: "Set the standing briefing injected into every session's continuity block",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrief(cmd, strings.Join(args, " "))
		},
	}
}

func runBrief(cmd *cobra.Command, text string) error {
	root, err := paths.RepoRoot()
	if err != nil {
		return errors.New("not a git repository")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("brief text must not be empty")
	}

	if err := os.MkdirAll(dirOf(paths.Abs(root, paths.BriefFile)), 0o750); err != nil {
		return fmt.Errorf("write brief: %w", err)
	}
	if err := os.WriteFile(paths.Abs(root, paths.BriefFile), []byte(text+"\n"), 0o600); err != nil {
		return fmt.Errorf("write brief: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "standing brief set.")
	return nil
}
