package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ghostctl/ghost/internal/knowledge"
	"github.com/ghostctl/ghost/internal/paths"
	"github.com/spf13/cobra"
)

func newMistakeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mistake <text>",
		Short: "Manually record a mistake entry",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMistake(cmd, strings.Join(args, " "))
		},
	}
}

func runMistake(cmd *cobra.Command, text string) error {
	root, err := paths.RepoRoot()
	if err != nil {
		return errors.New("not a git repository")
	}

	title, description := splitMistakeText(text)
	var sessionID, commit string
	if current, err := paths.ReadCurrentSession(root); err == nil {
		sessionID = current
	}

	entry := knowledge.Entry{
		Title:       title,
		Description: description,
		SessionID:   sessionID,
		CommitSHA:   commit,
		Date:        paths.DateFromSessionID(sessionID),
		Area:        "general",
	}

	if err := knowledge.AppendMistake(root, entry); err != nil {
		return fmt.Errorf("record mistake: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "recorded: %s\n", title)
	return nil
}

// splitMistakeText takes the free-text argument to `ghost mistake` and
// splits it into a short title and the rest as description, the same
// shape knowledge.Entry expects from extracted blocks.
func splitMistakeText(text string) (title, description string) {
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, ". "); idx >= 0 && idx < 80 {
		return text[:idx], strings.TrimSpace(text[idx+2:])
	}
	if len(text) <= 80 {
		return text, ""
	}
	return text[:80], text[80:]
}
