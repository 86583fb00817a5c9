package cli

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ghostctl/ghost/internal/knowledge"
	"github.com/ghostctl/ghost/internal/paths"
	"github.com/spf13/cobra"
)

func newTagCmd() *cobra.Command {
	var last bool

	cmd := &cobra.Command{
		Use:   "tag <id> <tags...>",
		Short: "Apply tags to a session",
		Long:  "Apply one or more tags to a session. Use --last to tag the most recently completed session instead of naming an id.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			tags := args[1:]
			if last {
				id = ""
				tags = args
			}
			return runTag(cmd, id, tags, last)
		},
	}

	cmd.Flags().BoolVar(&last, "last", false, "tag the most recently completed session")
	return cmd
}

func runTag(cmd *cobra.Command, id string, tags []string, last bool) error {
	root, err := paths.RepoRoot()
	if err != nil {
		return errors.New("not a git repository")
	}
	if len(tags) == 0 {
		return errors.New("no tags given")
	}

	if last {
		id, err = mostRecentCompletedSessionID(root)
		if err != nil {
			return err
		}
		if id == "" {
			return errors.New("no completed sessions")
		}
	}

	if err := knowledge.AddTags(root, id, tags); err != nil {
		return fmt.Errorf("tag %s: %w", id, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "tagged %s: %s\n", id, strings.Join(tags, ", "))
	return nil
}

func mostRecentCompletedSessionID(root string) (string, error) {
	entries, err := os.ReadDir(paths.Abs(root, paths.CompletedDir))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			ids = append(ids, strings.TrimSuffix(e.Name(), ".md"))
		}
	}
	if len(ids) == 0 {
		return "", nil
	}
	sort.Strings(ids)
	return ids[len(ids)-1], nil
}
