package cli

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ghostctl/ghost/internal/paths"
	"github.com/ghostctl/ghost/internal/session"
	"github.com/spf13/cobra"
)

// logLimit is the spec's "up to 20 most recent" cap.
const logLimit = 20

func newLogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "log",
		Short: "List the most recent completed sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLog(cmd)
		},
	}
}

func runLog(cmd *cobra.Command) error {
	root, err := paths.RepoRoot()
	if err != nil {
		return errors.New("not a git repository")
	}

	dir := paths.Abs(root, paths.CompletedDir)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		fmt.Fprintln(cmd.OutOrStdout(), "no completed sessions.")
		return nil
	}
	if err != nil {
		return err
	}

	var ids []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			ids = append(ids, strings.TrimSuffix(e.Name(), ".md"))
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	if len(ids) > logLimit {
		ids = ids[:logLimit]
	}

	w := cmd.OutOrStdout()
	for _, id := range ids {
		data, err := os.ReadFile(paths.CompletedSessionPath(root, id))
		if err != nil {
			continue
		}
		fm, _ := session.Split(string(data))
		branch := fm.Branch
		if branch == "" {
			branch = "-"
		}
		fmt.Fprintf(w, "%-24s  %-20s  %s\n", id, branch, strings.Join(fm.Tags, ","))
	}
	return nil
}
