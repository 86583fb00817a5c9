// Package cli implements ghost's command surface: the user-facing
// subcommands of spec §6's command table plus the hook entry points the
// host agent invokes under the hood.
package cli

import (
	"fmt"
	"runtime"

	"github.com/ghostctl/ghost/internal/config"
	"github.com/ghostctl/ghost/internal/logging"
	"github.com/ghostctl/ghost/internal/paths"
	"github.com/ghostctl/ghost/internal/scm"
	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"
)

// Version information, set at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

const gettingStarted = `

Getting Started:
  Run 'ghost enable' in a git repository to start capturing sessions.
`

const accessibilityHelp = `
Environment Variables:
  ACCESSIBLE    Set to any value (e.g., ACCESSIBLE=1) to use plain text
                prompts instead of the interactive TUI.
`

// NewRootCmd builds the ghost command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ghost",
		Short:         "Ghost session capture",
		Long:          "Ghost captures coding-agent sessions as git-native history." + gettingStarted + accessibilityHelp,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if root, err := paths.RepoRoot(); err == nil {
				logging.SetLevelGetter(config.LogLevelGetter(root))
				_ = logging.Init(root)
			}
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			logging.Close()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newEnableCmd())
	cmd.AddCommand(newDisableCmd())
	cmd.AddCommand(newResetCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newLogCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newTagCmd())
	cmd.AddCommand(newKnowledgeCmd())
	cmd.AddCommand(newMistakeCmd())
	cmd.AddCommand(newDecisionsCmd())
	cmd.AddCommand(newResumeCmd())
	cmd.AddCommand(newBriefCmd())
	cmd.AddCommand(newHeatmapCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newReindexCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newUpdateCmd())
	cmd.AddCommand(newVersionCmd())

	for _, name := range hookCommands {
		cmd.AddCommand(newHookCmd(name))
	}
	cmd.AddCommand(newFinalizeCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ghost %s (%s)\n", Version, Commit)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)

			if root, err := paths.RepoRoot(); err == nil {
				if note := tagFreshnessNote(root, Version); note != "" {
					fmt.Fprintln(out, note)
				}
			}
		},
	}
}

// tagFreshnessNote compares the running build's version against the highest
// semver tag this clone has, entirely offline: no release feed is fetched,
// only whatever tags this clone already has. Empty for a dev build, an
// untagged repo, or a version or tag that isn't valid semver; otherwise it
// reports either that a newer tag is available or that the build is up to
// date with the latest tag.
func tagFreshnessNote(repoRoot, version string) string {
	if version == "dev" {
		return ""
	}
	latest, ok, err := scm.Open(repoRoot).LatestTag()
	if err != nil || !ok {
		return ""
	}
	running := canonicalVersion(version)
	runningLatest := canonicalVersion(latest)
	if !semver.IsValid(running) || !semver.IsValid(runningLatest) {
		return ""
	}
	switch semver.Compare(running, runningLatest) {
	case -1:
		return fmt.Sprintf("a newer tag is available in this repo: %s (run 'ghost update' after fetching it)", latest)
	default:
		return fmt.Sprintf("up to date with the latest tag in this repo: %s", latest)
	}
}

func canonicalVersion(v string) string {
	if v == "" || v[0] == 'v' {
		return v
	}
	return "v" + v
}
