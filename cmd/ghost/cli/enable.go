package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/ghostctl/ghost/internal/comod"
	"github.com/ghostctl/ghost/internal/paths"
	"github.com/ghostctl/ghost/internal/scm"
	"github.com/ghostctl/ghost/internal/sync"
	"github.com/spf13/cobra"
)

// hookSettingsFile is the host agent's JSON configuration ghost edits to
// wire its own hook commands in. The exact schema (an array of matchers
// keyed by event name) is the one Claude Code and similar hosting agents
// already use; ghost only ever touches its own entries.
const hookSettingsFile = ".claude/settings.json"

// ghostHookBinding pairs a host-agent event with the matcher (tool-name
// filter) that selects which of ghost's hook subcommands fires. PostToolUse
// fires for every tool call, so ghost splits it by matcher: file edits go
// to post-write, Task-tool invocations go to post-task.
type ghostHookBinding struct {
	event   string
	matcher string
	hook    string
}

// ghostHookBindings maps the host agent's event names (and, where one event
// covers several tools, its matcher) to ghost's own hook subcommands.
var ghostHookBindings = []ghostHookBinding{
	{event: "SessionStart", hook: "session-start"},
	{event: "SessionEnd", hook: "session-end"},
	{event: "UserPromptSubmit", hook: "prompt"},
	{event: "Stop", hook: "stop"},
	{event: "PostToolUse", matcher: "Write|Edit", hook: "post-write"},
	{event: "PostToolUse", matcher: "Task", hook: "post-task"},
}

func newEnableCmd() *cobra.Command {
	var force bool
	var genesis bool

	cmd := &cobra.Command{
		Use:   "enable",
		Short: "Enable session capture in this repository",
		Long: `Creates the .ghost archive, wires ghost's hooks into the host agent's
settings, configures the source control tool to display session notes,
and installs a post-commit hook that checkpoints asynchronously.

Without --force, prompts for confirmation before writing hook config.
With --genesis, also builds an initial knowledge base from any
existing completed sessions.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEnable(cmd, force, genesis)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation and write hook config unconditionally")
	cmd.Flags().BoolVar(&genesis, "genesis", false, "also build the initial knowledge base")

	return cmd
}

func runEnable(cmd *cobra.Command, force, genesis bool) error {
	root, err := paths.RepoRoot()
	if err != nil {
		return errors.New("not a git repository")
	}

	if !force {
		var confirmed bool
		form := newAccessibleForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Enable ghost in this repository?").
					Description("Writes .ghost/, edits " + hookSettingsFile + ", installs a post-commit hook").
					Value(&confirmed),
			),
		)
		if err := form.Run(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return fmt.Errorf("confirmation prompt failed: %w", err)
		}
		if !confirmed {
			return nil
		}
	}

	for _, dir := range []string{paths.ActiveDir, paths.CompletedDir, paths.LogsDir} {
		if err := os.MkdirAll(paths.Abs(root, dir), 0o750); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	if err := writeGhostHookConfig(root); err != nil {
		return fmt.Errorf("write hook config: %w", err)
	}

	adapter := scm.Open(root)
	ctx := context.Background()
	if err := adapter.SetConfig(ctx, "notes.displayRef", "refs/notes/"+scm.NotesRef); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: could not configure notes display: %v\n", err)
	}

	if err := installPostCommitHook(root); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: could not install post-commit hook: %v\n", err)
	}

	if err := sync.Init(ctx, root); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: could not initialize knowledge branch: %v\n", err)
	}

	if genesis {
		if _, _, err := comod.Build(root); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: could not build initial co-mod graph: %v\n", err)
		}
		if err := runKnowledgeBuild(cmd); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: could not build initial knowledge base: %v\n", err)
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), "ghost enabled.")
	return nil
}

func newDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable",
		Short: "Remove ghost's hook entries",
		Long:  "Removes ghost's own matchers from the host agent's hook settings. Session files are left in place.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, err := paths.RepoRoot()
			if err != nil {
				return errors.New("not a git repository")
			}
			if err := removeGhostHookConfig(root); err != nil {
				return fmt.Errorf("remove hook config: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ghost disabled.")
			return nil
		},
	}
}

// hookMatcher is one entry in the host agent's per-event matcher array.
type hookMatcher struct {
	Matcher string          `json:"matcher,omitempty"`
	Hooks   []hookInvocation `json:"hooks"`
}

type hookInvocation struct {
	Type    string `json:"type"`
	Command string `json:"command"`
}

// writeGhostHookConfig adds one matcher per ghost hook binding to the host
// agent's settings file, preserving any pre-existing non-ghost matchers
// under the same key (spec §6: "pre-existing non-system matchers are
// preserved").
func writeGhostHookConfig(root string) error {
	settings, err := readHookSettings(root)
	if err != nil {
		return err
	}

	byEvent := map[string][]hookMatcher{}
	for _, b := range ghostHookBindings {
		byEvent[b.event] = append(byEvent[b.event], hookMatcher{
			Matcher: b.matcher,
			Hooks:   []hookInvocation{{Type: "command", Command: "ghost " + b.hook}},
		})
	}

	for event, additions := range byEvent {
		filtered := filterGhostMatchers(settings[event])
		settings[event] = append(filtered, additions...)
	}

	return writeHookSettings(root, settings)
}

// removeGhostHookConfig strips only ghost's own matchers (identified by a
// command prefix of "ghost ") from every event key, per spec §6's
// disable contract.
func removeGhostHookConfig(root string) error {
	settings, err := readHookSettings(root)
	if err != nil {
		return err
	}
	for event, matchers := range settings {
		settings[event] = filterGhostMatchers(matchers)
	}
	return writeHookSettings(root, settings)
}

func filterGhostMatchers(matchers []hookMatcher) []hookMatcher {
	var kept []hookMatcher
	for _, m := range matchers {
		isGhost := false
		for _, h := range m.Hooks {
			if len(h.Command) >= 6 && h.Command[:6] == "ghost " {
				isGhost = true
				break
			}
		}
		if !isGhost {
			kept = append(kept, m)
		}
	}
	return kept
}

func readHookSettings(root string) (map[string][]hookMatcher, error) {
	path := paths.Abs(root, hookSettingsFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string][]hookMatcher{}, nil
	}
	if err != nil {
		return nil, err
	}
	var raw struct {
		Hooks map[string][]hookMatcher `json:"hooks"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return map[string][]hookMatcher{}, nil
	}
	if raw.Hooks == nil {
		raw.Hooks = map[string][]hookMatcher{}
	}
	return raw.Hooks, nil
}

func writeHookSettings(root string, hooks map[string][]hookMatcher) error {
	path := paths.Abs(root, hookSettingsFile)
	if err := os.MkdirAll(dirOf(path), 0o750); err != nil {
		return err
	}
	payload := struct {
		Hooks map[string][]hookMatcher `json:"hooks"`
	}{Hooks: hooks}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func dirOf(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[:i]
		}
	}
	return "."
}

const postCommitScript = "#!/bin/sh\nghost checkpoint >/dev/null 2>&1 &\n"

// installPostCommitHook writes .git/hooks/post-commit so every commit
// asynchronously attaches the most recent completed session's transcript
// as a note, without blocking the commit itself.
func installPostCommitHook(root string) error {
	if err := os.MkdirAll(root+"/.git/hooks", 0o750); err != nil {
		return err
	}
	path := root + "/.git/hooks/post-commit"
	return os.WriteFile(path, []byte(postCommitScript), 0o750)
}
