package cli

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/ghostctl/ghost/internal/paths"
	"github.com/ghostctl/ghost/internal/redact"
	"github.com/ghostctl/ghost/internal/scm"
	"github.com/ghostctl/ghost/internal/search"
	"github.com/ghostctl/ghost/internal/summarize"
	"github.com/ghostctl/ghost/internal/sync"
	"github.com/spf13/cobra"
)

// newDoctorCmd reports on environment health, splitting that concern out
// of `status` (current state) the same way the teacher splits the two.
func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check ghost's environment and dependencies",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd)
		},
	}
}

type check struct {
	name string
	ok   bool
	note string
}

func runDoctor(cmd *cobra.Command) error {
	root, err := paths.RepoRoot()
	if err != nil {
		return errors.New("not a git repository")
	}
	ctx := context.Background()

	var checks []check
	checks = append(checks, toolCheck("git"))
	checks = append(checks, toolCheck(summarize.DefaultExecutable))
	checks = append(checks, toolCheck(search.DefaultExecutable))
	checks = append(checks, gitleaksCheck())
	checks = append(checks, notesRefCheck(ctx, root))
	checks = append(checks, knowledgeBranchCheck(root))
	checks = append(checks, hookWiringCheck(root))
	checks = append(checks, finalizerCheck(root))

	w := cmd.OutOrStdout()
	failures := 0
	for _, c := range checks {
		status := "ok"
		if !c.ok {
			status = "FAIL"
			failures++
		}
		if c.note != "" {
			fmt.Fprintf(w, "  [%s] %-20s %s\n", status, c.name, c.note)
		} else {
			fmt.Fprintf(w, "  [%s] %s\n", status, c.name)
		}
	}

	if failures > 0 {
		fmt.Fprintf(w, "\n%d check(s) failed.\n", failures)
	} else {
		fmt.Fprintln(w, "\nall checks passed.")
	}
	return nil
}

func toolCheck(name string) check {
	path, err := exec.LookPath(name)
	if err != nil {
		return check{name: name, ok: false, note: "not found on PATH"}
	}
	return check{name: name, ok: true, note: path}
}

func gitleaksCheck() check {
	if !redact.DetectorLoaded() {
		return check{name: "gitleaks", ok: false, note: "detector failed to initialize"}
	}
	return check{name: "gitleaks", ok: true}
}

func notesRefCheck(ctx context.Context, root string) check {
	value, ok, err := scm.Open(root).ConfigValue(ctx, "notes.displayRef")
	if err != nil || !ok {
		return check{name: "notes.displayRef", ok: false, note: "not configured (run `ghost enable`)"}
	}
	return check{name: "notes.displayRef", ok: true, note: value}
}

func knowledgeBranchCheck(root string) check {
	adapter := scm.Open(root)
	local, err := adapter.BranchExistsLocally(sync.Branch)
	if err == nil && local {
		return check{name: sync.Branch, ok: true, note: "present locally"}
	}
	remote, err := adapter.BranchExistsOnRemote(sync.Branch)
	if err == nil && remote {
		return check{name: sync.Branch, ok: true, note: "present on remote, not yet fetched"}
	}
	return check{name: sync.Branch, ok: false, note: "not found (run `ghost enable`)"}
}

func hookWiringCheck(root string) check {
	settings, err := readHookSettings(root)
	if err != nil {
		return check{name: "hook wiring", ok: false, note: err.Error()}
	}
	for _, b := range ghostHookBindings {
		found := false
		for _, m := range settings[b.event] {
			for _, h := range m.Hooks {
				if h.Command == "ghost "+b.hook {
					found = true
				}
			}
		}
		if !found {
			return check{name: "hook wiring", ok: false, note: "missing " + b.event + "/" + b.hook + " (run `ghost enable`)"}
		}
	}
	return check{name: "hook wiring", ok: true}
}

func finalizerCheck(root string) check {
	status := backgroundFinalizerStatus(root)
	if status == "idle (stale pid file)" {
		return check{name: "background finalizer", ok: false, note: status}
	}
	return check{name: "background finalizer", ok: true, note: status}
}
