package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"syscall"

	"github.com/ghostctl/ghost/internal/paths"
	"github.com/ghostctl/ghost/internal/scm"
	"github.com/ghostctl/ghost/internal/search"
	"github.com/ghostctl/ghost/internal/summarize"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report ghost's current state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd)
		},
	}
}

func runStatus(cmd *cobra.Command) error {
	w := cmd.OutOrStdout()

	root, err := paths.RepoRoot()
	if err != nil {
		fmt.Fprintln(w, "not a git repository")
		return nil
	}

	if _, statErr := os.Stat(paths.Abs(root, paths.GhostDir)); errors.Is(statErr, fs.ErrNotExist) {
		fmt.Fprintln(w, "not enabled (run `ghost enable` to get started)")
		return nil
	}

	if current, err := paths.ReadCurrentSession(root); err == nil && current != "" {
		fmt.Fprintf(w, "active session: %s\n", current)
	} else {
		fmt.Fprintln(w, "active session: none")
	}

	completed, _ := os.ReadDir(paths.Abs(root, paths.CompletedDir))
	fmt.Fprintf(w, "completed sessions: %d\n", countMarkdown(completed))

	fmt.Fprintln(w, "background finalizer: "+backgroundFinalizerStatus(root))

	if branch, ok, err := scm.Open(root).CurrentBranch(); err == nil && ok {
		fmt.Fprintf(w, "branch: %s\n", branch)
	}

	fmt.Fprintln(w, "dependencies:")
	fmt.Fprintf(w, "  git:                %s\n", toolStatus("git"))
	fmt.Fprintf(w, "  %-20s%s\n", summarize.DefaultExecutable+":", toolStatus(summarize.DefaultExecutable))
	fmt.Fprintf(w, "  %-20s%s\n", search.DefaultExecutable+":", toolStatus(search.DefaultExecutable))

	return nil
}

func countMarkdown(entries []os.DirEntry) int {
	n := 0
	for _, e := range entries {
		if !e.IsDir() && len(e.Name()) > 3 && e.Name()[len(e.Name())-3:] == ".md" {
			n++
		}
	}
	return n
}

func toolStatus(name string) string {
	if _, err := exec.LookPath(name); err != nil {
		return "not found"
	}
	return "available"
}

// backgroundFinalizerStatus reports whether the PID recorded in
// .background.pid still belongs to a live process, stale PID files being
// the one symptom worth surfacing here (the finalizer removes its own
// PID file on exit, so a lingering one past a few seconds usually means
// a crash rather than a still-running pipeline).
func backgroundFinalizerStatus(root string) string {
	data, err := os.ReadFile(paths.Abs(root, paths.BackgroundPIDFile))
	if err != nil {
		return "idle"
	}
	pid := 0
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil || pid <= 0 {
		return "idle"
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return "idle"
	}
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return "idle (stale pid file)"
	}
	return fmt.Sprintf("running (pid %d)", pid)
}
