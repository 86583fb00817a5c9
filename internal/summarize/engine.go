package summarize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// DefaultExecutable is the summarization engine binary name, expected on
// PATH unless overridden.
const DefaultExecutable = "ghost-summarize"

const promptTemplate = `Summarize this development session transcript.

<transcript>
%s
</transcript>

Return markdown with top-level "## " sections named exactly: Intent,
Changes, Knowledge, Decisions, Strategies, Mistakes, Open Items,
Relevance, Tags. Decisions/Mistakes/Strategies/Knowledge entries use
"**Title**: description" blocks, each optionally followed by single
Files:/Tried:/Rule: metadata lines. Relevance is a single line, either
"skip" or a short note. Tags is a comma-separated list. Write "none" in
a section's body when it doesn't apply.`

// Engine generates a summary markdown document from a session transcript
// by shelling out to a summarization engine executable.
type Engine struct {
	// Path is the engine executable; defaults to DefaultExecutable.
	Path string

	// CommandRunner allows test injection; defaults to exec.CommandContext.
	CommandRunner func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// Summarize pipes transcript into the engine via stdin with a fixed
// prompt and returns its raw markdown stdout. A missing executable or a
// non-zero exit is returned as an error — callers (the finalizer) treat
// that as "skip subsequent extraction steps" per spec §4.8 step 1.
func (e Engine) Summarize(ctx context.Context, transcript string) (string, error) {
	runner := e.CommandRunner
	if runner == nil {
		runner = exec.CommandContext
	}
	path := e.Path
	if path == "" {
		path = DefaultExecutable
	}

	cmd := runner(ctx, path)
	cmd.Stdin = bytes.NewReader([]byte(fmt.Sprintf(promptTemplate, transcript)))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return "", fmt.Errorf("summarization engine not found: %w", err)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("summarization engine failed (exit %d): %s", exitErr.ExitCode(), stderr.String())
		}
		return "", fmt.Errorf("run summarization engine: %w", err)
	}

	return stdout.String(), nil
}
