package hooks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/ghostctl/ghost/internal/finalizer"
	"github.com/ghostctl/ghost/internal/logging"
	"github.com/ghostctl/ghost/internal/paths"
	"github.com/ghostctl/ghost/internal/scm"
	"github.com/ghostctl/ghost/internal/session"
)

// Recognized hook command names, the first CLI token a hook subcommand
// is invoked with.
const (
	SessionStart = "session-start"
	SessionEnd   = "session-end"
	Prompt       = "prompt"
	Stop         = "stop"
	PostWrite    = "post-write"
	PostTask     = "post-task"
	Checkpoint   = "checkpoint"
)

type handlerFunc func(ctx context.Context, repoRoot string, env Envelope, stdout io.Writer) error

var handlers = map[string]handlerFunc{
	SessionStart: handleSessionStart,
	SessionEnd:   handleSessionEnd,
	Prompt:       handlePrompt,
	Stop:         handleStop,
	PostWrite:    handlePostWrite,
	PostTask:     handlePostTask,
	Checkpoint:   handleCheckpoint,
}

// Run parses the envelope from stdin and dispatches to the handler named
// by command. It resolves the repository root from the invoking
// process's own working directory (trusting the hosting agent to invoke
// hooks with cwd already set inside the repo) — the envelope's own cwd
// field is logged for diagnostics but not used to re-root the lookup,
// since paths.RepoRoot has no variant that takes an explicit directory
// and hook processes are always spawned from within the workspace.
//
// The reentrancy guard and an unresolvable repo root both yield a nil
// return. An unrecognized command and any error from the handler itself
// are returned to the caller.
func Run(command string, stdin io.Reader, stdout io.Writer) error {
	if os.Getenv(finalizer.ReentrancyGuardEnvVar) != "" {
		return nil
	}

	repoRoot, err := paths.RepoRoot()
	if err != nil {
		return nil
	}

	handler, ok := handlers[command]
	if !ok {
		return fmt.Errorf("unrecognized hook command %q", command)
	}

	env := ParseEnvelope(stdin)

	ctx := logging.WithComponent(context.Background(), "hooks")
	if env.SessionID != "" {
		ctx = logging.WithSession(ctx, env.SessionID)
	}

	start := time.Now()
	logging.Debug(ctx, "hook invoked", slog.String("hook", command), slog.String("cwd", env.Cwd))
	err = handler(ctx, repoRoot, env, stdout)
	logging.Debug(ctx, "hook completed", slog.String("hook", command), slog.Duration("duration", time.Since(start)))

	return err
}

func handleSessionStart(ctx context.Context, repoRoot string, env Envelope, stdout io.Writer) error {
	id, err := session.Create(repoRoot, env.SessionID)
	if err != nil {
		return err
	}
	fmt.Fprint(stdout, buildContext(ctx, repoRoot, id))
	return nil
}

func handleSessionEnd(ctx context.Context, repoRoot string, env Envelope, _ io.Writer) error {
	res, ok, err := session.Finalize(repoRoot, env.SessionID)
	if err != nil || !ok {
		return err
	}
	return finalizer.Spawn(repoRoot, res.Path, res.InternalID)
}

func handlePrompt(_ context.Context, repoRoot string, env Envelope, _ io.Writer) error {
	return session.AppendPrompt(repoRoot, env.SessionID, env.Prompt)
}

func handleStop(ctx context.Context, repoRoot string, env Envelope, _ io.Writer) error {
	adapter := scm.Open(repoRoot)
	diffCtx, cancel := context.WithTimeout(ctx, scm.HookTimeout)
	defer cancel()
	stat, _, _ := adapter.DiffStat(diffCtx)
	return session.AppendTurnDelimiter(repoRoot, env.SessionID, stat)
}

func handlePostWrite(_ context.Context, repoRoot string, env Envelope, _ io.Writer) error {
	if env.ToolName != "Write" && env.ToolName != "Edit" {
		return nil
	}
	if env.ToolInput.FilePath == "" {
		return nil
	}
	return session.AppendFileModification(repoRoot, env.SessionID, env.ToolInput.FilePath)
}

func handlePostTask(_ context.Context, repoRoot string, env Envelope, _ io.Writer) error {
	if env.ToolName != "Task" {
		return nil
	}
	if env.ToolInput.Description == "" {
		return nil
	}
	return session.AppendTaskNote(repoRoot, env.SessionID, env.ToolInput.Description)
}

func handleCheckpoint(_ context.Context, repoRoot string, _ Envelope, _ io.Writer) error {
	return session.Checkpoint(repoRoot)
}
