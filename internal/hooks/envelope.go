// Package hooks implements the Hook Dispatcher: it reads a JSON envelope
// from standard input, routes on the first command-line token to one of
// the recognized hook handlers, and — for SessionStart — assembles a
// context block from the Knowledge Store and co-mod graph.
package hooks

import (
	"encoding/json"
	"io"
)

// ToolInput carries the per-event tool fields PostToolUse hooks report.
// Unknown fields are ignored by design — the envelope only consumes what
// each handler needs.
type ToolInput struct {
	FilePath    string `json:"file_path"`
	Description string `json:"description"`
}

// Envelope is the JSON object every hook invocation receives on stdin.
type Envelope struct {
	SessionID string    `json:"session_id"`
	Cwd       string    `json:"cwd"`
	Prompt    string    `json:"prompt"`
	ToolName  string    `json:"tool_name"`
	ToolInput ToolInput `json:"tool_input"`
}

// ParseEnvelope reads and decodes an Envelope from r. An empty or
// malformed body yields a zero Envelope rather than an error — a hook
// handler that can't use its input silently skips the side effect, it
// never fails the host agent's turn.
func ParseEnvelope(r io.Reader) Envelope {
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return Envelope{}
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}
	}
	return env
}
