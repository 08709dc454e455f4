// Package aider adapts the Aider CLI to the backend contract.
package aider

import "github.com/andywolf/ralph/internal/backend"

// Adapter builds the argv for invoking `aider` non-interactively. Aider
// has no --system-prompt flag, so the caller is expected to fold any
// preamble directly into prompt before calling BuildCommand.
type Adapter struct {
	// Model selects the LLM Aider drives, passed via --model.
	Model string
}

// New creates an Aider backend adapter.
func New() *Adapter {
	return &Adapter{Model: "claude-3-5-sonnet-20241022"}
}

// Name returns the backend identifier.
func (a *Adapter) Name() string {
	return "aider"
}

// BuildCommand constructs the command to run Aider against prompt. Aider
// takes its message via --message rather than a bare positional, and the
// orchestration loop already runs inside a repository, so no stdin
// payload is needed.
func (a *Adapter) BuildCommand(prompt string) (string, []string, string) {
	args := []string{
		"--model", a.Model,
		"--yes-always",
		"--no-git",
		"--message", prompt,
	}
	return "aider", args, ""
}

func init() {
	backend.Register("aider", func() backend.Backend { return New() })
}
