// Package claudecode adapts the Claude Code CLI to the backend contract.
package claudecode

import "github.com/andywolf/ralph/internal/backend"

// Adapter builds the argv for invoking `claude` non-interactively.
type Adapter struct {
	// SystemPrompt, if set, is passed via --system-prompt.
	SystemPrompt string
	// AppendSystemPrompt, if set, is passed via --append-system-prompt.
	AppendSystemPrompt string
}

// New creates a Claude Code backend adapter.
func New() *Adapter {
	return &Adapter{}
}

// Name returns the backend identifier.
func (a *Adapter) Name() string {
	return "claude-code"
}

// BuildCommand constructs the command to run Claude Code against prompt.
// Claude Code takes the prompt as a positional argument, so no stdin
// payload is needed.
func (a *Adapter) BuildCommand(prompt string) (string, []string, string) {
	args := []string{"--print", "--dangerously-skip-permissions"}

	if a.SystemPrompt != "" {
		args = append(args, "--system-prompt", a.SystemPrompt)
	}
	if a.AppendSystemPrompt != "" {
		args = append(args, "--append-system-prompt", a.AppendSystemPrompt)
	}

	args = append(args, prompt)
	return "claude", args, ""
}

func init() {
	backend.Register("claude-code", func() backend.Backend { return New() })
}
