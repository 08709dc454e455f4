// Package codex adapts the OpenAI Codex CLI to the backend contract.
package codex

import (
	"fmt"

	"github.com/andywolf/ralph/internal/backend"
)

// Adapter builds the argv for invoking `codex exec` non-interactively.
type Adapter struct {
	// Model overrides the default model via --model.
	Model string
	// ReasoningEffort sets -c model_reasoning_effort=<value> when non-empty.
	ReasoningEffort string
	// YOLO skips the Codex sandbox approval prompts when true.
	YOLO bool
	// DeveloperInstructions is passed via -c developer_instructions=<value>
	// when non-empty; this is where the core-behaviors preamble and
	// hat-specific instructions land for Codex, which has no dedicated
	// system-prompt flag.
	DeveloperInstructions string
}

// New creates a Codex backend adapter.
func New() *Adapter {
	return &Adapter{}
}

// Name returns the backend identifier.
func (a *Adapter) Name() string {
	return "codex"
}

// BuildCommand constructs the command to run Codex against prompt.
func (a *Adapter) BuildCommand(prompt string) (string, []string, string) {
	args := []string{"exec", "--json", "--skip-git-repo-check", "--cd", "/workspace"}

	if a.YOLO {
		args = append(args, "--yolo")
	}
	if a.Model != "" {
		args = append(args, "--model", a.Model)
	}
	if a.ReasoningEffort != "" {
		args = append(args, "-c", fmt.Sprintf("model_reasoning_effort=%s", a.ReasoningEffort))
	}
	if a.DeveloperInstructions != "" {
		args = append(args, "-c", fmt.Sprintf("developer_instructions=%s", a.DeveloperInstructions))
	}

	args = append(args, prompt)
	return "codex", args, ""
}

func init() {
	backend.Register("codex", func() backend.Backend { return New() })
}
