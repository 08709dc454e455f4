package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const defaultConfigTemplate = `core:
  scratchpad: .agent/scratchpad.md
  specs_dir: ./specs/
  guardrails:
    - "Search first - don't assume a feature isn't implemented."
    - "Run backpressure (tests, lint, typecheck) before declaring a task done."
    - "Do the smallest atomic task possible; leave the rest for a future iteration."

completion_promise: LOOP_COMPLETE
idle_timeout_secs: 120
max_iterations: 0

backend:
  name: claude-code

journal_path: .agent/journal.jsonl
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold a .ralph.yaml config, specs directory, and scratchpad file",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(".ralph.yaml"); err == nil {
		return fmt.Errorf("init: .ralph.yaml already exists")
	}

	if err := os.WriteFile(".ralph.yaml", []byte(defaultConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("init: write .ralph.yaml: %w", err)
	}

	if err := os.MkdirAll("specs", 0o755); err != nil {
		return fmt.Errorf("init: create specs dir: %w", err)
	}

	if err := os.MkdirAll(".agent", 0o755); err != nil {
		return fmt.Errorf("init: create .agent dir: %w", err)
	}
	scratchpad := filepath.Join(".agent", "scratchpad.md")
	if _, err := os.Stat(scratchpad); os.IsNotExist(err) {
		if err := os.WriteFile(scratchpad, []byte("# Scratchpad\n"), 0o644); err != nil {
			return fmt.Errorf("init: write scratchpad: %w", err)
		}
	}

	fmt.Println("Wrote .ralph.yaml, specs/, and .agent/scratchpad.md")
	return nil
}
