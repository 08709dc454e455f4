package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/andywolf/ralph/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve Ralph's ralph_run/ralph_status/ralph_stop/ralph_list_hats tools over MCP (stdio)",
	RunE:  runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	if err := mcpserver.Serve(); err != nil {
		fmt.Fprintln(os.Stderr, "mcp server error:", err)
		os.Exit(exitSpawnFailure)
	}
	return nil
}
