// Package cli implements Ralph's command-line surface: cobra subcommands
// wired to the config loader, hat registry, prompt composer, PTY executor,
// and dispatcher the rest of the module provides.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/andywolf/ralph/internal/version"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ralph",
	Short: "Ralph - a local orchestrator for command-line AI coding agents",
	Long: `Ralph drives a command-line AI coding agent in a bounded iteration loop:
it spawns the agent with a generated prompt, streams its terminal output,
parses the machine-readable events it emits, routes those events to
role-specialized prompt variants ("hats"), and stops when the agent emits
a configured completion promise.

Example:
  ralph run "Add a rate limiter to the API gateway"`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.Version = version.Short()
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .ralph.yaml in the working directory)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable verbose output")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig only handles the verbose-mode notice; actual config loading
// is owned by internal/config and happens inside the subcommands that
// need it, not a package-global viper instance.
func initConfig() {
	if viper.GetBool("verbose") && cfgFile != "" {
		fmt.Fprintln(os.Stderr, "Using config file:", cfgFile)
	}
}
