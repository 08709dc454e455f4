package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andywolf/ralph/internal/version"
)

var versionVerbose bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if versionVerbose {
			fmt.Println(version.Full())
		} else {
			fmt.Println(version.Info())
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVarP(&versionVerbose, "verbose", "v", false, "show commit, build date, and Go/OS/Arch details")
	rootCmd.AddCommand(versionCmd)
}
