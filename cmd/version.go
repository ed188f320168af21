package cmd

import (
	"fmt"

	"github.com/crytic/exposed/version"
	"github.com/spf13/cobra"
)

// versionCmd represents the version command that displays build information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and build information",
	Long: `Print detailed version and build information for exposed.

This includes the semantic version, git commit hash, build timestamp,
the Go version used to compile the binary, the lowest solc version
generated sources can be compiled with and the supported compilation
platforms.`,
	Run: func(cmd *cobra.Command, args []string) {
		info := version.GetInfo()
		fmt.Print(info.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
