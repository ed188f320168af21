package cmd

import (
	"github.com/crytic/exposed/logging"
	"github.com/crytic/exposed/version"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// rootCmd represents the root CLI command object which all other commands stem from.
var rootCmd = &cobra.Command{
	Use:     "exposed",
	Version: version.GetInfo().Short(),
	Short:   "Generates contracts exposing the internal functions of Solidity contracts for testing",
	Long: "exposed generates, for every contract of a Solidity project, a contract inheriting from it which exposes its " +
		"internal functions and variables through external wrappers, so they can be called from tests",
}

// cmdLogger is the logger that will be used for the cmd package
var cmdLogger = logging.NewLogger(zerolog.InfoLevel, true)

// Execute provides an exportable function to invoke the CLI. Returns an error if one was encountered.
func Execute() error {
	return rootCmd.Execute()
}
