package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/crytic/exposed/cmd/exitcodes"
	"github.com/crytic/exposed/exposure/output"
	"github.com/crytic/exposed/logging/colors"
	"github.com/spf13/cobra"
)

// cleanCmd represents the command provider for clean
var cleanCmd = &cobra.Command{
	Use:               "clean",
	Short:             "Deletes the generated sources of a project",
	Long:              `Deletes the output directory holding the generated sources of a project, along with its index`,
	Args:              cmdValidateCleanArgs,
	ValidArgsFunction: cmdValidFlagArgs,
	RunE:              cmdRunClean,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	// Config file
	cleanCmd.Flags().String("config", "", "path to config file")

	// Add the clean command and its associated flags to the root command
	rootCmd.AddCommand(cleanCmd)
}

// cmdValidateCleanArgs makes sure that there are no positional arguments provided to the clean command
func cmdValidateCleanArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		err = fmt.Errorf("clean does not accept any positional arguments, only flags and their associated values")
		cmdLogger.Error("Failed to validate args to the clean command", err)
		return err
	}
	return nil
}

// cmdRunClean executes the CLI clean command, deleting the output directory of the project configuration.
func cmdRunClean(cmd *cobra.Command, args []string) error {
	projectConfig, projectRoot, err := loadProjectConfig(cmd)
	if err == nil {
		// The output directory must never resolve to the project or its sources.
		err = projectConfig.Validate()
	}
	if err != nil {
		cmdLogger.Error("Failed to run the clean command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	outputRoot := filepath.Join(projectRoot, projectConfig.Exposure.OutDir)
	if err = output.Clean(outputRoot); err != nil {
		cmdLogger.Error("Failed to run the clean command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}
	cmdLogger.Info("Deleted generated sources at: ", colors.Bold, outputRoot, colors.Reset)
	return nil
}
