package cmd

import (
	"github.com/crytic/exposed/exposure/config"
	"github.com/spf13/cobra"
)

// addInitFlags adds the various flags for the init command to the provided command
func addInitFlags(initCmd *cobra.Command) error {
	// Output path for configuration
	initCmd.Flags().String("out", "", "output path for the new project configuration file, written as YAML if it ends in .yaml or .yml")

	// Target file / directory
	initCmd.Flags().String("target", "", TargetFlagDescription)

	// Exposure
	initCmd.Flags().String("prefix", "", "prefix of generated contracts and functions")
	initCmd.Flags().String("sources", "", "directory holding the project's sources")
	initCmd.Flags().Bool("imports", false, "also expose concrete contracts imported by alias from outside the sources")
	initCmd.Flags().Bool("initializers", false, "initialize upgradeable ancestors through their initializers")

	return nil
}

// updateProjectConfigWithInitFlags will update the given projectConfig with any CLI arguments that were provided to the init command
func updateProjectConfigWithInitFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	// Update target if necessary
	err := updateCompilationTarget(cmd, projectConfig)
	if err != nil {
		return err
	}

	// Update the prefix
	if cmd.Flags().Changed("prefix") {
		prefix, err := cmd.Flags().GetString("prefix")
		if err != nil {
			return err
		}
		projectConfig.Exposure.Prefix = &prefix
	}

	// Update the sources directory, writing generated sources next to them
	if cmd.Flags().Changed("sources") {
		projectConfig.Exposure.SourcesDir, err = cmd.Flags().GetString("sources")
		if err != nil {
			return err
		}
		projectConfig.Exposure.OutDir = projectConfig.Exposure.SourcesDir + "-exposed"
	}

	// Update imported contract exposure
	if cmd.Flags().Changed("imports") {
		projectConfig.Exposure.Imports, err = cmd.Flags().GetBool("imports")
		if err != nil {
			return err
		}
	}

	// Update the initializer pattern
	if cmd.Flags().Changed("initializers") {
		projectConfig.Exposure.Initializers, err = cmd.Flags().GetBool("initializers")
		if err != nil {
			return err
		}
	}
	return nil
}
