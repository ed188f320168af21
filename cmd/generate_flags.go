package cmd

import (
	"fmt"
	"strings"

	"github.com/crytic/exposed/compilation"
	"github.com/crytic/exposed/exposure"
	"github.com/crytic/exposed/exposure/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// addGenerateFlags adds the various flags for the generate command to the provided command
func addGenerateFlags(generateCmd *cobra.Command) error {
	// Get the default project config and throw an error if we cant
	defaultConfig, err := config.GetDefaultProjectConfig(DefaultCompilationPlatform)
	if err != nil {
		return err
	}

	// Prevent alphabetical sorting of usage message
	generateCmd.Flags().SortFlags = false

	// Config file
	generateCmd.Flags().String("config", "", "path to config file")

	// Compilation
	generateCmd.Flags().String("platform", "",
		fmt.Sprintf("compilation platform (options: %s, unless a config file is provided, default is %s)",
			strings.Join(compilation.GetSupportedCompilationPlatforms(), ", "), DefaultCompilationPlatform))
	generateCmd.Flags().String("target", "", TargetFlagDescription)

	// Exposure
	generateCmd.Flags().String("prefix", "",
		fmt.Sprintf("prefix of generated contracts and functions (unless a config file is provided, default is %q)", exposure.DefaultPrefix))
	generateCmd.Flags().StringSlice("include", []string{},
		fmt.Sprintf("glob patterns, relative to the sources directory, of the sources to expose (unless a config file is provided, default is %v)", defaultConfig.Exposure.Include))
	generateCmd.Flags().StringSlice("exclude", []string{},
		"glob patterns, relative to the sources directory, of the sources not to expose")
	generateCmd.Flags().String("out", "",
		fmt.Sprintf("directory generated sources are written to (unless a config file is provided, default is %q)", defaultConfig.Exposure.OutDir))
	generateCmd.Flags().String("sources", "",
		fmt.Sprintf("directory holding the project's sources (unless a config file is provided, default is %q)", defaultConfig.Exposure.SourcesDir))
	generateCmd.Flags().Bool("imports", false,
		fmt.Sprintf("also expose concrete contracts imported by alias from outside the sources (unless a config file is provided, default is %t)", defaultConfig.Exposure.Imports))
	generateCmd.Flags().Bool("initializers", false,
		fmt.Sprintf("initialize upgradeable ancestors through their initializers (unless a config file is provided, default is %t)", defaultConfig.Exposure.Initializers))

	// Output
	generateCmd.Flags().Bool("force", false, "rewrite every generated file, even if it is unchanged")

	// Logging
	generateCmd.Flags().String("log-level", "",
		fmt.Sprintf("log level (unless a config file is provided, default is %q)", defaultConfig.Logging.Level.String()))
	generateCmd.Flags().Bool("no-color", false, "disable colored output")
	return nil
}

// updateProjectConfigWithGenerateFlags will update the given projectConfig with any CLI arguments that were provided to
// the generate command
func updateProjectConfigWithGenerateFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	var err error

	// Replace the compilation config if another platform was requested
	if cmd.Flags().Changed("platform") {
		platform, err := cmd.Flags().GetString("platform")
		if err != nil {
			return err
		}
		if projectConfig.Compilation == nil || projectConfig.Compilation.Platform != platform {
			projectConfig.Compilation, err = compilation.NewCompilationConfig(platform)
			if err != nil {
				return err
			}
		}
	}

	// Update the compilation target
	err = updateCompilationTarget(cmd, projectConfig)
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

	// Update the include patterns
	if cmd.Flags().Changed("include") {
		projectConfig.Exposure.Include, err = cmd.Flags().GetStringSlice("include")
		if err != nil {
			return err
		}
	}

	// Update the exclude patterns
	if cmd.Flags().Changed("exclude") {
		projectConfig.Exposure.Exclude, err = cmd.Flags().GetStringSlice("exclude")
		if err != nil {
			return err
		}
	}

	// Update the output directory
	if cmd.Flags().Changed("out") {
		projectConfig.Exposure.OutDir, err = cmd.Flags().GetString("out")
		if err != nil {
			return err
		}
	}

	// Update the sources directory
	if cmd.Flags().Changed("sources") {
		projectConfig.Exposure.SourcesDir, err = cmd.Flags().GetString("sources")
		if err != nil {
			return err
		}
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

	// Update the log level
	if cmd.Flags().Changed("log-level") {
		levelString, err := cmd.Flags().GetString("log-level")
		if err != nil {
			return err
		}
		projectConfig.Logging.Level, err = zerolog.ParseLevel(levelString)
		if err != nil {
			return err
		}
	}

	// Update colored output
	if cmd.Flags().Changed("no-color") {
		projectConfig.Logging.NoColor, err = cmd.Flags().GetBool("no-color")
		if err != nil {
			return err
		}
	}
	return nil
}
