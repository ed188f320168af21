package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/crytic/exposed/exposure/config"
	"github.com/crytic/exposed/logging"
	"github.com/crytic/exposed/logging/colors"
	"github.com/crytic/exposed/utils"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// projectConfigFilenames lists the file names a project config is searched under, in order of precedence, if no
// config file is provided.
var projectConfigFilenames = []string{config.DefaultProjectConfigFilename, "exposed.yaml", "exposed.yml"}

// cmdValidFlagArgs returns the flags of a command which have not been used yet, for dynamic completion of commands
// which accept no positional arguments.
func cmdValidFlagArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	// Gather a list of flags that are available to be used in the current command but have not been used yet
	var unusedFlags []string

	// Examine all the flags, and add any flags that have not been set in the current command line
	// to a list of unused flags
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		if !flag.Changed {
			// When adding a flag to a command, include the "--" prefix to indicate that it is a flag
			// and not a positional argument.
			unusedFlags = append(unusedFlags, "--"+flag.Name)
		}
	})
	return unusedFlags, cobra.ShellCompDirectiveNoFileComp
}

// findProjectConfig returns the path of the project config in the given directory, or an empty string if the
// directory contains none.
func findProjectConfig(directory string) string {
	for _, filename := range projectConfigFilenames {
		configPath := filepath.Join(directory, filename)
		if info, err := os.Stat(configPath); err == nil && !info.IsDir() {
			return configPath
		}
	}
	return ""
}

// loadProjectConfig loads the project configuration for a command and returns it along with the project root, which
// is the directory of the config file:
// #1: If --config was used, the file is read and an error is returned if it cannot be.
// #2: Otherwise, exposed.json (or exposed.yaml) is searched in the working directory and read if found.
// #3: If no config file exists, the default project configuration is used with the working directory as the root.
func loadProjectConfig(cmd *cobra.Command) (*config.ProjectConfig, string, error) {
	workingDirectory, err := os.Getwd()
	if err != nil {
		return nil, "", errors.WithStack(err)
	}

	// Check to see if --config flag was used and store the value of --config flag
	configPath := ""
	if cmd.Flags().Lookup("config") != nil {
		if configPath, err = cmd.Flags().GetString("config"); err != nil {
			return nil, "", err
		}
	}

	// Possibility #1 and #2: a config file was provided or found
	if configPath == "" {
		configPath = findProjectConfig(workingDirectory)
	} else if _, err = os.Stat(configPath); err != nil {
		return nil, "", errors.Wrapf(err, "could not find the config file at '%s'", configPath)
	}
	if configPath != "" {
		cmdLogger.Info("Reading the configuration file at: ", colors.Bold, configPath, colors.Reset)
		projectConfig, err := config.ReadProjectConfigFromFile(configPath)
		if err != nil {
			return nil, "", err
		}

		// A config without a compilation section compiles with the default platform.
		if projectConfig.Compilation == nil {
			defaultConfig, err := config.GetDefaultProjectConfig(DefaultCompilationPlatform)
			if err != nil {
				return nil, "", err
			}
			projectConfig.Compilation = defaultConfig.Compilation
		}

		projectRoot, err := filepath.Abs(filepath.Dir(configPath))
		if err != nil {
			return nil, "", errors.WithStack(err)
		}
		return projectConfig, projectRoot, nil
	}

	// Possibility #3: no config file exists, so use the default project config
	cmdLogger.Debug(fmt.Sprintf("Unable to find a config file in %v, will use the default project configuration for the "+
		"%v compilation platform instead", workingDirectory, DefaultCompilationPlatform))
	projectConfig, err := config.GetDefaultProjectConfig(DefaultCompilationPlatform)
	if err != nil {
		return nil, "", err
	}
	return projectConfig, workingDirectory, nil
}

// updateCompilationTarget will update the compilation target in the projectConfig if the --target flag is used in the
// command
func updateCompilationTarget(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	// If --target was used
	if cmd.Flags().Changed("target") {
		// Get the new target
		newTarget, err := cmd.Flags().GetString("target")
		if err != nil {
			return err
		}

		// Get the platform configuration for the projectConfig
		platformConfig, err := projectConfig.Compilation.GetPlatformConfig()
		if err != nil {
			return err
		}

		// Update the target
		platformConfig.SetTarget(newTarget)

		// Update the compilation config
		err = projectConfig.Compilation.SetPlatformConfig(platformConfig)
		if err != nil {
			return err
		}
	}
	return nil
}

// setupLogging replaces the global logger with one configured by the project's logging config. Every log line of the
// run carries the run id. Returns a function which releases the log file, if one was created.
func setupLogging(loggingConfig config.LoggingConfig, projectRoot string, runID string) (func(), error) {
	if loggingConfig.NoColor {
		colors.DisableColor()
	}
	cmdLogger.SetLevel(loggingConfig.Level)

	writers := make([]io.Writer, 0)
	release := func() {}
	if loggingConfig.LogDirectory != "" {
		logDirectory := loggingConfig.LogDirectory
		if !filepath.IsAbs(logDirectory) {
			logDirectory = filepath.Join(projectRoot, logDirectory)
		}
		logFile, err := utils.CreateFile(logDirectory, fmt.Sprintf("exposed-%s.log", runID))
		if err != nil {
			return nil, err
		}
		writers = append(writers, logFile)
		release = func() {
			_ = logFile.Close()
		}
	}

	logging.GlobalLogger = logging.NewLogger(loggingConfig.Level, true, writers...).NewSubLogger("run", runID)
	return release, nil
}
