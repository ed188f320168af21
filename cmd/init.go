package cmd

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/crytic/exposed/compilation"
	"github.com/crytic/exposed/compilation/platforms"
	"github.com/crytic/exposed/exposure"
	"github.com/crytic/exposed/exposure/config"
	"github.com/crytic/exposed/logging/colors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/exp/slices"
)

// Get supported platforms for customized static completions of "init" flag `$ exposed init <tab> <tab>`
// and to cache supported platforms for CLI arguments validation
var supportedPlatforms = compilation.GetSupportedCompilationPlatforms()

// initCmd represents the command provider for init
var initCmd = &cobra.Command{
	Use:   "init [platform]",
	Short: "Initializes a project configuration",
	Long: `Initializes a project configuration. The layout of the project in the output directory is detected: a hardhat
config selects the hardhat platform, a foundry.toml selects solc along with the project's sources directory and
remappings. A platform argument overrides the detected one.`,
	Args:              cmdValidateInitArgs,
	ValidArgsFunction: cmdValidInitArgs,
	RunE:              cmdRunInit,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	// Add flags to init command
	err := addInitFlags(initCmd)
	if err != nil {
		cmdLogger.Panic("Failed to initialize the init command", err)
	}

	// Add the init command and its associated flags to the root command
	rootCmd.AddCommand(initCmd)
}

// cmdValidInitArgs completes the unused flags of the init command and, until a flag is set, the supported platforms.
func cmdValidInitArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var suggestions []string
	flagUsed := false
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		if flag.Changed {
			flagUsed = true
			return
		}
		suggestions = append(suggestions, "--"+flag.Name)
	})
	if len(args) == 0 && !flagUsed {
		suggestions = append(suggestions, supportedPlatforms...)
	}
	return suggestions, cobra.ShellCompDirectiveNoFileComp
}

// cmdValidateInitArgs validates CLI arguments
func cmdValidateInitArgs(cmd *cobra.Command, args []string) error {
	// Make sure we have no more than 1 arg
	if err := cobra.RangeArgs(0, 1)(cmd, args); err != nil {
		err = fmt.Errorf("init accepts at most 1 platform argument (options: %s). "+
			"default platform is %v\n", strings.Join(supportedPlatforms, ", "), DefaultCompilationPlatform)
		cmdLogger.Error("Failed to validate args to the init command", err)
		return err
	}

	// Ensure the optional provided argument refers to a supported platform
	if len(args) == 1 && !compilation.IsSupportedCompilationPlatform(args[0]) {
		err := fmt.Errorf("init was provided invalid platform argument '%s' (options: %s)", args[0], strings.Join(supportedPlatforms, ", "))
		cmdLogger.Error("Failed to validate args to the init command", err)
		return err
	}

	return nil
}

// cmdRunInit executes the init CLI command and updates the project configuration with any flags
func cmdRunInit(cmd *cobra.Command, args []string) error {
	// Check to see if --out flag was used and store the value of --out flag
	outputFlagUsed := cmd.Flags().Changed("out")
	outputPath, err := cmd.Flags().GetString("out")
	if err != nil {
		cmdLogger.Error("Failed to run the init command", err)
		return err
	}
	// If we weren't provided an output path (flag was not used), we use our working directory
	if !outputFlagUsed {
		workingDirectory, err := os.Getwd()
		if err != nil {
			cmdLogger.Error("Failed to run the init command", err)
			return err
		}
		outputPath = filepath.Join(workingDirectory, config.DefaultProjectConfigFilename)
	}

	// The detected layout picks the platform unless one was requested.
	layout := detectProjectLayout(filepath.Dir(outputPath))
	platform := layout.platform
	if len(args) == 1 {
		platform = args[0]
	}
	projectConfig, err := config.GetDefaultProjectConfig(platform)
	if err == nil {
		err = applyProjectLayout(projectConfig, layout)
	}
	if err != nil {
		cmdLogger.Error("Failed to run the init command", err)
		return err
	}
	cmdLogger.Info("Using the ", colors.Bold, platform, colors.Reset, " platform with sources in ", colors.Bold, projectConfig.Exposure.SourcesDir, colors.Reset)

	// Update the project configuration given whatever flags were set using the CLI
	err = updateProjectConfigWithInitFlags(cmd, projectConfig)
	if err != nil {
		cmdLogger.Error("Failed to run the init command", err)
		return err
	}

	if _, err = os.Stat(outputPath); err == nil {
		// Prompt user for overwrite confirmation
		fmt.Print("The file already exists. Overwrite? (y/n): ")
		var response string
		if _, err := fmt.Scan(&response); err != nil {
			cmdLogger.Error("Failed to scan input", err)
			return err
		}
		if response != "y" && response != "Y" {
			fmt.Println("Operation canceled.")
			return nil
		}
	}

	// Validate and write our project configuration
	err = projectConfig.Validate()
	if err != nil {
		cmdLogger.Error("Failed to run the init command", err)
		return err
	}
	err = projectConfig.WriteToFile(outputPath)
	if err != nil {
		cmdLogger.Error("Failed to run the init command", err)
		return err
	}

	// Print a success message
	if absoluteOutputPath, err := filepath.Abs(outputPath); err == nil {
		outputPath = absoluteOutputPath
	}
	cmdLogger.Info("Project configuration successfully output to: ", colors.Bold, outputPath, colors.Reset)
	return nil
}

// hardhatConfigFilenames lists the config file names identifying a hardhat project.
var hardhatConfigFilenames = []string{"hardhat.config.ts", "hardhat.config.js", "hardhat.config.cjs", "hardhat.config.mjs"}

// foundrySourcesPattern matches the sources directory setting of a foundry.toml.
var foundrySourcesPattern = regexp.MustCompile(`(?m)^\s*src\s*=\s*["']([^"']+)["']`)

// projectLayout describes the layout of an existing project.
type projectLayout struct {
	// platform is the compilation platform able to build the project.
	platform string

	// sourcesDir is the directory holding the project's own sources, relative to the project root.
	sourcesDir string

	// remappings are import remappings the project compiles with.
	remappings []string
}

// detectProjectLayout inspects the project rooted at projectRoot. Hardhat projects are built by hardhat, foundry
// projects by solc with the sources directory and remappings foundry uses. Any other directory gets the default
// platform and sources directory.
func detectProjectLayout(projectRoot string) projectLayout {
	for _, filename := range hardhatConfigFilenames {
		if _, err := os.Stat(filepath.Join(projectRoot, filename)); err == nil {
			return projectLayout{platform: "hardhat", sourcesDir: exposure.DefaultSourcesRoot}
		}
	}

	foundryConfig, err := os.ReadFile(filepath.Join(projectRoot, "foundry.toml"))
	if err != nil {
		return projectLayout{platform: DefaultCompilationPlatform, sourcesDir: exposure.DefaultSourcesRoot}
	}
	layout := projectLayout{platform: "solc", sourcesDir: "src"}
	if match := foundrySourcesPattern.FindSubmatch(foundryConfig); match != nil {
		layout.sourcesDir = filepath.ToSlash(filepath.Clean(string(match[1])))
	}
	layout.remappings = readRemappings(filepath.Join(projectRoot, "remappings.txt"))
	return layout
}

// readRemappings reads one remapping per line from a remappings file, skipping blank lines and comments. A missing
// file yields no remappings.
func readRemappings(path string) []string {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	remappings := make([]string, 0)
	scanner := bufio.NewScanner(bytes.NewReader(b))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		remappings = append(remappings, line)
	}
	return remappings
}

// applyProjectLayout seeds the exposure directories of a project config from a detected layout. Generated sources are
// written next to the sources, in a directory suffixed with "-exposed". For solc, the remappings are carried over and
// the output directory is skipped during source discovery.
func applyProjectLayout(projectConfig *config.ProjectConfig, layout projectLayout) error {
	projectConfig.Exposure.SourcesDir = layout.sourcesDir
	projectConfig.Exposure.OutDir = layout.sourcesDir + "-exposed"
	if projectConfig.Compilation == nil {
		return nil
	}

	platformConfig, err := projectConfig.Compilation.GetPlatformConfig()
	if err != nil {
		return err
	}
	solcConfig, ok := platformConfig.(*platforms.SolcCompilationConfig)
	if !ok {
		return nil
	}
	if len(layout.remappings) > 0 {
		solcConfig.Remappings = layout.remappings
	}
	outDirName := filepath.Base(projectConfig.Exposure.OutDir)
	if !slices.Contains(solcConfig.IgnoredDirectories, outDirName) {
		solcConfig.IgnoredDirectories = append(solcConfig.IgnoredDirectories, outDirName)
	}
	return projectConfig.Compilation.SetPlatformConfig(solcConfig)
}
