package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/crytic/exposed/cmd/exitcodes"
	"github.com/crytic/exposed/exposure"
	"github.com/crytic/exposed/exposure/config"
	"github.com/crytic/exposed/exposure/output"
	"github.com/crytic/exposed/logging/colors"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// generateCmd represents the command provider for generate
var generateCmd = &cobra.Command{
	Use:               "generate",
	Short:             "Generates exposed contracts for a project",
	Long:              `Compiles a project and generates, for every contract with internal members, a contract exposing them`,
	Args:              cmdValidateGenerateArgs,
	ValidArgsFunction: cmdValidFlagArgs,
	RunE:              cmdRunGenerate,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	// Add all the flags allowed for the generate command
	err := addGenerateFlags(generateCmd)
	if err != nil {
		cmdLogger.Panic("Failed to initialize the generate command", err)
	}

	// Add the generate command and its associated flags to the root command
	rootCmd.AddCommand(generateCmd)
}

// cmdValidateGenerateArgs makes sure that there are no positional arguments provided to the generate command
func cmdValidateGenerateArgs(cmd *cobra.Command, args []string) error {
	// Make sure we have no positional args
	if err := cobra.NoArgs(cmd, args); err != nil {
		err = fmt.Errorf("generate does not accept any positional arguments, only flags and their associated values")
		cmdLogger.Error("Failed to validate args to the generate command", err)
		return err
	}
	return nil
}

// cmdRunGenerate executes the CLI generate command. The project configuration is loaded, updated with the provided
// flags and validated before the project is compiled, exposed and written to the output directory.
func cmdRunGenerate(cmd *cobra.Command, args []string) error {
	projectConfig, projectRoot, err := loadProjectConfig(cmd)
	if err != nil {
		cmdLogger.Error("Failed to run the generate command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	// Update the project configuration given whatever flags were set using the CLI
	err = updateProjectConfigWithGenerateFlags(cmd, projectConfig)
	if err == nil {
		err = projectConfig.Validate()
	}
	if err != nil {
		cmdLogger.Error("Failed to run the generate command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	releaseLogging, err := setupLogging(projectConfig.Logging, projectRoot, runID)
	if err != nil {
		cmdLogger.Error("Failed to run the generate command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}
	defer releaseLogging()

	// Change our working directory to the project root, as compilation targets are relative to it.
	err = os.Chdir(projectRoot)
	if err != nil {
		cmdLogger.Error("Failed to run the generate command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	result, err := runGeneration(projectConfig, projectRoot, runID, force)
	if err != nil {
		cmdLogger.Error("Failed to run the generate command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}
	logGenerationSummary(result)

	// Sources which could not be exposed do not prevent the others from being written, but fail the command.
	if result.generationErr != nil {
		return exitcodes.NewErrorWithExitCode(result.generationErr, exitcodes.ExitCodeGenerationError)
	}
	return nil
}

// generationResult describes the outcome of a generation run.
type generationResult struct {
	// files are the generated files, keyed by destination path.
	files map[string]*exposure.GeneratedFile

	// summary describes which files were written.
	summary *output.Summary

	// generationErr joins the errors of every source which could not be exposed.
	generationErr error
}

// runGeneration compiles the project located at projectRoot, exposes its contracts and writes the generated files to
// the output directory. Errors exposing single sources are returned in the result, every other error is returned
// directly.
func runGeneration(projectConfig *config.ProjectConfig, projectRoot string, runID string, force bool) (*generationResult, error) {
	generator, err := exposure.NewGenerator(projectConfig.Exposure.ToOptions(projectRoot))
	if err != nil {
		return nil, err
	}

	// Previously generated files must not be compiled into the sources they are generated from.
	cmdLogger.Info("Compiling project with the ", colors.Bold, projectConfig.Compilation.Platform, colors.Reset, " platform")
	compilations, compilationOutput, err := projectConfig.Compilation.Compile(projectConfig.Exposure.OutDir)
	if err != nil {
		return nil, errors.Wrap(err, "could not compile the project")
	}
	if strings.TrimSpace(compilationOutput) != "" {
		cmdLogger.Debug("Compilation output:\n", compilationOutput)
	}

	// Node ids are only unique within a single compilation, so each one is exposed on its own.
	result := &generationResult{files: make(map[string]*exposure.GeneratedFile)}
	generationErrs := make([]error, 0)
	for _, compilation := range compilations {
		files, err := generator.Generate(compilation.SourceUnits(), projectConfig.Exposure.IsIncluded, projectConfig.Exposure.IsExcluded)
		if err != nil {
			generationErrs = append(generationErrs, err)
		}
		for destination, file := range files {
			if _, exists := result.files[destination]; exists {
				continue
			}
			checkCompilerVersion(compilation.CompilerVersion, file)
			result.files[destination] = file
		}
	}
	if len(generationErrs) > 0 {
		result.generationErr = errors.Errorf("some sources could not be exposed:\n%v", joinErrors(generationErrs))
	}

	writer, err := output.NewWriter(filepath.Join(projectRoot, projectConfig.Exposure.OutDir), runID, force)
	if err != nil {
		return nil, err
	}
	defer writer.Close()
	result.summary, err = writer.Write(result.files)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// joinErrors joins the messages of the provided errors, one per line.
func joinErrors(errs []error) string {
	messages := make([]string, 0, len(errs))
	for _, err := range errs {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "\n")
}

// checkCompilerVersion warns if the compiler version of a compilation is too old to compile a generated file. Returns
// whether the version is known to be sufficient.
func checkCompilerVersion(compilerVersion string, file *exposure.GeneratedFile) bool {
	if compilerVersion == "" || file.MinimumCompilerVersion == nil {
		return false
	}
	version, err := semver.NewVersion(compilerVersion)
	if err != nil {
		cmdLogger.Debug("Could not parse compiler version '", compilerVersion, "'", err)
		return false
	}
	if version.LessThan(file.MinimumCompilerVersion) {
		cmdLogger.Warn(
			"The project is compiled with solc ", colors.Bold, version.String(), colors.Reset, ", but ",
			file.SourceName, " requires solc ", colors.Bold, ">=", file.MinimumCompilerVersion.String(), colors.Reset,
		)
		return false
	}
	return true
}

// exposureRatio returns the percentage of internal members which were exposed, rounded to one decimal place.
func exposureRatio(exposedMembers int, internalMembers int) decimal.Decimal {
	if internalMembers == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(exposedMembers)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(internalMembers))).
		Round(1)
}

// logGenerationSummary logs the generated contracts and the files which were written.
func logGenerationSummary(result *generationResult) {
	var contracts, abstractContracts, internalMembers, exposedMembers int
	destinations := maps.Keys(result.files)
	slices.Sort(destinations)
	for _, destination := range destinations {
		for _, contract := range result.files[destination].Contracts {
			contracts++
			if contract.Abstract {
				abstractContracts++
			}
			internalMembers += contract.InternalMembers
			exposedMembers += contract.ExposedMembers
		}
	}

	cmdLogger.Info(
		"Generated ", colors.Bold, contracts, colors.Reset, " exposed contract(s) (", abstractContracts, " abstract), exposing ",
		exposedMembers, " of ", internalMembers, " internal members (", exposureRatio(exposedMembers, internalMembers).StringFixed(1), "%)",
	)
	summary := result.summary
	cmdLogger.Info(
		"Wrote ", colors.GreenBold, len(summary.Written), colors.Reset, " file(s), ",
		len(summary.Skipped), " unchanged, ",
		colors.YellowBold, len(summary.Removed), colors.Reset, " removed",
	)
}
