package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/crytic/exposed/compilation"
	"github.com/crytic/exposed/compilation/platforms"
	"github.com/crytic/exposed/exposure"
	"github.com/crytic/exposed/exposure/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newGenerateCommand returns a command carrying the generate flags, parsed from the given arguments.
func newGenerateCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "generate"}
	require.NoError(t, addGenerateFlags(cmd))
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestUpdateProjectConfigWithGenerateFlags(t *testing.T) {
	t.Parallel()

	projectConfig, err := config.GetDefaultProjectConfig(DefaultCompilationPlatform)
	require.NoError(t, err)

	cmd := newGenerateCommand(t,
		"--platform", "solc",
		"--target", "src/Token.sol",
		"--prefix", "x_",
		"--include", "token/**,Vault.sol",
		"--exclude", "mocks/**",
		"--out", "generated",
		"--sources", "src",
		"--imports",
		"--initializers",
		"--log-level", "debug",
		"--no-color",
	)
	require.NoError(t, updateProjectConfigWithGenerateFlags(cmd, projectConfig))

	require.NotNil(t, projectConfig.Exposure.Prefix)
	assert.Equal(t, "x_", *projectConfig.Exposure.Prefix)
	assert.Equal(t, []string{"token/**", "Vault.sol"}, projectConfig.Exposure.Include)
	assert.Equal(t, []string{"mocks/**"}, projectConfig.Exposure.Exclude)
	assert.Equal(t, "generated", projectConfig.Exposure.OutDir)
	assert.Equal(t, "src", projectConfig.Exposure.SourcesDir)
	assert.True(t, projectConfig.Exposure.Imports)
	assert.True(t, projectConfig.Exposure.Initializers)
	assert.Equal(t, zerolog.DebugLevel, projectConfig.Logging.Level)
	assert.True(t, projectConfig.Logging.NoColor)

	assert.Equal(t, "solc", projectConfig.Compilation.Platform)
	platformConfig, err := projectConfig.Compilation.GetPlatformConfig()
	require.NoError(t, err)
	require.IsType(t, &platforms.SolcCompilationConfig{}, platformConfig)
	assert.Equal(t, "src/Token.sol", platformConfig.GetTarget())
	require.NoError(t, projectConfig.Validate())
}

func TestUpdateProjectConfigWithoutFlags(t *testing.T) {
	t.Parallel()

	projectConfig, err := config.GetDefaultProjectConfig(DefaultCompilationPlatform)
	require.NoError(t, err)
	expected, err := config.GetDefaultProjectConfig(DefaultCompilationPlatform)
	require.NoError(t, err)

	require.NoError(t, updateProjectConfigWithGenerateFlags(newGenerateCommand(t), projectConfig))
	assert.Equal(t, expected, projectConfig)
}

func TestUpdateProjectConfigKeepsPlatformConfig(t *testing.T) {
	t.Parallel()

	// Requesting the configured platform keeps its settings.
	hardhatConfig := platforms.NewHardhatCompilationConfig("project")
	hardhatConfig.SkipCompile = true
	compilationConfig, err := compilation.NewCompilationConfigFromPlatformConfig(hardhatConfig)
	require.NoError(t, err)
	projectConfig, err := config.GetDefaultProjectConfig("")
	require.NoError(t, err)
	projectConfig.Compilation = compilationConfig

	require.NoError(t, updateProjectConfigWithGenerateFlags(newGenerateCommand(t, "--platform", "hardhat"), projectConfig))
	platformConfig, err := projectConfig.Compilation.GetPlatformConfig()
	require.NoError(t, err)
	require.IsType(t, &platforms.HardhatCompilationConfig{}, platformConfig)
	assert.True(t, platformConfig.(*platforms.HardhatCompilationConfig).SkipCompile)
	assert.Equal(t, "project", platformConfig.GetTarget())
}

func TestUpdateProjectConfigInvalidFlags(t *testing.T) {
	t.Parallel()

	projectConfig, err := config.GetDefaultProjectConfig(DefaultCompilationPlatform)
	require.NoError(t, err)
	assert.Error(t, updateProjectConfigWithGenerateFlags(newGenerateCommand(t, "--log-level", "loud"), projectConfig))

	projectConfig, err = config.GetDefaultProjectConfig(DefaultCompilationPlatform)
	require.NoError(t, err)
	assert.Error(t, updateProjectConfigWithGenerateFlags(newGenerateCommand(t, "--platform", "truffle"), projectConfig))

	// An empty prefix is accepted by the flags but rejected by validation.
	projectConfig, err = config.GetDefaultProjectConfig(DefaultCompilationPlatform)
	require.NoError(t, err)
	require.NoError(t, updateProjectConfigWithGenerateFlags(newGenerateCommand(t, "--prefix", ""), projectConfig))
	var configurationError *exposure.ConfigurationError
	require.ErrorAs(t, projectConfig.Validate(), &configurationError)
	assert.Equal(t, "prefix", configurationError.Option)
}

func TestExposureRatio(t *testing.T) {
	t.Parallel()

	tests := []struct {
		exposed  int
		internal int
		expected string
	}{
		{3, 4, "75.0"},
		{1, 3, "33.3"},
		{2, 3, "66.7"},
		{5, 5, "100.0"},
		{0, 7, "0.0"},
		{0, 0, "0.0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, exposureRatio(tt.exposed, tt.internal).StringFixed(1), "%d/%d", tt.exposed, tt.internal)
	}
}

func TestCheckCompilerVersion(t *testing.T) {
	t.Parallel()

	file := &exposure.GeneratedFile{SourceName: "contracts-exposed/Token.sol", MinimumCompilerVersion: exposure.MinimumCompilerVersion}

	assert.True(t, checkCompilerVersion("0.8.20", file))
	assert.True(t, checkCompilerVersion("0.6.0", file))
	assert.True(t, checkCompilerVersion("0.8.20+commit.a1b79de6", file))
	assert.False(t, checkCompilerVersion("0.5.17", file))
	assert.False(t, checkCompilerVersion("", file))
	assert.False(t, checkCompilerVersion("latest", file))
}

// writeHardhatProject creates a hardhat project whose only build info holds the compiler output fixture, and returns a
// project config reading it without compiling.
func writeHardhatProject(t *testing.T, projectRoot string) *config.ProjectConfig {
	t.Helper()

	compilerOutput, err := os.ReadFile(filepath.Join("..", "compilation", "types", "testdata", "compiler_output.json"))
	require.NoError(t, err)
	buildInfo, err := json.Marshal(map[string]any{
		"solcVersion": "0.8.20",
		"output":      json.RawMessage(compilerOutput),
	})
	require.NoError(t, err)

	buildInfoDirectory := filepath.Join(projectRoot, "artifacts", "build-info")
	require.NoError(t, os.MkdirAll(buildInfoDirectory, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(buildInfoDirectory, "a1b2c3.json"), buildInfo, 0644))

	hardhatConfig := platforms.NewHardhatCompilationConfig(projectRoot)
	hardhatConfig.SkipCompile = true
	compilationConfig, err := compilation.NewCompilationConfigFromPlatformConfig(hardhatConfig)
	require.NoError(t, err)

	projectConfig, err := config.GetDefaultProjectConfig("")
	require.NoError(t, err)
	projectConfig.Compilation = compilationConfig
	require.NoError(t, projectConfig.Validate())
	return projectConfig
}

func TestRunGeneration(t *testing.T) {
	t.Parallel()

	projectRoot := t.TempDir()
	projectConfig := writeHardhatProject(t, projectRoot)
	token := filepath.Join(projectRoot, "contracts-exposed", "Token.sol")

	result, err := runGeneration(projectConfig, projectRoot, "first", false)
	require.NoError(t, err)
	require.NoError(t, result.generationErr)
	require.Contains(t, result.files, token)
	assert.Contains(t, result.summary.Written, token)

	b, err := os.ReadFile(token)
	require.NoError(t, err)
	assert.Contains(t, string(b), "contract $Token is Token {")
	assert.Contains(t, string(b), `import "../contracts/Token.sol";`)
	assert.Equal(t, result.files[token].SourceText, string(b))

	// A second run finds every file unchanged.
	again, err := runGeneration(projectConfig, projectRoot, "second", false)
	require.NoError(t, err)
	assert.Empty(t, again.summary.Written)
	assert.Contains(t, again.summary.Skipped, token)
	require.NotNil(t, again.summary.PreviousRun)
	assert.Equal(t, "first", again.summary.PreviousRun.ID)
	assert.Equal(t, result.summary.Run.Hash, again.summary.Run.Hash)
}

func TestRunGenerationExcludes(t *testing.T) {
	t.Parallel()

	projectRoot := t.TempDir()
	projectConfig := writeHardhatProject(t, projectRoot)
	projectConfig.Exposure.Exclude = []string{"Token.sol"}

	result, err := runGeneration(projectConfig, projectRoot, "run", false)
	require.NoError(t, err)
	assert.NotContains(t, result.files, filepath.Join(projectRoot, "contracts-exposed", "Token.sol"))
	assert.NoFileExists(t, filepath.Join(projectRoot, "contracts-exposed", "Token.sol"))
}

func TestRunGenerationMissingBuildInfo(t *testing.T) {
	t.Parallel()

	projectRoot := t.TempDir()
	hardhatConfig := platforms.NewHardhatCompilationConfig(projectRoot)
	hardhatConfig.SkipCompile = true
	compilationConfig, err := compilation.NewCompilationConfigFromPlatformConfig(hardhatConfig)
	require.NoError(t, err)
	projectConfig, err := config.GetDefaultProjectConfig("")
	require.NoError(t, err)
	projectConfig.Compilation = compilationConfig

	_, err = runGeneration(projectConfig, projectRoot, "run", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not compile the project")
	assert.NoDirExists(t, filepath.Join(projectRoot, "contracts-exposed"))
}
