package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/crytic/exposed/compilation/platforms"
	"github.com/crytic/exposed/exposure/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeProjectFile writes a file of an existing project.
func writeProjectFile(t *testing.T, projectRoot string, name string, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(projectRoot, name), []byte(content), 0644))
}

func TestDetectProjectLayout(t *testing.T) {
	t.Parallel()

	t.Run("hardhat", func(t *testing.T) {
		projectRoot := t.TempDir()
		writeProjectFile(t, projectRoot, "hardhat.config.ts", "export default {};\n")
		writeProjectFile(t, projectRoot, "foundry.toml", "[profile.default]\nsrc = \"src\"\n")

		layout := detectProjectLayout(projectRoot)
		assert.Equal(t, projectLayout{platform: "hardhat", sourcesDir: "contracts"}, layout)
	})

	t.Run("foundry", func(t *testing.T) {
		projectRoot := t.TempDir()
		writeProjectFile(t, projectRoot, "foundry.toml", "[profile.default]\nsrc = 'protocol/src/'\nout = \"out\"\n")
		writeProjectFile(t, projectRoot, "remappings.txt", "# dependencies\n@openzeppelin/=lib/openzeppelin-contracts/\n\nforge-std/=lib/forge-std/src/\n")

		layout := detectProjectLayout(projectRoot)
		assert.Equal(t, "solc", layout.platform)
		assert.Equal(t, "protocol/src", layout.sourcesDir)
		assert.Equal(t, []string{"@openzeppelin/=lib/openzeppelin-contracts/", "forge-std/=lib/forge-std/src/"}, layout.remappings)
	})

	t.Run("foundry defaults", func(t *testing.T) {
		projectRoot := t.TempDir()
		writeProjectFile(t, projectRoot, "foundry.toml", "[profile.default]\nlibs = [\"lib\"]\n")

		layout := detectProjectLayout(projectRoot)
		assert.Equal(t, projectLayout{platform: "solc", sourcesDir: "src"}, layout)
	})

	t.Run("unknown", func(t *testing.T) {
		layout := detectProjectLayout(t.TempDir())
		assert.Equal(t, projectLayout{platform: DefaultCompilationPlatform, sourcesDir: "contracts"}, layout)
	})
}

func TestApplyProjectLayout(t *testing.T) {
	t.Parallel()

	projectConfig, err := config.GetDefaultProjectConfig("solc")
	require.NoError(t, err)
	layout := projectLayout{platform: "solc", sourcesDir: "src", remappings: []string{"forge-std/=lib/forge-std/src/"}}
	require.NoError(t, applyProjectLayout(projectConfig, layout))

	assert.Equal(t, "src", projectConfig.Exposure.SourcesDir)
	assert.Equal(t, "src-exposed", projectConfig.Exposure.OutDir)
	platformConfig, err := projectConfig.Compilation.GetPlatformConfig()
	require.NoError(t, err)
	require.IsType(t, &platforms.SolcCompilationConfig{}, platformConfig)
	solcConfig := platformConfig.(*platforms.SolcCompilationConfig)
	assert.Equal(t, []string{"forge-std/=lib/forge-std/src/"}, solcConfig.Remappings)
	assert.Equal(t, []string{"node_modules", "contracts-exposed", "src-exposed"}, solcConfig.IgnoredDirectories)
	require.NoError(t, projectConfig.Validate())

	// Hardhat keeps its platform config.
	projectConfig, err = config.GetDefaultProjectConfig("hardhat")
	require.NoError(t, err)
	require.NoError(t, applyProjectLayout(projectConfig, projectLayout{platform: "hardhat", sourcesDir: "contracts"}))
	assert.Equal(t, "contracts-exposed", projectConfig.Exposure.OutDir)
	assert.Equal(t, "hardhat", projectConfig.Compilation.Platform)
}

func TestUpdateProjectConfigWithInitFlags(t *testing.T) {
	t.Parallel()

	initCommand := &cobra.Command{Use: "init"}
	require.NoError(t, addInitFlags(initCommand))
	require.NoError(t, initCommand.ParseFlags([]string{"--sources", "src", "--prefix", "x_", "--initializers"}))

	projectConfig, err := config.GetDefaultProjectConfig(DefaultCompilationPlatform)
	require.NoError(t, err)
	require.NoError(t, updateProjectConfigWithInitFlags(initCommand, projectConfig))
	assert.Equal(t, "src", projectConfig.Exposure.SourcesDir)
	assert.Equal(t, "src-exposed", projectConfig.Exposure.OutDir)
	require.NotNil(t, projectConfig.Exposure.Prefix)
	assert.Equal(t, "x_", *projectConfig.Exposure.Prefix)
	assert.True(t, projectConfig.Exposure.Initializers)
	assert.False(t, projectConfig.Exposure.Imports)
}
