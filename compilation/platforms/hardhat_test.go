package platforms

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildInfo is a minimal Hardhat build info file holding a single empty contract.
const buildInfo = `{
  "id": "0f3ab5e1b8f9e1d9c3c6d4b2b1a0e9f8",
  "_format": "hh-sol-build-info-1",
  "solcVersion": "0.8.20",
  "solcLongVersion": "0.8.20+commit.a1b79de6",
  "input": {"language": "Solidity", "sources": {}},
  "output": {
    "sources": {
      "contracts/Empty.sol": {
        "id": 0,
        "ast": {
          "absolutePath": "contracts/Empty.sol",
          "exportedSymbols": {"Empty": [2]},
          "id": 3,
          "nodeType": "SourceUnit",
          "nodes": [
            {
              "abstract": false,
              "baseContracts": [],
              "contractKind": "contract",
              "id": 2,
              "linearizedBaseContracts": [2],
              "name": "Empty",
              "nodeType": "ContractDefinition",
              "nodes": [],
              "scope": 3
            }
          ],
          "src": "0:20:0"
        }
      }
    },
    "contracts": {}
  }
}`

func TestReadHardhatBuildInfo(t *testing.T) {
	directory := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(directory, "b.json"), []byte(buildInfo), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(directory, "a.json"), []byte(buildInfo), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(directory, "notes.txt"), []byte("ignored"), 0644))

	compilations, err := ReadHardhatBuildInfo(directory)
	require.NoError(t, err)
	// Every build info file is its own compilation.
	require.Len(t, compilations, 2)
	assert.Equal(t, "0.8.20", compilations[0].CompilerVersion)
	assert.Equal(t, []string{"contracts/Empty.sol"}, compilations[0].SourcePaths())
	assert.Equal(t, "Empty", compilations[0].SourceUnits()[0].Contracts()[0].Name)
}

func TestReadHardhatBuildInfoErrors(t *testing.T) {
	_, err := ReadHardhatBuildInfo(t.TempDir())
	assert.Error(t, err)

	directory := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(directory, "bad.json"), []byte("{"), 0644))
	_, err = ReadHardhatBuildInfo(directory)
	assert.Error(t, err)

	directory = t.TempDir()
	failed := `{"solcVersion": "0.8.20", "output": {"errors": [{"severity": "error", "message": "boom"}], "sources": {}}}`
	require.NoError(t, os.WriteFile(filepath.Join(directory, "failed.json"), []byte(failed), 0644))
	_, err = ReadHardhatBuildInfo(directory)
	assert.ErrorContains(t, err, "boom")
}

func TestHardhatSkipCompile(t *testing.T) {
	target := t.TempDir()
	buildInfoDirectory := filepath.Join(target, "artifacts", "build-info")
	require.NoError(t, os.MkdirAll(buildInfoDirectory, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(buildInfoDirectory, "a.json"), []byte(buildInfo), 0644))

	hardhat := NewHardhatCompilationConfig(target)
	hardhat.SkipCompile = true
	compilations, _, err := hardhat.Compile()
	require.NoError(t, err)
	require.Len(t, compilations, 1)
	assert.Equal(t, "hardhat", hardhat.Platform())
}
