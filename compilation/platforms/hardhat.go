package platforms

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/crytic/exposed/compilation/types"
	"github.com/crytic/exposed/utils"
	"golang.org/x/exp/slices"
)

// HardhatCompilationConfig obtains ASTs from the build info files a Hardhat project writes on compilation.
type HardhatCompilationConfig struct {
	// Target is the Hardhat project directory.
	Target string `json:"target"`

	// UseNpx indicates whether the hardhat command should be run through npx.
	UseNpx bool `json:"useNpx"`

	// Command overrides the base command used to invoke hardhat.
	Command string `json:"command,omitempty"`

	// SkipCompile reads existing build info files without running the compiler first.
	SkipCompile bool `json:"skipCompile"`

	// BuildInfoDirectory overrides the build info directory, relative to Target. Defaults to artifacts/build-info.
	BuildInfoDirectory string `json:"buildInfoDirectory,omitempty"`
}

func NewHardhatCompilationConfig(target string) *HardhatCompilationConfig {
	return &HardhatCompilationConfig{
		Target:             target,
		UseNpx:             true,
		Command:            "",
		SkipCompile:        false,
		BuildInfoDirectory: "",
	}
}

func (s *HardhatCompilationConfig) Platform() string {
	return "hardhat"
}

// GetTarget returns the target for compilation
func (s *HardhatCompilationConfig) GetTarget() string {
	return s.Target
}

// SetTarget sets the new target for compilation
func (s *HardhatCompilationConfig) SetTarget(newTarget string) {
	s.Target = newTarget
}

// hardhatBuildInfo is the subset of a Hardhat build info file consumed here.
type hardhatBuildInfo struct {
	SolcVersion string               `json:"solcVersion"`
	Output      types.CompilerOutput `json:"output"`
}

func (s *HardhatCompilationConfig) Compile() ([]types.Compilation, string, error) {
	var out []byte
	if !s.SkipCompile {
		// Determine the base command to use.
		var baseCommandStr = "hardhat"
		if s.Command != "" {
			baseCommandStr = s.Command
		}

		// Execute hardhat to compile our target.
		var cmd *exec.Cmd
		if s.UseNpx {
			cmd = exec.Command("npx", baseCommandStr, "compile")
		} else {
			cmd = exec.Command(baseCommandStr, "compile")
		}
		cmd.Dir = s.Target
		_, _, cmdCombined, err := utils.RunCommandWithOutputAndError(cmd)
		out = cmdCombined
		if err != nil {
			return nil, "", utils.CommandFailure(cmd, out, err)
		}
	}

	buildInfoDirectory := s.BuildInfoDirectory
	if buildInfoDirectory == "" {
		buildInfoDirectory = filepath.Join("artifacts", "build-info")
	}
	compilations, err := ReadHardhatBuildInfo(filepath.Join(s.Target, buildInfoDirectory))
	if err != nil {
		return nil, string(out), err
	}
	return compilations, string(out), nil
}

// ReadHardhatBuildInfo reads every build info file of the given directory and returns one compilation per file,
// ordered by file name. Each build info is an independent compiler run, so their AST ids must not be mixed.
func ReadHardhatBuildInfo(buildInfoDirectory string) ([]types.Compilation, error) {
	matches, err := filepath.Glob(filepath.Join(buildInfoDirectory, "*.json"))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no build info files were found in '%s'", buildInfoDirectory)
	}
	slices.Sort(matches)

	compilations := make([]types.Compilation, 0, len(matches))
	for _, match := range matches {
		b, err := os.ReadFile(match)
		if err != nil {
			return nil, err
		}

		var buildInfo hardhatBuildInfo
		if err = json.Unmarshal(b, &buildInfo); err != nil {
			return nil, fmt.Errorf("could not parse build info '%s': %v", match, err)
		}
		if err = buildInfo.Output.Err(); err != nil {
			return nil, err
		}

		compilation := types.NewCompilation()
		compilation.CompilerVersion = buildInfo.SolcVersion
		if err = compilation.AddCompilerOutput(&buildInfo.Output); err != nil {
			return nil, err
		}
		compilations = append(compilations, *compilation)
	}
	return compilations, nil
}
