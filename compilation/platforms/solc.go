package platforms

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"

	"github.com/Masterminds/semver"
	"github.com/crytic/exposed/compilation/types"
	"github.com/crytic/exposed/utils"
	"golang.org/x/exp/slices"
)

// SolcCompilationConfig compiles a single file or a directory of Solidity files with the system solc binary, using
// the standard-JSON interface and requesting only ASTs.
type SolcCompilationConfig struct {
	// Target is a Solidity file or a directory which is searched recursively for Solidity files.
	Target string `json:"target"`

	// Remappings are import remappings passed to the compiler, e.g. "@openzeppelin/=node_modules/@openzeppelin/".
	Remappings []string `json:"remappings,omitempty"`

	// IgnoredDirectories lists directory names which are skipped while searching the target for sources.
	IgnoredDirectories []string `json:"ignoredDirectories,omitempty"`
}

func NewSolcCompilationConfig(target string) *SolcCompilationConfig {
	return &SolcCompilationConfig{
		Target:             target,
		Remappings:         []string{},
		IgnoredDirectories: []string{"node_modules", "contracts-exposed"},
	}
}

func (s *SolcCompilationConfig) Platform() string {
	return "solc"
}

// GetTarget returns the target for compilation
func (s *SolcCompilationConfig) GetTarget() string {
	return s.Target
}

// SetTarget sets the new target for compilation
func (s *SolcCompilationConfig) SetTarget(newTarget string) {
	s.Target = newTarget
}

func GetSystemSolcVersion() (*semver.Version, error) {
	// Run solc --version to obtain our compiler version.
	out, err := exec.Command("solc", "--version").CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("error while executing solc:\nOUTPUT:\n%s\nERROR: %s\n", string(out), err.Error())
	}

	// Parse the compiler version out of the output
	exp := regexp.MustCompile(`\d+\.\d+\.\d+`)
	versionStr := exp.FindString(string(out))
	if versionStr == "" {
		return nil, errors.New("could not parse solc version using 'solc --version'")
	}

	// Parse our semver string and return it
	return semver.NewVersion(versionStr)
}

// StandardJSONInput is the subset of solc's standard-JSON input used to request ASTs.
type StandardJSONInput struct {
	Language string                            `json:"language"`
	Sources  map[string]StandardJSONInputSource `json:"sources"`
	Settings StandardJSONInputSettings          `json:"settings"`
}

type StandardJSONInputSource struct {
	Urls []string `json:"urls"`
}

type StandardJSONInputSettings struct {
	Remappings      []string                       `json:"remappings,omitempty"`
	Optimizer       map[string]any                 `json:"optimizer"`
	OutputSelection map[string]map[string][]string `json:"outputSelection"`
}

// NewASTOnlyInput creates standard-JSON input for the given source paths that disables the optimizer and requests
// only ASTs, since no bytecode is needed to analyze declarations.
func NewASTOnlyInput(sourcePaths []string, remappings []string) *StandardJSONInput {
	input := &StandardJSONInput{
		Language: "Solidity",
		Sources:  make(map[string]StandardJSONInputSource),
		Settings: StandardJSONInputSettings{
			Remappings: remappings,
			Optimizer:  map[string]any{"enabled": false},
			OutputSelection: map[string]map[string][]string{
				"*": {"": {"ast"}},
			},
		},
	}
	for _, sourcePath := range sourcePaths {
		input.Sources[sourcePath] = StandardJSONInputSource{Urls: []string{sourcePath}}
	}
	return input
}

// discoverSources returns the Solidity source paths of the target relative to baseDirectory, sorted.
func (s *SolcCompilationConfig) discoverSources(baseDirectory string) ([]string, error) {
	info, err := os.Stat(s.Target)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{filepath.ToSlash(filepath.Base(s.Target))}, nil
	}

	sourcePaths := make([]string, 0)
	err = filepath.WalkDir(s.Target, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != s.Target && slices.Contains(s.IgnoredDirectories, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".sol" {
			return nil
		}
		relativePath, err := filepath.Rel(baseDirectory, path)
		if err != nil {
			return err
		}
		sourcePaths = append(sourcePaths, filepath.ToSlash(relativePath))
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(sourcePaths)
	return sourcePaths, nil
}

func (s *SolcCompilationConfig) Compile() ([]types.Compilation, string, error) {
	// Obtain our solc version string
	v, err := GetSystemSolcVersion()
	if err != nil {
		return nil, "", err
	}

	// Source paths are given relative to the directory the compiler runs in, so they become the source unit paths.
	baseDirectory := s.Target
	if info, err := os.Stat(s.Target); err == nil && !info.IsDir() {
		baseDirectory = filepath.Dir(s.Target)
	}
	sourcePaths, err := s.discoverSources(baseDirectory)
	if err != nil {
		return nil, "", fmt.Errorf("could not discover sources of target '%s': %v", s.Target, err)
	}
	if len(sourcePaths) == 0 {
		return nil, "", fmt.Errorf("no Solidity sources were found in target '%s'", s.Target)
	}

	input, err := json.Marshal(NewASTOnlyInput(sourcePaths, s.Remappings))
	if err != nil {
		return nil, "", err
	}

	// Create our command
	cmd := exec.Command("solc", "--standard-json", "--allow-paths", ".")
	cmd.Dir = baseDirectory
	cmd.Stdin = bytes.NewReader(input)
	cmdStdout, cmdStderr, cmdCombined, err := utils.RunCommandWithOutputAndError(cmd)
	if err != nil {
		return nil, "", utils.CommandFailure(cmd, cmdCombined, err)
	}

	// Our compilation succeeded, load the JSON
	var output types.CompilerOutput
	err = json.Unmarshal(cmdStdout, &output)
	if err != nil {
		return nil, "", fmt.Errorf("could not parse solc standard-json output: %v", err)
	}
	if err = output.Err(); err != nil {
		return nil, string(cmdStderr), err
	}

	// Create a compilation unit out of this.
	compilation := types.NewCompilation()
	compilation.CompilerVersion = v.String()
	if err = compilation.AddCompilerOutput(&output); err != nil {
		return nil, "", err
	}

	return []types.Compilation{*compilation}, string(cmdStderr), nil
}
