package config

import (
	"encoding/json"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/crytic/exposed/compilation"
	"github.com/crytic/exposed/exposure"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// ProjectConfig describes the configuration of an exposure project.
type ProjectConfig struct {
	// Exposure describes the configuration used to generate exposed contracts.
	Exposure ExposureConfig `json:"exposure"`

	// Compilation describes the configuration used to compile the underlying project.
	Compilation *compilation.CompilationConfig `json:"compilation"`

	// Logging describes the configuration used for logging.
	Logging LoggingConfig `json:"logging"`
}

// ExposureConfig describes the configuration options used by the exposure.Generator.
type ExposureConfig struct {
	// Prefix is prepended to the names of exposed contracts and their functions. A nil prefix selects the default.
	Prefix *string `json:"prefix,omitempty"`

	// Include lists glob patterns, relative to the sources directory, of the source files to expose.
	Include []string `json:"include"`

	// Exclude lists glob patterns, relative to the sources directory, of the source files which must not be exposed.
	Exclude []string `json:"exclude"`

	// OutDir is the directory, relative to the project root, generated files are written to.
	OutDir string `json:"outDir"`

	// SourcesDir is the directory, relative to the project root, holding the project's sources.
	SourcesDir string `json:"sourcesDir"`

	// Imports describes whether concrete contracts imported by alias from outside the sources are exposed as well.
	Imports bool `json:"imports"`

	// Initializers describes whether ancestors using upgradeable initializers are initialized through them.
	Initializers bool `json:"initializers"`

	// Marker is the tag generated contracts embed to be recognized in bytecode. Empty selects the default.
	Marker string `json:"marker,omitempty"`
}

// LoggingConfig describes the configuration options used for logging
type LoggingConfig struct {
	// Level describes whether logs of certain severity levels (eg info, warning, etc.) will be emitted or discarded.
	// Increasing level values represent more severe logs
	Level zerolog.Level `json:"level"`

	// LogDirectory describes the directory where structured log _files_ will be outputted. If the string is empty, then
	// no log files are kept
	LogDirectory string `json:"logDirectory"`

	// NoColor disables colorized console output.
	NoColor bool `json:"noColor"`
}

// isYAML indicates whether the file at the given path is YAML-serialized, judging by its extension.
func isYAML(filePath string) bool {
	extension := strings.ToLower(filepath.Ext(filePath))
	return extension == ".yaml" || extension == ".yml"
}

// ReadProjectConfigFromFile reads a ProjectConfig from a provided file path. YAML files are recognized by their
// extension, every other file is read as JSON. Unset fields keep their default values.
// Returns the ProjectConfig if it succeeds, or an error if one occurs.
func ReadProjectConfigFromFile(filePath string) (*ProjectConfig, error) {
	// Read our project configuration file data
	b, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	// YAML is converted to JSON first, so the platform config is kept as raw JSON.
	if isYAML(filePath) {
		var document any
		if err = yaml.Unmarshal(b, &document); err != nil {
			return nil, errors.Wrapf(err, "could not parse project config '%s'", filePath)
		}
		if b, err = json.Marshal(document); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	// Parse the project configuration
	projectConfig, err := GetDefaultProjectConfig("")
	if err != nil {
		return nil, err
	}
	err = json.Unmarshal(b, projectConfig)
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse project config '%s'", filePath)
	}

	return projectConfig, nil
}

// WriteToFile writes the ProjectConfig to a provided file path, YAML-serialized if the path has a YAML extension and
// JSON-serialized otherwise.
// Returns an error if one occurs.
func (p *ProjectConfig) WriteToFile(filePath string) error {
	// Serialize the configuration
	b, err := json.MarshalIndent(p, "", "\t")
	if err != nil {
		return errors.WithStack(err)
	}

	if isYAML(filePath) {
		if b, err = jsonToYAML(b); err != nil {
			return err
		}
	}

	// Save it to the provided output path and return the result
	err = os.WriteFile(filePath, b, 0644)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// jsonToYAML converts a JSON document to block-style YAML, keeping the order of its keys.
func jsonToYAML(b []byte) ([]byte, error) {
	// JSON is a subset of YAML, so the document parses into a node tree which is then re-styled as block YAML.
	var document yaml.Node
	if err := yaml.Unmarshal(b, &document); err != nil {
		return nil, errors.WithStack(err)
	}
	var clearStyle func(node *yaml.Node)
	clearStyle = func(node *yaml.Node) {
		node.Style = 0
		for _, child := range node.Content {
			clearStyle(child)
		}
	}
	clearStyle(&document)

	out, err := yaml.Marshal(&document)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return out, nil
}

// Validate validates that the ProjectConfig meets certain requirements.
// Returns an error if one occurs.
func (p *ProjectConfig) Validate() error {
	// The generator options carry their own validation.
	if err := p.Exposure.ToOptions("").Validate(); err != nil {
		return err
	}

	// Verify the output directory does not coincide with the sources.
	outDir := path.Clean(filepath.ToSlash(p.Exposure.OutDir))
	if outDir == "." || outDir == "/" {
		return &exposure.ConfigurationError{Option: "outDir", Value: p.Exposure.OutDir, Reason: "output directory must be a subdirectory of the project"}
	}
	if p.Exposure.SourcesDir != "" && outDir == path.Clean(filepath.ToSlash(p.Exposure.SourcesDir)) {
		return &exposure.ConfigurationError{Option: "outDir", Value: p.Exposure.OutDir, Reason: "output directory must differ from the sources directory"}
	}

	// Verify that every glob pattern is well-formed
	for _, pattern := range append(append([]string{}, p.Exposure.Include...), p.Exposure.Exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return &exposure.ConfigurationError{Option: "pattern", Value: pattern, Reason: "malformed glob pattern"}
		}
	}

	// Verify the compilation platform, if one is set
	if p.Compilation != nil {
		if _, err := p.Compilation.GetPlatformConfig(); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

// ToOptions returns the generator options described by the configuration, for a project located at projectRoot.
func (e ExposureConfig) ToOptions(projectRoot string) exposure.Options {
	options := exposure.DefaultOptions()
	if e.Prefix != nil {
		options.Prefix = *e.Prefix
	}
	if e.Marker != "" {
		options.Marker = e.Marker
	}
	options.OutputRoot = e.OutDir
	options.SourcesRoot = e.SourcesDir
	options.ProjectRoot = projectRoot
	options.IncludeImports = e.Imports
	options.UseInitializerPattern = e.Initializers
	return options
}
