package config

import (
	"github.com/crytic/exposed/compilation"
	"github.com/crytic/exposed/exposure"
	"github.com/rs/zerolog"
)

// DefaultProjectConfigFilename is the name of the project config file the CLI reads if no other is provided.
const DefaultProjectConfigFilename = "exposed.json"

// GetDefaultProjectConfig obtains a default configuration for a project. It populates a default compilation config
// based on the provided platform, or a nil one if an empty string is provided.
func GetDefaultProjectConfig(platform string) (*ProjectConfig, error) {
	var (
		compilationConfig *compilation.CompilationConfig
		err               error
	)
	if platform != "" {
		compilationConfig, err = compilation.NewCompilationConfig(platform)
		if err != nil {
			return nil, err
		}
	}

	// Create a project configuration
	projectConfig := &ProjectConfig{
		Exposure: ExposureConfig{
			Prefix:       nil,
			Include:      []string{"**/*"},
			Exclude:      []string{},
			OutDir:       exposure.DefaultOutputRoot,
			SourcesDir:   exposure.DefaultSourcesRoot,
			Imports:      false,
			Initializers: false,
		},
		Compilation: compilationConfig,
		Logging: LoggingConfig{
			Level:        zerolog.InfoLevel,
			LogDirectory: "",
			NoColor:      false,
		},
	}

	// Return the project configuration
	return projectConfig, nil
}
