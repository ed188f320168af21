package compilation

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/crytic/exposed/compilation/platforms"
	"github.com/crytic/exposed/compilation/types"
)

// CompilationConfig describes the configuration options used to compile a smart contract
// target.
type CompilationConfig struct {
	// Platform references an identifier indicating which compilation platform to use.
	// PlatformConfig is a structure dependent on the defined Platform.
	Platform string `json:"platform" yaml:"platform"`

	// PlatformConfig describes the Platform-specific configuration needed to compile.
	PlatformConfig *json.RawMessage `json:"platformConfig" yaml:"-"`
}

// NewCompilationConfig returns a CompilationConfig with default values for a given platform identifier.
// If an error occurs, it is returned instead.
func NewCompilationConfig(platform string) (*CompilationConfig, error) {
	// Verify the platform is valid
	if !IsSupportedCompilationPlatform(platform) {
		return nil, fmt.Errorf("could not get default compilation configs: platform '%s' is unsupported", platform)
	}

	// Switch on our platform to deserialize our platform compilation configs
	platformConfig := GetDefaultPlatformConfig(platform)
	return NewCompilationConfigFromPlatformConfig(platformConfig)
}

// NewCompilationConfigFromPlatformConfig takes a platforms.PlatformConfig and wraps it in a generic
// CompilationConfig. This allows many platform config types to be serialized/deserialized to their appropriate
// types and supported generally.
func NewCompilationConfigFromPlatformConfig(platformConfig platforms.PlatformConfig) (*CompilationConfig, error) {
	// Marshal our config to a raw message
	b, err := json.Marshal(platformConfig)
	if err != nil {
		return nil, err
	}
	platformConfigMsg := (*json.RawMessage)(&b)

	// Return the compilation configs containing our platform-specific configs
	return &CompilationConfig{Platform: platformConfig.Platform(), PlatformConfig: platformConfigMsg}, nil
}

// GetPlatformConfig deserializes the inner platforms.PlatformConfig of the compilation config.
func (c *CompilationConfig) GetPlatformConfig() (platforms.PlatformConfig, error) {
	// Verify the platform is valid
	if !IsSupportedCompilationPlatform(c.Platform) {
		return nil, fmt.Errorf("could not read compilation configs: platform '%s' is unsupported", c.Platform)
	}

	// Allocate a platform config given our platform string in our compilation config
	// It is necessary to do so as json.Unmarshal needs a concrete structure to populate
	platformConfig := GetDefaultPlatformConfig(c.Platform)
	if c.PlatformConfig != nil {
		if err := json.Unmarshal(*c.PlatformConfig, platformConfig); err != nil {
			return nil, err
		}
	}
	return platformConfig, nil
}

// SetPlatformConfig replaces the inner platforms.PlatformConfig of the compilation config.
func (c *CompilationConfig) SetPlatformConfig(platformConfig platforms.PlatformConfig) error {
	updated, err := NewCompilationConfigFromPlatformConfig(platformConfig)
	if err != nil {
		return err
	}
	*c = *updated
	return nil
}

// Compile deserializes the inner platforms.PlatformConfig, which is then used to compile the underlying targets.
// Sources located under any of the excluded directories are dropped from the returned compilations, so generated
// output is never fed back into its own generation pass. Returns a list of compilations returned by the platform
// provider or an error. Command-line output may also be returned in either case.
func (c *CompilationConfig) Compile(excludedDirectories ...string) ([]types.Compilation, string, error) {
	platformConfig, err := c.GetPlatformConfig()
	if err != nil {
		return nil, "", err
	}

	compilations, output, err := platformConfig.Compile()
	if err != nil {
		return nil, output, err
	}

	for i := range compilations {
		compilations[i].DropSources(func(sourcePath string) bool {
			return IsUnderAnyDirectory(sourcePath, excludedDirectories)
		})
	}
	return compilations, output, nil
}

// IsUnderAnyDirectory indicates whether the slash-separated source path is located in one of the given directories.
func IsUnderAnyDirectory(sourcePath string, directories []string) bool {
	cleanPath := filepath.ToSlash(filepath.Clean(sourcePath))
	for _, directory := range directories {
		cleanDirectory := strings.TrimSuffix(filepath.ToSlash(filepath.Clean(directory)), "/")
		if cleanDirectory == "" || cleanDirectory == "." {
			continue
		}
		if cleanPath == cleanDirectory || strings.HasPrefix(cleanPath, cleanDirectory+"/") {
			return true
		}
	}
	return false
}
