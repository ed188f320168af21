package config

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// relativeToSources returns the source name relative to the sources directory, and whether it is located within it.
func (e ExposureConfig) relativeToSources(sourceName string) (string, bool) {
	sourceName = path.Clean(filepath.ToSlash(sourceName))
	sourcesDir := path.Clean(filepath.ToSlash(e.SourcesDir))
	if e.SourcesDir == "" || sourcesDir == "." {
		return sourceName, true
	}
	if relativePath, found := strings.CutPrefix(sourceName, sourcesDir+"/"); found {
		return relativePath, true
	}

	// Sources outside the sources directory are matched by their relative path, e.g. "../lib/A.sol".
	relativePath, err := filepath.Rel(filepath.FromSlash(sourcesDir), filepath.FromSlash(sourceName))
	if err != nil {
		return sourceName, false
	}
	return filepath.ToSlash(relativePath), false
}

// matchesAny indicates whether the path matches one of the glob patterns. Malformed patterns never match.
func matchesAny(patterns []string, relativePath string) bool {
	for _, pattern := range patterns {
		if matched, err := doublestar.Match(pattern, relativePath); err == nil && matched {
			return true
		}
	}
	return false
}

// IsIncluded indicates whether the source is located in the sources directory and matches an include pattern.
func (e ExposureConfig) IsIncluded(sourceName string) bool {
	relativePath, inSources := e.relativeToSources(sourceName)
	return inSources && matchesAny(e.Include, relativePath)
}

// IsExcluded indicates whether the source matches an exclude pattern.
func (e ExposureConfig) IsExcluded(sourceName string) bool {
	relativePath, _ := e.relativeToSources(sourceName)
	return matchesAny(e.Exclude, relativePath)
}
