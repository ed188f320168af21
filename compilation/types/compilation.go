package types

import (
	"fmt"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// SourceArtifact describes a single source unit of a compilation: its unique source id and parsed AST.
type SourceArtifact struct {
	// ID is the source unit id the compiler assigned to the file.
	ID int64 `json:"id"`

	// Ast is the compact JSON AST of the source file.
	Ast *SourceUnit `json:"ast"`
}

// CompilerError describes an error or warning reported by the compiler.
type CompilerError struct {
	Severity         string `json:"severity"`
	Type             string `json:"type"`
	Message          string `json:"message"`
	FormattedMessage string `json:"formattedMessage"`
}

// CompilerOutput is the subset of solc's standard-JSON output consumed by this tool.
type CompilerOutput struct {
	Sources map[string]SourceArtifact `json:"sources"`
	Errors  []CompilerError           `json:"errors,omitempty"`
}

// Err returns an error describing every error-severity message of the compiler output, or nil if the compilation
// succeeded. Warnings are ignored.
func (o *CompilerOutput) Err() error {
	messages := make([]string, 0)
	for _, compilerError := range o.Errors {
		if compilerError.Severity != "error" {
			continue
		}
		message := compilerError.FormattedMessage
		if message == "" {
			message = compilerError.Message
		}
		messages = append(messages, strings.TrimSpace(message))
	}
	if len(messages) == 0 {
		return nil
	}
	return fmt.Errorf("compilation failed with %d error(s):\n%s", len(messages), strings.Join(messages, "\n"))
}

// Compilation represents the ASTs of a smart contract compilation.
type Compilation struct {
	// SourcePathToArtifact maps source unit paths to their SourceArtifact.
	SourcePathToArtifact map[string]SourceArtifact

	// CompilerVersion is the version of the compiler which produced the compilation, if known.
	CompilerVersion string
}

// NewCompilation returns a new, empty Compilation object.
func NewCompilation() *Compilation {
	// Create our compilation
	compilation := &Compilation{
		SourcePathToArtifact: make(map[string]SourceArtifact),
	}

	// Return the compilation.
	return compilation
}

// AddCompilerOutput adds every source of the given compiler output to the compilation. Sources which already exist
// are kept, since a source path always maps to the same AST within one build.
func (c *Compilation) AddCompilerOutput(output *CompilerOutput) error {
	for sourcePath, artifact := range output.Sources {
		if artifact.Ast == nil {
			return fmt.Errorf("could not parse AST from sources, AST field could not be found for '%s'", sourcePath)
		}
		if _, exists := c.SourcePathToArtifact[sourcePath]; !exists {
			c.SourcePathToArtifact[sourcePath] = artifact
		}
	}
	return nil
}

// SourcePaths returns the source paths of the compilation in sorted order.
func (c *Compilation) SourcePaths() []string {
	paths := maps.Keys(c.SourcePathToArtifact)
	slices.Sort(paths)
	return paths
}

// SourceUnits returns the ASTs of every source of the compilation, ordered by source path.
func (c *Compilation) SourceUnits() []*SourceUnit {
	units := make([]*SourceUnit, 0, len(c.SourcePathToArtifact))
	for _, sourcePath := range c.SourcePaths() {
		units = append(units, c.SourcePathToArtifact[sourcePath].Ast)
	}
	return units
}

// DropSources removes every source whose path satisfies the given predicate.
func (c *Compilation) DropSources(drop func(sourcePath string) bool) {
	for sourcePath := range c.SourcePathToArtifact {
		if drop(sourcePath) {
			delete(c.SourcePathToArtifact, sourcePath)
		}
	}
}
