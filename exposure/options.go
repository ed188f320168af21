package exposure

import (
	"regexp"
)

const (
	// DefaultPrefix is prepended to the names of generated contracts, wrappers and accessors when no prefix is
	// configured.
	DefaultPrefix = "$"

	// DefaultMarker is the tag stored in the marker constant of every generated contract.
	DefaultMarker = "exposed-contract"

	// DefaultOutputRoot is the directory, relative to the project root, generated sources are written to.
	DefaultOutputRoot = "contracts-exposed"

	// DefaultSourcesRoot is the directory, relative to the project root, holding the project's own sources.
	DefaultSourcesRoot = "contracts"

	// markerConstantName is the name of the public constant holding the marker.
	markerConstantName = "__exposed_bytecode_marker"
)

var (
	// identifierPattern matches strings which may begin a Solidity identifier and consist of identifier characters
	// only.
	identifierPattern = regexp.MustCompile(`^[a-zA-Z_$][a-zA-Z0-9_$]*$`)

	// markerPattern matches printable ASCII strings which need no escaping inside a string literal.
	markerPattern = regexp.MustCompile(`^[ !#-\[\]-~]+$`)
)

// Options describes a single generation pass.
type Options struct {
	// Prefix is prepended to every generated name. It must be a non-empty identifier.
	Prefix string

	// IncludeImports additionally wraps concrete contracts imported by alias from sources outside the included tree.
	IncludeImports bool

	// UseInitializerPattern treats `__<Name>_init` functions as the designated initializers of their contracts.
	UseInitializerPattern bool

	// OutputRoot is the slash-separated directory, in source path space, generated files are placed in.
	OutputRoot string

	// SourcesRoot is the slash-separated directory, in source path space, holding the project's sources. Generated
	// files mirror the layout of sources below it.
	SourcesRoot string

	// ProjectRoot is the directory source paths are relative to. Destination paths of generated files are joined to
	// it. If empty, destination paths are returned in source path space.
	ProjectRoot string

	// Marker is the tag stored in the marker constant of every generated contract. It must fit in 32 bytes.
	Marker string
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Prefix:                DefaultPrefix,
		IncludeImports:        false,
		UseInitializerPattern: false,
		OutputRoot:            DefaultOutputRoot,
		SourcesRoot:           DefaultSourcesRoot,
		ProjectRoot:           "",
		Marker:                DefaultMarker,
	}
}

// Validate returns a ConfigurationError describing the first invalid option, or nil if the options are valid.
func (o Options) Validate() error {
	if o.Prefix == "" {
		return &ConfigurationError{Option: "prefix", Value: o.Prefix, Reason: "prefix must not be empty"}
	}
	if !identifierPattern.MatchString(o.Prefix) {
		return &ConfigurationError{Option: "prefix", Value: o.Prefix, Reason: "prefix must be a valid identifier start"}
	}
	if o.OutputRoot == "" {
		return &ConfigurationError{Option: "outputRoot", Value: o.OutputRoot, Reason: "output root must not be empty"}
	}
	if o.Marker == "" || len(o.Marker) > 32 {
		return &ConfigurationError{Option: "marker", Value: o.Marker, Reason: "marker must be between 1 and 32 bytes long"}
	}
	if !markerPattern.MatchString(o.Marker) {
		return &ConfigurationError{Option: "marker", Value: o.Marker, Reason: "marker must consist of printable characters other than quotes and backslashes"}
	}
	return nil
}
