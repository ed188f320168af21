package exposure

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/crytic/exposed/compilation/types"
	"github.com/crytic/exposed/logging"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var (
	// MinimumCompilerVersion is the lowest compiler version generated sources are written for. Abstract contracts and
	// receive functions first appeared in it.
	MinimumCompilerVersion = semver.MustParse("0.6.0")

	// valueTypesCompilerVersion is the compiler version introducing user-defined value types.
	valueTypesCompilerVersion = semver.MustParse("0.8.8")
)

// GeneratedContract summarizes a single generated contract.
type GeneratedContract struct {
	// Name is the name of the generated contract.
	Name string `json:"name"`

	// BaseName is the name of the exposed contract.
	BaseName string `json:"baseName"`

	// Abstract indicates whether the generated contract is abstract, because the exposed contract does not implement
	// every function it declares or inherits.
	Abstract bool `json:"abstract"`

	// InternalMembers counts the internal functions and variables which were considered for exposure.
	InternalMembers int `json:"internalMembers"`

	// ExposedMembers counts the functions and variables which were exposed.
	ExposedMembers int `json:"exposedMembers"`

	// Functions lists the external functions the generated contract adds.
	Functions []ExposedFunction `json:"functions"`
}

// GeneratedFile is a single generated source file.
type GeneratedFile struct {
	// SourcePath is the source unit path of the file the contracts were exposed from.
	SourcePath string `json:"sourcePath"`

	// SourceName is the source unit path of the generated file.
	SourceName string `json:"sourceName"`

	// SourceText is the generated source.
	SourceText string `json:"-"`

	// Imports are the import paths of the generated file, relative to it.
	Imports []string `json:"imports"`

	// MinimumCompilerVersion is the lowest compiler version able to compile the generated file.
	MinimumCompilerVersion *semver.Version `json:"-"`

	// ContentHash is a hash of SourceText, used to detect changes between runs.
	ContentHash string `json:"contentHash"`

	// Contracts summarizes the contracts of the generated file, in declaration order.
	Contracts []GeneratedContract `json:"contracts"`
}

// Generator generates exposed contracts from compiled source units.
type Generator struct {
	// options describes the generation pass.
	options Options

	// logger describes the Generator's log object that can be used to log important events
	logger *logging.Logger
}

// NewGenerator returns a Generator for the provided options, or a ConfigurationError if they are invalid.
func NewGenerator(options Options) (*Generator, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}
	return &Generator{
		options: options,
		logger:  logging.GlobalLogger.NewSubLogger("module", logging.EXPOSURE_SERVICE),
	}, nil
}

// Options returns the options of the generation pass.
func (g *Generator) Options() Options {
	return g.options
}

// DestinationSourceName returns the source unit path a generated file for the given source path is written to.
// Sources below the sources root keep their relative location below the output root.
func (g *Generator) DestinationSourceName(sourcePath string) string {
	sourcePath = path.Clean(filepath.ToSlash(sourcePath))
	if g.options.SourcesRoot != "" {
		sourcesRoot := path.Clean(filepath.ToSlash(g.options.SourcesRoot))
		if relativePath, found := strings.CutPrefix(sourcePath, sourcesRoot+"/"); found {
			sourcePath = relativePath
		}
	}
	for strings.HasPrefix(sourcePath, "../") {
		sourcePath = strings.TrimPrefix(sourcePath, "../")
	}
	return path.Join(path.Clean(filepath.ToSlash(g.options.OutputRoot)), strings.TrimPrefix(sourcePath, "/"))
}

// destinationPath returns the key a generated file is returned under.
func (g *Generator) destinationPath(sourceName string) string {
	if g.options.ProjectRoot == "" {
		return sourceName
	}
	return filepath.Join(g.options.ProjectRoot, filepath.FromSlash(sourceName))
}

// Generate exposes every contract of the included, non-excluded source units. The returned map is keyed by
// destination path. Errors affecting a single file do not prevent the other files from being generated; they are
// returned joined alongside the files which were generated successfully.
func (g *Generator) Generate(units []*types.SourceUnit, include func(string) bool, exclude func(string) bool) (map[string]*GeneratedFile, error) {
	index := newASTIndex(units)
	sortedUnits := slices.Clone(units)
	slices.SortFunc(sortedUnits, func(a, b *types.SourceUnit) int {
		return strings.Compare(a.AbsolutePath, b.AbsolutePath)
	})

	isPrimary := func(unit *types.SourceUnit) bool {
		return include(unit.AbsolutePath) && !exclude(unit.AbsolutePath)
	}

	files := make(map[string]*GeneratedFile)
	errs := make([]error, 0)
	for _, unit := range sortedUnits {
		if !isPrimary(unit) {
			continue
		}
		file, err := g.generateFile(index, unit, nil)
		if err != nil {
			errs = append(errs, fmt.Errorf("could not expose contracts of '%s': %w", unit.AbsolutePath, err))
			continue
		}
		if file != nil {
			files[g.destinationPath(file.SourceName)] = file
		}
	}

	if g.options.IncludeImports {
		importedContracts, err := g.importedContracts(index, sortedUnits, isPrimary, exclude)
		if err != nil {
			errs = append(errs, err)
		}
		importedUnitIDs := maps.Keys(importedContracts)
		slices.SortFunc(importedUnitIDs, func(a, b int64) int {
			return strings.Compare(index.unitsByID[a].AbsolutePath, index.unitsByID[b].AbsolutePath)
		})
		for _, unitID := range importedUnitIDs {
			unit := index.unitsByID[unitID]
			file, err := g.generateFile(index, unit, importedContracts[unitID])
			if err != nil {
				errs = append(errs, fmt.Errorf("could not expose imported contracts of '%s': %w", unit.AbsolutePath, err))
				continue
			}
			if file == nil {
				continue
			}
			if _, exists := files[g.destinationPath(file.SourceName)]; !exists {
				files[g.destinationPath(file.SourceName)] = file
			}
		}
	}

	g.logger.Debug("Generated ", len(files), " file(s) from ", len(units), " source unit(s)")
	return files, errors.Join(errs...)
}

// importedContracts returns the ids of concrete contracts which primary units import by alias from units outside the
// primary tree, keyed by the id of their declaring unit.
func (g *Generator) importedContracts(index *astIndex, units []*types.SourceUnit, isPrimary func(*types.SourceUnit) bool, exclude func(string) bool) (map[int64]map[int64]bool, error) {
	imported := make(map[int64]map[int64]bool)
	for _, unit := range units {
		if !isPrimary(unit) {
			continue
		}
		for _, importDirective := range unit.Imports() {
			importedUnit, err := index.unit(importDirective.SourceUnit)
			if err != nil {
				return imported, fmt.Errorf("could not resolve imports of '%s': %w", unit.AbsolutePath, err)
			}
			for _, alias := range importDirective.SymbolAliases {
				ids, err := aliasTargets(importedUnit, alias)
				if err != nil {
					return imported, fmt.Errorf("could not resolve imports of '%s': %w", unit.AbsolutePath, err)
				}
				for _, id := range ids {
					node, ok := index.lookup(id)
					if !ok {
						continue
					}
					contract, ok := node.(*types.ContractDefinition)
					if !ok || contract.Kind != types.ContractKindContract {
						continue
					}
					declaringUnit := index.declaringUnits[id]
					if isPrimary(declaringUnit) || exclude(declaringUnit.AbsolutePath) {
						continue
					}
					if imported[declaringUnit.ID] == nil {
						imported[declaringUnit.ID] = make(map[int64]bool)
					}
					imported[declaringUnit.ID][contract.ID] = true
				}
			}
		}
	}
	return imported, nil
}

// generateFile exposes the contracts of a single source unit. If only is non-nil, only the contracts it contains are
// exposed, and only if they are concrete. It returns nil if no contract of the unit has anything to expose.
func (g *Generator) generateFile(index *astIndex, unit *types.SourceUnit, only map[int64]bool) (*GeneratedFile, error) {
	exposedContracts := make([]*exposedContract, 0)
	for _, contract := range unit.Contracts() {
		if contract.IsInterface() || (only != nil && !only[contract.ID]) {
			continue
		}
		cc, err := newContractContext(index, g.options, g.logger, contract)
		if err != nil {
			return nil, err
		}
		exposed, err := g.exposeContract(cc)
		if err != nil {
			return nil, fmt.Errorf("could not expose contract '%s': %w", contract.Name, err)
		}
		if exposed == nil || (only != nil && exposed.abstract) {
			continue
		}
		exposedContracts = append(exposedContracts, exposed)
	}
	if len(exposedContracts) == 0 {
		return nil, nil
	}

	sourceName := g.DestinationSourceName(unit.AbsolutePath)
	file := &GeneratedFile{
		SourcePath:             unit.AbsolutePath,
		SourceName:             sourceName,
		MinimumCompilerVersion: MinimumCompilerVersion,
		Contracts:              make([]GeneratedContract, 0, len(exposedContracts)),
	}

	contexts := make([]*contractContext, 0, len(exposedContracts))
	renderedContracts := make([][]string, 0, len(exposedContracts))
	for _, exposed := range exposedContracts {
		rendered, err := exposed.render()
		if err != nil {
			return nil, fmt.Errorf("could not render contract '%s': %w", exposed.context.contract.Name, err)
		}
		functions, err := exposed.exposedFunctions()
		if err != nil {
			return nil, fmt.Errorf("could not compute selectors of contract '%s': %w", exposed.context.contract.Name, err)
		}
		for _, clash := range exposed.selectorClashes(functions) {
			g.logger.Warn("Function selector clash in ", exposed.name(), ": ", clash)
		}
		if exposed.context.usesValueTypes {
			file.MinimumCompilerVersion = valueTypesCompilerVersion
		}

		contexts = append(contexts, exposed.context)
		renderedContracts = append(renderedContracts, rendered)
		file.Contracts = append(file.Contracts, GeneratedContract{
			Name:            exposed.name(),
			BaseName:        exposed.context.contract.Name,
			Abstract:        exposed.abstract,
			InternalMembers: exposed.internalMembers,
			ExposedMembers:  len(exposed.variables) + len(exposed.wrappers),
			Functions:       functions,
		})
	}

	imports, err := g.resolveImports(index, unit, contexts, sourceName)
	if err != nil {
		return nil, err
	}
	file.Imports = imports
	file.SourceText = renderFile(">="+file.MinimumCompilerVersion.String(), imports, renderedContracts)
	file.ContentHash = contentHash(file.SourceText)
	return file, nil
}

// exposeContract selects and prepares the members of a contract for rendering. It returns nil if the contract has no
// member which can be exposed.
func (g *Generator) exposeContract(cc *contractContext) (*exposedContract, error) {
	functions, functionCandidates, err := cc.internalFunctions()
	if err != nil {
		return nil, err
	}
	variables, variableCandidates, err := cc.internalVariables()
	if err != nil {
		return nil, err
	}
	if len(functions) == 0 && len(variables) == 0 {
		g.logger.Debug("Skipping contract ", cc.contract.Name, ": no exposable members")
		return nil, nil
	}

	wrappers := make([]*functionWrapper, 0, len(functions))
	for _, function := range functions {
		wrapper, err := cc.newFunctionWrapper(function)
		if err != nil {
			return nil, fmt.Errorf("could not wrap function '%s': %w", function.Name, err)
		}
		wrappers = append(wrappers, wrapper)
	}
	disambiguateWrappers(wrappers)
	assignReturnEvents(g.options.Prefix, wrappers)

	constructor, err := cc.planConstructor()
	if err != nil {
		return nil, err
	}

	return &exposedContract{
		context:         cc,
		abstract:        !cc.isLibrary() && !cc.isFullyImplementable(),
		mappings:        collectStorageMappings(wrappers),
		constructor:     constructor,
		variables:       variables,
		wrappers:        wrappers,
		internalMembers: functionCandidates + variableCandidates,
	}, nil
}

// Generate exposes the contracts of a compilation with the given options. It is a shorthand for creating a Generator
// and generating from every source unit of the compilation.
func Generate(compilation *types.Compilation, include func(string) bool, exclude func(string) bool, options Options) (map[string]*GeneratedFile, error) {
	generator, err := NewGenerator(options)
	if err != nil {
		return nil, err
	}
	return generator.Generate(compilation.SourceUnits(), include, exclude)
}
