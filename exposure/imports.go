package exposure

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/crytic/exposed/compilation/types"
)

// resolveImports returns the import paths a generated file needs so that every contract and type it references
// resolves. The declaring units of the wrapped contracts and their ancestors are imported, along with every unit
// an alias import within their import graph refers to, since aliased names are not re-exported by a plain import.
func (g *Generator) resolveImports(index *astIndex, unit *types.SourceUnit, contexts []*contractContext, destination string) ([]string, error) {
	output := make([]*types.SourceUnit, 0)
	outputIDs := make(map[int64]bool)
	scanned := make(map[int64]bool)
	queue := make([]*types.SourceUnit, 0)

	addOutput := func(u *types.SourceUnit) {
		if !outputIDs[u.ID] {
			outputIDs[u.ID] = true
			output = append(output, u)
		}
	}
	addScan := func(u *types.SourceUnit) {
		if !scanned[u.ID] {
			scanned[u.ID] = true
			queue = append(queue, u)
		}
	}

	// Seed the working set with the current unit and the units declaring every ancestor.
	addOutput(unit)
	addScan(unit)
	for _, cc := range contexts {
		for _, base := range cc.bases {
			declaringUnit, err := index.declaringUnit(base.ID)
			if err != nil {
				return nil, err
			}
			addOutput(declaringUnit)
			addScan(declaringUnit)
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, importDirective := range current.Imports() {
			importedUnit, err := index.unit(importDirective.SourceUnit)
			if err != nil {
				return nil, err
			}
			switch {
			case len(importDirective.SymbolAliases) > 0:
				for _, alias := range importDirective.SymbolAliases {
					declaringUnits, err := aliasDeclaringUnits(index, importedUnit, alias)
					if err != nil {
						return nil, err
					}
					for _, declaringUnit := range declaringUnits {
						addOutput(declaringUnit)
						addScan(declaringUnit)
					}
				}
			case importDirective.UnitAlias != "":
				addOutput(importedUnit)
				addScan(importedUnit)
			default:
				addScan(importedUnit)
			}
		}
	}

	imports := make([]string, 0, len(output))
	seen := make(map[string]bool)
	for _, u := range output {
		importPath := relativeImportPath(destination, u.AbsolutePath)
		if !seen[importPath] {
			seen[importPath] = true
			imports = append(imports, importPath)
		}
	}
	return imports, nil
}

// aliasTargets returns the ids of the declarations an import alias refers to. Compilers which do not annotate aliases
// with their declaration are handled through the exported symbols of the imported unit.
func aliasTargets(importedUnit *types.SourceUnit, alias types.SymbolAlias) ([]int64, error) {
	if alias.Foreign.ReferencedDeclaration != 0 {
		return []int64{alias.Foreign.ReferencedDeclaration}, nil
	}
	ids := importedUnit.ExportedSymbols[alias.Foreign.Name]
	if len(ids) == 0 {
		return nil, &UnresolvedReferenceError{ID: 0, Expected: "exported symbol '" + alias.Foreign.Name + "'"}
	}
	return ids, nil
}

// aliasDeclaringUnits returns the units declaring the symbols an import alias refers to.
func aliasDeclaringUnits(index *astIndex, importedUnit *types.SourceUnit, alias types.SymbolAlias) ([]*types.SourceUnit, error) {
	ids, err := aliasTargets(importedUnit, alias)
	if err != nil {
		return nil, err
	}
	units := make([]*types.SourceUnit, 0, len(ids))
	for _, id := range ids {
		declaringUnit, err := index.declaringUnit(id)
		if err != nil {
			return nil, err
		}
		units = append(units, declaringUnit)
	}
	return units, nil
}

// relativeImportPath returns the path importing the given source from a generated file. Package sources, whose first
// segment is a scope such as "@openzeppelin", are imported by source name.
func relativeImportPath(destination string, sourcePath string) string {
	sourcePath = filepath.ToSlash(sourcePath)
	if strings.HasPrefix(sourcePath, "@") {
		return sourcePath
	}

	relativePath, err := filepath.Rel(filepath.FromSlash(path.Dir(destination)), filepath.FromSlash(sourcePath))
	if err != nil {
		return sourcePath
	}
	relativePath = filepath.ToSlash(relativePath)
	if !strings.HasPrefix(relativePath, "../") && !strings.HasPrefix(relativePath, "./") {
		relativePath = "./" + relativePath
	}
	return relativePath
}
