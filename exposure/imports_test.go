package exposure

import (
	"testing"

	"github.com/crytic/exposed/compilation/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestResolveImports verifies that generated files import the units declaring wrapped contracts, their ancestors and
// the targets of alias imports, but not units which are only imported plainly.
func TestResolveImports(t *testing.T) {
	b := newASTBuilder()
	helper := b.contract("Helper")
	helperUnit := b.unit("@oz/Helper.sol", helper)
	reexportUnit := b.unit("contracts/Reexport.sol", b.importDirective(helperUnit))
	plainUnit := b.unit("contracts/Plain.sol", b.contract("Plain"))
	namespaceUnit := b.unit("contracts/Namespace.sol", b.contract("Namespaced"))

	base := b.contract("Base")
	baseUnit := b.unit("contracts/base/Base.sol", b.importDirective(reexportUnit, helper), base)
	token := b.contract("Token", base)
	b.inherits(token, base)
	namespaceImport := b.importDirective(namespaceUnit)
	namespaceImport.UnitAlias = "N"
	tokenUnit := b.unit("contracts/Token.sol", b.importDirective(baseUnit), namespaceImport, b.importDirective(plainUnit), token)

	units := []*types.SourceUnit{helperUnit, reexportUnit, plainUnit, namespaceUnit, baseUnit, tokenUnit}
	g, err := NewGenerator(DefaultOptions())
	require.NoError(t, err)
	index := newASTIndex(units)
	cc, err := newContractContext(index, g.Options(), g.logger, token)
	require.NoError(t, err)

	imports, err := g.resolveImports(index, tokenUnit, []*contractContext{cc}, g.DestinationSourceName(tokenUnit.AbsolutePath))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"../contracts/Token.sol",
		"../contracts/base/Base.sol",
		"../contracts/Namespace.sol",
		"@oz/Helper.sol",
	}, imports)
}

// TestResolveImportsUnresolvedUnit verifies that imports of unknown units are reported.
func TestResolveImportsUnresolvedUnit(t *testing.T) {
	b := newASTBuilder()
	missing := b.unit("contracts/Missing.sol")
	c := b.contract("C")
	unit := b.unit("contracts/C.sol", b.importDirective(missing), c)

	g, err := NewGenerator(DefaultOptions())
	require.NoError(t, err)
	index := newASTIndex([]*types.SourceUnit{unit})
	cc, err := newContractContext(index, g.Options(), g.logger, c)
	require.NoError(t, err)

	_, err = g.resolveImports(index, unit, []*contractContext{cc}, "contracts-exposed/C.sol")
	var unresolved *UnresolvedReferenceError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, missing.ID, unresolved.ID)
}

// TestAliasTargets verifies alias resolution with and without referenced declarations.
func TestAliasTargets(t *testing.T) {
	imported := &types.SourceUnit{ExportedSymbols: map[string][]int64{"Helper": {7}}}

	ids, err := aliasTargets(imported, types.SymbolAlias{Foreign: types.IdentifierPath{Name: "Helper", ReferencedDeclaration: 3}})
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids)

	ids, err = aliasTargets(imported, types.SymbolAlias{Foreign: types.IdentifierPath{Name: "Helper"}})
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, ids)

	_, err = aliasTargets(imported, types.SymbolAlias{Foreign: types.IdentifierPath{Name: "Missing"}})
	assert.Error(t, err)
}

// TestRelativeImportPath verifies import paths relative to generated files.
func TestRelativeImportPath(t *testing.T) {
	tests := []struct {
		destination string
		source      string
		expected    string
	}{
		{"contracts-exposed/Token.sol", "contracts/Token.sol", "../contracts/Token.sol"},
		{"contracts-exposed/token/Token.sol", "contracts/token/Token.sol", "../../contracts/token/Token.sol"},
		{"contracts-exposed/Token.sol", "contracts-exposed/Other.sol", "./Other.sol"},
		{"contracts-exposed/Token.sol", "contracts-exposed/lib/Other.sol", "./lib/Other.sol"},
		{"contracts-exposed/Token.sol", "@openzeppelin/contracts/access/Ownable.sol", "@openzeppelin/contracts/access/Ownable.sol"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.expected, relativeImportPath(tc.destination, tc.source), "%s from %s", tc.source, tc.destination)
	}
}
