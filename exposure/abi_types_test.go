package exposure

import (
	"testing"

	"github.com/crytic/exposed/compilation/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSourceType verifies the rendering of declared types with and without data locations.
func TestSourceType(t *testing.T) {
	b := newASTBuilder()
	library := b.library("Lib")
	libraryStruct := b.structDefinition(library, "Config", b.variable("a", b.elementary("uint256"), types.StorageLocationDefault))
	base := b.contract("Base")
	baseStruct := b.structDefinition(base, "Position", b.variable("a", b.elementary("uint256"), types.StorageLocationDefault))
	baseEnum := b.enumDefinition(base, "Side", "Buy", "Sell")
	unrelated := b.contract("Unrelated")
	unrelatedStruct := b.structDefinition(unrelated, "Order", b.variable("a", b.elementary("uint256"), types.StorageLocationDefault))
	fileStruct := b.structDefinition(nil, "Point", b.variable("x", b.elementary("int256"), types.StorageLocationDefault))
	derived := b.contract("Derived", base)
	b.inherits(derived, base)

	units := []*types.SourceUnit{
		b.unit("contracts/Lib.sol", library),
		b.unit("contracts/Base.sol", fileStruct, base, unrelated, derived),
	}
	cc := newTestContext(t, DefaultOptions(), units, derived)
	libraryContext := newTestContext(t, DefaultOptions(), units, library)

	payable := b.elementary("address")
	payable.TypeDescriptions = descriptions("address payable")
	stringSlice := b.elementary("string")
	stringSlice.TypeDescriptions = descriptions("string calldata")

	tests := []struct {
		name     string
		cc       *contractContext
		typeName types.TypeName
		location types.StorageLocation
		expected string
	}{
		{"elementary", cc, b.elementary("uint256"), types.StorageLocationMemory, "uint256"},
		{"payable address", cc, payable, types.StorageLocationDefault, "address payable"},
		{"string", cc, b.elementary("string"), types.StorageLocationMemory, "string memory"},
		{"located type string", cc, stringSlice, types.StorageLocationCalldata, "string calldata"},
		{"bytes", cc, b.elementary("bytes"), types.StorageLocationStorage, "bytes storage"},
		{"dynamic array", cc, b.array(b.elementary("uint256"), ""), types.StorageLocationMemory, "uint256[] memory"},
		{"static nested array", cc, b.array(b.array(b.elementary("bool"), "2"), "3"), types.StorageLocationCalldata, "bool[2][3] calldata"},
		{"mapping", cc, b.mapping(b.elementary("address"), b.userDefined(baseStruct)), types.StorageLocationStorage, "mapping(address => Position) storage"},
		{"ancestor struct", cc, b.userDefined(baseStruct), types.StorageLocationMemory, "Position memory"},
		{"ancestor enum", cc, b.userDefined(baseEnum), types.StorageLocationMemory, "Side"},
		{"unrelated struct", cc, b.userDefined(unrelatedStruct), types.StorageLocationMemory, "Unrelated.Order memory"},
		{"library struct", cc, b.userDefined(libraryStruct), types.StorageLocationMemory, "Lib.Config memory"},
		{"library struct from library", libraryContext, b.userDefined(libraryStruct), types.StorageLocationMemory, "Lib.Config memory"},
		{"file level struct", cc, b.userDefined(fileStruct), types.StorageLocationMemory, "Point memory"},
		{"contract", cc, b.userDefined(unrelated), types.StorageLocationMemory, "Unrelated"},
		{"array of structs", cc, b.array(b.userDefined(unrelatedStruct), "4"), types.StorageLocationDefault, "Unrelated.Order[4]"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rendered, err := tc.cc.sourceTypeWithLocation(tc.typeName, tc.location)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, rendered)
		})
	}
}

// TestSourceTypeMissingDescriptions ensures that declarations without type information are rejected.
func TestSourceTypeMissingDescriptions(t *testing.T) {
	b := newASTBuilder()
	c := b.contract("C")
	cc := newTestContext(t, DefaultOptions(), []*types.SourceUnit{b.unit("contracts/C.sol", c)}, c)

	declaration := b.variable("v", b.elementary("uint256"), types.StorageLocationDefault)
	declaration.TypeDescriptions = types.TypeDescriptions{TypeString: "uint256"}
	_, err := cc.sourceType(declaration, types.StorageLocationMemory)
	var violation *AstContractViolationError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, declaration.ID, violation.NodeID)

	array := b.array(b.elementary("uint256"), "")
	array.TypeDescriptions = types.TypeDescriptions{}
	_, err = cc.typeNameSource(array)
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, array.ID, violation.NodeID)
}

// TestABIType verifies canonical ABI type computation.
func TestABIType(t *testing.T) {
	b := newASTBuilder()
	price := b.valueType("Price", b.elementary("uint128"))
	c := b.contract("C")
	kind := b.enumDefinition(c, "Kind", "A", "B")
	inner := b.structDefinition(c, "Inner",
		b.variable("a", b.elementary("address"), types.StorageLocationDefault),
		b.variable("b", b.array(b.elementary("bytes32"), "2"), types.StorageLocationDefault))
	outer := b.structDefinition(c, "Outer",
		b.variable("inner", b.userDefined(inner), types.StorageLocationDefault),
		b.variable("kind", b.userDefined(kind), types.StorageLocationDefault),
		b.variable("price", b.userDefined(price), types.StorageLocationDefault))

	cc := newTestContext(t, DefaultOptions(), []*types.SourceUnit{b.unit("contracts/C.sol", price, c)}, c)

	payable := b.elementary("address")
	payable.TypeDescriptions = descriptions("address payable")

	tests := []struct {
		name     string
		typeName types.TypeName
		expected string
	}{
		{"elementary", b.elementary("uint256"), "uint256"},
		{"payable address", payable, "address"},
		{"string", b.elementary("string"), "string"},
		{"array", b.array(b.array(b.elementary("uint8"), ""), "3"), "uint8[][3]"},
		{"enum", b.userDefined(kind), "uint8"},
		{"contract", b.userDefined(c), "address"},
		{"value type", b.userDefined(price), "uint128"},
		{"struct", b.userDefined(outer), "((address,bytes32[2]),uint8,uint128)"},
		{"array of structs", b.array(b.userDefined(inner), ""), "(address,bytes32[2])[]"},
		{"function", b.functionType(), "function"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			abiType, err := cc.abiType(tc.typeName)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, abiType)
		})
	}

	_, err := cc.abiType(b.mapping(b.elementary("address"), b.elementary("uint256")))
	assert.Error(t, err)
}

// TestCanonicalElementaryType verifies elementary type normalization.
func TestCanonicalElementaryType(t *testing.T) {
	assert.Equal(t, "uint256", canonicalElementaryType("uint256"))
	assert.Equal(t, "address", canonicalElementaryType("address payable"))
	assert.Equal(t, "bytes", canonicalElementaryType("bytes"))
}
