package exposure

import (
	"testing"

	"github.com/crytic/exposed/compilation/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewExposedFunction verifies signatures and selectors of exposed functions.
func TestNewExposedFunction(t *testing.T) {
	function := newExposedFunction("transfer", []string{"address", "uint256"})
	assert.Equal(t, "transfer(address,uint256)", function.Signature)
	assert.Equal(t, "0xa9059cbb", function.Selector)

	function = newExposedFunction("balanceOf", []string{"address"})
	assert.Equal(t, "0x70a08231", function.Selector)

	function = newExposedFunction("totalSupply", nil)
	assert.Equal(t, "totalSupply()", function.Signature)
	assert.Equal(t, "0x18160ddd", function.Selector)
}

// TestInheritedSignatures verifies the external interface collected from the linearization.
func TestInheritedSignatures(t *testing.T) {
	b := newASTBuilder()
	c := b.contract("C")
	b.function(c, "transfer", types.VisibilityExternal, types.StateMutabilityNonPayable,
		params(b.variable("to", b.elementary("address"), types.StorageLocationDefault), b.variable("amount", b.elementary("uint256"), types.StorageLocationDefault)), nil)
	b.function(c, "hidden", types.VisibilityInternal, types.StateMutabilityNonPayable, nil, nil)
	b.stateVariable(c, "balanceOf", b.mapping(b.elementary("address"), b.elementary("uint256")), types.VisibilityPublic)
	b.stateVariable(c, "values", b.array(b.elementary("uint256"), ""), types.VisibilityPublic)
	b.stateVariable(c, "secret", b.elementary("uint256"), types.VisibilityInternal)
	cc := newTestContext(t, DefaultOptions(), []*types.SourceUnit{b.unit("contracts/C.sol", c)}, c)

	signatures := cc.inheritedSignatures()
	assert.Equal(t, map[string]string{
		newExposedFunction("transfer", []string{"address", "uint256"}).Selector: "transfer(address,uint256)",
		newExposedFunction("balanceOf", []string{"address"}).Selector:           "balanceOf(address)",
		newExposedFunction("values", []string{"uint256"}).Selector:              "values(uint256)",
	}, signatures)
}

// TestSelectorClashes verifies that exposed functions colliding with inherited functions are reported.
func TestSelectorClashes(t *testing.T) {
	b := newASTBuilder()
	c := b.contract("C")
	b.function(c, "$f", types.VisibilityPublic, types.StateMutabilityNonPayable,
		params(b.variable("x", b.elementary("uint256"), types.StorageLocationDefault)), nil)
	f := b.function(c, "f", types.VisibilityInternal, types.StateMutabilityNonPayable,
		params(b.variable("x", b.elementary("uint256"), types.StorageLocationDefault)), nil)
	g := b.function(c, "g", types.VisibilityInternal, types.StateMutabilityNonPayable, nil, nil)
	cc := newTestContext(t, DefaultOptions(), []*types.SourceUnit{b.unit("contracts/C.sol", c)}, c)

	exposed := &exposedContract{context: cc, wrappers: wrappersFor(t, cc, f, g)}
	functions, err := exposed.exposedFunctions()
	require.NoError(t, err)
	require.Len(t, functions, 3)
	assert.Equal(t, markerConstantName, functions[0].Name)
	assert.Equal(t, "$f(uint256)", functions[1].Signature)
	assert.Equal(t, "$g()", functions[2].Signature)

	clashes := exposed.selectorClashes(functions)
	require.Len(t, clashes, 1)
	assert.Contains(t, clashes[0], "$f(uint256) clashes with $f(uint256)")
}
