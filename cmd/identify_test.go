package cmd

import (
	"strings"
	"testing"

	"github.com/crytic/exposed/compilation/types"
	"github.com/crytic/exposed/exposure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exposedABI is the ABI of a generated contract with a marker getter, one wrapper and one inherited function.
const exposedABI = `[
	{"type":"function","name":"__exposed_bytecode_marker","inputs":[],"outputs":[{"name":"","type":"bytes32"}],"stateMutability":"view"},
	{"type":"function","name":"$_mint","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"},
	{"type":"function","name":"$balances","inputs":[{"name":"arg0","type":"address"},{"name":"arg1","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"}
]`

// markedCode returns runtime code loading the given marker with PUSH32.
func markedCode(marker string) []byte {
	code := []byte{0x60, 0x80, 0x60, 0x40, 0x52, 0x7f}
	padded := make([]byte, 32)
	copy(padded, marker)
	code = append(code, padded...)
	return append(code, 0x60, 0x00, 0x52, 0xf3)
}

func TestIdentifyContract(t *testing.T) {
	t.Parallel()

	contractABI, err := types.ParseABIFromInterface(exposedABI)
	require.NoError(t, err)
	contract := &types.CompiledContract{
		ContractName:    "$Token",
		SourceName:      "contracts-exposed/Token.sol",
		Abi:             *contractABI,
		RuntimeBytecode: markedCode(exposure.DefaultMarker),
	}

	result := identifyContract(contract, exposure.DefaultMarker, exposure.DefaultPrefix)
	require.True(t, result.exposed)
	require.Len(t, result.functions, 2)
	assert.True(t, strings.HasSuffix(result.functions[0], " $_mint(address,uint256)"), result.functions[0])
	assert.True(t, strings.HasSuffix(result.functions[1], " $balances(address,uint256)"), result.functions[1])
	assert.True(t, strings.HasPrefix(result.functions[0], "0x"))
	assert.Len(t, strings.Fields(result.functions[0])[0], 10)

	// Another marker does not identify the contract.
	result = identifyContract(contract, "other-marker", exposure.DefaultPrefix)
	assert.False(t, result.exposed)
	assert.Empty(t, result.functions)
}

func TestIdentifyContractWithoutGetter(t *testing.T) {
	t.Parallel()

	contractABI, err := types.ParseABIFromInterface(`[{"type":"function","name":"transfer","inputs":[],"outputs":[],"stateMutability":"nonpayable"}]`)
	require.NoError(t, err)
	contract := &types.CompiledContract{
		ContractName:    "Token",
		Abi:             *contractABI,
		RuntimeBytecode: markedCode(exposure.DefaultMarker),
	}

	assert.False(t, identifyContract(contract, exposure.DefaultMarker, exposure.DefaultPrefix).exposed)
}
