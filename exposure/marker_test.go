package exposure

import (
	"bytes"
	"testing"

	"github.com/crytic/exposed/compilation/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withMetadata appends solc-style CBOR metadata holding the given ipfs hash to the code.
func withMetadata(code []byte, ipfsHash []byte) []byte {
	metadata := []byte{0xa2, 0x64, 'i', 'p', 'f', 's', 0x58, byte(len(ipfsHash))}
	metadata = append(metadata, ipfsHash...)
	metadata = append(metadata, 0x64, 's', 'o', 'l', 'c', 0x43, 0x00, 0x08, 0x14)
	result := append(bytes.Clone(code), metadata...)
	return append(result, byte(len(metadata)>>8), byte(len(metadata)))
}

// TestHasExposureMarker verifies marker detection in runtime bytecode.
func TestHasExposureMarker(t *testing.T) {
	code := append([]byte{0x60, 0x80, 0x60, 0x40}, markerPush(DefaultMarker)...)
	code = append(code, 0x60, 0x00, 0x52, 0xf3)
	hash := bytes.Repeat([]byte{0x12}, 34)

	assert.True(t, HasExposureMarker(code, DefaultMarker))
	assert.True(t, HasExposureMarker(withMetadata(code, hash), DefaultMarker))
	assert.False(t, HasExposureMarker(withMetadata(code, hash), "other-marker"))
	assert.False(t, HasExposureMarker(code, ""))

	// The marker must be loaded as a full word.
	unpadded := append([]byte{0x60, 0x80, 0x7f}, []byte(DefaultMarker)...)
	assert.False(t, HasExposureMarker(append(unpadded, 0x01, 0x02), DefaultMarker))

	// A marker which only occurs within the metadata hash is not part of the code.
	markedHash := append(markerPush(DefaultMarker), 0x00)
	assert.False(t, HasExposureMarker(withMetadata([]byte{0x60, 0x80}, markedHash), DefaultMarker))
}

// TestHasExposureMarkerOptimized verifies detection of the marker loaded as a shorter push shifted into place.
func TestHasExposureMarkerOptimized(t *testing.T) {
	shifted := markerShiftedPush(DefaultMarker)
	require.Len(t, shifted, len(DefaultMarker)+4)
	assert.Equal(t, byte(0x6f), shifted[0], "PUSH16")
	assert.Equal(t, []byte{0x60, 0x80, 0x1b}, shifted[len(shifted)-3:])

	code := append([]byte{0x60, 0x80, 0x60, 0x40, 0x52}, shifted...)
	code = append(code, 0x60, 0x00, 0x52, 0xf3)
	assert.True(t, HasExposureMarker(code, DefaultMarker))
	assert.True(t, HasExposureMarker(withMetadata(code, bytes.Repeat([]byte{0x12}, 34)), DefaultMarker))

	// Without the shift, the pushed value is not the marker.
	unshifted := append([]byte{0x6f}, []byte(DefaultMarker)...)
	assert.False(t, HasExposureMarker(append(unshifted, 0x60, 0x00, 0x52), DefaultMarker))

	// A full-word marker is only ever loaded with PUSH32.
	assert.Nil(t, markerShiftedPush(string(bytes.Repeat([]byte{'m'}, 32))))
}

// TestIsExposedContract verifies that both the marker getter and the marker are required.
func TestIsExposedContract(t *testing.T) {
	markerABI := `[{"type":"function","name":"__exposed_bytecode_marker","inputs":[],"outputs":[{"name":"","type":"bytes32"}],"stateMutability":"view"}]`
	otherABI := `[{"type":"function","name":"f","inputs":[],"outputs":[],"stateMutability":"nonpayable"}]`
	code := append([]byte{0x60, 0x80}, markerPush(DefaultMarker)...)

	contractWith := func(abiJSON string, bytecode []byte) *types.CompiledContract {
		parsed, err := types.ParseABIFromInterface(abiJSON)
		require.NoError(t, err)
		return &types.CompiledContract{ContractName: "$C", Abi: *parsed, RuntimeBytecode: bytecode}
	}

	assert.True(t, IsExposedContract(contractWith(markerABI, code), DefaultMarker))
	assert.False(t, IsExposedContract(contractWith(otherABI, code), DefaultMarker))
	assert.False(t, IsExposedContract(contractWith(markerABI, []byte{0x60, 0x80}), DefaultMarker))
}
