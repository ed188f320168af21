package exposure

import (
	"bytes"

	"github.com/crytic/exposed/compilation/types"
)

const (
	// opcodePush1 is the EVM opcode pushing a 1 byte immediate. PUSHn is opcodePush1 + n - 1.
	opcodePush1 = 0x60

	// opcodePush32 is the EVM opcode pushing a 32 byte immediate onto the stack.
	opcodePush32 = 0x7f

	// opcodeShl is the EVM shift left opcode.
	opcodeShl = 0x1b
)

// markerPush returns the instruction loading the bytes32 marker constant: PUSH32 followed by the marker, right-padded
// with zeros.
func markerPush(marker string) []byte {
	instruction := make([]byte, 33)
	instruction[0] = opcodePush32
	copy(instruction[1:], marker)
	return instruction
}

// markerShiftedPush returns the shorter sequence the optimizer substitutes for markerPush when the marker leaves
// trailing zero bytes: PUSHn with the marker itself, then a left shift by the padding. Returns nil for a full-word
// marker.
func markerShiftedPush(marker string) []byte {
	if len(marker) >= 32 {
		return nil
	}
	instructions := make([]byte, 0, len(marker)+4)
	instructions = append(instructions, byte(opcodePush1+len(marker)-1))
	instructions = append(instructions, marker...)
	return append(instructions, opcodePush1, byte((32-len(marker))*8), opcodeShl)
}

// HasExposureMarker indicates whether runtime bytecode contains the given marker tag. Generated contracts return
// the tag from a public bytes32 constant, so it is loaded by their code either with a PUSH32 or, once optimized, as a
// shorter push shifted into place. Other encodings the optimizer may pick, such as reading the constant from a code
// data section, are not recognised. Contract metadata is ignored, since its hashes can contain any byte sequence.
func HasExposureMarker(runtimeBytecode []byte, marker string) bool {
	if marker == "" || len(marker) > 32 {
		return false
	}
	code := types.RemoveContractMetadata(runtimeBytecode)
	if bytes.Contains(code, markerPush(marker)) {
		return true
	}
	shifted := markerShiftedPush(marker)
	return shifted != nil && bytes.Contains(code, shifted)
}

// IsExposedContract indicates whether a compiled contract was generated with the given marker. Both the marker
// getter and the marker itself must be present.
func IsExposedContract(contract *types.CompiledContract, marker string) bool {
	if _, ok := contract.Abi.Methods[markerConstantName]; !ok {
		return false
	}
	return HasExposureMarker(contract.RuntimeBytecode, marker)
}
