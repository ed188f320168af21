package types

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/Masterminds/semver"
	"github.com/fxamacker/cbor"
)

// ContractMetadata is an CBOR-encoded structure describing contract information which is embedded within smart contract
// bytecode by the Solidity compiler (unless explicitly directed not to).
// Reference: https://docs.soliditylang.org/en/v0.8.16/metadata.html
type ContractMetadata map[string]any

// metadataHashPrefixes defines patterns to use in search for CBOR-encoded contract metadata appended to the end of
// bytecode, for bytecode whose trailing length field is missing or corrupt.
var metadataHashPrefixes = [][]byte{
	{0xa2, 0x64, 0x69, 0x70, 0x66, 0x73, 0x58, 0x22}, // a2 64 "ipfs" 0x58 0x22 (solc >= 0.6.0)
	{0xa1, 0x64, 0x69, 0x70, 0x66, 0x73, 0x58, 0x22}, // a1 64 "ipfs" 0x58 0x22 (solc >= 0.6.0, version omitted)
	{0xa2, 0x65, 98, 122, 122, 114, 49, 0x58, 0x20},  // a2 65 "bzzr1" 0x58 0x20 (solc >= 0.5.11)
}

// byteCodeHashMetadataKeys defines the keys in the CBOR-encoded ContractMetadata which contain bytecode hashes.
var byteCodeHashMetadataKeys = [...]string{
	"ipfs",
	"bzzr1",
}

// metadataOffset returns the offset at which the CBOR-encoded metadata of the bytecode begins, and the offset at
// which it ends, or -1 for both if no metadata was found.
func metadataOffset(bytecode []byte) (int, int) {
	// solc appends the big-endian length of the metadata as the final two bytes.
	if len(bytecode) > 2 {
		length := int(binary.BigEndian.Uint16(bytecode[len(bytecode)-2:]))
		start := len(bytecode) - 2 - length
		if length > 0 && start >= 0 {
			var metadata ContractMetadata
			if err := cbor.Unmarshal(bytecode[start:len(bytecode)-2], &metadata); err == nil {
				return start, len(bytecode) - 2
			}
		}
	}

	// Otherwise, search for known metadata prefixes.
	for _, metadataHashPrefix := range metadataHashPrefixes {
		start := bytes.LastIndex(bytecode, metadataHashPrefix)
		if start != -1 {
			return start, len(bytecode)
		}
	}
	return -1, -1
}

// ExtractContractMetadata extracts contract metadata from provided byte code and returns it. If contract metadata
// could not be extracted, nil is returned.
func ExtractContractMetadata(bytecode []byte) *ContractMetadata {
	start, end := metadataOffset(bytecode)
	if start == -1 {
		return nil
	}
	var metadata ContractMetadata
	if err := cbor.Unmarshal(bytecode[start:end], &metadata); err != nil {
		return nil
	}
	return &metadata
}

// RemoveContractMetadata takes bytecode and attempts to detect contract metadata within it, splitting it where the
// metadata is found. Metadata can contain arbitrary bytes, so it must be removed before searching code for byte
// patterns.
// If contract metadata could be located, this method returns the bytecode solely. Otherwise, this method returns the
// provided input as-is.
func RemoveContractMetadata(bytecode []byte) []byte {
	start, _ := metadataOffset(bytecode)
	if start == -1 {
		return bytecode
	}
	return bytecode[:start]
}

// ExtractBytecodeHash extracts the bytecode hash from given contract metadata and returns the bytes representing the
// hash. If it could not be detected or extracted, nil is returned.
func (m ContractMetadata) ExtractBytecodeHash() []byte {
	// Try every known metadata key to see if we can resolve the bytecode hash
	for _, possibleMetadataKey := range byteCodeHashMetadataKeys {
		if bytecodeHashData, keyExists := m[possibleMetadataKey]; keyExists {
			// Try to cast it to a byte array and return it if we succeeded.
			if bytecodeHash, ok := bytecodeHashData.([]byte); ok {
				return bytecodeHash
			}
		}
	}
	return nil
}

// ExtractCompilerVersion extracts the version of the compiler which produced the bytecode. Release builds store three
// version bytes, prerelease builds store a version string. If the version could not be detected, nil is returned.
func (m ContractMetadata) ExtractCompilerVersion() *semver.Version {
	var versionString string
	switch version := m["solc"].(type) {
	case []byte:
		if len(version) != 3 {
			return nil
		}
		versionString = fmt.Sprintf("%d.%d.%d", version[0], version[1], version[2])
	case string:
		versionString = version
	default:
		return nil
	}

	parsed, err := semver.NewVersion(versionString)
	if err != nil {
		return nil
	}
	return parsed
}
