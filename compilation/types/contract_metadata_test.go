package types

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// solcMetadata returns CBOR metadata in the layout solc appends to runtime bytecode, followed by its length.
func solcMetadata(ipfsHash []byte, version []byte) []byte {
	metadata := []byte{0xa2, 0x64, 'i', 'p', 'f', 's', 0x58, byte(len(ipfsHash))}
	metadata = append(metadata, ipfsHash...)
	metadata = append(metadata, 0x64, 's', 'o', 'l', 'c', 0x40|byte(len(version)))
	metadata = append(metadata, version...)
	return append(metadata, byte(len(metadata)>>8), byte(len(metadata)))
}

func TestExtractContractMetadata(t *testing.T) {
	code := []byte{0x60, 0x80, 0x60, 0x40, 0x52, 0xfe}
	hash := bytes.Repeat([]byte{0xab}, 34)
	bytecode := append(bytes.Clone(code), solcMetadata(hash, []byte{0, 8, 20})...)

	metadata := ExtractContractMetadata(bytecode)
	require.NotNil(t, metadata)
	assert.Equal(t, hash, metadata.ExtractBytecodeHash())

	version := metadata.ExtractCompilerVersion()
	require.NotNil(t, version)
	assert.Equal(t, "0.8.20", version.String())

	assert.Equal(t, code, RemoveContractMetadata(bytecode))
}

func TestExtractContractMetadataWithoutLength(t *testing.T) {
	code := []byte{0x60, 0x80, 0x60, 0x40}
	metadata := solcMetadata(bytes.Repeat([]byte{0x01}, 34), []byte{0, 6, 12})
	// Drop the trailing length so the metadata can only be found by its prefix.
	bytecode := append(bytes.Clone(code), metadata[:len(metadata)-2]...)

	extracted := ExtractContractMetadata(bytecode)
	require.NotNil(t, extracted)
	assert.Equal(t, "0.6.12", extracted.ExtractCompilerVersion().String())
	assert.Equal(t, code, RemoveContractMetadata(bytecode))
}

func TestMissingContractMetadata(t *testing.T) {
	code := []byte{0x60, 0x80, 0x60, 0x40, 0x52}
	assert.Nil(t, ExtractContractMetadata(code))
	assert.Equal(t, code, RemoveContractMetadata(code))
	assert.Nil(t, ExtractContractMetadata(nil))
}

func TestExtractCompilerVersion(t *testing.T) {
	assert.Equal(t, "0.8.26", ContractMetadata{"solc": []byte{0, 8, 26}}.ExtractCompilerVersion().String())
	assert.Equal(t, "0.8.27-nightly.2024.7.1", ContractMetadata{"solc": "0.8.27-nightly.2024.7.1"}.ExtractCompilerVersion().String())
	assert.Nil(t, ContractMetadata{"solc": []byte{0, 8}}.ExtractCompilerVersion())
	assert.Nil(t, ContractMetadata{}.ExtractCompilerVersion())
	assert.Nil(t, ContractMetadata{"bzzr0": []byte{1}}.ExtractBytecodeHash())
}
