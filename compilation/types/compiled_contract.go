package types

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/medusa-geth/common/hexutil"
	"github.com/pkg/errors"
)

// libraryPlaceholderPattern matches the unlinked library placeholders solc leaves in bytecode, either
// "__$<hash>$__" or the legacy "__<name>__" form, both 40 hex characters wide.
var libraryPlaceholderPattern = regexp.MustCompile(`__(\$[0-9a-zA-Z]*\$|\w*)__`)

// CompiledContract represents a compiled contract artifact, as written by build tools next to their build info.
type CompiledContract struct {
	// ContractName is the name of the contract.
	ContractName string

	// SourceName is the source unit path the contract was declared in.
	SourceName string

	// Abi describes a contract's application binary interface.
	Abi abi.ABI

	// RuntimeBytecode represents the bytecode to be expected once the contract has been successfully deployed. Unlinked
	// library placeholders are replaced with the zero address.
	RuntimeBytecode []byte
}

// compiledArtifactJSON is the on-disk artifact format shared by hardhat and truffle style build tools.
type compiledArtifactJSON struct {
	ContractName     string `json:"contractName"`
	SourceName       string `json:"sourceName"`
	Abi              any    `json:"abi"`
	DeployedBytecode string `json:"deployedBytecode"`
}

// ReadCompiledContract reads a JSON artifact from the provided path and returns the CompiledContract it describes.
func ReadCompiledContract(path string) (*CompiledContract, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var artifact compiledArtifactJSON
	if err = json.Unmarshal(b, &artifact); err != nil {
		return nil, errors.Wrapf(err, "could not parse artifact '%s'", path)
	}

	// Convert the abi structure to our parsed abi type
	contractAbi, err := ParseABIFromInterface(artifact.Abi)
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse abi of artifact '%s'", path)
	}

	runtimeBytecode, err := DecodeBytecode(artifact.DeployedBytecode)
	if err != nil {
		return nil, fmt.Errorf("unable to parse runtime bytecode for contract '%s': %v", artifact.ContractName, err)
	}

	return &CompiledContract{
		ContractName:    artifact.ContractName,
		SourceName:      artifact.SourceName,
		Abi:             *contractAbi,
		RuntimeBytecode: runtimeBytecode,
	}, nil
}

// DecodeBytecode decodes a hex bytecode string, replacing unlinked library placeholders with the zero address.
func DecodeBytecode(bytecode string) ([]byte, error) {
	bytecode = strings.TrimSpace(bytecode)
	if bytecode == "" || bytecode == "0x" {
		return []byte{}, nil
	}
	if !strings.HasPrefix(bytecode, "0x") {
		bytecode = "0x" + bytecode
	}
	bytecode = libraryPlaceholderPattern.ReplaceAllStringFunc(bytecode, func(placeholder string) string {
		return strings.Repeat("0", len(placeholder))
	})
	return hexutil.Decode(bytecode)
}

// ParseABIFromInterface parses a generic object into an abi.ABI and returns it, or an error if one occurs.
func ParseABIFromInterface(i any) (*abi.ABI, error) {
	var (
		result abi.ABI
		err    error
	)

	// If it's a string, just parse it. Otherwise, we assume it's an interface and serialize it into a string.
	if s, ok := i.(string); ok {
		result, err = abi.JSON(strings.NewReader(s))
		if err != nil {
			return nil, err
		}
	} else {
		var b []byte
		b, err = json.Marshal(i)
		if err != nil {
			return nil, err
		}
		result, err = abi.JSON(strings.NewReader(string(b)))
		if err != nil {
			return nil, err
		}
	}
	return &result, nil
}
