package exposure

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/crytic/exposed/compilation/types"
)

// nonIdentifierPattern matches runs of characters which may not appear in an identifier.
var nonIdentifierPattern = regexp.MustCompile(`[^0-9a-zA-Z$_]+`)

// sanitizeIdentifier replaces every run of non-identifier characters with an underscore.
func sanitizeIdentifier(s string) string {
	return nonIdentifierPattern.ReplaceAllString(s, "_")
}

// storageMapping is an internal mapping from integer handles to storage values of one type. Storage references
// cannot be passed externally, so wrappers accept a handle and look the reference up in the mapping.
type storageMapping struct {
	// Name is the name of the mapping variable.
	Name string

	// Type is the value type of the mapping, without data location.
	Type string
}

// wrapperArgument is a single parameter of a generated wrapper.
type wrapperArgument struct {
	// Name is the parameter name, or a synthesized one if the original parameter is unnamed.
	Name string

	// Type is the parameter type as written in the wrapper signature.
	Type string

	// DeclaredType is the type of the original parameter, with data location.
	DeclaredType string

	// ABIType is the canonical ABI type of the wrapper parameter.
	ABIType string

	// Storage is the mapping resolving the handle of a storage parameter, or nil if the parameter is passed through.
	Storage *storageMapping
}

// callExpression returns the expression passing the argument to the wrapped function.
func (a wrapperArgument) callExpression() string {
	if a.Storage != nil {
		return a.Storage.Name + "[" + a.Name + "]"
	}
	return a.Name
}

// storageMappingFor returns the handle mapping for a storage parameter.
func (cc *contractContext) storageMappingFor(parameter *types.VariableDeclaration) (*storageMapping, error) {
	typeName, err := declaredTypeName(parameter)
	if err != nil {
		return nil, err
	}
	rendered, err := cc.typeNameSource(typeName)
	if err != nil {
		return nil, err
	}
	return &storageMapping{
		Name: cc.options.Prefix + "v_" + sanitizeIdentifier(rendered),
		Type: rendered,
	}, nil
}

// wrapperArguments computes the wrapper parameters of a function, substituting handles for storage parameters.
func (cc *contractContext) wrapperArguments(function *types.FunctionDefinition) ([]wrapperArgument, error) {
	arguments := make([]wrapperArgument, 0, len(function.Parameters.Parameters))
	for i, parameter := range function.Parameters.Parameters {
		name := parameter.Name
		if name == "" {
			name = fmt.Sprintf("arg%d", i)
		}

		argument := wrapperArgument{Name: name}
		var err error
		switch parameter.StorageLocation {
		case types.StorageLocationStorage:
			argument.DeclaredType, err = cc.sourceType(parameter, types.StorageLocationStorage)
			if err != nil {
				return nil, err
			}
			argument.Storage, err = cc.storageMappingFor(parameter)
			if err != nil {
				return nil, err
			}
			argument.Type = "uint256"
			argument.ABIType = "uint256"
		default:
			location := types.StorageLocationMemory
			if parameter.StorageLocation == types.StorageLocationCalldata {
				location = types.StorageLocationCalldata
			}
			argument.DeclaredType, err = cc.sourceType(parameter, parameter.StorageLocation)
			if err != nil {
				return nil, err
			}
			argument.Type, err = cc.sourceType(parameter, location)
			if err != nil {
				return nil, err
			}
			argument.ABIType, err = cc.abiType(parameter.TypeName)
			if err != nil {
				return nil, err
			}
		}
		arguments = append(arguments, argument)
	}
	return arguments, nil
}

// collectStorageMappings returns the distinct storage mappings used by the wrappers, in first-use order. Arguments of
// the same storage type share one mapping. Types whose sanitized names coincide get numbered names, and the wrapper
// arguments are updated to refer to the mapping they share.
func collectStorageMappings(wrappers []*functionWrapper) []*storageMapping {
	byType := make(map[string]*storageMapping)
	usedNames := make(map[string]bool)
	mappings := make([]*storageMapping, 0)
	for _, wrapper := range wrappers {
		for i := range wrapper.Arguments {
			argument := &wrapper.Arguments[i]
			if argument.Storage == nil {
				continue
			}
			if mapping, ok := byType[argument.Storage.Type]; ok {
				argument.Storage = mapping
				continue
			}

			mapping := argument.Storage
			for name, n := mapping.Name, 2; usedNames[mapping.Name]; n++ {
				mapping.Name = name + "_" + strconv.Itoa(n)
			}
			usedNames[mapping.Name] = true
			byType[mapping.Type] = mapping
			mappings = append(mappings, mapping)
		}
	}
	return mappings
}
