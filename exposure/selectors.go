package exposure

import (
	"strings"

	"github.com/crytic/exposed/compilation/types"
	"github.com/crytic/medusa-geth/common/hexutil"
	"golang.org/x/crypto/sha3"
)

// ExposedFunction describes an external function of a generated contract.
type ExposedFunction struct {
	// Name is the function name.
	Name string `json:"name"`

	// Signature is the canonical signature used to compute the selector, e.g. "$f(uint256)".
	Signature string `json:"signature"`

	// Selector is the hex-encoded four byte function selector.
	Selector string `json:"selector"`
}

// functionSelector computes the four byte selector of a canonical function signature.
func functionSelector(signature string) []byte {
	hash := sha3.NewLegacyKeccak256()
	hash.Write([]byte(signature))
	return hash.Sum(nil)[:4]
}

// newExposedFunction creates an ExposedFunction for the given name and ABI parameter types.
func newExposedFunction(name string, abiTypes []string) ExposedFunction {
	signature := name + "(" + strings.Join(abiTypes, ",") + ")"
	return ExposedFunction{
		Name:      name,
		Signature: signature,
		Selector:  hexutil.Encode(functionSelector(signature)),
	}
}

// exposedFunctions returns the external functions added by the exposed contract, in emission order.
func (e *exposedContract) exposedFunctions() ([]ExposedFunction, error) {
	cc := e.context
	functions := []ExposedFunction{newExposedFunction(markerConstantName, nil)}
	for _, variable := range e.variables {
		keyTypes := make([]string, 0, len(variable.Keys))
		for _, key := range variable.Keys {
			keyType, err := cc.abiType(key)
			if err != nil {
				return nil, err
			}
			keyTypes = append(keyTypes, keyType)
		}
		functions = append(functions, newExposedFunction(cc.options.Prefix+variable.Declaration.Name, keyTypes))
	}
	for _, wrapper := range e.wrappers {
		abiTypes := make([]string, 0, len(wrapper.Arguments))
		for _, argument := range wrapper.Arguments {
			abiTypes = append(abiTypes, argument.ABIType)
		}
		functions = append(functions, newExposedFunction(cc.options.Prefix+wrapper.Name, abiTypes))
	}
	return functions, nil
}

// inheritedSignatures returns the signatures of the external interface the exposed contract inherits, keyed by
// selector. Functions whose parameters have no ABI representation are skipped.
func (cc *contractContext) inheritedSignatures() map[string]string {
	signatures := make(map[string]string)
	if cc.isLibrary() {
		return signatures
	}
	add := func(name string, parameters []types.TypeName) {
		abiTypes := make([]string, 0, len(parameters))
		for _, parameter := range parameters {
			if parameter == nil {
				return
			}
			if externalizable, err := cc.isExternalizable(parameter); err != nil || !externalizable {
				return
			}
			abiType, err := cc.abiType(parameter)
			if err != nil {
				return
			}
			abiTypes = append(abiTypes, abiType)
		}
		function := newExposedFunction(name, abiTypes)
		if _, exists := signatures[function.Selector]; !exists {
			signatures[function.Selector] = function.Signature
		}
	}

	for _, base := range cc.bases {
		for _, function := range base.Functions() {
			if function.Kind != types.FunctionKindFunction {
				continue
			}
			if function.Visibility != types.VisibilityPublic && function.Visibility != types.VisibilityExternal {
				continue
			}
			parameters := make([]types.TypeName, 0, len(function.Parameters.Parameters))
			for _, parameter := range function.Parameters.Parameters {
				parameters = append(parameters, parameter.TypeName)
			}
			add(function.Name, parameters)
		}
		for _, variable := range base.StateVariables() {
			if variable.Visibility != types.VisibilityPublic || variable.TypeName == nil {
				continue
			}
			// Public getters take one parameter per mapping key and array dimension.
			parameters := make([]types.TypeName, 0)
			typeName := variable.TypeName
			for typeName != nil {
				switch t := typeName.(type) {
				case *types.Mapping:
					parameters = append(parameters, t.KeyType)
					typeName = t.ValueType
				case *types.ArrayTypeName:
					parameters = append(parameters, uint256TypeName)
					typeName = t.BaseType
				default:
					typeName = nil
				}
			}
			add(variable.Name, parameters)
		}
	}
	return signatures
}

// uint256TypeName is the index type of public array getters.
var uint256TypeName = &types.ElementaryTypeName{
	NodeType: "ElementaryTypeName",
	Name:     "uint256",
	TypeDescriptions: types.TypeDescriptions{
		TypeString:     "uint256",
		TypeIdentifier: "t_uint256",
	},
}

// selectorClashes returns a description of every exposed function whose selector collides with another exposed or
// inherited function. Such clashes make the generated contract fail to compile.
func (e *exposedContract) selectorClashes(functions []ExposedFunction) []string {
	signatures := e.context.inheritedSignatures()
	clashes := make([]string, 0)
	for _, function := range functions {
		if existing, ok := signatures[function.Selector]; ok {
			clashes = append(clashes, function.Signature+" clashes with "+existing+" (selector "+function.Selector+")")
			continue
		}
		signatures[function.Selector] = function.Signature
	}
	return clashes
}

