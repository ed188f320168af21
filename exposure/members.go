package exposure

import (
	"fmt"

	"github.com/crytic/exposed/compilation/types"
)

// memberVisibilities returns the visibilities a member must have to be exposed. Library members are reached through
// the library name, so public and external ones are exposed too.
func (cc *contractContext) memberVisibilities() map[types.Visibility]bool {
	if cc.isLibrary() {
		return map[types.Visibility]bool{
			types.VisibilityInternal: true,
			types.VisibilityPublic:   true,
			types.VisibilityExternal: true,
		}
	}
	return map[types.Visibility]bool{types.VisibilityInternal: true}
}

// internalFunctions returns the most-derived implementation of every internal function reachable through the
// linearization, in linearization order then declaration order. The second return value counts the candidates
// considered, including those which were excluded.
func (cc *contractContext) internalFunctions() ([]*types.FunctionDefinition, int, error) {
	visibilities := cc.memberVisibilities()
	overridden := make(map[int64]bool)
	functions := make([]*types.FunctionDefinition, 0)
	candidates := 0
	for _, base := range cc.bases {
		for _, function := range base.Functions() {
			isOverridden := overridden[function.ID]
			for _, baseFunction := range function.BaseFunctions {
				overridden[baseFunction] = true
			}
			if isOverridden || function.Kind != types.FunctionKindFunction || !visibilities[function.Visibility] {
				continue
			}
			candidates++

			externalizable, reason, err := cc.isExternalizableFunction(function)
			if err != nil {
				return nil, 0, fmt.Errorf("could not inspect function '%s.%s': %w", base.Name, function.Name, err)
			}
			if !externalizable {
				cc.logger.Debug("Skipping function ", base.Name, ".", function.Name, ": ", reason)
				continue
			}
			functions = append(functions, function)
		}
	}
	return functions, candidates, nil
}

// isExternalizableFunction indicates whether a wrapper can be generated for the function, providing a reason if not.
func (cc *contractContext) isExternalizableFunction(function *types.FunctionDefinition) (bool, string, error) {
	if function.Kind == types.FunctionKindConstructor {
		return false, "constructors cannot be wrapped", nil
	}
	if function.Visibility == types.VisibilityPrivate {
		return false, "private functions are not inherited", nil
	}
	if !function.Implemented {
		return false, "function is not implemented", nil
	}
	for _, parameter := range function.Parameters.Parameters {
		typeName, err := declaredTypeName(parameter)
		if err != nil {
			return false, "", err
		}
		if _, isFunctionType := typeName.(*types.FunctionTypeName); isFunctionType {
			return false, fmt.Sprintf("parameter '%s' has a function type", parameter.Name), nil
		}
		if parameter.StorageLocation == types.StorageLocationStorage {
			continue
		}
		externalizable, err := cc.isExternalizable(typeName)
		if err != nil {
			return false, "", err
		}
		if !externalizable {
			return false, fmt.Sprintf("parameter '%s' cannot be passed externally", parameter.Name), nil
		}
	}
	for i, returnParameter := range function.ReturnParameters.Parameters {
		typeName, err := declaredTypeName(returnParameter)
		if err != nil {
			return false, "", err
		}
		externalizable, err := cc.isExternalizable(typeName)
		if err != nil {
			return false, "", err
		}
		if !externalizable {
			return false, fmt.Sprintf("return value %d cannot be returned externally", i), nil
		}
	}
	return true, "", nil
}

// exposedVariable is a state variable together with the accessor shape derived from its type.
type exposedVariable struct {
	// Declaration is the state variable.
	Declaration *types.VariableDeclaration

	// Owner is the contract declaring the variable.
	Owner *types.ContractDefinition

	// Keys are the mapping key types, outermost first, each becoming an accessor parameter.
	Keys []types.TypeName

	// Value is the type reached after indexing with every key.
	Value types.TypeName

	// Mutability is the state mutability of the accessor.
	Mutability types.StateMutability
}

// internalVariables returns every internal state variable reachable through the linearization whose value type, after
// unwrapping mapping keys, can be returned externally. The second return value counts the candidates considered.
func (cc *contractContext) internalVariables() ([]*exposedVariable, int, error) {
	visibilities := cc.memberVisibilities()
	variables := make([]*exposedVariable, 0)
	candidates := 0
	for _, base := range cc.bases {
		for _, variable := range base.StateVariables() {
			if !visibilities[variable.Visibility] {
				continue
			}
			candidates++

			typeName, err := declaredTypeName(variable)
			if err != nil {
				return nil, 0, fmt.Errorf("could not inspect variable '%s.%s': %w", base.Name, variable.Name, err)
			}
			keys := make([]types.TypeName, 0)
			for {
				mapping, ok := typeName.(*types.Mapping)
				if !ok {
					break
				}
				keys = append(keys, mapping.KeyType)
				typeName = mapping.ValueType
			}

			externalizable, err := cc.isExternalizable(typeName)
			if err != nil {
				return nil, 0, fmt.Errorf("could not inspect variable '%s.%s': %w", base.Name, variable.Name, err)
			}
			if !externalizable {
				cc.logger.Debug("Skipping variable ", base.Name, ".", variable.Name, ": value cannot be returned externally")
				continue
			}

			mutability := types.StateMutabilityPure
			switch variable.GetMutability() {
			case types.VariableMutabilityMutable:
				mutability = types.StateMutabilityView
			case types.VariableMutabilityImmutable:
				if !variable.HasInitializer() {
					mutability = types.StateMutabilityView
				}
			}

			variables = append(variables, &exposedVariable{
				Declaration: variable,
				Owner:       base,
				Keys:        keys,
				Value:       typeName,
				Mutability:  mutability,
			})
		}
	}
	return variables, candidates, nil
}
