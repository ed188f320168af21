package exposure

import (
	"regexp"
	"strings"

	"github.com/crytic/exposed/compilation/types"
	"github.com/crytic/medusa-geth/accounts/abi"
)

var (
	// locationSuffixPattern matches the data location suffix of a compiler type string.
	locationSuffixPattern = regexp.MustCompile(`\s+(storage ref|storage pointer|memory|calldata|calldata slice|storage)$`)

	// arrayLengthPattern captures the length of the outermost array dimension of a type string.
	arrayLengthPattern = regexp.MustCompile(`\[(\d*)\]$`)
)

// stripLocation removes the data location suffix from a compiler type string.
func stripLocation(typeString string) string {
	return locationSuffixPattern.ReplaceAllString(typeString, "")
}

// typeDescriptionsOf returns the type descriptions of a type name, failing if the compiler omitted them.
func typeDescriptionsOf(typeName types.TypeName) (types.TypeDescriptions, error) {
	descriptions := typeName.GetTypeDescriptions()
	if descriptions.IsMissing() {
		return descriptions, &AstContractViolationError{
			NodeID: typeName.GetID(),
			Name:   typeName.GetNodeType(),
			Reason: "type name has no type descriptions",
		}
	}
	return descriptions, nil
}

// declaredTypeName returns the type name of a declaration, failing if the declaration lacks type information.
func declaredTypeName(declaration *types.VariableDeclaration) (types.TypeName, error) {
	if declaration.TypeDescriptions.IsMissing() {
		return nil, &AstContractViolationError{
			NodeID: declaration.ID,
			Name:   declaration.Name,
			Reason: "declaration has no type descriptions",
		}
	}
	if declaration.TypeName == nil {
		return nil, &AstContractViolationError{
			NodeID: declaration.ID,
			Name:   declaration.Name,
			Reason: "declaration has no type name",
		}
	}
	return declaration.TypeName, nil
}

// sourceType renders the declared type of a declaration as it must be written in generated source, qualified with
// the given data location if the type is a reference type.
func (cc *contractContext) sourceType(declaration *types.VariableDeclaration, location types.StorageLocation) (string, error) {
	typeName, err := declaredTypeName(declaration)
	if err != nil {
		return "", err
	}
	return cc.sourceTypeWithLocation(typeName, location)
}

// sourceTypeWithLocation renders a type name, qualified with the given data location if it is a reference type.
func (cc *contractContext) sourceTypeWithLocation(typeName types.TypeName, location types.StorageLocation) (string, error) {
	rendered, err := cc.typeNameSource(typeName)
	if err != nil {
		return "", err
	}
	isReference, err := cc.isReferenceType(typeName)
	if err != nil {
		return "", err
	}
	if isReference && location != types.StorageLocationDefault && location != "" {
		rendered += " " + string(location)
	}
	return rendered, nil
}

// typeNameSource renders a type name without data location.
func (cc *contractContext) typeNameSource(typeName types.TypeName) (string, error) {
	switch t := typeName.(type) {
	case *types.ElementaryTypeName:
		descriptions, err := typeDescriptionsOf(t)
		if err != nil {
			return "", err
		}
		return stripLocation(descriptions.TypeString), nil
	case *types.ArrayTypeName:
		base, err := cc.typeNameSource(t.BaseType)
		if err != nil {
			return "", err
		}
		length, err := arrayLength(t)
		if err != nil {
			return "", err
		}
		return base + "[" + length + "]", nil
	case *types.Mapping:
		key, err := cc.typeNameSource(t.KeyType)
		if err != nil {
			return "", err
		}
		value, err := cc.typeNameSource(t.ValueType)
		if err != nil {
			return "", err
		}
		return "mapping(" + key + " => " + value + ")", nil
	case *types.UserDefinedTypeName:
		return cc.userDefinedTypeSource(t)
	case *types.FunctionTypeName:
		descriptions, err := typeDescriptionsOf(t)
		if err != nil {
			return "", err
		}
		return stripLocation(descriptions.TypeString), nil
	default:
		return "", &AstContractViolationError{Reason: "declaration has no type name"}
	}
}

// arrayLength returns the length of the outermost dimension of an array type, or an empty string if it is dynamic.
func arrayLength(arrayType *types.ArrayTypeName) (string, error) {
	descriptions, err := typeDescriptionsOf(arrayType)
	if err != nil {
		return "", err
	}
	match := arrayLengthPattern.FindStringSubmatch(stripLocation(descriptions.TypeString))
	if match == nil {
		return "", &AstContractViolationError{
			NodeID: arrayType.ID,
			Name:   descriptions.TypeString,
			Reason: "array type string has no dimension",
		}
	}
	return match[1], nil
}

// userDefinedTypeSource renders a reference to a struct, enum, contract or user-defined value type. Types declared
// in the exposed contract or one of its non-library ancestors are visible unqualified in the generated contract.
func (cc *contractContext) userDefinedTypeSource(typeName *types.UserDefinedTypeName) (string, error) {
	node, ok := cc.index.lookup(typeName.ReferencedDeclaration)
	if !ok {
		return "", &UnresolvedReferenceError{ID: typeName.ReferencedDeclaration, Expected: "type declaration"}
	}

	var name, canonicalName string
	var scope int64
	switch declaration := node.(type) {
	case *types.ContractDefinition:
		return declaration.Name, nil
	case *types.StructDefinition:
		name, canonicalName, scope = declaration.Name, declaration.CanonicalName, declaration.Scope
	case *types.EnumDefinition:
		name, canonicalName, scope = declaration.Name, declaration.CanonicalName, declaration.Scope
	case *types.UserDefinedValueTypeDefinition:
		cc.usesValueTypes = true
		name, canonicalName, scope = declaration.Name, declaration.CanonicalName, declaration.Scope
	default:
		return "", &UnresolvedReferenceError{
			ID:       typeName.ReferencedDeclaration,
			Expected: "type declaration",
			Found:    node.GetNodeType(),
		}
	}

	if canonicalName == "" {
		canonicalName = name
	}
	if cc.baseIDs[scope] {
		if scopeContract, err := deref[*types.ContractDefinition](cc.index, scope); err == nil && !scopeContract.IsLibrary() {
			return name, nil
		}
	}
	return canonicalName, nil
}

// isReferenceType indicates whether values of the type carry a data location.
func (cc *contractContext) isReferenceType(typeName types.TypeName) (bool, error) {
	switch t := typeName.(type) {
	case *types.ArrayTypeName, *types.Mapping:
		return true, nil
	case *types.ElementaryTypeName:
		name := t.Name
		if !t.TypeDescriptions.IsMissing() {
			name = stripLocation(t.TypeDescriptions.TypeString)
		}
		return name == "string" || name == "bytes", nil
	case *types.UserDefinedTypeName:
		node, ok := cc.index.lookup(t.ReferencedDeclaration)
		if !ok {
			return false, &UnresolvedReferenceError{ID: t.ReferencedDeclaration, Expected: "type declaration"}
		}
		_, isStruct := node.(*types.StructDefinition)
		return isStruct, nil
	default:
		return false, nil
	}
}

// abiType renders the canonical ABI type of a type name, as used in function signatures.
func (cc *contractContext) abiType(typeName types.TypeName) (string, error) {
	switch t := typeName.(type) {
	case *types.ElementaryTypeName:
		descriptions, err := typeDescriptionsOf(t)
		if err != nil {
			return "", err
		}
		return canonicalElementaryType(stripLocation(descriptions.TypeString)), nil
	case *types.ArrayTypeName:
		base, err := cc.abiType(t.BaseType)
		if err != nil {
			return "", err
		}
		length, err := arrayLength(t)
		if err != nil {
			return "", err
		}
		return base + "[" + length + "]", nil
	case *types.FunctionTypeName:
		return "function", nil
	case *types.UserDefinedTypeName:
		node, ok := cc.index.lookup(t.ReferencedDeclaration)
		if !ok {
			return "", &UnresolvedReferenceError{ID: t.ReferencedDeclaration, Expected: "type declaration"}
		}
		switch declaration := node.(type) {
		case *types.EnumDefinition:
			return "uint8", nil
		case *types.ContractDefinition:
			return "address", nil
		case *types.UserDefinedValueTypeDefinition:
			if declaration.UnderlyingType == nil {
				return "", &AstContractViolationError{
					NodeID: declaration.ID,
					Name:   declaration.Name,
					Reason: "user-defined value type has no underlying type",
				}
			}
			return cc.abiType(declaration.UnderlyingType)
		case *types.StructDefinition:
			members := make([]string, 0, len(declaration.Members))
			for _, member := range declaration.Members {
				memberType, err := declaredTypeName(member)
				if err != nil {
					return "", err
				}
				rendered, err := cc.abiType(memberType)
				if err != nil {
					return "", err
				}
				members = append(members, rendered)
			}
			return "(" + strings.Join(members, ",") + ")", nil
		default:
			return "", &UnresolvedReferenceError{
				ID:       t.ReferencedDeclaration,
				Expected: "type declaration",
				Found:    node.GetNodeType(),
			}
		}
	default:
		return "", &AstContractViolationError{
			NodeID: typeName.GetID(),
			Name:   typeName.GetNodeType(),
			Reason: "type has no ABI representation",
		}
	}
}

// canonicalElementaryType normalizes an elementary type string to its canonical ABI spelling, e.g. "uint" to
// "uint256". Type strings the ABI parser does not understand are returned as-is.
func canonicalElementaryType(typeString string) string {
	typeString = strings.TrimSuffix(typeString, " payable")
	abiType, err := abi.NewType(typeString, "", nil)
	if err != nil {
		return typeString
	}
	return abiType.String()
}

// isExternalizable indicates whether values of the type can cross an external call boundary.
func (cc *contractContext) isExternalizable(typeName types.TypeName) (bool, error) {
	return cc.isExternalizableVisiting(typeName, make(map[int64]bool))
}

func (cc *contractContext) isExternalizableVisiting(typeName types.TypeName, visiting map[int64]bool) (bool, error) {
	switch t := typeName.(type) {
	case *types.Mapping, *types.FunctionTypeName:
		return false, nil
	case *types.ElementaryTypeName:
		return true, nil
	case *types.ArrayTypeName:
		return cc.isExternalizableVisiting(t.BaseType, visiting)
	case *types.UserDefinedTypeName:
		node, ok := cc.index.lookup(t.ReferencedDeclaration)
		if !ok {
			return false, &UnresolvedReferenceError{ID: t.ReferencedDeclaration, Expected: "type declaration"}
		}
		structDefinition, ok := node.(*types.StructDefinition)
		if !ok {
			return true, nil
		}
		// Recursive structs cannot be encoded.
		if visiting[structDefinition.ID] {
			return false, nil
		}
		visiting[structDefinition.ID] = true
		defer delete(visiting, structDefinition.ID)
		for _, member := range structDefinition.Members {
			memberType, err := declaredTypeName(member)
			if err != nil {
				return false, err
			}
			externalizable, err := cc.isExternalizableVisiting(memberType, visiting)
			if err != nil || !externalizable {
				return false, err
			}
		}
		return true, nil
	default:
		return false, nil
	}
}
