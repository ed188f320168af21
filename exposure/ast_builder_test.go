package exposure

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/crytic/exposed/compilation/types"
	"github.com/crytic/exposed/logging"
	"github.com/stretchr/testify/require"
)

// astBuilder builds source units for tests, assigning unique ids the way the compiler does.
type astBuilder struct {
	nextID int64
}

func newASTBuilder() *astBuilder {
	return &astBuilder{nextID: 1}
}

func (b *astBuilder) id() int64 {
	id := b.nextID
	b.nextID++
	return id
}

func descriptions(typeString string) types.TypeDescriptions {
	return types.TypeDescriptions{
		TypeString:     typeString,
		TypeIdentifier: "t_" + strings.NewReplacer(" ", "_", "(", "$_", ")", "_$", "[", "_array$_", "]", "").Replace(typeString),
	}
}

// unit creates a source unit holding the given nodes.
func (b *astBuilder) unit(path string, nodes ...types.Node) *types.SourceUnit {
	unit := &types.SourceUnit{
		ID:              b.id(),
		NodeType:        "SourceUnit",
		AbsolutePath:    path,
		ExportedSymbols: make(map[string][]int64),
		Nodes:           nodes,
	}
	for _, node := range nodes {
		switch n := node.(type) {
		case *types.ContractDefinition:
			n.Scope = unit.ID
			unit.ExportedSymbols[n.Name] = []int64{n.ID}
		case *types.StructDefinition:
			n.Scope = unit.ID
			unit.ExportedSymbols[n.Name] = []int64{n.ID}
		case *types.ImportDirective:
			n.Scope = unit.ID
		}
	}
	return unit
}

// contract creates a contract whose linearization is itself followed by the given bases.
func (b *astBuilder) contract(name string, linearizedBases ...*types.ContractDefinition) *types.ContractDefinition {
	contract := &types.ContractDefinition{
		ID:       b.id(),
		NodeType: "ContractDefinition",
		Name:     name,
		Kind:     types.ContractKindContract,
		Nodes:    make([]types.Node, 0),
	}
	contract.LinearizedBaseContracts = []int64{contract.ID}
	for _, base := range linearizedBases {
		contract.LinearizedBaseContracts = append(contract.LinearizedBaseContracts, base.ID)
	}
	return contract
}

// library creates a library.
func (b *astBuilder) library(name string) *types.ContractDefinition {
	library := b.contract(name)
	library.Kind = types.ContractKindLibrary
	return library
}

// inherits adds an inheritance specifier, optionally supplying constructor arguments.
func (b *astBuilder) inherits(contract *types.ContractDefinition, base *types.ContractDefinition, arguments ...string) {
	specifier := types.InheritanceSpecifier{
		ID:       b.id(),
		BaseName: types.IdentifierPath{ID: b.id(), Name: base.Name, ReferencedDeclaration: base.ID},
	}
	for _, argument := range arguments {
		specifier.Arguments = append(specifier.Arguments, json.RawMessage(fmt.Sprintf(`{"nodeType":"Literal","value":%q}`, argument)))
	}
	contract.BaseContracts = append(contract.BaseContracts, specifier)
}

func (b *astBuilder) elementary(name string) *types.ElementaryTypeName {
	return &types.ElementaryTypeName{
		ID:               b.id(),
		NodeType:         "ElementaryTypeName",
		Name:             name,
		TypeDescriptions: descriptions(name),
	}
}

func (b *astBuilder) array(base types.TypeName, length string) *types.ArrayTypeName {
	array := &types.ArrayTypeName{
		ID:               b.id(),
		NodeType:         "ArrayTypeName",
		BaseType:         base,
		TypeDescriptions: descriptions(base.GetTypeDescriptions().TypeString + "[" + length + "]"),
	}
	if length != "" {
		array.Length = json.RawMessage(fmt.Sprintf(`{"nodeType":"Literal","value":%q}`, length))
	}
	return array
}

func (b *astBuilder) mapping(key types.TypeName, value types.TypeName) *types.Mapping {
	return &types.Mapping{
		ID:        b.id(),
		NodeType:  "Mapping",
		KeyType:   key,
		ValueType: value,
		TypeDescriptions: descriptions(fmt.Sprintf("mapping(%s => %s)",
			key.GetTypeDescriptions().TypeString, value.GetTypeDescriptions().TypeString)),
	}
}

func (b *astBuilder) functionType() *types.FunctionTypeName {
	return &types.FunctionTypeName{
		ID:               b.id(),
		NodeType:         "FunctionTypeName",
		Visibility:       types.VisibilityInternal,
		StateMutability:  types.StateMutabilityPure,
		TypeDescriptions: descriptions("function () pure"),
	}
}

// userDefined references a struct, enum, contract or user-defined value type declaration.
func (b *astBuilder) userDefined(declaration types.Node) *types.UserDefinedTypeName {
	var name, typeString string
	switch d := declaration.(type) {
	case *types.StructDefinition:
		name, typeString = d.Name, "struct "+d.CanonicalName
	case *types.EnumDefinition:
		name, typeString = d.Name, "enum "+d.CanonicalName
	case *types.ContractDefinition:
		name, typeString = d.Name, "contract "+d.Name
	case *types.UserDefinedValueTypeDefinition:
		name, typeString = d.Name, d.CanonicalName
	}
	return &types.UserDefinedTypeName{
		ID:                    b.id(),
		NodeType:              "UserDefinedTypeName",
		PathNode:              &types.IdentifierPath{ID: b.id(), Name: name, ReferencedDeclaration: declaration.GetID()},
		ReferencedDeclaration: declaration.GetID(),
		TypeDescriptions:      descriptions(typeString),
	}
}

// variable creates a variable declaration of the given type.
func (b *astBuilder) variable(name string, typeName types.TypeName, location types.StorageLocation) *types.VariableDeclaration {
	typeString := typeName.GetTypeDescriptions().TypeString
	if location != types.StorageLocationDefault {
		typeString += " " + string(location)
	}
	return &types.VariableDeclaration{
		ID:               b.id(),
		NodeType:         "VariableDeclaration",
		Name:             name,
		Visibility:       types.VisibilityInternal,
		Mutability:       types.VariableMutabilityMutable,
		StorageLocation:  location,
		TypeName:         typeName,
		TypeDescriptions: descriptions(typeString),
	}
}

// stateVariable declares a state variable in the contract.
func (b *astBuilder) stateVariable(contract *types.ContractDefinition, name string, typeName types.TypeName, visibility types.Visibility) *types.VariableDeclaration {
	variable := b.variable(name, typeName, types.StorageLocationDefault)
	variable.Visibility = visibility
	variable.StateVariable = true
	variable.Scope = contract.ID
	contract.Nodes = append(contract.Nodes, variable)
	return variable
}

// structDefinition declares a struct in the contract, or at file level if contract is nil.
func (b *astBuilder) structDefinition(contract *types.ContractDefinition, name string, members ...*types.VariableDeclaration) *types.StructDefinition {
	definition := &types.StructDefinition{
		ID:            b.id(),
		NodeType:      "StructDefinition",
		Name:          name,
		CanonicalName: name,
		Members:       members,
	}
	if contract != nil {
		definition.CanonicalName = contract.Name + "." + name
		definition.Scope = contract.ID
		contract.Nodes = append(contract.Nodes, definition)
	}
	return definition
}

// enumDefinition declares an enum in the contract.
func (b *astBuilder) enumDefinition(contract *types.ContractDefinition, name string, values ...string) *types.EnumDefinition {
	definition := &types.EnumDefinition{
		ID:            b.id(),
		NodeType:      "EnumDefinition",
		Name:          name,
		CanonicalName: contract.Name + "." + name,
		Scope:         contract.ID,
	}
	for _, value := range values {
		definition.Members = append(definition.Members, types.EnumValue{ID: b.id(), Name: value})
	}
	contract.Nodes = append(contract.Nodes, definition)
	return definition
}

// valueType declares a user-defined value type at file level.
func (b *astBuilder) valueType(name string, underlying types.TypeName) *types.UserDefinedValueTypeDefinition {
	return &types.UserDefinedValueTypeDefinition{
		ID:             b.id(),
		NodeType:       "UserDefinedValueTypeDefinition",
		Name:           name,
		CanonicalName:  name,
		UnderlyingType: underlying,
	}
}

// function declares an implemented function in the contract.
func (b *astBuilder) function(contract *types.ContractDefinition, name string, visibility types.Visibility, mutability types.StateMutability, parameters []*types.VariableDeclaration, returns []*types.VariableDeclaration) *types.FunctionDefinition {
	function := &types.FunctionDefinition{
		ID:               b.id(),
		NodeType:         "FunctionDefinition",
		Name:             name,
		Kind:             types.FunctionKindFunction,
		Visibility:       visibility,
		StateMutability:  mutability,
		Implemented:      true,
		Parameters:       types.ParameterList{Parameters: parameters},
		ReturnParameters: types.ParameterList{Parameters: returns},
		Body:             &types.Block{ID: b.id(), CallTargets: []int64{}},
		Scope:            contract.ID,
	}
	contract.Nodes = append(contract.Nodes, function)
	return function
}

// constructor declares a constructor in the contract.
func (b *astBuilder) constructor(contract *types.ContractDefinition, parameters ...*types.VariableDeclaration) *types.FunctionDefinition {
	constructor := b.function(contract, "", types.VisibilityPublic, types.StateMutabilityNonPayable, parameters, nil)
	constructor.Kind = types.FunctionKindConstructor
	return constructor
}

// receive declares a receive function in the contract.
func (b *astBuilder) receive(contract *types.ContractDefinition) *types.FunctionDefinition {
	receive := b.function(contract, "", types.VisibilityExternal, types.StateMutabilityPayable, nil, nil)
	receive.Kind = types.FunctionKindReceive
	return receive
}

// importDirective imports a unit, optionally by symbol alias.
func (b *astBuilder) importDirective(imported *types.SourceUnit, symbols ...types.Node) *types.ImportDirective {
	directive := &types.ImportDirective{
		ID:           b.id(),
		NodeType:     "ImportDirective",
		AbsolutePath: imported.AbsolutePath,
		File:         imported.AbsolutePath,
		SourceUnit:   imported.ID,
	}
	for _, symbol := range symbols {
		name := ""
		switch s := symbol.(type) {
		case *types.ContractDefinition:
			name = s.Name
		case *types.StructDefinition:
			name = s.Name
		}
		directive.SymbolAliases = append(directive.SymbolAliases, types.SymbolAlias{
			Foreign: types.IdentifierPath{ID: b.id(), Name: name, ReferencedDeclaration: symbol.GetID()},
		})
	}
	return directive
}

func params(declarations ...*types.VariableDeclaration) []*types.VariableDeclaration {
	return declarations
}

// all matches every source path.
func all(string) bool { return true }

// none matches no source path.
func none(string) bool { return false }

// newTestContext creates the exposure context of a contract within the given units.
func newTestContext(t *testing.T, options Options, units []*types.SourceUnit, contract *types.ContractDefinition) *contractContext {
	cc, err := newContractContext(newASTIndex(units), options, logging.GlobalLogger, contract)
	require.NoError(t, err)
	return cc
}
