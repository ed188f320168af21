package types

import (
	"encoding/json"
	"fmt"

	"golang.org/x/exp/slices"
)

// ContractKind represents the kind of contract definition represented by an AST node
type ContractKind string

const (
	// ContractKindContract represents a contract node
	ContractKindContract ContractKind = "contract"
	// ContractKindLibrary represents a library node
	ContractKindLibrary ContractKind = "library"
	// ContractKindInterface represents an interface node
	ContractKindInterface ContractKind = "interface"
)

// FunctionKind represents the kind of function definition represented by an AST node
type FunctionKind string

const (
	FunctionKindFunction     FunctionKind = "function"
	FunctionKindConstructor  FunctionKind = "constructor"
	FunctionKindReceive      FunctionKind = "receive"
	FunctionKindFallback     FunctionKind = "fallback"
	FunctionKindFreeFunction FunctionKind = "freeFunction"
)

// Visibility describes the visibility of a function or variable declaration.
type Visibility string

const (
	VisibilityInternal Visibility = "internal"
	VisibilityPrivate  Visibility = "private"
	VisibilityPublic   Visibility = "public"
	VisibilityExternal Visibility = "external"
)

// StateMutability describes the state mutability of a function declaration.
type StateMutability string

const (
	StateMutabilityPure       StateMutability = "pure"
	StateMutabilityView       StateMutability = "view"
	StateMutabilityNonPayable StateMutability = "nonpayable"
	StateMutabilityPayable    StateMutability = "payable"
)

// VariableMutability describes whether a variable is mutable, immutable or constant.
type VariableMutability string

const (
	VariableMutabilityMutable   VariableMutability = "mutable"
	VariableMutabilityImmutable VariableMutability = "immutable"
	VariableMutabilityConstant  VariableMutability = "constant"
)

// StorageLocation describes the data location of a variable declaration.
type StorageLocation string

const (
	StorageLocationDefault  StorageLocation = "default"
	StorageLocationStorage  StorageLocation = "storage"
	StorageLocationMemory   StorageLocation = "memory"
	StorageLocationCalldata StorageLocation = "calldata"
)

// Node interface represents a generic AST node
type Node interface {
	// GetNodeType returns the solc node type string, e.g. "ContractDefinition".
	GetNodeType() string
	// GetID returns the unique AST node id of this node.
	GetID() int64
}

// TypeName represents any of the type name nodes that may describe the declared type of a variable.
// The set of implementations is closed: ElementaryTypeName, ArrayTypeName, Mapping, UserDefinedTypeName and
// FunctionTypeName.
type TypeName interface {
	Node
	// GetTypeDescriptions returns the compiler provided type strings for the type name.
	GetTypeDescriptions() TypeDescriptions
	isTypeName()
}

// TypeDescriptions carries the compiler's string representations of a type.
type TypeDescriptions struct {
	// TypeString is the human-readable type, e.g. "struct Foo.Bar storage ref".
	TypeString string `json:"typeString"`
	// TypeIdentifier is the unique identifier of the type, e.g. "t_struct$_Bar_$12_storage_ptr".
	TypeIdentifier string `json:"typeIdentifier"`
}

// IsMissing indicates whether the compiler omitted type information.
func (t TypeDescriptions) IsMissing() bool {
	return t.TypeString == "" || t.TypeIdentifier == ""
}

// IdentifierPath references a declaration by name, e.g. the base name of an inheritance specifier.
type IdentifierPath struct {
	ID                    int64  `json:"id"`
	Name                  string `json:"name"`
	ReferencedDeclaration int64  `json:"referencedDeclaration"`
}

// SourceUnit is the root node of a single compiled source file.
type SourceUnit struct {
	ID           int64  `json:"id"`
	NodeType     string `json:"nodeType"`
	AbsolutePath string `json:"absolutePath"`
	// ExportedSymbols maps every symbol visible at file level to the ids of its declarations.
	ExportedSymbols map[string][]int64 `json:"exportedSymbols"`
	// Nodes is a list of the top-level declarations and directives of the file. Node types that are not consumed
	// are dropped while decoding.
	Nodes []Node `json:"nodes"`
	Src   string `json:"src"`
}

func (s *SourceUnit) GetNodeType() string { return s.NodeType }
func (s *SourceUnit) GetID() int64        { return s.ID }

// UnmarshalJSON unmarshals from JSON
func (s *SourceUnit) UnmarshalJSON(data []byte) error {
	// Unmarshal the top-level AST into our own representation. Defer the unmarshaling of all the individual nodes until later
	type Alias SourceUnit
	aux := &struct {
		Nodes []json.RawMessage `json:"nodes"`
		*Alias
	}{
		Alias: (*Alias)(s),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	nodes, err := unmarshalNodes(aux.Nodes)
	if err != nil {
		return err
	}
	s.Nodes = nodes
	return nil
}

// Contracts returns the contract definitions declared in this source unit, in declaration order.
func (s *SourceUnit) Contracts() []*ContractDefinition {
	contracts := make([]*ContractDefinition, 0)
	for _, node := range s.Nodes {
		if contract, ok := node.(*ContractDefinition); ok {
			contracts = append(contracts, contract)
		}
	}
	return contracts
}

// Imports returns the import directives of this source unit, in declaration order.
func (s *SourceUnit) Imports() []*ImportDirective {
	imports := make([]*ImportDirective, 0)
	for _, node := range s.Nodes {
		if importDirective, ok := node.(*ImportDirective); ok {
			imports = append(imports, importDirective)
		}
	}
	return imports
}

// SymbolAlias is a single `{foreign as local}` entry of an import directive.
type SymbolAlias struct {
	Foreign IdentifierPath `json:"foreign"`
	Local   string         `json:"local,omitempty"`
}

// ImportDirective is an `import` statement.
type ImportDirective struct {
	ID           int64  `json:"id"`
	NodeType     string `json:"nodeType"`
	AbsolutePath string `json:"absolutePath"`
	File         string `json:"file"`
	// SourceUnit is the id of the imported source unit.
	SourceUnit    int64         `json:"sourceUnit"`
	Scope         int64         `json:"scope"`
	UnitAlias     string        `json:"unitAlias"`
	SymbolAliases []SymbolAlias `json:"symbolAliases"`
}

func (i *ImportDirective) GetNodeType() string { return i.NodeType }
func (i *ImportDirective) GetID() int64        { return i.ID }

// InheritanceSpecifier is an entry in the `is A, B(1)` list of a contract.
type InheritanceSpecifier struct {
	ID       int64          `json:"id"`
	BaseName IdentifierPath `json:"baseName"`
	// Arguments holds the explicit base constructor arguments. It is nil when no argument list was written.
	Arguments []json.RawMessage `json:"arguments"`
}

// ContractDefinition is the contract definition node
type ContractDefinition struct {
	ID            int64        `json:"id"`
	NodeType      string       `json:"nodeType"`
	Name          string       `json:"name"`
	CanonicalName string       `json:"canonicalName,omitempty"`
	Kind          ContractKind `json:"contractKind,omitempty"`
	Abstract      bool         `json:"abstract"`
	// LinearizedBaseContracts is the C3 linearization computed by the compiler, most-derived (the contract itself)
	// first.
	LinearizedBaseContracts []int64                `json:"linearizedBaseContracts"`
	BaseContracts           []InheritanceSpecifier `json:"baseContracts"`
	// Nodes is a list of the member declarations of the contract.
	Nodes []Node `json:"nodes"`
	Scope int64  `json:"scope"`
	Src   string `json:"src"`
}

// GetNodeType implements the Node interface and returns the node type for the contract definition
func (c *ContractDefinition) GetNodeType() string { return c.NodeType }
func (c *ContractDefinition) GetID() int64        { return c.ID }

func (c *ContractDefinition) UnmarshalJSON(data []byte) error {
	type Alias ContractDefinition
	aux := &struct {
		Nodes []json.RawMessage `json:"nodes"`
		*Alias
	}{
		Alias: (*Alias)(c),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	nodes, err := unmarshalNodes(aux.Nodes)
	if err != nil {
		return err
	}
	c.Nodes = nodes
	return nil
}

// Functions returns every function definition declared directly in the contract.
func (c *ContractDefinition) Functions() []*FunctionDefinition {
	functions := make([]*FunctionDefinition, 0)
	for _, node := range c.Nodes {
		if function, ok := node.(*FunctionDefinition); ok {
			functions = append(functions, function)
		}
	}
	return functions
}

// StateVariables returns every state variable declared directly in the contract.
func (c *ContractDefinition) StateVariables() []*VariableDeclaration {
	variables := make([]*VariableDeclaration, 0)
	for _, node := range c.Nodes {
		if variable, ok := node.(*VariableDeclaration); ok {
			variables = append(variables, variable)
		}
	}
	return variables
}

// Constructor returns the constructor of the contract, or nil if none is declared.
func (c *ContractDefinition) Constructor() *FunctionDefinition {
	for _, function := range c.Functions() {
		if function.Kind == FunctionKindConstructor {
			return function
		}
	}
	return nil
}

// IsLibrary indicates whether the contract is a library.
func (c *ContractDefinition) IsLibrary() bool {
	return c.Kind == ContractKindLibrary
}

// IsInterface indicates whether the contract is an interface.
func (c *ContractDefinition) IsInterface() bool {
	return c.Kind == ContractKindInterface
}

// ModifierInvocation is a modifier (or base constructor call) attached to a function definition.
type ModifierInvocation struct {
	ID           int64             `json:"id"`
	ModifierName IdentifierPath    `json:"modifierName"`
	Arguments    []json.RawMessage `json:"arguments"`
	// Kind is either "modifierInvocation" or "baseConstructorSpecifier" (solc >= 0.8.3).
	Kind string `json:"kind,omitempty"`
}

// ParameterList is the list of parameters or return parameters of a function.
type ParameterList struct {
	Parameters []*VariableDeclaration `json:"parameters"`
}

// FunctionDefinition is the function definition node
type FunctionDefinition struct {
	ID               int64                `json:"id"`
	NodeType         string               `json:"nodeType"`
	Name             string               `json:"name"`
	Kind             FunctionKind         `json:"kind"`
	Visibility       Visibility           `json:"visibility"`
	StateMutability  StateMutability      `json:"stateMutability"`
	Implemented      bool                 `json:"implemented"`
	Virtual          bool                 `json:"virtual"`
	Parameters       ParameterList        `json:"parameters"`
	ReturnParameters ParameterList        `json:"returnParameters"`
	BaseFunctions    []int64              `json:"baseFunctions,omitempty"`
	Modifiers        []ModifierInvocation `json:"modifiers"`
	Body             *Block               `json:"body"`
	Scope            int64                `json:"scope"`
	Src              string               `json:"src"`
}

func (f *FunctionDefinition) GetNodeType() string { return f.NodeType }
func (f *FunctionDefinition) GetID() int64        { return f.ID }

// VariableDeclaration describes a state variable, struct member or function parameter.
type VariableDeclaration struct {
	ID               int64              `json:"id"`
	NodeType         string             `json:"nodeType"`
	Name             string             `json:"name"`
	Visibility       Visibility         `json:"visibility"`
	Mutability       VariableMutability `json:"mutability"`
	Constant         bool               `json:"constant"`
	StateVariable    bool               `json:"stateVariable"`
	StorageLocation  StorageLocation    `json:"storageLocation"`
	TypeName         TypeName           `json:"typeName"`
	TypeDescriptions TypeDescriptions   `json:"typeDescriptions"`
	// BaseFunctions lists the functions a public state variable overrides.
	BaseFunctions []int64 `json:"baseFunctions,omitempty"`
	// Value is the raw initializer expression, if any.
	Value json.RawMessage `json:"value,omitempty"`
	Scope int64           `json:"scope"`
	Src   string          `json:"src"`
}

func (v *VariableDeclaration) GetNodeType() string { return v.NodeType }
func (v *VariableDeclaration) GetID() int64        { return v.ID }

// HasInitializer indicates whether the declaration carries an initial value.
func (v *VariableDeclaration) HasInitializer() bool {
	return len(v.Value) > 0 && string(v.Value) != "null"
}

// GetMutability returns the mutability of the variable, deriving it from the legacy `constant` flag if the
// compiler did not emit one.
func (v *VariableDeclaration) GetMutability() VariableMutability {
	if v.Mutability != "" {
		return v.Mutability
	}
	if v.Constant {
		return VariableMutabilityConstant
	}
	return VariableMutabilityMutable
}

func (v *VariableDeclaration) UnmarshalJSON(data []byte) error {
	type Alias VariableDeclaration
	aux := &struct {
		TypeName json.RawMessage `json:"typeName"`
		*Alias
	}{
		Alias: (*Alias)(v),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	typeName, err := unmarshalTypeName(aux.TypeName)
	if err != nil {
		return fmt.Errorf("could not parse type name of variable '%s': %v", v.Name, err)
	}
	v.TypeName = typeName
	return nil
}

// StructDefinition is a struct type declaration.
type StructDefinition struct {
	ID            int64                  `json:"id"`
	NodeType      string                 `json:"nodeType"`
	Name          string                 `json:"name"`
	CanonicalName string                 `json:"canonicalName"`
	Members       []*VariableDeclaration `json:"members"`
	Scope         int64                  `json:"scope"`
}

func (s *StructDefinition) GetNodeType() string { return s.NodeType }
func (s *StructDefinition) GetID() int64        { return s.ID }

// EnumValue is a single member of an enum definition.
type EnumValue struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// EnumDefinition is an enum type declaration.
type EnumDefinition struct {
	ID            int64       `json:"id"`
	NodeType      string      `json:"nodeType"`
	Name          string      `json:"name"`
	CanonicalName string      `json:"canonicalName"`
	Members       []EnumValue `json:"members"`
	Scope         int64       `json:"scope"`
}

func (e *EnumDefinition) GetNodeType() string { return e.NodeType }
func (e *EnumDefinition) GetID() int64        { return e.ID }

// UserDefinedValueTypeDefinition is a `type T is U;` declaration.
type UserDefinedValueTypeDefinition struct {
	ID             int64    `json:"id"`
	NodeType       string   `json:"nodeType"`
	Name           string   `json:"name"`
	CanonicalName  string   `json:"canonicalName"`
	UnderlyingType TypeName `json:"underlyingType"`
	Scope          int64    `json:"scope"`
}

func (u *UserDefinedValueTypeDefinition) GetNodeType() string { return u.NodeType }
func (u *UserDefinedValueTypeDefinition) GetID() int64        { return u.ID }

func (u *UserDefinedValueTypeDefinition) UnmarshalJSON(data []byte) error {
	type Alias UserDefinedValueTypeDefinition
	aux := &struct {
		UnderlyingType json.RawMessage `json:"underlyingType"`
		*Alias
	}{
		Alias: (*Alias)(u),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	typeName, err := unmarshalTypeName(aux.UnderlyingType)
	if err != nil {
		return err
	}
	u.UnderlyingType = typeName
	return nil
}

// ElementaryTypeName is a built-in type such as uint256, address or string.
type ElementaryTypeName struct {
	ID               int64            `json:"id"`
	NodeType         string           `json:"nodeType"`
	Name             string           `json:"name"`
	StateMutability  StateMutability  `json:"stateMutability,omitempty"`
	TypeDescriptions TypeDescriptions `json:"typeDescriptions"`
}

func (e *ElementaryTypeName) GetNodeType() string                   { return e.NodeType }
func (e *ElementaryTypeName) GetID() int64                          { return e.ID }
func (e *ElementaryTypeName) GetTypeDescriptions() TypeDescriptions { return e.TypeDescriptions }
func (e *ElementaryTypeName) isTypeName()                           {}

// ArrayTypeName is a static or dynamic array type.
type ArrayTypeName struct {
	ID               int64            `json:"id"`
	NodeType         string           `json:"nodeType"`
	BaseType         TypeName         `json:"baseType"`
	Length           json.RawMessage  `json:"length,omitempty"`
	TypeDescriptions TypeDescriptions `json:"typeDescriptions"`
}

func (a *ArrayTypeName) GetNodeType() string                   { return a.NodeType }
func (a *ArrayTypeName) GetID() int64                          { return a.ID }
func (a *ArrayTypeName) GetTypeDescriptions() TypeDescriptions { return a.TypeDescriptions }
func (a *ArrayTypeName) isTypeName()                           {}

func (a *ArrayTypeName) UnmarshalJSON(data []byte) error {
	type Alias ArrayTypeName
	aux := &struct {
		BaseType json.RawMessage `json:"baseType"`
		*Alias
	}{
		Alias: (*Alias)(a),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	baseType, err := unmarshalTypeName(aux.BaseType)
	if err != nil {
		return err
	}
	a.BaseType = baseType
	return nil
}

// Mapping is a `mapping(K => V)` type.
type Mapping struct {
	ID               int64            `json:"id"`
	NodeType         string           `json:"nodeType"`
	KeyType          TypeName         `json:"keyType"`
	ValueType        TypeName         `json:"valueType"`
	TypeDescriptions TypeDescriptions `json:"typeDescriptions"`
}

func (m *Mapping) GetNodeType() string                   { return m.NodeType }
func (m *Mapping) GetID() int64                          { return m.ID }
func (m *Mapping) GetTypeDescriptions() TypeDescriptions { return m.TypeDescriptions }
func (m *Mapping) isTypeName()                           {}

func (m *Mapping) UnmarshalJSON(data []byte) error {
	type Alias Mapping
	aux := &struct {
		KeyType   json.RawMessage `json:"keyType"`
		ValueType json.RawMessage `json:"valueType"`
		*Alias
	}{
		Alias: (*Alias)(m),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if m.KeyType, err = unmarshalTypeName(aux.KeyType); err != nil {
		return err
	}
	if m.ValueType, err = unmarshalTypeName(aux.ValueType); err != nil {
		return err
	}
	return nil
}

// UserDefinedTypeName references a struct, enum, contract or user-defined value type by declaration id.
type UserDefinedTypeName struct {
	ID       int64  `json:"id"`
	NodeType string `json:"nodeType"`
	// Name is only emitted by older compilers; newer ones emit PathNode instead.
	Name                  string           `json:"name,omitempty"`
	PathNode              *IdentifierPath  `json:"pathNode,omitempty"`
	ReferencedDeclaration int64            `json:"referencedDeclaration"`
	TypeDescriptions      TypeDescriptions `json:"typeDescriptions"`
}

func (u *UserDefinedTypeName) GetNodeType() string                   { return u.NodeType }
func (u *UserDefinedTypeName) GetID() int64                          { return u.ID }
func (u *UserDefinedTypeName) GetTypeDescriptions() TypeDescriptions { return u.TypeDescriptions }
func (u *UserDefinedTypeName) isTypeName()                           {}

// FunctionTypeName is a function type such as `function (uint256) external returns (bool)`.
type FunctionTypeName struct {
	ID                   int64            `json:"id"`
	NodeType             string           `json:"nodeType"`
	Visibility           Visibility       `json:"visibility"`
	StateMutability      StateMutability  `json:"stateMutability"`
	ParameterTypes       ParameterList    `json:"parameterTypes"`
	ReturnParameterTypes ParameterList    `json:"returnParameterTypes"`
	TypeDescriptions     TypeDescriptions `json:"typeDescriptions"`
}

func (f *FunctionTypeName) GetNodeType() string                   { return f.NodeType }
func (f *FunctionTypeName) GetID() int64                          { return f.ID }
func (f *FunctionTypeName) GetTypeDescriptions() TypeDescriptions { return f.TypeDescriptions }
func (f *FunctionTypeName) isTypeName()                           {}

// Block is a function body. Statements are not modeled; only the declarations targeted by function calls within
// the body are retained.
type Block struct {
	ID int64 `json:"id"`
	// CallTargets lists, in ascending order, the referenced declaration ids of every call whose callee is an
	// identifier or member access, e.g. `__Ownable_init(owner)` or `super.foo()`.
	CallTargets []int64 `json:"-"`
}

func (b *Block) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if id, ok := raw["id"].(float64); ok {
		b.ID = int64(id)
	}
	b.CallTargets = make([]int64, 0)
	collectCallTargets(raw, &b.CallTargets)
	slices.Sort(b.CallTargets)
	b.CallTargets = slices.Compact(b.CallTargets)
	return nil
}

// collectCallTargets walks a generic JSON node tree depth-first, recording callee declaration ids of FunctionCall
// nodes.
func collectCallTargets(node any, targets *[]int64) {
	switch n := node.(type) {
	case map[string]any:
		if n["nodeType"] == "FunctionCall" {
			if expression, ok := n["expression"].(map[string]any); ok {
				nodeType := expression["nodeType"]
				if nodeType == "Identifier" || nodeType == "MemberAccess" {
					if id, ok := expression["referencedDeclaration"].(float64); ok {
						*targets = append(*targets, int64(id))
					}
				}
			}
		}
		for _, child := range n {
			collectCallTargets(child, targets)
		}
	case []any:
		for _, child := range n {
			collectCallTargets(child, targets)
		}
	}
}

// unmarshalNodes decodes a list of declaration nodes, dispatching on their node type. Node types which are not
// modeled are skipped.
func unmarshalNodes(rawNodes []json.RawMessage) ([]Node, error) {
	nodes := make([]Node, 0, len(rawNodes))
	for _, nodeData := range rawNodes {
		// Unmarshal the node data to retrieve the node type
		var nodeType struct {
			NodeType string `json:"nodeType"`
		}
		if err := json.Unmarshal(nodeData, &nodeType); err != nil {
			return nil, err
		}

		// Unmarshal the contents of the node based on the node type
		var node Node
		switch nodeType.NodeType {
		case "ContractDefinition":
			node = &ContractDefinition{}
		case "FunctionDefinition":
			node = &FunctionDefinition{}
		case "VariableDeclaration":
			node = &VariableDeclaration{}
		case "StructDefinition":
			node = &StructDefinition{}
		case "EnumDefinition":
			node = &EnumDefinition{}
		case "UserDefinedValueTypeDefinition":
			node = &UserDefinedValueTypeDefinition{}
		case "ImportDirective":
			node = &ImportDirective{}
		default:
			continue
		}
		if err := json.Unmarshal(nodeData, node); err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// unmarshalTypeName decodes a type name node, dispatching on its node type. A missing or null type name (e.g. the
// `var` declarations of ancient compilers) decodes to nil.
func unmarshalTypeName(data json.RawMessage) (TypeName, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	var nodeType struct {
		NodeType string `json:"nodeType"`
	}
	if err := json.Unmarshal(data, &nodeType); err != nil {
		return nil, err
	}

	var typeName TypeName
	switch nodeType.NodeType {
	case "ElementaryTypeName":
		typeName = &ElementaryTypeName{}
	case "ArrayTypeName":
		typeName = &ArrayTypeName{}
	case "Mapping":
		typeName = &Mapping{}
	case "UserDefinedTypeName":
		typeName = &UserDefinedTypeName{}
	case "FunctionTypeName":
		typeName = &FunctionTypeName{}
	default:
		return nil, fmt.Errorf("unsupported type name node '%s'", nodeType.NodeType)
	}
	if err := json.Unmarshal(data, typeName); err != nil {
		return nil, err
	}
	return typeName, nil
}
