package exposure

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/crytic/exposed/compilation/types"
)

// indentation is the indentation of one nesting level in generated source.
const indentation = "    "

// spaceBetween joins groups of lines, separating non-empty groups with a blank line.
func spaceBetween(groups ...[]string) []string {
	lines := make([]string, 0)
	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, group...)
	}
	return lines
}

// indent indents every non-blank line by one level.
func indent(lines []string) []string {
	indented := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			indented = append(indented, line)
			continue
		}
		indented = append(indented, indentation+line)
	}
	return indented
}

// block renders a brace-delimited block, collapsing it onto the header line if the body is empty.
func block(header string, body []string) []string {
	if len(body) == 0 {
		return []string{header + " {}"}
	}
	lines := make([]string, 0, len(body)+2)
	lines = append(lines, header+" {")
	lines = append(lines, indent(body)...)
	return append(lines, "}")
}

// formatLines joins lines into source text terminated by a newline.
func formatLines(lines []string) string {
	return strings.Join(lines, "\n") + "\n"
}

// contentHash returns the hexadecimal xxHash64 digest of generated source text.
func contentHash(sourceText string) string {
	return strconv.FormatUint(xxhash.Sum64String(sourceText), 16)
}

// renderFile renders a complete generated source file.
func renderFile(versionPragma string, imports []string, contracts [][]string) string {
	header := []string{"// SPDX-License-Identifier: UNLICENSED"}
	pragma := []string{"pragma solidity " + versionPragma + ";"}
	importLines := make([]string, 0, len(imports))
	for _, importPath := range imports {
		importLines = append(importLines, fmt.Sprintf("import %q;", importPath))
	}

	groups := [][]string{header, pragma, importLines}
	groups = append(groups, contracts...)
	return formatLines(spaceBetween(groups...))
}

// exposedContract is everything rendered for a single exposed contract.
type exposedContract struct {
	context     *contractContext
	abstract    bool
	mappings    []*storageMapping
	constructor *constructorPlan
	variables   []*exposedVariable
	wrappers    []*functionWrapper

	// internalMembers counts the members considered for exposure.
	internalMembers int
}

// name returns the name of the exposed contract.
func (e *exposedContract) name() string {
	return e.context.options.Prefix + e.context.contract.Name
}

// render renders the exposed contract definition.
func (e *exposedContract) render() ([]string, error) {
	cc := e.context
	header := "contract " + e.name()
	if e.abstract {
		header = "abstract " + header
	}
	if !cc.isLibrary() {
		header += " is " + cc.contract.Name
	}

	marker := []string{fmt.Sprintf("bytes32 public constant %s = %q;", markerConstantName, cc.options.Marker)}

	mappings := make([]string, 0, len(e.mappings))
	for _, mapping := range e.mappings {
		mappings = append(mappings, fmt.Sprintf("mapping(uint256 => %s) internal %s;", mapping.Type, mapping.Name))
	}

	events := make([]string, 0)
	for _, wrapper := range e.wrappers {
		if wrapper.Event == nil {
			continue
		}
		parameters := make([]string, 0, len(wrapper.Event.Returns))
		for i, ret := range wrapper.Event.Returns {
			parameters = append(parameters, fmt.Sprintf("%s ret%d", ret.EventType, i))
		}
		events = append(events, fmt.Sprintf("event %s(%s);", wrapper.Event.Name, strings.Join(parameters, ", ")))
	}

	groups := [][]string{marker, mappings, events, e.renderConstructor()}
	for _, variable := range e.variables {
		lines, err := e.renderVariableAccessor(variable)
		if err != nil {
			return nil, err
		}
		groups = append(groups, lines)
	}
	for _, wrapper := range e.wrappers {
		groups = append(groups, e.renderFunctionWrapper(wrapper))
	}
	if !cc.declaresReceive() {
		groups = append(groups, []string{"receive() external payable {}"})
	}

	return block(header, spaceBetween(groups...)), nil
}

// renderConstructor renders the constructor of the exposed contract.
func (e *exposedContract) renderConstructor() []string {
	parameters := make([]string, 0, len(e.constructor.Parameters))
	for _, parameter := range e.constructor.Parameters {
		parameters = append(parameters, parameter.Type+" "+parameter.Name)
	}

	header := []string{"constructor(" + strings.Join(parameters, ", ") + ")"}
	for _, call := range e.constructor.BaseCalls {
		header = append(header, call.String())
	}
	header = append(header, "payable")
	if e.constructor.usesInitializer() {
		header = append(header, "initializer")
	}

	body := make([]string, 0, len(e.constructor.InitializerCalls))
	for _, call := range e.constructor.InitializerCalls {
		body = append(body, call.String()+";")
	}
	return block(strings.Join(header, " "), body)
}

// renderVariableAccessor renders the accessor of a state variable. Mapping keys become accessor parameters.
func (e *exposedContract) renderVariableAccessor(variable *exposedVariable) ([]string, error) {
	cc := e.context
	parameters := make([]string, 0, len(variable.Keys))
	access := variable.Declaration.Name
	if cc.isLibrary() {
		access = cc.contract.Name + "." + access
	}
	for i, key := range variable.Keys {
		keyType, err := cc.sourceTypeWithLocation(key, types.StorageLocationMemory)
		if err != nil {
			return nil, err
		}
		name := "arg" + strconv.Itoa(i)
		parameters = append(parameters, keyType+" "+name)
		access += "[" + name + "]"
	}

	returnType, err := cc.sourceTypeWithLocation(variable.Value, types.StorageLocationMemory)
	if err != nil {
		return nil, err
	}

	header := fmt.Sprintf("function %s%s(%s) external %s returns (%s)",
		cc.options.Prefix, variable.Declaration.Name, strings.Join(parameters, ", "), variable.Mutability, returnType)
	return block(header, []string{"return " + access + ";"}), nil
}

// renderFunctionWrapper renders the external wrapper of a function.
func (e *exposedContract) renderFunctionWrapper(wrapper *functionWrapper) []string {
	cc := e.context
	parameters := make([]string, 0, len(wrapper.Arguments))
	callArguments := make([]string, 0, len(wrapper.Arguments))
	for _, argument := range wrapper.Arguments {
		parameters = append(parameters, argument.Type+" "+argument.Name)
		callArguments = append(callArguments, argument.callExpression())
	}

	header := "function " + cc.options.Prefix + wrapper.Name + "(" + strings.Join(parameters, ", ") + ") external"
	if wrapper.Mutability != types.StateMutabilityNonPayable {
		header += " " + string(wrapper.Mutability)
	}

	returnNames := make([]string, 0, len(wrapper.Returns))
	if len(wrapper.Returns) > 0 {
		returns := make([]string, 0, len(wrapper.Returns))
		for i, ret := range wrapper.Returns {
			if wrapper.Event != nil {
				name := "ret" + strconv.Itoa(i)
				returnNames = append(returnNames, name)
				returns = append(returns, ret.Type+" "+name)
			} else {
				returns = append(returns, ret.Type)
			}
		}
		header += " returns (" + strings.Join(returns, ", ") + ")"
	}

	target := "super"
	if cc.isLibrary() {
		target = cc.contract.Name
	}
	call := target + "." + wrapper.Function.Name + "(" + strings.Join(callArguments, ", ") + ")"

	var body []string
	switch {
	case wrapper.Event != nil:
		captured := "(" + strings.Join(returnNames, ", ") + ")"
		body = []string{
			captured + " = " + call + ";",
			"emit " + wrapper.Event.Name + "(" + strings.Join(returnNames, ", ") + ");",
			"return " + captured + ";",
		}
	case len(wrapper.Returns) > 0:
		body = []string{"return " + call + ";"}
	default:
		body = []string{call + ";"}
	}
	return block(header, body)
}
