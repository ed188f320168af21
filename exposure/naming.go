package exposure

import (
	"strconv"
	"strings"

	"github.com/crytic/exposed/compilation/types"
	"golang.org/x/exp/slices"
)

// wrapperReturn is a single return value of a generated wrapper.
type wrapperReturn struct {
	// Type is the return type, located in memory if it is a reference type.
	Type string

	// EventType is the return type as written in an event parameter list, without data location.
	EventType string

	// ABIType is the canonical ABI type of the return value.
	ABIType string
}

// returnEvent is an event capturing the return values of a state-changing wrapper, so they can be observed from a
// transaction receipt.
type returnEvent struct {
	// Name is the full event name.
	Name string

	// Returns are the event parameters.
	Returns []wrapperReturn
}

// functionWrapper describes the external wrapper of a single function.
type functionWrapper struct {
	// Function is the wrapped function.
	Function *types.FunctionDefinition

	// Name is the disambiguated base name of the wrapper, without prefix.
	Name string

	// Arguments are the wrapper parameters, with storage parameters substituted by handles.
	Arguments []wrapperArgument

	// Returns are the wrapper return values.
	Returns []wrapperReturn

	// Mutability is the state mutability of the wrapper.
	Mutability types.StateMutability

	// Event is the return-capturing event of the wrapper, or nil if it has none.
	Event *returnEvent
}

// newFunctionWrapper computes the wrapper of an externalizable function, leaving its name undisambiguated.
func (cc *contractContext) newFunctionWrapper(function *types.FunctionDefinition) (*functionWrapper, error) {
	arguments, err := cc.wrapperArguments(function)
	if err != nil {
		return nil, err
	}

	returns := make([]wrapperReturn, 0, len(function.ReturnParameters.Parameters))
	for _, returnParameter := range function.ReturnParameters.Parameters {
		returnType, err := cc.sourceType(returnParameter, types.StorageLocationMemory)
		if err != nil {
			return nil, err
		}
		eventType, err := cc.typeNameSource(returnParameter.TypeName)
		if err != nil {
			return nil, err
		}
		abiType, err := cc.abiType(returnParameter.TypeName)
		if err != nil {
			return nil, err
		}
		returns = append(returns, wrapperReturn{Type: returnType, EventType: eventType, ABIType: abiType})
	}

	// Looking up a handle reads state, which pure functions may not do.
	mutability := function.StateMutability
	if mutability == types.StateMutabilityPure && slices.ContainsFunc(arguments, func(a wrapperArgument) bool { return a.Storage != nil }) {
		mutability = types.StateMutabilityView
	}

	return &functionWrapper{
		Function:   function,
		Name:       function.Name,
		Arguments:  arguments,
		Returns:    returns,
		Mutability: mutability,
	}, nil
}

// abiSignature returns the wrapper's base name followed by its ABI parameter types.
func (w *functionWrapper) abiSignature() string {
	abiTypes := make([]string, 0, len(w.Arguments))
	for _, argument := range w.Arguments {
		abiTypes = append(abiTypes, argument.ABIType)
	}
	return w.Function.Name + "(" + strings.Join(abiTypes, ",") + ")"
}

// typeSuffix derives a name suffix from the declared parameter types of the wrapped function.
func (w *functionWrapper) typeSuffix() string {
	tokens := make([]string, 0, len(w.Arguments))
	for _, argument := range w.Arguments {
		token, _, _ := strings.Cut(argument.DeclaredType, " ")
		tokens = append(tokens, sanitizeIdentifier(token))
	}
	return "_" + strings.Join(tokens, "_")
}

// emitsReturnEvent indicates whether the wrapped function changes state and returns values, in which case its
// results are not observable from a transaction without an event.
func (w *functionWrapper) emitsReturnEvent() bool {
	if len(w.Returns) == 0 {
		return false
	}
	return w.Function.StateMutability == types.StateMutabilityNonPayable || w.Function.StateMutability == types.StateMutabilityPayable
}

// groupBy groups items by key, returning the groups in order of their first item.
func groupBy[T any](items []T, key func(T) string) [][]T {
	indices := make(map[string]int)
	groups := make([][]T, 0)
	for _, item := range items {
		k := key(item)
		index, ok := indices[k]
		if !ok {
			index = len(groups)
			indices[k] = index
			groups = append(groups, nil)
		}
		groups[index] = append(groups[index], item)
	}
	return groups
}

// disambiguateWrappers renames wrappers whose base name and ABI parameter types collide with another wrapper.
func disambiguateWrappers(wrappers []*functionWrapper) {
	for _, group := range groupBy(wrappers, (*functionWrapper).abiSignature) {
		if len(group) < 2 {
			continue
		}
		names := make([]string, 0, len(group))
		for _, wrapper := range group {
			names = append(names, wrapper.Function.Name+wrapper.typeSuffix())
		}
		for i, name := range distinctNames(names) {
			group[i].Name = name
		}
	}
}

// distinctNames numbers repeated names after their first occurrence, since distinct parameter types may sanitize to
// the same suffix.
func distinctNames(names []string) []string {
	proposed := make(map[string]bool, len(names))
	for _, name := range names {
		proposed[name] = true
	}
	assigned := make(map[string]bool, len(names))
	result := make([]string, 0, len(names))
	for _, name := range names {
		candidate := name
		for n := 2; assigned[candidate] || (candidate != name && proposed[candidate]); n++ {
			candidate = name + "_" + strconv.Itoa(n)
		}
		assigned[candidate] = true
		result = append(result, candidate)
	}
	return result
}

// assignReturnEvents creates the return-capturing events of every state-changing wrapper with return values, renaming
// events whose name and return types collide.
func assignReturnEvents(prefix string, wrappers []*functionWrapper) {
	eventWrappers := make([]*functionWrapper, 0)
	for _, wrapper := range wrappers {
		if wrapper.emitsReturnEvent() {
			eventWrappers = append(eventWrappers, wrapper)
		}
	}

	eventKey := func(w *functionWrapper) string {
		abiTypes := make([]string, 0, len(w.Returns))
		for _, ret := range w.Returns {
			abiTypes = append(abiTypes, ret.ABIType)
		}
		return w.Function.Name + "(" + strings.Join(abiTypes, ",") + ")"
	}
	for _, group := range groupBy(eventWrappers, eventKey) {
		names := make([]string, 0, len(group))
		for _, wrapper := range group {
			name := wrapper.Function.Name
			if len(group) > 1 {
				name += wrapper.typeSuffix()
			}
			names = append(names, name)
		}
		for i, name := range distinctNames(names) {
			group[i].Event = &returnEvent{Name: "return" + prefix + name, Returns: group[i].Returns}
		}
	}
}
