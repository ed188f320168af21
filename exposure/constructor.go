package exposure

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/crytic/exposed/compilation/types"
)

// constructorParameter is a parameter of the generated constructor.
type constructorParameter struct {
	Name string
	Type string
}

// constructorCall is a call to an ancestor's constructor or initializer made by the generated constructor.
type constructorCall struct {
	// Target is the name of the ancestor contract or initializer function.
	Target string

	// Arguments are the names of the generated constructor parameters forwarded to the call.
	Arguments []string
}

// String renders the call expression.
func (c constructorCall) String() string {
	return c.Target + "(" + strings.Join(c.Arguments, ", ") + ")"
}

// constructorPlan describes the generated constructor.
type constructorPlan struct {
	// Parameters are the constructor parameters, grouped by ancestor, bases first.
	Parameters []constructorParameter

	// BaseCalls are the ancestor constructors invoked in the constructor header.
	BaseCalls []constructorCall

	// InitializerCalls are the ancestor initializers invoked in the constructor body.
	InitializerCalls []constructorCall
}

// usesInitializer indicates whether the constructor must carry the initializer modifier.
func (p *constructorPlan) usesInitializer() bool {
	return len(p.InitializerCalls) > 0
}

// initializerName returns the name of the upgrade-style initializer of a contract.
func initializerName(contract *types.ContractDefinition) string {
	return "__" + contract.Name + "_init"
}

// designatedInitializer returns the function initializing the given ancestor, which is its upgrade-style initializer
// if the initializer pattern is enabled and the ancestor declares one, or its constructor otherwise. The returned
// function is nil if the ancestor declares neither.
func (cc *contractContext) designatedInitializer(ancestor *types.ContractDefinition) *types.FunctionDefinition {
	if cc.options.UseInitializerPattern {
		name := initializerName(ancestor)
		for _, function := range ancestor.Functions() {
			if function.Kind == types.FunctionKindFunction && function.Name == name {
				return function
			}
		}
	}
	return ancestor.Constructor()
}

// satisfiedAncestors returns the ids of ancestors whose initialization is already taken care of by the linearization
// itself, either through inheritance specifier arguments, constructor modifiers or, with the initializer pattern,
// initializer calls made by another ancestor.
func (cc *contractContext) satisfiedAncestors() map[int64]bool {
	satisfied := make(map[int64]bool)
	for _, contract := range cc.bases {
		for _, baseContract := range contract.BaseContracts {
			if len(baseContract.Arguments) > 0 {
				satisfied[baseContract.BaseName.ReferencedDeclaration] = true
			}
		}
		if constructor := contract.Constructor(); constructor != nil {
			for _, modifier := range constructor.Modifiers {
				satisfied[modifier.ModifierName.ReferencedDeclaration] = true
			}
		}
	}
	if !cc.options.UseInitializerPattern {
		return satisfied
	}

	// Map designated initializers back to the ancestor they initialize.
	initializerOwners := make(map[int64]int64)
	for _, contract := range cc.bases {
		if initializer := cc.designatedInitializer(contract); initializer != nil && initializer.Kind != types.FunctionKindConstructor {
			initializerOwners[initializer.ID] = contract.ID
		}
	}

	for _, contract := range cc.bases {
		for _, function := range []*types.FunctionDefinition{contract.Constructor(), cc.designatedInitializer(contract)} {
			if function == nil || function.Body == nil {
				continue
			}
			for _, target := range function.Body.CallTargets {
				owner, ok := initializerOwners[target]
				if !ok || owner == contract.ID {
					continue
				}
				// Calls to functions declared in the caller's own scope are internal chaining, e.g. an initializer
				// calling its own unchained variant.
				if targetFunction, err := deref[*types.FunctionDefinition](cc.index, target); err == nil && targetFunction.Scope == contract.ID {
					continue
				}
				satisfied[owner] = true
			}
		}
	}
	return satisfied
}

// planConstructor computes the constructor of the exposed contract, forwarding parameters to every ancestor whose
// initialization takes arguments and is not otherwise satisfied. Ancestors are visited base first, so base parameters
// come first and base initializers run before the initializers of contracts deriving from them.
func (cc *contractContext) planConstructor() (*constructorPlan, error) {
	plan := &constructorPlan{
		Parameters:       make([]constructorParameter, 0),
		BaseCalls:        make([]constructorCall, 0),
		InitializerCalls: make([]constructorCall, 0),
	}
	if cc.isLibrary() {
		return plan, nil
	}

	satisfied := cc.satisfiedAncestors()
	usedNames := make(map[string]bool)
	for i := len(cc.bases) - 1; i >= 0; i-- {
		ancestor := cc.bases[i]
		initializer := cc.designatedInitializer(ancestor)
		if initializer == nil || satisfied[ancestor.ID] || len(initializer.Parameters.Parameters) == 0 {
			continue
		}
		isInitializerFunction := initializer.Kind != types.FunctionKindConstructor

		call := constructorCall{Target: ancestor.Name, Arguments: make([]string, 0)}
		if isInitializerFunction {
			call.Target = initializer.Name
		}
		for i, parameter := range initializer.Parameters.Parameters {
			parameterType, err := cc.sourceType(parameter, types.StorageLocationMemory)
			if err != nil {
				return nil, fmt.Errorf("could not resolve initializer parameter of '%s': %w", ancestor.Name, err)
			}
			name := uniqueParameterName(ancestor, parameter, i, usedNames)
			plan.Parameters = append(plan.Parameters, constructorParameter{Name: name, Type: parameterType})
			call.Arguments = append(call.Arguments, name)
		}

		if isInitializerFunction {
			plan.InitializerCalls = append(plan.InitializerCalls, call)
		} else {
			plan.BaseCalls = append(plan.BaseCalls, call)
		}
	}
	return plan, nil
}

// uniqueParameterName allocates a constructor parameter name for an ancestor's parameter, qualifying it with the
// ancestor's name if it is already taken.
func uniqueParameterName(ancestor *types.ContractDefinition, parameter *types.VariableDeclaration, position int, usedNames map[string]bool) string {
	name := parameter.Name
	if name == "" {
		name = "arg" + strconv.Itoa(position)
	}
	if usedNames[name] {
		name = ancestor.Name + "_" + name
	}
	for candidate, n := name, 2; ; n++ {
		if !usedNames[candidate] {
			usedNames[candidate] = true
			return candidate
		}
		candidate = name + "_" + strconv.Itoa(n)
	}
}
