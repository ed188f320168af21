package exposure

import (
	"github.com/crytic/exposed/compilation/types"
	"github.com/crytic/exposed/logging"
)

// contractContext carries everything needed to expose a single contract.
type contractContext struct {
	index    *astIndex
	options  Options
	logger   *logging.Logger
	contract *types.ContractDefinition

	// bases is the linearization of the contract, most-derived first.
	bases []*types.ContractDefinition

	// baseIDs holds the ids of every contract in bases.
	baseIDs map[int64]bool

	// usesValueTypes is set once a rendered type references a user-defined value type.
	usesValueTypes bool
}

func newContractContext(index *astIndex, options Options, logger *logging.Logger, contract *types.ContractDefinition) (*contractContext, error) {
	bases, err := index.linearizedBases(contract)
	if err != nil {
		return nil, err
	}
	baseIDs := make(map[int64]bool, len(bases))
	for _, base := range bases {
		baseIDs[base.ID] = true
	}
	return &contractContext{
		index:    index,
		options:  options,
		logger:   logger,
		contract: contract,
		bases:    bases,
		baseIDs:  baseIDs,
	}, nil
}

// isLibrary indicates whether the exposed contract is a library, which is called rather than inherited.
func (cc *contractContext) isLibrary() bool {
	return cc.contract.IsLibrary()
}

// isFullyImplementable indicates whether every function declared without a body somewhere in the linearization is
// overridden by an implementing declaration.
func (cc *contractContext) isFullyImplementable() bool {
	unimplemented := make(map[int64]bool)
	for _, base := range cc.bases {
		for _, function := range base.Functions() {
			if !function.Implemented {
				unimplemented[function.ID] = true
			}
		}
	}
	for _, base := range cc.bases {
		for _, function := range base.Functions() {
			if !function.Implemented {
				continue
			}
			for _, baseFunction := range function.BaseFunctions {
				delete(unimplemented, baseFunction)
			}
		}
		for _, variable := range base.StateVariables() {
			for _, baseFunction := range variable.BaseFunctions {
				delete(unimplemented, baseFunction)
			}
		}
	}
	return len(unimplemented) == 0
}

// declaresReceive indicates whether any contract in the linearization declares a receive function.
func (cc *contractContext) declaresReceive() bool {
	for _, base := range cc.bases {
		for _, function := range base.Functions() {
			if function.Kind == types.FunctionKindReceive {
				return true
			}
		}
	}
	return false
}
