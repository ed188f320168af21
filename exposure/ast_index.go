package exposure

import (
	"fmt"
	"strings"

	"github.com/crytic/exposed/compilation/types"
)

// astIndex resolves declaration ids across a set of source units.
type astIndex struct {
	// declarations maps declaration ids to their nodes.
	declarations map[int64]types.Node

	// declaringUnits maps declaration ids to the source unit the declaration appears in.
	declaringUnits map[int64]*types.SourceUnit

	// unitsByID maps source unit ids to their source unit.
	unitsByID map[int64]*types.SourceUnit
}

// newASTIndex indexes every source unit, contract and contract member of the provided source units.
func newASTIndex(units []*types.SourceUnit) *astIndex {
	index := &astIndex{
		declarations:   make(map[int64]types.Node),
		declaringUnits: make(map[int64]*types.SourceUnit),
		unitsByID:      make(map[int64]*types.SourceUnit),
	}
	for _, unit := range units {
		index.unitsByID[unit.ID] = unit
		index.add(unit, unit)
		for _, node := range unit.Nodes {
			index.add(unit, node)
			if contract, ok := node.(*types.ContractDefinition); ok {
				for _, member := range contract.Nodes {
					index.add(unit, member)
				}
			}
		}
	}
	return index
}

func (i *astIndex) add(unit *types.SourceUnit, node types.Node) {
	i.declarations[node.GetID()] = node
	i.declaringUnits[node.GetID()] = unit
}

// lookup returns the node with the given id, if one was indexed.
func (i *astIndex) lookup(id int64) (types.Node, bool) {
	node, ok := i.declarations[id]
	return node, ok
}

// unit returns the source unit with the given id.
func (i *astIndex) unit(id int64) (*types.SourceUnit, error) {
	unit, ok := i.unitsByID[id]
	if !ok {
		return nil, &UnresolvedReferenceError{ID: id, Expected: "SourceUnit"}
	}
	return unit, nil
}

// declaringUnit returns the source unit declaring the node with the given id.
func (i *astIndex) declaringUnit(id int64) (*types.SourceUnit, error) {
	unit, ok := i.declaringUnits[id]
	if !ok {
		return nil, &UnresolvedReferenceError{ID: id, Expected: "declaration"}
	}
	return unit, nil
}

// deref resolves the given id to a node of type T. It fails if the id is unknown or resolves to a different kind of
// node.
func deref[T types.Node](index *astIndex, id int64) (T, error) {
	var zero T
	node, ok := index.declarations[id]
	if !ok {
		return zero, &UnresolvedReferenceError{ID: id, Expected: nodeKindName(zero)}
	}
	typed, ok := node.(T)
	if !ok {
		return zero, &UnresolvedReferenceError{ID: id, Expected: nodeKindName(zero), Found: node.GetNodeType()}
	}
	return typed, nil
}

// nodeKindName returns the unqualified Go type name of a node, which matches its solc node type.
func nodeKindName(node types.Node) string {
	name := fmt.Sprintf("%T", node)
	return name[strings.LastIndex(name, ".")+1:]
}

// linearizedBases returns the C3 linearization of the contract, most-derived (the contract itself) first.
func (i *astIndex) linearizedBases(contract *types.ContractDefinition) ([]*types.ContractDefinition, error) {
	if len(contract.LinearizedBaseContracts) == 0 {
		return []*types.ContractDefinition{contract}, nil
	}
	bases := make([]*types.ContractDefinition, 0, len(contract.LinearizedBaseContracts))
	for _, id := range contract.LinearizedBaseContracts {
		base, err := deref[*types.ContractDefinition](i, id)
		if err != nil {
			return nil, fmt.Errorf("could not resolve base contract of '%s': %w", contract.Name, err)
		}
		bases = append(bases, base)
	}
	return bases, nil
}
