package exposure

import "fmt"

// ConfigurationError indicates that the options of a generation pass are invalid. It is returned before any
// generation takes place.
type ConfigurationError struct {
	// Option is the name of the offending option.
	Option string
	// Value is the offending value.
	Value string
	// Reason describes why the value is invalid.
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s '%s': %s", e.Option, e.Value, e.Reason)
}

// AstContractViolationError indicates that a declaration lacks information the compiler always emits, e.g. type
// descriptions. This usually means the AST was produced by an unsupported compiler version.
type AstContractViolationError struct {
	// NodeID is the id of the offending declaration.
	NodeID int64
	// Name is the name of the offending declaration, if it has one.
	Name string
	// Reason describes the missing or malformed information.
	Reason string
}

func (e *AstContractViolationError) Error() string {
	return fmt.Sprintf("malformed AST node %d ('%s'): %s", e.NodeID, e.Name, e.Reason)
}

// UnresolvedReferenceError indicates that a cross-reference id does not resolve to a declaration of the expected kind
// within the supplied source units.
type UnresolvedReferenceError struct {
	// ID is the referenced declaration id.
	ID int64
	// Expected is the kind of declaration the reference was expected to resolve to.
	Expected string
	// Found is the kind of node the id resolved to, or empty if it did not resolve at all.
	Found string
}

func (e *UnresolvedReferenceError) Error() string {
	if e.Found == "" {
		return fmt.Sprintf("could not resolve reference %d to a %s: no such declaration", e.ID, e.Expected)
	}
	return fmt.Sprintf("could not resolve reference %d to a %s: found %s", e.ID, e.Expected, e.Found)
}
