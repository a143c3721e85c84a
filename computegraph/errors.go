package computegraph

import (
	"fmt"
	"reflect"
)

// InputPortNotConnectedError is returned by Compute when a node's input port
// has no incoming connection, no override, and no fallback registered for its
// type.
type InputPortNotConnectedError struct{ Port InputPortUntyped }

func (e *InputPortNotConnectedError) Error() string {
	return fmt.Sprintf("computegraph: input port %s not connected", e.Port)
}

// NodeNotFoundError is returned wherever a NodeHandle is looked up and does
// not exist in the graph.
type NodeNotFoundError struct{ Node NodeHandle }

func (e *NodeNotFoundError) Error() string {
	return fmt.Sprintf("computegraph: node %s not found", e.Node)
}

// PortNotFoundError is returned by Compute when the requested output port
// name does not exist on the resolved node.
type PortNotFoundError struct {
	Node NodeHandle
	Port OutputPortUntyped
}

func (e *PortNotFoundError) Error() string {
	return fmt.Sprintf("computegraph: output port %s not found in node %s", e.Port, e.Node)
}

// CycleDetectedError is returned by Compute when resolving a node's
// dependencies revisits a node already on the current recursion path.
type CycleDetectedError struct{}

func (e *CycleDetectedError) Error() string {
	return "computegraph: cycle detected in the computation graph"
}

// OutputTypeMismatchError is returned by Compute when a node's Run produced
// outputs that do not match the types it declared via Outputs().
type OutputTypeMismatchError struct{ Node NodeHandle }

func (e *OutputTypeMismatchError) Error() string {
	return fmt.Sprintf("computegraph: output type mismatch when computing node %s", e.Node)
}

// TypeMismatchError is returned by ConnectUntyped when the output port's
// declared type does not match the input port's declared type.
type TypeMismatchError struct{ Expected, Found reflect.Type }

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("computegraph: type mismatch for output: expected %s, found %s", e.Expected, e.Found)
}

// InputPortAlreadyConnectedError is returned by ConnectUntyped when the
// target input port already has an incoming connection.
type InputPortAlreadyConnectedError struct {
	From OutputPortUntyped
	To   InputPortUntyped
}

func (e *InputPortAlreadyConnectedError) Error() string {
	return fmt.Sprintf("computegraph: connection already exists from %s to %s", e.From, e.To)
}

// InputPortNotFoundError is returned by ConnectUntyped when the named input
// port does not exist on the target node.
type InputPortNotFoundError struct{ Port InputPortUntyped }

func (e *InputPortNotFoundError) Error() string {
	return fmt.Sprintf("computegraph: input port %s not found", e.Port)
}

// OutputPortNotFoundError is returned by ConnectUntyped when the named output
// port does not exist on the source node.
type OutputPortNotFoundError struct{ Port OutputPortUntyped }

func (e *OutputPortNotFoundError) Error() string {
	return fmt.Sprintf("computegraph: output port %s not found", e.Port)
}

// ConnectionNotFoundError is returned by Disconnect when the given
// Connection is not present in the graph.
type ConnectionNotFoundError struct{}

func (e *ConnectionNotFoundError) Error() string {
	return "computegraph: connection not found"
}

// DuplicateNameError is returned by AddNode when a node with the same name
// already exists in the graph.
type DuplicateNameError struct{ Name string }

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("computegraph: node with the name %q already exists", e.Name)
}
