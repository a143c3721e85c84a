package computegraph

import (
	"fmt"
	"reflect"
)

// NodeHandle identifies a node within a single ComputeGraph. It is returned
// by AddNode and threaded through every other graph operation.
type NodeHandle struct {
	name string
}

func (h NodeHandle) String() string { return h.name }

// InputPortUntyped builds the untyped handle for one of this node's input
// ports, useful when the node's concrete type is not known at the call site.
func (h NodeHandle) InputPortUntyped(name string) InputPortUntyped {
	return InputPortUntyped{Node: h, InputName: name}
}

// OutputPortUntyped builds the untyped handle for one of this node's output
// ports, useful when the node's concrete type is not known at the call site.
func (h NodeHandle) OutputPortUntyped(name string) OutputPortUntyped {
	return OutputPortUntyped{Node: h, OutputName: name}
}

// InputPortUntyped identifies an input port without carrying its value type.
// Prefer InputPort[T] at call sites where the type is statically known.
type InputPortUntyped struct {
	Node      NodeHandle
	InputName string
}

func (p InputPortUntyped) String() string {
	return fmt.Sprintf("%s.%s", p.Node, p.InputName)
}

// ToInputPort narrows an untyped input port to a typed one. Callers are
// responsible for T matching the port's actual declared type.
func ToInputPort[T any](p InputPortUntyped) InputPort[T] {
	return InputPort[T]{Port: p}
}

// InputPort is the typed handle for an input port, obtained from a node's
// generated handle type rather than constructed directly.
type InputPort[T any] struct {
	Port InputPortUntyped
}

func (p InputPort[T]) String() string {
	var zero T
	return fmt.Sprintf("%s<%T>", p.Port, zero)
}

func (p InputPort[T]) Untyped() InputPortUntyped { return p.Port }

// OutputPortUntyped identifies an output port without carrying its value
// type. Prefer OutputPort[T] at call sites where the type is statically
// known.
type OutputPortUntyped struct {
	Node       NodeHandle
	OutputName string
}

func (p OutputPortUntyped) String() string {
	return fmt.Sprintf("%s.%s", p.Node, p.OutputName)
}

// ToOutputPort narrows an untyped output port to a typed one. Callers are
// responsible for T matching the port's actual declared type.
func ToOutputPort[T any](p OutputPortUntyped) OutputPort[T] {
	return OutputPort[T]{Port: p}
}

// OutputPort is the typed handle for an output port, obtained from a node's
// generated handle type rather than constructed directly.
type OutputPort[T any] struct {
	Port OutputPortUntyped
}

func (p OutputPort[T]) String() string {
	var zero T
	return fmt.Sprintf("%s<%T>", p.Port, zero)
}

func (p OutputPort[T]) Untyped() OutputPortUntyped { return p.Port }

// Connection is a directed edge from an output port to an input port,
// returned by Connect/ConnectUntyped and consumed by Disconnect.
type Connection struct {
	From OutputPortUntyped
	To   InputPortUntyped
}

// PortSpec names a port and the reflect.Type of the value flowing through
// it, the Go analogue of the source's (name, TypeId) pairs.
type PortSpec struct {
	Name string
	Type reflect.Type
}

// GraphNode is a node as stored inside a ComputeGraph: its declared ports,
// its executable logic, and a free-form Metadata bag callers may use to
// attach their own bookkeeping.
type GraphNode struct {
	inputs   []PortSpec
	outputs  []PortSpec
	node     ExecutableNode
	handle   NodeHandle
	Metadata Metadata
}

func (n *GraphNode) Handle() NodeHandle    { return n.handle }
func (n *GraphNode) Inputs() []PortSpec    { return n.inputs }
func (n *GraphNode) Outputs() []PortSpec   { return n.outputs }
func (n *GraphNode) Executable() ExecutableNode { return n.node }

// TypeOfInput returns the declared type of the named input port, if it
// exists on this node.
func (n *GraphNode) TypeOfInput(port InputPortUntyped) (reflect.Type, bool) {
	for _, p := range n.inputs {
		if p.Name == port.InputName {
			return p.Type, true
		}
	}
	return nil, false
}

// TypeOfOutput returns the declared type of the named output port, if it
// exists on this node.
func (n *GraphNode) TypeOfOutput(port OutputPortUntyped) (reflect.Type, bool) {
	for _, p := range n.outputs {
		if p.Name == port.OutputName {
			return p.Type, true
		}
	}
	return nil, false
}

// ExecutableNode is the interface of a node's computation logic: given the
// resolved values of its declared input ports, in order, it produces the
// values of its declared output ports, in order.
type ExecutableNode interface {
	Run(inputs []any) []any
}

// NodeFactory describes how to build the GraphNode bookkeeping (port specs)
// and the caller-facing handle H for a node type N. A Go analogue of the
// source's "#[node(...)]" macro output: in this repo the handle type and its
// typed port accessors are hand-written per node, following the
// TestNodeConstant/TestNodeConstantHandle shape.
type NodeFactory[H any] interface {
	ExecutableNode
	Inputs() []PortSpec
	Outputs() []PortSpec
	CreateHandle(handle NodeHandle) H
}

// TypedPortSpec is a convenience constructor for PortSpec used by NodeFactory
// implementations, pinning the reflect.Type via a type parameter instead of
// reflect.TypeOf((*T)(nil)).Elem() at every call site.
func TypedPortSpec[T any](name string) PortSpec {
	return PortSpec{Name: name, Type: reflect.TypeOf((*T)(nil)).Elem()}
}
