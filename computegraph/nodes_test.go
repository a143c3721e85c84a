package computegraph_test

import (
	"strconv"

	"github.com/cadcore-go/cadcore/computegraph"
)

// constantNode always produces the same value on its single output port,
// named "output" by convention for single-output nodes.
type constantNode struct{ value int }

type constantHandle struct{ handle computegraph.NodeHandle }

func (h constantHandle) Output() computegraph.OutputPort[int] {
	return computegraph.ToOutputPort[int](h.handle.OutputPortUntyped("output"))
}

func (n constantNode) Run(_ []any) []any { return []any{n.value} }
func (constantNode) Inputs() []computegraph.PortSpec { return nil }
func (constantNode) Outputs() []computegraph.PortSpec {
	return []computegraph.PortSpec{computegraph.TypedPortSpec[int]("output")}
}
func (constantNode) CreateHandle(handle computegraph.NodeHandle) constantHandle {
	return constantHandle{handle: handle}
}

// additionNode sums its two int inputs.
type additionNode struct{}

type additionHandle struct{ handle computegraph.NodeHandle }

func (h additionHandle) InputA() computegraph.InputPort[int] {
	return computegraph.ToInputPort[int](h.handle.InputPortUntyped("a"))
}
func (h additionHandle) InputB() computegraph.InputPort[int] {
	return computegraph.ToInputPort[int](h.handle.InputPortUntyped("b"))
}
func (h additionHandle) Output() computegraph.OutputPort[int] {
	return computegraph.ToOutputPort[int](h.handle.OutputPortUntyped("result"))
}

func (additionNode) Run(input []any) []any {
	return []any{input[0].(int) + input[1].(int)}
}
func (additionNode) Inputs() []computegraph.PortSpec {
	return []computegraph.PortSpec{
		computegraph.TypedPortSpec[int]("a"),
		computegraph.TypedPortSpec[int]("b"),
	}
}
func (additionNode) Outputs() []computegraph.PortSpec {
	return []computegraph.PortSpec{computegraph.TypedPortSpec[int]("result")}
}
func (additionNode) CreateHandle(handle computegraph.NodeHandle) additionHandle {
	return additionHandle{handle: handle}
}

// numToStringNode renders its int input as a string.
type numToStringNode struct{}

type numToStringHandle struct{ handle computegraph.NodeHandle }

func (h numToStringHandle) Input() computegraph.InputPort[int] {
	return computegraph.ToInputPort[int](h.handle.InputPortUntyped("input"))
}
func (h numToStringHandle) Output() computegraph.OutputPort[string] {
	return computegraph.ToOutputPort[string](h.handle.OutputPortUntyped("result"))
}

func (numToStringNode) Run(input []any) []any {
	n := input[0].(int)
	return []any{strconv.Itoa(n)}
}
func (numToStringNode) Inputs() []computegraph.PortSpec {
	return []computegraph.PortSpec{computegraph.TypedPortSpec[int]("input")}
}
func (numToStringNode) Outputs() []computegraph.PortSpec {
	return []computegraph.PortSpec{computegraph.TypedPortSpec[string]("result")}
}
func (numToStringNode) CreateHandle(handle computegraph.NodeHandle) numToStringHandle {
	return numToStringHandle{handle: handle}
}
