// Package graphtest provides a sequential conformance suite for
// [computegraph.ComputeGraph] plus [computegraph.ComputationCache], built
// from a small fixed pipeline (two constants feeding a counting adder) so
// each step's expectations - including which nodes the cache did and didn't
// re-run - are easy to state and check.
//
// Call [Run] from your own test:
//
//	func TestGraph(t *testing.T) {
//		graphtest.Run(t)
//	}
package graphtest

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/cadcore-go/cadcore/computegraph"
)

// constantNode always produces the same int on its single output port.
type constantNode struct{ value int }

type constantHandle struct{ handle computegraph.NodeHandle }

func (h constantHandle) Output() computegraph.OutputPort[int] {
	return computegraph.ToOutputPort[int](h.handle.OutputPortUntyped("output"))
}

func (n constantNode) Run(_ []any) []any             { return []any{n.value} }
func (constantNode) Inputs() []computegraph.PortSpec { return nil }
func (constantNode) Outputs() []computegraph.PortSpec {
	return []computegraph.PortSpec{computegraph.TypedPortSpec[int]("output")}
}
func (constantNode) CreateHandle(handle computegraph.NodeHandle) constantHandle {
	return constantHandle{handle: handle}
}

// countingNode sums its two int inputs and records how many times Run has
// actually executed, so a step can assert the cache served a hit instead of
// recomputing.
type countingNode struct{ runs *int }

type countingHandle struct{ handle computegraph.NodeHandle }

func (h countingHandle) InputA() computegraph.InputPort[int] {
	return computegraph.ToInputPort[int](h.handle.InputPortUntyped("a"))
}
func (h countingHandle) InputB() computegraph.InputPort[int] {
	return computegraph.ToInputPort[int](h.handle.InputPortUntyped("b"))
}
func (h countingHandle) Output() computegraph.OutputPort[int] {
	return computegraph.ToOutputPort[int](h.handle.OutputPortUntyped("sum"))
}

func (n countingNode) Run(inputs []any) []any {
	*n.runs++
	return []any{inputs[0].(int) + inputs[1].(int)}
}
func (countingNode) Inputs() []computegraph.PortSpec {
	return []computegraph.PortSpec{
		computegraph.TypedPortSpec[int]("a"),
		computegraph.TypedPortSpec[int]("b"),
	}
}
func (countingNode) Outputs() []computegraph.PortSpec {
	return []computegraph.PortSpec{computegraph.TypedPortSpec[int]("sum")}
}
func (countingNode) CreateHandle(handle computegraph.NodeHandle) countingHandle {
	return countingHandle{handle: handle}
}

// harness threads the graph, cache, and fixture handles a step needs.
type harness struct {
	graph *computegraph.ComputeGraph
	cache *computegraph.ComputationCache
	runs  int
	left  constantHandle
	right constantHandle
	sum   countingHandle
}

type step struct {
	name     string
	location string
	apply    func(t *testing.T, h *harness) int // returns the computed sum
	want     result
}

// result is what a step expects to observe after it runs.
type result struct {
	sum      int
	runDelta int // additional countingNode.Run calls this step should cause
}

func locateSource() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		panic("graphtest: runtime.Caller failed")
	}
	return fmt.Sprintf("%s:%d", file, line)
}

func newStep(name string, apply func(t *testing.T, h *harness) int, want result) step {
	return step{name: name, location: locateSource(), apply: apply, want: want}
}

var steps = []step{
	newStep("initial-compute-populates-cache", func(t *testing.T, h *harness) int {
		v, err := computegraph.ComputeWith[int](h.graph, h.sum.Output(), computegraph.ComputationOptions{}, h.cache)
		if err != nil {
			t.Fatalf("ComputeWith: %v", err)
		}
		return v
	}, result{sum: 3, runDelta: 1}),

	newStep("recompute-unchanged-graph-hits-cache", func(t *testing.T, h *harness) int {
		v, err := computegraph.ComputeWith[int](h.graph, h.sum.Output(), computegraph.ComputationOptions{}, h.cache)
		if err != nil {
			t.Fatalf("ComputeWith: %v", err)
		}
		return v
	}, result{sum: 3, runDelta: 0}),

	newStep("override-input-bypasses-and-evicts-cache", func(t *testing.T, h *harness) int {
		ctx := computegraph.NewComputationContext()
		computegraph.SetOverride(ctx, h.sum.InputA(), 10)
		v, err := computegraph.ComputeWith[int](h.graph, h.sum.Output(), computegraph.ComputationOptions{Context: ctx}, h.cache)
		if err != nil {
			t.Fatalf("ComputeWith: %v", err)
		}
		return v
	}, result{sum: 12, runDelta: 1}),

	newStep("recompute-after-override-evicted-cache-recomputes", func(t *testing.T, h *harness) int {
		v, err := computegraph.ComputeWith[int](h.graph, h.sum.Output(), computegraph.ComputationOptions{}, h.cache)
		if err != nil {
			t.Fatalf("ComputeWith: %v", err)
		}
		return v
	}, result{sum: 3, runDelta: 1}),
}

// Run executes the suite's fixed sequence of steps against a freshly built
// graph/cache pair, verifying the sum node's output and its Run-call count
// after each step.
func Run(t *testing.T) {
	t.Helper()

	graph := computegraph.NewComputeGraph()
	h := &harness{graph: graph, cache: computegraph.NewComputationCache()}

	left, err := computegraph.AddNode[constantHandle](graph, constantNode{value: 1}, "left")
	if err != nil {
		t.Fatalf("AddNode(left): %v", err)
	}
	right, err := computegraph.AddNode[constantHandle](graph, constantNode{value: 2}, "right")
	if err != nil {
		t.Fatalf("AddNode(right): %v", err)
	}
	sum, err := computegraph.AddNode[countingHandle](graph, countingNode{runs: &h.runs}, "sum")
	if err != nil {
		t.Fatalf("AddNode(sum): %v", err)
	}
	if _, err := computegraph.Connect(graph, left.Output(), sum.InputA()); err != nil {
		t.Fatalf("Connect(left, sum.a): %v", err)
	}
	if _, err := computegraph.Connect(graph, right.Output(), sum.InputB()); err != nil {
		t.Fatalf("Connect(right, sum.b): %v", err)
	}
	h.left, h.right, h.sum = left, right, sum

	for _, s := range steps {
		t.Logf("Read the source for step %v at %v", s.name, s.location)
		before := h.runs
		got := s.apply(t, h)
		delta := h.runs - before

		if got != s.want.sum {
			t.Errorf("step %v: sum = %d, want %d", s.name, got, s.want.sum)
		}
		if delta != s.want.runDelta {
			t.Errorf("step %v: countingNode.Run called %d time(s), want %d", s.name, delta, s.want.runDelta)
		}
	}
}
