package computegraph_test

import (
	"sort"
	"sync"
	"testing"

	"github.com/cadcore-go/cadcore/computegraph"
)

// opNode is a logging arithmetic node used only to observe which nodes a
// Compute call actually re-ran. Its Name and Kind are exported so that
// replacing a node in place (remove then re-add under the same name) is
// visible to the content fingerprint that ComputationCache keys on.
type opKind int

const (
	opSum opKind = iota
	opKeepA
	opKeepB
)

type opNode struct {
	Name string
	Kind opKind
}

func sumOp(name string) opNode   { return opNode{Name: name, Kind: opSum} }
func keepAOp(name string) opNode { return opNode{Name: name, Kind: opKeepA} }
func keepBOp(name string) opNode { return opNode{Name: name, Kind: opKeepB} }

type opHandle struct{ handle computegraph.NodeHandle }

func (h opHandle) InputA() computegraph.InputPort[int] {
	return computegraph.ToInputPort[int](h.handle.InputPortUntyped("a"))
}
func (h opHandle) InputB() computegraph.InputPort[int] {
	return computegraph.ToInputPort[int](h.handle.InputPortUntyped("b"))
}
func (h opHandle) Output() computegraph.OutputPort[int] {
	return computegraph.ToOutputPort[int](h.handle.OutputPortUntyped("result"))
}

func (n opNode) Run(input []any) []any {
	recordOp(n.Name)
	a, b := input[0].(int), input[1].(int)
	switch n.Kind {
	case opKeepA:
		return []any{a}
	case opKeepB:
		return []any{b}
	default:
		return []any{a + b}
	}
}
func (opNode) Inputs() []computegraph.PortSpec {
	return []computegraph.PortSpec{
		computegraph.TypedPortSpec[int]("a"),
		computegraph.TypedPortSpec[int]("b"),
	}
}
func (opNode) Outputs() []computegraph.PortSpec {
	return []computegraph.PortSpec{computegraph.TypedPortSpec[int]("result")}
}
func (opNode) CreateHandle(handle computegraph.NodeHandle) opHandle {
	return opHandle{handle: handle}
}

var (
	opLogMu sync.Mutex
	opLog   []string
)

func recordOp(name string) {
	opLogMu.Lock()
	defer opLogMu.Unlock()
	opLog = append(opLog, name)
}

func takeOpLogSet() map[string]bool {
	opLogMu.Lock()
	log := opLog
	opLog = nil
	opLogMu.Unlock()

	out := make(map[string]bool, len(log))
	for _, name := range log {
		out[name] = true
	}
	return out
}

func assertOpLogSet(t *testing.T, want ...string) {
	t.Helper()
	got := takeOpLogSet()
	if len(got) != len(want) {
		t.Fatalf("op log = %v, want %v", sortedKeys(got), want)
	}
	for _, w := range want {
		if !got[w] {
			t.Fatalf("op log = %v, want %v", sortedKeys(got), want)
		}
	}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func TestCaching(t *testing.T) {
	// value1──┐
	//         └─►┌─────┐
	//            │ op1 ├──────┐
	//         ┌─►└─────┘      └──────►┌─────┐   ┌─────┐
	// value2──┤                       │ op4 ├──►│ op5 │
	//         └─►┌─────┐ ┌─►┌─────┐ ┌►└─────┘   └──┬──┘
	//            │ op2 ├─┤  │ op3 ├─┘              │
	//         ┌─►└─────┘ └─►└─────┘                │
	// value3──┘                                    ▼
	//                                           result
	g := computegraph.NewComputeGraph()
	value1, _ := computegraph.AddNode[constantHandle](g, constantNode{value: 5}, "value1")
	value2, _ := computegraph.AddNode[constantHandle](g, constantNode{value: 7}, "value2")
	value3, _ := computegraph.AddNode[constantHandle](g, constantNode{value: 3}, "value3")

	op1, _ := computegraph.AddNode[opHandle](g, sumOp("op1"), "op1")
	op2, _ := computegraph.AddNode[opHandle](g, sumOp("op2"), "op2")
	op3, _ := computegraph.AddNode[opHandle](g, sumOp("op3"), "op3")
	op4, _ := computegraph.AddNode[opHandle](g, sumOp("op4"), "op4")
	op5, _ := computegraph.AddNode[opHandle](g, keepAOp("op5"), "op5")

	mustConnect(t)(computegraph.Connect(g, value1.Output(), op1.InputA()))
	mustConnect(t)(computegraph.Connect(g, value2.Output(), op1.InputB()))
	mustConnect(t)(computegraph.Connect(g, value2.Output(), op2.InputA()))
	mustConnect(t)(computegraph.Connect(g, value3.Output(), op2.InputB()))
	mustConnect(t)(computegraph.Connect(g, op2.Output(), op3.InputA()))
	mustConnect(t)(computegraph.Connect(g, op2.Output(), op3.InputB()))
	mustConnect(t)(computegraph.Connect(g, op1.Output(), op4.InputA()))
	mustConnect(t)(computegraph.Connect(g, op3.Output(), op4.InputB()))
	mustConnect(t)(computegraph.Connect(g, op4.Output(), op5.InputA()))
	mustConnect(t)(computegraph.Connect(g, op4.Output(), op5.InputB()))

	resultNoCache, err := g.ComputeWith(op5.Output().Untyped(), computegraph.ComputationOptions{}, nil)
	if err != nil {
		t.Fatal(err)
	}

	takeOpLogSet()
	cache := computegraph.NewComputationCache()
	result, err := g.ComputeWith(op5.Output().Untyped(), computegraph.ComputationOptions{}, cache)
	if err != nil {
		t.Fatal(err)
	}
	assertOpLogSet(t, "op1", "op2", "op3", "op4", "op5")
	if result != resultNoCache {
		t.Fatalf("got %v, want %v", result, resultNoCache)
	}

	result, err = g.ComputeWith(op5.Output().Untyped(), computegraph.ComputationOptions{}, cache)
	if err != nil {
		t.Fatal(err)
	}
	assertOpLogSet(t, "op5")
	if result != resultNoCache {
		t.Fatalf("got %v, want %v", result, resultNoCache)
	}

	// Replace op3 to only keep input_a: op3 and op4 recompute (op5, the node
	// asked for, always runs); op1 and op2 stay cached.
	if err := g.RemoveNode(op3.handle); err != nil {
		t.Fatal(err)
	}
	op3, _ = computegraph.AddNode[opHandle](g, keepAOp("op3"), "op3")
	mustConnect(t)(computegraph.Connect(g, op2.Output(), op3.InputA()))
	mustConnect(t)(computegraph.Connect(g, op2.Output(), op3.InputB()))
	mustConnect(t)(computegraph.Connect(g, op3.Output(), op4.InputB()))

	resultNoCache, err = g.ComputeWith(op5.Output().Untyped(), computegraph.ComputationOptions{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	takeOpLogSet()
	result, err = g.ComputeWith(op5.Output().Untyped(), computegraph.ComputationOptions{}, cache)
	if err != nil {
		t.Fatal(err)
	}
	assertOpLogSet(t, "op3", "op4", "op5")
	if result != resultNoCache {
		t.Fatalf("got %v, want %v", result, resultNoCache)
	}

	// Replace op3 to only keep input_b: its value is unchanged, so op3 reruns
	// but op4 is served from the cache; op5, the node asked for, always runs.
	if err := g.RemoveNode(op3.handle); err != nil {
		t.Fatal(err)
	}
	op3, _ = computegraph.AddNode[opHandle](g, keepBOp("op3"), "op3")
	mustConnect(t)(computegraph.Connect(g, op2.Output(), op3.InputA()))
	mustConnect(t)(computegraph.Connect(g, op2.Output(), op3.InputB()))
	mustConnect(t)(computegraph.Connect(g, op3.Output(), op4.InputB()))

	resultNoCache, err = g.ComputeWith(op4.Output().Untyped(), computegraph.ComputationOptions{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	takeOpLogSet()
	result, err = g.ComputeWith(op5.Output().Untyped(), computegraph.ComputationOptions{}, cache)
	if err != nil {
		t.Fatal(err)
	}
	assertOpLogSet(t, "op3", "op5")
	if result != resultNoCache {
		t.Fatalf("got %v, want %v", result, resultNoCache)
	}
}

func TestDiscardOldCacheResults(t *testing.T) {
	g := computegraph.NewComputeGraph()
	value, _ := computegraph.AddNode[constantHandle](g, constantNode{value: 11}, "value")
	op1a, _ := computegraph.AddNode[opHandle](g, sumOp("op1a"), "op1a")
	op1b, _ := computegraph.AddNode[opHandle](g, sumOp("op1b"), "op1b")
	op2a, _ := computegraph.AddNode[opHandle](g, sumOp("op2a"), "op2a")
	op2b, _ := computegraph.AddNode[opHandle](g, sumOp("op2b"), "op2b")

	mustConnect(t)(computegraph.Connect(g, value.Output(), op1a.InputA()))
	mustConnect(t)(computegraph.Connect(g, value.Output(), op1a.InputB()))
	mustConnect(t)(computegraph.Connect(g, value.Output(), op2a.InputA()))
	mustConnect(t)(computegraph.Connect(g, value.Output(), op2a.InputB()))
	mustConnect(t)(computegraph.Connect(g, op1a.Output(), op1b.InputA()))
	mustConnect(t)(computegraph.Connect(g, op1a.Output(), op1b.InputB()))
	mustConnect(t)(computegraph.Connect(g, op2a.Output(), op2b.InputA()))
	mustConnect(t)(computegraph.Connect(g, op2a.Output(), op2b.InputB()))

	g2 := computegraph.NewComputeGraph()
	g2Value, _ := computegraph.AddNode[constantHandle](g2, constantNode{value: 11}, "value")
	g2Op, _ := computegraph.AddNode[opHandle](g2, sumOp("op"), "op")
	mustConnect(t)(computegraph.Connect(g2, g2Value.Output(), g2Op.InputA()))
	mustConnect(t)(computegraph.Connect(g2, g2Value.Output(), g2Op.InputB()))

	cache := computegraph.NewComputationCache()

	if _, err := g.ComputeWith(op1b.Output().Untyped(), computegraph.ComputationOptions{}, cache); err != nil {
		t.Fatal(err)
	}
	assertOpLogSet(t, "op1a", "op1b")

	if _, err := g.ComputeWith(op1b.Output().Untyped(), computegraph.ComputationOptions{}, cache); err != nil {
		t.Fatal(err)
	}
	assertOpLogSet(t, "op1b")

	// Reusing the same cache on a mostly empty graph discards entries.
	if _, err := g2.ComputeWith(g2Op.Output().Untyped(), computegraph.ComputationOptions{}, cache); err != nil {
		t.Fatal(err)
	}
	assertOpLogSet(t, "op")

	if _, err := g.ComputeWith(op1b.Output().Untyped(), computegraph.ComputationOptions{}, cache); err != nil {
		t.Fatal(err)
	}
	assertOpLogSet(t, "op1a", "op1b")
}

func TestDontDiscardNodesStillInTheGraph(t *testing.T) {
	g := computegraph.NewComputeGraph()
	value, _ := computegraph.AddNode[constantHandle](g, constantNode{value: 11}, "value")
	op1a, _ := computegraph.AddNode[opHandle](g, sumOp("op1a"), "op1a")
	op1b, _ := computegraph.AddNode[opHandle](g, sumOp("op1b"), "op1b")
	op2a, _ := computegraph.AddNode[opHandle](g, sumOp("op2a"), "op2a")
	op2b, _ := computegraph.AddNode[opHandle](g, sumOp("op2b"), "op2b")

	mustConnect(t)(computegraph.Connect(g, value.Output(), op1a.InputA()))
	mustConnect(t)(computegraph.Connect(g, value.Output(), op1a.InputB()))
	mustConnect(t)(computegraph.Connect(g, value.Output(), op2a.InputA()))
	mustConnect(t)(computegraph.Connect(g, value.Output(), op2a.InputB()))
	mustConnect(t)(computegraph.Connect(g, op1a.Output(), op1b.InputA()))
	mustConnect(t)(computegraph.Connect(g, op1a.Output(), op1b.InputB()))
	mustConnect(t)(computegraph.Connect(g, op2a.Output(), op2b.InputA()))
	mustConnect(t)(computegraph.Connect(g, op2a.Output(), op2b.InputB()))

	cache := computegraph.NewComputationCache()

	if _, err := g.ComputeWith(op1b.Output().Untyped(), computegraph.ComputationOptions{}, cache); err != nil {
		t.Fatal(err)
	}
	assertOpLogSet(t, "op1a", "op1b")

	if _, err := g.ComputeWith(op2b.Output().Untyped(), computegraph.ComputationOptions{}, cache); err != nil {
		t.Fatal(err)
	}
	assertOpLogSet(t, "op2a", "op2b")

	if _, err := g.ComputeWith(op1b.Output().Untyped(), computegraph.ComputationOptions{}, cache); err != nil {
		t.Fatal(err)
	}
	assertOpLogSet(t, "op1b")
}

func TestCachingWithOverride(t *testing.T) {
	g := computegraph.NewComputeGraph()
	value1, _ := computegraph.AddNode[constantHandle](g, constantNode{value: 5}, "value1")
	value2, _ := computegraph.AddNode[constantHandle](g, constantNode{value: 7}, "value2")
	value3, _ := computegraph.AddNode[constantHandle](g, constantNode{value: 3}, "value3")

	op1, _ := computegraph.AddNode[opHandle](g, sumOp("op1"), "op1")
	op2, _ := computegraph.AddNode[opHandle](g, sumOp("op2"), "op2")
	op3, _ := computegraph.AddNode[opHandle](g, sumOp("op3"), "op3")
	op4, _ := computegraph.AddNode[opHandle](g, sumOp("op4"), "op4")
	op5, _ := computegraph.AddNode[opHandle](g, keepAOp("op5"), "op5")

	mustConnect(t)(computegraph.Connect(g, value1.Output(), op1.InputA()))
	mustConnect(t)(computegraph.Connect(g, value2.Output(), op1.InputB()))
	mustConnect(t)(computegraph.Connect(g, value2.Output(), op2.InputA()))
	mustConnect(t)(computegraph.Connect(g, value3.Output(), op2.InputB()))
	mustConnect(t)(computegraph.Connect(g, op2.Output(), op3.InputA()))
	mustConnect(t)(computegraph.Connect(g, op2.Output(), op3.InputB()))
	mustConnect(t)(computegraph.Connect(g, op1.Output(), op4.InputA()))
	mustConnect(t)(computegraph.Connect(g, op3.Output(), op4.InputB()))
	mustConnect(t)(computegraph.Connect(g, op4.Output(), op5.InputA()))
	mustConnect(t)(computegraph.Connect(g, op4.Output(), op5.InputB()))

	cache := computegraph.NewComputationCache()
	ctx := computegraph.NewComputationContext()
	computegraph.SetOverride(ctx, op3.InputA(), 10)
	computegraph.SetOverride(ctx, op3.InputB(), 10)
	computegraph.SetOverride(ctx, op4.InputA(), 5)

	got, err := computegraph.ComputeWith(g, op5.Output(), computegraph.ComputationOptions{Context: ctx}, cache)
	if err != nil || got != 25 {
		t.Fatalf("got %v, %v, want 25, nil", got, err)
	}
	assertOpLogSet(t, "op3", "op4", "op5")

	got, err = computegraph.ComputeWith(g, op5.Output(), computegraph.ComputationOptions{Context: ctx}, cache)
	if err != nil || got != 25 {
		t.Fatalf("got %v, %v, want 25, nil", got, err)
	}
	assertOpLogSet(t, "op3", "op4", "op5") // overrides should trigger a recompute

	computegraph.SetOverride(ctx, op3.InputA(), 20)
	computegraph.SetOverride(ctx, op3.InputB(), 20)
	got, err = computegraph.ComputeWith(g, op5.Output(), computegraph.ComputationOptions{Context: ctx}, cache)
	if err != nil || got != 45 {
		t.Fatalf("got %v, %v, want 45, nil", got, err)
	}
	assertOpLogSet(t, "op3", "op4", "op5")
}

func TestCachingWithFallback(t *testing.T) {
	g := computegraph.NewComputeGraph()
	op3, _ := computegraph.AddNode[opHandle](g, sumOp("op3"), "op3")
	op4, _ := computegraph.AddNode[opHandle](g, sumOp("op4"), "op4")
	op5, _ := computegraph.AddNode[opHandle](g, keepAOp("op5"), "op5")

	mustConnect(t)(computegraph.Connect(g, op3.Output(), op4.InputB()))
	mustConnect(t)(computegraph.Connect(g, op4.Output(), op5.InputA()))
	mustConnect(t)(computegraph.Connect(g, op4.Output(), op5.InputB()))

	cache := computegraph.NewComputationCache()
	ctx := computegraph.NewComputationContext()
	computegraph.SetFallback(ctx, 10)

	got, err := computegraph.ComputeWith(g, op5.Output(), computegraph.ComputationOptions{Context: ctx}, cache)
	if err != nil || got != 30 {
		t.Fatalf("got %v, %v, want 30, nil", got, err)
	}
	assertOpLogSet(t, "op3", "op4", "op5")

	got, err = computegraph.ComputeWith(g, op5.Output(), computegraph.ComputationOptions{Context: ctx}, cache)
	if err != nil || got != 30 {
		t.Fatalf("got %v, %v, want 30, nil", got, err)
	}
	assertOpLogSet(t, "op3", "op4", "op5") // plain fallbacks should trigger a recompute

	computegraph.SetFallback(ctx, 20)
	got, err = computegraph.ComputeWith(g, op5.Output(), computegraph.ComputationOptions{Context: ctx}, cache)
	if err != nil || got != 60 {
		t.Fatalf("got %v, %v, want 60, nil", got, err)
	}
	assertOpLogSet(t, "op3", "op4", "op5")
}

func TestCachingWithCacheableFallback(t *testing.T) {
	g := computegraph.NewComputeGraph()
	op3, _ := computegraph.AddNode[opHandle](g, sumOp("op3"), "op3")
	op4, _ := computegraph.AddNode[opHandle](g, sumOp("op4"), "op4")
	op5, _ := computegraph.AddNode[opHandle](g, keepAOp("op5"), "op5")

	mustConnect(t)(computegraph.Connect(g, op3.Output(), op4.InputB()))
	mustConnect(t)(computegraph.Connect(g, op4.Output(), op5.InputA()))
	mustConnect(t)(computegraph.Connect(g, op4.Output(), op5.InputB()))

	cache := computegraph.NewComputationCache()
	ctx := computegraph.NewComputationContext()
	computegraph.SetFallbackCached(ctx, 10)

	got, err := computegraph.ComputeWith(g, op5.Output(), computegraph.ComputationOptions{Context: ctx}, cache)
	if err != nil || got != 30 {
		t.Fatalf("got %v, %v, want 30, nil", got, err)
	}
	assertOpLogSet(t, "op3", "op4", "op5")

	got, err = computegraph.ComputeWith(g, op5.Output(), computegraph.ComputationOptions{Context: ctx}, cache)
	if err != nil || got != 30 {
		t.Fatalf("got %v, %v, want 30, nil", got, err)
	}
	assertOpLogSet(t, "op5") // cacheable fallbacks should be cached

	computegraph.SetFallbackCached(ctx, 20)
	got, err = computegraph.ComputeWith(g, op5.Output(), computegraph.ComputationOptions{Context: ctx}, cache)
	if err != nil || got != 60 {
		t.Fatalf("got %v, %v, want 60, nil", got, err)
	}
	assertOpLogSet(t, "op3", "op4", "op5") // the context changed, a recompute is required

	computegraph.SetFallbackCached(ctx, 20)
	got, err = computegraph.ComputeWith(g, op5.Output(), computegraph.ComputationOptions{Context: ctx}, cache)
	if err != nil || got != 60 {
		t.Fatalf("got %v, %v, want 60, nil", got, err)
	}
	assertOpLogSet(t, "op5") // same value set again: still cacheable

	// Adding an unrelated node must not disturb existing cache entries.
	value, _ := computegraph.AddNode[constantHandle](g, constantNode{value: 10}, "value")
	if got, err := computegraph.Compute(g, value.Output()); err != nil || got != 10 {
		t.Fatalf("got %v, %v, want 10, nil", got, err)
	}
	assertOpLogSet(t)

	got, err = computegraph.ComputeWith(g, op5.Output(), computegraph.ComputationOptions{Context: ctx}, cache)
	if err != nil || got != 60 {
		t.Fatalf("got %v, %v, want 60, nil", got, err)
	}
	assertOpLogSet(t, "op5")

	// Remove and then re-register the same fallback value. Under this
	// package's value-only fingerprinting (see DESIGN.md), a cacheable
	// fallback's identity is its resolved value, not the particular
	// SetFallbackCached call that set it, so op3 and op4 remain cached here.
	computegraph.RemoveFallback[int](ctx)
	if got, err := computegraph.Compute(g, value.Output()); err != nil || got != 10 {
		t.Fatalf("got %v, %v, want 10, nil", got, err)
	}
	assertOpLogSet(t)

	computegraph.SetFallbackCached(ctx, 20)
	got, err = computegraph.ComputeWith(g, op5.Output(), computegraph.ComputationOptions{Context: ctx}, cache)
	if err != nil || got != 60 {
		t.Fatalf("got %v, %v, want 60, nil", got, err)
	}
	assertOpLogSet(t, "op5")
}
