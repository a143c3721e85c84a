// Package computegraph implements a typed-port directed graph of
// computation nodes: add nodes, connect an output port to an input port,
// and ask for the value of any output port, with cycle detection, runtime
// type checking on untyped connections, and an optional fingerprint-based
// cache to avoid recomputing unaffected nodes between calls.
package computegraph

import (
	"fmt"
	"reflect"
)

// ComputeGraph is a collection of nodes and the connections between them.
// The zero value is an empty, ready-to-use graph.
type ComputeGraph struct {
	nodes []*GraphNode
	edges []Connection
}

// NewComputeGraph returns an empty graph.
func NewComputeGraph() *ComputeGraph {
	return &ComputeGraph{}
}

func (g *ComputeGraph) findNode(handle NodeHandle) *GraphNode {
	for _, n := range g.nodes {
		if n.handle == handle {
			return n
		}
	}
	return nil
}

// AddNode adds a node built by factory to the graph under name, which must
// be unique across the whole graph, and returns the handle type factory
// produces for interacting with the node's typed ports.
func AddNode[H any, N NodeFactory[H]](g *ComputeGraph, factory N, name string) (H, error) {
	var zero H
	if g.findNode(NodeHandle{name: name}) != nil {
		return zero, &DuplicateNameError{Name: name}
	}

	handle := NodeHandle{name: name}
	gnode := &GraphNode{
		inputs:   factory.Inputs(),
		outputs:  factory.Outputs(),
		node:     factory,
		handle:   handle,
		Metadata: NewMetadata(),
	}
	g.nodes = append(g.nodes, gnode)
	return factory.CreateHandle(handle), nil
}

// ConnectUntyped connects from to to, checking port existence and type
// compatibility at runtime.
func (g *ComputeGraph) ConnectUntyped(from OutputPortUntyped, to InputPortUntyped) (Connection, error) {
	for _, e := range g.edges {
		if e.To == to {
			return Connection{}, &InputPortAlreadyConnectedError{From: from, To: to}
		}
	}

	fromNode := g.findNode(from.Node)
	if fromNode == nil {
		return Connection{}, &NodeNotFoundError{Node: from.Node}
	}
	toNode := g.findNode(to.Node)
	if toNode == nil {
		return Connection{}, &NodeNotFoundError{Node: to.Node}
	}

	fromType, ok := fromNode.TypeOfOutput(from)
	if !ok {
		return Connection{}, &OutputPortNotFoundError{Port: from}
	}
	toType, ok := toNode.TypeOfInput(to)
	if !ok {
		return Connection{}, &InputPortNotFoundError{Port: to}
	}
	if fromType != toType {
		return Connection{}, &TypeMismatchError{Expected: toType, Found: fromType}
	}

	conn := Connection{From: from, To: to}
	g.edges = append(g.edges, conn)
	return conn, nil
}

// Connect connects from to to with the port types checked at compile time.
func Connect[T any](g *ComputeGraph, from OutputPort[T], to InputPort[T]) (Connection, error) {
	return g.ConnectUntyped(from.Port, to.Port)
}

// RemoveNode removes node and every connection touching it.
func (g *ComputeGraph) RemoveNode(node NodeHandle) error {
	if g.findNode(node) == nil {
		return &NodeNotFoundError{Node: node}
	}

	kept := g.edges[:0]
	for _, e := range g.edges {
		if e.From.Node != node && e.To.Node != node {
			kept = append(kept, e)
		}
	}
	g.edges = kept

	for i, n := range g.nodes {
		if n.handle == node {
			g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
			break
		}
	}
	return nil
}

// Disconnect removes conn from the graph.
func (g *ComputeGraph) Disconnect(conn Connection) error {
	for i, e := range g.edges {
		if e == conn {
			g.edges = append(g.edges[:i], g.edges[i+1:]...)
			return nil
		}
	}
	return &ConnectionNotFoundError{}
}

// IterNodes returns every node currently in the graph.
func (g *ComputeGraph) IterNodes() []*GraphNode {
	return g.nodes
}

// GetNode returns the node identified by handle, if it exists.
func (g *ComputeGraph) GetNode(handle NodeHandle) (*GraphNode, bool) {
	n := g.findNode(handle)
	return n, n != nil
}

// ComputationOptions configures a single Compute call.
type ComputationOptions struct {
	Context *ComputationContext
}

// ComputeUntyped resolves output with no context and no cache.
func (g *ComputeGraph) ComputeUntyped(output OutputPortUntyped) (any, error) {
	return g.ComputeWith(output, ComputationOptions{}, nil)
}

// Compute resolves output, reporting a type mismatch if the underlying
// untyped result does not hold a T — this should not happen if the graph's
// declared port types are consistent with the nodes' actual Run output.
func Compute[T any](g *ComputeGraph, output OutputPort[T]) (T, error) {
	return ComputeWith[T](g, output, ComputationOptions{}, nil)
}

// ComputeWith resolves output using opts.Context for override/fallback
// resolution and cache (if non-nil) to skip recomputing unaffected nodes.
func (g *ComputeGraph) ComputeWith(output OutputPortUntyped, opts ComputationOptions, cache *ComputationCache) (any, error) {
	if cache != nil {
		present := make(map[NodeHandle]struct{}, len(g.nodes))
		for _, n := range g.nodes {
			present[n.handle] = struct{}{}
		}
		cache.discardMissing(present)
	}

	visited := make(map[NodeHandle]bool)
	outputs, err := g.computeNode(output.Node, visited, opts.Context, cache, true)
	if err != nil {
		return nil, err
	}

	node := g.findNode(output.Node)
	idx := -1
	for i, spec := range node.outputs {
		if spec.Name == output.OutputName {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, &PortNotFoundError{Node: output.Node, Port: output}
	}
	return outputs[idx], nil
}

// ComputeWith resolves output using opts and cache, type-asserting the
// result to T.
func ComputeWith[T any](g *ComputeGraph, output OutputPort[T], opts ComputationOptions, cache *ComputationCache) (T, error) {
	var zero T
	res, err := g.ComputeWith(output.Port, opts, cache)
	if err != nil {
		return zero, err
	}
	v, ok := res.(T)
	if !ok {
		return zero, &OutputTypeMismatchError{Node: output.Port.Node}
	}
	return v, nil
}

// computeNode evaluates every output of the node identified by handle,
// returning them in the order declared by its Outputs(). isRoot is true only
// for the node directly targeted by the originating ComputeWith call: that
// node is always (re-)run, regardless of cache state, so its result is never
// stale relative to what the caller just asked for; its dependencies may
// still be served from cache.
func (g *ComputeGraph) computeNode(handle NodeHandle, visited map[NodeHandle]bool, ctx *ComputationContext, cache *ComputationCache, isRoot bool) ([]any, error) {
	node := g.findNode(handle)
	if node == nil {
		return nil, &NodeNotFoundError{Node: handle}
	}

	if visited[handle] {
		return nil, &CycleDetectedError{}
	}
	visited[handle] = true
	defer delete(visited, handle)

	inputValues := make([]any, len(node.inputs))
	inputFingerprints := make([]Fingerprint, len(node.inputs))
	cacheable := true

	for i, spec := range node.inputs {
		port := InputPortUntyped{Node: handle, InputName: spec.Name}

		if value, ok := ctx.lookupOverride(port); ok {
			inputValues[i] = value
			inputFingerprints[i] = mustFingerprintOf(value)
			cacheable = false
			continue
		}

		if conn, ok := g.connectionTo(port); ok {
			depOutputs, err := g.computeNode(conn.From.Node, visited, ctx, cache, false)
			if err != nil {
				return nil, err
			}
			depNode := g.findNode(conn.From.Node)
			depIdx := -1
			for j, s := range depNode.outputs {
				if s.Name == conn.From.OutputName {
					depIdx = j
					break
				}
			}
			if depIdx == -1 {
				return nil, &PortNotFoundError{Node: conn.From.Node, Port: conn.From}
			}
			value := depOutputs[depIdx]
			inputValues[i] = value
			fp, err := fingerprintOf(value)
			if err != nil {
				return nil, fmt.Errorf("computegraph: %w", err)
			}
			inputFingerprints[i] = fp
			continue
		}

		if value, isCached, ok := ctx.lookupFallback(spec.Type); ok {
			inputValues[i] = value
			inputFingerprints[i] = mustFingerprintOf(value)
			if !isCached {
				cacheable = false
			}
			continue
		}

		return nil, &InputPortNotConnectedError{Port: port}
	}

	combined := combineFingerprints(append([]Fingerprint{mustFingerprintOf(node.node)}, inputFingerprints...)...)

	if cache != nil && !isRoot && cacheable {
		if outputs, ok := cache.lookup(handle, combined); ok {
			return outputs, nil
		}
	}

	outputs := node.node.Run(inputValues)
	if len(outputs) != len(node.outputs) {
		return nil, &OutputTypeMismatchError{Node: handle}
	}
	if err := checkOutputTypes(node, outputs); err != nil {
		return nil, err
	}

	if cache != nil {
		if cacheable {
			cache.store(handle, combined, outputs)
		} else {
			cache.evict(handle)
		}
	}

	return outputs, nil
}

func checkOutputTypes(node *GraphNode, outputs []any) error {
	for i, spec := range node.outputs {
		if spec.Type == nil {
			continue
		}
		if outputs[i] == nil {
			return &OutputTypeMismatchError{Node: node.handle}
		}
		if got := reflect.TypeOf(outputs[i]); got != spec.Type {
			return &OutputTypeMismatchError{Node: node.handle}
		}
	}
	return nil
}

func (g *ComputeGraph) connectionTo(port InputPortUntyped) (Connection, bool) {
	for _, e := range g.edges {
		if e.To == port {
			return e, true
		}
	}
	return Connection{}, false
}
