package computegraph

import "reflect"

// ComputationContext lets a caller of Compute supply per-call input values
// that bypass the graph's normal connections, without mutating the graph
// itself. Resolution priority for an input port is, highest first:
//
//  1. an override set on that exact port (SetOverride)
//  2. the value produced by the port's incoming connection, if any
//  3. a fallback registered for the port's type (SetFallback/SetFallbackCached)
//
// An override or a plain fallback (SetFallback) is treated as ad hoc: a node
// that resolves any input this way is always recomputed by ComputationCache,
// never served from a cached result. A cacheable fallback (SetFallbackCached)
// participates in caching like a normal connected value.
type ComputationContext struct {
	overrides map[InputPortUntyped]overrideValue
	fallbacks map[reflect.Type]fallbackValue
}

type overrideValue struct {
	value any
	typ   reflect.Type
}

type fallbackValue struct {
	value  any
	cached bool
}

// NewComputationContext returns an empty context.
func NewComputationContext() *ComputationContext {
	return &ComputationContext{
		overrides: make(map[InputPortUntyped]overrideValue),
		fallbacks: make(map[reflect.Type]fallbackValue),
	}
}

// SetOverride forces port to resolve to value for every Compute call using
// this context, regardless of its connection. The most recent call for a
// given port wins.
func SetOverride[T any](ctx *ComputationContext, port InputPort[T], value T) {
	ctx.overrides[port.Port] = overrideValue{value: value, typ: reflect.TypeOf((*T)(nil)).Elem()}
}

// RemoveOverride removes the override set on port and returns its value, if
// one was set and its stored type matches T. A type mismatch leaves the
// override in place and reports false, mirroring RemoveOverrideUntyped's
// "wrong type, don't touch it" behavior at the typed call site.
func RemoveOverride[T any](ctx *ComputationContext, port InputPort[T]) (T, bool) {
	var zero T
	entry, ok := ctx.overrides[port.Port]
	if !ok {
		return zero, false
	}
	v, ok := entry.value.(T)
	if !ok {
		return zero, false
	}
	delete(ctx.overrides, port.Port)
	return v, true
}

// RemoveOverrideUntyped removes whatever override is set on port, regardless
// of its value type, and returns it.
func RemoveOverrideUntyped(ctx *ComputationContext, port InputPortUntyped) (any, bool) {
	entry, ok := ctx.overrides[port]
	if !ok {
		return nil, false
	}
	delete(ctx.overrides, port)
	return entry.value, true
}

// SetFallback registers value as the resolution for any unconnected input
// port of type T. Unlike SetFallbackCached, a node resolving an input this
// way is never served from ComputationCache.
func SetFallback[T any](ctx *ComputationContext, value T) {
	ctx.fallbacks[reflect.TypeOf((*T)(nil)).Elem()] = fallbackValue{value: value, cached: false}
}

// SetFallbackCached registers value as the resolution for any unconnected
// input port of type T, participating in ComputationCache like a normal
// connected value: unchanged fallback values across calls let dependent
// nodes keep their cached results.
func SetFallbackCached[T any](ctx *ComputationContext, value T) {
	ctx.fallbacks[reflect.TypeOf((*T)(nil)).Elem()] = fallbackValue{value: value, cached: true}
}

// RemoveFallback removes the fallback registered for type T and returns it.
func RemoveFallback[T any](ctx *ComputationContext) (T, bool) {
	var zero T
	t := reflect.TypeOf((*T)(nil)).Elem()
	entry, ok := ctx.fallbacks[t]
	if !ok {
		return zero, false
	}
	delete(ctx.fallbacks, t)
	return entry.value.(T), true
}

// RemoveFallbackUntyped removes the fallback registered for t and returns it.
func RemoveFallbackUntyped(ctx *ComputationContext, t reflect.Type) (any, bool) {
	entry, ok := ctx.fallbacks[t]
	if !ok {
		return nil, false
	}
	delete(ctx.fallbacks, t)
	return entry.value, true
}

func (ctx *ComputationContext) lookupOverride(port InputPortUntyped) (any, bool) {
	if ctx == nil || ctx.overrides == nil {
		return nil, false
	}
	entry, ok := ctx.overrides[port]
	if !ok {
		return nil, false
	}
	return entry.value, true
}

func (ctx *ComputationContext) lookupFallback(t reflect.Type) (any, bool, bool) {
	if ctx == nil || ctx.fallbacks == nil {
		return nil, false, false
	}
	entry, ok := ctx.fallbacks[t]
	if !ok {
		return nil, false, false
	}
	return entry.value, entry.cached, true
}
