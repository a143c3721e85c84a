package computegraph

import "reflect"

// Metadata is a type-keyed heterogeneous bag attached to each GraphNode,
// letting callers associate arbitrary bookkeeping (e.g. a UI layout hint, a
// dirty flag) with a node without the core needing to know its shape.
//
// At most one value of a given type may be stored at a time; inserting a
// second value of the same type replaces the first.
type Metadata struct {
	data map[reflect.Type]any
}

// NewMetadata returns an empty Metadata.
func NewMetadata() Metadata {
	return Metadata{data: make(map[reflect.Type]any)}
}

// GetMetadata retrieves the stored value of type T, if any.
func GetMetadata[T any](m Metadata) (T, bool) {
	var zero T
	if m.data == nil {
		return zero, false
	}
	v, ok := m.data[reflect.TypeOf((*T)(nil)).Elem()]
	if !ok {
		return zero, false
	}
	return v.(T), true
}

// SetMetadata stores value, replacing any previous value of the same type.
func SetMetadata[T any](m *Metadata, value T) {
	if m.data == nil {
		m.data = make(map[reflect.Type]any)
	}
	m.data[reflect.TypeOf((*T)(nil)).Elem()] = value
}

// RemoveMetadata deletes the stored value of type T, if any.
func RemoveMetadata[T any](m *Metadata) {
	if m.data == nil {
		return
	}
	delete(m.data, reflect.TypeOf((*T)(nil)).Elem())
}
