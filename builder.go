package cadcore

import "unsafe"

// ChangeBuilder is an append-only staging list of planned [Change]s.
// Operations on [ProjectView]/[DocumentView]/[DataView] that "plan" a
// mutation push into a ChangeBuilder and return the pre-minted
// [DataId]/[DocumentId] so call sites can keep referring to the planned
// object before it exists in any [ProjectView].
//
// The zero value is ready to use. Do not copy a non-zero ChangeBuilder by
// value — this is enforced at runtime by copyCheck, the same anti-copy
// guard builder.go's AssemblyBuilder uses (itself borrowed from
// strings.Builder), since a ChangeBuilder is exactly the same "accumulate
// then finalize" shape as that type.
type ChangeBuilder struct {
	changes []Change
	// addr is the receiver's address at first use; see copyCheck.
	addr *ChangeBuilder
}

// NewChangeBuilder returns an empty ChangeBuilder. Equivalent to the zero
// value; provided for symmetry with NewRegistry/NewProject.
func NewChangeBuilder() *ChangeBuilder { return &ChangeBuilder{} }

// Push appends a planned change to the builder.
func (b *ChangeBuilder) Push(c Change) {
	b.copyCheck()
	b.changes = append(b.changes, c)
}

// Append folds other's staged changes into b, in order, leaving other
// unchanged.
func (b *ChangeBuilder) Append(other *ChangeBuilder) {
	b.copyCheck()
	b.changes = append(b.changes, other.changes...)
}

// Changes returns a defensive copy of the staged changes, in insertion
// order.
func (b *ChangeBuilder) Changes() []Change {
	out := make([]Change, len(b.changes))
	copy(out, b.changes)
	return out
}

// Len reports the number of staged changes.
func (b *ChangeBuilder) Len() int { return len(b.changes) }

// Reset empties the builder so it can be reused.
func (b *ChangeBuilder) Reset() {
	b.changes = nil
	b.addr = nil
}

//go:nosplit
func noescape(p unsafe.Pointer) unsafe.Pointer {
	x := uintptr(p)
	return unsafe.Pointer(x ^ 0) //nolint:govet,staticcheck,gosec // copied from the standard library
}

func (b *ChangeBuilder) copyCheck() {
	if b.addr == nil {
		// Works around a failing of Go's escape analysis that would otherwise
		// force b onto the heap. See golang.org/issue/23382.
		b.addr = (*ChangeBuilder)(noescape(unsafe.Pointer(b)))
	} else if b.addr != b {
		panic("cadcore: illegal use of non-zero ChangeBuilder copied by value")
	}
}
