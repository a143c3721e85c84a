/*
Package assert provides syntax sugar for staging [cadcore.MoveData] changes
that keep document/data ownership consistent with common cardinality
patterns — one-to-one, one-to-many, many-to-one, and many-to-many — the same
way a caller might otherwise reason about edges in a property graph.

A project's ownership model already guarantees that a data section has at
most one owning document, so the many-to-one direction (many data sections,
one document) needs no correction beyond staging the move. The one-to-one
direction is where sugar earns its keep: it also retracts — orphans — any
other data section of the same module the document already owns, so "this
document's one sketch" stays true after the reassignment.

Relationship assertions panic if they observe more siblings than the
asserted cardinality allows before they even run, since that can only mean
the caller's own bookkeeping (or an earlier assertion elsewhere in the
codebase) already violated the constraint this call assumes.
*/
package assert

import (
	"fmt"

	"github.com/cadcore-go/cadcore"
)

// Owned returns a value exposing relationship-assertion sugar against view,
// staging any corrective changes onto cb.
func Owned(view *cadcore.ProjectView, cb *cadcore.ChangeBuilder) Relationships {
	return Relationships{view: view, cb: cb}
}

// Relationships stages ownership changes against a [cadcore.ProjectView]
// snapshot and a [cadcore.ChangeBuilder].
type Relationships struct {
	view *cadcore.ProjectView
	cb   *cadcore.ChangeBuilder
}

// OneToOne asserts that doc owns exactly one data section of data's module:
// data. Any other data section of the same module currently owned by doc is
// orphaned first.
//
// Panics if doc is observed already owning more than one other data section
// of that module — a one-to-one assertion should never have let that happen.
func (r Relationships) OneToOne(doc cadcore.DocumentId, data cadcore.DataId) error {
	module, err := r.view.DataModule(data)
	if err != nil {
		return fmt.Errorf("assert one-to-one: %w", err)
	}

	siblings, err := siblingsOf(r.view, doc, module, data)
	if err != nil {
		return fmt.Errorf("assert one-to-one: %w", err)
	}
	if len(siblings) > 1 {
		panic(newIntegrityError("one-to-one", "document", len(siblings)))
	}
	for _, sibling := range siblings {
		r.cb.Push(cadcore.MoveData{ID: sibling, NewOwner: nil})
	}

	r.cb.Push(cadcore.MoveData{ID: data, NewOwner: &doc})
	return nil
}

// OneToMany asserts that doc owns data, without disturbing any other data
// sections doc already owns (doc may own many). Equivalent to ManyToOne
// called with its arguments swapped; both exist so call sites can phrase
// the assertion from whichever side reads more naturally.
func (r Relationships) OneToMany(doc cadcore.DocumentId, data cadcore.DataId) error {
	return r.assign(doc, data)
}

// ManyToOne asserts that data is owned by doc. See [Relationships.OneToMany].
func (r Relationships) ManyToOne(data cadcore.DataId, doc cadcore.DocumentId) error {
	return r.assign(doc, data)
}

// ManyToMany asserts only that data is owned by doc, performing no sibling
// retraction or integrity check. Provided for call sites that want the
// plain assignment without any of the above connotations.
func (r Relationships) ManyToMany(doc cadcore.DocumentId, data cadcore.DataId) error {
	return r.assign(doc, data)
}

func (r Relationships) assign(doc cadcore.DocumentId, data cadcore.DataId) error {
	if _, err := r.view.DataModule(data); err != nil {
		return fmt.Errorf("assert ownership: %w", err)
	}
	r.cb.Push(cadcore.MoveData{ID: data, NewOwner: &doc})
	return nil
}

// siblingsOf returns the data sections doc owns of the given module, other
// than excluding.
func siblingsOf(view *cadcore.ProjectView, doc cadcore.DocumentId, module cadcore.ModuleId, excluding cadcore.DataId) ([]cadcore.DataId, error) {
	owned, err := view.DocumentData(doc)
	if err != nil {
		if _, ok := err.(*cadcore.UnknownDocumentError); ok {
			return nil, nil
		}
		return nil, err
	}

	var siblings []cadcore.DataId
	for _, id := range owned {
		if id == excluding {
			continue
		}
		m, err := view.DataModule(id)
		if err != nil {
			return nil, err
		}
		if m == module {
			siblings = append(siblings, id)
		}
	}
	return siblings, nil
}

// newIntegrityError mirrors the panic raised when a relationship assertion
// observes the graph already violating the cardinality it assumes.
func newIntegrityError(relationship, side string, affected int) error {
	return fmt.Errorf("cadcore/assert: inconsistent ownership detected: %s relationship violated, %d conflicting %s-owned data sections", relationship, affected, side)
}
