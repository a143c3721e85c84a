package cadcore

import "reflect"

// DataView is a read-only, typed handle onto one data section of a
// [ProjectView]. M is the Go type a module registers as its
// SectionPersistent payload (the type [SectionDescriptor.New] for that
// section produces); opening a DataView fails with
// [DataTypeMismatchError] if the stored section's module does not produce
// that type.
type DataView[M any] struct {
	view *ProjectView
	id   DataId
	data erasedData
}

// OpenDataByID opens the data section id as type M. It is a package-level
// generic function rather than a method because Go methods cannot carry
// their own type parameters.
func OpenDataByID[M any](v *ProjectView, id DataId) (DataView[M], error) {
	d, ok := v.data[id]
	if !ok {
		return DataView[M]{}, &UnknownDataError{ID: id}
	}
	if _, ok := d.Persistent.(M); !ok {
		return DataView[M]{}, &DataTypeMismatchError{
			ID:           id,
			Module:       d.Module,
			ExpectedType: reflect.TypeOf((*M)(nil)).Elem(),
		}
	}
	return DataView[M]{view: v, id: id, data: d}, nil
}

// OpenDataByType returns a DataView for every data section in the project
// whose module produces payload type M, along with their identifiers. Order
// is unspecified; callers that need a stable order (e.g.
// cadcore/tracked.CacheValidator) should sort the returned slice themselves.
func OpenDataByType[M any](v *ProjectView) []DataView[M] {
	var out []DataView[M]
	for id, d := range v.data {
		if _, ok := d.Persistent.(M); ok {
			out = append(out, DataView[M]{view: v, id: id, data: d})
		}
	}
	return out
}

// ID returns the data section's identifier.
func (v DataView[M]) ID() DataId { return v.id }

// Module returns the data section's owning module identifier.
func (v DataView[M]) Module() ModuleId { return v.data.Module }

// Persistent returns the section's shared, persisted, undoable payload.
func (v DataView[M]) Persistent() M { return v.data.Persistent.(M) }

// Shared returns the section's shared, non-persisted, non-undoable payload.
func (v DataView[M]) Shared() any { return v.data.Shared }

// PersistentUser returns the section's per-user persisted payload for u,
// default-constructed if u has never touched this section.
func (v DataView[M]) PersistentUser(u UserId) (any, error) {
	return v.data.perUser(v.view.registry, SectionPersistentUser, u)
}

// Session returns the section's per-user, per-session payload for u,
// default-constructed if u has no session state yet.
func (v DataView[M]) Session(u UserId) (any, error) {
	return v.data.perUser(v.view.registry, SectionSession, u)
}

// Owner returns the DocumentId that owns this data section, or false if it
// is an orphan.
func (v DataView[M]) Owner() (DocumentId, bool) {
	owner, ok := v.view.dataOwner[v.id]
	if !ok || owner == nil {
		return DocumentId{}, false
	}
	return *owner, true
}

// ApplyPersistent stages a Transaction change applying args to this
// section's SectionPersistent payload.
func (v DataView[M]) ApplyPersistent(cb *ChangeBuilder, args any) {
	cb.Push(Transaction{ID: v.id, Payload: args})
}

// ApplyPersistentUser stages a UserTransaction change applying args to this
// section's SectionPersistentUser payload, scoped to u.
func (v DataView[M]) ApplyPersistentUser(cb *ChangeBuilder, u UserId, args any) {
	cb.Push(UserTransaction{ID: v.id, User: u, Payload: args})
}

// Move stages a MoveData change reassigning this section's owner (nil for
// orphan).
func (v DataView[M]) Move(cb *ChangeBuilder, newOwner *DocumentId) {
	cb.Push(MoveData{ID: v.id, NewOwner: newOwner})
}

// Delete stages a DeleteData change removing this section.
func (v DataView[M]) Delete(cb *ChangeBuilder) {
	cb.Push(DeleteData{ID: v.id})
}

// PlannedData is the handle returned by [CreateData]: a reference to a data
// section that does not exist in any applied [ProjectView] yet, but can
// already be targeted by further staged changes within the same
// [ChangeBuilder].
type PlannedData[M any] struct {
	ID DataId
}
