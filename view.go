package cadcore

// ProjectView is an immutable, point-in-time snapshot of a [Project]'s
// documents and data sections, produced by replaying its log against a
// [Registry]. All read operations are plain map lookups; all write
// operations only stage a [Change] onto a [ChangeBuilder] and never mutate
// the view itself — to see the effect of staged changes, apply them to the
// Project and call [Project.View] again.
type ProjectView struct {
	id       ProjectID
	registry *Registry

	documents map[DocumentId]document
	data      map[DataId]erasedData
	dataOwner map[DataId]*DocumentId
}

// ID returns the identifier of the project this view was replayed from.
func (v *ProjectView) ID() ProjectID { return v.id }

// OpenDocument returns a read-only handle onto the document identified by
// id.
func (v *ProjectView) OpenDocument(id DocumentId) (DocumentView, error) {
	d, ok := v.documents[id]
	if !ok {
		return DocumentView{}, &UnknownDocumentError{ID: id}
	}
	return DocumentView{view: v, id: id, doc: d}, nil
}

// Documents returns the identifiers of every document in the view, in no
// particular order.
func (v *ProjectView) Documents() []DocumentId {
	out := make([]DocumentId, 0, len(v.documents))
	for id := range v.documents {
		out = append(out, id)
	}
	return out
}

// DataSections returns the identifiers of every data section in the view,
// in no particular order.
func (v *ProjectView) DataSections() []DataId {
	out := make([]DataId, 0, len(v.data))
	for id := range v.data {
		out = append(out, id)
	}
	return out
}

// DataModule returns the module a data section belongs to, without
// requiring the caller to know its Go payload type. Used by
// cadcore/assert's relationship sugar, which only needs identity, not
// payload shape.
func (v *ProjectView) DataModule(id DataId) (ModuleId, error) {
	d, ok := v.data[id]
	if !ok {
		return ModuleId{}, &UnknownDataError{ID: id}
	}
	return d.Module, nil
}

// DataOwner returns the document that currently owns the given data
// section, or false if it is an orphan (or does not exist).
func (v *ProjectView) DataOwner(id DataId) (DocumentId, bool) {
	owner, ok := v.dataOwner[id]
	if !ok || owner == nil {
		return DocumentId{}, false
	}
	return *owner, true
}

// DocumentData returns the identifiers of the data sections a document owns,
// or an error if the document does not exist.
func (v *ProjectView) DocumentData(id DocumentId) ([]DataId, error) {
	doc, ok := v.documents[id]
	if !ok {
		return nil, &UnknownDocumentError{ID: id}
	}
	out := make([]DataId, len(doc.Data))
	copy(out, doc.Data)
	return out, nil
}

// CreateDocument stages a CreateDocument change at path and returns a handle
// that can already be referenced by further staged changes (e.g. giving it
// data sections via [CreateData] with an Owner).
func (v *ProjectView) CreateDocument(cb *ChangeBuilder, path Path) PlannedDocument {
	id := NewDocumentId()
	cb.Push(CreateDocument{ID: id, Path: path})
	return PlannedDocument{ID: id}
}

// CreateData stages a CreateData change for the module identified by module,
// optionally owned by owner, and returns a typed handle that can already be
// referenced by further staged changes. M must be the Go type the module
// registers as its SectionPersistent payload.
func CreateData[M any](v *ProjectView, cb *ChangeBuilder, module ModuleId, owner *DocumentId) PlannedData[M] {
	id := NewDataId()
	cb.Push(CreateData{Module: module, ID: id, Owner: owner})
	return PlannedData[M]{ID: id}
}
