package cadcore

// document is the internal, replay-time record of a document: its location,
// the data sections it owns (in no particular order — ownership order is not
// part of the model) and a small free-form metadata bag.
//
// original_source's Document (project/src/document.rs) carries no path of
// its own — paths live in a separate tree structure there. This expansion
// folds Path directly onto the document record instead, since nothing else
// in this port needs a separate path tree and every lookup here is already
// by DocumentId (see SPEC_FULL.md §4.5).
type document struct {
	Path     Path
	Data     []DataId
	Metadata map[string]string
}

func (d document) clone() document {
	data := make([]DataId, len(d.Data))
	copy(data, d.Data)
	meta := make(map[string]string, len(d.Metadata))
	for k, v := range d.Metadata {
		meta[k] = v
	}
	return document{Path: d.Path, Data: data, Metadata: meta}
}

// DocumentView is a read-only handle onto one document of a [ProjectView].
type DocumentView struct {
	view *ProjectView
	id   DocumentId
	doc  document
}

// ID returns the document's identifier.
func (v DocumentView) ID() DocumentId { return v.id }

// Path returns the document's current path.
func (v DocumentView) Path() Path { return v.doc.Path }

// Metadata returns the value stored under key, and whether it was present.
func (v DocumentView) Metadata(key string) (string, bool) {
	s, ok := v.doc.Metadata[key]
	return s, ok
}

// Data returns the identifiers of every data section owned by this document,
// in no particular order.
func (v DocumentView) Data() []DataId {
	out := make([]DataId, len(v.doc.Data))
	copy(out, v.doc.Data)
	return out
}

// Rename stages a RenameDocument change moving this document to newPath.
func (v DocumentView) Rename(cb *ChangeBuilder, newPath Path) {
	cb.Push(RenameDocument{ID: v.id, NewPath: newPath})
}

// Delete stages a DeleteDocument change removing this document. Its data
// sections become orphans rather than being deleted.
func (v DocumentView) Delete(cb *ChangeBuilder) {
	cb.Push(DeleteDocument{ID: v.id})
}

// PlannedDocument is the handle returned by [ProjectView.CreateDocument]: a
// reference to a document that does not exist in any applied [ProjectView]
// yet, but can already be targeted by further staged changes (e.g. giving it
// data sections) within the same [ChangeBuilder].
type PlannedDocument struct {
	ID DocumentId
}
