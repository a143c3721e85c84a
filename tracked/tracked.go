// Package tracked wraps a [cadcore.ProjectView] so that read accesses made
// through it are recorded, producing a [CacheValidator] that can later
// decide whether a value derived from those accesses is still valid against
// a newer [cadcore.ProjectView] — without needing to know anything about
// what was actually computed from them.
package tracked

import (
	"sort"
	"sync"

	"github.com/cadcore-go/cadcore"
)

// accessEvent is one recorded read. The variant set mirrors spec.md §4.6
// exactly; each variant carries just enough identity to re-check itself
// against a different ProjectView later.
type accessEvent interface {
	isAccessEvent()
	validAgainst(old, new *cadcore.ProjectView) (bool, error)
}

type openDocument struct{ id cadcore.DocumentId }

func (openDocument) isAccessEvent() {}
func (e openDocument) validAgainst(old, new *cadcore.ProjectView) (bool, error) {
	oldDoc, oldOK := oldDocSnapshot(old, e.id)
	newDoc, newOK := oldDocSnapshot(new, e.id)
	if oldOK != newOK {
		return false, nil
	}
	return !oldOK || oldDoc == newDoc, nil
}

type openDataByID struct{ id cadcore.DataId }

func (openDataByID) isAccessEvent() {}
func (e openDataByID) validAgainst(old, new *cadcore.ProjectView) (bool, error) {
	oldMod, oldErr := old.DataModule(e.id)
	newMod, newErr := new.DataModule(e.id)
	oldOK, newOK := oldErr == nil, newErr == nil
	if oldOK != newOK {
		return false, nil
	}
	return !oldOK || oldMod == newMod, nil
}

type openDataByType struct{ module cadcore.ModuleId }

func (openDataByType) isAccessEvent() {}
func (e openDataByType) validAgainst(old, new *cadcore.ProjectView) (bool, error) {
	return sortedIDsEqual(dataIDsOfModule(old, e.module), dataIDsOfModule(new, e.module)), nil
}

type openDocumentDataByID struct {
	document cadcore.DocumentId
	data     cadcore.DataId
}

func (openDocumentDataByID) isAccessEvent() {}
func (e openDocumentDataByID) validAgainst(old, new *cadcore.ProjectView) (bool, error) {
	if old.HasDocument(e.document) != new.HasDocument(e.document) {
		return false, nil
	}
	if !old.HasDocument(e.document) {
		return true, nil
	}
	return ownsData(old, e.document, e.data) == ownsData(new, e.document, e.data), nil
}

type openDocumentDataByType struct {
	document cadcore.DocumentId
	module   cadcore.ModuleId
}

func (openDocumentDataByType) isAccessEvent() {}
func (e openDocumentDataByType) validAgainst(old, new *cadcore.ProjectView) (bool, error) {
	if old.HasDocument(e.document) != new.HasDocument(e.document) {
		return false, nil
	}
	if !old.HasDocument(e.document) {
		return true, nil
	}
	oldIDs, err := documentDataOfModule(old, e.document, e.module)
	if err != nil {
		return false, err
	}
	newIDs, err := documentDataOfModule(new, e.document, e.module)
	if err != nil {
		return false, err
	}
	return sortedIDsEqual(oldIDs, newIDs), nil
}

type accessPersistent struct{ id cadcore.DataId }

func (accessPersistent) isAccessEvent() {}
func (e accessPersistent) validAgainst(old, new *cadcore.ProjectView) (bool, error) {
	return old.SectionEqual(new, e.id, cadcore.SectionPersistent)
}

type accessPersistentUser struct {
	id   cadcore.DataId
	user cadcore.UserId
}

func (accessPersistentUser) isAccessEvent() {}
func (e accessPersistentUser) validAgainst(old, new *cadcore.ProjectView) (bool, error) {
	return old.UserSectionEqual(new, e.id, cadcore.SectionPersistentUser, e.user)
}

type accessShared struct{ id cadcore.DataId }

func (accessShared) isAccessEvent() {}
func (e accessShared) validAgainst(old, new *cadcore.ProjectView) (bool, error) {
	return old.SectionEqual(new, e.id, cadcore.SectionShared)
}

type accessSession struct {
	id   cadcore.DataId
	user cadcore.UserId
}

func (accessSession) isAccessEvent() {}
func (e accessSession) validAgainst(old, new *cadcore.ProjectView) (bool, error) {
	return old.UserSectionEqual(new, e.id, cadcore.SectionSession, e.user)
}

func oldDocSnapshot(v *cadcore.ProjectView, id cadcore.DocumentId) (doc struct {
	path  string
	owned string
}, ok bool) {
	view, err := v.OpenDocument(id)
	if err != nil {
		return doc, false
	}
	doc.path = view.Path().String()
	ids := append([]cadcore.DataId(nil), view.Data()...)
	doc.owned = joinSortedIDs(ids)
	return doc, true
}

func dataIDsOfModule(v *cadcore.ProjectView, module cadcore.ModuleId) []cadcore.DataId {
	var out []cadcore.DataId
	for _, id := range v.DataSections() {
		if mod, err := v.DataModule(id); err == nil && mod == module {
			out = append(out, id)
		}
	}
	return out
}

func ownsData(v *cadcore.ProjectView, doc cadcore.DocumentId, data cadcore.DataId) bool {
	owner, ok := v.DataOwner(data)
	return ok && owner == doc
}

func documentDataOfModule(v *cadcore.ProjectView, doc cadcore.DocumentId, module cadcore.ModuleId) ([]cadcore.DataId, error) {
	owned, err := v.DocumentData(doc)
	if err != nil {
		return nil, err
	}
	var out []cadcore.DataId
	for _, id := range owned {
		if mod, err := v.DataModule(id); err == nil && mod == module {
			out = append(out, id)
		}
	}
	return out, nil
}

func sortedIDsEqual(a, b []cadcore.DataId) bool {
	return joinSortedIDs(a) == joinSortedIDs(b)
}

// joinSortedIDs gives a stable, order-independent fingerprint of an id set.
// Go map iteration is randomized (unlike the Vec-backed iterator the source
// implementation compares directly), so any comparison derived from a map
// walk has to be sorted first.
func joinSortedIDs(ids []cadcore.DataId) string {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	sort.Strings(strs)
	out := ""
	for _, s := range strs {
		out += s + "\x00"
	}
	return out
}

// AccessRecorder accumulates accessEvents made through a [TrackedProjectView]
// tree. Safe for concurrent use.
type AccessRecorder struct {
	mu      sync.Mutex
	records []accessEvent
}

func newAccessRecorder() *AccessRecorder {
	return &AccessRecorder{}
}

func (r *AccessRecorder) track(e accessEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, e)
}

// Freeze produces an immutable [CacheValidator] from the accesses recorded
// so far, and clears the recorder so it can keep tracking a fresh round of
// accesses.
func (r *AccessRecorder) Freeze() *CacheValidator {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := r.records
	r.records = nil
	return &CacheValidator{events: events}
}

// CacheValidator is a frozen, replayable record of the read accesses that
// went into computing some cached value. [CacheValidator.IsCacheValid]
// checks whether those same accesses would still observe the same data on a
// newer [cadcore.ProjectView].
type CacheValidator struct {
	events []accessEvent
}

// IsCacheValid reports whether every access recorded in v would observe the
// same result on newView as it did on oldView. A false result means a value
// computed from oldView's data (as seen through those specific accesses)
// can no longer be trusted against newView.
func (v *CacheValidator) IsCacheValid(oldView, newView *cadcore.ProjectView) (bool, error) {
	if oldView.ID() != newView.ID() {
		return false, nil
	}
	for _, e := range v.events {
		ok, err := e.validAgainst(oldView, newView)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// WasAccessed reports whether any access was recorded at all.
func (v *CacheValidator) WasAccessed() bool {
	return len(v.events) > 0
}

// TrackedProjectView wraps a [cadcore.ProjectView], recording every read
// access made through it (and through the [TrackedDocumentView]s/
// [TrackedDataView]s it opens) onto an [AccessRecorder].
type TrackedProjectView struct {
	view *cadcore.ProjectView
	rec  *AccessRecorder
}

// NewTrackedProjectView wraps view, returning both the tracked wrapper and
// the recorder accumulating its accesses.
func NewTrackedProjectView(view *cadcore.ProjectView) (*TrackedProjectView, *AccessRecorder) {
	rec := newAccessRecorder()
	return &TrackedProjectView{view: view, rec: rec}, rec
}

// ID returns the identifier of the project this view was replayed from.
// Reading it is not tracked: it is a property of the view, not its data.
func (t *TrackedProjectView) ID() cadcore.ProjectID { return t.view.ID() }

// OpenDocument opens a tracked handle onto the given document.
func (t *TrackedProjectView) OpenDocument(id cadcore.DocumentId) (TrackedDocumentView, error) {
	t.rec.track(openDocument{id: id})
	doc, err := t.view.OpenDocument(id)
	if err != nil {
		return TrackedDocumentView{}, err
	}
	return TrackedDocumentView{parent: t.view, view: doc, rec: t.rec}, nil
}

// CreateDocument stages a document creation, exactly like
// [cadcore.ProjectView.CreateDocument]. Planning a change is not a read
// access and is not tracked.
func (t *TrackedProjectView) CreateDocument(cb *cadcore.ChangeBuilder, path cadcore.Path) cadcore.PlannedDocument {
	return t.view.CreateDocument(cb, path)
}

// OpenDataByID opens a tracked, typed handle onto the given data section.
func OpenDataByID[M any](t *TrackedProjectView, id cadcore.DataId) (TrackedDataView[M], error) {
	t.rec.track(openDataByID{id: id})
	d, err := cadcore.OpenDataByID[M](t.view, id)
	if err != nil {
		return TrackedDataView[M]{}, err
	}
	return TrackedDataView[M]{parent: t.view, view: d, rec: t.rec}, nil
}

// OpenDataByType opens tracked, typed handles onto every data section whose
// module produces payload type M.
func OpenDataByType[M any](t *TrackedProjectView, module cadcore.ModuleId) []TrackedDataView[M] {
	t.rec.track(openDataByType{module: module})
	all := cadcore.OpenDataByType[M](t.view)
	out := make([]TrackedDataView[M], len(all))
	for i, d := range all {
		out[i] = TrackedDataView[M]{parent: t.view, view: d, rec: t.rec}
	}
	return out
}

// CreateData stages a data-section creation, exactly like
// [cadcore.CreateData]. Planning a change is not tracked.
func CreateData[M any](t *TrackedProjectView, cb *cadcore.ChangeBuilder, module cadcore.ModuleId, owner *cadcore.DocumentId) cadcore.PlannedData[M] {
	return cadcore.CreateData[M](t.view, cb, module, owner)
}

// TrackedDocumentView wraps a [cadcore.DocumentView], recording reads made
// through it onto the same [AccessRecorder] as the [TrackedProjectView] that
// opened it.
type TrackedDocumentView struct {
	parent *cadcore.ProjectView
	view   cadcore.DocumentView
	rec    *AccessRecorder
}

// ID returns the document's identifier.
func (t TrackedDocumentView) ID() cadcore.DocumentId { return t.view.ID() }

// Path returns the document's path. Not tracked: reading the identity of an
// already-opened document is not a further data access.
func (t TrackedDocumentView) Path() cadcore.Path { return t.view.Path() }

// OpenDocumentDataByID opens a tracked handle onto a data section owned by this
// document, scoped as an [accessEvent] to (document, data) rather than just
// data, since the access is through this document specifically.
func OpenDocumentDataByID[M any](t TrackedDocumentView, id cadcore.DataId) (TrackedDataView[M], error) {
	t.rec.track(openDocumentDataByID{document: t.view.ID(), data: id})
	d, err := cadcore.OpenDataByID[M](t.parent, id)
	if err != nil {
		return TrackedDataView[M]{}, err
	}
	return TrackedDataView[M]{parent: t.parent, view: d, rec: t.rec}, nil
}

// OpenDocumentDataByType opens tracked handles onto this document's data
// sections of module type M.
func OpenDocumentDataByType[M any](t TrackedDocumentView, module cadcore.ModuleId) ([]TrackedDataView[M], error) {
	t.rec.track(openDocumentDataByType{document: t.view.ID(), module: module})
	owned, err := t.parent.DocumentData(t.view.ID())
	if err != nil {
		return nil, err
	}
	var out []TrackedDataView[M]
	for _, id := range owned {
		if mod, err := t.parent.DataModule(id); err != nil || mod != module {
			continue
		}
		d, err := cadcore.OpenDataByID[M](t.parent, id)
		if err != nil {
			continue
		}
		out = append(out, TrackedDataView[M]{parent: t.parent, view: d, rec: t.rec})
	}
	return out, nil
}

// CreateDocumentData stages a data-section creation owned by this document.
func CreateDocumentData[M any](t TrackedDocumentView, cb *cadcore.ChangeBuilder, module cadcore.ModuleId) cadcore.PlannedData[M] {
	id := t.view.ID()
	return cadcore.CreateData[M](t.parent, cb, module, &id)
}

// Delete stages this document's deletion.
func (t TrackedDocumentView) Delete(cb *cadcore.ChangeBuilder) { t.view.Delete(cb) }

// TrackedDataView wraps a [cadcore.DataView], recording reads made through
// it onto the same [AccessRecorder] as the [TrackedProjectView] that opened
// it, one event per section flavor actually read.
type TrackedDataView[M any] struct {
	parent *cadcore.ProjectView
	view   cadcore.DataView[M]
	rec    *AccessRecorder
}

// ID returns the data section's identifier.
func (t TrackedDataView[M]) ID() cadcore.DataId { return t.view.ID() }

// Persistent accesses the section's shared, persisted, undoable payload.
func (t TrackedDataView[M]) Persistent() M {
	t.rec.track(accessPersistent{id: t.view.ID()})
	return t.view.Persistent()
}

// PersistentUser accesses the section's per-user persisted payload for u.
func (t TrackedDataView[M]) PersistentUser(u cadcore.UserId) (any, error) {
	t.rec.track(accessPersistentUser{id: t.view.ID(), user: u})
	return t.view.PersistentUser(u)
}

// Shared accesses the section's shared, non-persisted, non-undoable payload.
func (t TrackedDataView[M]) Shared() any {
	t.rec.track(accessShared{id: t.view.ID()})
	return t.view.Shared()
}

// Session accesses the section's per-user, per-session payload for u.
func (t TrackedDataView[M]) Session(u cadcore.UserId) (any, error) {
	t.rec.track(accessSession{id: t.view.ID(), user: u})
	return t.view.Session(u)
}

// ApplyPersistent stages a transaction against this section. Not tracked:
// planning a change is not a read access.
func (t TrackedDataView[M]) ApplyPersistent(cb *cadcore.ChangeBuilder, args any) {
	t.view.ApplyPersistent(cb, args)
}

// ApplyPersistentUser stages a user-scoped transaction against this section.
func (t TrackedDataView[M]) ApplyPersistentUser(cb *cadcore.ChangeBuilder, u cadcore.UserId, args any) {
	t.view.ApplyPersistentUser(cb, u, args)
}

// Move stages reassigning this section's owning document.
func (t TrackedDataView[M]) Move(cb *cadcore.ChangeBuilder, newOwner *cadcore.DocumentId) {
	t.view.Move(cb, newOwner)
}

// Delete stages this section's deletion.
func (t TrackedDataView[M]) Delete(cb *cadcore.ChangeBuilder) { t.view.Delete(cb) }
