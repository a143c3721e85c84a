package cadcore

// Change is one planned mutation to a project, staged via a [ChangeBuilder]
// and, once applied, grouped into a [LogEntry] of kind Changes. The set of
// variants mirrors spec.md §4.3 exactly.
type Change interface {
	isChange()
}

// CreateDocument plans the creation of a new, empty document at path.
type CreateDocument struct {
	ID   DocumentId
	Path Path
}

func (CreateDocument) isChange() {}

// DeleteDocument plans the deletion of a document and (logically) orphans
// its data sections — the data sections themselves are not deleted, per
// spec.md §3 ("a data section may also be an orphan").
type DeleteDocument struct {
	ID DocumentId
}

func (DeleteDocument) isChange() {}

// RenameDocument plans moving a document to a new path.
type RenameDocument struct {
	ID      DocumentId
	NewPath Path
}

func (RenameDocument) isChange() {}

// CreateData plans the creation of a new data section of the given module,
// optionally owned by a document.
type CreateData struct {
	Module ModuleId
	ID     DataId
	Owner  *DocumentId
}

func (CreateData) isChange() {}

// DeleteData plans the deletion of a data section.
type DeleteData struct {
	ID DataId
}

func (DeleteData) isChange() {}

// MoveData plans reassigning a data section's owning document (nil for
// orphan).
type MoveData struct {
	ID       DataId
	NewOwner *DocumentId
}

func (MoveData) isChange() {}

// Transaction plans applying a shared, persistent transaction to a data
// section.
type Transaction struct {
	ID      DataId
	Payload any // the module's Args type for SectionPersistent
}

func (Transaction) isChange() {}

// UserTransaction plans applying a per-user persistent transaction to a
// data section, scoped to User.
type UserTransaction struct {
	ID      DataId
	User    UserId
	Payload any // the module's Args type for SectionPersistentUser
}

func (UserTransaction) isChange() {}

// LogEntry is one entry of a project's log — the single source of truth a
// [ProjectView] is replayed from. The set of variants mirrors spec.md §4.3.
type LogEntry interface {
	isLogEntry()
}

// ChangesEntry groups a set of Changes applied atomically, tagged with the
// session that authored them.
type ChangesEntry struct {
	Session SessionId
	Changes []Change
}

func (ChangesEntry) isLogEntry() {}

// UndoEntry cancels the most recent not-yet-cancelled ChangesEntry
// authored by Session, along with any later, interfering entries authored
// by other sessions (see spec.md §9 and [Project.Undo]).
type UndoEntry struct {
	Session SessionId
}

func (UndoEntry) isLogEntry() {}

// RedoEntry restores the most recently undone ChangesEntry for Session.
type RedoEntry struct {
	Session SessionId
}

func (RedoEntry) isLogEntry() {}

// NewSessionEntry associates Session with User for the remainder of the
// log. A session must be registered before any ChangesEntry referencing it
// is replayed.
type NewSessionEntry struct {
	User    UserId
	Session SessionId
}

func (NewSessionEntry) isLogEntry() {}
