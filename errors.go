package cadcore

import (
	"fmt"
	"reflect"
)

// UnknownDocumentError is returned when a [DocumentId] has no corresponding
// document in a [ProjectView].
type UnknownDocumentError struct {
	ID DocumentId
}

func (e *UnknownDocumentError) Error() string {
	return fmt.Sprintf("cadcore: unknown document %s", e.ID)
}

// UnknownDataError is returned when a [DataId] has no corresponding data
// section in a [ProjectView].
type UnknownDataError struct {
	ID DataId
}

func (e *UnknownDataError) Error() string {
	return fmt.Sprintf("cadcore: unknown data %s", e.ID)
}

// UnknownSessionError is returned when a [SessionId] referenced by a
// ChangesEntry, UndoEntry, or RedoEntry was never registered via a
// NewSessionEntry earlier in the log.
type UnknownSessionError struct {
	Session SessionId
}

func (e *UnknownSessionError) Error() string {
	return fmt.Sprintf("cadcore: unknown session %s", e.Session)
}

// DuplicatePathError is returned when planning a CreateDocument or
// RenameDocument whose destination path is already occupied by a sibling.
type DuplicatePathError struct {
	Path Path
}

func (e *DuplicatePathError) Error() string {
	return fmt.Sprintf("cadcore: path %s already exists", e.Path)
}

// DataTypeMismatchError is returned by a typed open (e.g. OpenDataByID[M])
// when the stored data's module does not match the requested type M.
type DataTypeMismatchError struct {
	ID           DataId
	Module       ModuleId
	ExpectedType reflect.Type
}

func (e *DataTypeMismatchError) Error() string {
	return fmt.Sprintf("cadcore: data %s (module %s) is not a %s", e.ID, e.Module, e.ExpectedType)
}

// NothingToUndoError is returned by [Project.Undo] when a session has no
// applied, not-yet-undone ChangesEntry to cancel.
type NothingToUndoError struct {
	Session SessionId
}

func (e *NothingToUndoError) Error() string {
	return fmt.Sprintf("cadcore: session %s has nothing to undo", e.Session)
}

// NothingToRedoError is returned by [Project.Redo] when a session has no
// undone ChangesEntry to restore.
type NothingToRedoError struct {
	Session SessionId
}

func (e *NothingToRedoError) Error() string {
	return fmt.Sprintf("cadcore: session %s has nothing to redo", e.Session)
}

// TransactionError wraps a module's own transaction failure (returned by a
// SectionDescriptor.Apply), annotated with the data section and module it
// was applied to. Replay does not abort on a TransactionError: it is
// recorded and the affected section is left unchanged, per spec.md §7.
type TransactionError struct {
	ID     DataId
	Module ModuleId
	Err    error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("cadcore: transaction on %s (module %s) failed: %v", e.ID, e.Module, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }
