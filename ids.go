package cadcore

import (
	"fmt"

	"github.com/google/uuid"
)

// DocumentId uniquely identifies a document within a [Project].
type DocumentId struct{ u uuid.UUID }

// NewDocumentId returns a new, randomly generated DocumentId.
func NewDocumentId() DocumentId { return DocumentId{uuid.New()} }

func (id DocumentId) String() string { return fmt.Sprintf("DocumentId(%s)", id.u) }

// IsZero reports whether id is the zero-value identifier.
func (id DocumentId) IsZero() bool { return id.u == uuid.Nil }

func (id DocumentId) MarshalText() ([]byte, error) { return id.u.MarshalText() }

func (id *DocumentId) UnmarshalText(b []byte) error { return id.u.UnmarshalText(b) }

// DataId uniquely identifies a data section within a [Project].
type DataId struct{ u uuid.UUID }

// NewDataId returns a new, randomly generated DataId.
func NewDataId() DataId { return DataId{uuid.New()} }

func (id DataId) String() string { return fmt.Sprintf("DataId(%s)", id.u) }

func (id DataId) IsZero() bool { return id.u == uuid.Nil }

func (id DataId) MarshalText() ([]byte, error) { return id.u.MarshalText() }

func (id *DataId) UnmarshalText(b []byte) error { return id.u.UnmarshalText(b) }

// ModuleId uniquely identifies a registered [Module] implementation. Unlike
// the other identifiers, a ModuleId is a compile-time constant chosen by the
// module author, not minted at runtime.
type ModuleId struct{ u uuid.UUID }

// ParseModuleId parses a fixed, module-author-chosen UUID string into a
// ModuleId. Module authors should call this once into a package-level
// constant-like variable; see [Module.ModuleId].
func ParseModuleId(s string) ModuleId {
	u, err := uuid.Parse(s)
	if err != nil {
		panic(fmt.Sprintf("cadcore: invalid module id %q: %v", s, err))
	}
	return ModuleId{u}
}

func (id ModuleId) String() string { return fmt.Sprintf("ModuleId(%s)", id.u) }

func (id ModuleId) IsZero() bool { return id.u == uuid.Nil }

func (id ModuleId) MarshalText() ([]byte, error) { return id.u.MarshalText() }

func (id *ModuleId) UnmarshalText(b []byte) error { return id.u.UnmarshalText(b) }

// UserId identifies a user of a [Project]. [LocalUserId] returns the reserved
// all-zero identifier used when no networked user exists (e.g. a solely
// locally-edited project).
type UserId struct{ u uuid.UUID }

// NewUserId returns a new, randomly generated UserId.
func NewUserId() UserId { return UserId{uuid.New()} }

// LocalUserId returns the reserved identifier for local-only operations.
func LocalUserId() UserId { return UserId{uuid.Nil} }

func (id UserId) String() string { return fmt.Sprintf("UserId(%s)", id.u) }

func (id UserId) IsZero() bool { return id.u == uuid.Nil }

func (id UserId) MarshalText() ([]byte, error) { return id.u.MarshalText() }

func (id *UserId) UnmarshalText(b []byte) error { return id.u.UnmarshalText(b) }

// SessionId associates a run of project changes with their originating
// [UserId], via a NewSession log entry. Using a session layer indirection
// (rather than tagging every Change with a UserId directly) is what lets
// undo/redo be scoped to a single session: a user may have several
// concurrent sessions, each with independent undo history.
type SessionId struct{ u uuid.UUID }

// NewSessionId returns a new, randomly generated SessionId.
func NewSessionId() SessionId { return SessionId{uuid.New()} }

func (id SessionId) String() string { return fmt.Sprintf("SessionId(%s)", id.u) }

func (id SessionId) IsZero() bool { return id.u == uuid.Nil }

func (id SessionId) MarshalText() ([]byte, error) { return id.u.MarshalText() }

func (id *SessionId) UnmarshalText(b []byte) error { return id.u.UnmarshalText(b) }

// BranchId identifies a named, mutable pointer into a project's log
// (bookkeeping metadata, not replayed log content — see [Project.Branches]).
// [MainBranchId] identifies the branch implicitly created for every new
// project.
type BranchId struct{ u uuid.UUID }

// NewBranchId returns a new, randomly generated BranchId.
func NewBranchId() BranchId { return BranchId{uuid.New()} }

// MainBranchId returns the reserved identifier for a project's main branch.
func MainBranchId() BranchId { return BranchId{uuid.Nil} }

func (id BranchId) String() string { return fmt.Sprintf("BranchId(%s)", id.u) }

func (id BranchId) IsZero() bool { return id.u == uuid.Nil }

func (id BranchId) MarshalText() ([]byte, error) { return id.u.MarshalText() }

func (id *BranchId) UnmarshalText(b []byte) error { return id.u.UnmarshalText(b) }

// CheckpointId identifies a named, immutable reference to a project log
// position (a tag).
type CheckpointId struct{ u uuid.UUID }

// NewCheckpointId returns a new, randomly generated CheckpointId.
func NewCheckpointId() CheckpointId { return CheckpointId{uuid.New()} }

func (id CheckpointId) String() string { return fmt.Sprintf("CheckpointId(%s)", id.u) }

func (id CheckpointId) IsZero() bool { return id.u == uuid.Nil }

func (id CheckpointId) MarshalText() ([]byte, error) { return id.u.MarshalText() }

func (id *CheckpointId) UnmarshalText(b []byte) error { return id.u.UnmarshalText(b) }

// ProjectID identifies a project for its lifetime. Two ProjectViews compare
// equal in identity only if they share the same ProjectID; this is the
// coordinate a [tracked.CacheValidator] checks first.
type ProjectID struct{ u uuid.UUID }

// NewProjectID returns a new, randomly generated ProjectID.
func NewProjectID() ProjectID { return ProjectID{uuid.New()} }

func (id ProjectID) String() string { return fmt.Sprintf("ProjectID(%s)", id.u) }

func (id ProjectID) IsZero() bool { return id.u == uuid.Nil }

func (id ProjectID) MarshalText() ([]byte, error) { return id.u.MarshalText() }

func (id *ProjectID) UnmarshalText(b []byte) error { return id.u.UnmarshalText(b) }
