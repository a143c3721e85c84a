package cadcore

import "reflect"

// Section identifies one of the four data-section flavors a [Module]
// contributes, per spec.md §3's table.
type Section int

const (
	// SectionPersistent is shared across all users, persisted to disk, and
	// undoable.
	SectionPersistent Section = iota
	// SectionPersistentUser is private to one user, persisted to disk, and
	// undoable.
	SectionPersistentUser
	// SectionShared is shared across all users, not persisted, and not
	// undoable.
	SectionShared
	// SectionSession is private to one user's session, not persisted, and not
	// undoable.
	SectionSession
)

func (s Section) String() string {
	switch s {
	case SectionPersistent:
		return "Persistent"
	case SectionPersistentUser:
		return "PersistentUser"
	case SectionShared:
		return "Shared"
	case SectionSession:
		return "Session"
	default:
		return "Section(?)"
	}
}

// Module is the extension point of the project store: it declares the four
// data-section types a document of this module is made of, a human-readable
// name, and a stable identity.
//
// Go has neither Rust's associated types nor its declarative macros, so
// unlike the source this trait models, a Module here is a lightweight
// descriptor value, not itself the data: the section Go types are supplied
// as reflect.Type values and the behavior (construction, cloning, equality,
// transaction application) is supplied as closures when the module is
// registered — see [ModuleDescriptor] and [Registry.Register]. Section
// payloads are (de)serialized with encoding/gob, not through these closures.
type Module interface {
	// ModuleId returns the compile-time-constant identifier of this module.
	// Must be unique across every module ever registered in a process.
	ModuleId() ModuleId
	// HumanName returns a human-readable name for the module, suitable for
	// display in a document's properties or an error message.
	HumanName() string
}

// SectionDescriptor describes one data section flavor of a module: how to
// construct a default value, how to clone it, how to test two values for
// structural equality, and (for the two persistent flavors) how to apply a
// transaction.
//
// V is the section's opaque Go value type (e.g. a module's PersistentData
// struct); Args/Output/TxErr describe its transaction contract.
type SectionDescriptor struct {
	// New returns a freshly constructed, default-valued section payload.
	New func() any
	// Clone returns a deep copy of the given payload (must be of the type New
	// produces).
	Clone func(v any) any
	// Equal reports whether two payloads (of the type New produces) are
	// structurally equal. Used by [tracked.CacheValidator].
	Equal func(a, b any) bool
	// Apply applies a transaction to a mutable copy of the payload, returning
	// the transaction's output or an error. It must not mutate payload if it
	// returns an error (see spec.md §3 — "must not mutate on error").
	//
	// Apply may be nil for a section flavor that has no transaction; applying
	// a transaction to such a section fails with an error, which replay
	// treats like any failed transaction: the section is left unchanged.
	Apply func(payload any, args any) (output any, err error)
}

// ModuleDescriptor is what a module author hands to [Registry.Register]: the
// module's identity plus its four section descriptors.
type ModuleDescriptor struct {
	Module Module

	// PersistentType, PersistentUserType, SharedType and SessionType are the
	// concrete Go types produced by the matching section's New function.
	// Register checks each non-nil type against what New returns and panics
	// on a mismatch, rather than surfacing a panic deep inside a later type
	// assertion.
	PersistentType     reflect.Type
	PersistentUserType reflect.Type
	SharedType         reflect.Type
	SessionType        reflect.Type

	Persistent     SectionDescriptor
	PersistentUser SectionDescriptor
	Shared         SectionDescriptor
	Session        SectionDescriptor
}
