package cadcore

import (
	"fmt"
	"reflect"
	"sync"
)

// UnknownModuleError is returned when a [ModuleId] referenced by the log (or
// by a deserialized container) has no corresponding registration in the
// [Registry] used to replay/deserialize.
type UnknownModuleError struct {
	ModuleId ModuleId
}

func (e *UnknownModuleError) Error() string {
	return fmt.Sprintf("cadcore: unknown module %s", e.ModuleId)
}

// entry is the vtable-like record the registry keeps per module, directly
// grounded on original_source's ModuleRegEntry (module_data.rs): a set of
// function pointers rather than a type-class, since Go has neither
// associated types nor the declarative macro that generated that struct's
// Rust equivalent.
type entry struct {
	descriptor ModuleDescriptor
}

func (e entry) section(s Section) SectionDescriptor {
	switch s {
	case SectionPersistent:
		return e.descriptor.Persistent
	case SectionPersistentUser:
		return e.descriptor.PersistentUser
	case SectionShared:
		return e.descriptor.Shared
	case SectionSession:
		return e.descriptor.Session
	default:
		panic("cadcore: invalid Section")
	}
}

func (e entry) sectionType(s Section) reflect.Type {
	switch s {
	case SectionPersistent:
		return e.descriptor.PersistentType
	case SectionPersistentUser:
		return e.descriptor.PersistentUserType
	case SectionShared:
		return e.descriptor.SharedType
	case SectionSession:
		return e.descriptor.SessionType
	default:
		panic("cadcore: invalid Section")
	}
}

// Registry maps a [ModuleId] to its registered [ModuleDescriptor]. A
// Registry must be fully populated before it is used to replay or
// deserialize a [Project]; registration itself is not expected to happen
// concurrently with lookups, but the map is still guarded by a mutex since
// long-lived hosts may register modules lazily (e.g. on plugin load).
type Registry struct {
	mu      sync.RWMutex
	entries map[ModuleId]entry
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[ModuleId]entry)}
}

// Register adds a module to the registry. Duplicate registration of the
// same ModuleId fails fast with a panic: per spec.md §4.1, this is a
// programming bug (two modules claiming the same identity), not a
// recoverable runtime condition.
func (r *Registry) Register(d ModuleDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := d.Module.ModuleId()
	if _, exists := r.entries[id]; exists {
		panic(fmt.Sprintf("cadcore: duplicate registration of module %s (%s)", id, d.Module.HumanName()))
	}
	e := entry{descriptor: d}
	for _, s := range []Section{SectionPersistent, SectionPersistentUser, SectionShared, SectionSession} {
		want, newValue := e.sectionType(s), e.section(s).New
		if want == nil || newValue == nil {
			continue
		}
		if got := reflect.TypeOf(newValue()); got != want {
			panic(fmt.Sprintf("cadcore: module %s (%s): %s section New returns %v, declared %v", id, d.Module.HumanName(), s, got, want))
		}
	}
	r.entries[id] = e
}

func (r *Registry) lookup(id ModuleId) (entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return entry{}, &UnknownModuleError{ModuleId: id}
	}
	return e, nil
}

// HumanName returns the registered module's human-readable name, or "" if
// id is not registered.
func (r *Registry) HumanName(id ModuleId) string {
	e, err := r.lookup(id)
	if err != nil {
		return ""
	}
	return e.descriptor.Module.HumanName()
}

// newDefaultValue constructs the default-valued payload for (id, section),
// used when replaying CreateData.
func (r *Registry) newDefaultValue(id ModuleId, section Section) (any, error) {
	e, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	return e.section(section).New(), nil
}

// applyTransaction dispatches a transaction application through the
// registry's vtable for (id, section). Errors returned here are the
// module's own transaction error, to be recorded as a failed transaction by
// the caller (replay does not abort — spec.md §4.3/§7).
func (r *Registry) applyTransaction(id ModuleId, section Section, payload, args any) (output any, err error) {
	e, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	apply := e.section(section).Apply
	if apply == nil {
		return nil, fmt.Errorf("cadcore: module %s has no transaction for section %s", id, section)
	}
	return apply(payload, args)
}

// sectionEqual is the per-section equality probe used by
// cadcore/tracked.CacheValidator.
func (r *Registry) sectionEqual(id ModuleId, section Section, a, b any) (bool, error) {
	e, err := r.lookup(id)
	if err != nil {
		return false, err
	}
	return e.section(section).Equal(a, b), nil
}
