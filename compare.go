package cadcore

// HasData reports whether id names a data section in v.
func (v *ProjectView) HasData(id DataId) bool {
	_, ok := v.data[id]
	return ok
}

// HasDocument reports whether id names a document in v.
func (v *ProjectView) HasDocument(id DocumentId) bool {
	_, ok := v.documents[id]
	return ok
}

// SectionEqual reports whether the Persistent or Shared section of data
// section id is structurally equal between v and other, via the registered
// module's Equal probe. It is an error to call this with SectionPersistentUser
// or SectionSession, which are scoped to a user (see [ProjectView.UserSectionEqual]).
//
// Exported for cadcore/tracked.CacheValidator, which runs outside this
// package and has no other way to reach the registry's per-module equality
// vtable.
func (v *ProjectView) SectionEqual(other *ProjectView, id DataId, section Section) (bool, error) {
	a, aok := v.data[id]
	b, bok := other.data[id]
	if !aok && !bok {
		return true, nil
	}
	if aok != bok {
		return false, nil
	}
	if a.Module != b.Module {
		return false, nil
	}
	switch section {
	case SectionPersistent:
		return v.registry.sectionEqual(a.Module, SectionPersistent, a.Persistent, b.Persistent)
	case SectionShared:
		return v.registry.sectionEqual(a.Module, SectionShared, a.Shared, b.Shared)
	default:
		panic("cadcore: SectionEqual called with a per-user section")
	}
}

// UserSectionEqual reports whether the PersistentUser or Session section of
// data section id, as seen by user u, is structurally equal between v and
// other. Missing user state on either side is taken as the section's default
// value (matching [DataView.PersistentUser]/[DataView.Session]'s own
// lazy-default semantics), so this compares what a caller would actually
// observe from calling those accessors, not raw map presence.
func (v *ProjectView) UserSectionEqual(other *ProjectView, id DataId, section Section, u UserId) (bool, error) {
	a, aok := v.data[id]
	b, bok := other.data[id]
	if !aok && !bok {
		return true, nil
	}
	if aok != bok {
		return false, nil
	}
	if a.Module != b.Module {
		return false, nil
	}
	av, err := a.perUser(v.registry, section, u)
	if err != nil {
		return false, err
	}
	bv, err := b.perUser(other.registry, section, u)
	if err != nil {
		return false, err
	}
	return v.registry.sectionEqual(a.Module, section, av, bv)
}
