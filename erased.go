package cadcore

// erasedData holds the four data-section payloads of a single [DataId],
// each an opaque value whose concrete Go type is determined by the module
// identified by Module — directly grounded on original_source's DynT-shaped
// wrapper (module_data.rs: "a ModuleUuid tag plus a Box<dyn Trait>
// payload"), but as a single struct carrying all four flavors together
// (matching module_data.rs's own Data<M>{ persistent, persistent_user,
// session, shared } grouping) rather than four separately-erased container
// types.
type erasedData struct {
	Module ModuleId

	Persistent     any
	PersistentUser map[UserId]any
	Shared         any
	Session        map[UserId]any
}

func newErasedData(reg *Registry, module ModuleId) (erasedData, error) {
	persistent, err := reg.newDefaultValue(module, SectionPersistent)
	if err != nil {
		return erasedData{}, err
	}
	shared, err := reg.newDefaultValue(module, SectionShared)
	if err != nil {
		return erasedData{}, err
	}
	return erasedData{
		Module:         module,
		Persistent:     persistent,
		PersistentUser: make(map[UserId]any),
		Shared:         shared,
		Session:        make(map[UserId]any),
	}, nil
}

func (d erasedData) clone(reg *Registry) erasedData {
	e, _ := reg.lookup(d.Module)

	cloned := erasedData{
		Module:         d.Module,
		Persistent:     e.section(SectionPersistent).Clone(d.Persistent),
		Shared:         e.section(SectionShared).Clone(d.Shared),
		PersistentUser: make(map[UserId]any, len(d.PersistentUser)),
		Session:        make(map[UserId]any, len(d.Session)),
	}
	userClone := e.section(SectionPersistentUser).Clone
	for u, v := range d.PersistentUser {
		cloned.PersistentUser[u] = userClone(v)
	}
	sessionClone := e.section(SectionSession).Clone
	for u, v := range d.Session {
		cloned.Session[u] = sessionClone(v)
	}
	return cloned
}

// perUser returns the value for u, constructing a default-valued entry on
// first access (a user's per-user/session state lazily defaults, mirroring
// how a brand new document has no history for a user who never touched it).
func (d *erasedData) perUser(reg *Registry, section Section, u UserId) (any, error) {
	var m map[UserId]any
	switch section {
	case SectionPersistentUser:
		m = d.PersistentUser
	case SectionSession:
		m = d.Session
	default:
		panic("cadcore: perUser called with a non-per-user section")
	}
	if v, ok := m[u]; ok {
		return v, nil
	}
	v, err := reg.newDefaultValue(d.Module, section)
	if err != nil {
		return nil, err
	}
	m[u] = v
	return v, nil
}
