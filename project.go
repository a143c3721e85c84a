package cadcore

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"sync"
	"time"
)

func init() {
	gob.Register(CreateDocument{})
	gob.Register(DeleteDocument{})
	gob.Register(RenameDocument{})
	gob.Register(CreateData{})
	gob.Register(DeleteData{})
	gob.Register(MoveData{})
	gob.Register(Transaction{})
	gob.Register(UserTransaction{})
	gob.Register(ChangesEntry{})
	gob.Register(UndoEntry{})
	gob.Register(RedoEntry{})
	gob.Register(NewSessionEntry{})
}

type branch struct {
	Name string
	Head int
}

type checkpoint struct {
	Name     string
	Position int
}

// Project is the append-only, linear log of [LogEntry] values that is the
// single source of truth for a project's contents — everything else
// ([ProjectView] in particular) is derived from it by replay.
//
// A Project does not itself hold a [Registry]: the set of live modules is
// supplied by the caller to [Project.View] and [Project.ApplyChanges], since
// the same log may outlive a given process's module set (e.g. across a
// version upgrade that adds a module).
type Project struct {
	mu sync.RWMutex

	id      ProjectID
	log     []LogEntry
	version uint64

	sessions    map[SessionId]UserId
	branches    map[BranchId]branch
	checkpoints map[CheckpointId]checkpoint
}

// NewProject returns a new, empty Project with a freshly minted identity and
// a single branch (MainBranchId) pointing at the start of the log.
func NewProject() *Project {
	return &Project{
		id:          NewProjectID(),
		sessions:    make(map[SessionId]UserId),
		branches:    map[BranchId]branch{MainBranchId(): {Name: "main", Head: 0}},
		checkpoints: make(map[CheckpointId]checkpoint),
	}
}

// ID returns the project's identity.
func (p *Project) ID() ProjectID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.id
}

// Version returns the number of entries appended to the log so far. Two
// Projects replayed from logs of equal Version are not guaranteed to be
// equal (branches/undo may diverge), but Version strictly increases with
// every successful ApplyChanges/Undo/Redo/RegisterSession call that appends
// an entry (an ApplyChanges with no staged changes appends nothing and
// leaves Version unchanged), making it a
// cheap dirty-check for caches that only need to know "has anything
// happened since I last looked".
func (p *Project) Version() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.version
}

// RegisterSession associates a new SessionId with user and records it in the
// log. A session must be registered before it can be passed to
// [Project.ApplyChanges], [Project.Undo], or [Project.Redo].
func (p *Project) RegisterSession(user UserId) SessionId {
	p.mu.Lock()
	defer p.mu.Unlock()

	session := NewSessionId()
	p.sessions[session] = user
	p.log = append(p.log, NewSessionEntry{User: user, Session: session})
	p.version++
	return session
}

// ApplyChanges validates and, if valid, commits the changes staged in cb as
// a single [ChangesEntry] authored by session.
//
// Validation replays the project's current log (honoring undo/redo) plus
// the staged changes into a scratch [ProjectView] using registry; any
// structural error (unknown document/data, duplicate path, unknown module)
// aborts without mutating the log. A transaction failure
// ([TransactionError]) does not abort validation — per spec.md §7 a failed
// transaction is recorded by leaving its target section unchanged, not
// treated as a commit failure — so staged transactions that would fail are
// still committed as-is and will fail identically (and harmlessly) on every
// future replay.
func (p *Project) ApplyChanges(ctx context.Context, registry *Registry, session SessionId, cb *ChangeBuilder) (err error) {
	start := time.Now()
	defer func() { measureApply(ctx, p.id, err == nil, time.Since(start)) }()

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.sessions[session]; !ok {
		err = &UnknownSessionError{Session: session}
		return err
	}

	changes := cb.Changes()
	if len(changes) == 0 {
		return nil
	}

	if _, verr := replayInto(p.id, p.log, registry, changes); verr != nil {
		err = verr
		return err
	}

	p.log = append(p.log, ChangesEntry{Session: session, Changes: changes})
	p.version++
	return nil
}

// View replays the project's entire log against registry and returns the
// resulting [ProjectView].
func (p *Project) View(ctx context.Context, registry *Registry) (*ProjectView, error) {
	p.mu.RLock()
	logCopy := make([]LogEntry, len(p.log))
	copy(logCopy, p.log)
	id := p.id
	p.mu.RUnlock()

	start := time.Now()
	v, err := replayInto(id, logCopy, registry, nil)
	if err != nil {
		return nil, err
	}
	measureReplay(ctx, id, time.Since(start))
	return v, nil
}

// Undo cancels the most recent not-yet-cancelled ChangesEntry authored by
// session, along with any later entry (by any session) that touches an
// overlapping document or data section — see computeActive for the exact
// cascading rule.
func (p *Project) Undo(session SessionId) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.sessions[session]; !ok {
		return &UnknownSessionError{Session: session}
	}

	active, _, err := computeActive(p.log)
	if err != nil {
		return err
	}
	found := false
	for i := len(p.log) - 1; i >= 0; i-- {
		if ce, ok := p.log[i].(ChangesEntry); ok && ce.Session == session && active[i] {
			found = true
			break
		}
	}
	if !found {
		return &NothingToUndoError{Session: session}
	}

	p.log = append(p.log, UndoEntry{Session: session})
	p.version++
	return nil
}

// Redo restores the most recently undone ChangesEntry group for session.
func (p *Project) Redo(session SessionId) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.sessions[session]; !ok {
		return &UnknownSessionError{Session: session}
	}

	_, redoDepth, err := computeActive(p.log)
	if err != nil {
		return err
	}
	if redoDepth[session] == 0 {
		return &NothingToRedoError{Session: session}
	}

	p.log = append(p.log, RedoEntry{Session: session})
	p.version++
	return nil
}

// CreateCheckpoint tags the project's current log position with name and
// returns its identifier. Unlike a branch, a checkpoint never moves.
func (p *Project) CreateCheckpoint(name string) CheckpointId {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := NewCheckpointId()
	p.checkpoints[id] = checkpoint{Name: name, Position: len(p.log)}
	return id
}

// Checkpoints returns the identifiers of every checkpoint tagged so far.
func (p *Project) Checkpoints() []CheckpointId {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]CheckpointId, 0, len(p.checkpoints))
	for id := range p.checkpoints {
		out = append(out, id)
	}
	return out
}

// Branches returns the identifiers of every branch, MainBranchId included.
func (p *Project) Branches() []BranchId {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]BranchId, 0, len(p.branches))
	for id := range p.branches {
		out = append(out, id)
	}
	return out
}

// MarshalBinary gob-encodes the project's log. Module payload types
// (CreateData's implicit default and every Transaction/UserTransaction
// Payload) must have been registered with [encoding/gob.Register] by the
// caller's modules before this is called.
func (p *Project) MarshalBinary() ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(p.id); err != nil {
		return nil, err
	}
	if err := enc.Encode(p.log); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a log previously produced by MarshalBinary. As
// with MarshalBinary, every module payload type referenced by the log must
// already be registered with encoding/gob.
func (p *Project) UnmarshalBinary(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&p.id); err != nil {
		return err
	}
	var log []LogEntry
	if err := dec.Decode(&log); err != nil {
		return err
	}
	p.log = log
	p.version = uint64(len(log))
	p.sessions = make(map[SessionId]UserId)
	for _, e := range log {
		if ns, ok := e.(NewSessionEntry); ok {
			p.sessions[ns.Session] = ns.User
		}
	}
	if p.branches == nil {
		p.branches = map[BranchId]branch{MainBranchId(): {Name: "main", Head: len(log)}}
	}
	if p.checkpoints == nil {
		p.checkpoints = make(map[CheckpointId]checkpoint)
	}
	return nil
}

// replayInto replays log (plus, if non-nil, a trailing set of not-yet-
// committed changes authored by no particular entry) into a fresh
// ProjectView. Passing extra lets ApplyChanges validate staged changes
// without first appending them to the log.
func replayInto(id ProjectID, log []LogEntry, registry *Registry, extra []Change) (*ProjectView, error) {
	active, _, err := computeActive(log)
	if err != nil {
		return nil, err
	}

	v := &ProjectView{
		id:        id,
		registry:  registry,
		documents: make(map[DocumentId]document),
		data:      make(map[DataId]erasedData),
		dataOwner: make(map[DataId]*DocumentId),
	}

	for i, e := range log {
		ce, ok := e.(ChangesEntry)
		if !ok || !active[i] {
			continue
		}
		if err := applyChanges(v, ce.Changes); err != nil {
			return nil, err
		}
	}
	if err := applyChanges(v, extra); err != nil {
		return nil, err
	}
	return v, nil
}

func applyChanges(v *ProjectView, changes []Change) error {
	for _, c := range changes {
		if err := applyChange(v, c); err != nil {
			var txErr *TransactionError
			if errors.As(err, &txErr) {
				// Recorded by leaving the section unchanged; not fatal. spec.md §7.
				continue
			}
			return err
		}
	}
	return nil
}

// touched is the set of documents and data sections a ChangesEntry's
// changes reference, used by computeActive to decide whether two entries
// interfere with each other.
type touched struct {
	docs  map[DocumentId]bool
	datas map[DataId]bool
}

func touchedBy(changes []Change) touched {
	t := touched{docs: make(map[DocumentId]bool), datas: make(map[DataId]bool)}
	for _, c := range changes {
		switch c := c.(type) {
		case CreateDocument:
			t.docs[c.ID] = true
		case DeleteDocument:
			t.docs[c.ID] = true
		case RenameDocument:
			t.docs[c.ID] = true
		case CreateData:
			t.datas[c.ID] = true
			if c.Owner != nil {
				t.docs[*c.Owner] = true
			}
		case DeleteData:
			t.datas[c.ID] = true
		case MoveData:
			t.datas[c.ID] = true
			if c.NewOwner != nil {
				t.docs[*c.NewOwner] = true
			}
		case Transaction:
			t.datas[c.ID] = true
		case UserTransaction:
			t.datas[c.ID] = true
		}
	}
	return t
}

func (a touched) interferes(b touched) bool {
	for id := range a.docs {
		if b.docs[id] {
			return true
		}
	}
	for id := range a.datas {
		if b.datas[id] {
			return true
		}
	}
	return false
}

// computeActive recomputes, from scratch, which ChangesEntry indices of log
// are currently live — i.e. not cancelled by a later UndoEntry and not
// re-cancelled since their last RedoEntry — along with each session's
// remaining redo depth.
//
// Undoing a session's entry also cancels every later entry (by any session)
// that touches an overlapping document or data section, since replaying
// the log without the undone entry but with a later, dependent one would
// not reproduce what that later entry's author actually saw (spec.md §9).
// Redoing restores the whole cascaded group together, in the order it was
// cancelled.
func computeActive(log []LogEntry) (active []bool, redoDepth map[SessionId]int, err error) {
	active = make([]bool, len(log))
	touchedAt := make([]touched, len(log))
	redoStacks := make(map[SessionId][][]int)

	for i, e := range log {
		switch e := e.(type) {
		case ChangesEntry:
			active[i] = true
			touchedAt[i] = touchedBy(e.Changes)
		case UndoEntry:
			target := -1
			for j := i - 1; j >= 0; j-- {
				if ce, ok := log[j].(ChangesEntry); ok && ce.Session == e.Session && active[j] {
					target = j
					break
				}
			}
			if target == -1 {
				return nil, nil, &NothingToUndoError{Session: e.Session}
			}
			cascade := []int{target}
			active[target] = false
			for j := target + 1; j < i; j++ {
				if _, ok := log[j].(ChangesEntry); !ok || !active[j] {
					continue
				}
				if touchedAt[j].interferes(touchedAt[target]) {
					active[j] = false
					cascade = append(cascade, j)
				}
			}
			redoStacks[e.Session] = append(redoStacks[e.Session], cascade)
		case RedoEntry:
			stack := redoStacks[e.Session]
			if len(stack) == 0 {
				return nil, nil, &NothingToRedoError{Session: e.Session}
			}
			cascade := stack[len(stack)-1]
			redoStacks[e.Session] = stack[:len(stack)-1]
			for _, j := range cascade {
				active[j] = true
			}
		}
	}

	redoDepth = make(map[SessionId]int, len(redoStacks))
	for session, stack := range redoStacks {
		redoDepth[session] = len(stack)
	}
	return active, redoDepth, nil
}

func applyChange(v *ProjectView, c Change) error {
	switch c := c.(type) {
	case CreateDocument:
		if hasPathConflict(v, c.ID, c.Path) {
			return &DuplicatePathError{Path: c.Path}
		}
		v.documents[c.ID] = document{Path: c.Path, Metadata: make(map[string]string)}

	case DeleteDocument:
		doc, ok := v.documents[c.ID]
		if !ok {
			return &UnknownDocumentError{ID: c.ID}
		}
		for _, id := range doc.Data {
			delete(v.dataOwner, id)
		}
		delete(v.documents, c.ID)

	case RenameDocument:
		doc, ok := v.documents[c.ID]
		if !ok {
			return &UnknownDocumentError{ID: c.ID}
		}
		if hasPathConflict(v, c.ID, c.NewPath) {
			return &DuplicatePathError{Path: c.NewPath}
		}
		doc.Path = c.NewPath
		v.documents[c.ID] = doc

	case CreateData:
		data, err := newErasedData(v.registry, c.Module)
		if err != nil {
			return err
		}
		v.data[c.ID] = data
		if c.Owner != nil {
			doc, ok := v.documents[*c.Owner]
			if !ok {
				return &UnknownDocumentError{ID: *c.Owner}
			}
			doc.Data = append(doc.Data, c.ID)
			v.documents[*c.Owner] = doc
			owner := *c.Owner
			v.dataOwner[c.ID] = &owner
		}

	case DeleteData:
		if _, ok := v.data[c.ID]; !ok {
			return &UnknownDataError{ID: c.ID}
		}
		if owner := v.dataOwner[c.ID]; owner != nil {
			doc := v.documents[*owner]
			doc.Data = removeDataId(doc.Data, c.ID)
			v.documents[*owner] = doc
		}
		delete(v.data, c.ID)
		delete(v.dataOwner, c.ID)

	case MoveData:
		if _, ok := v.data[c.ID]; !ok {
			return &UnknownDataError{ID: c.ID}
		}
		if owner := v.dataOwner[c.ID]; owner != nil {
			doc := v.documents[*owner]
			doc.Data = removeDataId(doc.Data, c.ID)
			v.documents[*owner] = doc
		}
		if c.NewOwner != nil {
			doc, ok := v.documents[*c.NewOwner]
			if !ok {
				return &UnknownDocumentError{ID: *c.NewOwner}
			}
			doc.Data = append(doc.Data, c.ID)
			v.documents[*c.NewOwner] = doc
			owner := *c.NewOwner
			v.dataOwner[c.ID] = &owner
		} else {
			delete(v.dataOwner, c.ID)
		}

	case Transaction:
		d, ok := v.data[c.ID]
		if !ok {
			return &UnknownDataError{ID: c.ID}
		}
		out, err := v.registry.applyTransaction(d.Module, SectionPersistent, d.Persistent, c.Payload)
		if err != nil {
			return &TransactionError{ID: c.ID, Module: d.Module, Err: err}
		}
		d.Persistent = out
		v.data[c.ID] = d

	case UserTransaction:
		d, ok := v.data[c.ID]
		if !ok {
			return &UnknownDataError{ID: c.ID}
		}
		cur, err := d.perUser(v.registry, SectionPersistentUser, c.User)
		if err != nil {
			return err
		}
		out, err := v.registry.applyTransaction(d.Module, SectionPersistentUser, cur, c.Payload)
		if err != nil {
			return &TransactionError{ID: c.ID, Module: d.Module, Err: err}
		}
		d.PersistentUser[c.User] = out
		v.data[c.ID] = d

	default:
		return fmt.Errorf("cadcore: unhandled change type %T", c)
	}
	return nil
}

func hasPathConflict(v *ProjectView, excluding DocumentId, path Path) bool {
	for id, doc := range v.documents {
		if id == excluding {
			continue
		}
		if doc.Path.String() == path.String() {
			return true
		}
	}
	return false
}

func removeDataId(ids []DataId, target DataId) []DataId {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}
