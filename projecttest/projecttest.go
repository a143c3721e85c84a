// Package projecttest provides a sequential conformance suite for anything
// that constructs a [cadcore.Project]: a fresh in-memory one, or one
// reconstructed from a durable log (e.g. via cadcore/graphstore plus
// [cadcore.Project.UnmarshalBinary]). Call [Run] from your own test:
//
//	func TestProject(t *testing.T) {
//		projecttest.Run(t, func() *cadcore.Project { return cadcore.NewProject() })
//	}
//
// Every case runs in strict order on the same project, because each case's
// snapshot depends on every step before it having already been applied.
package projecttest

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/cadcore-go/cadcore"
)

// Counter is the single section payload the suite's own test module
// registers: a plain integer its transaction adds a delta to.
type Counter struct{ Value int }

type counterDelta struct{ Delta int }

type testModule struct{}

var testModuleId = cadcore.ParseModuleId("aaaaaaaa-1111-1111-1111-aaaaaaaaaaaa")

func (testModule) ModuleId() cadcore.ModuleId { return testModuleId }
func (testModule) HumanName() string          { return "projecttest counter module" }

// Registry returns a fresh Registry with the suite's Counter module already
// registered. [Run] calls it to build the registry it replays against.
func Registry() *cadcore.Registry {
	r := cadcore.NewRegistry()
	r.Register(cadcore.ModuleDescriptor{
		Module:             testModule{},
		PersistentType:     reflect.TypeOf(Counter{}),
		PersistentUserType: reflect.TypeOf(Counter{}),
		SharedType:         reflect.TypeOf(Counter{}),
		SessionType:        reflect.TypeOf(Counter{}),
		Persistent: cadcore.SectionDescriptor{
			New:   func() any { return Counter{} },
			Clone: func(v any) any { return v },
			Equal: func(a, b any) bool { return a.(Counter) == b.(Counter) },
			Apply: func(payload, args any) (any, error) {
				return Counter{Value: payload.(Counter).Value + args.(counterDelta).Delta}, nil
			},
		},
		PersistentUser: cadcore.SectionDescriptor{
			New:   func() any { return Counter{} },
			Clone: func(v any) any { return v },
			Equal: func(a, b any) bool { return a.(Counter) == b.(Counter) },
		},
		Shared: cadcore.SectionDescriptor{
			New:   func() any { return Counter{} },
			Clone: func(v any) any { return v },
			Equal: func(a, b any) bool { return a.(Counter) == b.(Counter) },
		},
		Session: cadcore.SectionDescriptor{
			New:   func() any { return Counter{} },
			Clone: func(v any) any { return v },
			Equal: func(a, b any) bool { return a.(Counter) == b.(Counter) },
		},
	})
	return r
}

// docSnapshot is one expected document in the overall project snapshot.
type docSnapshot struct {
	path    string
	counter int
	// counter is the sum of the Counter values of the data sections the
	// document owns, so the order in which they are listed has no effect.
}

// snapshot is the entire expected state of the project after a step.
type snapshot struct {
	docs    map[string]docSnapshot // keyed by document path
	orphans int                    // number of orphaned counter data sections
}

type step struct {
	name     string
	location string
	apply    func(ctx context.Context, t *testing.T, h *harness)
	want     snapshot
}

// harness threads the project/registry/session/name->id maps a step needs
// without every step re-deriving them.
type harness struct {
	proj    *cadcore.Project
	reg     *cadcore.Registry
	session cadcore.SessionId
	docs    map[string]cadcore.DocumentId
	data    map[string]cadcore.DataId
}

func locateSource() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		panic("projecttest: runtime.Caller failed")
	}
	return fmt.Sprintf("%s:%d", file, line)
}

func newStep(name string, apply func(context.Context, *testing.T, *harness), want snapshot) step {
	return step{name: name, location: locateSource(), apply: apply, want: want}
}

var steps = []step{
	newStep("create-document", func(ctx context.Context, t *testing.T, h *harness) {
		view, err := h.proj.View(ctx, h.reg)
		if err != nil {
			t.Fatalf("View: %v", err)
		}
		cb := cadcore.NewChangeBuilder()
		doc := view.CreateDocument(cb, mustPath("/alpha"))
		h.docs["alpha"] = doc.ID
		if err := h.proj.ApplyChanges(ctx, h.reg, h.session, cb); err != nil {
			t.Fatalf("ApplyChanges: %v", err)
		}
	}, snapshot{docs: map[string]docSnapshot{"/alpha": {path: "/alpha"}}}),

	newStep("create-owned-data", func(ctx context.Context, t *testing.T, h *harness) {
		view, err := h.proj.View(ctx, h.reg)
		if err != nil {
			t.Fatalf("View: %v", err)
		}
		cb := cadcore.NewChangeBuilder()
		alpha := h.docs["alpha"]
		data := cadcore.CreateData[Counter](view, cb, testModuleId, &alpha)
		h.data["c1"] = data.ID
		if err := h.proj.ApplyChanges(ctx, h.reg, h.session, cb); err != nil {
			t.Fatalf("ApplyChanges: %v", err)
		}
	}, snapshot{docs: map[string]docSnapshot{"/alpha": {path: "/alpha"}}}),

	newStep("apply-transaction", func(ctx context.Context, t *testing.T, h *harness) {
		view, err := h.proj.View(ctx, h.reg)
		if err != nil {
			t.Fatalf("View: %v", err)
		}
		cb := cadcore.NewChangeBuilder()
		d, err := cadcore.OpenDataByID[Counter](view, h.data["c1"])
		if err != nil {
			t.Fatalf("OpenDataByID: %v", err)
		}
		d.ApplyPersistent(cb, counterDelta{Delta: 7})
		if err := h.proj.ApplyChanges(ctx, h.reg, h.session, cb); err != nil {
			t.Fatalf("ApplyChanges: %v", err)
		}
	}, snapshot{docs: map[string]docSnapshot{"/alpha": {path: "/alpha", counter: 7}}}),

	newStep("second-document-and-move", func(ctx context.Context, t *testing.T, h *harness) {
		view, err := h.proj.View(ctx, h.reg)
		if err != nil {
			t.Fatalf("View: %v", err)
		}
		cb := cadcore.NewChangeBuilder()
		beta := view.CreateDocument(cb, mustPath("/beta"))
		h.docs["beta"] = beta.ID
		d, err := cadcore.OpenDataByID[Counter](view, h.data["c1"])
		if err != nil {
			t.Fatalf("OpenDataByID: %v", err)
		}
		d.Move(cb, &beta.ID)
		if err := h.proj.ApplyChanges(ctx, h.reg, h.session, cb); err != nil {
			t.Fatalf("ApplyChanges: %v", err)
		}
	}, snapshot{docs: map[string]docSnapshot{
		"/alpha": {path: "/alpha"},
		"/beta":  {path: "/beta", counter: 7},
	}}),

	newStep("orphan-by-deleting-owner", func(ctx context.Context, t *testing.T, h *harness) {
		view, err := h.proj.View(ctx, h.reg)
		if err != nil {
			t.Fatalf("View: %v", err)
		}
		cb := cadcore.NewChangeBuilder()
		docView, err := view.OpenDocument(h.docs["beta"])
		if err != nil {
			t.Fatalf("OpenDocument: %v", err)
		}
		docView.Delete(cb)
		if err := h.proj.ApplyChanges(ctx, h.reg, h.session, cb); err != nil {
			t.Fatalf("ApplyChanges: %v", err)
		}
	}, snapshot{
		docs:    map[string]docSnapshot{"/alpha": {path: "/alpha"}},
		orphans: 1,
	}),

	newStep("undo-delete-restores-beta", func(ctx context.Context, t *testing.T, h *harness) {
		if err := h.proj.Undo(h.session); err != nil {
			t.Fatalf("Undo: %v", err)
		}
	}, snapshot{docs: map[string]docSnapshot{
		"/alpha": {path: "/alpha"},
		"/beta":  {path: "/beta", counter: 7},
	}}),
}

func mustPath(s string) cadcore.Path {
	p, err := cadcore.NewPath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Run executes the suite's fixed sequence of steps against a freshly
// constructed project, verifying the resulting [cadcore.ProjectView] after
// each step. newProject is called once at the start of the run; pass a
// closure that wraps whatever storage/reconstruction path you want to
// exercise (e.g. round-tripping through cadcore/graphstore after every
// step is a reasonable extension for a backend-specific caller, though this
// suite itself only checks the project as constructed).
func Run(t *testing.T, newProject func() *cadcore.Project) {
	t.Helper()
	ctx := context.Background()

	reg := Registry()
	proj := newProject()
	session := proj.RegisterSession(cadcore.NewUserId())
	h := &harness{
		proj:    proj,
		reg:     reg,
		session: session,
		docs:    map[string]cadcore.DocumentId{},
		data:    map[string]cadcore.DataId{},
	}

	for _, s := range steps {
		t.Logf("Read the source for step %v at %v", s.name, s.location)
		s.apply(ctx, t, h)

		view, err := proj.View(ctx, reg)
		if err != nil {
			t.Fatalf("step %v: View: %v", s.name, err)
		}
		got, err := observe(view)
		if err != nil {
			t.Fatalf("step %v: observe: %v", s.name, err)
		}
		if diff := cmp.Diff(s.want, got, cmpopts.EquateEmpty(), cmp.AllowUnexported(snapshot{}, docSnapshot{})); diff != "" {
			t.Errorf("step %v: snapshot mismatch (-want +got):\n%s", s.name, diff)
		}
	}
}

func observe(view *cadcore.ProjectView) (snapshot, error) {
	out := snapshot{docs: map[string]docSnapshot{}}

	docIDs := view.Documents()
	sort.Slice(docIDs, func(i, j int) bool { return docIDs[i].String() < docIDs[j].String() })
	for _, id := range docIDs {
		docView, err := view.OpenDocument(id)
		if err != nil {
			return snapshot{}, err
		}
		total := 0
		for _, dataID := range docView.Data() {
			d, err := cadcore.OpenDataByID[Counter](view, dataID)
			if err != nil {
				return snapshot{}, err
			}
			total += d.Persistent().Value
		}
		out.docs[docView.Path().String()] = docSnapshot{path: docView.Path().String(), counter: total}
	}

	for _, id := range view.DataSections() {
		if _, ok := view.DataOwner(id); !ok {
			out.orphans++
		}
	}

	return out, nil
}
