package cadcore_test

import (
	"testing"

	"github.com/cadcore-go/cadcore"
)

func TestChangeBuilderPushAndLen(t *testing.T) {
	cb := cadcore.NewChangeBuilder()
	if cb.Len() != 0 {
		t.Fatalf("got %d, want 0", cb.Len())
	}
	doc := cadcore.NewDocumentId()
	cb.Push(cadcore.CreateDocument{ID: doc, Path: mustPath("/a")})
	cb.Push(cadcore.DeleteDocument{ID: doc})
	if cb.Len() != 2 {
		t.Fatalf("got %d, want 2", cb.Len())
	}
	if len(cb.Changes()) != 2 {
		t.Fatalf("got %d, want 2", len(cb.Changes()))
	}
}

func TestChangeBuilderChangesIsDefensiveCopy(t *testing.T) {
	cb := cadcore.NewChangeBuilder()
	cb.Push(cadcore.CreateDocument{ID: cadcore.NewDocumentId(), Path: mustPath("/a")})
	out := cb.Changes()
	out[0] = cadcore.DeleteDocument{ID: cadcore.NewDocumentId()}
	if _, ok := cb.Changes()[0].(cadcore.CreateDocument); !ok {
		t.Fatal("mutating the returned slice should not affect the builder")
	}
}

func TestChangeBuilderAppend(t *testing.T) {
	a := cadcore.NewChangeBuilder()
	a.Push(cadcore.CreateDocument{ID: cadcore.NewDocumentId(), Path: mustPath("/a")})
	b := cadcore.NewChangeBuilder()
	b.Push(cadcore.CreateDocument{ID: cadcore.NewDocumentId(), Path: mustPath("/b")})

	a.Append(b)
	if a.Len() != 2 {
		t.Fatalf("got %d, want 2", a.Len())
	}
	if b.Len() != 1 {
		t.Fatalf("Append should leave other unchanged, got %d, want 1", b.Len())
	}
}

func TestChangeBuilderReset(t *testing.T) {
	cb := cadcore.NewChangeBuilder()
	cb.Push(cadcore.CreateDocument{ID: cadcore.NewDocumentId(), Path: mustPath("/a")})
	cb.Reset()
	if cb.Len() != 0 {
		t.Fatalf("got %d, want 0 after Reset", cb.Len())
	}
	// Reused after reset.
	cb.Push(cadcore.CreateDocument{ID: cadcore.NewDocumentId(), Path: mustPath("/b")})
	if cb.Len() != 1 {
		t.Fatalf("got %d, want 1", cb.Len())
	}
}

func TestChangeBuilderCopyByValuePanics(t *testing.T) {
	cb := cadcore.NewChangeBuilder()
	cb.Push(cadcore.CreateDocument{ID: cadcore.NewDocumentId(), Path: mustPath("/a")})

	copied := *cb
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic from pushing into a by-value copy")
		}
	}()
	copied.Push(cadcore.CreateDocument{ID: cadcore.NewDocumentId(), Path: mustPath("/b")})
}
