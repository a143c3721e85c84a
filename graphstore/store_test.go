package graphstore_test

import (
	"context"
	"encoding/gob"
	"testing"

	"github.com/cadcore-go/cadcore"
	"github.com/cadcore-go/cadcore/graphstore"
	"github.com/cadcore-go/cadcore/internal/dbtest"
)

type testPayload struct {
	N int
}

func init() {
	gob.Register(testPayload{})
}

func TestStoreAppendAndLoad(t *testing.T) {
	driver := dbtest.SetupNeo4j(t)

	ctx := context.Background()
	const database = "cadcoretest"
	if err := graphstore.BootstrapDatabase(ctx, driver, database); err != nil {
		t.Fatal(err)
	}
	store := graphstore.NewStore(driver, database)

	id := cadcore.NewProjectID()
	session := cadcore.NewSessionId()
	user := cadcore.NewUserId()

	entries := []cadcore.LogEntry{
		cadcore.NewSessionEntry{User: user, Session: session},
		cadcore.ChangesEntry{Session: session, Changes: []cadcore.Change{
			cadcore.CreateDocument{ID: cadcore.NewDocumentId(), Path: mustPath(t, "/part")},
		}},
	}

	if err := store.Append(ctx, id, 0, entries); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != len(entries) {
		t.Fatalf("got %d entries, want %d", len(loaded), len(entries))
	}
	if _, ok := loaded[0].(cadcore.NewSessionEntry); !ok {
		t.Fatalf("entry 0: got %T, want cadcore.NewSessionEntry", loaded[0])
	}
	if _, ok := loaded[1].(cadcore.ChangesEntry); !ok {
		t.Fatalf("entry 1: got %T, want cadcore.ChangesEntry", loaded[1])
	}
}

func TestStoreAppendRejectsStaleIndex(t *testing.T) {
	driver := dbtest.SetupNeo4j(t)

	ctx := context.Background()
	const database = "cadcoretest"
	if err := graphstore.BootstrapDatabase(ctx, driver, database); err != nil {
		t.Fatal(err)
	}
	store := graphstore.NewStore(driver, database)

	id := cadcore.NewProjectID()
	entry := []cadcore.LogEntry{cadcore.NewSessionEntry{User: cadcore.NewUserId(), Session: cadcore.NewSessionId()}}

	if err := store.Append(ctx, id, 0, entry); err != nil {
		t.Fatal(err)
	}
	if err := store.Append(ctx, id, 0, entry); err == nil {
		t.Fatal("expected stale append to fail")
	}
}

func mustPath(t *testing.T, s string) cadcore.Path {
	t.Helper()
	p, err := cadcore.NewPath(s)
	if err != nil {
		t.Fatal(err)
	}
	return p
}
