package core

import (
	"context"
	"testing"
)

func TestMemoryIntentStore_RegisterAndGet(t *testing.T) {
	store := NewMemoryIntentStore()
	ctx := context.Background()

	pwIntent, err := BuildPasswordIntent("hunter2")
	if err != nil {
		t.Fatalf("build intent: %v", err)
	}
	filename := Filename("report.pdf")
	cid := ContentID("bafy-test-cid")

	if err := store.Register(ctx, filename, cid, IntentList{pwIntent}); err != nil {
		t.Fatalf("register: %v", err)
	}

	entry, err := store.Get(ctx, filename)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if entry.CID != cid {
		t.Fatalf("expected cid %q, got %q", cid, entry.CID)
	}
	if len(entry.Intents) != 1 || entry.Intents[0].TypeID != "Password" {
		t.Fatalf("unexpected intents: %+v", entry.Intents)
	}
}

func TestMemoryIntentStore_DuplicateFilenameRejected(t *testing.T) {
	store := NewMemoryIntentStore()
	ctx := context.Background()
	filename := Filename("report.pdf")

	if err := store.Register(ctx, filename, ContentID("cid-1"), IntentList{{TypeID: "Password", Data: []byte("x")}}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := store.Register(ctx, filename, ContentID("cid-2"), IntentList{{TypeID: "Password", Data: []byte("y")}}); err == nil {
		t.Fatalf("expected error re-registering an already-bound filename")
	}
}

func TestMemoryIntentStore_GetUnregisteredFilename(t *testing.T) {
	store := NewMemoryIntentStore()
	if _, err := store.Get(context.Background(), Filename("missing")); err == nil {
		t.Fatalf("expected error for unregistered filename")
	}
}

func TestMemoryIntentStore_RemoveThenGetFails(t *testing.T) {
	store := NewMemoryIntentStore()
	ctx := context.Background()
	filename := Filename("secret.txt")

	if err := store.Register(ctx, filename, ContentID("cid"), IntentList{{TypeID: "Password", Data: []byte("x")}}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := store.Remove(ctx, filename); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := store.Get(ctx, filename); err == nil {
		t.Fatalf("expected error reading a removed filename")
	}
}

// TestLedgerIntentStore_RegisterEncodesArgs exercises the wire encoding
// LedgerIntentStore.Register sends to the contract, independent of any
// round trip back through Get (a real ink! contract, unlike
// MemoryLedger, stores register_predicate's payload under a record key
// derived from the filename rather than the calling selector).
func TestLedgerIntentStore_RegisterEncodesArgs(t *testing.T) {
	ledger := NewMemoryLedger()
	store := NewLedgerIntentStore(ledger, "")
	pwIntent, err := BuildPasswordIntent("hunter2")
	if err != nil {
		t.Fatalf("build intent: %v", err)
	}

	if err := store.Register(context.Background(), Filename("report.pdf"), ContentID("bafy-test-cid"), IntentList{pwIntent}); err != nil {
		t.Fatalf("register: %v", err)
	}

	raw, err := ledger.Query(context.Background(), defaultPredicateRegistryContract, selRegisterIntent, nil)
	if err != nil {
		t.Fatalf("read back stored args: %v", err)
	}
	filenameBytes, rest, err := readLenPrefixedSlice(raw)
	if err != nil {
		t.Fatalf("decode filename: %v", err)
	}
	if string(filenameBytes) != "report.pdf" {
		t.Fatalf("unexpected filename in encoded args: %q", filenameBytes)
	}
	entry, err := decodeIntentEntry(rest)
	if err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if entry.CID != "bafy-test-cid" {
		t.Fatalf("unexpected cid in encoded args: %q", entry.CID)
	}
}
